package cli

import (
	"errors"
	"fmt"
	"io"
)

// ExitError carries the process exit code out of a command. Reported
// errors were already printed by the diagnostic reporter.
type ExitError struct {
	Code     int
	Err      error
	Reported bool
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps the error returned by a command to a process exit code,
// printing it to stderr unless it was already reported.
func ExitCode(err error, stderr io.Writer) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil && !exitErr.Reported {
			fmt.Fprintf(stderr, "error: %v\n", exitErr.Err)
		}
		if exitErr.Code == 0 {
			return 1
		}
		return exitErr.Code
	}
	fmt.Fprintf(stderr, "error: %v\n", err)
	return 1
}
