// Package cli is the plumbing shared by the hgbasm, hgblink and hgbfix
// command lines: global flags, terminal detection, the optional progress
// view, timing output and exit codes.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
	"golang.org/x/term"
)

// Runtime is the process environment a command runs in. Tests substitute an
// in-memory filesystem and buffers.
type Runtime struct {
	FS     afero.Fs
	Root   string
	Stdout io.Writer
	Stderr io.Writer
}

// OSRuntime describes the real process: the OS filesystem, the current
// directory and the standard streams.
func OSRuntime() (Runtime, error) {
	wd, err := os.Getwd()
	if err != nil {
		return Runtime{}, fmt.Errorf("failed to get working directory: %w", err)
	}
	return Runtime{
		FS:     afero.NewOsFs(),
		Root:   wd,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}, nil
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
