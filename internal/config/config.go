// Package config builds the frozen per-tool configuration records from raw
// command-line input.
//
// Every check that can be made without running an engine happens here, so a
// bad flag combination stops an invocation before any file is read or
// written.
package config

import (
	"fmt"
	"strings"

	"fortio.org/safecast"

	"hgb/internal/source"
)

// Error is a configuration problem detected before any engine runs.
type Error struct {
	Field string
	Msg   string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func errorf(field, format string, args ...any) *Error {
	return &Error{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// ParseByte parses a 0..0xFF value in any of the accepted number syntaxes.
func ParseByte(field, s string) (byte, error) {
	v, err := source.ParseNumber(strings.TrimSpace(s))
	if err != nil {
		return 0, errorf(field, "%v", err)
	}
	b, err := safecast.Conv[byte](v)
	if err != nil {
		return 0, errorf(field, "value %s is out of range 0-0xFF", s)
	}
	return b, nil
}

func optionalByte(field, s string) (*byte, error) {
	if s == "" {
		return nil, nil
	}
	b, err := ParseByte(field, s)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
