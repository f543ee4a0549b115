// Package report turns diagnostics into user-facing output.
//
// A Reporter filters messages by severity, routes them to a Sink and prints
// the end-of-stage summary that the exit code is derived from.
package report

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"hgb/internal/diag"
)

// Sink receives every message that passes the reporter's filters.
type Sink func(msg string, sev diag.Severity)

// StreamSink routes error and fatal messages to stderr and everything else to stdout.
func StreamSink(stdout, stderr io.Writer) Sink {
	return func(msg string, sev diag.Severity) {
		w := stdout
		if sev.IsError() {
			w = stderr
		}
		_, _ = io.WriteString(w, msg)
	}
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithNoWarnings suppresses warn messages. Errors are unaffected.
func WithNoWarnings(v bool) Option {
	return func(r *Reporter) { r.noWarn = v }
}

// WithColor enables ANSI coloring of severity labels.
func WithColor(v bool) Option {
	return func(r *Reporter) { r.color = v }
}

// Reporter is safe for concurrent use; messages are written whole.
type Reporter struct {
	mu        sync.Mutex
	sink      Sink
	threshold diag.Severity
	noWarn    bool
	color     bool
}

// New creates a reporter. threshold is the lowest severity printed; error
// and fatal always pass regardless of it.
func New(sink Sink, threshold diag.Severity, opts ...Option) *Reporter {
	r := &Reporter{
		sink:      sink,
		threshold: threshold,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Enabled reports whether a message of the given severity would be printed.
func (r *Reporter) Enabled(sev diag.Severity) bool {
	if r == nil {
		return false
	}
	if sev.IsError() {
		return true
	}
	if sev == diag.SevWarning && r.noWarn {
		return false
	}
	return sev >= r.threshold
}

// Log emits msg at sev. A trailing newline is added when missing.
func (r *Reporter) Log(sev diag.Severity, msg string) {
	if !r.Enabled(sev) || r.sink == nil {
		return
	}
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sink(msg, sev)
}

// Logf is Log with fmt.Sprintf formatting.
func (r *Reporter) Logf(sev diag.Severity, format string, args ...any) {
	if !r.Enabled(sev) {
		return
	}
	r.Log(sev, fmt.Sprintf(format, args...))
}

// Fatal reports a failure of the toolchain itself during the named activity
// ("assembly", "linking", "fixing").
func (r *Reporter) Fatal(activity string, detail string) {
	r.Log(diag.SevFatal, fmt.Sprintf("A fatal error occurred during %s.\n%s", activity, detail))
}

// Summary holds the counts the exit code is derived from.
// Fatals are kept apart from Errors: the summary line counts error-level
// entries only, but either kind fails the stage.
type Summary struct {
	Errors   int
	Warnings int
	Fatals   int
}

// Failed reports whether the stage produced at least one error or fatal entry.
func (s Summary) Failed() bool {
	return s.Errors > 0 || s.Fatals > 0
}

// Report prints diagnostics grouped by severity (info, then warnings, then
// errors) followed by the summary line, and returns the counts. title names
// the stage and subject, e.g. "Assembly of main.asm" or "Linking".
func (r *Reporter) Report(title string, diags []diag.Diagnostic) Summary {
	sum := Summary{
		Errors:   diag.Count(diags, diag.SevError),
		Warnings: diag.Count(diags, diag.SevWarning),
		Fatals:   diag.Count(diags, diag.SevFatal),
	}

	for _, sev := range []diag.Severity{diag.SevInfo, diag.SevWarning, diag.SevError, diag.SevFatal} {
		if !r.Enabled(sev) {
			continue
		}
		for i := range diags {
			if diags[i].Severity == sev {
				r.Log(sev, r.render(diags[i]))
			}
		}
	}

	r.Log(diag.SevInfo, SummaryLine(title, sum))
	return sum
}

// SummaryLine renders "<title> finished|failed with N error(s) and M warning(s)".
func SummaryLine(title string, sum Summary) string {
	outcome := "finished"
	if sum.Failed() {
		outcome = "failed"
	}
	return fmt.Sprintf("%s %s with %s and %s",
		title, outcome,
		plural(sum.Errors, "error", "errors"),
		plural(sum.Warnings, "warning", "warnings"),
	)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}

var (
	infoColor  = color.New(color.FgCyan)
	warnColor  = color.New(color.FgYellow, color.Bold)
	errorColor = color.New(color.FgRed, color.Bold)
	fatalColor = color.New(color.BgRed, color.FgWhite, color.Bold)
)

func (r *Reporter) render(d diag.Diagnostic) string {
	if !r.color {
		return d.String()
	}
	var c *color.Color
	switch d.Severity {
	case diag.SevWarning:
		c = warnColor
	case diag.SevError:
		c = errorColor
	case diag.SevFatal:
		c = fatalColor
	default:
		c = infoColor
	}
	c.EnableColor()

	var b strings.Builder
	if p := d.Pos.String(); p != "" {
		b.WriteString(p)
		b.WriteString(": ")
	}
	b.WriteString(c.Sprint(d.Severity.Label()))
	if d.Code != diag.UnknownCode {
		b.WriteByte(' ')
		b.WriteString(d.Code.ID())
	}
	b.WriteString(": ")
	b.WriteString(d.Message)
	return b.String()
}
