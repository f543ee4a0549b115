package diag

import (
	"fmt"

	"hgb/internal/source"
)

// Reporter is the minimal contract engines use to emit diagnostics.
// Implementations: BagReporter (stores into a Bag), DedupReporter (filters repeats).
type Reporter interface {
	Report(sev Severity, code Code, pos source.Pos, msg string)
}

// Errorf is a shortcut for SevError diagnostics.
func Errorf(r Reporter, code Code, pos source.Pos, format string, args ...any) {
	r.Report(SevError, code, pos, fmt.Sprintf(format, args...))
}

// Warnf is a shortcut for SevWarning diagnostics.
func Warnf(r Reporter, code Code, pos source.Pos, format string, args ...any) {
	r.Report(SevWarning, code, pos, fmt.Sprintf(format, args...))
}

// Infof is a shortcut for SevInfo diagnostics.
func Infof(r Reporter, code Code, pos source.Pos, format string, args ...any) {
	r.Report(SevInfo, code, pos, fmt.Sprintf(format, args...))
}

// BagReporter writes into a *Bag.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(sev Severity, code Code, pos source.Pos, msg string) {
	if r.Bag == nil {
		return
	}
	r.Bag.Add(New(sev, code, pos, msg))
}
