package diag

// Severity defines the importance of a diagnostic.
// Severities are totally ordered: Trace < Info < Warning < Error < Fatal.
type Severity uint8

const (
	// SevTrace is only used for verbose log output, never by engines.
	SevTrace Severity = iota
	// SevInfo is for informational diagnostics.
	SevInfo
	// SevWarning is for warning diagnostics.
	SevWarning
	SevError
	// SevFatal marks a failure of the toolchain itself (engine fault, bad configuration).
	SevFatal
)

func (s Severity) String() string {
	switch s {
	case SevTrace:
		return "TRACE"
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	case SevFatal:
		return "FATAL"
	}
	return "UNKNOWN"
}

// Label is the lower-case form printed in front of rendered diagnostics.
func (s Severity) Label() string {
	switch s {
	case SevTrace:
		return "trace"
	case SevInfo:
		return "info"
	case SevWarning:
		return "warn"
	case SevError:
		return "error"
	case SevFatal:
		return "fatal"
	}
	return "unknown"
}

// IsError reports whether the severity fails a build.
func (s Severity) IsError() bool {
	return s >= SevError
}
