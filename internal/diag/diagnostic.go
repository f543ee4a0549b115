package diag

import (
	"hgb/internal/source"
)

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Pos      source.Pos
}

func New(sev Severity, code Code, pos source.Pos, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Message:  msg,
		Pos:      pos,
	}
}

func NewError(code Code, pos source.Pos, msg string) Diagnostic {
	return New(SevError, code, pos, msg)
}

func NewWarning(code Code, pos source.Pos, msg string) Diagnostic {
	return New(SevWarning, code, pos, msg)
}

func NewInfo(code Code, pos source.Pos, msg string) Diagnostic {
	return New(SevInfo, code, pos, msg)
}

// String renders "<pos>: <sev> <code>: <message>", dropping the parts that are absent.
func (d Diagnostic) String() string {
	out := ""
	if p := d.Pos.String(); p != "" {
		out = p + ": "
	}
	out += d.Severity.Label()
	if d.Code != UnknownCode {
		out += " " + d.Code.ID()
	}
	return out + ": " + d.Message
}
