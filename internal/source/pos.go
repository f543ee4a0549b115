package source

import "fmt"

// IsZero reports whether the position carries no location.
func (p Pos) IsZero() bool {
	return p.Path == "" && p.Line == 0
}

func (p Pos) String() string {
	switch {
	case p.Path == "":
		return ""
	case p.Line == 0:
		return p.Path
	case p.Col == 0:
		return fmt.Sprintf("%s:%d", p.Path, p.Line)
	default:
		return fmt.Sprintf("%s:%d:%d", p.Path, p.Line, p.Col)
	}
}
