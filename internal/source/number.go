package source

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseNumber parses the numeric literal forms shared by the assembler and
// the command line: decimal, $hex, 0xhex, %binary and 0bbinary, optionally
// negated with a leading '-'.
func ParseNumber(s string) (int64, error) {
	text := strings.TrimSpace(s)
	if text == "" {
		return 0, fmt.Errorf("empty number")
	}
	neg := false
	if text[0] == '-' {
		neg = true
		text = text[1:]
	}
	base := 10
	lower := strings.ToLower(text)
	switch {
	case strings.HasPrefix(lower, "$"):
		base, text = 16, text[1:]
	case strings.HasPrefix(lower, "0x"):
		base, text = 16, text[2:]
	case strings.HasPrefix(lower, "%"):
		base, text = 2, text[1:]
	case strings.HasPrefix(lower, "0b"):
		base, text = 2, text[2:]
	}
	if text == "" || text[0] == '-' || text[0] == '+' {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	v, err := strconv.ParseInt(text, base, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	if neg {
		v = -v
	}
	return v, nil
}

// IsNumber reports whether s looks like a numeric literal rather than a symbol.
func IsNumber(s string) bool {
	t := strings.TrimPrefix(strings.TrimSpace(s), "-")
	if t == "" {
		return false
	}
	c := t[0]
	return c == '$' || c == '%' || (c >= '0' && c <= '9')
}
