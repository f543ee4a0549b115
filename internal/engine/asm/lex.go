package asm

import (
	"fmt"
	"strings"
)

// stripComment drops everything from the first ';' outside a string literal.
func stripComment(line string) string {
	inStr := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '\\':
			if inStr {
				i++
			}
		case '"':
			inStr = !inStr
		case ';':
			if !inStr {
				return line[:i]
			}
		}
	}
	return line
}

// splitOperands splits on commas that are outside strings and brackets.
func splitOperands(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var out []string
	depth, start := 0, 0
	inStr := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inStr && c == '\\':
			i++
		case c == '"':
			inStr = !inStr
		case inStr:
		case c == '[' || c == '(':
			depth++
		case c == ']' || c == ')':
			if depth > 0 {
				depth--
			}
		case c == ',' && depth == 0:
			out = append(out, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	return append(out, strings.TrimSpace(s[start:]))
}

// splitWord returns the leading whitespace-delimited word and the remainder.
func splitWord(s string) (word, rest string) {
	s = strings.TrimLeft(s, " \t")
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}

// parseString decodes a double-quoted literal.
func parseString(tok string) (string, error) {
	if len(tok) < 2 || tok[0] != '"' || tok[len(tok)-1] != '"' {
		return "", fmt.Errorf("expected a string literal, got %q", tok)
	}
	body := tok[1 : len(tok)-1]
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == '"' {
			return "", fmt.Errorf("unescaped quote in %s", tok)
		}
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(body) {
			return "", fmt.Errorf("unterminated escape in %s", tok)
		}
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case '0':
			b.WriteByte(0)
		case '\\', '"', ',', '{', '}':
			b.WriteByte(body[i])
		default:
			return "", fmt.Errorf("unknown escape \\%c in %s", body[i], tok)
		}
	}
	return b.String(), nil
}

func isString(tok string) bool {
	return len(tok) >= 2 && tok[0] == '"'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9') || c == '#' || c == '@'
}

// isSymbol accepts `Name`, `.local` and `Name.local`.
func isSymbol(tok string) bool {
	if tok == "" {
		return false
	}
	parts := strings.Split(tok, ".")
	if len(parts) > 2 {
		return false
	}
	for i, p := range parts {
		if p == "" {
			if i == 0 && len(parts) == 2 {
				continue
			}
			return false
		}
		if !isIdentStart(p[0]) {
			return false
		}
		for j := 1; j < len(p); j++ {
			if !isIdentChar(p[j]) {
				return false
			}
		}
	}
	return true
}

// unbracket returns the inside of "[...]".
func unbracket(tok string) (string, bool) {
	if len(tok) < 2 || tok[0] != '[' || tok[len(tok)-1] != ']' {
		return "", false
	}
	return strings.TrimSpace(tok[1 : len(tok)-1]), true
}

// expandEqus substitutes string symbols in s outside string literals.
// Substitution is a single pass; replacement text is not rescanned.
func expandEqus(s string, equs map[string]string) string {
	if len(equs) == 0 {
		return s
	}
	var b strings.Builder
	inStr := false
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case inStr && c == '\\' && i+1 < len(s):
			b.WriteString(s[i : i+2])
			i += 2
			continue
		case c == '"':
			inStr = !inStr
		case !inStr && isIdentStart(c) && (i == 0 || !isIdentChar(s[i-1]) && s[i-1] != '.' && s[i-1] != '$' && s[i-1] != '%'):
			j := i + 1
			for j < len(s) && isIdentChar(s[j]) {
				j++
			}
			if repl, ok := equs[s[i:j]]; ok {
				b.WriteString(repl)
			} else {
				b.WriteString(s[i:j])
			}
			i = j
			continue
		}
		b.WriteByte(c)
		i++
	}
	return b.String()
}
