// Package depfile renders make(1) dependency rules for an assembled object.
package depfile

import "strings"

// Kind tags how a dependency was pulled into the build.
type Kind uint8

const (
	KindSource Kind = iota
	KindInclude
	KindBinary
)

func (k Kind) String() string {
	switch k {
	case KindSource:
		return "source"
	case KindInclude:
		return "include"
	case KindBinary:
		return "binary"
	}
	return "unknown"
}

// Entry is one resolved dependency, in first-discovery order.
type Entry struct {
	Path string
	Kind Kind
}

// Emit produces one "<output>: <dependency>" line per entry. The root source
// always comes first regardless of where (or whether) it appears in entries;
// repeated paths are written once. Lines are joined with '\n' and carry no
// trailing newline.
func Emit(entries []Entry, sourcePath, outputPath string) string {
	seen := make(map[string]struct{}, len(entries)+1)
	lines := make([]string, 0, len(entries)+1)

	add := func(dep string) {
		if _, ok := seen[dep]; ok {
			return
		}
		seen[dep] = struct{}{}
		lines = append(lines, outputPath+": "+dep)
	}

	add(sourcePath)
	for _, e := range entries {
		add(e.Path)
	}
	return strings.Join(lines, "\n")
}
