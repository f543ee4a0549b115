package source

import (
	"crypto/sha256"
	"fmt"
	"path/filepath"

	"fortio.org/safecast"
)

// Unit identifies one resolved input, text or binary.
// Units are immutable once created; the resolver cache and the engine share them by pointer.
type Unit struct {
	Path    string // normalized, relative to the working root when possible
	Abs     string // absolute location the content was read from
	Content []byte
	Hash    [32]byte
	Flags   UnitFlags
	lineIdx []uint32
}

// NewUnit wraps already decoded content. Text units get a line index.
func NewUnit(path, abs string, content []byte, flags UnitFlags) *Unit {
	u := &Unit{
		Path:    normalizePath(path),
		Abs:     abs,
		Content: content,
		Hash:    sha256.Sum256(content),
		Flags:   flags,
	}
	if flags&UnitBinary == 0 {
		u.lineIdx = buildLineIndex(content)
	}
	return u
}

// Binary reports whether the unit holds raw bytes.
func (u *Unit) Binary() bool {
	return u.Flags&UnitBinary != 0
}

// Dir returns the directory relative includes of this unit are resolved against.
func (u *Unit) Dir() string {
	if u.Abs != "" {
		return filepath.Dir(u.Abs)
	}
	return filepath.Dir(filepath.FromSlash(u.Path))
}

// Text returns the content as a string.
func (u *Unit) Text() string {
	return string(u.Content)
}

// LineCount returns the number of lines of a text unit.
func (u *Unit) LineCount() int {
	if len(u.Content) == 0 {
		return 0
	}
	n := len(u.lineIdx)
	if u.Content[len(u.Content)-1] != '\n' {
		n++
	}
	return n
}

// PosAt converts a byte offset into a diagnostic position.
func (u *Unit) PosAt(off uint32) Pos {
	lc := toLineCol(u.lineIdx, off)
	return Pos{Path: u.Path, Line: lc.Line, Col: lc.Col}
}

// LineOffset returns the byte offset at which a 1-based line starts.
// Lines past the end map to the end of the content.
func (u *Unit) LineOffset(lineNum uint32) uint32 {
	if lineNum <= 1 {
		return 0
	}
	if int(lineNum-2) < len(u.lineIdx) {
		return u.lineIdx[lineNum-2] + 1
	}
	end, err := safecast.Conv[uint32](len(u.Content))
	if err != nil {
		panic(fmt.Errorf("content length overflow: %w", err))
	}
	return end
}

// GetLine returns the 1-based line without its terminator.
// Missing lines yield an empty string.
func (u *Unit) GetLine(lineNum uint32) string {
	if lineNum == 0 {
		return ""
	}

	var start, end, lenLineIdx, lenContent uint32
	var err error
	lenLineIdx, err = safecast.Conv[uint32](len(u.lineIdx))
	if err != nil {
		panic(fmt.Errorf("line index length overflow: %w", err))
	}
	lenContent, err = safecast.Conv[uint32](len(u.Content))
	if err != nil {
		panic(fmt.Errorf("content length overflow: %w", err))
	}

	switch {
	case lineNum == 1:
		start = 0
	case (lineNum - 2) < lenLineIdx:
		start = u.lineIdx[lineNum-2] + 1
	default:
		return ""
	}

	if (lineNum - 1) < lenLineIdx {
		end = u.lineIdx[lineNum-1]
	} else {
		end = lenContent
	}

	if start >= lenContent {
		return ""
	}
	if end > lenContent {
		end = lenContent
	}

	return string(u.Content[start:end])
}
