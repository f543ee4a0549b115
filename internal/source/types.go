package source

type (
	// UnitFlags encodes metadata about a source unit.
	UnitFlags uint8
)

const (
	// UnitBinary marks a unit read as raw bytes (INCBIN and friends).
	UnitBinary UnitFlags = 1 << iota
	// UnitHadBOM is set when a UTF-8 BOM was stripped during text decoding.
	UnitHadBOM
	// UnitNormalizedCRLF is set when CRLF line endings were rewritten to LF.
	UnitNormalizedCRLF
)

// LineCol represents a human-readable position in a source unit.
type LineCol struct {
	Line uint32 // 1-based
	Col  uint32 // 1-based
}

// Pos is the positional metadata attached to a diagnostic.
// A zero Pos means "no location".
type Pos struct {
	Path string
	Line uint32
	Col  uint32
}
