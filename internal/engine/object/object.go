package object

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"
)

// Magic prefixes every encoded object file.
const Magic = "HGBO"

// Version is bumped whenever the encoded layout changes.
const Version uint16 = 1

// SectionType names the memory region a section is placed in.
type SectionType uint8

const (
	ROM0 SectionType = iota
	ROMX
	VRAM
	SRAM
	WRAM0
	WRAMX
	OAM
	HRAM
)

var sectionTypeNames = [...]string{
	ROM0:  "ROM0",
	ROMX:  "ROMX",
	VRAM:  "VRAM",
	SRAM:  "SRAM",
	WRAM0: "WRAM0",
	WRAMX: "WRAMX",
	OAM:   "OAM",
	HRAM:  "HRAM",
}

// SectionTypes lists every type in region order.
var SectionTypes = []SectionType{ROM0, ROMX, VRAM, SRAM, WRAM0, WRAMX, OAM, HRAM}

func (t SectionType) String() string {
	if int(t) < len(sectionTypeNames) {
		return sectionTypeNames[t]
	}
	return fmt.Sprintf("SectionType(%d)", uint8(t))
}

// HasData reports whether sections of this type carry bytes in the ROM image.
func (t SectionType) HasData() bool {
	return t == ROM0 || t == ROMX
}

// ParseSectionType matches a region keyword case-insensitively.
func ParseSectionType(s string) (SectionType, bool) {
	up := strings.ToUpper(strings.TrimSpace(s))
	for i, name := range sectionTypeNames {
		if name == up {
			return SectionType(i), true
		}
	}
	return 0, false
}

// PatchKind selects how a resolved symbol value is written.
type PatchKind uint8

const (
	PatchByte PatchKind = iota + 1
	PatchWord
	// PatchHigh writes the low byte of an address in $FF00-$FFFF (ldh operands).
	PatchHigh
)

// Width returns the number of bytes a patch of this kind occupies.
func (k PatchKind) Width() uint32 {
	if k == PatchWord {
		return 2
	}
	return 1
}

// Unplaced marks an address or bank left to the linker.
const Unplaced int32 = -1

// Section is one contiguous chunk of code or reserved space.
type Section struct {
	Name    string      `msgpack:"name"`
	Type    SectionType `msgpack:"type"`
	Org     int32       `msgpack:"org"`
	Bank    int32       `msgpack:"bank"`
	Size    uint32      `msgpack:"size"`
	Data    []byte      `msgpack:"data,omitempty"`
	Patches []Patch     `msgpack:"patches,omitempty"`
}

// Fixed reports whether the section address was pinned in source.
func (s *Section) Fixed() bool { return s.Org != Unplaced }

// Patch is a pending symbol reference inside a section's data.
type Patch struct {
	Offset uint32    `msgpack:"offset"`
	Kind   PatchKind `msgpack:"kind"`
	Symbol string    `msgpack:"symbol"`
	Path   string    `msgpack:"path,omitempty"`
	Line   uint32    `msgpack:"line,omitempty"`
}

// Symbol is a label (Section >= 0) or a numeric constant (Section == Unplaced).
type Symbol struct {
	Name     string `msgpack:"name"`
	Section  int32  `msgpack:"section"`
	Value    int32  `msgpack:"value"`
	Exported bool   `msgpack:"exported,omitempty"`
}

// IsLabel reports whether the symbol refers to a section offset.
func (s *Symbol) IsLabel() bool { return s.Section != Unplaced }

// File is the assembler output for one root source.
type File struct {
	Path     string    `msgpack:"-"`
	Sections []Section `msgpack:"sections"`
	Symbols  []Symbol  `msgpack:"symbols"`
}

// FormatError reports a file that is not a readable object.
type FormatError struct {
	Path   string
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: invalid object file: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: invalid object file: %s", e.Path, e.Reason)
}

func (e *FormatError) Unwrap() error { return e.Err }

type envelope struct {
	Version uint16 `msgpack:"version"`
	File    *File  `msgpack:"file"`
}

// Encode serializes f behind the magic header.
func Encode(f *File) ([]byte, error) {
	if f == nil {
		return nil, errors.New("object: nil file")
	}
	var buf bytes.Buffer
	buf.WriteString(Magic)
	if err := msgpack.NewEncoder(&buf).Encode(envelope{Version: Version, File: f}); err != nil {
		return nil, fmt.Errorf("encode object: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses data produced by Encode; path is only used for errors.
func Decode(path string, data []byte) (*File, error) {
	if len(data) < len(Magic) || string(data[:len(Magic)]) != Magic {
		return nil, &FormatError{Path: path, Reason: "missing " + Magic + " header"}
	}
	var env envelope
	if err := msgpack.Unmarshal(data[len(Magic):], &env); err != nil {
		return nil, &FormatError{Path: path, Reason: "corrupt payload", Err: err}
	}
	if env.Version != Version {
		return nil, &FormatError{Path: path, Reason: fmt.Sprintf("unsupported version %d (want %d)", env.Version, Version)}
	}
	if env.File == nil {
		return nil, &FormatError{Path: path, Reason: "empty payload"}
	}
	f := env.File
	f.Path = path
	if err := f.validate(); err != nil {
		return nil, &FormatError{Path: path, Reason: err.Error()}
	}
	return f, nil
}

func (f *File) validate() error {
	for i := range f.Sections {
		s := &f.Sections[i]
		if int(s.Type) >= len(sectionTypeNames) {
			return fmt.Errorf("section %q: unknown type %d", s.Name, s.Type)
		}
		n, err := safecast.Conv[uint32](len(s.Data))
		if err != nil {
			return fmt.Errorf("section %q: %w", s.Name, err)
		}
		if s.Type.HasData() && n != s.Size {
			return fmt.Errorf("section %q: data length %d does not match size %d", s.Name, len(s.Data), s.Size)
		}
		for _, p := range s.Patches {
			if p.Kind < PatchByte || p.Kind > PatchHigh {
				return fmt.Errorf("section %q: unknown patch kind %d", s.Name, p.Kind)
			}
			if p.Offset+p.Kind.Width() > s.Size {
				return fmt.Errorf("section %q: patch at %d out of range", s.Name, p.Offset)
			}
		}
	}
	for _, sym := range f.Symbols {
		if sym.Section != Unplaced && (sym.Section < 0 || int(sym.Section) >= len(f.Sections)) {
			return fmt.Errorf("symbol %q: bad section index %d", sym.Name, sym.Section)
		}
	}
	return nil
}
