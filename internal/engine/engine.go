// Package engine declares the boundary between the toolchain drivers and the
// assembler, linker and fixer implementations.
//
// Drivers never look inside an engine: they hand it a frozen option record,
// wait for one result, and decide what to write from the diagnostics the
// result carries.
package engine

import (
	"context"

	"hgb/internal/depfile"
	"hgb/internal/diag"
	"hgb/internal/engine/object"
	"hgb/internal/resolve"
	"hgb/internal/source"
)

// FileProvider answers INCLUDE and INCBIN lookups during assembly.
// *resolve.Resolver satisfies it. Resolve may be called concurrently.
type FileProvider interface {
	Resolve(ctx context.Context, req resolve.Request) (*source.Unit, bool)
}

// AsmOptions is the assembler part of the hgbasm configuration.
type AsmOptions struct {
	Padding         byte
	ExportAllLabels bool
	NopAfterHalt    bool
	OptimizeLd      bool
	// DebugDefine, when Name is set, behaves like `Name EQUS "Value"`.
	DebugDefine Define
}

// Define is a string symbol predefined before assembly starts.
type Define struct {
	Name  string
	Value string
}

// AsmResult is what one assembly produced.
type AsmResult struct {
	Object *object.File
	// Dependencies lists every resolved INCLUDE/INCBIN target in discovery
	// order. The root source is not part of it.
	Dependencies []depfile.Entry
	Diagnostics  []diag.Diagnostic
}

// Assembler turns a root source unit into an object file.
type Assembler interface {
	Assemble(ctx context.Context, opts AsmOptions, root *source.Unit, files FileProvider) (*AsmResult, error)
}

// LinkOptions is the linker part of the hgblink configuration.
type LinkOptions struct {
	Padding          byte
	DisableRomBanks  bool
	DisableWramBanks bool
	DisableVramBanks bool
	// LinkerScript is the script text; LinkerScriptPath names it in diagnostics.
	LinkerScript     string
	LinkerScriptPath string
	// Overlay, when non-nil, is the ROM image sections are written over.
	Overlay     []byte
	GenerateMap bool
	GenerateSym bool
}

// LinkResult is what one link produced.
type LinkResult struct {
	ROM         []byte
	MapFile     string
	SymbolFile  string
	Diagnostics []diag.Diagnostic
}

// Linker places sections from object files into a ROM image.
type Linker interface {
	Link(ctx context.Context, opts LinkOptions, objects []*object.File) (*LinkResult, error)
}

// Action selects what the fixer does with a computed header field.
type Action uint8

const (
	Keep Action = iota
	Fix
	Trash
)

func (a Action) String() string {
	switch a {
	case Fix:
		return "fix"
	case Trash:
		return "trash"
	default:
		return "keep"
	}
}

// CGBMode is the value requested for the CGB flag byte.
type CGBMode uint8

const (
	CGBUnset CGBMode = iota
	CGBCompatible
	CGBOnly
)

// FixOptions is the hgbfix configuration. Nil pointers leave the
// corresponding header bytes untouched.
type FixOptions struct {
	CGB            CGBMode
	SGB            bool
	NonJapanese    bool
	Logo           Action
	HeaderChecksum Action
	GlobalChecksum Action
	NewLicensee    *string
	OldLicensee    *byte
	MBC            *byte
	RAMSize        *byte
	GameID         *string
	Title          *string
	Version        *byte
	Padding        *byte
}

// FixResult is the patched image.
type FixResult struct {
	ROM         []byte
	Diagnostics []diag.Diagnostic
}

// Fixer rewrites the cartridge header of a ROM image.
type Fixer interface {
	Fix(ctx context.Context, opts FixOptions, rom []byte) (*FixResult, error)
}
