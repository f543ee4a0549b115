package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// resolution
	ResInfo           Code = 1000
	ResIncludeMissing Code = 1001
	ResIncbinMissing  Code = 1002
	ResIncludeDepth   Code = 1003

	// assembler
	AsmInfo             Code = 2000
	AsmSyntax           Code = 2001
	AsmUnknownDirective Code = 2002
	AsmNoSection        Code = 2003
	AsmBadSection       Code = 2004
	AsmBadNumber        Code = 2005
	AsmDuplicateLabel   Code = 2006
	AsmBadLocalLabel    Code = 2007
	AsmValueRange       Code = 2008
	AsmUnsupported      Code = 2009
	AsmIncbinRange      Code = 2010
	AsmUnknownExport    Code = 2011

	// linker
	LinkInfo            Code = 3000
	LinkNoSpace         Code = 3001
	LinkOverlap         Code = 3002
	LinkOutOfRange      Code = 3003
	LinkBankRestricted  Code = 3004
	LinkUnknownSymbol   Code = 3005
	LinkDuplicateSymbol Code = 3006
	LinkScriptSyntax    Code = 3007
	LinkScriptUnknown   Code = 3008
	LinkOverlayFloating Code = 3009
	LinkOverlaySize     Code = 3010
	LinkPatchRange      Code = 3011

	// fixer
	FixInfo      Code = 4000
	FixTooSmall  Code = 4001
	FixTooLarge  Code = 4002
	FixTruncated Code = 4003
	FixOverwrite Code = 4004
	FixLicensee  Code = 4005

	// driver
	DrvInfo        Code = 5000
	DrvUnsupported Code = 5001
)

var codeDescription = map[Code]string{
	UnknownCode: "Unknown error",

	ResInfo:           "Resolution information",
	ResIncludeMissing: "Included file not found",
	ResIncbinMissing:  "Binary file not found",
	ResIncludeDepth:   "Include nesting too deep",

	AsmInfo:             "Assembler information",
	AsmSyntax:           "Syntax error",
	AsmUnknownDirective: "Unknown directive or instruction",
	AsmNoSection:        "Code or data outside of a section",
	AsmBadSection:       "Invalid section declaration",
	AsmBadNumber:        "Invalid numeric literal",
	AsmDuplicateLabel:   "Label defined twice",
	AsmBadLocalLabel:    "Local label without a parent",
	AsmValueRange:       "Value out of range",
	AsmUnsupported:      "Option not supported",
	AsmIncbinRange:      "INCBIN range outside of file",
	AsmUnknownExport:    "Exported symbol is not defined",

	LinkInfo:            "Linker information",
	LinkNoSpace:         "No room for section",
	LinkOverlap:         "Sections overlap",
	LinkOutOfRange:      "Section outside of its region",
	LinkBankRestricted:  "Bank not available with the selected restrictions",
	LinkUnknownSymbol:   "Unknown symbol",
	LinkDuplicateSymbol: "Symbol exported twice",
	LinkScriptSyntax:    "Linker script syntax error",
	LinkScriptUnknown:   "Linker script names an unknown section",
	LinkOverlayFloating: "Floating section with an overlay",
	LinkOverlaySize:     "Overlay has an invalid size",
	LinkPatchRange:      "Patched value out of range",

	FixInfo:      "Fixer information",
	FixTooSmall:  "ROM too small for a header",
	FixTooLarge:  "ROM too large to pad",
	FixTruncated: "Value truncated",
	FixOverwrite: "Header byte overwritten",
	FixLicensee:  "Licensee mismatch",

	DrvInfo:        "Driver information",
	DrvUnsupported: "Unsupported option",
}

// ID returns the stable short identifier, e.g. "ASM2001".
func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("RES%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("ASM%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("LNK%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("FIX%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("DRV%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	if d, ok := codeDescription[c]; ok {
		return d
	}
	return codeDescription[UnknownCode]
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
