package config

import (
	"strings"

	"hgb/internal/diag"
	"hgb/internal/engine"
	"hgb/internal/source"
)

// AsmInput is the raw hgbasm command line.
type AsmInput struct {
	Source      string
	Binary      string
	Debug       string
	ExportAll   bool
	Gbgfx       string
	NoHaltNop   bool
	IncludeDirs []string
	NoLdLdh     bool
	DepFile     string
	Out         string
	Pad         string
	Verbose     bool
	NoWarn      bool
}

// Asm is the validated hgbasm configuration.
type Asm struct {
	Source      string
	IncludeDirs []string
	Out         string
	DepFile     string
	Verbose     bool
	NoWarn      bool
	Engine      engine.AsmOptions
	// Notices are reported with the assembly diagnostics.
	Notices []diag.Diagnostic
}

// BuildAsm validates in and freezes it into an Asm.
func BuildAsm(in AsmInput) (Asm, error) {
	if strings.TrimSpace(in.Source) == "" {
		return Asm{}, errorf("sourcefile", "no source file specified")
	}
	if in.DepFile != "" && in.Out == "" {
		return Asm{}, errorf("--depfile", "cannot generate a dependency file without an object file path (--out)")
	}

	cfg := Asm{
		Source:      in.Source,
		IncludeDirs: cloneStrings(in.IncludeDirs),
		Out:         in.Out,
		DepFile:     in.DepFile,
		Verbose:     in.Verbose,
		NoWarn:      in.NoWarn,
		Engine: engine.AsmOptions{
			ExportAllLabels: in.ExportAll,
			NopAfterHalt:    !in.NoHaltNop,
			OptimizeLd:      !in.NoLdLdh,
		},
	}
	if in.Pad != "" {
		pad, err := ParseByte("--pad", in.Pad)
		if err != nil {
			return Asm{}, err
		}
		cfg.Engine.Padding = pad
	}
	if in.Debug != "" {
		def, err := parseDefine(in.Debug)
		if err != nil {
			return Asm{}, err
		}
		cfg.Engine.DebugDefine = def
	}
	if in.Binary != "" {
		cfg.Notices = append(cfg.Notices, diag.NewWarning(diag.DrvUnsupported, source.Pos{}, "--binary is not yet supported and is ignored"))
	}
	if in.Gbgfx != "" {
		cfg.Notices = append(cfg.Notices, diag.NewWarning(diag.DrvUnsupported, source.Pos{}, "--gbgfx is not yet supported and is ignored"))
	}
	return cfg, nil
}

// parseDefine splits name[=value]; the value defaults to "1" and may itself
// contain '='.
func parseDefine(s string) (engine.Define, error) {
	name, value, found := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if name == "" {
		return engine.Define{}, errorf("--debug", "missing symbol name in %q", s)
	}
	if !found {
		value = "1"
	}
	return engine.Define{Name: name, Value: value}, nil
}
