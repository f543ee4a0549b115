package config

import (
	"errors"
	"testing"

	"hgb/internal/diag"
	"hgb/internal/engine"
)

func TestBuildAsmDefaults(t *testing.T) {
	cfg, err := BuildAsm(AsmInput{Source: "main.asm", IncludeDirs: []string{"inc", "lib"}})
	if err != nil {
		t.Fatalf("BuildAsm: %v", err)
	}
	if !cfg.Engine.NopAfterHalt || !cfg.Engine.OptimizeLd || cfg.Engine.ExportAllLabels {
		t.Fatalf("engine defaults = %+v", cfg.Engine)
	}
	if cfg.Engine.Padding != 0 || cfg.Engine.DebugDefine.Name != "" {
		t.Fatalf("unexpected padding or define: %+v", cfg.Engine)
	}
	if len(cfg.IncludeDirs) != 2 || cfg.IncludeDirs[0] != "inc" || cfg.IncludeDirs[1] != "lib" {
		t.Fatalf("include dirs = %v", cfg.IncludeDirs)
	}
}

func TestBuildAsmClonesIncludeDirs(t *testing.T) {
	dirs := []string{"inc"}
	cfg, err := BuildAsm(AsmInput{Source: "main.asm", IncludeDirs: dirs})
	if err != nil {
		t.Fatalf("BuildAsm: %v", err)
	}
	dirs[0] = "changed"
	if cfg.IncludeDirs[0] != "inc" {
		t.Fatalf("config shares the caller's slice")
	}
}

func TestBuildAsmToggles(t *testing.T) {
	cfg, err := BuildAsm(AsmInput{Source: "a.asm", ExportAll: true, NoHaltNop: true, NoLdLdh: true, Pad: "$FF"})
	if err != nil {
		t.Fatalf("BuildAsm: %v", err)
	}
	want := engine.AsmOptions{Padding: 0xFF, ExportAllLabels: true}
	if cfg.Engine != want {
		t.Fatalf("engine = %+v, want %+v", cfg.Engine, want)
	}
}

func TestBuildAsmDebugDefine(t *testing.T) {
	tests := []struct {
		in   string
		want engine.Define
	}{
		{"DEBUG", engine.Define{Name: "DEBUG", Value: "1"}},
		{"LEVEL=3", engine.Define{Name: "LEVEL", Value: "3"}},
		{"EXPR=a=b", engine.Define{Name: "EXPR", Value: "a=b"}},
		{"EMPTY=", engine.Define{Name: "EMPTY", Value: ""}},
	}
	for _, tt := range tests {
		cfg, err := BuildAsm(AsmInput{Source: "a.asm", Debug: tt.in})
		if err != nil {
			t.Fatalf("BuildAsm(%q): %v", tt.in, err)
		}
		if cfg.Engine.DebugDefine != tt.want {
			t.Fatalf("define(%q) = %+v, want %+v", tt.in, cfg.Engine.DebugDefine, tt.want)
		}
	}
}

func TestBuildAsmErrors(t *testing.T) {
	tests := []struct {
		name  string
		in    AsmInput
		field string
	}{
		{"no source", AsmInput{}, "sourcefile"},
		{"depfile without out", AsmInput{Source: "a.asm", DepFile: "a.d"}, "--depfile"},
		{"bad pad", AsmInput{Source: "a.asm", Pad: "256"}, "--pad"},
		{"bad pad syntax", AsmInput{Source: "a.asm", Pad: "zz"}, "--pad"},
		{"empty define", AsmInput{Source: "a.asm", Debug: "=1"}, "--debug"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildAsm(tt.in)
			var cfgErr *Error
			if !errors.As(err, &cfgErr) {
				t.Fatalf("error = %v, want *Error", err)
			}
			if cfgErr.Field != tt.field {
				t.Fatalf("field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}
}

func TestBuildAsmUnsupportedNotices(t *testing.T) {
	cfg, err := BuildAsm(AsmInput{Source: "a.asm", Binary: "01", Gbgfx: "0123"})
	if err != nil {
		t.Fatalf("BuildAsm: %v", err)
	}
	if len(cfg.Notices) != 2 {
		t.Fatalf("notices = %v", cfg.Notices)
	}
	for _, n := range cfg.Notices {
		if n.Severity != diag.SevWarning || n.Code != diag.DrvUnsupported {
			t.Fatalf("notice = %+v", n)
		}
	}
}

func TestBuildLink(t *testing.T) {
	cfg, err := BuildLink(LinkInput{Objects: []string{"a.o", "b.o"}, DMG: true, Map: "game.map", Pad: "0xff", LinkerScript: "game.link"})
	if err != nil {
		t.Fatalf("BuildLink: %v", err)
	}
	e := cfg.Engine
	if !e.DisableWramBanks || !e.DisableVramBanks || e.DisableRomBanks {
		t.Fatalf("dmg restrictions = %+v", e)
	}
	if !e.GenerateMap || e.GenerateSym || e.Padding != 0xFF || e.LinkerScriptPath != "game.link" {
		t.Fatalf("engine = %+v", e)
	}

	cfg, err = BuildLink(LinkInput{Objects: []string{"a.o"}, NoWramBank: true, NoRomBank: true})
	if err != nil {
		t.Fatalf("BuildLink: %v", err)
	}
	if !cfg.Engine.DisableWramBanks || cfg.Engine.DisableVramBanks || !cfg.Engine.DisableRomBanks {
		t.Fatalf("restrictions = %+v", cfg.Engine)
	}

	if _, err := BuildLink(LinkInput{}); err == nil {
		t.Fatalf("expected error without object files")
	}
}

func TestParseFixSpec(t *testing.T) {
	tests := []struct {
		spec                 string
		logo, header, global engine.Action
	}{
		{"", engine.Keep, engine.Keep, engine.Keep},
		{"lhg", engine.Fix, engine.Fix, engine.Fix},
		{"LHG", engine.Trash, engine.Trash, engine.Trash},
		{"lH", engine.Fix, engine.Trash, engine.Keep},
		{"Ll", engine.Fix, engine.Keep, engine.Keep},
		{"lL", engine.Fix, engine.Keep, engine.Keep},
	}
	for _, tt := range tests {
		l, h, g, err := ParseFixSpec(tt.spec)
		if err != nil {
			t.Fatalf("ParseFixSpec(%q): %v", tt.spec, err)
		}
		if l != tt.logo || h != tt.header || g != tt.global {
			t.Fatalf("ParseFixSpec(%q) = %v %v %v, want %v %v %v", tt.spec, l, h, g, tt.logo, tt.header, tt.global)
		}
	}
	if _, _, _, err := ParseFixSpec("lx"); err == nil {
		t.Fatalf("expected error for invalid character")
	}
}

func TestBuildFix(t *testing.T) {
	title := "GAME"
	cfg, err := BuildFix(FixInput{
		ROM:           "game.gb",
		CGBOnly:       true,
		CGBCompatible: true,
		FixAll:        true,
		Fix:           "L",
		MBC:           "$1B",
		RAM:           "%11",
		OldLicensee:   "0x33",
		ROMVersion:    "2",
		Title:         &title,
	})
	if err != nil {
		t.Fatalf("BuildFix: %v", err)
	}
	e := cfg.Engine
	if e.CGB != engine.CGBOnly {
		t.Fatalf("CGB = %v, want CGBOnly", e.CGB)
	}
	if e.Logo != engine.Fix || e.HeaderChecksum != engine.Fix || e.GlobalChecksum != engine.Fix {
		t.Fatalf("fix-all did not win: %+v", e)
	}
	if *e.MBC != 0x1B || *e.RAMSize != 3 || *e.OldLicensee != 0x33 || *e.Version != 2 || e.Padding != nil {
		t.Fatalf("numeric fields = %+v", e)
	}
	title = "OTHER"
	if *e.Title != "GAME" {
		t.Fatalf("title shares the caller's string pointer")
	}
}

func TestBuildFixErrors(t *testing.T) {
	if _, err := BuildFix(FixInput{}); err == nil {
		t.Fatalf("expected error without ROM")
	}
	_, err := BuildFix(FixInput{ROM: "a.gb", MBC: "300"})
	var cfgErr *Error
	if !errors.As(err, &cfgErr) || cfgErr.Field != "--mbc" {
		t.Fatalf("error = %v, want --mbc config error", err)
	}
}
