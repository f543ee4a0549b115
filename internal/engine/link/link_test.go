package link

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"hgb/internal/diag"
	"hgb/internal/engine"
	"hgb/internal/engine/object"
)

func rom0(name string, org int32, data ...byte) object.Section {
	return object.Section{Name: name, Type: object.ROM0, Org: org, Bank: object.Unplaced, Size: uint32(len(data)), Data: data}
}

func romx(name string, org, bank int32, data ...byte) object.Section {
	return object.Section{Name: name, Type: object.ROMX, Org: org, Bank: bank, Size: uint32(len(data)), Data: data}
}

func ram(name string, typ object.SectionType, bank int32, size uint32) object.Section {
	return object.Section{Name: name, Type: typ, Org: object.Unplaced, Bank: bank, Size: size}
}

func link(t *testing.T, opts engine.LinkOptions, objs ...*object.File) *engine.LinkResult {
	t.Helper()
	res, err := New().Link(context.Background(), opts, objs)
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	return res
}

func codes(items []diag.Diagnostic) []diag.Code {
	out := make([]diag.Code, 0, len(items))
	for _, d := range items {
		out = append(out, d.Code)
	}
	return out
}

func wantOnly(t *testing.T, res *engine.LinkResult, code diag.Code) {
	t.Helper()
	if len(res.Diagnostics) == 0 {
		t.Fatalf("no diagnostics, want %s", code.ID())
	}
	for _, d := range res.Diagnostics {
		if d.Code != code {
			t.Fatalf("diagnostics = %v, want only %s", res.Diagnostics, code.ID())
		}
	}
}

func requireClean(t *testing.T, res *engine.LinkResult) {
	t.Helper()
	if len(res.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", res.Diagnostics)
	}
}

func TestFixedBeforeFloating(t *testing.T) {
	obj := &object.File{Path: "a.o", Sections: []object.Section{
		rom0("Float", object.Unplaced, 1, 2),
		rom0("Fixed", 0x0000, 9, 9, 9),
	}}
	res := link(t, engine.LinkOptions{Padding: 0xFF}, obj)
	requireClean(t, res)
	if len(res.ROM) != 0x8000 {
		t.Fatalf("rom size = $%X, want $8000", len(res.ROM))
	}
	if !bytes.Equal(res.ROM[:6], []byte{9, 9, 9, 1, 2, 0xFF}) {
		t.Fatalf("rom[:6] = % X", res.ROM[:6])
	}
	if res.ROM[0x7FFF] != 0xFF {
		t.Fatalf("padding not applied")
	}
}

func TestRomxBanksGrowImage(t *testing.T) {
	obj := &object.File{Path: "a.o", Sections: []object.Section{
		romx("Bank3", 0x4000, 3, 0xAA),
		romx("Any", object.Unplaced, object.Unplaced, 0xBB),
	}}
	res := link(t, engine.LinkOptions{}, obj)
	requireClean(t, res)
	if len(res.ROM) != 4*0x4000 {
		t.Fatalf("rom size = $%X, want $10000", len(res.ROM))
	}
	if res.ROM[3*0x4000] != 0xAA || res.ROM[0x4000] != 0xBB {
		t.Fatalf("bank data misplaced")
	}
}

func TestPatchesResolveAcrossObjects(t *testing.T) {
	main := &object.File{Path: "main.o",
		Sections: []object.Section{{
			Name: "Code", Type: object.ROM0, Org: 0x150, Bank: object.Unplaced, Size: 5,
			Data: []byte{0xCD, 0, 0, 0x3E, 0},
			Patches: []object.Patch{
				{Offset: 1, Kind: object.PatchWord, Symbol: "Func", Path: "main.asm", Line: 3},
				{Offset: 4, Kind: object.PatchByte, Symbol: "LIVES"},
			},
		}},
	}
	lib := &object.File{Path: "lib.o",
		Sections: []object.Section{rom0("Lib", 0x200, 0xC9)},
		Symbols: []object.Symbol{
			{Name: "Func", Section: 0, Value: 0, Exported: true},
			{Name: "LIVES", Section: object.Unplaced, Value: 3, Exported: true},
		},
	}
	res := link(t, engine.LinkOptions{}, main, lib)
	requireClean(t, res)
	if got := res.ROM[0x150:0x155]; !bytes.Equal(got, []byte{0xCD, 0x00, 0x02, 0x3E, 0x03}) {
		t.Fatalf("patched code = % X", got)
	}
}

func TestUnexportedSymbolIsNotVisible(t *testing.T) {
	main := &object.File{Path: "main.o", Sections: []object.Section{{
		Name: "Code", Type: object.ROM0, Org: object.Unplaced, Bank: object.Unplaced, Size: 2,
		Data: []byte{0, 0}, Patches: []object.Patch{{Offset: 0, Kind: object.PatchWord, Symbol: "Hidden", Path: "main.asm", Line: 7}},
	}}}
	lib := &object.File{Path: "lib.o", Sections: []object.Section{rom0("Lib", object.Unplaced, 0)},
		Symbols: []object.Symbol{{Name: "Hidden", Section: 0}}}
	res := link(t, engine.LinkOptions{}, main, lib)
	wantOnly(t, res, diag.LinkUnknownSymbol)
	if got := res.Diagnostics[0].Pos.String(); got != "main.asm:7" {
		t.Fatalf("pos = %q", got)
	}
}

func TestPatchRange(t *testing.T) {
	obj := &object.File{Path: "a.o",
		Sections: []object.Section{
			{Name: "Code", Type: object.ROM0, Org: 0x100, Bank: object.Unplaced, Size: 2, Data: []byte{0xE0, 0},
				Patches: []object.Patch{{Offset: 1, Kind: object.PatchHigh, Symbol: "wVar"}}},
			ram("Vars", object.WRAM0, object.Unplaced, 1),
			ram("HVars", object.HRAM, object.Unplaced, 1),
		},
		Symbols: []object.Symbol{{Name: "wVar", Section: 1}, {Name: "hVar", Section: 2}},
	}
	res := link(t, engine.LinkOptions{}, obj)
	wantOnly(t, res, diag.LinkPatchRange)

	obj.Sections[0].Patches[0].Symbol = "hVar"
	res = link(t, engine.LinkOptions{}, obj)
	requireClean(t, res)
	if res.ROM[0x101] != 0x80 {
		t.Fatalf("ldh operand = $%02X, want $80", res.ROM[0x101])
	}
}

func TestBankRestrictions(t *testing.T) {
	cases := []struct {
		name string
		opts engine.LinkOptions
		sec  object.Section
		want diag.Code
	}{
		{"tiny rom", engine.LinkOptions{DisableRomBanks: true}, romx("X", object.Unplaced, object.Unplaced, 1), diag.LinkBankRestricted},
		{"dmg wram", engine.LinkOptions{DisableWramBanks: true}, ram("W", object.WRAMX, object.Unplaced, 1), diag.LinkBankRestricted},
		{"vram bank 1", engine.LinkOptions{DisableVramBanks: true}, ram("V", object.VRAM, 1, 1), diag.LinkBankRestricted},
		{"wramx bank 9", engine.LinkOptions{}, ram("W", object.WRAMX, 9, 1), diag.LinkBankRestricted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := link(t, tc.opts, &object.File{Path: "a.o", Sections: []object.Section{tc.sec}})
			wantOnly(t, res, tc.want)
		})
	}
}

func TestRestrictionsWidenUnbankedRegions(t *testing.T) {
	big := make([]byte, 0x5000)
	obj := &object.File{Path: "a.o", Sections: []object.Section{
		rom0("Big", object.Unplaced, big...),
		ram("Wram", object.WRAM0, object.Unplaced, 0x1800),
	}}
	res := link(t, engine.LinkOptions{DisableRomBanks: true, DisableWramBanks: true}, obj)
	requireClean(t, res)
	if len(res.ROM) != 0x8000 {
		t.Fatalf("rom size = $%X", len(res.ROM))
	}

	res = link(t, engine.LinkOptions{}, obj)
	if len(res.Diagnostics) != 2 {
		t.Fatalf("diagnostics = %v, want two size errors", res.Diagnostics)
	}
}

func TestOverlappingFixedSections(t *testing.T) {
	obj := &object.File{Path: "a.o", Sections: []object.Section{
		rom0("A", 0x100, 1, 2, 3, 4),
		rom0("B", 0x102, 5),
	}}
	res := link(t, engine.LinkOptions{}, obj)
	wantOnly(t, res, diag.LinkOverlap)
	if !strings.Contains(res.Diagnostics[0].Message, `"A"`) {
		t.Fatalf("message = %q", res.Diagnostics[0].Message)
	}
}

func TestOutOfRegion(t *testing.T) {
	obj := &object.File{Path: "a.o", Sections: []object.Section{rom0("A", 0x3FFF, 1, 2)}}
	wantOnly(t, link(t, engine.LinkOptions{}, obj), diag.LinkOutOfRange)
}

func TestLinkerScriptTakesPrecedence(t *testing.T) {
	obj := &object.File{Path: "a.o", Sections: []object.Section{
		rom0("Header", 0x0000, 1),
		romx("Data", object.Unplaced, object.Unplaced, 7, 8),
		romx("More", 0x4000, 1, 9),
	}}
	script := `; layout
ROM0
	ORG $0150
	"Header"
ROMX 2
	ORG $4010
	"Data"
	"More" ; right after Data
`
	res := link(t, engine.LinkOptions{LinkerScript: script, LinkerScriptPath: "layout.link", GenerateSym: true}, obj)
	requireClean(t, res)
	if res.ROM[0x150] != 1 {
		t.Fatalf("Header not moved to $0150")
	}
	base := 2*0x4000 + 0x10
	if !bytes.Equal(res.ROM[base:base+3], []byte{7, 8, 9}) {
		t.Fatalf("bank 2 = % X", res.ROM[base:base+3])
	}
}

func TestLinkerScriptErrors(t *testing.T) {
	obj := &object.File{Path: "a.o", Sections: []object.Section{rom0("A", object.Unplaced, 1)}}
	script := "\"A\"\nROM0\n\"Nope\"\nFROB 1\nROMX 600\n"
	res := link(t, engine.LinkOptions{LinkerScript: script, LinkerScriptPath: "x.link"}, obj)
	got := codes(res.Diagnostics)
	want := []diag.Code{diag.LinkScriptSyntax, diag.LinkScriptUnknown, diag.LinkScriptSyntax, diag.LinkBankRestricted}
	if len(got) != len(want) {
		t.Fatalf("codes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("codes = %v, want %v", got, want)
		}
	}
	if p := res.Diagnostics[1].Pos.String(); p != "x.link:3" {
		t.Fatalf("pos = %q", p)
	}
}

func TestOverlay(t *testing.T) {
	overlay := bytes.Repeat([]byte{0x5A}, 0x8000)
	fixed := &object.File{Path: "a.o", Sections: []object.Section{rom0("A", 0x100, 1)}}
	res := link(t, engine.LinkOptions{Overlay: overlay, Padding: 0xFF}, fixed)
	requireClean(t, res)
	if res.ROM[0x100] != 1 || res.ROM[0x0FF] != 0x5A || res.ROM[0x7FFF] != 0x5A {
		t.Fatalf("overlay not preserved")
	}

	floating := &object.File{Path: "b.o", Sections: []object.Section{rom0("B", object.Unplaced, 1)}}
	wantOnly(t, link(t, engine.LinkOptions{Overlay: overlay}, floating), diag.LinkOverlayFloating)
	wantOnly(t, link(t, engine.LinkOptions{Overlay: overlay[:0x5000]}, fixed), diag.LinkOverlaySize)
}

func TestDuplicateExports(t *testing.T) {
	a := &object.File{Path: "a.o", Sections: []object.Section{rom0("A", object.Unplaced, 0)},
		Symbols: []object.Symbol{{Name: "Main", Section: 0, Exported: true}}}
	b := &object.File{Path: "b.o", Sections: []object.Section{rom0("B", object.Unplaced, 0)},
		Symbols: []object.Symbol{{Name: "Main", Section: 0, Exported: true}}}
	wantOnly(t, link(t, engine.LinkOptions{}, a, b), diag.LinkDuplicateSymbol)
}

func TestSymbolAndMapFiles(t *testing.T) {
	obj := &object.File{Path: "a.o",
		Sections: []object.Section{
			rom0("Main", 0x150, 0, 0, 0),
			romx("Far", 0x4000, 2, 0),
		},
		Symbols: []object.Symbol{
			{Name: "Start", Section: 0, Value: 0, Exported: true},
			{Name: "Start.loop", Section: 0, Value: 2},
			{Name: "FarFunc", Section: 1, Value: 0},
			{Name: "CONST", Section: object.Unplaced, Value: 5},
		},
	}
	res := link(t, engine.LinkOptions{GenerateSym: true, GenerateMap: true}, obj)
	requireClean(t, res)

	wantSym := "; File generated by hgblink\n00:0150 Start\n00:0152 Start.loop\n02:4000 FarFunc\n"
	if res.SymbolFile != wantSym {
		t.Fatalf("sym file:\n%s\nwant:\n%s", res.SymbolFile, wantSym)
	}
	for _, want := range []string{
		"ROM0 bank #0:\n\tSECTION: $0150-$0152 ($0003 bytes) [\"Main\"]\n\t         $0150 = Start\n\t         $0152 = Start.loop\n\tEMPTY: $3FFD bytes\n",
		"ROMX bank #2:\n",
		"SUMMARY:\n\tROM0: 3 bytes used / 16381 free\n",
	} {
		if !strings.Contains(res.MapFile, want) {
			t.Fatalf("map file missing %q:\n%s", want, res.MapFile)
		}
	}
}

func TestOutputsOnlyWhenRequested(t *testing.T) {
	res := link(t, engine.LinkOptions{}, &object.File{Path: "a.o"})
	if res.MapFile != "" || res.SymbolFile != "" {
		t.Fatalf("unrequested outputs rendered")
	}
}

func TestCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().Link(ctx, engine.LinkOptions{}, nil); err == nil {
		t.Fatalf("expected cancellation error")
	}
}
