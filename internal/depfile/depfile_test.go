package depfile

import (
	"strings"
	"testing"
)

func TestEmitSourceFirst(t *testing.T) {
	entries := []Entry{
		{Path: "inc/hardware.inc", Kind: KindInclude},
		{Path: "main.asm", Kind: KindSource},
		{Path: "gfx/tiles.2bpp", Kind: KindBinary},
	}
	got := Emit(entries, "main.asm", "build/main.o")
	want := strings.Join([]string{
		"build/main.o: main.asm",
		"build/main.o: inc/hardware.inc",
		"build/main.o: gfx/tiles.2bpp",
	}, "\n")
	if got != want {
		t.Fatalf("Emit() =\n%s\nwant\n%s", got, want)
	}
}

func TestEmitEmptyEntries(t *testing.T) {
	got := Emit(nil, "main.asm", "main.o")
	if got != "main.o: main.asm" {
		t.Fatalf("Emit(nil) = %q", got)
	}
}

func TestEmitDropsRepeats(t *testing.T) {
	entries := []Entry{
		{Path: "a.inc", Kind: KindInclude},
		{Path: "a.inc", Kind: KindInclude},
		{Path: "b.inc", Kind: KindInclude},
	}
	got := Emit(entries, "main.asm", "main.o")
	if strings.Count(got, "a.inc") != 1 {
		t.Fatalf("a.inc repeated: %q", got)
	}
	if strings.HasSuffix(got, "\n") {
		t.Fatalf("unexpected trailing newline: %q", got)
	}
}

func TestEmitFirstLineIsSourceForAnyOrder(t *testing.T) {
	orders := [][]Entry{
		{{Path: "x.inc"}, {Path: "y.inc"}},
		{{Path: "y.inc"}, {Path: "src.asm"}, {Path: "x.inc"}},
		{{Path: "src.asm"}},
	}
	for _, entries := range orders {
		first := strings.SplitN(Emit(entries, "src.asm", "out.o"), "\n", 2)[0]
		if first != "out.o: src.asm" {
			t.Errorf("first line = %q for %v", first, entries)
		}
	}
}
