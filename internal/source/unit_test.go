package source

import (
	"testing"
)

func TestDecodeTextStripsBOMAndCRLF(t *testing.T) {
	raw := []byte("\xEF\xBB\xBFnop\r\nhalt\r\n")
	got, flags, err := DecodeText(raw)
	if err != nil {
		t.Fatalf("DecodeText: %v", err)
	}
	if string(got) != "nop\nhalt\n" {
		t.Fatalf("DecodeText = %q, want %q", got, "nop\nhalt\n")
	}
	if flags&UnitHadBOM == 0 {
		t.Errorf("expected UnitHadBOM flag")
	}
	if flags&UnitNormalizedCRLF == 0 {
		t.Errorf("expected UnitNormalizedCRLF flag")
	}
}

func TestDecodeTextUTF16(t *testing.T) {
	// "ld" in UTF-16LE with BOM
	raw := []byte{0xFF, 0xFE, 'l', 0, 'd', 0}
	got, flags, err := DecodeText(raw)
	if err != nil {
		t.Fatalf("DecodeText: %v", err)
	}
	if string(got) != "ld" {
		t.Fatalf("DecodeText = %q, want %q", got, "ld")
	}
	if flags&UnitHadBOM == 0 {
		t.Errorf("expected UnitHadBOM flag")
	}
}

func TestDecodeTextPlainIsUntouched(t *testing.T) {
	got, flags, err := DecodeText([]byte("db 1\n"))
	if err != nil {
		t.Fatalf("DecodeText: %v", err)
	}
	if string(got) != "db 1\n" || flags != 0 {
		t.Fatalf("DecodeText = %q/%d, want unchanged", got, flags)
	}
}

func TestUnitPositions(t *testing.T) {
	u := NewUnit("src/main.asm", "/p/src/main.asm", []byte("nop\n  halt\nret"), 0)

	tests := []struct {
		off  uint32
		line uint32
		col  uint32
	}{
		{0, 1, 1},
		{3, 1, 4},
		{4, 2, 1},
		{6, 2, 3},
		{11, 3, 1},
	}
	for _, tt := range tests {
		pos := u.PosAt(tt.off)
		if pos.Line != tt.line || pos.Col != tt.col {
			t.Errorf("PosAt(%d) = %d:%d, want %d:%d", tt.off, pos.Line, pos.Col, tt.line, tt.col)
		}
		if pos.Path != "src/main.asm" {
			t.Errorf("PosAt(%d).Path = %q", tt.off, pos.Path)
		}
	}

	if got := u.GetLine(2); got != "  halt" {
		t.Errorf("GetLine(2) = %q, want %q", got, "  halt")
	}
	if got := u.GetLine(3); got != "ret" {
		t.Errorf("GetLine(3) = %q, want %q", got, "ret")
	}
	if got := u.GetLine(4); got != "" {
		t.Errorf("GetLine(4) = %q, want empty", got)
	}
	if got := u.LineCount(); got != 3 {
		t.Errorf("LineCount() = %d, want 3", got)
	}
	for line, want := range map[uint32]uint32{1: 0, 2: 4, 3: 11, 9: 14} {
		if got := u.LineOffset(line); got != want {
			t.Errorf("LineOffset(%d) = %d, want %d", line, got, want)
		}
	}
}

func TestUnitDir(t *testing.T) {
	u := NewUnit("inc/hw.inc", "/p/inc/hw.inc", nil, 0)
	if got := u.Dir(); got != "/p/inc" {
		t.Fatalf("Dir() = %q, want /p/inc", got)
	}
	v := NewUnit("inc/x.asm", "", nil, 0)
	if got := v.Dir(); got != "inc" {
		t.Fatalf("Dir() without Abs = %q, want inc", got)
	}
}

func TestPosString(t *testing.T) {
	cases := []struct {
		pos  Pos
		want string
	}{
		{Pos{}, ""},
		{Pos{Path: "a.asm"}, "a.asm"},
		{Pos{Path: "a.asm", Line: 3}, "a.asm:3"},
		{Pos{Path: "a.asm", Line: 3, Col: 5}, "a.asm:3:5"},
	}
	for _, tc := range cases {
		if got := tc.pos.String(); got != tc.want {
			t.Errorf("Pos%+v.String() = %q, want %q", tc.pos, got, tc.want)
		}
	}
}
