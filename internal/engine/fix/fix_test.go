package fix

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"hgb/internal/diag"
	"hgb/internal/engine"
)

func garbageROM(size int) []byte {
	rom := make([]byte, size)
	for i := range rom {
		rom[i] = byte(i*7 + 3)
	}
	return rom
}

func fix(t *testing.T, opts engine.FixOptions, rom []byte) *engine.FixResult {
	t.Helper()
	res, err := New().Fix(context.Background(), opts, rom)
	if err != nil {
		t.Fatalf("Fix: %v", err)
	}
	return res
}

func ptr[T any](v T) *T { return &v }

func TestFixAllSetsComputedValuesOnly(t *testing.T) {
	in := garbageROM(0x8000)
	res := fix(t, engine.FixOptions{Logo: engine.Fix, HeaderChecksum: engine.Fix, GlobalChecksum: engine.Fix}, in)
	if len(res.Diagnostics) != 0 {
		t.Fatalf("diagnostics = %v", res.Diagnostics)
	}
	out := res.ROM

	if !bytes.Equal(out[logoStart:logoEnd], NintendoLogo[:]) {
		t.Fatalf("logo not fixed")
	}
	var x byte
	for i := 0x134; i <= 0x14C; i++ {
		x = x - out[i] - 1
	}
	if out[0x14D] != x {
		t.Fatalf("header checksum = $%02X, want $%02X", out[0x14D], x)
	}
	var sum uint16
	for i, b := range out {
		if i != 0x14E && i != 0x14F {
			sum += uint16(b)
		}
	}
	if got := binary.BigEndian.Uint16(out[0x14E:0x150]); got != sum {
		t.Fatalf("global checksum = $%04X, want $%04X", got, sum)
	}

	for i := range in {
		inLogo := i >= logoStart && i < logoEnd
		if inLogo || i == 0x14D || i == 0x14E || i == 0x14F {
			continue
		}
		if out[i] != in[i] {
			t.Fatalf("byte $%04X changed from $%02X to $%02X", i, in[i], out[i])
		}
	}
}

func TestInputIsNotModified(t *testing.T) {
	in := garbageROM(0x8000)
	orig := append([]byte(nil), in...)
	fix(t, engine.FixOptions{Logo: engine.Fix, Title: ptr("HELLO")}, in)
	if !bytes.Equal(in, orig) {
		t.Fatalf("input slice was modified")
	}
}

func TestTrashWritesComplement(t *testing.T) {
	in := garbageROM(0x8000)
	res := fix(t, engine.FixOptions{Logo: engine.Trash, HeaderChecksum: engine.Trash, GlobalChecksum: engine.Trash}, in)
	out := res.ROM
	for i, b := range NintendoLogo {
		if out[logoStart+i] != ^b {
			t.Fatalf("logo byte %d = $%02X, want $%02X", i, out[logoStart+i], ^b)
		}
	}
	if out[headerSum] != ^HeaderChecksum(out) {
		t.Fatalf("header checksum not trashed")
	}
	if got := binary.BigEndian.Uint16(out[globalSum:]); got != ^GlobalChecksum(out) {
		t.Fatalf("global checksum not trashed")
	}
}

func TestHeaderFields(t *testing.T) {
	res := fix(t, engine.FixOptions{
		CGB:         engine.CGBOnly,
		SGB:         true,
		NonJapanese: true,
		NewLicensee: ptr("HB"),
		OldLicensee: ptr(byte(0x33)),
		MBC:         ptr(byte(0x1B)),
		RAMSize:     ptr(byte(0x03)),
		Version:     ptr(byte(0x02)),
	}, make([]byte, 0x8000))
	if len(res.Diagnostics) != 0 {
		t.Fatalf("diagnostics = %v", res.Diagnostics)
	}
	want := map[int]byte{
		0x143: 0xC0, 0x144: 'H', 0x145: 'B', 0x146: 0x03, 0x147: 0x1B,
		0x149: 0x03, 0x14A: 0x01, 0x14B: 0x33, 0x14C: 0x02,
	}
	for off, v := range want {
		if res.ROM[off] != v {
			t.Fatalf("byte $%03X = $%02X, want $%02X", off, res.ROM[off], v)
		}
	}
	if res.ROM[0x14D] != 0 || res.ROM[0x14E] != 0 {
		t.Fatalf("checksums written without being requested")
	}
}

func TestCGBCompatible(t *testing.T) {
	res := fix(t, engine.FixOptions{CGB: engine.CGBCompatible}, make([]byte, 0x8000))
	if res.ROM[0x143] != 0x80 {
		t.Fatalf("CGB flag = $%02X, want $80", res.ROM[0x143])
	}
}

func TestGameIDOverwritesTitle(t *testing.T) {
	res := fix(t, engine.FixOptions{Title: ptr("ABCDEFGHIJKLMNOPQ"), GameID: ptr("WXYZ!")}, make([]byte, 0x8000))
	got := string(res.ROM[0x134:0x144])
	if got != "ABCDEFGHIJKWXYZP" {
		t.Fatalf("title area = %q", got)
	}
	truncated, overwrite := 0, 0
	for _, d := range res.Diagnostics {
		switch d.Code {
		case diag.FixTruncated:
			truncated++
		case diag.FixOverwrite:
			overwrite++
		}
	}
	if truncated != 2 || overwrite != 1 {
		t.Fatalf("diagnostics = %v", res.Diagnostics)
	}
}

func TestShortTitleLeavesRestAlone(t *testing.T) {
	in := garbageROM(0x8000)
	res := fix(t, engine.FixOptions{Title: ptr("AB")}, in)
	if string(res.ROM[0x134:0x136]) != "AB" || res.ROM[0x136] != in[0x136] {
		t.Fatalf("title write touched more than its characters")
	}
}

func TestPadding(t *testing.T) {
	cases := []struct {
		in       int
		wantSize int
		wantCode byte
	}{
		{0x150, 0x8000, 0},
		{0x8000, 0x8000, 0},
		{0x8001, 0x10000, 1},
		{0x30000, 0x40000, 3},
	}
	for _, tc := range cases {
		res := fix(t, engine.FixOptions{Padding: ptr(byte(0xFF))}, make([]byte, tc.in))
		if len(res.ROM) != tc.wantSize || res.ROM[0x148] != tc.wantCode {
			t.Fatalf("pad %#x: size %#x code %d, want %#x code %d", tc.in, len(res.ROM), res.ROM[0x148], tc.wantSize, tc.wantCode)
		}
		if tc.wantSize > tc.in && res.ROM[len(res.ROM)-1] != 0xFF {
			t.Fatalf("pad %#x: fill byte not used", tc.in)
		}
	}
}

func TestPaddingSmallImageGetsHeader(t *testing.T) {
	res := fix(t, engine.FixOptions{Padding: ptr(byte(0)), Logo: engine.Fix}, make([]byte, 16))
	if len(res.ROM) != 0x8000 || !bytes.Equal(res.ROM[logoStart:logoEnd], NintendoLogo[:]) {
		t.Fatalf("padded image not fixed")
	}
}

func TestErrors(t *testing.T) {
	res := fix(t, engine.FixOptions{Logo: engine.Fix}, make([]byte, 0x100))
	if res.ROM != nil || len(res.Diagnostics) != 1 || res.Diagnostics[0].Code != diag.FixTooSmall {
		t.Fatalf("too small: %+v", res)
	}
	res = fix(t, engine.FixOptions{Padding: ptr(byte(0))}, make([]byte, maxROMSize+1))
	if res.ROM != nil || len(res.Diagnostics) != 1 || res.Diagnostics[0].Code != diag.FixTooLarge {
		t.Fatalf("too large: %v", res.Diagnostics)
	}
}

func TestSGBWantsLicensee33(t *testing.T) {
	res := fix(t, engine.FixOptions{SGB: true}, make([]byte, 0x8000))
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].Code != diag.FixLicensee || res.Diagnostics[0].Severity != diag.SevWarning {
		t.Fatalf("diagnostics = %v", res.Diagnostics)
	}
}
