// Package fix is the cartridge header fixer engine behind hgbfix.
package fix

import (
	"context"
	"encoding/binary"

	"hgb/internal/diag"
	"hgb/internal/engine"
	"hgb/internal/source"
)

// Header layout.
const (
	logoStart      = 0x104
	logoEnd        = 0x134
	titleStart     = 0x134
	titleLen       = 16
	gameIDStart    = 0x13F
	gameIDLen      = 4
	cgbFlag        = 0x143
	newLicensee    = 0x144
	newLicenseeLen = 2
	sgbFlag        = 0x146
	cartType       = 0x147
	romSize        = 0x148
	ramSize        = 0x149
	region         = 0x14A
	oldLicensee    = 0x14B
	romVersion     = 0x14C
	headerSum      = 0x14D
	globalSum      = 0x14E
	headerEnd      = 0x150

	minROMSize = 0x8000
	maxROMSize = 0x800000
)

// NintendoLogo is the bitmap the boot ROM compares against 0x104-0x133.
var NintendoLogo = [logoEnd - logoStart]byte{
	0xCE, 0xED, 0x66, 0x66, 0xCC, 0x0D, 0x00, 0x0B, 0x03, 0x73, 0x00, 0x83,
	0x00, 0x0C, 0x00, 0x0D, 0x00, 0x08, 0x11, 0x1F, 0x88, 0x89, 0x00, 0x0E,
	0xDC, 0xCC, 0x6E, 0xE6, 0xDD, 0xDD, 0xD9, 0x99, 0xBB, 0xBB, 0x67, 0x63,
	0x6E, 0x0E, 0xEC, 0xCC, 0xDD, 0xDC, 0x99, 0x9F, 0xBB, 0xB9, 0x33, 0x3E,
}

// Engine implements engine.Fixer.
type Engine struct{}

// New returns a fixer engine.
func New() *Engine { return &Engine{} }

var _ engine.Fixer = (*Engine)(nil)

// Fix returns a patched copy of rom. The input slice is not modified.
// Steps run in a fixed order: padding, header fields, header checksum,
// global checksum, so each checksum covers the bytes written before it.
func (e *Engine) Fix(ctx context.Context, opts engine.FixOptions, rom []byte) (*engine.FixResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bag := diag.NewBag(0)
	f := &fixer{opts: opts, rep: diag.BagReporter{Bag: bag}}

	out := make([]byte, len(rom))
	copy(out, rom)

	if opts.Padding != nil {
		var ok bool
		if out, ok = f.pad(out, *opts.Padding); !ok {
			return &engine.FixResult{Diagnostics: bag.Items()}, nil
		}
	}
	if len(out) < headerEnd {
		diag.Errorf(f.rep, diag.FixTooSmall, source.Pos{}, "ROM is %d bytes, too small to hold a header (need at least %d)", len(out), headerEnd)
		return &engine.FixResult{Diagnostics: bag.Items()}, nil
	}

	f.logo(out)
	f.text(out)
	f.flags(out)
	apply(out[headerSum:headerSum+1], []byte{HeaderChecksum(out)}, opts.HeaderChecksum)
	sum := make([]byte, 2)
	binary.BigEndian.PutUint16(sum, GlobalChecksum(out))
	apply(out[globalSum:globalSum+2], sum, opts.GlobalChecksum)

	return &engine.FixResult{ROM: out, Diagnostics: bag.Items()}, nil
}

type fixer struct {
	opts engine.FixOptions
	rep  diag.Reporter
}

// apply writes want (Fix) or its complement (Trash) into dst.
func apply(dst, want []byte, action engine.Action) {
	switch action {
	case engine.Fix:
		copy(dst, want)
	case engine.Trash:
		for i := range want {
			dst[i] = ^want[i]
		}
	}
}

// pad grows rom to the next valid cartridge size and records it in 0x148.
func (f *fixer) pad(rom []byte, value byte) ([]byte, bool) {
	if len(rom) > maxROMSize {
		diag.Errorf(f.rep, diag.FixTooLarge, source.Pos{}, "ROM is %d bytes, larger than the %d bytes padding can produce", len(rom), maxROMSize)
		return nil, false
	}
	size, code := minROMSize, byte(0)
	for size < len(rom) {
		size <<= 1
		code++
	}
	if size > len(rom) {
		grown := make([]byte, size)
		copy(grown, rom)
		for i := len(rom); i < size; i++ {
			grown[i] = value
		}
		rom = grown
	}
	rom[romSize] = code
	return rom, true
}

func (f *fixer) logo(rom []byte) {
	apply(rom[logoStart:logoEnd], NintendoLogo[:], f.opts.Logo)
}

// text writes the title, then the game ID over the tail of the title,
// then the new licensee code.
func (f *fixer) text(rom []byte) {
	if t := f.opts.Title; t != nil {
		title := f.truncate("title", *t, titleLen)
		copy(rom[titleStart:titleStart+titleLen], title)
		if len(title) == titleLen && f.opts.CGB != engine.CGBUnset {
			diag.Warnf(f.rep, diag.FixOverwrite, source.Pos{}, "the CGB flag overwrites the last character of the title")
		}
	}
	if id := f.opts.GameID; id != nil {
		gameID := f.truncate("game ID", *id, gameIDLen)
		if f.opts.Title != nil && len(*f.opts.Title) > gameIDStart-titleStart {
			diag.Infof(f.rep, diag.FixOverwrite, source.Pos{}, "the game ID overwrites the end of the title")
		}
		copy(rom[gameIDStart:gameIDStart+gameIDLen], gameID)
	}
	if lic := f.opts.NewLicensee; lic != nil {
		copy(rom[newLicensee:newLicensee+newLicenseeLen], f.truncate("new licensee", *lic, newLicenseeLen))
	}
}

func (f *fixer) truncate(field, value string, limit int) []byte {
	if len(value) > limit {
		diag.Warnf(f.rep, diag.FixTruncated, source.Pos{}, "%s %q truncated to %d characters", field, value, limit)
		return []byte(value[:limit])
	}
	return []byte(value)
}

func (f *fixer) flags(rom []byte) {
	switch f.opts.CGB {
	case engine.CGBOnly:
		rom[cgbFlag] = 0xC0
	case engine.CGBCompatible:
		rom[cgbFlag] = 0x80
	}
	if f.opts.SGB {
		rom[sgbFlag] = 0x03
	}
	if v := f.opts.MBC; v != nil {
		rom[cartType] = *v
	}
	if v := f.opts.RAMSize; v != nil {
		rom[ramSize] = *v
	}
	if f.opts.NonJapanese {
		rom[region] = 0x01
	}
	if v := f.opts.OldLicensee; v != nil {
		rom[oldLicensee] = *v
	}
	if v := f.opts.Version; v != nil {
		rom[romVersion] = *v
	}
	if f.opts.SGB && rom[oldLicensee] != 0x33 {
		diag.Warnf(f.rep, diag.FixLicensee, source.Pos{}, "SGB features require the old licensee code to be 0x33 (is 0x%02X)", rom[oldLicensee])
	}
}

// HeaderChecksum computes the value the boot ROM expects at 0x14D.
func HeaderChecksum(rom []byte) byte {
	var x byte
	for _, b := range rom[titleStart:headerSum] {
		x = x - b - 1
	}
	return x
}

// GlobalChecksum sums every byte of the image except 0x14E-0x14F.
func GlobalChecksum(rom []byte) uint16 {
	var sum uint16
	for i, b := range rom {
		if i == globalSum || i == globalSum+1 {
			continue
		}
		sum += uint16(b)
	}
	return sum
}
