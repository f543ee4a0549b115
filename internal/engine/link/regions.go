package link

import (
	"hgb/internal/engine"
	"hgb/internal/engine/object"
)

const romBankSize = 0x4000

// region is the address window and bank range of one section type.
// A region whose lastBank is below firstBank is unavailable.
type region struct {
	typ       object.SectionType
	start     uint32
	size      uint32
	firstBank int32
	lastBank  int32
}

func (r region) end() uint32 { return r.start + r.size }

func (r region) available() bool { return r.lastBank >= r.firstBank }

func (r region) hasBank(b int32) bool { return b >= r.firstBank && b <= r.lastBank }

// regionTable builds the memory map for the selected restrictions.
func regionTable(opts engine.LinkOptions) map[object.SectionType]region {
	t := map[object.SectionType]region{
		object.ROM0:  {typ: object.ROM0, start: 0x0000, size: 0x4000, firstBank: 0, lastBank: 0},
		object.ROMX:  {typ: object.ROMX, start: 0x4000, size: 0x4000, firstBank: 1, lastBank: 511},
		object.VRAM:  {typ: object.VRAM, start: 0x8000, size: 0x2000, firstBank: 0, lastBank: 1},
		object.SRAM:  {typ: object.SRAM, start: 0xA000, size: 0x2000, firstBank: 0, lastBank: 15},
		object.WRAM0: {typ: object.WRAM0, start: 0xC000, size: 0x1000, firstBank: 0, lastBank: 0},
		object.WRAMX: {typ: object.WRAMX, start: 0xD000, size: 0x1000, firstBank: 1, lastBank: 7},
		object.OAM:   {typ: object.OAM, start: 0xFE00, size: 0x00A0, firstBank: 0, lastBank: 0},
		object.HRAM:  {typ: object.HRAM, start: 0xFF80, size: 0x007F, firstBank: 0, lastBank: 0},
	}
	if opts.DisableRomBanks {
		rom0 := t[object.ROM0]
		rom0.size = 0x8000
		t[object.ROM0] = rom0
		romx := t[object.ROMX]
		romx.lastBank = 0
		t[object.ROMX] = romx
	}
	if opts.DisableWramBanks {
		wram0 := t[object.WRAM0]
		wram0.size = 0x2000
		t[object.WRAM0] = wram0
		wramx := t[object.WRAMX]
		wramx.lastBank = 0
		t[object.WRAMX] = wramx
	}
	if opts.DisableVramBanks {
		vram := t[object.VRAM]
		vram.lastBank = 0
		t[object.VRAM] = vram
	}
	return t
}

// romOffset maps a placed ROM address to its file offset.
func romOffset(typ object.SectionType, bank int32, addr uint32) uint32 {
	if typ == object.ROMX {
		return uint32(bank)*romBankSize + addr - romBankSize
	}
	return addr
}
