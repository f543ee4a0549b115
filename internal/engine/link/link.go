// Package link is the reference linker engine behind hgblink.
package link

import (
	"context"
	"sort"

	"hgb/internal/diag"
	"hgb/internal/engine"
	"hgb/internal/engine/object"
	"hgb/internal/source"
)

// Engine implements engine.Linker.
type Engine struct{}

// New returns a linker engine.
func New() *Engine { return &Engine{} }

var _ engine.Linker = (*Engine)(nil)

// placement tracks where one input section ends up.
type placement struct {
	obj   *object.File
	sec   *object.Section
	index int
	org   int32
	bank  int32
	done  bool
}

func (p *placement) fixedOrg() bool  { return p.org != object.Unplaced }
func (p *placement) fixedBank() bool { return p.bank != object.Unplaced }

func (p *placement) pos() source.Pos { return source.Pos{Path: p.obj.Path} }

type bankKey struct {
	typ  object.SectionType
	bank int32
}

type span struct {
	start, end uint32
	item       *placement
}

type linker struct {
	opts    engine.LinkOptions
	rep     diag.Reporter
	regions map[object.SectionType]region
	items   []*placement
	byName  map[string]*placement
	used    map[bankKey][]span
}

// Link places every section, resolves patches and renders the outputs.
// Placement and symbol problems become diagnostics; only cancellation is
// returned as an error.
func (e *Engine) Link(ctx context.Context, opts engine.LinkOptions, objects []*object.File) (*engine.LinkResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bag := diag.NewBag(0)
	l := &linker{
		opts:    opts,
		rep:     diag.NewDedupReporter(diag.BagReporter{Bag: bag}),
		regions: regionTable(opts),
		byName:  make(map[string]*placement),
		used:    make(map[bankKey][]span),
	}

	l.collect(objects)
	if opts.LinkerScript != "" {
		l.applyScript(opts.LinkerScript, opts.LinkerScriptPath)
	}
	if opts.Overlay != nil {
		l.checkOverlay()
	}
	l.placeAll()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	syms := l.symbols(objects)
	rom := l.buildROM(syms)

	res := &engine.LinkResult{ROM: rom}
	if opts.GenerateSym {
		res.SymbolFile = l.symbolFile(syms)
	}
	if opts.GenerateMap {
		res.MapFile = l.mapFile(syms)
	}
	res.Diagnostics = bag.Items()
	return res, nil
}

func (l *linker) collect(objects []*object.File) {
	for _, obj := range objects {
		for i := range obj.Sections {
			sec := &obj.Sections[i]
			p := &placement{obj: obj, sec: sec, index: i, org: sec.Org, bank: sec.Bank}
			if prev, dup := l.byName[sec.Name]; dup {
				diag.Errorf(l.rep, diag.LinkOverlap, p.pos(), "section %q is defined in both %s and %s", sec.Name, prev.obj.Path, obj.Path)
				continue
			}
			l.byName[sec.Name] = p
			l.items = append(l.items, p)
		}
	}
}

func (l *linker) checkOverlay() {
	size := len(l.opts.Overlay)
	if size < 2*romBankSize || size%romBankSize != 0 {
		diag.Errorf(l.rep, diag.LinkOverlaySize, source.Pos{}, "overlay must be a multiple of $4000 bytes and at least $8000, got $%X", size)
	}
	for _, p := range l.items {
		if p.sec.Type.HasData() && !p.fixedOrg() {
			diag.Errorf(l.rep, diag.LinkOverlayFloating, p.pos(), "section %q must have a fixed address when using an overlay", p.sec.Name)
		}
	}
}

// placeAll places fixed sections before floating ones; within a group the
// larger sections go first.
func (l *linker) placeAll() {
	rank := func(p *placement) int {
		switch {
		case p.fixedOrg() && p.fixedBank():
			return 0
		case p.fixedOrg():
			return 1
		case p.fixedBank():
			return 2
		}
		return 3
	}
	order := make([]*placement, len(l.items))
	copy(order, l.items)
	sort.SliceStable(order, func(i, j int) bool {
		ri, rj := rank(order[i]), rank(order[j])
		if ri != rj {
			return ri < rj
		}
		return order[i].sec.Size > order[j].sec.Size
	})
	for _, p := range order {
		l.place(p)
	}
}

func (l *linker) place(p *placement) {
	reg := l.regions[p.sec.Type]
	if !reg.available() {
		diag.Errorf(l.rep, diag.LinkBankRestricted, p.pos(), "section %q: %s is not available with the selected bank restrictions", p.sec.Name, p.sec.Type)
		return
	}
	if p.sec.Size > reg.size {
		diag.Errorf(l.rep, diag.LinkNoSpace, p.pos(), "section %q is larger than a %s bank ($%X > $%X bytes)", p.sec.Name, p.sec.Type, p.sec.Size, reg.size)
		return
	}

	firstBank, lastBank := reg.firstBank, reg.lastBank
	if p.fixedBank() {
		if !reg.hasBank(p.bank) {
			diag.Errorf(l.rep, diag.LinkBankRestricted, p.pos(), "section %q: %s bank %d is out of range %d-%d", p.sec.Name, p.sec.Type, p.bank, reg.firstBank, reg.lastBank)
			return
		}
		firstBank, lastBank = p.bank, p.bank
	}

	if p.fixedOrg() {
		org := uint32(p.org)
		if org < reg.start || org+p.sec.Size > reg.end() {
			diag.Errorf(l.rep, diag.LinkOutOfRange, p.pos(), "section %q ($%04X-$%04X) does not fit in %s ($%04X-$%04X)", p.sec.Name, org, org+p.sec.Size, p.sec.Type, reg.start, reg.end()-1)
			return
		}
		for b := firstBank; b <= lastBank; b++ {
			if other := l.overlap(bankKey{p.sec.Type, b}, org, org+p.sec.Size); other == nil {
				l.commit(p, b, org)
				return
			} else if firstBank == lastBank {
				diag.Errorf(l.rep, diag.LinkOverlap, p.pos(), "section %q overlaps %q at $%04X", p.sec.Name, other.sec.Name, org)
				return
			}
		}
		diag.Errorf(l.rep, diag.LinkNoSpace, p.pos(), "no %s bank has room for section %q at $%04X", p.sec.Type, p.sec.Name, org)
		return
	}

	for b := firstBank; b <= lastBank; b++ {
		if org, ok := l.firstFit(bankKey{p.sec.Type, b}, reg, p.sec.Size); ok {
			l.commit(p, b, org)
			return
		}
	}
	diag.Errorf(l.rep, diag.LinkNoSpace, p.pos(), "unable to place section %q (%s, $%X bytes)", p.sec.Name, p.sec.Type, p.sec.Size)
}

func (l *linker) overlap(key bankKey, start, end uint32) *placement {
	for _, s := range l.used[key] {
		if start < s.end && s.start < end {
			return s.item
		}
		if start == end && start >= s.start && start < s.end {
			return s.item
		}
	}
	return nil
}

// firstFit returns the lowest free address that fits size bytes.
func (l *linker) firstFit(key bankKey, reg region, size uint32) (uint32, bool) {
	addr := reg.start
	for _, s := range l.used[key] {
		if s.start >= addr+size {
			break
		}
		if s.end > addr {
			addr = s.end
		}
	}
	if addr+size > reg.end() {
		return 0, false
	}
	return addr, true
}

func (l *linker) commit(p *placement, bank int32, org uint32) {
	p.bank, p.org, p.done = bank, int32(org), true
	key := bankKey{p.sec.Type, bank}
	spans := append(l.used[key], span{start: org, end: org + p.sec.Size, item: p})
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	l.used[key] = spans
}

// resolved is a symbol with its final value.
type resolved struct {
	name  string
	value int64
	bank  int32
	label bool
	place *placement
}

type symbolTable struct {
	global map[string]*resolved
	local  map[*object.File]map[string]*resolved
	labels []*resolved
}

func (t *symbolTable) lookup(obj *object.File, name string) (*resolved, bool) {
	if r, ok := t.local[obj][name]; ok {
		return r, true
	}
	r, ok := t.global[name]
	return r, ok
}

func (l *linker) symbols(objects []*object.File) *symbolTable {
	t := &symbolTable{
		global: make(map[string]*resolved),
		local:  make(map[*object.File]map[string]*resolved),
	}
	owner := make(map[string]*object.File)
	for _, obj := range objects {
		local := make(map[string]*resolved, len(obj.Symbols))
		t.local[obj] = local
		for _, sym := range obj.Symbols {
			r := &resolved{name: sym.Name, value: int64(sym.Value)}
			if sym.IsLabel() {
				// Labels of unplaced sections keep their offset; placement
				// already reported the failure.
				if p := l.byName[obj.Sections[sym.Section].Name]; p != nil && p.obj == obj && p.done {
					r.label, r.place, r.bank = true, p, p.bank
					r.value += int64(p.org)
					t.labels = append(t.labels, r)
				}
			}
			local[sym.Name] = r
			if !sym.Exported {
				continue
			}
			if prev, dup := owner[sym.Name]; dup {
				diag.Errorf(l.rep, diag.LinkDuplicateSymbol, source.Pos{Path: obj.Path}, "symbol %q is exported by both %s and %s", sym.Name, prev.Path, obj.Path)
				continue
			}
			owner[sym.Name] = obj
			t.global[sym.Name] = r
		}
	}
	sort.SliceStable(t.labels, func(i, j int) bool {
		a, b := t.labels[i], t.labels[j]
		if a.place.sec.Type != b.place.sec.Type {
			return a.place.sec.Type < b.place.sec.Type
		}
		if a.bank != b.bank {
			return a.bank < b.bank
		}
		if a.value != b.value {
			return a.value < b.value
		}
		return a.name < b.name
	})
	return t
}

// romBanks returns how many 16 KiB banks the image needs.
func (l *linker) romBanks() int {
	banks := 2
	if l.opts.DisableRomBanks {
		return banks
	}
	for _, p := range l.items {
		if p.done && p.sec.Type == object.ROMX && int(p.bank)+1 > banks {
			banks = int(p.bank) + 1
		}
	}
	if n := len(l.opts.Overlay) / romBankSize; n > banks {
		banks = n
	}
	return banks
}

func (l *linker) buildROM(syms *symbolTable) []byte {
	rom := make([]byte, l.romBanks()*romBankSize)
	for i := range rom {
		rom[i] = l.opts.Padding
	}
	copy(rom, l.opts.Overlay)

	for _, p := range l.items {
		if !p.done || !p.sec.Type.HasData() {
			continue
		}
		base := romOffset(p.sec.Type, p.bank, uint32(p.org))
		copy(rom[base:base+p.sec.Size], p.sec.Data)
		for _, patch := range p.sec.Patches {
			l.applyPatch(rom[base:base+p.sec.Size], p, patch, syms)
		}
	}
	return rom
}

func (l *linker) applyPatch(dst []byte, p *placement, patch object.Patch, syms *symbolTable) {
	pos := source.Pos{Path: patch.Path, Line: patch.Line}
	if pos.Path == "" {
		pos = p.pos()
	}
	sym, ok := syms.lookup(p.obj, patch.Symbol)
	if !ok {
		diag.Errorf(l.rep, diag.LinkUnknownSymbol, pos, "unknown symbol %q", patch.Symbol)
		return
	}
	v := sym.value
	switch patch.Kind {
	case object.PatchByte:
		if v < -128 || v > 0xFF {
			diag.Errorf(l.rep, diag.LinkPatchRange, pos, "value of %q ($%X) does not fit in 8 bits", patch.Symbol, v)
			return
		}
		dst[patch.Offset] = byte(v)
	case object.PatchHigh:
		if !(v >= 0xFF00 && v <= 0xFFFF) && !(v >= 0 && v <= 0xFF) {
			diag.Errorf(l.rep, diag.LinkPatchRange, pos, "address of %q ($%X) is not in $FF00-$FFFF", patch.Symbol, v)
			return
		}
		dst[patch.Offset] = byte(v)
	case object.PatchWord:
		if v < -0x8000 || v > 0xFFFF {
			diag.Errorf(l.rep, diag.LinkPatchRange, pos, "value of %q ($%X) does not fit in 16 bits", patch.Symbol, v)
			return
		}
		dst[patch.Offset] = byte(v)
		dst[patch.Offset+1] = byte(v >> 8)
	default:
		diag.Errorf(l.rep, diag.LinkPatchRange, pos, "unknown patch kind %d", patch.Kind)
	}
}
