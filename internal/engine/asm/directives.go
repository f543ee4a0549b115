package asm

import (
	"strings"

	"fortio.org/safecast"

	"hgb/internal/depfile"
	"hgb/internal/diag"
	"hgb/internal/engine/object"
	"hgb/internal/resolve"
	"hgb/internal/source"
)

// maxReserve caps a single DS so a typo cannot allocate gigabytes.
const maxReserve = 0x10000

// operand is an evaluated expression: a known number or a symbol reference
// left for the linker.
type operand struct {
	value  int64
	symbol string
}

func (o operand) known() bool { return o.symbol == "" }

// qualify expands a local label reference against the current scope.
func (a *assembly) qualify(pos source.Pos, name string) (string, bool) {
	if !strings.HasPrefix(name, ".") {
		return name, true
	}
	if a.scope == "" {
		diag.Errorf(a.rep, diag.AsmBadLocalLabel, pos, "local label %q used before any global label", name)
		return "", false
	}
	return a.scope + name, true
}

// eval reads a single-term expression.
func (a *assembly) eval(pos source.Pos, tok string) (operand, bool) {
	tok = strings.TrimSpace(tok)
	switch {
	case tok == "":
		diag.Errorf(a.rep, diag.AsmSyntax, pos, "missing operand")
		return operand{}, false
	case source.IsNumber(tok):
		v, err := source.ParseNumber(tok)
		if err != nil {
			diag.Errorf(a.rep, diag.AsmBadNumber, pos, "%v", err)
			return operand{}, false
		}
		return operand{value: v}, true
	case len(tok) == 3 && tok[0] == '\'' && tok[2] == '\'':
		return operand{value: int64(tok[1])}, true
	case isSymbol(tok):
		name, ok := a.qualify(pos, tok)
		if !ok {
			return operand{}, false
		}
		if idx, defined := a.symbols[name]; defined && !a.obj.Symbols[idx].IsLabel() {
			return operand{value: int64(a.obj.Symbols[idx].Value)}, true
		}
		return operand{symbol: name}, true
	}
	diag.Errorf(a.rep, diag.AsmSyntax, pos, "cannot evaluate %q", tok)
	return operand{}, false
}

// evalConst is eval restricted to values known at assembly time.
func (a *assembly) evalConst(pos source.Pos, tok string) (int64, bool) {
	op, ok := a.eval(pos, tok)
	if !ok {
		return 0, false
	}
	if !op.known() {
		diag.Errorf(a.rep, diag.AsmSyntax, pos, "%q is not a constant", tok)
		return 0, false
	}
	return op.value, true
}

func (a *assembly) addSymbol(pos source.Pos, sym object.Symbol) bool {
	if _, dup := a.symbols[sym.Name]; dup {
		diag.Errorf(a.rep, diag.AsmDuplicateLabel, pos, "symbol %q is already defined", sym.Name)
		return false
	}
	if _, dup := a.equs[sym.Name]; dup {
		diag.Errorf(a.rep, diag.AsmDuplicateLabel, pos, "symbol %q is already defined as a string", sym.Name)
		return false
	}
	a.symbols[sym.Name] = len(a.obj.Symbols)
	a.obj.Symbols = append(a.obj.Symbols, sym)
	return true
}

func (a *assembly) defineLabel(pos source.Pos, name string, exported bool) {
	if !isSymbol(name) {
		diag.Errorf(a.rep, diag.AsmSyntax, pos, "invalid label name %q", name)
		return
	}
	local := strings.Contains(name, ".")
	full := name
	if local {
		var ok bool
		if full, ok = a.qualify(pos, name); !ok {
			return
		}
		if !strings.HasPrefix(name, ".") && !strings.HasPrefix(name, a.scope+".") {
			diag.Errorf(a.rep, diag.AsmBadLocalLabel, pos, "local label %q does not belong to %q", name, a.scope)
			return
		}
	}
	sec := a.current(pos)
	if sec == nil {
		return
	}
	off, err := safecast.Conv[int32](sec.Size)
	if err != nil {
		diag.Errorf(a.rep, diag.AsmValueRange, pos, "section %q is too large", sec.Name)
		return
	}
	if !local {
		a.scope = name
	}
	a.addSymbol(pos, object.Symbol{
		Name:     full,
		Section:  int32(a.cur),
		Value:    off,
		Exported: exported,
	})
}

func (a *assembly) defineConstant(pos source.Pos, name, expr string) {
	if !isSymbol(name) || strings.Contains(name, ".") {
		diag.Errorf(a.rep, diag.AsmSyntax, pos, "invalid constant name %q", name)
		return
	}
	v, ok := a.evalConst(pos, expr)
	if !ok {
		return
	}
	val, err := safecast.Conv[int32](v)
	if err != nil {
		diag.Errorf(a.rep, diag.AsmValueRange, pos, "constant %q does not fit in 32 bits", name)
		return
	}
	a.addSymbol(pos, object.Symbol{Name: name, Section: object.Unplaced, Value: val})
}

func (a *assembly) defineString(pos source.Pos, name, lit string) {
	if !isSymbol(name) || strings.Contains(name, ".") {
		diag.Errorf(a.rep, diag.AsmSyntax, pos, "invalid string symbol name %q", name)
		return
	}
	text, err := parseString(strings.TrimSpace(lit))
	if err != nil {
		diag.Errorf(a.rep, diag.AsmSyntax, pos, "%v", err)
		return
	}
	if _, dup := a.symbols[name]; dup {
		diag.Errorf(a.rep, diag.AsmDuplicateLabel, pos, "symbol %q is already defined", name)
		return
	}
	if _, dup := a.equs[name]; dup {
		diag.Errorf(a.rep, diag.AsmDuplicateLabel, pos, "string symbol %q is already defined", name)
		return
	}
	a.equs[name] = text
}

// current returns the open section or reports that there is none.
func (a *assembly) current(pos source.Pos) *object.Section {
	if a.cur < 0 {
		diag.Errorf(a.rep, diag.AsmNoSection, pos, "code or data outside of a SECTION")
		return nil
	}
	return &a.obj.Sections[a.cur]
}

// section handles `SECTION "name", TYPE[$addr], BANK[n]`.
func (a *assembly) section(pos source.Pos, ops []string) {
	if len(ops) < 2 || len(ops) > 3 {
		diag.Errorf(a.rep, diag.AsmBadSection, pos, "expected SECTION \"name\", TYPE[addr][, BANK[n]]")
		return
	}
	name, err := parseString(ops[0])
	if err != nil {
		diag.Errorf(a.rep, diag.AsmBadSection, pos, "%v", err)
		return
	}
	if _, dup := a.sections[name]; dup {
		diag.Errorf(a.rep, diag.AsmBadSection, pos, "section %q is already defined", name)
		return
	}

	typeTok, addrTok := ops[1], ""
	if i := strings.IndexByte(typeTok, '['); i >= 0 {
		inner, ok := unbracket(typeTok[i:])
		if !ok {
			diag.Errorf(a.rep, diag.AsmBadSection, pos, "malformed address in %q", typeTok)
			return
		}
		typeTok, addrTok = strings.TrimSpace(typeTok[:i]), inner
	}
	typ, ok := object.ParseSectionType(typeTok)
	if !ok {
		diag.Errorf(a.rep, diag.AsmBadSection, pos, "unknown section type %q", typeTok)
		return
	}

	sec := object.Section{Name: name, Type: typ, Org: object.Unplaced, Bank: object.Unplaced}
	if addrTok != "" {
		v, ok := a.evalConst(pos, addrTok)
		if !ok {
			return
		}
		if v < 0 || v > 0xFFFF {
			diag.Errorf(a.rep, diag.AsmValueRange, pos, "section address $%X is outside the address space", v)
			return
		}
		sec.Org = int32(v)
	}
	if len(ops) == 3 {
		kw := strings.ToUpper(ops[2])
		if !strings.HasPrefix(kw, "BANK") {
			diag.Errorf(a.rep, diag.AsmBadSection, pos, "expected BANK[n], got %q", ops[2])
			return
		}
		inner, ok := unbracket(strings.TrimSpace(ops[2][len("BANK"):]))
		if !ok {
			diag.Errorf(a.rep, diag.AsmBadSection, pos, "malformed bank in %q", ops[2])
			return
		}
		switch typ {
		case object.ROMX, object.VRAM, object.SRAM, object.WRAMX:
		default:
			diag.Errorf(a.rep, diag.AsmBadSection, pos, "%s sections cannot be banked", typ)
			return
		}
		v, ok := a.evalConst(pos, inner)
		if !ok {
			return
		}
		b, err := safecast.Conv[int32](v)
		if err != nil || b < 0 {
			diag.Errorf(a.rep, diag.AsmValueRange, pos, "invalid bank %d", v)
			return
		}
		sec.Bank = b
	}

	a.sections[name] = len(a.obj.Sections)
	a.obj.Sections = append(a.obj.Sections, sec)
	a.cur = len(a.obj.Sections) - 1
	a.scope = ""
}

func (a *assembly) include(u *source.Unit, pos source.Pos, ops []string, depth int) {
	if len(ops) != 1 {
		diag.Errorf(a.rep, diag.AsmSyntax, pos, "INCLUDE takes exactly one path")
		return
	}
	path, err := parseString(ops[0])
	if err != nil {
		diag.Errorf(a.rep, diag.AsmSyntax, pos, "%v", err)
		return
	}
	if depth+1 > a.maxDepth {
		diag.Errorf(a.rep, diag.ResIncludeDepth, pos, "INCLUDE nested more than %d levels deep", a.maxDepth)
		return
	}
	inc, ok := a.files.Resolve(a.ctx, resolve.Request{Path: path, Sender: u})
	if !ok {
		diag.Errorf(a.rep, diag.ResIncludeMissing, pos, "unable to find included file %q", path)
		return
	}
	a.addDependency(inc, depfile.KindInclude)
	a.processUnit(inc, depth+1)
}

// incbin handles `INCBIN "file"[, start[, length]]`.
func (a *assembly) incbin(u *source.Unit, pos source.Pos, ops []string) {
	if len(ops) < 1 || len(ops) > 3 {
		diag.Errorf(a.rep, diag.AsmSyntax, pos, "expected INCBIN \"file\"[, start[, length]]")
		return
	}
	path, err := parseString(ops[0])
	if err != nil {
		diag.Errorf(a.rep, diag.AsmSyntax, pos, "%v", err)
		return
	}
	bin, ok := a.files.Resolve(a.ctx, resolve.Request{Path: path, Sender: u, Binary: true})
	if !ok {
		diag.Errorf(a.rep, diag.ResIncbinMissing, pos, "unable to find binary file %q", path)
		return
	}
	a.addDependency(bin, depfile.KindBinary)

	size := int64(len(bin.Content))
	start, length := int64(0), size
	if len(ops) >= 2 {
		if start, ok = a.evalConst(pos, ops[1]); !ok {
			return
		}
		length = size - start
	}
	if len(ops) == 3 {
		if length, ok = a.evalConst(pos, ops[2]); !ok {
			return
		}
	}
	if start < 0 || start > size || length < 0 || start+length > size {
		diag.Errorf(a.rep, diag.AsmIncbinRange, pos, "range %d+%d is outside of %q (%d bytes)", start, length, path, size)
		return
	}
	a.emit(pos, bin.Content[start:start+length]...)
}

func (a *assembly) db(pos source.Pos, ops []string) {
	if len(ops) == 0 {
		a.emit(pos, a.opts.Padding)
		return
	}
	for _, tok := range ops {
		if isString(tok) {
			text, err := parseString(tok)
			if err != nil {
				diag.Errorf(a.rep, diag.AsmSyntax, pos, "%v", err)
				continue
			}
			a.emit(pos, []byte(text)...)
			continue
		}
		op, ok := a.eval(pos, tok)
		if !ok {
			continue
		}
		if op.known() {
			if op.value < -128 || op.value > 0xFF {
				diag.Warnf(a.rep, diag.AsmValueRange, pos, "value %d truncated to 8 bits", op.value)
			}
			a.emit(pos, byte(op.value))
			continue
		}
		a.emitPatch(pos, object.PatchByte, op.symbol)
	}
}

func (a *assembly) dw(pos source.Pos, ops []string) {
	if len(ops) == 0 {
		a.emit(pos, a.opts.Padding, a.opts.Padding)
		return
	}
	for _, tok := range ops {
		if isString(tok) {
			diag.Errorf(a.rep, diag.AsmSyntax, pos, "strings are not allowed in DW")
			continue
		}
		op, ok := a.eval(pos, tok)
		if !ok {
			continue
		}
		if op.known() {
			a.emitWord(pos, op.value)
			continue
		}
		a.emitPatch(pos, object.PatchWord, op.symbol)
	}
}

// ds handles `DS count[, fill]`.
func (a *assembly) ds(pos source.Pos, ops []string) {
	if len(ops) < 1 || len(ops) > 2 {
		diag.Errorf(a.rep, diag.AsmSyntax, pos, "expected DS count[, fill]")
		return
	}
	n, ok := a.evalConst(pos, ops[0])
	if !ok {
		return
	}
	if n < 0 || n > maxReserve {
		diag.Errorf(a.rep, diag.AsmValueRange, pos, "DS count %d out of range", n)
		return
	}
	fill := a.opts.Padding
	if len(ops) == 2 {
		v, ok := a.evalConst(pos, ops[1])
		if !ok {
			return
		}
		fill = byte(v)
	}
	sec := a.current(pos)
	if sec == nil {
		return
	}
	if !sec.Type.HasData() {
		sec.Size += uint32(n)
		return
	}
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = fill
	}
	a.emit(pos, buf...)
}

func (a *assembly) export(pos source.Pos, ops []string) {
	if len(ops) == 0 {
		diag.Errorf(a.rep, diag.AsmSyntax, pos, "EXPORT needs at least one symbol")
		return
	}
	for _, tok := range ops {
		if !isSymbol(tok) {
			diag.Errorf(a.rep, diag.AsmSyntax, pos, "cannot export %q", tok)
			continue
		}
		name, ok := a.qualify(pos, tok)
		if !ok {
			continue
		}
		a.exports = append(a.exports, pendingExport{name: name, pos: pos})
	}
}

// emit appends bytes to the open section.
func (a *assembly) emit(pos source.Pos, data ...byte) bool {
	sec := a.current(pos)
	if sec == nil {
		return false
	}
	if !sec.Type.HasData() {
		diag.Errorf(a.rep, diag.AsmBadSection, pos, "section %q (%s) cannot contain data", sec.Name, sec.Type)
		return false
	}
	n, err := safecast.Conv[uint32](len(sec.Data) + len(data))
	if err != nil {
		diag.Errorf(a.rep, diag.AsmValueRange, pos, "section %q is too large", sec.Name)
		return false
	}
	sec.Data = append(sec.Data, data...)
	sec.Size = n
	return true
}

func (a *assembly) emitWord(pos source.Pos, v int64) {
	if v < -0x8000 || v > 0xFFFF {
		diag.Warnf(a.rep, diag.AsmValueRange, pos, "value %d truncated to 16 bits", v)
	}
	a.emit(pos, byte(v), byte(v>>8))
}

// emitPatch reserves room for a symbol value and records the patch.
func (a *assembly) emitPatch(pos source.Pos, kind object.PatchKind, symbol string) {
	sec := a.current(pos)
	if sec == nil {
		return
	}
	off := sec.Size
	placeholder := make([]byte, kind.Width())
	if !a.emit(pos, placeholder...) {
		return
	}
	sec = &a.obj.Sections[a.cur]
	sec.Patches = append(sec.Patches, object.Patch{
		Offset: off,
		Kind:   kind,
		Symbol: symbol,
		Path:   pos.Path,
		Line:   pos.Line,
	})
}
