package asm

import (
	"strings"

	"hgb/internal/diag"
	"hgb/internal/engine/object"
	"hgb/internal/source"
)

var implied = map[string][]byte{
	"nop":  {0x00},
	"stop": {0x10, 0x00},
	"di":   {0xF3},
	"ei":   {0xFB},
	"reti": {0xD9},
	"rlca": {0x07},
	"rrca": {0x0F},
	"rla":  {0x17},
	"rra":  {0x1F},
	"daa":  {0x27},
	"cpl":  {0x2F},
	"scf":  {0x37},
	"ccf":  {0x3F},
}

// reg8 is the 3-bit register field of the 8-bit load and ALU opcodes.
var reg8 = map[string]byte{
	"b": 0, "c": 1, "d": 2, "e": 3, "h": 4, "l": 5, "[hl]": 6, "a": 7,
}

var reg16 = map[string]byte{
	"bc": 0x00, "de": 0x10, "hl": 0x20, "sp": 0x30,
}

var conditions = map[string]byte{
	"nz": 0x00, "z": 0x08, "nc": 0x10, "c": 0x18,
}

// alu maps each 8-bit ALU mnemonic to its register-form base opcode.
// The immediate form is base+0x46.
var alu = map[string]byte{
	"add": 0x80, "adc": 0x88, "sub": 0x90, "sbc": 0x98,
	"and": 0xA0, "xor": 0xA8, "or": 0xB0, "cp": 0xB8,
}

func (a *assembly) instruction(pos source.Pos, mnemonic string, ops []string) {
	lower := make([]string, len(ops))
	for i, op := range ops {
		lower[i] = strings.ToLower(compact(op))
	}

	if code, ok := implied[mnemonic]; ok {
		if len(ops) != 0 {
			diag.Errorf(a.rep, diag.AsmSyntax, pos, "%s takes no operands", mnemonic)
			return
		}
		a.emit(pos, code...)
		return
	}

	switch mnemonic {
	case "halt":
		if len(ops) != 0 {
			diag.Errorf(a.rep, diag.AsmSyntax, pos, "halt takes no operands")
			return
		}
		if a.opts.NopAfterHalt {
			a.emit(pos, 0x76, 0x00)
			return
		}
		a.emit(pos, 0x76)
	case "ret":
		a.ret(pos, lower)
	case "jp", "call":
		a.jump(pos, mnemonic, ops, lower)
	case "rst":
		a.rst(pos, ops)
	case "ld":
		a.ld(pos, ops, lower)
	case "ldh":
		a.ldh(pos, ops, lower)
	case "inc", "dec":
		a.incDec(pos, mnemonic, lower)
	case "push", "pop":
		a.pushPop(pos, mnemonic, lower)
	default:
		if base, ok := alu[mnemonic]; ok {
			a.arith(pos, mnemonic, base, ops, lower)
			return
		}
		diag.Errorf(a.rep, diag.AsmUnknownDirective, pos, "unknown directive or instruction %q", mnemonic)
	}
}

func (a *assembly) unsupported(pos source.Pos, mnemonic string, ops []string) {
	diag.Errorf(a.rep, diag.AsmUnsupported, pos, "unsupported operands for %s: %s", mnemonic, strings.Join(ops, ", "))
}

func (a *assembly) ret(pos source.Pos, ops []string) {
	switch len(ops) {
	case 0:
		a.emit(pos, 0xC9)
	case 1:
		cc, ok := conditions[ops[0]]
		if !ok {
			a.unsupported(pos, "ret", ops)
			return
		}
		a.emit(pos, 0xC0|cc)
	default:
		a.unsupported(pos, "ret", ops)
	}
}

// jump encodes jp/call with an optional condition.
func (a *assembly) jump(pos source.Pos, mnemonic string, ops, lower []string) {
	if mnemonic == "jp" && len(ops) == 1 && lower[0] == "hl" {
		a.emit(pos, 0xE9)
		return
	}
	var opcode byte
	target := ""
	switch len(ops) {
	case 1:
		opcode, target = 0xC3, ops[0]
		if mnemonic == "call" {
			opcode = 0xCD
		}
	case 2:
		cc, ok := conditions[lower[0]]
		if !ok {
			a.unsupported(pos, mnemonic, ops)
			return
		}
		opcode, target = 0xC2|cc, ops[1]
		if mnemonic == "call" {
			opcode = 0xC4 | cc
		}
	default:
		a.unsupported(pos, mnemonic, ops)
		return
	}
	op, ok := a.eval(pos, target)
	if !ok {
		return
	}
	if !a.emit(pos, opcode) {
		return
	}
	a.immediate16(pos, op)
}

func (a *assembly) rst(pos source.Pos, ops []string) {
	if len(ops) != 1 {
		a.unsupported(pos, "rst", ops)
		return
	}
	v, ok := a.evalConst(pos, ops[0])
	if !ok {
		return
	}
	if v < 0 || v > 0x38 || v%8 != 0 {
		diag.Errorf(a.rep, diag.AsmValueRange, pos, "invalid rst vector $%02X", v)
		return
	}
	a.emit(pos, 0xC7|byte(v))
}

// highPage splits "$FF00+n" into n, keeping the case of n.
func highPage(s string) (string, bool) {
	lower := strings.ToLower(s)
	for _, prefix := range []string{"$ff00+", "0xff00+"} {
		if strings.HasPrefix(lower, prefix) {
			return s[len(prefix):], true
		}
	}
	return "", false
}

func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// ld covers register loads, immediate loads and the memory forms through a.
func (a *assembly) ld(pos source.Pos, ops, lower []string) {
	if len(ops) != 2 {
		a.unsupported(pos, "ld", ops)
		return
	}
	dst, src := lower[0], lower[1]

	if rd, ok := reg8[dst]; ok {
		if rs, ok := reg8[src]; ok {
			if rd == 6 && rs == 6 {
				a.unsupported(pos, "ld", ops)
				return
			}
			a.emit(pos, 0x40|rd<<3|rs)
			return
		}
		if dst == "a" {
			if inner, ok := unbracket(ops[1]); ok {
				a.loadA(pos, inner, false)
				return
			}
		}
		op, ok := a.eval(pos, ops[1])
		if !ok {
			return
		}
		if a.emit(pos, 0x06|rd<<3) {
			a.immediate8(pos, op)
		}
		return
	}

	if rr, ok := reg16[dst]; ok {
		if dst == "sp" && src == "hl" {
			a.emit(pos, 0xF9)
			return
		}
		op, ok := a.eval(pos, ops[1])
		if !ok {
			return
		}
		if a.emit(pos, 0x01|rr) {
			a.immediate16(pos, op)
		}
		return
	}

	if inner, ok := unbracket(ops[0]); ok && src == "a" {
		a.loadA(pos, inner, true)
		return
	}
	a.unsupported(pos, "ld", ops)
}

// loadA encodes `ld [addr], a` (store) or `ld a, [addr]`.
func (a *assembly) loadA(pos source.Pos, inner string, store bool) {
	key := strings.ToLower(compact(inner))
	switch key {
	case "c", "$ff00+c", "0xff00+c":
		a.emit(pos, pick(store, 0xE2, 0xF2))
		return
	case "bc", "de":
		base := byte(0x02)
		if key == "de" {
			base = 0x12
		}
		a.emit(pos, base|pick(store, 0x00, 0x08))
		return
	case "hl+", "hli":
		a.emit(pos, pick(store, 0x22, 0x2A))
		return
	case "hl-", "hld":
		a.emit(pos, pick(store, 0x32, 0x3A))
		return
	}
	if low, ok := highPage(compact(inner)); ok {
		op, ok := a.eval(pos, low)
		if !ok {
			return
		}
		if a.emit(pos, pick(store, 0xE0, 0xF0)) {
			a.immediate8(pos, op)
		}
		return
	}
	op, ok := a.eval(pos, inner)
	if !ok {
		return
	}
	if a.opts.OptimizeLd && op.known() && op.value >= 0xFF00 && op.value <= 0xFFFF {
		a.emit(pos, pick(store, 0xE0, 0xF0), byte(op.value))
		return
	}
	if a.emit(pos, pick(store, 0xEA, 0xFA)) {
		a.immediate16(pos, op)
	}
}

// ldh accepts `[n8]`, `[$FF00+n8]`, `[$FFnn]` and `[c]` with a.
func (a *assembly) ldh(pos source.Pos, ops, lower []string) {
	if len(ops) != 2 {
		a.unsupported(pos, "ldh", ops)
		return
	}
	store := lower[1] == "a"
	mem := ops[0]
	if !store {
		if lower[0] != "a" {
			a.unsupported(pos, "ldh", ops)
			return
		}
		mem = ops[1]
	}
	inner, ok := unbracket(mem)
	if !ok {
		a.unsupported(pos, "ldh", ops)
		return
	}
	key := strings.ToLower(compact(inner))
	if key == "c" || key == "$ff00+c" || key == "0xff00+c" {
		a.emit(pos, pick(store, 0xE2, 0xF2))
		return
	}
	if low, ok := highPage(compact(inner)); ok {
		inner = low
	}
	op, ok := a.eval(pos, inner)
	if !ok {
		return
	}
	if !a.emit(pos, pick(store, 0xE0, 0xF0)) {
		return
	}
	if !op.known() {
		a.emitPatch(pos, object.PatchHigh, op.symbol)
		return
	}
	switch {
	case op.value >= 0xFF00 && op.value <= 0xFFFF:
		a.emit(pos, byte(op.value))
	case op.value >= 0 && op.value <= 0xFF:
		a.emit(pos, byte(op.value))
	default:
		diag.Errorf(a.rep, diag.AsmValueRange, pos, "ldh address $%X is outside $FF00-$FFFF", op.value)
		a.emit(pos, 0)
	}
}

func (a *assembly) incDec(pos source.Pos, mnemonic string, ops []string) {
	if len(ops) != 1 {
		a.unsupported(pos, mnemonic, ops)
		return
	}
	dec := mnemonic == "dec"
	if r, ok := reg8[ops[0]]; ok {
		a.emit(pos, r<<3|pick(dec, 0x05, 0x04))
		return
	}
	if rr, ok := reg16[ops[0]]; ok {
		a.emit(pos, rr|pick(dec, 0x0B, 0x03))
		return
	}
	a.unsupported(pos, mnemonic, ops)
}

func (a *assembly) pushPop(pos source.Pos, mnemonic string, ops []string) {
	if len(ops) != 1 {
		a.unsupported(pos, mnemonic, ops)
		return
	}
	var rr byte
	switch ops[0] {
	case "bc":
		rr = 0x00
	case "de":
		rr = 0x10
	case "hl":
		rr = 0x20
	case "af":
		rr = 0x30
	default:
		a.unsupported(pos, mnemonic, ops)
		return
	}
	a.emit(pos, 0xC1|rr|pick(mnemonic == "push", 0x04, 0x00))
}

// arith accepts both `xor b` and `xor a, b`.
func (a *assembly) arith(pos source.Pos, mnemonic string, base byte, ops, lower []string) {
	if len(ops) == 2 && lower[0] == "a" {
		ops, lower = ops[1:], lower[1:]
	}
	if len(ops) != 1 {
		a.unsupported(pos, mnemonic, ops)
		return
	}
	if r, ok := reg8[lower[0]]; ok {
		a.emit(pos, base|r)
		return
	}
	op, ok := a.eval(pos, ops[0])
	if !ok {
		return
	}
	if a.emit(pos, base+0x46) {
		a.immediate8(pos, op)
	}
}

func (a *assembly) immediate8(pos source.Pos, op operand) {
	if !op.known() {
		a.emitPatch(pos, object.PatchByte, op.symbol)
		return
	}
	if op.value < -128 || op.value > 0xFF {
		diag.Warnf(a.rep, diag.AsmValueRange, pos, "value %d truncated to 8 bits", op.value)
	}
	a.emit(pos, byte(op.value))
}

func (a *assembly) immediate16(pos source.Pos, op operand) {
	if !op.known() {
		a.emitPatch(pos, object.PatchWord, op.symbol)
		return
	}
	a.emitWord(pos, op.value)
}

func pick(cond bool, yes, no byte) byte {
	if cond {
		return yes
	}
	return no
}
