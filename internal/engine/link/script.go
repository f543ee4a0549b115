package link

import (
	"strings"

	"fortio.org/safecast"

	"hgb/internal/diag"
	"hgb/internal/engine/object"
	"hgb/internal/source"
)

// applyScript reads a placement script:
//
//	; comment
//	ROMX 2          select a region and bank
//	ORG $4100       move the cursor inside the current bank
//	"Section name"  place a section at the cursor
//
// Assignments made here take precedence over the addresses and banks
// written in the source.
func (l *linker) applyScript(text, path string) {
	var (
		cur     region
		bank    int32
		haveReg bool
		cursor  = make(map[bankKey]uint32)
	)

	for i, raw := range strings.Split(text, "\n") {
		pos := source.Pos{Path: path, Line: uint32(i + 1)}
		line := raw
		if j := strings.IndexByte(line, ';'); j >= 0 && !strings.Contains(line[:j], `"`) {
			line = line[:j]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, `"`) {
			name, ok := scriptString(line)
			if !ok {
				diag.Errorf(l.rep, diag.LinkScriptSyntax, pos, "malformed section name %s", line)
				continue
			}
			if !haveReg {
				diag.Errorf(l.rep, diag.LinkScriptSyntax, pos, "section %q placed before any region", name)
				continue
			}
			p, found := l.byName[name]
			if !found {
				diag.Errorf(l.rep, diag.LinkScriptUnknown, pos, "unknown section %q", name)
				continue
			}
			if p.sec.Type != cur.typ {
				diag.Errorf(l.rep, diag.LinkScriptSyntax, pos, "section %q is %s, not %s", name, p.sec.Type, cur.typ)
				continue
			}
			key := bankKey{cur.typ, bank}
			at := cursor[key]
			org, err := safecast.Conv[int32](at)
			if err != nil {
				diag.Errorf(l.rep, diag.LinkScriptSyntax, pos, "address overflow")
				continue
			}
			p.org, p.bank = org, bank
			cursor[key] = at + p.sec.Size
			continue
		}

		word, rest := splitScriptWord(line)
		if strings.EqualFold(word, "ORG") {
			if !haveReg {
				diag.Errorf(l.rep, diag.LinkScriptSyntax, pos, "ORG before any region")
				continue
			}
			v, err := source.ParseNumber(rest)
			if err != nil {
				diag.Errorf(l.rep, diag.LinkScriptSyntax, pos, "%v", err)
				continue
			}
			if v < int64(cur.start) || v > int64(cur.end()) {
				diag.Errorf(l.rep, diag.LinkOutOfRange, pos, "ORG $%04X is outside %s ($%04X-$%04X)", v, cur.typ, cur.start, cur.end()-1)
				continue
			}
			cursor[bankKey{cur.typ, bank}] = uint32(v)
			continue
		}

		typ, ok := object.ParseSectionType(word)
		if !ok {
			diag.Errorf(l.rep, diag.LinkScriptSyntax, pos, "unknown keyword %q", word)
			continue
		}
		reg := l.regions[typ]
		b := reg.firstBank
		if rest != "" {
			v, err := source.ParseNumber(rest)
			if err != nil {
				diag.Errorf(l.rep, diag.LinkScriptSyntax, pos, "%v", err)
				continue
			}
			if b, err = safecast.Conv[int32](v); err != nil {
				diag.Errorf(l.rep, diag.LinkScriptSyntax, pos, "bank %d out of range", v)
				continue
			}
		}
		if !reg.hasBank(b) {
			diag.Errorf(l.rep, diag.LinkBankRestricted, pos, "%s bank %d is not available", typ, b)
			haveReg = false
			continue
		}
		cur, bank, haveReg = reg, b, true
		if _, seen := cursor[bankKey{typ, b}]; !seen {
			cursor[bankKey{typ, b}] = reg.start
		}
	}
}

func splitScriptWord(line string) (string, string) {
	i := strings.IndexAny(line, " \t")
	if i < 0 {
		return line, ""
	}
	return line[:i], strings.TrimSpace(line[i:])
}

func scriptString(line string) (string, bool) {
	end := strings.IndexByte(line[1:], '"')
	if end < 0 {
		return "", false
	}
	if tail := strings.TrimSpace(line[end+2:]); tail != "" && !strings.HasPrefix(tail, ";") {
		return "", false
	}
	return line[1 : end+1], true
}
