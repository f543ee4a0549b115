package link

import (
	"fmt"
	"sort"
	"strings"

	"hgb/internal/engine/object"
)

// symbolFile renders the labels in the BB:AAAA format debuggers load.
func (l *linker) symbolFile(syms *symbolTable) string {
	var b strings.Builder
	b.WriteString("; File generated by hgblink\n")
	for _, r := range syms.labels {
		fmt.Fprintf(&b, "%02X:%04X %s\n", r.bank, r.value, r.name)
	}
	return b.String()
}

// mapFile lists every used bank with its sections, their labels and the
// free space left, followed by a usage summary per region.
func (l *linker) mapFile(syms *symbolTable) string {
	labelsOf := make(map[*placement][]*resolved)
	for _, r := range syms.labels {
		labelsOf[r.place] = append(labelsOf[r.place], r)
	}

	var b strings.Builder
	used := make(map[object.SectionType]uint32)
	for _, typ := range object.SectionTypes {
		keys := l.banksOf(typ)
		reg := l.regions[typ]
		for _, key := range keys {
			spans := l.used[key]
			fmt.Fprintf(&b, "%s bank #%d:\n", typ, key.bank)
			total := uint32(0)
			for _, s := range spans {
				size := s.end - s.start
				total += size
				if size == 0 {
					fmt.Fprintf(&b, "\tSECTION: $%04X ($0000 bytes) [%q]\n", s.start, s.item.sec.Name)
				} else {
					fmt.Fprintf(&b, "\tSECTION: $%04X-$%04X ($%04X bytes) [%q]\n", s.start, s.end-1, size, s.item.sec.Name)
				}
				for _, r := range labelsOf[s.item] {
					fmt.Fprintf(&b, "\t         $%04X = %s\n", r.value, r.name)
				}
			}
			fmt.Fprintf(&b, "\tEMPTY: $%04X bytes\n\n", reg.size-total)
			used[typ] += total
		}
	}

	b.WriteString("SUMMARY:\n")
	for _, typ := range object.SectionTypes {
		reg := l.regions[typ]
		if !reg.available() {
			continue
		}
		banks := uint32(len(l.banksOf(typ)))
		if banks == 0 {
			banks = 1
		}
		capacity := reg.size * banks
		fmt.Fprintf(&b, "\t%s: %d bytes used / %d free", typ, used[typ], capacity-used[typ])
		if n := len(l.banksOf(typ)); n > 1 {
			fmt.Fprintf(&b, " in %d banks", n)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// banksOf returns the used banks of typ in ascending order.
func (l *linker) banksOf(typ object.SectionType) []bankKey {
	var keys []bankKey
	for key := range l.used {
		if key.typ == typ {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].bank < keys[j].bank })
	return keys
}
