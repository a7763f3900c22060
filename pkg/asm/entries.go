package asm

import (
	"fmt"
	"sort"

	"github.com/ppcsplit/ppcsplit/pkg/obj"
	"github.com/ppcsplit/ppcsplit/pkg/ppc"
)

// entryKind distinguishes the three things the emitter prints at a given
// address within a section: a symbol beginning, a symbol ending, or a bare
// local label with no symbol-table entry of its own.
type entryKind int

const (
	entryStart entryKind = iota
	entryEnd
	entryLabel
)

// symbolEntry ties an entryKind to an index into the writer's extended
// symbol table (img.Symbols plus any synthesized .L_ labels).
type symbolEntry struct {
	index int
	kind  entryKind
}

// sectionEntries is the address-keyed table of symbolEntry values for one
// section, built once up front per spec section 4.7's "per-section entry
// table" step.
type sectionEntries struct {
	bySection []map[uint32][]symbolEntry
}

// buildEntries constructs, for every section in img, the Start/End entries
// contributed by every symbol it owns, then synthesizes Label entries for
// branch targets (code sections) and non-zero-addend data relocations
// (data/rodata sections), appending any newly-created label symbols to
// symbols. Mirrors the reference write_asm's two entry-building passes.
func buildEntries(img *obj.Image, symbols *[]obj.Symbol) *sectionEntries {
	se := &sectionEntries{bySection: make([]map[uint32][]symbolEntry, len(img.Sections))}
	for i := range se.bySection {
		se.bySection[i] = make(map[uint32][]symbolEntry)
	}

	for idx := range *symbols {
		sym := &(*symbols)[idx]
		if sym.Section == obj.NoSection {
			continue
		}
		m := se.bySection[sym.Section]
		m[sym.Address] = append(m[sym.Address], symbolEntry{index: idx, kind: entryStart})
		if sym.SizeKnown && sym.Size > 0 {
			m[sym.Address+sym.Size] = append(m[sym.Address+sym.Size], symbolEntry{index: idx, kind: entryEnd})
		}
	}

	for secIdx := range img.Sections {
		section := &img.Sections[secIdx]
		if section.Kind != obj.SectionCode {
			continue
		}
		m := se.bySection[secIdx]
		for _, ins := range ppc.DisasmIter(section.Data, section.Address) {
			target, ok := ins.BranchDest()
			if !ok || ins.AA || !(target >= section.Address && target < section.End()) {
				continue
			}
			if hasZeroAddendReloc(section, ins.Addr) {
				continue
			}
			labelIdx := ensureLabel(m, symbols, secIdx, target)
			if _, exists := relocAt(section, ins.Addr); !exists {
				if kind, ok := ins.RelocKindForBranch(); ok {
					section.Relocations = append(section.Relocations, obj.Relocation{
						Kind:    relocKindForBranch(kind),
						Address: ins.Addr,
						Target:  labelIdx,
					})
				}
			}
		}
	}

	for secIdx := range img.Sections {
		section := &img.Sections[secIdx]
		if section.Kind != obj.SectionData && section.Kind != obj.SectionReadOnlyData {
			continue
		}
		for _, rel := range section.Relocations {
			if rel.Addend == 0 {
				continue
			}
			target := (*symbols)[rel.Target]
			if target.Section == obj.NoSection {
				continue
			}
			addr := uint32(int64(target.Address) + int64(rel.Addend))
			ensureLabel(se.bySection[target.Section], symbols, target.Section, addr)
		}
	}

	return se
}

// relocAt returns the relocation at addr within section, if any.
func relocAt(section *obj.Section, addr uint32) (*obj.Relocation, bool) {
	for i := range section.Relocations {
		if section.Relocations[i].Address == addr {
			return &section.Relocations[i], true
		}
	}
	return nil, false
}

// hasZeroAddendReloc reports whether addr already carries a relocation with
// a zero addend: asm.rs skips synthesizing a branch-target label in exactly
// this case, since the existing relocation already names its target symbol
// directly with nothing to offset.
func hasZeroAddendReloc(section *obj.Section, addr uint32) bool {
	rel, ok := relocAt(section, addr)
	return ok && rel.Addend == 0
}

// relocKindForBranch maps the symbolic kind name Ins.RelocKindForBranch
// returns to the relocation enum writeIns and writeRelocOperand expect.
func relocKindForBranch(kind string) obj.RelocKind {
	switch kind {
	case "PpcRel24":
		return obj.RelocPpcRel24
	case "PpcRel14":
		return obj.RelocPpcRel14
	default:
		return obj.RelocAbsolute
	}
}

// ensureLabel registers a Label entry at addr within section secIdx if one
// (or a Start entry) doesn't already exist, synthesizing ".L_{addr:08X}"
// and appending it to symbols otherwise. Returns the index (into symbols)
// of whichever symbol now marks addr, new or pre-existing, so callers can
// point a relocation at it.
func ensureLabel(m map[uint32][]symbolEntry, symbols *[]obj.Symbol, secIdx int, addr uint32) int {
	for _, e := range m[addr] {
		if e.kind == entryLabel || e.kind == entryStart {
			return e.index
		}
	}
	idx := len(*symbols)
	*symbols = append(*symbols, obj.Symbol{
		Name:      fmt.Sprintf(".L_%08X", addr),
		Address:   addr,
		Section:   secIdx,
		SizeKnown: true,
	})
	m[addr] = append(m[addr], symbolEntry{index: idx, kind: entryLabel})
	return idx
}

// sortedAddrs returns the addresses with at least one entry in m, sorted.
func sortedAddrs(m map[uint32][]symbolEntry) []uint32 {
	out := make([]uint32, 0, len(m))
	for addr := range m {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
