// Package asm emits a GNU-assembler-compatible text rendering of a
// relocatable object, the external text contract described in spec
// section 4.7. Grounded on the reference implementation's write_asm
// (original_source/src/util/asm.rs), restructured into
// pkg/hw/cpu/mc/programfilewriter.go's writer-struct idiom ("xxxWriter{w,
// obj}; w.write() dispatching to writeXxx methods").
package asm

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/ppcsplit/ppcsplit/pkg/obj"
	"github.com/ppcsplit/ppcsplit/pkg/ppc"
)

// WriteAsm writes img (which must be a relocatable output object) as GNU
// assembler text to w.
func WriteAsm(w io.Writer, img *obj.Image) error {
	aw := &asmWriter{w: bufio.NewWriter(w), img: img}
	if err := aw.write(); err != nil {
		return err
	}
	return aw.w.Flush()
}

type asmWriter struct {
	w       *bufio.Writer
	img     *obj.Image
	symbols []obj.Symbol
	entries *sectionEntries
}

func (aw *asmWriter) write() error {
	if err := aw.writePreamble(); err != nil {
		return err
	}

	aw.symbols = append([]obj.Symbol(nil), aw.img.Symbols...)
	aw.entries = buildEntries(aw.img, &aw.symbols)

	if err := aw.writeCommonSymbols(); err != nil {
		return err
	}

	for secIdx := range aw.img.Sections {
		if err := aw.writeSection(secIdx); err != nil {
			return err
		}
	}
	return nil
}

func (aw *asmWriter) writePreamble() error {
	if _, err := fmt.Fprintln(aw.w, ".include \"macros.inc\""); err != nil {
		return err
	}
	if aw.img.Name == "" {
		return nil
	}
	name := aw.img.Name
	if i := strings.LastIndexAny(name, "/\\ "); i != -1 {
		name = name[i+1:]
	}
	_, err := fmt.Fprintf(aw.w, ".file %q\n", name)
	return err
}

func (aw *asmWriter) writeCommonSymbols() error {
	var common []*obj.Symbol
	for i := range aw.symbols {
		if aw.symbols[i].Scope == obj.ScopeCommon {
			common = append(common, &aw.symbols[i])
		}
	}
	if len(common) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(aw.w); err != nil {
		return err
	}
	for _, sym := range common {
		if sym.DemangledName != "" {
			if _, err := fmt.Fprintf(aw.w, "# %s\n", sym.DemangledName); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprint(aw.w, ".comm "); err != nil {
			return err
		}
		if err := writeSymbolName(aw.w, sym.Name); err != nil {
			return err
		}
		align := sym.Align
		if align == 0 {
			align = 4
		}
		if _, err := fmt.Fprintf(aw.w, ", %#x, %d\n", sym.Size, align); err != nil {
			return err
		}
	}
	return nil
}

func (aw *asmWriter) writeSection(secIdx int) error {
	section := &aw.img.Sections[secIdx]
	subsection := 0
	for i := 0; i < secIdx; i++ {
		if aw.img.Sections[i].Name == section.Name {
			subsection++
		}
	}

	start := section.Address
	end := section.End()
	if start >= end {
		return nil
	}

	if err := writeSectionHeader(aw.w, section, subsection, start, end); err != nil {
		return err
	}

	switch section.Kind {
	case obj.SectionBss:
		if err := aw.writeBss(secIdx, start, end); err != nil {
			return err
		}
	default:
		if err := aw.writeData(secIdx, start, end); err != nil {
			return err
		}
	}

	for _, e := range aw.entries.bySection[secIdx][end] {
		if e.kind != entryEnd {
			continue
		}
		if err := writeSymbolEntry(aw.w, aw.symbols, e); err != nil {
			return err
		}
	}
	return nil
}

func writeSectionHeader(w io.Writer, section *obj.Section, subsection int, start, end uint32) error {
	if _, err := fmt.Fprintf(w, "\n# %#010x - %#010x\n", start+section.OriginalAddress, end+section.OriginalAddress); err != nil {
		return err
	}

	switch section.Name {
	case ".text":
		if subsection == 0 {
			if _, err := fmt.Fprint(w, section.Name); err != nil {
				return err
			}
			break
		}
		fallthrough
	case ".init":
		if _, err := fmt.Fprintf(w, ".section %s, \"ax\"", section.Name); err != nil {
			return err
		}
	case ".data", ".rodata":
		if subsection == 0 {
			if _, err := fmt.Fprint(w, section.Name); err != nil {
				return err
			}
			break
		}
		if section.Name == ".data" {
			if _, err := fmt.Fprintf(w, ".section %s, \"wa\"", section.Name); err != nil {
				return err
			}
		} else {
			if _, err := fmt.Fprintf(w, ".section %s, \"a\"", section.Name); err != nil {
				return err
			}
		}
	case ".sdata":
		if _, err := fmt.Fprintf(w, ".section %s, \"wa\"", section.Name); err != nil {
			return err
		}
	case ".sdata2":
		if _, err := fmt.Fprintf(w, ".section %s, \"a\"", section.Name); err != nil {
			return err
		}
	case ".bss", ".sbss":
		if _, err := fmt.Fprintf(w, ".section %s, \"wa\", @nobits", section.Name); err != nil {
			return err
		}
	case ".sbss2":
		if _, err := fmt.Fprintf(w, ".section %s, \"a\", @nobits", section.Name); err != nil {
			return err
		}
	case ".ctors", ".dtors", ".ctors$10", ".dtors$10", ".dtors$15", "extab", "extabindex":
		if _, err := fmt.Fprintf(w, ".section %s, \"a\"", section.Name); err != nil {
			return err
		}
	case ".comment":
		if _, err := fmt.Fprintf(w, ".section %s, \"\"", section.Name); err != nil {
			return err
		}
	default:
		if _, err := fmt.Fprintf(w, ".section %s", section.Name); err != nil {
			return err
		}
		if section.Kind == obj.SectionBss {
			if _, err := fmt.Fprint(w, ", \"\", @nobits"); err != nil {
				return err
			}
		}
	}

	if subsection != 0 {
		if _, err := fmt.Fprintf(w, ", unique, %d", subsection); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	if section.Align != 0 {
		if _, err := fmt.Fprintf(w, ".balign %d\n", section.Align); err != nil {
			return err
		}
	}
	return nil
}

func writeSymbolEntry(w io.Writer, symbols []obj.Symbol, e symbolEntry) error {
	sym := &symbols[e.index]
	if sym.Kind == obj.SymbolSection {
		return nil
	}

	kindWord := "sym"
	switch sym.Kind {
	case obj.SymbolFunction:
		kindWord = "fn"
	case obj.SymbolObject:
		kindWord = "obj"
	}

	scope := "global"
	switch sym.Scope {
	case obj.ScopeWeak:
		scope = "weak"
	case obj.ScopeLocal:
		scope = "local"
	}

	switch e.kind {
	case entryLabel:
		if strings.HasPrefix(sym.Name, ".L") {
			if err := writeSymbolName(w, sym.Name); err != nil {
				return err
			}
			if _, err := fmt.Fprintln(w, ":"); err != nil {
				return err
			}
		} else {
			if _, err := fmt.Fprint(w, ".sym "); err != nil {
				return err
			}
			if err := writeSymbolName(w, sym.Name); err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, ", %s\n", scope); err != nil {
				return err
			}
		}
	case entryStart:
		if sym.Kind != obj.SymbolUnknown {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if sym.DemangledName != "" {
			if _, err := fmt.Fprintf(w, "# %s\n", sym.DemangledName); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, ".%s ", kindWord); err != nil {
			return err
		}
		if err := writeSymbolName(w, sym.Name); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, ", %s\n", scope); err != nil {
			return err
		}
	case entryEnd:
		if _, err := fmt.Fprintf(w, ".end%s ", kindWord); err != nil {
			return err
		}
		if err := writeSymbolName(w, sym.Name); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}

	if (e.kind == entryStart || e.kind == entryLabel) && sym.Flags.Hidden {
		if _, err := fmt.Fprint(w, ".hidden "); err != nil {
			return err
		}
		if err := writeSymbolName(w, sym.Name); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

// writeData implements spec section 4.7's code/data/rodata emission loop:
// walk address-ordered symbol entries and relocations together, printing
// symbol bookkeeping at each boundary and dispatching code runs to the
// disassembler and data runs to writeDataChunk.
func (aw *asmWriter) writeData(secIdx int, start, end uint32) error {
	section := &aw.img.Sections[secIdx]
	entryMap := aw.entries.bySection[secIdx]
	addrs := sortedAddrs(entryMap)
	relocs := section.Relocations

	current := start
	entryI, relocI := 0, 0
	for entryI < len(addrs) && addrs[entryI] < start {
		entryI++
	}
	for relocI < len(relocs) && relocs[relocI].Address < start {
		relocI++
	}

	var currentSymbolKind obj.SymbolKind
	var currentDataKind obj.DataKind
	begin := true

	for current < end {
		if entryI < len(addrs) && addrs[entryI] == current {
			var err error
			currentSymbolKind, currentDataKind, err = aw.emitEntriesAt(entryMap[current], currentSymbolKind, currentDataKind, begin)
			if err != nil {
				return err
			}
			entryI++
		}
		begin = false

		symKind := currentSymbolKind
		if symKind == obj.SymbolUnknown {
			if section.Kind == obj.SectionCode {
				symKind = obj.SymbolFunction
			} else {
				symKind = obj.SymbolObject
			}
		}

		if relocI < len(relocs) && relocs[relocI].Address == current {
			rel := &relocs[relocI]
			if symKind == obj.SymbolObject {
				next, err := aw.writeDataReloc(rel)
				if err != nil {
					return err
				}
				current = next
				relocI++
				continue
			}
			// Function-kind relocations at this address are handled
			// inline by the code-chunk disassembly below; skip past it
			// here so it doesn't get used as a (zero-width) chunk
			// boundary below.
			relocI++
		}

		until := end
		if entryI < len(addrs) && addrs[entryI] < until {
			until = addrs[entryI]
		}
		if relocI < len(relocs) && relocs[relocI].Address < until {
			until = relocs[relocI].Address
		}

		off := current - section.Address
		untilOff := until - section.Address
		data := section.Data[off:untilOff]

		if symKind == obj.SymbolFunction {
			if current%4 != 0 || len(data)%4 != 0 {
				return obj.WrapError(obj.ErrEmission, "unaligned code write @ %s %#010x size %#x", section.Name, current, len(data))
			}
			if err := aw.writeCodeChunk(section, current, data); err != nil {
				return err
			}
		} else {
			if err := writeDataChunk(aw.w, data, currentDataKind); err != nil {
				return err
			}
		}
		current = until
	}
	return nil
}

func (aw *asmWriter) emitEntriesAt(es []symbolEntry, curSymKind obj.SymbolKind, curDataKind obj.DataKind, begin bool) (obj.SymbolKind, obj.DataKind, error) {
	for _, e := range es {
		if e.kind == entryEnd && begin {
			continue
		}
		if err := writeSymbolEntry(aw.w, aw.symbols, e); err != nil {
			return curSymKind, curDataKind, err
		}
	}

	newSymKind, newDataKind := curSymKind, curDataKind
	sawSymKind, sawDataKind := false, false
	sawLabel := false
	for _, e := range es {
		if e.kind != entryStart {
			if e.kind == entryLabel {
				sawLabel = true
			}
			continue
		}
		sym := &aw.symbols[e.index]
		if sym.Kind != obj.SymbolUnknown && sym.Kind != obj.SymbolSection {
			newSymKind, sawSymKind = sym.Kind, true
		}
		if sym.Data != obj.DataUnknown {
			newDataKind, sawDataKind = sym.Data, true
		}
	}
	if !sawDataKind {
		if sawLabel && !sawSymKind {
			newDataKind = curDataKind
		} else {
			newDataKind = obj.DataUnknown
		}
	}
	return newSymKind, newDataKind, nil
}

func (aw *asmWriter) writeCodeChunk(section *obj.Section, address uint32, data []byte) error {
	relocs := section.Relocations
	for _, ins := range ppc.DisasmIter(data, address) {
		var rel *obj.Relocation
		for i := range relocs {
			if relocs[i].Address == ins.Addr {
				rel = &relocs[i]
				break
			}
		}
		fileOffset := uint64(section.FileOffset) + uint64(ins.Addr-section.Address)
		if err := aw.writeIns(ins, rel, fileOffset, section.OriginalAddress); err != nil {
			return err
		}
	}
	return nil
}

func (aw *asmWriter) writeIns(ins ppc.Ins, rel *obj.Relocation, fileOffset uint64, sectionAddr uint32) error {
	w := aw.w
	if _, err := fmt.Fprintf(w, "/* %08x %08x  %02x %02x %02x %02x */\t",
		uint64(ins.Addr)+uint64(sectionAddr), fileOffset,
		byte(ins.Code>>24), byte(ins.Code>>16), byte(ins.Code>>8), byte(ins.Code)); err != nil {
		return err
	}

	switch {
	case ins.Op == ppc.OpIllegal:
		_, err := fmt.Fprintf(w, ".4byte %#010x /* invalid */\n", ins.Code)
		return err
	case ppc.IsIllegalInstructionForm(ins.Code):
		_, err := fmt.Fprintf(w, ".4byte %#010x /* illegal */\n", ins.Code)
		return err
	case ins.Op == ppc.OpUnrecognized:
		_, err := fmt.Fprintf(w, ".4byte %#010x /* unrecognized opcode %#x */\n", ins.Code, ins.Code>>26)
		return err
	}

	if _, err := fmt.Fprint(w, ins.Mnemonic); err != nil {
		return err
	}
	writingOffset := false
	for i, arg := range ins.Args {
		if !writingOffset {
			if i == 0 {
				if _, err := fmt.Fprint(w, " "); err != nil {
					return err
				}
			} else {
				if _, err := fmt.Fprint(w, ", "); err != nil {
					return err
				}
			}
		}
		switch arg.Kind {
		case ppc.ArgUimm, ppc.ArgSimm, ppc.ArgBranchDest:
			if rel != nil {
				if err := writeRelocOperand(w, aw.symbols, rel); err != nil {
					return err
				}
			} else if err := writeBareArg(w, arg); err != nil {
				return err
			}
		case ppc.ArgOffset:
			if rel != nil {
				if err := writeRelocOperand(w, aw.symbols, rel); err != nil {
					return err
				}
			} else if err := writeBareArg(w, arg); err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "(r%d)", arg.Reg); err != nil {
				return err
			}
		default:
			if err := writeBareArg(w, arg); err != nil {
				return err
			}
		}
		if writingOffset {
			if _, err := fmt.Fprint(w, ")"); err != nil {
				return err
			}
			writingOffset = false
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

// writeDataReloc renders a single data relocation, preferring the .rel
// macro (symbolic base + symbolic offset) when a non-zero addend resolves
// to a known label, falling back to a plain .4byte otherwise. Only
// Absolute data relocations are supported; anything else is an emission
// error per spec section 4.7/7.
func (aw *asmWriter) writeDataReloc(rel *obj.Relocation) (uint32, error) {
	if rel.Kind != obj.RelocAbsolute {
		return 0, obj.WrapError(obj.ErrEmission, "unsupported data relocation kind %s @ %#010x", rel.Kind, rel.Address)
	}

	if rel.Addend != 0 {
		target := &aw.symbols[rel.Target]
		if target.Section != obj.NoSection {
			targetAddr := uint32(int64(target.Address) + int64(rel.Addend))
			if labelIdx, ok := findLabelEntry(aw.entries.bySection[target.Section][targetAddr]); ok {
				if _, err := fmt.Fprint(aw.w, "\t.rel "); err != nil {
					return 0, err
				}
				if err := writeSymbolName(aw.w, target.Name); err != nil {
					return 0, err
				}
				if _, err := fmt.Fprint(aw.w, ", "); err != nil {
					return 0, err
				}
				if err := writeSymbolName(aw.w, aw.symbols[labelIdx].Name); err != nil {
					return 0, err
				}
				if _, err := fmt.Fprintln(aw.w); err != nil {
					return 0, err
				}
				return rel.Address + 4, nil
			}
		}
	}

	if _, err := fmt.Fprint(aw.w, "\t.4byte "); err != nil {
		return 0, err
	}
	if err := writeRelocOperand(aw.w, aw.symbols, rel); err != nil {
		return 0, err
	}
	if _, err := fmt.Fprintln(aw.w); err != nil {
		return 0, err
	}
	return rel.Address + 4, nil
}

func findLabelEntry(es []symbolEntry) (int, bool) {
	for _, e := range es {
		if e.kind == entryLabel {
			return e.index, true
		}
	}
	return 0, false
}

// writeBss implements spec section 4.7's bss emission: no bytes to print,
// just symbol bookkeeping and .skip directives for the gaps between them.
func (aw *asmWriter) writeBss(secIdx int, start, end uint32) error {
	entryMap := aw.entries.bySection[secIdx]
	addrs := sortedAddrs(entryMap)

	current := start
	i := 0
	for i < len(addrs) && addrs[i] < start {
		i++
	}
	begin := true
	for current < end {
		if i < len(addrs) && addrs[i] == current {
			for _, e := range entryMap[current] {
				if e.kind == entryEnd && begin {
					continue
				}
				if err := writeSymbolEntry(aw.w, aw.symbols, e); err != nil {
					return err
				}
			}
			i++
		}
		begin = false
		until := end
		if i < len(addrs) {
			until = addrs[i]
		}
		if size := until - current; size > 0 {
			if _, err := fmt.Fprintf(aw.w, "\t.skip %#x\n", size); err != nil {
				return err
			}
		}
		current = until
	}
	return nil
}
