package splitter

import "github.com/ppcsplit/ppcsplit/pkg/obj"

// EndForSection implements spec section 4.1.5/4.6: the exclusive end
// address of real (non-linker-synthesized) content in a section.
//
// .ctors/.dtors end with a linker-generated null pointer; if the section's
// trailing 4 bytes are zero they are trimmed from the end. Otherwise, the
// last Object-kind symbol with a known nonzero size is inspected: if it is
// one of the linker's own synthetic trailer objects (_rom_copy_info,
// _ctors$99, ...) the section's real end is pulled back to that symbol's
// address, and the check repeats, since CodeWarrior can emit more than one
// such trailer back to back.
func EndForSection(img *obj.Image, secIdx int) uint32 {
	section := &img.Sections[secIdx]
	start := section.Address
	end := section.End()

	if section.IsCtorsOrDtors() && len(section.Data) >= 4 {
		tail := section.Data[len(section.Data)-4:]
		if tail[0] == 0 && tail[1] == 0 && tail[2] == 0 && tail[3] == 0 {
			return end - 4
		}
	}

	for {
		last := lastSizedObjectSymbol(img, secIdx, start, end)
		if last == nil || !obj.IsLinkerGeneratedObject(last.Name) {
			break
		}
		end = last.Address
	}
	return end
}

func lastSizedObjectSymbol(img *obj.Image, secIdx int, start, end uint32) *obj.Symbol {
	var last *obj.Symbol
	for _, idx := range img.SymbolsInRange(secIdx, start, end) {
		sym := &img.Symbols[idx]
		if sym.Kind != obj.SymbolObject || !sym.SizeKnown || sym.Size == 0 {
			continue
		}
		last = sym
	}
	return last
}
