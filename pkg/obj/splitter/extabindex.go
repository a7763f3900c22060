package splitter

import "github.com/ppcsplit/ppcsplit/pkg/obj"

// PropagateExtabindex implements spec section 4.1.2. Each extabindex entry
// is three big-endian words: the owning function's address, the
// function's size, and the address of its exception-table entry in
// extab. The table runs from the section's start up to the
// "_eti_init_info" linker symbol, which marks the boundary between real
// entries and the linker-generated trailer. All three referenced splits
// (extabindex entry, extab entry, function) must agree on a unit.
func PropagateExtabindex(img *obj.Image) error {
	idxIdx := img.SectionByName("extabindex")
	if idxIdx == -1 {
		return nil
	}
	extabIdx := img.SectionByName("extab")
	if extabIdx == -1 {
		return obj.WrapError(obj.ErrConsistency, "extabindex section present without an extab section")
	}

	idxSection := &img.Sections[idxIdx]

	etiInfoIdx := findSymbolByName(img, "_eti_init_info")
	if etiInfoIdx == -1 {
		return obj.WrapError(obj.ErrConsistency, "failed to find _eti_init_info symbol")
	}
	etiInfo := &img.Symbols[etiInfoIdx]
	if etiInfo.Section != idxIdx {
		return obj.WrapError(obj.ErrConsistency, "_eti_init_info symbol in the wrong section")
	}
	sectionEnd := etiInfo.Address

	var pending []*obj.Split

	for cur := idxSection.Address; cur < sectionEnd; cur += 12 {
		funcAddr, err := idxSection.ReadBE32(cur)
		if err != nil {
			return obj.WrapError(obj.ErrConsistency, "%v", err)
		}
		funcSize, err := idxSection.ReadBE32(cur + 4)
		if err != nil {
			return obj.WrapError(obj.ErrConsistency, "%v", err)
		}
		extabAddr, err := idxSection.ReadBE32(cur + 8)
		if err != nil {
			return obj.WrapError(obj.ErrConsistency, "%v", err)
		}

		entrySymIdx := img.SymbolAt(idxIdx, cur, obj.SymbolObject)
		if entrySymIdx == -1 {
			return obj.WrapError(obj.ErrConsistency, "failed to find extabindex symbol @ %#010x", cur)
		}
		entrySym := &img.Symbols[entrySymIdx]
		if !entrySym.SizeKnown || entrySym.Size != 12 {
			return obj.WrapError(obj.ErrConsistency, "extabindex symbol %s has mismatched size (%#x, expected %#x)", entrySym.Name, entrySym.Size, 12)
		}

		funcSecIdx := img.SectionContaining(funcAddr)
		if funcSecIdx == -1 {
			return obj.WrapError(obj.ErrConsistency, "failed to find function @ %#010x referenced by extabindex entry %#010x", funcAddr, cur)
		}
		funcSymIdx := img.SymbolAt(funcSecIdx, funcAddr, obj.SymbolFunction)
		if funcSymIdx == -1 {
			return obj.WrapError(obj.ErrConsistency, "failed to find function symbol @ %#010x", funcAddr)
		}
		funcSym := &img.Symbols[funcSymIdx]
		if funcSym.SizeKnown && funcSym.Size != funcSize {
			return obj.WrapError(obj.ErrConsistency, "function symbol %s has mismatched size (%#x, expected %#x)", funcSym.Name, funcSym.Size, funcSize)
		}

		extabSecIdx := img.SectionContaining(extabAddr)
		if extabSecIdx == -1 {
			return obj.WrapError(obj.ErrConsistency, "failed to find extab symbol @ %#010x", extabAddr)
		}
		extabSymIdx := img.SymbolAt(extabSecIdx, extabAddr, obj.SymbolObject)
		if extabSymIdx == -1 {
			return obj.WrapError(obj.ErrConsistency, "failed to find extab symbol @ %#010x", extabAddr)
		}
		extabSym := &img.Symbols[extabSymIdx]
		if !extabSym.SizeKnown || extabSym.Size == 0 {
			return obj.WrapError(obj.ErrConsistency, "extab symbol %s has unknown size", extabSym.Name)
		}

		idxSplit := img.SplitAt(idxIdx, cur)
		extabSplit := img.SplitAt(extabSecIdx, extabAddr)
		funcSplit := img.SplitAt(funcSecIdx, funcAddr)

		var expectedUnit string
		haveExpected := false
		if idxSplit != nil {
			expectedUnit, haveExpected = idxSplit.Unit, true
		}
		if extabSplit != nil {
			if haveExpected && expectedUnit != extabSplit.Unit {
				return obj.WrapError(obj.ErrConsistency, "mismatched splits for extabindex %#010x (%s) and extab %#010x (%s)", cur, expectedUnit, extabAddr, extabSplit.Unit)
			}
			expectedUnit, haveExpected = extabSplit.Unit, true
		}
		if funcSplit != nil {
			if haveExpected && expectedUnit != funcSplit.Unit {
				return obj.WrapError(obj.ErrConsistency, "mismatched splits for extabindex %#010x (%s) and function %#010x (%s)", cur, expectedUnit, funcAddr, funcSplit.Unit)
			}
			expectedUnit, haveExpected = funcSplit.Unit, true
		}

		if idxSplit == nil || extabSplit == nil || funcSplit == nil {
			unit := expectedUnit
			if !haveExpected {
				unit = synthesizeUnitName(img, funcSym)
			}

			if idxSplit == nil {
				pending = append(pending, &obj.Split{
					Section: idxIdx, Start: cur, End: cur + 12,
					Unit: unit, Autogenerated: true,
				})
			}
			if extabSplit == nil {
				pending = append(pending, &obj.Split{
					Section: extabSecIdx, Start: extabAddr, End: extabAddr + extabSym.Size,
					Unit: unit, Autogenerated: true,
				})
			}
			if funcSplit == nil {
				pending = append(pending, &obj.Split{
					Section: funcSecIdx, Start: funcAddr, End: funcAddr + funcSize,
					Unit: unit, Autogenerated: true,
				})
			}
		}
	}

	for _, sp := range pending {
		img.AddSplit(sp)
	}
	return nil
}

func findSymbolByName(img *obj.Image, name string) int {
	for i := range img.Symbols {
		if img.Symbols[i].Name == name {
			return i
		}
	}
	return -1
}
