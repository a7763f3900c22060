// Package splitter implements the split propagator, link-order resolver,
// and executable-to-relocatables splitter described in spec section 4.
package splitter

import (
	"fmt"
	"strings"

	"github.com/ppcsplit/ppcsplit/pkg/obj"
)

// PropagateCtorsDtors implements spec section 4.1.1. It scans .ctors from
// its start to end-4 (skipping the terminating null pointer) and .dtors
// from start+4 (skipping __destroy_global_chain_reference) to end-4,
// ensuring each function-pointer entry shares a unit with its pointed-to
// function.
func PropagateCtorsDtors(img *obj.Image) error {
	if idx := img.SectionByName(".ctors"); idx != -1 {
		s := &img.Sections[idx]
		if err := propagateTable(img, idx, s.Address, s.Address+s.Size-4); err != nil {
			return err
		}
	}
	if idx := img.SectionByName(".dtors"); idx != -1 {
		s := &img.Sections[idx]
		if err := propagateTable(img, idx, s.Address+4, s.Address+s.Size-4); err != nil {
			return err
		}
	}
	return nil
}

func propagateTable(img *obj.Image, sectionIdx int, start, end uint32) error {
	section := &img.Sections[sectionIdx]

	var pending []*obj.Split
	var referenced []int

	for cur := start; cur < end; cur += 4 {
		funcAddr, err := section.ReadBE32(cur)
		if err != nil {
			return obj.WrapError(obj.ErrConsistency, "%v", err)
		}

		funcSecIdx := img.SectionContaining(funcAddr)
		if funcSecIdx == -1 {
			return obj.WrapError(obj.ErrConsistency, "failed to find function symbol @ %#010x", funcAddr)
		}
		funcSymIdx := img.SymbolAt(funcSecIdx, funcAddr, obj.SymbolFunction)
		if funcSymIdx == -1 {
			return obj.WrapError(obj.ErrConsistency, "failed to find function symbol @ %#010x", funcAddr)
		}
		funcSym := &img.Symbols[funcSymIdx]
		referenced = append(referenced, funcSymIdx)

		ctorsSplit := img.SplitAt(sectionIdx, cur)
		funcSplit := img.SplitAt(funcSecIdx, funcAddr)

		var expectedUnit string
		haveExpected := false
		if ctorsSplit != nil {
			expectedUnit, haveExpected = ctorsSplit.Unit, true
		}
		if funcSplit != nil {
			if haveExpected {
				if expectedUnit != funcSplit.Unit {
					return obj.WrapError(obj.ErrConsistency,
						"mismatched splits for %s %#010x (%s) and function %#010x (%s)",
						section.Name, cur, expectedUnit, funcAddr, funcSplit.Unit)
				}
			} else {
				expectedUnit, haveExpected = funcSplit.Unit, true
			}
		}

		if ctorsSplit == nil || funcSplit == nil {
			unit := expectedUnit
			if !haveExpected {
				unit = synthesizeUnitName(img, funcSym)
			}

			if ctorsSplit == nil {
				pending = append(pending, &obj.Split{
					Section: sectionIdx, Start: cur, End: cur + 4,
					Unit: unit, Autogenerated: true,
				})
			}
			if funcSplit == nil {
				pending = append(pending, &obj.Split{
					Section: funcSecIdx, Start: funcAddr, End: funcAddr + funcSym.Size,
					Unit: unit, Autogenerated: true,
				})
			}
		}
	}

	for _, sp := range pending {
		img.AddSplit(sp)
	}
	// Hack to avoid dead-stripping (spec section 9): mark referenced
	// functions as externally referenced. The core does not act on this
	// flag itself; it is a hint for the upstream ELF emitter.
	for _, symIdx := range referenced {
		img.Symbols[symIdx].Flags.ExternallyReferenced = true
	}
	return nil
}

// synthesizeUnitName builds "{function_name}_{section_suffix}" where the
// suffix is the function's section name with its leading dot stripped.
func synthesizeUnitName(img *obj.Image, funcSym *obj.Symbol) string {
	sectionName := "unknown"
	if funcSym.Section != obj.NoSection {
		sectionName = img.Sections[funcSym.Section].Name
	}
	return fmt.Sprintf("%s_%s", funcSym.Name, strings.TrimPrefix(sectionName, "."))
}
