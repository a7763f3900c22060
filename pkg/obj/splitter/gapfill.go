package splitter

import (
	"fmt"
	"strings"

	"github.com/ppcsplit/ppcsplit/pkg/obj"
)

// CreateGapSplits implements spec section 4.1.3: any address range within a
// section not already covered by a split is filled with one or more
// autogenerated splits named "{start:08X}_{section_without_leading_dot}".
// A gap containing two symbols of the same name is truncated at the first
// duplicate, since a duplicate symbol name within one split would make the
// emitted assembly ambiguous; the remainder of the gap starts a fresh
// split at the duplicate's address.
func CreateGapSplits(img *obj.Image) error {
	for secIdx := range img.Sections {
		section := &img.Sections[secIdx]
		sectionEnd := EndForSection(img, secIdx)
		existing := img.SplitsInSection(secIdx)

		cursor := section.Address
		splitIdx := 0

		for cursor < sectionEnd {
			var splitStart, splitEnd uint32
			haveSplit := splitIdx < len(existing)
			if haveSplit {
				splitStart = existing[splitIdx].Start
				splitEnd = existing[splitIdx].ResolvedEnd(0)
			} else {
				splitStart = sectionEnd
				splitEnd = 0
			}

			if splitStart < cursor {
				return obj.WrapError(obj.ErrStructural, "split %#010x..%#010x overlaps with previous split", splitStart, splitEnd)
			}

			if splitStart > cursor {
				newEnd := splitStart
				seen := make(map[string]bool)
				for _, symIdx := range img.SymbolsInRange(secIdx, cursor, splitStart) {
					sym := &img.Symbols[symIdx]
					if seen[sym.Name] {
						newEnd = sym.Address
						break
					}
					seen[sym.Name] = true
				}

				unit := fmt.Sprintf("%08X_%s", cursor, strings.TrimPrefix(section.Name, "."))
				img.AddSplit(&obj.Split{
					Section:       secIdx,
					Start:         cursor,
					End:           newEnd,
					Unit:          unit,
					Autogenerated: true,
				})
				cursor = newEnd
				continue
			}

			splitIdx++
			if splitEnd > 0 {
				cursor = splitEnd
			} else if splitIdx < len(existing) {
				next := existing[splitIdx].Start
				if next < sectionEnd {
					cursor = next
				} else {
					cursor = sectionEnd
				}
			} else {
				cursor = sectionEnd
			}
		}
	}
	return nil
}
