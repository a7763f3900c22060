package splitter

import "github.com/ppcsplit/ppcsplit/pkg/obj"

// UpdateCommonSplits implements spec section 4.1.4: once any split within
// .bss is flagged common (by the operator's splits file), every split from
// that address to the section's end is common too, since CodeWarrior
// allocates common storage as one contiguous trailing run and never
// interleaves it with ordinary .bss content.
func UpdateCommonSplits(img *obj.Image) error {
	secIdx := img.SectionByName(".bss")
	if secIdx == -1 {
		return nil
	}

	splits := img.SplitsInSection(secIdx)

	commonStart := -1
	for i, sp := range splits {
		if sp.Common {
			commonStart = i
			break
		}
	}
	if commonStart == -1 {
		return nil
	}

	for _, sp := range splits[commonStart:] {
		sp.Common = true
	}
	return nil
}
