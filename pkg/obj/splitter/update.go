package splitter

import "github.com/ppcsplit/ppcsplit/pkg/obj"

// UpdateSplits implements spec section 4.1, the split propagator
// orchestrator. Passes run in the order the reference implementation's
// update_splits applies them: extabindex before ctors/dtors, since a
// ctors/dtors entry's function may itself require an extabindex-derived
// unit assignment resolved first; gap-fill and common-bss propagation run
// last, once every explicit and inferred split is in place.
func UpdateSplits(img *obj.Image) error {
	if err := PropagateExtabindex(img); err != nil {
		return err
	}
	if err := PropagateCtorsDtors(img); err != nil {
		return err
	}
	if err := CreateGapSplits(img); err != nil {
		return err
	}
	if err := UpdateCommonSplits(img); err != nil {
		return err
	}

	order, err := ResolveLinkOrder(img)
	if err != nil {
		return err
	}
	img.LinkOrder = order
	return nil
}
