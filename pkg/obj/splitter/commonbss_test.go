package splitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppcsplit/ppcsplit/pkg/obj"
)

func TestUpdateCommonSplits_NoBssSection(t *testing.T) {
	img := obj.NewImage(obj.ImageExecutable, "test")
	require.NoError(t, UpdateCommonSplits(img))
}

func TestUpdateCommonSplits_NoCommonSplit(t *testing.T) {
	img := obj.NewImage(obj.ImageExecutable, "test")
	img.Sections = append(img.Sections, newSection(".bss", obj.SectionBss, 0x4000, 0x60))
	img.AddSplit(&obj.Split{Section: 0, Start: 0x4000, End: 0x4020, Unit: "a.c"})
	img.AddSplit(&obj.Split{Section: 0, Start: 0x4020, End: 0x4040, Unit: "b.c"})

	require.NoError(t, UpdateCommonSplits(img))
	assert.False(t, img.SplitAt(0, 0x4000).Common)
	assert.False(t, img.SplitAt(0, 0x4020).Common)
}

func TestUpdateCommonSplits_PropagatesToSectionEnd(t *testing.T) {
	img := obj.NewImage(obj.ImageExecutable, "test")
	img.Sections = append(img.Sections, newSection(".bss", obj.SectionBss, 0x4000, 0x60))
	img.AddSplit(&obj.Split{Section: 0, Start: 0x4000, End: 0x4020, Unit: "a.c"})
	img.AddSplit(&obj.Split{Section: 0, Start: 0x4020, End: 0x4040, Unit: "b.c", Common: true})
	img.AddSplit(&obj.Split{Section: 0, Start: 0x4040, End: 0x4060, Unit: "c.c"})

	require.NoError(t, UpdateCommonSplits(img))
	assert.False(t, img.SplitAt(0, 0x4000).Common)
	assert.True(t, img.SplitAt(0, 0x4020).Common)
	assert.True(t, img.SplitAt(0, 0x4040).Common)
}
