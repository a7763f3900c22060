package splitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppcsplit/ppcsplit/pkg/obj"
)

func TestCreateGapSplits_WholeSectionUncovered(t *testing.T) {
	img := obj.NewImage(obj.ImageExecutable, "test")
	img.Sections = append(img.Sections, obj.Section{
		Name: ".text", Kind: obj.SectionCode, Address: 0x1000, Size: 0x20, Data: make([]byte, 0x20), Index: 0,
	})

	require.NoError(t, CreateGapSplits(img))

	sp := img.SplitAt(0, 0x1000)
	require.NotNil(t, sp)
	assert.Equal(t, "00001000_text", sp.Unit)
	assert.True(t, sp.Autogenerated)
	assert.Equal(t, uint32(0x1020), sp.End)
}

func TestCreateGapSplits_DuplicateSymbolTruncates(t *testing.T) {
	img := obj.NewImage(obj.ImageExecutable, "test")
	img.Sections = append(img.Sections, obj.Section{
		Name: ".text", Kind: obj.SectionCode, Address: 0x1000, Size: 0x40, Data: make([]byte, 0x40), Index: 0,
	})
	img.Symbols = append(img.Symbols,
		obj.Symbol{Name: "dup", Address: 0x1000, Section: 0, Kind: obj.SymbolFunction},
		obj.Symbol{Name: "dup", Address: 0x1020, Section: 0, Kind: obj.SymbolFunction},
	)

	require.NoError(t, CreateGapSplits(img))

	first := img.SplitAt(0, 0x1000)
	require.NotNil(t, first)
	assert.Equal(t, uint32(0x1020), first.End)

	second := img.SplitAt(0, 0x1020)
	require.NotNil(t, second)
	assert.Equal(t, "00001020_text", second.Unit)
}

func TestCreateGapSplits_SkipsAlreadyCoveredRanges(t *testing.T) {
	img := obj.NewImage(obj.ImageExecutable, "test")
	img.Sections = append(img.Sections, obj.Section{
		Name: ".text", Kind: obj.SectionCode, Address: 0x1000, Size: 0x40, Data: make([]byte, 0x40), Index: 0,
	})
	img.AddSplit(&obj.Split{Section: 0, Start: 0x1000, End: 0x1020, Unit: "explicit.c"})

	require.NoError(t, CreateGapSplits(img))

	explicit := img.SplitAt(0, 0x1000)
	require.NotNil(t, explicit)
	assert.Equal(t, "explicit.c", explicit.Unit)

	gap := img.SplitAt(0, 0x1020)
	require.NotNil(t, gap)
	assert.True(t, gap.Autogenerated)
	assert.Equal(t, "00001020_text", gap.Unit)
}
