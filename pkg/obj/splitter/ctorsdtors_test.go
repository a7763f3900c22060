package splitter

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppcsplit/ppcsplit/pkg/obj"
)

func be32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func TestPropagateCtorsDtors_NoTables(t *testing.T) {
	img := obj.NewImage(obj.ImageExecutable, "test")
	require.NoError(t, PropagateCtorsDtors(img))
}

func TestPropagateCtorsDtors_SharesUnitWithFunction(t *testing.T) {
	img := obj.NewImage(obj.ImageExecutable, "test")

	textData := append(append([]byte{}, make([]byte, 0x100)...))
	img.Sections = append(img.Sections, obj.Section{
		Name: ".text", Kind: obj.SectionCode, Address: 0x1000, Size: uint32(len(textData)), Data: textData, Index: 0,
	})

	var ctorsData []byte
	ctorsData = append(ctorsData, be32(0x1000)...)
	ctorsData = append(ctorsData, be32(0)...) // terminator
	img.Sections = append(img.Sections, obj.Section{
		Name: ".ctors", Kind: obj.SectionData, Address: 0x2000, Size: uint32(len(ctorsData)), Data: ctorsData, Index: 1,
	})

	img.Symbols = append(img.Symbols, obj.Symbol{
		Name: "static_init", Address: 0x1000, Section: 0, Size: 0x20, SizeKnown: true, Kind: obj.SymbolFunction,
	})

	err := PropagateCtorsDtors(img)
	require.NoError(t, err)

	ctorsSplit := img.SplitAt(1, 0x2000)
	funcSplit := img.SplitAt(0, 0x1000)
	require.NotNil(t, ctorsSplit)
	require.NotNil(t, funcSplit)
	assert.Equal(t, ctorsSplit.Unit, funcSplit.Unit)
	assert.Equal(t, "static_init_text", ctorsSplit.Unit)
}

func TestPropagateCtorsDtors_MismatchedSplitsError(t *testing.T) {
	img := obj.NewImage(obj.ImageExecutable, "test")

	img.Sections = append(img.Sections, obj.Section{
		Name: ".text", Kind: obj.SectionCode, Address: 0x1000, Size: 0x100, Data: make([]byte, 0x100), Index: 0,
	})
	var ctorsData []byte
	ctorsData = append(ctorsData, be32(0x1000)...)
	ctorsData = append(ctorsData, be32(0)...)
	img.Sections = append(img.Sections, obj.Section{
		Name: ".ctors", Kind: obj.SectionData, Address: 0x2000, Size: uint32(len(ctorsData)), Data: ctorsData, Index: 1,
	})
	img.Symbols = append(img.Symbols, obj.Symbol{
		Name: "static_init", Address: 0x1000, Section: 0, Size: 0x20, SizeKnown: true, Kind: obj.SymbolFunction,
	})

	img.AddSplit(&obj.Split{Section: 1, Start: 0x2000, End: 0x2004, Unit: "unit_a"})
	img.AddSplit(&obj.Split{Section: 0, Start: 0x1000, End: 0x1020, Unit: "unit_b"})

	err := PropagateCtorsDtors(img)
	require.Error(t, err)
	assert.ErrorIs(t, err, obj.ErrConsistency)
}
