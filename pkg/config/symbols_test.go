package config

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppcsplit/ppcsplit/pkg/obj"
)

func newTestImage() *obj.Image {
	img := obj.NewImage(obj.ImageExecutable, "test")
	img.Sections = append(img.Sections, obj.Section{
		Name: ".text", Kind: obj.SectionCode, Address: 0x1000, Size: 0x1000, Index: 0,
	})
	return img
}

func TestReadSymbols_BasicLine(t *testing.T) {
	img := newTestImage()
	input := "main = .text:0x1000; // type:function size:0x20 scope:global\n"

	require.NoError(t, ReadSymbols(strings.NewReader(input), img))
	require.Len(t, img.Symbols, 1)

	sym := img.Symbols[0]
	assert.Equal(t, "main", sym.Name)
	assert.Equal(t, uint32(0x1000), sym.Address)
	assert.Equal(t, 0, sym.Section)
	assert.Equal(t, obj.SymbolFunction, sym.Kind)
	assert.True(t, sym.SizeKnown)
	assert.Equal(t, uint32(0x20), sym.Size)
	assert.Equal(t, obj.ScopeGlobal, sym.Scope)
}

func TestReadSymbols_CommentsAndBlankLinesIgnored(t *testing.T) {
	img := newTestImage()
	input := "// a comment\n\n# another comment\n"
	require.NoError(t, ReadSymbols(strings.NewReader(input), img))
	assert.Empty(t, img.Symbols)
}

func TestReadSymbols_NorelocRegistersBlockedRange(t *testing.T) {
	img := newTestImage()
	input := "data = .text:0x1000; // type:object size:0x10 noreloc\n"
	require.NoError(t, ReadSymbols(strings.NewReader(input), img))
	require.Len(t, img.BlockedRanges, 1)
	assert.Equal(t, obj.AddressRange{Start: 0x1000, End: 0x1010}, img.BlockedRanges[0])
}

func TestReadSymbols_NorelocWithoutSizeFails(t *testing.T) {
	img := newTestImage()
	input := "data = .text:0x1000; // type:object noreloc\n"
	err := ReadSymbols(strings.NewReader(input), img)
	require.Error(t, err)
	assert.ErrorIs(t, err, obj.ErrConfig)
}

func TestSymbolsRoundTrip(t *testing.T) {
	img := newTestImage()
	img.Symbols = []obj.Symbol{
		{Name: "main", Address: 0x1000, Section: 0, Size: 0x20, SizeKnown: true, Kind: obj.SymbolFunction, Scope: obj.ScopeGlobal},
		{Name: "helper", Address: 0x1020, Section: 0, Kind: obj.SymbolFunction, Flags: obj.SymbolFlags{Hidden: true}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSymbols(&buf, img))

	img2 := newTestImage()
	require.NoError(t, ReadSymbols(strings.NewReader(buf.String()), img2))
	require.Len(t, img2.Symbols, 2)
	assert.Equal(t, img.Symbols[0].Name, img2.Symbols[0].Name)
	assert.Equal(t, img.Symbols[0].Address, img2.Symbols[0].Address)
	assert.Equal(t, img.Symbols[1].Flags.Hidden, img2.Symbols[1].Flags.Hidden)

	var buf2 bytes.Buffer
	require.NoError(t, WriteSymbols(&buf2, img2))
	assert.Equal(t, buf.String(), buf2.String())
}
