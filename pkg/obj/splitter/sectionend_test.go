package splitter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ppcsplit/ppcsplit/pkg/obj"
)

func TestEndForSection_TrimsCtorsNullTerminator(t *testing.T) {
	img := obj.NewImage(obj.ImageExecutable, "test")
	var data []byte
	data = append(data, be32(0x1000)...)
	data = append(data, be32(0)...)
	img.Sections = append(img.Sections, obj.Section{
		Name: ".ctors", Kind: obj.SectionData, Address: 0x2000, Size: uint32(len(data)), Data: data, Index: 0,
	})

	end := EndForSection(img, 0)
	assert.Equal(t, uint32(0x2004), end)
}

func TestEndForSection_PullsBackPastLinkerTrailer(t *testing.T) {
	img := obj.NewImage(obj.ImageExecutable, "test")
	img.Sections = append(img.Sections, obj.Section{
		Name: ".data", Kind: obj.SectionData, Address: 0x1000, Size: 0x40, Data: make([]byte, 0x40), Index: 0,
	})
	img.Symbols = append(img.Symbols,
		obj.Symbol{Name: "real_obj", Address: 0x1000, Section: 0, Size: 0x10, SizeKnown: true, Kind: obj.SymbolObject},
		obj.Symbol{Name: "_rom_copy_info", Address: 0x1010, Section: 0, Size: 0x30, SizeKnown: true, Kind: obj.SymbolObject},
	)

	end := EndForSection(img, 0)
	assert.Equal(t, uint32(0x1010), end)
}

func TestEndForSection_NoSymbolsUsesSectionEnd(t *testing.T) {
	img := obj.NewImage(obj.ImageExecutable, "test")
	img.Sections = append(img.Sections, obj.Section{
		Name: ".text", Kind: obj.SectionCode, Address: 0x1000, Size: 0x40, Data: make([]byte, 0x40), Index: 0,
	})

	end := EndForSection(img, 0)
	assert.Equal(t, uint32(0x1040), end)
}
