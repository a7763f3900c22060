package splitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppcsplit/ppcsplit/pkg/obj"
)

func TestSplitObj_RequiresResolvedLinkOrder(t *testing.T) {
	img := obj.NewImage(obj.ImageExecutable, "test")
	_, err := SplitObj(img)
	require.Error(t, err)
	assert.ErrorIs(t, err, obj.ErrStructural)
}

func TestSplitObj_CrossUnitReferenceGlobalizesLocal(t *testing.T) {
	img := obj.NewImage(obj.ImageExecutable, "test")
	img.Sections = append(img.Sections, obj.Section{
		Name: ".text", Kind: obj.SectionCode, Address: 0x1000, Size: 0x40,
		Data: make([]byte, 0x40), Index: 0,
	})
	// a.c owns [0x1000, 0x1020): a local "helper" function, called from b.c.
	img.Symbols = append(img.Symbols,
		obj.Symbol{Name: "helper", Address: 0x1000, Section: 0, Size: 0x10, SizeKnown: true, Kind: obj.SymbolFunction, Scope: obj.ScopeLocal},
		obj.Symbol{Name: "caller", Address: 0x1020, Section: 0, Size: 0x10, SizeKnown: true, Kind: obj.SymbolFunction, Scope: obj.ScopeGlobal},
	)
	img.Sections[0].Relocations = append(img.Sections[0].Relocations, obj.Relocation{
		Kind: obj.RelocPpcRel24, Address: 0x1024, Target: 0, // references "helper"
	})

	img.AddSplit(&obj.Split{Section: 0, Start: 0x1000, End: 0x1020, Unit: "a.c"})
	img.AddSplit(&obj.Split{Section: 0, Start: 0x1020, End: 0x1040, Unit: "b.c"})
	img.LinkOrder = []obj.Unit{{Name: "a.c"}, {Name: "b.c"}}

	outs, err := SplitObj(img)
	require.NoError(t, err)
	require.Len(t, outs, 2)

	a := outs[0]
	require.Equal(t, "a.c", a.Name)
	var helperSym *obj.Symbol
	for i := range a.Symbols {
		if a.Symbols[i].Name == "helper_00001000" {
			helperSym = &a.Symbols[i]
		}
	}
	require.NotNil(t, helperSym, "helper should have been renamed with its address suffix")
	assert.Equal(t, obj.ScopeGlobal, helperSym.Scope)

	b := outs[1]
	require.Equal(t, "b.c", b.Name)
	require.Len(t, b.Sections, 1)
	require.Len(t, b.Sections[0].Relocations, 1)
	extIdx := b.Sections[0].Relocations[0].Target
	assert.Equal(t, "helper_00001000", b.Symbols[extIdx].Name)
	assert.Equal(t, obj.NoSection, b.Symbols[extIdx].Section)
}

func TestSplitObj_CommonSplitPadsGapsBetweenSymbols(t *testing.T) {
	img := obj.NewImage(obj.ImageExecutable, "test")
	img.Sections = append(img.Sections, obj.Section{
		Name: ".bss", Kind: obj.SectionBss, Address: 0x4000, Size: 0x40, Index: 0,
	})
	img.Symbols = append(img.Symbols,
		obj.Symbol{Name: "g_one", Address: 0x4000, Section: 0, Size: 0x10, SizeKnown: true, Kind: obj.SymbolObject},
		obj.Symbol{Name: "g_two", Address: 0x4020, Section: 0, Size: 0x10, SizeKnown: true, Kind: obj.SymbolObject},
	)
	img.AddSplit(&obj.Split{Section: 0, Start: 0x4000, End: 0x4040, Unit: "a.c", Common: true})
	img.LinkOrder = []obj.Unit{{Name: "a.c"}}

	outs, err := SplitObj(img)
	require.NoError(t, err)
	require.Len(t, outs, 1)

	a := outs[0]
	require.NotNil(t, a.Comment)
	assert.Equal(t, uint8(8), a.Comment.Version)

	var names []string
	for _, s := range a.Symbols {
		names = append(names, s.Name)
		assert.Equal(t, obj.ScopeCommon, s.Scope)
		assert.Equal(t, obj.NoSection, s.Section)
	}
	assert.Contains(t, names, "g_one")
	assert.Contains(t, names, "g_two")
	assert.Contains(t, names, "pad_0000004010")
}

func TestSplitObj_LinkerGeneratedSymbolExternalized(t *testing.T) {
	img := obj.NewImage(obj.ImageExecutable, "test")
	img.Sections = append(img.Sections, obj.Section{
		Name: ".data", Kind: obj.SectionData, Address: 0x1000, Size: 0x20,
		Data: make([]byte, 0x20), Index: 0,
	})
	img.Symbols = append(img.Symbols,
		obj.Symbol{Name: "_SDA_BASE_", Address: 0x1000, Section: 0, Size: 0x10, SizeKnown: true, Kind: obj.SymbolObject, Scope: obj.ScopeGlobal},
	)
	img.AddSplit(&obj.Split{Section: 0, Start: 0x1000, End: 0x1020, Unit: "a.c"})
	img.LinkOrder = []obj.Unit{{Name: "a.c"}}

	outs, err := SplitObj(img)
	require.NoError(t, err)
	a := outs[0]
	require.Len(t, a.Symbols, 1)
	assert.Equal(t, obj.NoSection, a.Symbols[0].Section)
	assert.Equal(t, obj.ScopeGlobal, a.Symbols[0].Scope)
}
