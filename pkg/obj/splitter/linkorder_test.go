package splitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppcsplit/ppcsplit/pkg/obj"
)

func newSection(name string, kind obj.SectionKind, addr, size uint32) obj.Section {
	return obj.Section{Name: name, Kind: kind, Address: addr, Size: size, Data: make([]byte, size)}
}

func TestResolveLinkOrder_OrdersByConcatenation(t *testing.T) {
	img := obj.NewImage(obj.ImageExecutable, "test")
	img.Sections = append(img.Sections, newSection(".text", obj.SectionCode, 0x1000, 0x40))
	img.AddSplit(&obj.Split{Section: 0, Start: 0x1000, End: 0x1020, Unit: "a.c"})
	img.AddSplit(&obj.Split{Section: 0, Start: 0x1020, End: 0x1040, Unit: "b.c"})

	order, err := ResolveLinkOrder(img)
	require.NoError(t, err)
	require.Len(t, order, 2)
	assert.Equal(t, "a.c", order[0].Name)
	assert.Equal(t, "b.c", order[1].Name)
}

func TestResolveLinkOrder_CyclicFails(t *testing.T) {
	img := obj.NewImage(obj.ImageExecutable, "test")
	img.Sections = append(img.Sections,
		newSection(".text", obj.SectionCode, 0x1000, 0x40),
		newSection(".data", obj.SectionData, 0x2000, 0x40),
	)
	// .text orders U before V; .data orders V before U: a cycle.
	img.AddSplit(&obj.Split{Section: 0, Start: 0x1000, End: 0x1020, Unit: "U"})
	img.AddSplit(&obj.Split{Section: 0, Start: 0x1020, End: 0x1040, Unit: "V"})
	img.AddSplit(&obj.Split{Section: 1, Start: 0x2000, End: 0x2020, Unit: "V"})
	img.AddSplit(&obj.Split{Section: 1, Start: 0x2020, End: 0x2040, Unit: "U"})

	_, err := ResolveLinkOrder(img)
	require.Error(t, err)
	assert.ErrorIs(t, err, obj.ErrTopology)
}

func TestResolveLinkOrder_CtorsFirstSplitSkipsEdge(t *testing.T) {
	img := obj.NewImage(obj.ImageExecutable, "test")
	img.Sections = append(img.Sections, newSection(".ctors", obj.SectionData, 0x3000, 0x0c))
	// startup_unit -> a.c -> b.c in address order, but the edge out of the
	// first (startup) split must not be added.
	img.AddSplit(&obj.Split{Section: 0, Start: 0x3000, End: 0x3004, Unit: "startup_unit"})
	img.AddSplit(&obj.Split{Section: 0, Start: 0x3004, End: 0x3008, Unit: "a.c"})
	img.AddSplit(&obj.Split{Section: 0, Start: 0x3008, End: 0x300c, Unit: "b.c"})

	order, err := ResolveLinkOrder(img)
	require.NoError(t, err)
	require.Len(t, order, 3)

	// Without the startup_unit -> a.c edge, ordering among the three units
	// is unconstrained except a.c before b.c; startup_unit's position is
	// decided only by lexical tie-break among roots, which puts a.c first.
	// With the edge, startup_unit would have to precede a.c.
	pos := make(map[string]int, len(order))
	for i, u := range order {
		pos[u.Name] = i
	}
	assert.Less(t, pos["a.c"], pos["b.c"])
	assert.Less(t, pos["a.c"], pos["startup_unit"])
}

func TestResolveLinkOrder_CommonTransitionSkipsEdge(t *testing.T) {
	img := obj.NewImage(obj.ImageExecutable, "test")
	img.Sections = append(img.Sections, newSection(".bss", obj.SectionBss, 0x4000, 0x40))
	img.AddSplit(&obj.Split{Section: 0, Start: 0x4000, End: 0x4020, Unit: "b.c"})
	img.AddSplit(&obj.Split{Section: 0, Start: 0x4020, End: 0x4040, Unit: "a.c", Common: true})

	order, err := ResolveLinkOrder(img)
	require.NoError(t, err)
	require.Len(t, order, 2)
	// A b.c -> a.c edge would force b.c first. Without it both units are
	// roots and the lexical tie-break puts a.c first.
	assert.Equal(t, "a.c", order[0].Name)
	assert.Equal(t, "b.c", order[1].Name)
}

func TestResolveLinkOrder_PreservesExistingDescriptor(t *testing.T) {
	img := obj.NewImage(obj.ImageExecutable, "test")
	img.Sections = append(img.Sections, newSection(".text", obj.SectionCode, 0x1000, 0x20))
	img.AddSplit(&obj.Split{Section: 0, Start: 0x1000, End: 0x1020, Unit: "a.c"})
	img.LinkOrder = []obj.Unit{{Name: "a.c", CommentVersion: 7, HasComment: true}}

	order, err := ResolveLinkOrder(img)
	require.NoError(t, err)
	require.Len(t, order, 1)
	assert.True(t, order[0].HasComment)
	assert.Equal(t, uint8(7), order[0].CommentVersion)
}
