package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brain2-lod/internal/domain/lod"
)

func sampleClusters() []lod.Cluster {
	return []lod.Cluster{
		{
			ID:               "spatial:0,0",
			Kind:             lod.KindSpatial,
			Members:          []string{"a", "b", "c"},
			RepresentativeID: "a",
		},
		{
			ID:               "spatial:1,0",
			Kind:             lod.KindSpatial,
			Members:          []string{"d"},
			RepresentativeID: "d",
		},
	}
}

func TestStyleAdapterApply(t *testing.T) {
	a := NewStyleAdapter()
	counts := map[lod.PairKey]int{
		lod.NewPairKey("spatial:0,0", "spatial:1,0"): 4,
	}

	a.Apply(lod.LevelCoarse, sampleClusters(), counts)

	assert.Equal(t, lod.LevelCoarse, a.Level())

	rep, ok := a.NodeStyleFor("a")
	require.True(t, ok)
	assert.True(t, rep.Visible)
	assert.Equal(t, "+3", rep.Label)
	assert.Equal(t, 1.0, rep.Opacity)
	assert.InDelta(t, RepresentativeScale(3), rep.Scale, 1e-9)

	member, ok := a.NodeStyleFor("b")
	require.True(t, ok)
	assert.True(t, member.Visible)
	assert.Less(t, member.Opacity, 0.1, "members are dimmed, not hidden")
	assert.Empty(t, member.Label)

	// Singleton clusters still get a representative style.
	solo, ok := a.NodeStyleFor("d")
	require.True(t, ok)
	assert.Equal(t, "+1", solo.Label)

	edges := a.AggregatedEdges()
	require.Len(t, edges, 1)
	assert.Equal(t, 4, edges[0].Count)
	assert.InDelta(t, AggregatedEdgeWidth(4), edges[0].Width, 1e-9)
}

func TestStyleAdapterRestore(t *testing.T) {
	a := NewStyleAdapter()
	a.Apply(lod.LevelMedium, sampleClusters(), nil)

	a.Restore()

	assert.Equal(t, lod.LevelFine, a.Level())
	_, ok := a.NodeStyleFor("a")
	assert.False(t, ok, "restore clears every override")
	assert.Empty(t, a.AggregatedEdges())
}

func TestRepresentativeScaleGrowsSlowly(t *testing.T) {
	small := RepresentativeScale(10)
	big := RepresentativeScale(10000)
	assert.Greater(t, big, small)
	assert.Less(t, big, 10.0, "log scaling keeps huge clusters on canvas")
}

func TestMultiFansOut(t *testing.T) {
	first := NewStyleAdapter()
	second := NewStyleAdapter()
	m := Multi{first, second}

	m.Apply(lod.LevelCoarse, sampleClusters(), nil)
	assert.Equal(t, lod.LevelCoarse, first.Level())
	assert.Equal(t, lod.LevelCoarse, second.Level())

	m.Restore()
	assert.Equal(t, lod.LevelFine, first.Level())
	assert.Equal(t, lod.LevelFine, second.Level())
}
