package lod

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brain2-lod/internal/domain/graph"
)

func TestAggregateEdges(t *testing.T) {
	// Two spatial buckets 1000 units apart, three nodes each.
	nodes := make([]graph.Node, 6)
	for i := range nodes {
		x := float64(i%3) * 10
		if i >= 3 {
			x += 1000
		}
		nodes[i] = graph.Node{ID: fmt.Sprintf("n%d", i), Position: graph.Position{X: x}}
	}
	snap := testSnapshot(nodes, []graph.Edge{
		testEdge("e0", "n0", "n3"), // cross
		testEdge("e1", "n3", "n1"), // cross, reversed direction
		testEdge("e2", "n0", "n1"), // intra
		testEdge("e3", "n4", "n5"), // intra
		testEdge("e4", "n2", "ghost"),
	})

	levels := NewBuilder(BuildConfig{SpatialCellSize: 300}).Build(snap)
	idx := NewClusterIndex()
	idx.Rebuild(levels)

	counts := AggregateEdges(snap.Edges, KindSpatial, idx)

	left := idx.Lookup("n0", KindSpatial)
	right := idx.Lookup("n3", KindSpatial)
	require.NotNil(t, left)
	require.NotNil(t, right)
	require.NotEqual(t, left.ID, right.ID)

	// Both crossing edges land under the same normalized key regardless of
	// direction; intra-cluster and dangling edges contribute nothing.
	require.Len(t, counts, 1)
	assert.Equal(t, 2, counts[NewPairKey(left.ID, right.ID)])
	assert.Equal(t, 2, counts[NewPairKey(right.ID, left.ID)])
}

func TestAggregateEdgesConservation(t *testing.T) {
	// Every inter-cluster edge must be counted exactly once, even when caps
	// split a bucket into several clusters.
	snap := chainSnapshot(40)

	levels := NewBuilder(BuildConfig{
		SpatialCellSize: 60, // 6 nodes per bucket at spacing 10
		ClusterCaps:     KindValues{Spatial: 4},
	}).Build(snap)
	idx := NewClusterIndex()
	idx.Rebuild(levels)

	counts := AggregateEdges(snap.Edges, KindSpatial, idx)

	crossing := 0
	for _, e := range snap.Edges {
		src := idx.Lookup(e.SourceID, KindSpatial)
		tgt := idx.Lookup(e.TargetID, KindSpatial)
		require.NotNil(t, src)
		require.NotNil(t, tgt)
		if src.ID != tgt.ID {
			crossing++
		}
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	assert.Equal(t, crossing, total)
	assert.NotZero(t, crossing, "fixture must actually produce crossing edges")
}

func TestNewPairKey(t *testing.T) {
	assert.Equal(t, NewPairKey("a", "b"), NewPairKey("b", "a"))
	assert.NotEqual(t, NewPairKey("a", "b"), NewPairKey("a", "c"))
}
