package lod

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brain2-lod/internal/domain/graph"
)

func testSnapshot(nodes []graph.Node, edges []graph.Edge) *graph.Snapshot {
	return &graph.Snapshot{Nodes: nodes, Edges: edges, Version: 1}
}

func testEdge(id, source, target string) graph.Edge {
	return graph.Edge{ID: id, SourceID: source, TargetID: target}
}

// gridSnapshot lays count nodes on a diagonal so that cellSize controls how
// many land in each bucket.
func gridSnapshot(count int, spacing float64) *graph.Snapshot {
	nodes := make([]graph.Node, count)
	for i := 0; i < count; i++ {
		nodes[i] = graph.Node{
			ID:       fmt.Sprintf("n%d", i),
			Position: graph.Position{X: float64(i) * spacing, Y: 0},
			Type:     "document",
		}
	}
	return testSnapshot(nodes, nil)
}

// chainSnapshot builds a single path graph n0-n1-...-n(count-1).
func chainSnapshot(count int) *graph.Snapshot {
	snap := gridSnapshot(count, 10)
	for i := 0; i < count-1; i++ {
		snap.Edges = append(snap.Edges, graph.Edge{
			ID:       fmt.Sprintf("e%d", i),
			SourceID: fmt.Sprintf("n%d", i),
			TargetID: fmt.Sprintf("n%d", i+1),
		})
	}
	return snap
}

// assertPartition checks the core invariant: every node in exactly one
// cluster, no extras, and every representative a member of its cluster.
func assertPartition(t *testing.T, clusters []Cluster, snap *graph.Snapshot) {
	t.Helper()

	seen := make(map[string]string)
	for _, c := range clusters {
		require.NotEmpty(t, c.Members, "cluster %s has no members", c.ID)
		assert.True(t, c.Contains(c.RepresentativeID),
			"representative %s not a member of cluster %s", c.RepresentativeID, c.ID)
		for _, m := range c.Members {
			prev, dup := seen[m]
			require.False(t, dup, "node %s in both %s and %s", m, prev, c.ID)
			seen[m] = c.ID
		}
	}
	assert.Len(t, seen, len(snap.Nodes), "partition does not cover all nodes")
	for _, n := range snap.Nodes {
		_, ok := seen[n.ID]
		assert.True(t, ok, "node %s missing from partition", n.ID)
	}
}

func TestBuildSpatial(t *testing.T) {
	tests := []struct {
		name         string
		snap         *graph.Snapshot
		cellSize     float64
		cap          int
		wantClusters int
	}{
		{
			name:         "one bucket per node when cells are tiny",
			snap:         gridSnapshot(10, 100),
			cellSize:     50,
			wantClusters: 10,
		},
		{
			name:         "all nodes share one bucket with a huge cell",
			snap:         gridSnapshot(10, 1),
			cellSize:     1000,
			wantClusters: 1,
		},
		{
			name:         "oversized buckets split at the cap",
			snap:         gridSnapshot(10, 1),
			cellSize:     1000,
			cap:          4,
			wantClusters: 3, // 4 + 4 + 2
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder(BuildConfig{
				SpatialCellSize: tt.cellSize,
				ClusterCaps:     KindValues{Spatial: tt.cap},
			})
			levels := b.Build(tt.snap)

			clusters := levels.Spatial.Clusters
			assert.Len(t, clusters, tt.wantClusters)
			assertPartition(t, clusters, tt.snap)
		})
	}
}

func TestBuildSpatialNormalizesBadPositions(t *testing.T) {
	snap := testSnapshot([]graph.Node{
		{ID: "a", Position: graph.Position{X: math.NaN(), Y: 5}},
		{ID: "b", Position: graph.Position{X: math.Inf(1), Y: math.Inf(-1)}},
		{ID: "c", Position: graph.Position{X: 10, Y: 10}},
	}, nil)

	b := NewBuilder(BuildConfig{SpatialCellSize: 300})
	levels := b.Build(snap)

	// The two malformed nodes land at the origin cell together with c.
	require.Len(t, levels.Spatial.Clusters, 1)
	assertPartition(t, levels.Spatial.Clusters, snap)
}

func TestBuildConnectivity(t *testing.T) {
	t.Run("separate components stay separate", func(t *testing.T) {
		snap := gridSnapshot(6, 10)
		snap.Edges = []graph.Edge{
			{ID: "e0", SourceID: "n0", TargetID: "n1"},
			{ID: "e1", SourceID: "n2", TargetID: "n3"},
		}

		b := NewBuilder(BuildConfig{})
		clusters := b.Build(snap).Connectivity.Clusters

		assert.Len(t, clusters, 4) // {n0,n1} {n2,n3} {n4} {n5}
		assertPartition(t, clusters, snap)
	})

	t.Run("component cap splits a chain but keeps the partition", func(t *testing.T) {
		snap := chainSnapshot(10)

		b := NewBuilder(BuildConfig{ClusterCaps: KindValues{Connectivity: 4}})
		clusters := b.Build(snap).Connectivity.Clusters

		assertPartition(t, clusters, snap)
		for _, c := range clusters {
			assert.LessOrEqual(t, len(c.Members), 4)
		}
		// 10 nodes with a cap of 4 cannot fit in fewer than 3 components.
		assert.GreaterOrEqual(t, len(clusters), 3)
	})

	t.Run("dangling and self edges are ignored", func(t *testing.T) {
		snap := gridSnapshot(3, 10)
		snap.Edges = []graph.Edge{
			{ID: "e0", SourceID: "n0", TargetID: "ghost"},
			{ID: "e1", SourceID: "n1", TargetID: "n1"},
		}

		b := NewBuilder(BuildConfig{})
		clusters := b.Build(snap).Connectivity.Clusters

		assert.Len(t, clusters, 3)
		assertPartition(t, clusters, snap)
	})

	t.Run("representative is the traversal seed", func(t *testing.T) {
		snap := chainSnapshot(5)

		b := NewBuilder(BuildConfig{})
		clusters := b.Build(snap).Connectivity.Clusters

		require.Len(t, clusters, 1)
		assert.Equal(t, "n0", clusters[0].RepresentativeID)
	})
}

func TestBuildType(t *testing.T) {
	snap := testSnapshot([]graph.Node{
		{ID: "a", Type: "person"},
		{ID: "b", Type: ""},
		{ID: "c", Type: "person"},
		{ID: "d", Type: "place"},
	}, nil)

	b := NewBuilder(BuildConfig{})
	clusters := b.Build(snap).Type.Clusters

	require.Len(t, clusters, 3)
	assertPartition(t, clusters, snap)

	byID := make(map[string]Cluster)
	for _, c := range clusters {
		byID[c.ID] = c
	}
	assert.ElementsMatch(t, []string{"a", "c"}, byID["type:person"].Members)
	assert.ElementsMatch(t, []string{"b"}, byID["type:"+graph.DefaultType].Members)
	assert.ElementsMatch(t, []string{"d"}, byID["type:place"].Members)
}

func TestBuildSkipsKindsBelowActivation(t *testing.T) {
	snap := gridSnapshot(50, 10)

	b := NewBuilder(BuildConfig{
		Activation: KindValues{Spatial: 800, Connectivity: 300, Type: 25},
	})
	levels := b.Build(snap)

	assert.False(t, levels.Spatial.Built())
	assert.False(t, levels.Connectivity.Built())
	assert.True(t, levels.Type.Built())
}

func TestBuildDeterministic(t *testing.T) {
	snap := chainSnapshot(200)
	for i := range snap.Nodes {
		snap.Nodes[i].Type = typeFor(i)
	}

	for _, parallel := range []bool{false, true} {
		b := NewBuilder(BuildConfig{
			SpatialCellSize: 40,
			ClusterCaps:     KindValues{Spatial: 7, Connectivity: 13, Type: 11},
			Parallel:        parallel,
		})

		first := b.Build(snap)
		second := b.Build(snap)
		assert.Equal(t, first, second, "parallel=%v", parallel)
	}
}

func typeFor(i int) string {
	tags := []string{"document", "concept", "person"}
	return tags[i%len(tags)]
}

func TestBuildEmptySnapshot(t *testing.T) {
	b := NewBuilder(BuildConfig{})

	levels := b.Build(testSnapshot(nil, nil))
	assert.Empty(t, levels.Spatial.Clusters)
	assert.Empty(t, levels.Connectivity.Clusters)
	assert.Empty(t, levels.Type.Clusters)

	levels = b.Build(nil)
	assert.False(t, levels.Spatial.Built())
}
