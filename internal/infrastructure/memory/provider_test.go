package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brain2-lod/internal/domain/graph"
)

func TestProviderVersioning(t *testing.T) {
	p := NewProvider()
	require.Equal(t, uint64(1), p.Snapshot().Version)

	var changes int
	p.OnStructuralChange(func() { changes++ })

	p.AddNode(graph.Node{ID: "a"})
	p.AddNode(graph.Node{ID: "b"})
	p.AddEdge(graph.Edge{ID: "e", SourceID: "a", TargetID: "b"})

	snap := p.Snapshot()
	assert.Equal(t, uint64(4), snap.Version)
	assert.Equal(t, 3, changes)

	// Removing something unknown is a no-op: no bump, no notification.
	p.RemoveNode("ghost")
	p.RemoveEdge("ghost")
	assert.Equal(t, uint64(4), p.Snapshot().Version)
	assert.Equal(t, 3, changes)
}

func TestProviderRemoveNodeCascades(t *testing.T) {
	p := NewProvider()
	p.AddNode(graph.Node{ID: "a"})
	p.AddNode(graph.Node{ID: "b"})
	p.AddNode(graph.Node{ID: "c"})
	p.AddEdge(graph.Edge{ID: "e0", SourceID: "a", TargetID: "b"})
	p.AddEdge(graph.Edge{ID: "e1", SourceID: "b", TargetID: "c"})
	p.AddEdge(graph.Edge{ID: "e2", SourceID: "a", TargetID: "c"})

	p.RemoveNode("b")

	snap := p.Snapshot()
	assert.Equal(t, 2, snap.NodeCount())
	require.Equal(t, 1, snap.EdgeCount())
	assert.Equal(t, "e2", snap.Edges[0].ID)
}

func TestProviderSnapshotIsolation(t *testing.T) {
	p := NewProvider()
	p.AddNode(graph.Node{ID: "a", Type: "person"})

	before := p.Snapshot()
	p.AddNode(graph.Node{ID: "a", Type: "place"}) // replace in place
	p.AddNode(graph.Node{ID: "b"})

	assert.Equal(t, "person", before.Nodes[0].Type, "held snapshot must not observe later mutations")
	assert.Equal(t, 1, before.NodeCount())

	after := p.Snapshot()
	assert.Equal(t, "place", after.Nodes[0].Type)
	assert.Equal(t, 2, after.NodeCount())
	assert.Greater(t, after.Version, before.Version)
}

func TestGenerateDeterministic(t *testing.T) {
	p1 := NewProvider()
	p2 := NewProvider()
	Generate(p1, 500, 800, 7)
	Generate(p2, 500, 800, 7)

	assert.Equal(t, p1.Snapshot(), p2.Snapshot(), "same seed must produce the same graph")

	p3 := NewProvider()
	Generate(p3, 500, 800, 8)
	assert.NotEqual(t, p1.Snapshot().Nodes, p3.Snapshot().Nodes)
}

func TestGenerateBumpsVersionOnce(t *testing.T) {
	p := NewProvider()
	var changes int
	p.OnStructuralChange(func() { changes++ })

	Generate(p, 100, 150, 1)

	nodes, edges := p.Counts()
	assert.Equal(t, 100, nodes)
	// Random self-pairs are skipped, so the edge count may fall a little
	// short of the request.
	assert.LessOrEqual(t, edges, 150)
	assert.Greater(t, edges, 100)
	assert.Equal(t, 1, changes, "bulk load is a single structural change")
	assert.Equal(t, uint64(2), p.Snapshot().Version)
}

func TestViewport(t *testing.T) {
	v := NewViewport(1.0)
	assert.Equal(t, 1.0, v.Zoom())

	var got []float64
	v.OnZoomChanged(func(z float64) { got = append(got, z) })

	v.SetZoom(0.5)
	v.SetZoom(0.25)

	assert.Equal(t, 0.25, v.Zoom())
	assert.Equal(t, []float64{0.5, 0.25}, got)
}
