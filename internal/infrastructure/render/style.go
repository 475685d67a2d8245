// Package render provides concrete RenderAdapter implementations: a style
// store for in-process hosts and helpers shared by the streaming adapter.
// Adapters are pure projections of the engine's decision; they never mutate
// the clusters or counts they receive.
package render

import (
	"fmt"
	"math"
	"sync"

	"brain2-lod/internal/domain/lod"
)

// NodeStyle is the visual state an adapter assigns to one node.
type NodeStyle struct {
	Visible bool    `json:"visible"`
	Scale   float64 `json:"scale"`
	Opacity float64 `json:"opacity"`
	Label   string  `json:"label,omitempty"`
}

// EdgeStyle is the visual state of one aggregated inter-cluster edge.
type EdgeStyle struct {
	SourceCluster string  `json:"source_cluster"`
	TargetCluster string  `json:"target_cluster"`
	Width         float64 `json:"width"`
	Count         int     `json:"count"`
}

// RepresentativeScale grows a representative with the log of its cluster
// size, so a 10k-member cluster doesn't dwarf the canvas.
func RepresentativeScale(size int) float64 {
	return 1.0 + math.Log2(float64(size)+1)/2
}

// AggregatedEdgeWidth weights an aggregated edge with the square root of the
// crossing count.
func AggregatedEdgeWidth(count int) float64 {
	return 1.0 + math.Sqrt(float64(count))
}

const dimmedOpacity = 0.08

// StyleAdapter projects level decisions into a per-node style table the host
// renderer reads back. Fine/disabled clears every override, meaning "natural
// values everywhere".
type StyleAdapter struct {
	mu    sync.RWMutex
	level lod.LevelName
	nodes map[string]NodeStyle
	edges []EdgeStyle
}

// NewStyleAdapter creates an adapter at full detail.
func NewStyleAdapter() *StyleAdapter {
	return &StyleAdapter{level: lod.LevelFine}
}

// Apply computes representative/member styles for a coarse or medium level.
func (a *StyleAdapter) Apply(level lod.LevelName, clusters []lod.Cluster, edgeCounts map[lod.PairKey]int) {
	nodes := make(map[string]NodeStyle)
	for i := range clusters {
		c := &clusters[i]
		for _, member := range c.Members {
			if member == c.RepresentativeID {
				continue
			}
			nodes[member] = NodeStyle{Visible: true, Scale: 0.25, Opacity: dimmedOpacity}
		}
		nodes[c.RepresentativeID] = NodeStyle{
			Visible: true,
			Scale:   RepresentativeScale(c.Size()),
			Opacity: 1.0,
			Label:   fmt.Sprintf("+%d", c.Size()),
		}
	}

	var edges []EdgeStyle
	for key, count := range edgeCounts {
		edges = append(edges, EdgeStyle{
			SourceCluster: key.A,
			TargetCluster: key.B,
			Width:         AggregatedEdgeWidth(count),
			Count:         count,
		})
	}

	a.mu.Lock()
	a.level = level
	a.nodes = nodes
	a.edges = edges
	a.mu.Unlock()
}

// Restore clears all style overrides: every node and edge back at natural
// size, label and opacity.
func (a *StyleAdapter) Restore() {
	a.mu.Lock()
	a.level = lod.LevelFine
	a.nodes = nil
	a.edges = nil
	a.mu.Unlock()
}

// Level returns the detail level currently projected.
func (a *StyleAdapter) Level() lod.LevelName {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.level
}

// NodeStyleFor returns the style override for a node. ok is false at full
// detail or for unknown nodes, meaning natural rendering applies.
func (a *StyleAdapter) NodeStyleFor(nodeID string) (NodeStyle, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s, ok := a.nodes[nodeID]
	return s, ok
}

// AggregatedEdges returns the aggregated edge styles for the applied level.
func (a *StyleAdapter) AggregatedEdges() []EdgeStyle {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.edges
}
