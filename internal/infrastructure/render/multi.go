package render

import (
	"brain2-lod/internal/application/ports"
	"brain2-lod/internal/domain/lod"
)

// Multi fans one level decision out to several adapters, e.g. an in-process
// style store plus a websocket stream.
type Multi []ports.RenderAdapter

// Apply forwards to every adapter in order.
func (m Multi) Apply(level lod.LevelName, clusters []lod.Cluster, edgeCounts map[lod.PairKey]int) {
	for _, a := range m {
		a.Apply(level, clusters, edgeCounts)
	}
}

// Restore forwards to every adapter in order.
func (m Multi) Restore() {
	for _, a := range m {
		a.Restore()
	}
}
