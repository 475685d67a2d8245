// Package ports declares the narrow interfaces the LOD engine needs from its
// host: a read-only graph snapshot source, a viewport zoom signal, and a
// render adapter that applies the decided level to the visible elements.
// Keeping these as interfaces makes the engine testable without any concrete
// renderer attached.
package ports

import (
	"brain2-lod/internal/domain/graph"
	"brain2-lod/internal/domain/lod"
)

// GraphSnapshotProvider supplies the current node/edge set on demand. The
// snapshot's Version must increase on every structural change; the engine
// compares versions to invalidate its derived caches.
type GraphSnapshotProvider interface {
	Snapshot() *graph.Snapshot
}

// ViewportObserver exposes the current zoom and a change notification.
// Callbacks may fire on any goroutine; the engine defers all work off them.
type ViewportObserver interface {
	Zoom() float64
	OnZoomChanged(fn func(zoom float64))
}

// RenderAdapter mutates the visible representation for a decided level.
// Implementations are pure projections: they must not modify the clusters or
// edge counts they are handed.
//
// Apply is called for coarse/medium levels with that level's clusters and,
// for coarse, the aggregated inter-cluster edge counts. Restore is the
// fine/disabled path: every node and edge back at full detail.
type RenderAdapter interface {
	Apply(level lod.LevelName, clusters []lod.Cluster, edgeCounts map[lod.PairKey]int)
	Restore()
}
