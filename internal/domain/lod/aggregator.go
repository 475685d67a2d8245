package lod

import "brain2-lod/internal/domain/graph"

// AggregateEdges counts, for one clustering kind, the edges crossing between
// every pair of distinct clusters. Intra-cluster edges are skipped, so each
// qualifying edge is counted exactly once under its normalized pair key.
// The render adapter uses the counts to weight aggregated edges at the
// coarse level; other levels never need this structure.
//
// The index must already be rebuilt for the snapshot the edges came from;
// edges whose endpoints cannot be resolved are ignored.
func AggregateEdges(edges []graph.Edge, kind Kind, index *ClusterIndex) map[PairKey]int {
	counts := make(map[PairKey]int)
	for _, e := range edges {
		src := index.Lookup(e.SourceID, kind)
		tgt := index.Lookup(e.TargetID, kind)
		if src == nil || tgt == nil {
			continue
		}
		if src.ID == tgt.ID {
			continue
		}
		counts[NewPairKey(src.ID, tgt.ID)]++
	}
	return counts
}
