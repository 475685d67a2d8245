package lod

import (
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"brain2-lod/internal/domain/graph"
)

// DefaultSpatialCellSize is the grid cell edge length, in graph units, used
// when the configuration does not provide one.
const DefaultSpatialCellSize = 300.0

// KindValues holds a per-kind integer setting (cluster size caps, activation
// thresholds). A zero value means "no limit" / "always build".
type KindValues struct {
	Spatial      int `json:"spatial" yaml:"spatial"`
	Connectivity int `json:"connectivity" yaml:"connectivity"`
	Type         int `json:"type" yaml:"type"`
}

// For returns the value for the given kind.
func (kv KindValues) For(kind Kind) int {
	switch kind {
	case KindSpatial:
		return kv.Spatial
	case KindConnectivity:
		return kv.Connectivity
	case KindType:
		return kv.Type
	}
	return 0
}

// BuildConfig carries the thresholds the cluster builder works from.
type BuildConfig struct {
	// SpatialCellSize is the uniform grid cell size for spatial bucketing.
	SpatialCellSize float64

	// ClusterCaps bounds the member count of a single cluster, per kind.
	// Oversized spatial buckets and type groups are split in insertion
	// order; connectivity traversal stops admitting nodes at the cap.
	ClusterCaps KindValues

	// Activation is the minimum snapshot node count before a kind is built
	// at all. Below it the kind's level is left empty, so small graphs pay
	// no clustering cost.
	Activation KindValues

	// Parallel builds the three independent partitions concurrently. The
	// result is identical either way; the merge happens before return.
	Parallel bool
}

// Builder partitions a graph snapshot into the three cluster hierarchies.
// Building is deterministic: a fixed snapshot and configuration always yield
// the same partition and the same representatives, because every ordering is
// taken from the snapshot's node/edge slices, never from map iteration.
type Builder struct {
	cfg BuildConfig
}

// NewBuilder creates a cluster builder with the given thresholds.
func NewBuilder(cfg BuildConfig) *Builder {
	if cfg.SpatialCellSize <= 0 {
		cfg.SpatialCellSize = DefaultSpatialCellSize
	}
	return &Builder{cfg: cfg}
}

// Build produces the spatial, connectivity and type partitions for the
// snapshot. Kinds whose activation threshold exceeds the node count come
// back with an empty cluster list.
func (b *Builder) Build(snap *graph.Snapshot) *Levels {
	levels := &Levels{
		Spatial:      Level{Kind: KindSpatial},
		Connectivity: Level{Kind: KindConnectivity},
		Type:         Level{Kind: KindType},
	}
	if snap == nil {
		return levels
	}
	levels.Version = snap.Version

	if b.cfg.Parallel {
		var g errgroup.Group
		g.Go(func() error {
			levels.Spatial.Clusters = b.buildKind(KindSpatial, snap)
			return nil
		})
		g.Go(func() error {
			levels.Connectivity.Clusters = b.buildKind(KindConnectivity, snap)
			return nil
		})
		g.Go(func() error {
			levels.Type.Clusters = b.buildKind(KindType, snap)
			return nil
		})
		g.Wait() //nolint:errcheck // build never fails, see buildKind
	} else {
		levels.Spatial.Clusters = b.buildKind(KindSpatial, snap)
		levels.Connectivity.Clusters = b.buildKind(KindConnectivity, snap)
		levels.Type.Clusters = b.buildKind(KindType, snap)
	}
	return levels
}

// buildKind dispatches one strategy. It never returns an error: malformed
// input is normalized to safe defaults before bucketing.
func (b *Builder) buildKind(kind Kind, snap *graph.Snapshot) []Cluster {
	if min := b.cfg.Activation.For(kind); min > 0 && snap.NodeCount() < min {
		return nil
	}
	switch kind {
	case KindSpatial:
		return b.buildSpatial(snap)
	case KindConnectivity:
		return b.buildConnectivity(snap)
	case KindType:
		return b.buildType(snap)
	}
	return nil
}

type gridKey struct {
	cx int64
	cy int64
}

// buildSpatial buckets nodes into a uniform grid. The representative is the
// first node inserted into a bucket, not the centroid-nearest member; that
// trades a little visual fidelity for a single pass over the nodes.
func (b *Builder) buildSpatial(snap *graph.Snapshot) []Cluster {
	cell := b.cfg.SpatialCellSize

	bucketIdx := make(map[gridKey]int, snap.NodeCount()/4+1)
	type bucket struct {
		key     gridKey
		members []string
	}
	var buckets []bucket

	for _, n := range snap.Nodes {
		pos := n.Position.Normalize()
		key := gridKey{
			cx: int64(math.Floor(pos.X / cell)),
			cy: int64(math.Floor(pos.Y / cell)),
		}
		i, ok := bucketIdx[key]
		if !ok {
			i = len(buckets)
			bucketIdx[key] = i
			buckets = append(buckets, bucket{key: key})
		}
		buckets[i].members = append(buckets[i].members, n.ID)
	}

	limit := b.cfg.ClusterCaps.For(KindSpatial)
	clusters := make([]Cluster, 0, len(buckets))
	for _, bk := range buckets {
		base := fmt.Sprintf("spatial:%d,%d", bk.key.cx, bk.key.cy)
		clusters = appendChunked(clusters, KindSpatial, base, bk.members, limit)
	}
	return clusters
}

// buildConnectivity grows components by breadth-first traversal over the
// edge adjacency. A component stops admitting members at the connectivity
// cap; reachable nodes left behind seed later components, so the result is
// still a partition, just not maximal components above the cap.
func (b *Builder) buildConnectivity(snap *graph.Snapshot) []Cluster {
	present := make(map[string]bool, snap.NodeCount())
	for _, n := range snap.Nodes {
		present[n.ID] = true
	}

	adj := make(map[string][]string, snap.NodeCount())
	for _, e := range snap.Edges {
		// Dangling endpoints are ignored rather than rejected.
		if !present[e.SourceID] || !present[e.TargetID] {
			continue
		}
		if e.SourceID == e.TargetID {
			continue
		}
		adj[e.SourceID] = append(adj[e.SourceID], e.TargetID)
		adj[e.TargetID] = append(adj[e.TargetID], e.SourceID)
	}

	limit := b.cfg.ClusterCaps.For(KindConnectivity)
	visited := make(map[string]bool, snap.NodeCount())
	var clusters []Cluster

	for _, n := range snap.Nodes {
		if visited[n.ID] {
			continue
		}
		members := []string{n.ID}
		visited[n.ID] = true
		queue := []string{n.ID}
		for len(queue) > 0 && (limit <= 0 || len(members) < limit) {
			current := queue[0]
			queue = queue[1:]
			for _, next := range adj[current] {
				if visited[next] {
					continue
				}
				visited[next] = true
				members = append(members, next)
				queue = append(queue, next)
				if limit > 0 && len(members) >= limit {
					break
				}
			}
		}
		clusters = append(clusters, Cluster{
			ID:               "conn:" + n.ID,
			Kind:             KindConnectivity,
			Members:          members,
			RepresentativeID: n.ID,
		})
	}
	return clusters
}

// buildType groups nodes by their type tag, in first-occurrence order.
func (b *Builder) buildType(snap *graph.Snapshot) []Cluster {
	groupIdx := make(map[string]int)
	type group struct {
		tag     string
		members []string
	}
	var groups []group

	for _, n := range snap.Nodes {
		tag := n.EffectiveType()
		i, ok := groupIdx[tag]
		if !ok {
			i = len(groups)
			groupIdx[tag] = i
			groups = append(groups, group{tag: tag})
		}
		groups[i].members = append(groups[i].members, n.ID)
	}

	limit := b.cfg.ClusterCaps.For(KindType)
	clusters := make([]Cluster, 0, len(groups))
	for _, g := range groups {
		clusters = appendChunked(clusters, KindType, "type:"+g.tag, g.members, limit)
	}
	return clusters
}

// appendChunked emits one cluster per cap-sized chunk of members, in
// insertion order. Chunks after the first get a "#n" id suffix so ids stay
// unique within the level. The first member of each chunk is its
// representative.
func appendChunked(dst []Cluster, kind Kind, baseID string, members []string, limit int) []Cluster {
	if limit <= 0 || len(members) <= limit {
		return append(dst, Cluster{
			ID:               baseID,
			Kind:             kind,
			Members:          members,
			RepresentativeID: members[0],
		})
	}
	for i, chunk := 0, 0; i < len(members); i, chunk = i+limit, chunk+1 {
		end := i + limit
		if end > len(members) {
			end = len(members)
		}
		id := baseID
		if chunk > 0 {
			id = fmt.Sprintf("%s#%d", baseID, chunk)
		}
		part := members[i:end]
		dst = append(dst, Cluster{
			ID:               id,
			Kind:             kind,
			Members:          part,
			RepresentativeID: part[0],
		})
	}
	return dst
}
