// Package lod implements the level-of-detail engine's core algorithms:
// partitioning a graph snapshot into cluster hierarchies, indexing the
// partitions for O(1) lookup, aggregating inter-cluster edges, and selecting
// the active detail level from the viewport zoom and graph size.
package lod

// Kind identifies one of the three independent clustering strategies. Each
// kind produces its own partition of the node set.
type Kind string

const (
	KindSpatial      Kind = "spatial"
	KindConnectivity Kind = "connectivity"
	KindType         Kind = "type"
)

// Kinds lists all clustering kinds in build order.
var Kinds = []Kind{KindSpatial, KindConnectivity, KindType}

// LevelName is the detail level the engine renders at. Fine is the identity
// level: every node and edge drawn individually.
type LevelName string

const (
	LevelDisabled LevelName = "disabled"
	LevelCoarse   LevelName = "coarse"
	LevelMedium   LevelName = "medium"
	LevelFine     LevelName = "fine"
)

// rank orders levels from coarsest to finest; used to assert monotonicity.
func (l LevelName) rank() int {
	switch l {
	case LevelCoarse:
		return 0
	case LevelMedium:
		return 1
	case LevelFine:
		return 2
	default:
		return 3
	}
}

// FinerThan reports whether l shows more detail than other. Disabled counts
// as the finest state since it renders everything.
func (l LevelName) FinerThan(other LevelName) bool {
	return l.rank() > other.rank()
}

// Cluster is a group of nodes rendered as one visual unit at a coarse level.
// Members is non-empty and RepresentativeID is always one of the members.
type Cluster struct {
	ID               string   `json:"id"`
	Kind             Kind     `json:"kind"`
	Members          []string `json:"members"`
	RepresentativeID string   `json:"representative_id"`
}

// Size returns the member count.
func (c *Cluster) Size() int {
	return len(c.Members)
}

// Contains reports whether the node belongs to this cluster.
func (c *Cluster) Contains(nodeID string) bool {
	for _, m := range c.Members {
		if m == nodeID {
			return true
		}
	}
	return false
}

// Level holds the clusters produced by one strategy for one snapshot.
// Clusters is empty when the strategy was skipped (graph below the kind's
// activation threshold); the partition property only applies when non-empty.
type Level struct {
	Kind     Kind      `json:"kind"`
	Clusters []Cluster `json:"clusters"`
}

// Built reports whether this level was actually constructed.
func (l Level) Built() bool {
	return len(l.Clusters) > 0
}

// Levels bundles the three partitions built from a single snapshot version.
type Levels struct {
	Spatial      Level  `json:"spatial"`
	Connectivity Level  `json:"connectivity"`
	Type         Level  `json:"type"`
	Version      uint64 `json:"version"`
}

// ByKind returns the level for the given kind.
func (ls *Levels) ByKind(kind Kind) Level {
	switch kind {
	case KindSpatial:
		return ls.Spatial
	case KindConnectivity:
		return ls.Connectivity
	case KindType:
		return ls.Type
	}
	return Level{}
}

// PairKey identifies an unordered pair of distinct clusters. A and B are
// normalized so (x,y) and (y,x) produce the same key.
type PairKey struct {
	A string
	B string
}

// NewPairKey builds a normalized key for two cluster ids.
func NewPairKey(a, b string) PairKey {
	if b < a {
		a, b = b, a
	}
	return PairKey{A: a, B: b}
}
