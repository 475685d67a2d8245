package lod

// ClusterIndex is the derived lookup structure over one set of Levels:
// node -> cluster per kind, and cluster id -> members. It is value-like and
// rebuilt wholesale whenever the snapshot version changes; it never serves
// data for a version it was not built from.
type ClusterIndex struct {
	nodeToCluster  map[Kind]map[string]*Cluster
	clusterToNodes map[string][]string
	version        uint64
	built          bool
}

// NewClusterIndex creates an empty, stale index.
func NewClusterIndex() *ClusterIndex {
	return &ClusterIndex{}
}

// Rebuild clears the index and repopulates it from the given levels. Called
// once per snapshot version, lazily, by the controller.
func (idx *ClusterIndex) Rebuild(levels *Levels) {
	idx.nodeToCluster = make(map[Kind]map[string]*Cluster, len(Kinds))
	idx.clusterToNodes = make(map[string][]string)

	for _, kind := range Kinds {
		level := levels.ByKind(kind)
		byNode := make(map[string]*Cluster, len(level.Clusters)*4)
		for i := range level.Clusters {
			c := &level.Clusters[i]
			for _, nodeID := range c.Members {
				byNode[nodeID] = c
			}
			idx.clusterToNodes[c.ID] = c.Members
		}
		idx.nodeToCluster[kind] = byNode
	}

	idx.version = levels.Version
	idx.built = true
}

// Invalidate marks the index stale. Lookups on a stale index return nothing;
// the controller is responsible for rebuilding before querying.
func (idx *ClusterIndex) Invalidate() {
	idx.nodeToCluster = nil
	idx.clusterToNodes = nil
	idx.built = false
}

// Stale reports whether the index must be rebuilt before use, either because
// it was never built or because the snapshot version moved past it.
func (idx *ClusterIndex) Stale(version uint64) bool {
	return !idx.built || idx.version != version
}

// Version returns the snapshot version the index was built from.
func (idx *ClusterIndex) Version() uint64 {
	return idx.version
}

// Lookup resolves the cluster a node belongs to at the given kind. Returns
// nil for unknown nodes, unbuilt kinds, or a stale index.
func (idx *ClusterIndex) Lookup(nodeID string, kind Kind) *Cluster {
	if !idx.built {
		return nil
	}
	byNode, ok := idx.nodeToCluster[kind]
	if !ok {
		return nil
	}
	return byNode[nodeID]
}

// MembersOf returns the member node ids of a cluster, or nil if unknown.
func (idx *ClusterIndex) MembersOf(clusterID string) []string {
	if !idx.built {
		return nil
	}
	return idx.clusterToNodes[clusterID]
}
