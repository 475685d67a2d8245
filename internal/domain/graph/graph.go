// Package graph defines the read-only view of the rendered graph that the
// LOD engine consumes. The engine never creates or destroys nodes and edges;
// it only observes snapshots supplied by the host application.
package graph

import "math"

// DefaultType is the tag assigned to nodes that carry no type of their own.
// Clustering by type must always place every node somewhere, so untyped
// nodes are grouped under this tag rather than rejected.
const DefaultType = "untyped"

// Position is a node's 2D coordinate in graph space.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Normalize clamps non-finite coordinates to the origin. Malformed positions
// are a degraded input, not an error: clustering must always complete.
func (p Position) Normalize() Position {
	if !isFinite(p.X) || !isFinite(p.Y) {
		return Position{}
	}
	return p
}

// Node is a read-only projection of a rendered graph node.
type Node struct {
	ID       string   `json:"id"`
	Position Position `json:"position"`
	Type     string   `json:"type"`
	Degree   int      `json:"degree"`
}

// EffectiveType returns the node's type tag, falling back to DefaultType.
func (n Node) EffectiveType() string {
	if n.Type == "" {
		return DefaultType
	}
	return n.Type
}

// Edge is a read-only projection of a rendered graph edge.
type Edge struct {
	ID       string `json:"id"`
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
}

// Snapshot is a point-in-time copy of the graph. Version increases
// monotonically on every structural change; the engine uses it to detect
// stale derived data. Node and edge order is stable for a given version,
// which the cluster builder relies on for deterministic output.
type Snapshot struct {
	Nodes   []Node `json:"nodes"`
	Edges   []Edge `json:"edges"`
	Version uint64 `json:"version"`
}

// NodeCount returns the number of nodes in the snapshot.
func (s *Snapshot) NodeCount() int {
	if s == nil {
		return 0
	}
	return len(s.Nodes)
}

// EdgeCount returns the number of edges in the snapshot.
func (s *Snapshot) EdgeCount() int {
	if s == nil {
		return 0
	}
	return len(s.Edges)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
