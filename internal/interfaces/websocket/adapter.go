package websocket

import (
	"encoding/json"

	"go.uber.org/zap"

	"brain2-lod/internal/domain/lod"
	"brain2-lod/internal/infrastructure/render"
)

// Frame is the wire shape of one level-change notification.
type Frame struct {
	Type         string             `json:"type"`
	Level        lod.LevelName      `json:"level"`
	ClusterCount int                `json:"cluster_count"`
	Clusters     []ClusterSummary   `json:"clusters,omitempty"`
	Edges        []render.EdgeStyle `json:"edges,omitempty"`
}

// ClusterSummary is the per-cluster payload: enough for a client to draw a
// representative without shipping every member id.
type ClusterSummary struct {
	ID               string  `json:"id"`
	RepresentativeID string  `json:"representative_id"`
	Size             int     `json:"size"`
	Scale            float64 `json:"scale"`
}

// StreamAdapter is a RenderAdapter that forwards every applied level to the
// hub's clients as a JSON frame.
type StreamAdapter struct {
	hub    *Hub
	logger *zap.Logger
}

// NewStreamAdapter wires a hub as a render target.
func NewStreamAdapter(hub *Hub, logger *zap.Logger) *StreamAdapter {
	return &StreamAdapter{hub: hub, logger: logger}
}

// Apply broadcasts the cluster summaries and aggregated edges for a level.
func (a *StreamAdapter) Apply(level lod.LevelName, clusters []lod.Cluster, edgeCounts map[lod.PairKey]int) {
	frame := Frame{
		Type:         "lod.apply",
		Level:        level,
		ClusterCount: len(clusters),
		Clusters:     make([]ClusterSummary, 0, len(clusters)),
	}
	for i := range clusters {
		c := &clusters[i]
		frame.Clusters = append(frame.Clusters, ClusterSummary{
			ID:               c.ID,
			RepresentativeID: c.RepresentativeID,
			Size:             c.Size(),
			Scale:            render.RepresentativeScale(c.Size()),
		})
	}
	for key, count := range edgeCounts {
		frame.Edges = append(frame.Edges, render.EdgeStyle{
			SourceCluster: key.A,
			TargetCluster: key.B,
			Width:         render.AggregatedEdgeWidth(count),
			Count:         count,
		})
	}
	a.broadcast(frame)
}

// Restore broadcasts the full-detail frame.
func (a *StreamAdapter) Restore() {
	a.broadcast(Frame{Type: "lod.restore", Level: lod.LevelFine})
}

func (a *StreamAdapter) broadcast(frame Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		a.logger.Error("failed to encode lod frame", zap.Error(err))
		return
	}
	a.hub.Broadcast(data)
}
