package graph

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPositionNormalize(t *testing.T) {
	tests := []struct {
		name string
		pos  Position
		want Position
	}{
		{"finite passes through", Position{X: 3.5, Y: -2}, Position{X: 3.5, Y: -2}},
		{"nan x clamps to origin", Position{X: math.NaN(), Y: 5}, Position{}},
		{"infinite y clamps to origin", Position{X: 1, Y: math.Inf(-1)}, Position{}},
		{"zero is already normal", Position{}, Position{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pos.Normalize())
		})
	}
}

func TestNodeEffectiveType(t *testing.T) {
	assert.Equal(t, "person", Node{ID: "a", Type: "person"}.EffectiveType())
	assert.Equal(t, DefaultType, Node{ID: "b"}.EffectiveType())
}

func TestSnapshotCountsNilSafe(t *testing.T) {
	var s *Snapshot
	assert.Zero(t, s.NodeCount())
	assert.Zero(t, s.EdgeCount())

	s = &Snapshot{Nodes: []Node{{ID: "a"}}, Edges: []Edge{{ID: "e"}}}
	assert.Equal(t, 1, s.NodeCount())
	assert.Equal(t, 1, s.EdgeCount())
}
