package memory

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"brain2-lod/internal/domain/graph"
)

// typePalette is the set of node type tags the generator draws from.
var typePalette = []string{"document", "concept", "person", "event", "place"}

// Generate fills a provider with a synthetic graph: nodeCount nodes laid out
// uniformly in a square region, edgeCount edges between random pairs. The
// same seed always produces the same graph, so demos and benchmarks are
// reproducible. Node ids are UUIDs derived from the seeded source.
func Generate(p *Provider, nodeCount, edgeCount int, seed int64) {
	rng := rand.New(rand.NewSource(seed))

	// Spread proportional to graph size keeps average grid occupancy
	// roughly constant across sizes.
	extent := 100.0 * float64(nodeCount/100+1)

	ids := make([]string, nodeCount)
	for i := 0; i < nodeCount; i++ {
		id := seededUUID(rng)
		ids[i] = id
		p.addNodeQuiet(graph.Node{
			ID: id,
			Position: graph.Position{
				X: rng.Float64()*2*extent - extent,
				Y: rng.Float64()*2*extent - extent,
			},
			Type: typePalette[rng.Intn(len(typePalette))],
		})
	}

	for i := 0; i < edgeCount && nodeCount > 1; i++ {
		src := ids[rng.Intn(nodeCount)]
		tgt := ids[rng.Intn(nodeCount)]
		if src == tgt {
			continue
		}
		p.addEdgeQuiet(graph.Edge{
			ID:       fmt.Sprintf("e-%d", i),
			SourceID: src,
			TargetID: tgt,
		})
	}

	p.bumpVersion()
}

// seededUUID builds a RFC 4122 v4 UUID from the seeded random source so
// generated graphs are reproducible.
func seededUUID(rng *rand.Rand) string {
	var b [16]byte
	rng.Read(b[:]) //nolint:errcheck // math/rand Read never fails
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	id, err := uuid.FromBytes(b[:])
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// addNodeQuiet inserts without bumping the version or notifying; used for
// bulk generation, which counts as a single structural change.
func (p *Provider) addNodeQuiet(n graph.Node) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i, ok := p.nodeIdx[n.ID]; ok {
		p.nodes[i] = n
		return
	}
	p.nodeIdx[n.ID] = len(p.nodes)
	p.nodes = append(p.nodes, n)
}

func (p *Provider) addEdgeQuiet(e graph.Edge) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i, ok := p.edgeIdx[e.ID]; ok {
		p.edges[i] = e
		return
	}
	p.edgeIdx[e.ID] = len(p.edges)
	p.edges = append(p.edges, e)
}

func (p *Provider) bumpVersion() {
	p.mu.Lock()
	p.version++
	p.mu.Unlock()
	p.notify()
}
