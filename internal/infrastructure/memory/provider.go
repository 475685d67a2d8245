// Package memory provides in-process implementations of the engine's ports:
// a mutable graph store that hands out versioned snapshots, a deterministic
// synthetic graph generator, and a viewport stub. They back the demo server
// and the test suites.
package memory

import (
	"sync"

	"brain2-lod/internal/domain/graph"
)

// Provider is a thread-safe, in-memory GraphSnapshotProvider. Every
// structural mutation bumps the snapshot version and notifies subscribers.
type Provider struct {
	mu       sync.RWMutex
	nodes    []graph.Node
	nodeIdx  map[string]int
	edges    []graph.Edge
	edgeIdx  map[string]int
	version  uint64
	onChange []func()
}

// NewProvider creates an empty provider at version 1.
func NewProvider() *Provider {
	return &Provider{
		nodeIdx: make(map[string]int),
		edgeIdx: make(map[string]int),
		version: 1,
	}
}

// Snapshot returns a copy of the current graph. The copy is value-like: the
// engine can hold it as long as it wants without observing later mutations.
func (p *Provider) Snapshot() *graph.Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snap := &graph.Snapshot{
		Nodes:   make([]graph.Node, len(p.nodes)),
		Edges:   make([]graph.Edge, len(p.edges)),
		Version: p.version,
	}
	copy(snap.Nodes, p.nodes)
	copy(snap.Edges, p.edges)
	return snap
}

// OnStructuralChange registers a callback fired after every mutation.
func (p *Provider) OnStructuralChange(fn func()) {
	p.mu.Lock()
	p.onChange = append(p.onChange, fn)
	p.mu.Unlock()
}

// AddNode inserts a node; a duplicate id replaces the existing node in place
// (position/type updates are not structural for ordering purposes).
func (p *Provider) AddNode(n graph.Node) {
	p.mu.Lock()
	if i, ok := p.nodeIdx[n.ID]; ok {
		p.nodes[i] = n
	} else {
		p.nodeIdx[n.ID] = len(p.nodes)
		p.nodes = append(p.nodes, n)
	}
	p.version++
	p.mu.Unlock()
	p.notify()
}

// RemoveNode deletes a node and every edge touching it.
func (p *Provider) RemoveNode(id string) {
	p.mu.Lock()
	i, ok := p.nodeIdx[id]
	if !ok {
		p.mu.Unlock()
		return
	}
	p.nodes = append(p.nodes[:i], p.nodes[i+1:]...)
	p.reindexNodes()

	kept := p.edges[:0]
	for _, e := range p.edges {
		if e.SourceID != id && e.TargetID != id {
			kept = append(kept, e)
		}
	}
	p.edges = kept
	p.reindexEdges()

	p.version++
	p.mu.Unlock()
	p.notify()
}

// AddEdge inserts an edge; duplicates by id are replaced.
func (p *Provider) AddEdge(e graph.Edge) {
	p.mu.Lock()
	if i, ok := p.edgeIdx[e.ID]; ok {
		p.edges[i] = e
	} else {
		p.edgeIdx[e.ID] = len(p.edges)
		p.edges = append(p.edges, e)
	}
	p.version++
	p.mu.Unlock()
	p.notify()
}

// RemoveEdge deletes an edge by id.
func (p *Provider) RemoveEdge(id string) {
	p.mu.Lock()
	i, ok := p.edgeIdx[id]
	if !ok {
		p.mu.Unlock()
		return
	}
	p.edges = append(p.edges[:i], p.edges[i+1:]...)
	p.reindexEdges()
	p.version++
	p.mu.Unlock()
	p.notify()
}

// Counts returns the current node and edge counts.
func (p *Provider) Counts() (nodes, edges int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.nodes), len(p.edges)
}

func (p *Provider) notify() {
	p.mu.RLock()
	handlers := make([]func(), len(p.onChange))
	copy(handlers, p.onChange)
	p.mu.RUnlock()
	for _, fn := range handlers {
		fn()
	}
}

func (p *Provider) reindexNodes() {
	for k := range p.nodeIdx {
		delete(p.nodeIdx, k)
	}
	for i, n := range p.nodes {
		p.nodeIdx[n.ID] = i
	}
}

func (p *Provider) reindexEdges() {
	for k := range p.edgeIdx {
		delete(p.edgeIdx, k)
	}
	for i, e := range p.edges {
		p.edgeIdx[e.ID] = i
	}
}
