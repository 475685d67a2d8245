// Package engine implements the LOD controller: the state machine that owns
// the cluster caches, debounces zoom changes, guards against overlapping
// rebuilds, and drives the render adapter when the active level changes.
package engine

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"brain2-lod/internal/application/ports"
	"brain2-lod/internal/config"
	"brain2-lod/internal/domain/graph"
	"brain2-lod/internal/domain/lod"
	"brain2-lod/internal/infrastructure/observability"
	"brain2-lod/internal/infrastructure/tracing"
)

// State is the controller's lifecycle state.
type State string

const (
	// StateDisabled: the engine is off; full detail everywhere.
	StateDisabled State = "disabled"
	// StateInactive: enabled, but the graph is below the activation floor.
	StateInactive State = "inactive"
	// StateActive: clustering is live and a level is applied.
	StateActive State = "active"
)

// Status is a point-in-time view of the engine, served by the inspection API.
type Status struct {
	State           State            `json:"state"`
	Level           lod.LevelName    `json:"level"`
	SnapshotVersion uint64           `json:"snapshot_version"`
	NodeCount       int              `json:"node_count"`
	EdgeCount       int              `json:"edge_count"`
	ClusterCounts   map[lod.Kind]int `json:"cluster_counts"`
	Processing      bool             `json:"processing"`
}

// Engine orchestrates clustering, level selection and render application.
//
// All mutable state (clusters, index, edge counts, current level, processing
// flag, pending slot) is owned by a single goroutine; external callbacks post
// closures to its job channel, so the triggering call sites never block on
// clustering work and no lock covers the caches.
type Engine struct {
	provider ports.GraphSnapshotProvider
	viewport ports.ViewportObserver
	adapter  ports.RenderAdapter
	logger   *zap.Logger
	metrics  *observability.Collector
	tracer   *tracing.TracerProvider

	jobs   chan func()
	stopCh chan struct{}
	wg     sync.WaitGroup

	// lastZoom is written by viewport callbacks on arbitrary goroutines and
	// read by the engine goroutine after the debounce settles.
	lastZoom atomic.Uint64

	debounceMu sync.Mutex
	debounce   *time.Timer

	// Everything below is touched only on the engine goroutine.
	cfg        *config.Config
	state      State
	snapshot   *graph.Snapshot
	levels     *lod.Levels
	index      *lod.ClusterIndex
	edgeCounts map[lod.PairKey]int
	current    lod.LevelName
	processing bool
	pending    *lod.LevelName
	// dirty marks a structural change that landed while a cycle was in
	// flight; the cycle's results are discarded and rebuilt on completion.
	dirty bool
	// gen counts lifecycle transitions. A cycle carries the generation it
	// started under; results from an older generation are discarded, so a
	// Disable (or Disable/Enable) landing mid-cycle never resurrects caches.
	gen uint64
}

// Option customizes an Engine.
type Option func(*Engine)

// WithMetrics attaches a Prometheus collector.
func WithMetrics(m *observability.Collector) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTracer attaches a tracer provider for rebuild/apply spans.
func WithTracer(tp *tracing.TracerProvider) Option {
	return func(e *Engine) { e.tracer = tp }
}

// New constructs an engine. The caller owns the instance and its lifecycle;
// nothing here is a process-wide singleton.
func New(
	cfg *config.Config,
	provider ports.GraphSnapshotProvider,
	viewport ports.ViewportObserver,
	adapter ports.RenderAdapter,
	logger *zap.Logger,
	opts ...Option,
) *Engine {
	e := &Engine{
		provider: provider,
		viewport: viewport,
		adapter:  adapter,
		logger:   logger,
		tracer:   tracing.Noop(),
		jobs:     make(chan func(), 64),
		stopCh:   make(chan struct{}),
		cfg:      cfg,
		state:    StateDisabled,
		current:  lod.LevelDisabled,
		index:    lod.NewClusterIndex(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.storeZoom(viewport.Zoom())
	return e
}

// Start launches the engine goroutine and subscribes to zoom changes. If the
// configuration says so, the engine enables itself immediately.
func (e *Engine) Start() {
	e.wg.Add(1)
	go e.loop()

	e.viewport.OnZoomChanged(e.OnZoomChanged)

	if e.cfg.Enabled {
		e.Enable()
	}
	e.logger.Info("lod engine started",
		zap.Bool("enabled", e.cfg.Enabled),
		zap.Duration("debounce", e.cfg.DebounceTime()),
	)
}

// Stop shuts the engine down. Pending jobs are abandoned; the render state is
// left as-is.
func (e *Engine) Stop() {
	e.debounceMu.Lock()
	if e.debounce != nil {
		e.debounce.Stop()
	}
	e.debounceMu.Unlock()

	close(e.stopCh)
	e.wg.Wait()
	e.logger.Info("lod engine stopped")
}

// Enable turns the engine on. If the graph clears the activation floor this
// builds clusters and applies a level; otherwise the engine parks in the
// inactive state at full detail. Blocks until the transition is decided (the
// first apply may still be in flight).
func (e *Engine) Enable() {
	e.run(func() { e.enable() })
}

// Disable discards all derived data and restores full detail.
func (e *Engine) Disable() {
	e.run(func() { e.disable() })
}

// OnStructuralChange tells the engine nodes or edges were added or removed.
// Derived caches are discarded; an active engine rebuilds and re-applies.
// Safe to call from any goroutine; returns immediately.
func (e *Engine) OnStructuralChange() {
	e.post(func() { e.structuralChange() })
}

// OnZoomChanged feeds a zoom notification. Bursts within the debounce window
// coalesce into a single evaluation on the engine goroutine; only the most
// recent zoom value matters.
func (e *Engine) OnZoomChanged(zoom float64) {
	if e.metrics != nil {
		e.metrics.ZoomEvents.Inc()
	}
	e.storeZoom(zoom)

	e.debounceMu.Lock()
	defer e.debounceMu.Unlock()
	if e.debounce != nil {
		if e.debounce.Stop() && e.metrics != nil {
			e.metrics.ZoomCoalesced.Inc()
		}
	}
	e.debounce = time.AfterFunc(e.cfg.DebounceTime(), func() {
		e.post(func() { e.evaluateZoom() })
	})
}

// UpdateConfig swaps threshold configuration at runtime (config hot reload).
// The new thresholds take effect from the next evaluation; they do not
// interrupt an in-flight rebuild.
func (e *Engine) UpdateConfig(cfg *config.Config) {
	e.post(func() {
		e.cfg = cfg
		e.logger.Info("lod engine configuration updated",
			zap.Int("min_nodes_for_activation", cfg.MinNodesForActivation))
	})
}

// Status returns a consistent view of the engine state.
func (e *Engine) Status() Status {
	var st Status
	e.run(func() {
		st = Status{
			State:         e.state,
			Level:         e.current,
			NodeCount:     e.snapshot.NodeCount(),
			EdgeCount:     e.snapshot.EdgeCount(),
			Processing:    e.processing,
			ClusterCounts: map[lod.Kind]int{},
		}
		if e.snapshot != nil {
			st.SnapshotVersion = e.snapshot.Version
		}
		if e.levels != nil {
			for _, kind := range lod.Kinds {
				st.ClusterCounts[kind] = len(e.levels.ByKind(kind).Clusters)
			}
		}
	})
	return st
}

// ClustersFor returns the current partition for a kind, or nil when the
// engine holds no clusters. The slice must be treated as read-only.
func (e *Engine) ClustersFor(kind lod.Kind) []lod.Cluster {
	var clusters []lod.Cluster
	e.run(func() {
		if e.levels != nil {
			clusters = e.levels.ByKind(kind).Clusters
		}
	})
	return clusters
}

// EdgeCounts returns the aggregated inter-cluster edge counts for the level
// currently rendered coarse, or nil when no coarse level is applied.
func (e *Engine) EdgeCounts() map[lod.PairKey]int {
	var counts map[lod.PairKey]int
	e.run(func() { counts = e.edgeCounts })
	return counts
}

// loop is the engine goroutine: the sole owner of controller state.
func (e *Engine) loop() {
	defer e.wg.Done()
	for {
		select {
		case fn := <-e.jobs:
			fn()
		case <-e.stopCh:
			return
		}
	}
}

// post schedules fn on the engine goroutine without waiting.
func (e *Engine) post(fn func()) {
	select {
	case e.jobs <- fn:
	case <-e.stopCh:
	}
}

// run schedules fn and waits for it to finish.
func (e *Engine) run(fn func()) {
	done := make(chan struct{})
	e.post(func() {
		fn()
		close(done)
	})
	select {
	case <-done:
	case <-e.stopCh:
	}
}

func (e *Engine) storeZoom(zoom float64) {
	e.lastZoom.Store(math.Float64bits(zoom))
}

func (e *Engine) loadZoom() float64 {
	return math.Float64frombits(e.lastZoom.Load())
}

// ---- state machine, engine goroutine only ----

func (e *Engine) enable() {
	if e.state == StateActive {
		return
	}
	// A cycle started before this transition describes a lifecycle that no
	// longer exists; bump the generation so finishCycle drops it.
	e.gen++
	e.processing = false
	e.dirty = false
	snap := e.provider.Snapshot()
	e.snapshot = snap

	if snap.NodeCount() < e.cfg.MinNodesForActivation {
		e.state = StateInactive
		e.logger.Info("lod inactive: graph below activation threshold",
			zap.Int("nodes", snap.NodeCount()),
			zap.Int("min_nodes", e.cfg.MinNodesForActivation),
		)
		return
	}

	e.state = StateActive
	target := lod.SelectLevel(e.loadZoom(), snap.NodeCount(), snap.EdgeCount(), e.cfg.SelectConfig())
	e.beginCycle(target, true)
}

func (e *Engine) disable() {
	e.state = StateDisabled
	e.gen++
	e.processing = false
	e.dirty = false
	e.levels = nil
	e.edgeCounts = nil
	// Replace rather than invalidate in place: an in-flight worker may
	// still hold the old index.
	e.index = lod.NewClusterIndex()
	e.pending = nil
	if e.current != lod.LevelDisabled {
		e.adapter.Restore()
	}
	e.current = lod.LevelDisabled
	if e.metrics != nil {
		e.metrics.SetActiveLevel(string(lod.LevelDisabled))
	}
	e.logger.Info("lod disabled, full detail restored")
}

func (e *Engine) structuralChange() {
	// Derived data is stale no matter the state. Replace the index instead
	// of invalidating in place: an in-flight worker may still hold it.
	e.levels = nil
	e.edgeCounts = nil
	e.index = lod.NewClusterIndex()

	if e.state == StateDisabled {
		return
	}

	if e.processing {
		// The in-flight cycle was built from the old snapshot; finishCycle
		// throws its results away and rebuilds.
		e.dirty = true
		return
	}

	snap := e.provider.Snapshot()
	e.snapshot = snap

	// The graph may have crossed the activation floor in either direction.
	if snap.NodeCount() < e.cfg.MinNodesForActivation {
		if e.state == StateActive {
			e.state = StateInactive
			e.pending = nil
			if e.current != lod.LevelDisabled && e.current != lod.LevelFine {
				e.adapter.Restore()
			}
			e.current = lod.LevelDisabled
			e.logger.Info("lod deactivated: graph shrank below threshold",
				zap.Int("nodes", snap.NodeCount()))
		}
		return
	}
	e.state = StateActive

	// A level pending from an earlier zoom change wins; otherwise the
	// current zoom decides.
	var target lod.LevelName
	if e.pending != nil {
		target = *e.pending
		e.pending = nil
	} else {
		target = lod.SelectLevel(e.loadZoom(), snap.NodeCount(), snap.EdgeCount(), e.cfg.SelectConfig())
	}
	e.beginCycle(target, true)
}

func (e *Engine) evaluateZoom() {
	if e.state != StateActive || e.snapshot == nil {
		return
	}
	snap := e.snapshot
	target := lod.SelectLevel(e.loadZoom(), snap.NodeCount(), snap.EdgeCount(), e.cfg.SelectConfig())

	if e.processing {
		// Single pending slot, last write wins. Only the newest decision
		// matters; older queued ones are intentionally dropped.
		if e.pending != nil && e.metrics != nil {
			e.metrics.PendingDrops.Inc()
		}
		e.pending = &target
		return
	}
	if target == e.current {
		return
	}
	e.beginCycle(target, false)
}

// cycleResult carries the data a rebuild worker hands back to the loop.
type cycleResult struct {
	target     lod.LevelName
	snapshot   *graph.Snapshot
	levels     *lod.Levels
	index      *lod.ClusterIndex
	edgeCounts map[lod.PairKey]int
	elapsed    time.Duration
	gen        uint64
}

// beginCycle starts one rebuild/apply cycle. Heavy work runs off the engine
// goroutine so the loop stays responsive to newer decisions; the processing
// flag guarantees at most one cycle is in flight.
func (e *Engine) beginCycle(target lod.LevelName, force bool) {
	if !force && target == e.current {
		return
	}
	e.processing = true

	cfg := e.cfg
	levels := e.levels
	index := e.index
	snap := e.snapshot
	gen := e.gen

	go func() {
		start := time.Now()
		ctx, span := e.tracer.StartSpan(context.Background(), "lod.rebuild",
			trace.WithAttributes(
				attribute.String("lod.target_level", string(target)),
			),
		)
		defer span.End()

		if snap == nil {
			snap = e.provider.Snapshot()
		}

		if levels == nil || levels.Version != snap.Version {
			builder := lod.NewBuilder(cfg.BuildConfig())
			levels = builder.Build(snap)
			index = lod.NewClusterIndex()
		}
		if index.Stale(snap.Version) {
			index.Rebuild(levels)
		}

		var counts map[lod.PairKey]int
		if target == lod.LevelCoarse {
			_, aggSpan := e.tracer.StartSpan(ctx, "lod.aggregate_edges")
			counts = lod.AggregateEdges(snap.Edges, lod.KindSpatial, index)
			aggSpan.End()
		}

		res := cycleResult{
			target:     target,
			snapshot:   snap,
			levels:     levels,
			index:      index,
			edgeCounts: counts,
			elapsed:    time.Since(start),
			gen:        gen,
		}
		e.post(func() { e.finishCycle(res, force) })
	}()
}

func (e *Engine) finishCycle(res cycleResult, force bool) {
	if res.gen != e.gen {
		// A disable or re-enable landed while this cycle ran; committing its
		// caches would resurrect state the transition already discarded.
		return
	}
	e.processing = false

	if e.dirty {
		// The graph changed structurally while this cycle ran: its results
		// no longer describe the snapshot. Drop them and start over. A
		// pending zoom decision still wins over re-evaluation.
		e.dirty = false
		snap := e.provider.Snapshot()
		e.snapshot = snap
		if snap.NodeCount() < e.cfg.MinNodesForActivation {
			e.state = StateInactive
			e.pending = nil
			if e.current != lod.LevelDisabled && e.current != lod.LevelFine {
				e.adapter.Restore()
			}
			e.current = lod.LevelDisabled
			return
		}
		var target lod.LevelName
		if e.pending != nil {
			target = *e.pending
			e.pending = nil
		} else {
			target = lod.SelectLevel(e.loadZoom(), snap.NodeCount(), snap.EdgeCount(), e.cfg.SelectConfig())
		}
		e.beginCycle(target, true)
		return
	}

	e.levels = res.levels
	e.index = res.index
	e.snapshot = res.snapshot
	if res.target == lod.LevelCoarse {
		e.edgeCounts = res.edgeCounts
	} else {
		e.edgeCounts = nil
	}

	if e.metrics != nil {
		e.metrics.ObserveRebuild(res.elapsed)
		for _, kind := range lod.Kinds {
			e.metrics.ClustersBuilt.WithLabelValues(string(kind)).
				Set(float64(len(res.levels.ByKind(kind).Clusters)))
		}
	}

	if e.state == StateActive && (force || res.target != e.current) {
		e.apply(res.target, res.edgeCounts)
	}

	if e.pending != nil {
		next := *e.pending
		e.pending = nil
		if next != e.current {
			e.beginCycle(next, false)
		}
	}
}

// apply drives the render adapter exactly once for a decided level.
func (e *Engine) apply(target lod.LevelName, counts map[lod.PairKey]int) {
	switch target {
	case lod.LevelFine, lod.LevelDisabled:
		e.adapter.Restore()
	default:
		kind := e.kindForLevel(target)
		clusters := e.levels.ByKind(kind).Clusters
		if len(clusters) == 0 {
			// The kind was skipped at build time (graph under its
			// activation size); nothing to aggregate, show everything.
			e.adapter.Restore()
			target = lod.LevelFine
		} else {
			e.adapter.Apply(target, clusters, counts)
		}
	}

	changed := target != e.current
	e.current = target

	if e.metrics != nil {
		e.metrics.LevelsApplied.Inc()
		e.metrics.SetActiveLevel(string(target))
		if changed {
			e.metrics.LevelChanges.WithLabelValues(string(target)).Inc()
		}
	}
	e.logger.Debug("lod level applied",
		zap.String("level", string(target)),
		zap.Uint64("snapshot_version", e.currentVersion()),
	)
}

// kindForLevel maps a detail level to the partition that backs it. Coarse is
// always spatial. Medium uses connectivity clusters unless the graph is too
// edge-sparse for components to mean anything, in which case type grouping
// takes over.
func (e *Engine) kindForLevel(level lod.LevelName) lod.Kind {
	if level == lod.LevelCoarse {
		return lod.KindSpatial
	}
	nodes := e.snapshot.NodeCount()
	edges := e.snapshot.EdgeCount()
	if float64(edges) < float64(nodes)*e.cfg.SparseEdgeFactor {
		return lod.KindType
	}
	return lod.KindConnectivity
}

func (e *Engine) currentVersion() uint64 {
	if e.snapshot == nil {
		return 0
	}
	return e.snapshot.Version
}
