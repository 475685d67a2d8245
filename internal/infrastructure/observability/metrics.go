// Package observability wires the engine's Prometheus metrics.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds all Prometheus metrics for the LOD engine. It registers
// against its own registry so tests and embedded hosts never collide on the
// global default registry.
type Collector struct {
	registry *prometheus.Registry

	// Rebuild/apply cycle metrics
	Rebuilds        prometheus.Counter
	RebuildDuration prometheus.Histogram

	// Level decisions
	LevelChanges  *prometheus.CounterVec
	ActiveLevel   *prometheus.GaugeVec
	LevelsApplied prometheus.Counter

	// Zoom event handling
	ZoomEvents    prometheus.Counter
	ZoomCoalesced prometheus.Counter
	PendingDrops  prometheus.Counter

	// Cluster inventory
	ClustersBuilt *prometheus.GaugeVec
}

// NewCollector creates a metrics collector with the given namespace.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	rebuilds := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rebuilds_total",
		Help:      "Total number of cluster rebuild cycles",
	})

	rebuildDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "rebuild_duration_seconds",
		Help:      "Cluster rebuild and apply duration in seconds",
		Buckets:   prometheus.DefBuckets,
	})

	levelChanges := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "level_changes_total",
		Help:      "Total number of level transitions, by target level",
	}, []string{"level"})

	activeLevel := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_level",
		Help:      "Currently active detail level (1 for the active one)",
	}, []string{"level"})

	levelsApplied := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "levels_applied_total",
		Help:      "Total number of render adapter apply calls",
	})

	zoomEvents := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "zoom_events_total",
		Help:      "Total number of zoom change notifications received",
	})

	zoomCoalesced := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "zoom_events_coalesced_total",
		Help:      "Zoom notifications absorbed by the debounce window",
	})

	pendingDrops := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pending_level_overwrites_total",
		Help:      "Pending level decisions overwritten before they applied",
	})

	clustersBuilt := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "clusters_built",
		Help:      "Number of clusters in the current partition, by kind",
	}, []string{"kind"})

	registry.MustRegister(
		rebuilds,
		rebuildDuration,
		levelChanges,
		activeLevel,
		levelsApplied,
		zoomEvents,
		zoomCoalesced,
		pendingDrops,
		clustersBuilt,
	)

	return &Collector{
		registry:        registry,
		Rebuilds:        rebuilds,
		RebuildDuration: rebuildDuration,
		LevelChanges:    levelChanges,
		ActiveLevel:     activeLevel,
		LevelsApplied:   levelsApplied,
		ZoomEvents:      zoomEvents,
		ZoomCoalesced:   zoomCoalesced,
		PendingDrops:    pendingDrops,
		ClustersBuilt:   clustersBuilt,
	}
}

// Registry returns the Prometheus registry for this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveRebuild records one completed rebuild cycle.
func (c *Collector) ObserveRebuild(d time.Duration) {
	c.Rebuilds.Inc()
	c.RebuildDuration.Observe(d.Seconds())
}

// SetActiveLevel flips the active-level gauge to the given level.
func (c *Collector) SetActiveLevel(level string) {
	c.ActiveLevel.Reset()
	c.ActiveLevel.WithLabelValues(level).Set(1)
}
