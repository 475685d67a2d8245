// Package config holds the LOD engine's configuration: activation and size
// thresholds, the zoom/tier table, debounce timing, and the ambient server
// settings. Values are layered defaults -> YAML file -> environment
// variables, and validated before use.
package config

import (
	"time"

	"github.com/go-playground/validator/v10"

	"brain2-lod/internal/domain/lod"
	pkgerrors "brain2-lod/internal/errors"
)

// SizeThresholds classify graphs into small/medium/large tiers by node
// count. They control both the selector's tier table and which cluster kinds
// the builder bothers constructing.
type SizeThresholds struct {
	Small  int `yaml:"small" validate:"gt=0"`
	Medium int `yaml:"medium" validate:"gt=0"`
	Large  int `yaml:"large" validate:"gt=0"`
}

// ZoomLevels are the base zoom boundaries applied to the largest tier.
// Coarse < Medium < Fine; zoom below Coarse selects the coarse level.
type ZoomLevels struct {
	Coarse float64 `yaml:"coarse" validate:"gt=0"`
	Medium float64 `yaml:"medium" validate:"gt=0"`
	Fine   float64 `yaml:"fine" validate:"gt=0"`
}

// ServerConfig configures the debug/inspection HTTP server.
type ServerConfig struct {
	Address string `yaml:"address" validate:"required"`
}

// Config is the full engine configuration.
type Config struct {
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`

	// Enabled controls whether the engine starts engaged. LOD starts
	// disabled by default; hosts opt in.
	Enabled bool `yaml:"enabled"`

	// DebounceTimeMs coalesces zoom-change bursts into one evaluation.
	DebounceTimeMs int `yaml:"debounce_time_ms" validate:"gte=0"`

	// MinNodesForActivation keeps LOD inactive for small graphs no matter
	// the zoom.
	MinNodesForActivation int `yaml:"min_nodes_for_activation" validate:"gte=0"`

	// SpatialCellSize is the spatial grid cell edge length in graph units.
	SpatialCellSize float64 `yaml:"spatial_cell_size" validate:"gt=0"`

	SizeThresholds    SizeThresholds `yaml:"size_thresholds"`
	ClusterThresholds lod.KindValues `yaml:"cluster_thresholds"`
	ZoomLevels        ZoomLevels     `yaml:"zoom_levels"`

	// TierBands overrides the derived size/zoom table wholesale. When
	// empty, the table is derived from SizeThresholds and ZoomLevels.
	TierBands []lod.Tier `yaml:"tier_bands"`

	// SparseEdgeFactor marks a graph edge-sparse when
	// edges < nodes * factor; the medium level then falls back from
	// connectivity to type clusters.
	SparseEdgeFactor float64 `yaml:"sparse_edge_factor" validate:"gte=0"`

	// ParallelBuild runs the three cluster strategies concurrently.
	ParallelBuild bool `yaml:"parallel_build"`

	Server ServerConfig `yaml:"server"`

	EnableMetrics   bool   `yaml:"enable_metrics"`
	EnableTracing   bool   `yaml:"enable_tracing"`
	TracingEndpoint string `yaml:"tracing_endpoint"`
}

// Default returns the configuration with every stock threshold: LOD
// disabled, 300ms debounce, 10k activation floor, 300-unit grid cells,
// 200/300/800 size tiers, 100/50/25 cluster caps and 0.5/0.8/1.0 zoom
// boundaries.
func Default() *Config {
	return &Config{
		Environment:           "development",
		LogLevel:              "info",
		Enabled:               false,
		DebounceTimeMs:        300,
		MinNodesForActivation: 10000,
		SpatialCellSize:       lod.DefaultSpatialCellSize,
		SizeThresholds:        SizeThresholds{Small: 200, Medium: 300, Large: 800},
		ClusterThresholds:     lod.KindValues{Spatial: 100, Connectivity: 50, Type: 25},
		ZoomLevels:            ZoomLevels{Coarse: 0.5, Medium: 0.8, Fine: 1.0},
		SparseEdgeFactor:      0.1,
		ParallelBuild:         true,
		Server:                ServerConfig{Address: ":8080"},
		EnableMetrics:         true,
		EnableTracing:         false,
		TracingEndpoint:       "localhost:4317",
	}
}

// DebounceTime returns the zoom debounce window as a duration.
func (c *Config) DebounceTime() time.Duration {
	return time.Duration(c.DebounceTimeMs) * time.Millisecond
}

// Validate checks struct tags plus the cross-field ordering rules the tags
// cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return pkgerrors.Wrap(err, "invalid configuration")
	}
	if c.SizeThresholds.Small > c.SizeThresholds.Medium ||
		c.SizeThresholds.Medium > c.SizeThresholds.Large {
		return pkgerrors.NewValidation("size_thresholds must be ordered small <= medium <= large")
	}
	if c.ZoomLevels.Coarse >= c.ZoomLevels.Medium ||
		c.ZoomLevels.Medium >= c.ZoomLevels.Fine {
		return pkgerrors.NewValidation("zoom_levels must be ordered coarse < medium < fine")
	}
	for i := 1; i < len(c.TierBands); i++ {
		prev, cur := c.TierBands[i-1], c.TierBands[i]
		if cur.MaxNodes != 0 && cur.MaxNodes <= prev.MaxNodes {
			return pkgerrors.NewValidation("tier_bands must be ordered by ascending max_nodes")
		}
	}
	return nil
}

// BuildConfig projects the builder's view of the configuration. A kind's
// activation threshold follows the size tier it serves: spatial clusters
// only pay off on large graphs, connectivity on medium ones, type grouping
// already on small ones.
func (c *Config) BuildConfig() lod.BuildConfig {
	return lod.BuildConfig{
		SpatialCellSize: c.SpatialCellSize,
		ClusterCaps:     c.ClusterThresholds,
		Activation: lod.KindValues{
			Spatial:      c.SizeThresholds.Large,
			Connectivity: c.SizeThresholds.Medium,
			Type:         c.SizeThresholds.Small,
		},
		Parallel: c.ParallelBuild,
	}
}

// SelectConfig projects the level selector's view of the configuration.
func (c *Config) SelectConfig() lod.SelectConfig {
	tiers := c.TierBands
	if len(tiers) == 0 {
		tiers = lod.DeriveTiers(
			c.SizeThresholds.Small,
			c.SizeThresholds.Medium,
			c.SizeThresholds.Large,
			lod.ZoomBands{Coarse: c.ZoomLevels.Coarse, Medium: c.ZoomLevels.Medium},
		)
	}
	return lod.SelectConfig{
		MinNodesForActivation: c.MinNodesForActivation,
		Tiers:                 tiers,
	}
}

// IsDevelopment checks if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
