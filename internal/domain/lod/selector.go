package lod

// ZoomBands are the zoom boundaries for one size tier. Zoom below Coarse
// selects the coarse level, below Medium the medium level, anything else
// fine. Boundaries are data, not policy: the whole table is configurable.
type ZoomBands struct {
	Coarse float64 `json:"coarse" yaml:"coarse"`
	Medium float64 `json:"medium" yaml:"medium"`
}

// Tier maps a graph size class to its zoom bands. MaxNodes is the inclusive
// upper bound of the class; zero marks the open-ended top tier. Larger tiers
// carry higher boundaries so bigger graphs engage LOD earlier.
type Tier struct {
	MaxNodes int       `json:"max_nodes" yaml:"max_nodes"`
	Bands    ZoomBands `json:"bands" yaml:"bands"`
}

// SelectConfig parameterizes level selection.
type SelectConfig struct {
	// MinNodesForActivation disables LOD entirely for smaller graphs.
	MinNodesForActivation int

	// Tiers is the size/zoom threshold table, ordered by ascending
	// MaxNodes with an open-ended final entry.
	Tiers []Tier
}

// tierScales derives per-tier bands from the top-tier zoom boundaries when
// no explicit table is configured. The original boundary values were hand
// tuned; these factors are exposed through DeriveTiers rather than trusted
// as authoritative.
var tierScales = []float64{0.6, 0.8, 0.9, 1.0}

// DeriveTiers builds a default threshold table from the three size
// thresholds and the base zoom boundaries. The largest tier uses the base
// boundaries unscaled, so the configured zoom levels apply directly to the
// graphs that need coarsening most.
func DeriveTiers(small, medium, large int, bands ZoomBands) []Tier {
	sizes := []int{small, medium, large, 0}
	tiers := make([]Tier, 0, len(sizes))
	for i, max := range sizes {
		tiers = append(tiers, Tier{
			MaxNodes: max,
			Bands: ZoomBands{
				Coarse: bands.Coarse * tierScales[i],
				Medium: bands.Medium * tierScales[i],
			},
		})
	}
	return tiers
}

// SelectLevel is a pure function from viewport zoom and graph size to the
// active detail level. For fixed counts it is monotonic in zoom: decreasing
// zoom never yields a finer level.
func SelectLevel(zoom float64, nodeCount, edgeCount int, cfg SelectConfig) LevelName {
	if nodeCount < cfg.MinNodesForActivation {
		return LevelDisabled
	}

	// Edge-heavy graphs render about as slowly as node-heavy ones, so edges
	// contribute to the size class at half weight.
	size := nodeCount + edgeCount/2

	bands := bandsFor(size, cfg.Tiers)
	switch {
	case zoom < bands.Coarse:
		return LevelCoarse
	case zoom < bands.Medium:
		return LevelMedium
	default:
		return LevelFine
	}
}

func bandsFor(size int, tiers []Tier) ZoomBands {
	for _, t := range tiers {
		if t.MaxNodes > 0 && size > t.MaxNodes {
			continue
		}
		return t.Bands
	}
	// No table configured at all: fall back to never coarsening.
	return ZoomBands{}
}
