package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	pkgerrors "brain2-lod/internal/errors"
)

// Load builds the effective configuration. Sources are applied in priority
// order: defaults, then the YAML file at path (optional, "" skips it), then
// environment variables. The merged result is validated before it is
// returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnvironment(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return pkgerrors.NewInternal("failed to read config file", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return pkgerrors.NewInternal("failed to parse config file", err)
	}
	return nil
}

// applyEnvironment overlays environment variables on the configuration.
// Environment always wins over file values.
func applyEnvironment(cfg *Config) {
	if val := os.Getenv("ENVIRONMENT"); val != "" {
		cfg.Environment = val
	}
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		cfg.LogLevel = val
	}
	if val := os.Getenv("SERVER_ADDRESS"); val != "" {
		cfg.Server.Address = val
	}
	if val := os.Getenv("LOD_ENABLED"); val != "" {
		cfg.Enabled = envBool(val)
	}
	if val, ok := envInt("LOD_DEBOUNCE_MS"); ok {
		cfg.DebounceTimeMs = val
	}
	if val, ok := envInt("LOD_MIN_NODES"); ok {
		cfg.MinNodesForActivation = val
	}
	if val, ok := envFloat("LOD_SPATIAL_CELL_SIZE"); ok {
		cfg.SpatialCellSize = val
	}
	if val := os.Getenv("LOD_PARALLEL_BUILD"); val != "" {
		cfg.ParallelBuild = envBool(val)
	}
	if val := os.Getenv("ENABLE_METRICS"); val != "" {
		cfg.EnableMetrics = envBool(val)
	}
	if val := os.Getenv("ENABLE_TRACING"); val != "" {
		cfg.EnableTracing = envBool(val)
	}
	if val := os.Getenv("TRACING_ENDPOINT"); val != "" {
		cfg.TracingEndpoint = val
	}
}

func envBool(val string) bool {
	return val == "true" || val == "1" || val == "yes"
}

func envInt(key string) (int, bool) {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n, true
		}
	}
	return 0, false
}

func envFloat(key string) (float64, bool) {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
