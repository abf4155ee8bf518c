// Package config loads the YAML run configuration consumed by the command
// line tools. Flags may override individual fields after loading.
package config

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"gopkg.in/yaml.v3"

	"applicability/aoa"
)

// Region is an axis-aligned bounding box in grid coordinates.
type Region struct {
	MinX float64 `yaml:"min_x"`
	MinY float64 `yaml:"min_y"`
	MaxX float64 `yaml:"max_x"`
	MaxY float64 `yaml:"max_y"`
}

// Bound converts the region to an orb bounding box.
func (r *Region) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{r.MinX, r.MinY},
		Max: orb.Point{r.MaxX, r.MaxY},
	}
}

// Config describes one AOA computation setup.
type Config struct {
	RunName     string `yaml:"run_name"`
	StackPath   string `yaml:"stack"`
	SamplesPath string `yaml:"samples"`
	WeightsPath string `yaml:"weights"`
	OutputDir   string `yaml:"output_dir"`

	ThresholdFactor float64 `yaml:"threshold_factor"`
	Workers         int     `yaml:"workers"`

	// ZeroWeight lists predictors forced to zero weight before fitting, for
	// ablation runs (e.g. dropping the coordinate-proxy predictors).
	ZeroWeight []string `yaml:"zero_weight"`

	// ExcludeRegion drops reference observations inside the box before
	// fitting, keeping a held-out validation region unseen.
	ExcludeRegion *Region `yaml:"exclude_region"`

	StoreRun bool `yaml:"store_run"`
}

// Defaults returns a configuration with the usual values filled in.
func Defaults() *Config {
	return &Config{
		RunName:         "aoa",
		OutputDir:       "output",
		ThresholdFactor: aoa.DefaultThresholdFactor,
	}
}

// Load reads and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks fields that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if c.StackPath == "" {
		return fmt.Errorf("stack path is required")
	}
	if c.SamplesPath == "" {
		return fmt.Errorf("samples path is required")
	}
	if c.ThresholdFactor < 0 {
		return fmt.Errorf("threshold_factor must be non-negative, got %v", c.ThresholdFactor)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Workers)
	}
	if r := c.ExcludeRegion; r != nil {
		if r.MaxX <= r.MinX || r.MaxY <= r.MinY {
			return fmt.Errorf("exclude_region is empty")
		}
	}
	return nil
}
