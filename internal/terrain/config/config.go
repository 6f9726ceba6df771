package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/OCharnyshevich/minecraft-terrain/pkg/world/chunk"
)

// Config holds the compiler configuration. It is built once in main and
// passed by value to every component.
type Config struct {
	VerticalScale  float64 `yaml:"vertical_scale" json:"vertical_scale"`
	VerticalShift  float64 `yaml:"vertical_shift" json:"vertical_shift"`
	Step           int     `yaml:"step" json:"step"`             // use every step-th sample (lateral scale)
	BatchSize      int     `yaml:"batch_size" json:"batch_size"` // output rows per checkpoint
	MaxLevel       int     `yaml:"max_level" json:"max_level"`
	LayerThickness float64 `yaml:"layer_thickness" json:"layer_thickness"`
	MarkerY        int     `yaml:"marker_y" json:"marker_y"`

	Palette Palette `yaml:"palette" json:"palette"`
	Rasters Rasters `yaml:"rasters" json:"rasters"`

	WorldName     string `yaml:"world_name" json:"world_name"`
	SaveDir       string `yaml:"save_dir" json:"save_dir"`
	StagingDir    string `yaml:"staging_dir" json:"staging_dir"` // empty = keep chunks in memory
	RegionWorkers int    `yaml:"region_workers" json:"region_workers"`
	MetricsAddr   string `yaml:"metrics_addr" json:"metrics_addr"`
}

// Palette names the block filling each of the three layers.
type Palette struct {
	Fill   string `yaml:"fill" json:"fill"`     // below the bed surface
	Middle string `yaml:"middle" json:"middle"` // bed to boundary
	Upper  string `yaml:"upper" json:"upper"`   // boundary to surface
}

// Rasters locates the elevation inputs.
type Rasters struct {
	Dir           string  `yaml:"dir" json:"dir"`
	CacheDir      string  `yaml:"cache_dir" json:"cache_dir"`
	Boundary      string  `yaml:"boundary" json:"boundary"`
	Bed           string  `yaml:"bed" json:"bed"` // empty = flat bed at 0
	NoDataDefault float64 `yaml:"nodata_default" json:"nodata_default"`
	NoDataFromMin bool    `yaml:"nodata_from_min" json:"nodata_from_min"`
}

// Blocks is the resolved palette.
type Blocks struct {
	Fill, Middle, Upper chunk.State
}

// DefaultConfig returns a Config tuned for the Alberta DEM tiles.
func DefaultConfig() Config {
	return Config{
		VerticalScale:  0.025,
		VerticalShift:  5,
		Step:           2,
		BatchSize:      32,
		MaxLevel:       255,
		LayerThickness: 1,
		MarkerY:        250,
		Palette: Palette{
			Fill:   "air",
			Middle: "stone",
			Upper:  "grass",
		},
		Rasters: Rasters{
			Dir:      "./rasters",
			CacheDir: "./rasters/.cache",
		},
		WorldName:     "Test_02",
		SaveDir:       "./saves",
		RegionWorkers: 4,
	}
}

// Load reads a YAML file over the defaults. Keys absent from the file keep
// their default value.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Merge applies file-loaded config values into cfg, but only for fields
// that were NOT explicitly set via CLI flags. explicitFlags contains the
// flag names that were explicitly provided on the command line.
func Merge(cfg *Config, fromFile Config, explicitFlags map[string]bool) {
	keep := *cfg
	*cfg = fromFile

	if explicitFlags["scale"] {
		cfg.VerticalScale = keep.VerticalScale
	}
	if explicitFlags["shift"] {
		cfg.VerticalShift = keep.VerticalShift
	}
	if explicitFlags["step"] {
		cfg.Step = keep.Step
	}
	if explicitFlags["batch-size"] {
		cfg.BatchSize = keep.BatchSize
	}
	if explicitFlags["name"] {
		cfg.WorldName = keep.WorldName
	}
	if explicitFlags["save-dir"] {
		cfg.SaveDir = keep.SaveDir
	}
	if explicitFlags["rasters"] {
		cfg.Rasters.Dir = keep.Rasters.Dir
	}
	if explicitFlags["boundary"] {
		cfg.Rasters.Boundary = keep.Rasters.Boundary
	}
	if explicitFlags["bed"] {
		cfg.Rasters.Bed = keep.Rasters.Bed
	}
	if explicitFlags["staging-dir"] {
		cfg.StagingDir = keep.StagingDir
	}
	if explicitFlags["metrics-addr"] {
		cfg.MetricsAddr = keep.MetricsAddr
	}
}

// Validate checks value ranges and resolves the palette. Every failure is
// a *ConfigurationError.
func (c Config) Validate() (Blocks, error) {
	var errs []error
	check := func(ok bool, field, format string, args ...any) {
		if !ok {
			errs = append(errs, &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)})
		}
	}

	check(c.VerticalScale > 0, "vertical_scale", "must be > 0, got %v", c.VerticalScale)
	check(c.Step >= 1, "step", "must be >= 1, got %d", c.Step)
	check(c.BatchSize >= 1, "batch_size", "must be >= 1, got %d", c.BatchSize)
	check(c.MaxLevel >= 1 && c.MaxLevel <= chunk.Height-1, "max_level", "must be in [1,%d], got %d", chunk.Height-1, c.MaxLevel)
	check(c.LayerThickness >= 0, "layer_thickness", "must be >= 0, got %v", c.LayerThickness)
	check(c.MarkerY >= 0 && c.MarkerY < chunk.Height, "marker_y", "must be in [0,%d), got %d", chunk.Height, c.MarkerY)
	check(c.WorldName != "", "world_name", "must not be empty")
	check(c.RegionWorkers >= 1, "region_workers", "must be >= 1, got %d", c.RegionWorkers)

	var b Blocks
	for _, p := range []struct {
		field string
		name  string
		dst   *chunk.State
	}{
		{"palette.fill", c.Palette.Fill, &b.Fill},
		{"palette.middle", c.Palette.Middle, &b.Middle},
		{"palette.upper", c.Palette.Upper, &b.Upper},
	} {
		st, err := chunk.ParseBlock(p.name)
		if err != nil {
			errs = append(errs, &ConfigurationError{Field: p.field, Reason: err.Error()})
			continue
		}
		*p.dst = st
	}

	if len(errs) > 0 {
		return Blocks{}, errors.Join(errs...)
	}
	return b, nil
}
