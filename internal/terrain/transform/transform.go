// Package transform maps elevations onto the integer vertical levels of
// the voxel world.
package transform

import (
	"errors"
	"fmt"
	"math"

	"github.com/OCharnyshevich/minecraft-terrain/internal/terrain/config"
	"github.com/OCharnyshevich/minecraft-terrain/internal/terrain/elevation"
)

// ErrMalformedSample is returned by Level for samples that have no level.
var ErrMalformedSample = errors.New("malformed elevation sample")

// Transform computes level(e) = floor(e*Scale + Shift).
type Transform struct {
	Scale float64
	Shift float64
}

// New returns a Transform. scale must be positive so Level is monotonic.
func New(scale, shift float64) (Transform, error) {
	if !(scale > 0) || math.IsInf(scale, 0) {
		return Transform{}, &config.ConfigurationError{Field: "vertical_scale", Reason: fmt.Sprintf("must be a finite value > 0, got %v", scale)}
	}
	if math.IsNaN(shift) || math.IsInf(shift, 0) {
		return Transform{}, &config.ConfigurationError{Field: "vertical_shift", Reason: fmt.Sprintf("must be finite, got %v", shift)}
	}
	return Transform{Scale: scale, Shift: shift}, nil
}

// Level converts one elevation sample.
func (t Transform) Level(e float64) (int, error) {
	if math.IsNaN(e) || math.IsInf(e, 0) {
		return 0, fmt.Errorf("%w: %v", ErrMalformedSample, e)
	}
	v := math.Floor(e*t.Scale + t.Shift)
	if math.IsInf(v, 0) || v < math.MinInt32 || v > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %v maps outside the level range", ErrMalformedSample, e)
	}
	return int(v), nil
}

// Bounds is the transformed vertical extent of a model.
type Bounds struct {
	MinBed     int `json:"min_bed"`
	MaxSurface int `json:"max_surface"`
}

// CheckBounds verifies that the transformed bed stays above level 0 and the
// transformed surface below maxLevel, over finite samples. It returns a
// *config.ConfigurationError otherwise.
func (t Transform) CheckBounds(m *elevation.Model, maxLevel int) (Bounds, error) {
	bedLo, _, ok := m.Bed.FiniteRange()
	if !ok {
		return Bounds{}, config.Errorf("bed grid has no finite samples")
	}
	_, surfHi, ok := m.Surface.FiniteRange()
	if !ok {
		return Bounds{}, config.Errorf("surface grid has no finite samples")
	}

	// Level is monotonic, so the extreme samples give the extreme levels.
	minBed, err := t.Level(bedLo)
	if err != nil {
		return Bounds{}, config.Errorf("bed minimum %v: %v", bedLo, err)
	}
	maxSurf, err := t.Level(surfHi)
	if err != nil {
		return Bounds{}, config.Errorf("surface maximum %v: %v", surfHi, err)
	}

	b := Bounds{MinBed: minBed, MaxSurface: maxSurf}
	if minBed <= 0 {
		return b, config.Errorf("bed goes below y=0 (level %d): decrease vertical_scale or increase vertical_shift", minBed)
	}
	if maxSurf >= maxLevel {
		return b, config.Errorf("surface goes above y=%d (level %d): decrease vertical_scale or decrease vertical_shift", maxLevel, maxSurf)
	}
	return b, nil
}
