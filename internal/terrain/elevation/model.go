// Package elevation holds the layered elevation model: three co-registered
// grids describing the top of the upper layer (surface), the boundary
// between the two layers, and the base of the lower layer (bed).
package elevation

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Model is read-only once built.
type Model struct {
	Surface  *Grid
	Boundary *Grid
	Bed      *Grid
}

// NewModel checks that the three grids share one shape.
func NewModel(surface, boundary, bed *Grid) (*Model, error) {
	if surface == nil || boundary == nil || bed == nil {
		return nil, fmt.Errorf("elevation model needs surface, boundary and bed grids")
	}
	if !surface.SameShape(boundary) || !surface.SameShape(bed) {
		return nil, fmt.Errorf("grid shapes differ: surface %dx%d, boundary %dx%d, bed %dx%d",
			surface.Rows, surface.Cols, boundary.Rows, boundary.Cols, bed.Rows, bed.Cols)
	}
	return &Model{Surface: surface, Boundary: boundary, Bed: bed}, nil
}

// Derive builds a model from a boundary grid: the surface sits thickness
// units above the boundary so the upper layer never starts at zero
// thickness, and a nil bed is a flat bed at elevation 0.
// The boundary grid is not modified.
func Derive(boundary, bed *Grid, thickness float64) (*Model, error) {
	if boundary == nil {
		return nil, fmt.Errorf("elevation model needs a boundary grid")
	}
	surface := boundary.Clone()
	floats.AddConst(thickness, surface.Data)

	if bed == nil {
		bed = Zeros(boundary.Rows, boundary.Cols)
	}
	return NewModel(surface, boundary, bed)
}

// Rows returns the number of source rows.
func (m *Model) Rows() int { return m.Boundary.Rows }

// Cols returns the number of source columns.
func (m *Model) Cols() int { return m.Boundary.Cols }
