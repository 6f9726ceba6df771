package elevation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Grid is a row-major 2-D array of elevation samples. Row 0 is the first
// row of the source raster (north for ASCII grids).
type Grid struct {
	Rows, Cols int
	Data       []float64
}

// NewGrid wraps data as a rows×cols grid.
func NewGrid(rows, cols int, data []float64) (*Grid, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("grid shape %dx%d must be positive", rows, cols)
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("grid %dx%d needs %d samples, got %d", rows, cols, rows*cols, len(data))
	}
	return &Grid{Rows: rows, Cols: cols, Data: data}, nil
}

// Zeros returns a rows×cols grid of zeros.
func Zeros(rows, cols int) *Grid {
	return &Grid{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

// At returns the sample at row i, column j.
func (g *Grid) At(i, j int) float64 {
	return g.Data[i*g.Cols+j]
}

// Set stores v at row i, column j.
func (g *Grid) Set(i, j int, v float64) {
	g.Data[i*g.Cols+j] = v
}

// SameShape reports whether g and o have identical dimensions.
func (g *Grid) SameShape(o *Grid) bool {
	return g.Rows == o.Rows && g.Cols == o.Cols
}

// Clone returns a deep copy.
func (g *Grid) Clone() *Grid {
	data := make([]float64, len(g.Data))
	copy(data, g.Data)
	return &Grid{Rows: g.Rows, Cols: g.Cols, Data: data}
}

// Substitute replaces every sample equal to noData with def and returns
// the number of replaced samples. A NaN noData matches NaN samples.
func (g *Grid) Substitute(noData, def float64) int {
	n := 0
	nan := math.IsNaN(noData)
	for i, v := range g.Data {
		if v == noData || (nan && math.IsNaN(v)) {
			g.Data[i] = def
			n++
		}
	}
	return n
}

// FiniteRange returns the minimum and maximum over finite samples.
// ok is false when the grid has no finite sample.
func (g *Grid) FiniteRange() (lo, hi float64, ok bool) {
	finite := make([]float64, 0, len(g.Data))
	for _, v := range g.Data {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return 0, 0, false
	}
	return floats.Min(finite), floats.Max(finite), true
}
