// Package column compiles one elevation-model cell into the stacked block
// runs of a single world column.
package column

import (
	"fmt"

	"github.com/OCharnyshevich/minecraft-terrain/internal/terrain/config"
	"github.com/OCharnyshevich/minecraft-terrain/internal/terrain/elevation"
	"github.com/OCharnyshevich/minecraft-terrain/internal/terrain/transform"
	"github.com/OCharnyshevich/minecraft-terrain/pkg/world/chunk"
)

// Run is a contiguous vertical span of one block.
type Run struct {
	Block  chunk.State
	Height int
}

// Levels are the three layer tops of a column after adjustment.
type Levels struct {
	Bed      int
	Boundary int
	Surface  int
}

// Column is the compiled form of one cell. Runs stack upwards from y=0 and
// never contain a run of height <= 0.
type Column struct {
	X, Z   int
	Levels Levels
	Runs   []Run
}

// Outcome tells whether a cell produced a column.
type Outcome uint8

const (
	Written Outcome = iota
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Written:
		return "written"
	case Skipped:
		return "skipped"
	default:
		return fmt.Sprintf("Outcome(%d)", uint8(o))
	}
}

// Result is the outcome of compiling one cell. Err is set only when
// Outcome is Skipped.
type Result struct {
	Outcome Outcome
	Column  Column
	Err     error
}

// Compiler turns model cells into columns.
type Compiler struct {
	model  *elevation.Model
	tr     transform.Transform
	blocks config.Blocks
	step   int
}

// NewCompiler returns a Compiler sampling every step-th cell.
func NewCompiler(model *elevation.Model, tr transform.Transform, blocks config.Blocks, step int) *Compiler {
	if step < 1 {
		step = 1
	}
	return &Compiler{model: model, tr: tr, blocks: blocks, step: step}
}

// Compile compiles source cell (i, j). The output column sits at
// x = j/step, z = i/step.
func (c *Compiler) Compile(i, j int) Result {
	x, z := j/c.step, i/c.step

	rawBoundary := c.model.Boundary.At(i, j)
	lv, err := c.levels(i, j, rawBoundary)
	if err != nil {
		return Result{
			Outcome: Skipped,
			Column:  Column{X: x, Z: z},
			Err:     fmt.Errorf("cell (%d,%d): %w", i, j, err),
		}
	}

	return Result{
		Outcome: Written,
		Column: Column{
			X:      x,
			Z:      z,
			Levels: lv,
			Runs:   c.runs(lv),
		},
	}
}

func (c *Compiler) levels(i, j int, rawBoundary float64) (Levels, error) {
	bed, err := c.tr.Level(c.model.Bed.At(i, j))
	if err != nil {
		return Levels{}, fmt.Errorf("bed: %w", err)
	}
	boundary, err := c.tr.Level(rawBoundary)
	if err != nil {
		return Levels{}, fmt.Errorf("boundary: %w", err)
	}
	surface, err := c.tr.Level(c.model.Surface.At(i, j))
	if err != nil {
		return Levels{}, fmt.Errorf("surface: %w", err)
	}

	return Adjust(rawBoundary, Levels{Bed: bed, Boundary: boundary, Surface: surface}), nil
}

// Adjust applies the layer ordering rules to raw levels.
//
// When the boundary has data (rawBoundary > 0) but rounds to the surface
// level, the boundary drops by exactly one so the upper layer keeps one
// block. A boundary below the bed pulls the bed down to it.
func Adjust(rawBoundary float64, lv Levels) Levels {
	if rawBoundary > 0 && lv.Surface == lv.Boundary {
		lv.Boundary--
	}
	if lv.Boundary < lv.Bed {
		lv.Bed = lv.Boundary
	}
	return lv
}

func (c *Compiler) runs(lv Levels) []Run {
	candidates := [3]Run{
		{Block: c.blocks.Fill, Height: lv.Bed},
		{Block: c.blocks.Middle, Height: lv.Boundary - lv.Bed},
		{Block: c.blocks.Upper, Height: lv.Surface - lv.Boundary},
	}
	runs := make([]Run, 0, len(candidates))
	for _, r := range candidates {
		if r.Height > 0 {
			runs = append(runs, r)
		}
	}
	return runs
}
