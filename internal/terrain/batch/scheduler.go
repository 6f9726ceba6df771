// Package batch drives the compiler over the elevation model in row
// batches, deferring chunk notifications to the end of each batch and
// checkpointing the store after it.
package batch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/OCharnyshevich/minecraft-terrain/internal/terrain/column"
	"github.com/OCharnyshevich/minecraft-terrain/internal/terrain/config"
	"github.com/OCharnyshevich/minecraft-terrain/internal/terrain/elevation"
	"github.com/OCharnyshevich/minecraft-terrain/internal/terrain/metrics"
	"github.com/OCharnyshevich/minecraft-terrain/internal/terrain/transform"
	"github.com/OCharnyshevich/minecraft-terrain/internal/world"
	"github.com/OCharnyshevich/minecraft-terrain/pkg/world/chunk"
)

// Store is the part of the voxel world the scheduler writes to.
type Store interface {
	FillRegion(state chunk.State, box world.Box) error
	SetChangeRecorder(r world.ChangeRecorder)
	ClearChangeRecorder()
	NotifyChanged(pos chunk.Pos) error
	Checkpoint(ctx context.Context) error
	SetMarkerPosition(x, y, z int)
}

// Options carries the scheduler's collaborators. Zero values are replaced
// with defaults.
type Options struct {
	Log      *slog.Logger
	Recorder Recorder
	Metrics  *metrics.Metrics
}

// Report summarizes a run.
type Report struct {
	Rows          int   `json:"rows"`    // source rows visited
	Columns       int   `json:"columns"` // columns written
	Skipped       int   `json:"skipped"` // malformed cells
	Total         int64 `json:"total"`   // sum of surface levels over written columns
	Batches       int   `json:"batches"`
	Notifications int   `json:"notifications"`
	Checkpoints   int   `json:"checkpoints"`
}

// Scheduler compiles a model into a store. It holds no state between runs
// other than its recorder.
type Scheduler struct {
	cfg      config.Config
	model    *elevation.Model
	compiler *column.Compiler
	bounds   transform.Bounds

	log *slog.Logger
	rec Recorder
	met *metrics.Metrics
}

// NewScheduler validates cfg and checks that the whole model fits in the
// world's vertical range. Every failure is a *config.ConfigurationError, and
// nothing has touched a store yet.
func NewScheduler(cfg config.Config, model *elevation.Model, opts Options) (*Scheduler, error) {
	blocks, err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	tr, err := transform.New(cfg.VerticalScale, cfg.VerticalShift)
	if err != nil {
		return nil, err
	}
	bounds, err := tr.CheckBounds(model, cfg.MaxLevel)
	if err != nil {
		return nil, err
	}

	s := &Scheduler{
		cfg:      cfg,
		model:    model,
		compiler: column.NewCompiler(model, tr, blocks, cfg.Step),
		bounds:   bounds,
		log:      opts.Log,
		rec:      opts.Recorder,
		met:      opts.Metrics,
	}
	if s.log == nil {
		s.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.rec == nil {
		s.rec = NewChunkSet()
	}
	return s, nil
}

// Bounds returns the transformed level range checked by NewScheduler.
func (s *Scheduler) Bounds() transform.Bounds { return s.bounds }

// Run processes every batch in row order. On error the report holds the
// progress made so far.
func (s *Scheduler) Run(ctx context.Context, store Store) (Report, error) {
	var rep Report
	rows := s.model.Rows()
	span := s.cfg.Step * s.cfg.BatchSize

	start := time.Now()
	for lo := 0; lo < rows; lo += span {
		hi := min(lo+span, rows)
		if err := s.runBatch(ctx, store, lo, hi, &rep); err != nil {
			return rep, fmt.Errorf("batch %d (rows %d-%d): %w", rep.Batches, lo, hi-1, err)
		}
	}

	s.log.Info("compile complete",
		"rows", rep.Rows,
		"columns", rep.Columns,
		"skipped", rep.Skipped,
		"batches", rep.Batches,
		"total", rep.Total,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return rep, nil
}

// runBatch compiles source rows [lo, hi). The recorder is installed for the
// writes only; it is removed again on every return path.
func (s *Scheduler) runBatch(ctx context.Context, store Store, lo, hi int, rep *Report) error {
	s.rec.Clear()
	store.SetChangeRecorder(s.rec)
	installed := true
	restore := func() {
		if installed {
			store.ClearChangeRecorder()
			installed = false
		}
	}
	defer restore()

	step := s.cfg.Step
	cols := s.model.Cols()
	for i := lo; i < hi; i += step {
		if err := ctx.Err(); err != nil {
			return err
		}
		for j := 0; j < cols; j += step {
			if err := s.writeCell(store, i, j, rep); err != nil {
				return err
			}
		}
		rep.Rows++
		s.met.RowDone()
		s.log.Debug("processing row", "row", i/step+1, "rows", s.model.Rows()/step)
	}

	restore()
	n, err := s.rec.Flush(store.NotifyChanged)
	rep.Notifications += n
	if err != nil {
		return fmt.Errorf("notify chunks: %w", err)
	}
	s.rec.Clear()

	t := time.Now()
	if err := store.Checkpoint(ctx); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	took := time.Since(t)
	rep.Checkpoints++

	store.SetMarkerPosition(cols/(2*step), s.cfg.MarkerY, s.model.Rows()/(2*step))
	rep.Batches++
	s.met.BatchDone(n, took)

	s.log.Info("batch done",
		"batch", rep.Batches,
		"firstRow", lo,
		"lastRow", hi-1,
		"chunks", n,
		"checkpoint", took.Round(time.Millisecond),
	)
	return nil
}

func (s *Scheduler) writeCell(store Store, i, j int, rep *Report) error {
	res := s.compiler.Compile(i, j)
	if res.Outcome == column.Skipped {
		rep.Skipped++
		s.met.ColumnSkipped()
		s.log.Debug("cell skipped", "row", i, "col", j, "error", res.Err)
		return nil
	}

	col := res.Column
	y := 0
	for _, r := range col.Runs {
		if err := store.FillRegion(r.Block, world.ColumnBox(col.X, col.Z, y, y+r.Height)); err != nil {
			return fmt.Errorf("fill column (%d,%d): %w", col.X, col.Z, err)
		}
		y += r.Height
	}

	rep.Columns++
	rep.Total += int64(col.Levels.Surface)
	s.met.ColumnWritten(col.Levels.Surface)
	return nil
}
