// Package pipeline wires raster loading, the batch scheduler and the world
// store into one compile run.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/OCharnyshevich/minecraft-terrain/internal/terrain/batch"
	"github.com/OCharnyshevich/minecraft-terrain/internal/terrain/config"
	"github.com/OCharnyshevich/minecraft-terrain/internal/terrain/elevation"
	"github.com/OCharnyshevich/minecraft-terrain/internal/terrain/metrics"
	"github.com/OCharnyshevich/minecraft-terrain/internal/terrain/raster"
	"github.com/OCharnyshevich/minecraft-terrain/internal/terrain/transform"
	"github.com/OCharnyshevich/minecraft-terrain/internal/world"
)

// ManifestName is the run manifest written into the world directory.
const ManifestName = "terrain.json"

// Options configures a run.
type Options struct {
	Log      *slog.Logger
	Registry prometheus.Registerer // nil disables metrics
}

// Manifest records what produced a world.
type Manifest struct {
	RunID    string           `json:"run_id"`
	Started  time.Time        `json:"started"`
	Finished time.Time        `json:"finished"`
	Config   config.Config    `json:"config"`
	Bounds   transform.Bounds `json:"bounds"`
	Report   batch.Report     `json:"report"`
}

// Run loads the configured rasters and compiles them into a world.
func Run(ctx context.Context, cfg config.Config, opts Options) (Manifest, error) {
	log := logger(opts)

	if cfg.Rasters.Boundary == "" {
		return Manifest{}, &config.ConfigurationError{Field: "rasters.boundary", Reason: "must be set"}
	}
	boundary, err := raster.Load(ctx, log, cfg.Rasters, cfg.Rasters.Boundary)
	if err != nil {
		return Manifest{}, fmt.Errorf("load boundary: %w", err)
	}

	var bed *elevation.Grid
	if cfg.Rasters.Bed != "" {
		bed, err = raster.Load(ctx, log, cfg.Rasters, cfg.Rasters.Bed)
		if err != nil {
			return Manifest{}, fmt.Errorf("load bed: %w", err)
		}
	}

	model, err := elevation.Derive(boundary, bed, cfg.LayerThickness)
	if err != nil {
		return Manifest{}, fmt.Errorf("build elevation model: %w", err)
	}
	return Compile(ctx, cfg, model, opts)
}

// Compile writes model into a new world at cfg.SaveDir/cfg.WorldName. The
// vertical bounds are checked before the world is created.
func Compile(ctx context.Context, cfg config.Config, model *elevation.Model, opts Options) (Manifest, error) {
	log := logger(opts)

	m := Manifest{
		RunID:   uuid.NewString(),
		Started: time.Now().UTC(),
		Config:  cfg,
	}

	var met *metrics.Metrics
	if opts.Registry != nil {
		met = metrics.New(opts.Registry)
	}
	sched, err := batch.NewScheduler(cfg, model, batch.Options{Log: log, Metrics: met})
	if err != nil {
		return m, err
	}
	m.Bounds = sched.Bounds()
	log.Info("vertical bounds ok",
		"runId", m.RunID,
		"minBed", m.Bounds.MinBed,
		"maxSurface", m.Bounds.MaxSurface,
		"rows", model.Rows(),
		"cols", model.Cols(),
	)

	wopts := world.Options{
		Log:           log,
		StagingDir:    cfg.StagingDir,
		RegionWorkers: cfg.RegionWorkers,
	}
	err = world.With(ctx, cfg.SaveDir, cfg.WorldName, wopts, func(st *world.Store) error {
		rep, err := sched.Run(ctx, st)
		m.Report = rep
		m.Finished = time.Now().UTC()
		if err != nil {
			return err
		}
		return st.WriteManifest(ManifestName, m)
	})
	if err != nil {
		return m, err
	}

	log.Info("blocks used", "total", m.Report.Total, "skipped", m.Report.Skipped)
	return m, nil
}

func logger(opts Options) *slog.Logger {
	if opts.Log != nil {
		return opts.Log
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
