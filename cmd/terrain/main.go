package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/OCharnyshevich/minecraft-terrain/internal/terrain/config"
	"github.com/OCharnyshevich/minecraft-terrain/internal/terrain/pipeline"
	"github.com/OCharnyshevich/minecraft-terrain/pkg/world/chunk"
)

func main() {
	cfg := config.DefaultConfig()

	configPath := flag.String("config", "", "YAML config file (flags override it)")
	verbose := flag.Bool("v", false, "log every processed row")
	listBlocks := flag.Bool("blocks", false, "list palette block names and exit")
	flag.Float64Var(&cfg.VerticalScale, "scale", cfg.VerticalScale, "blocks per elevation unit")
	flag.Float64Var(&cfg.VerticalShift, "shift", cfg.VerticalShift, "level offset added after scaling")
	flag.IntVar(&cfg.Step, "step", cfg.Step, "use every step-th raster sample")
	flag.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "output rows per checkpoint")
	flag.StringVar(&cfg.WorldName, "name", cfg.WorldName, "world name")
	flag.StringVar(&cfg.SaveDir, "save-dir", cfg.SaveDir, "saves directory")
	flag.StringVar(&cfg.Rasters.Dir, "rasters", cfg.Rasters.Dir, "directory of local rasters")
	flag.StringVar(&cfg.Rasters.Boundary, "boundary", cfg.Rasters.Boundary, "boundary raster path or URL")
	flag.StringVar(&cfg.Rasters.Bed, "bed", cfg.Rasters.Bed, "bed raster path or URL (empty = flat)")
	flag.StringVar(&cfg.StagingDir, "staging-dir", cfg.StagingDir, "spill chunks to BadgerDB here between batches")
	flag.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	if *listBlocks {
		for _, name := range chunk.BlockNames() {
			os.Stdout.WriteString(name + "\n")
		}
		return
	}

	if *configPath != "" {
		fromFile, err := config.Load(*configPath)
		if err != nil {
			log.Error("load config", "error", err)
			os.Exit(1)
		}
		explicit := make(map[string]bool)
		flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
		config.Merge(&cfg, fromFile, explicit)
		log.Info("config loaded", "path", *configPath)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var reg *prometheus.Registry
	if cfg.MetricsAddr != "" {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		srv := serveMetrics(log, cfg.MetricsAddr, reg)
		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer scancel()
			srv.Shutdown(sctx)
		}()
	}

	opts := pipeline.Options{Log: log}
	if reg != nil {
		opts.Registry = reg
	}
	m, err := pipeline.Run(ctx, cfg, opts)
	if err != nil {
		var cerr *config.ConfigurationError
		if errors.As(err, &cerr) {
			log.Error("invalid configuration", "error", err)
		} else {
			log.Error("compile failed", "error", err)
		}
		cancel()
		os.Exit(1)
	}
	log.Info("world written", "name", cfg.WorldName, "dir", cfg.SaveDir, "runId", m.RunID)
}

func serveMetrics(log *slog.Logger, addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info("metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server", "error", err)
		}
	}()
	return srv
}
