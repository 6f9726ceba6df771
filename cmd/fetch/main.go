package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	get "github.com/hashicorp/go-getter"

	"github.com/OCharnyshevich/minecraft-terrain/internal/terrain/config"
	"github.com/OCharnyshevich/minecraft-terrain/internal/terrain/raster"
)

// fetch warms the raster cache for a config, or downloads one source
// (file or directory, any go-getter URL) to -o.
func main() {
	var (
		configPath = flag.String("config", "", "YAML config whose remote rasters are cached")
		src        = flag.String("src", "", "single source URL to download")
		out        = flag.String("o", "", "destination for -src")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch {
	case *src != "":
		if *out == "" {
			log.Error("-o is required with -src")
			os.Exit(2)
		}
		if err := os.RemoveAll(*out); err != nil {
			log.Error("clear destination", "error", err)
			os.Exit(1)
		}
		log.Info("start downloading", "src", *src, "dst", *out)
		if err := get.Get(*out, *src, get.WithContext(ctx)); err != nil {
			log.Error("download", "error", err)
			os.Exit(1)
		}
		log.Info("done downloading", "dst", *out)

	case *configPath != "":
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Error("load config", "error", err)
			os.Exit(1)
		}
		for _, s := range []string{cfg.Rasters.Boundary, cfg.Rasters.Bed} {
			if s == "" || !raster.IsRemote(s) {
				continue
			}
			p, err := raster.Resolve(ctx, log, cfg.Rasters.Dir, cfg.Rasters.CacheDir, s)
			if err != nil {
				log.Error("fetch raster", "src", s, "error", err)
				os.Exit(1)
			}
			log.Info("raster ready", "src", s, "path", p)
		}

	default:
		flag.Usage()
		os.Exit(2)
	}
}
