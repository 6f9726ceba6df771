package raster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	getter "github.com/hashicorp/go-getter"

	"github.com/OCharnyshevich/minecraft-terrain/internal/terrain/config"
	"github.com/OCharnyshevich/minecraft-terrain/internal/terrain/elevation"
)

// IsRemote reports whether src is a go-getter URL rather than a local path.
func IsRemote(src string) bool {
	return strings.Contains(src, "://") || strings.Contains(src, "::")
}

// CachePath returns the cache file for a remote source. The name is a
// stable UUID of the URL, keeping the extension of the remote file.
func CachePath(cacheDir, src string) string {
	u := src
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	name := uuid.NewSHA1(uuid.NameSpaceURL, []byte(src)).String() + path.Ext(u)
	return filepath.Join(cacheDir, name)
}

// Resolve returns a local path for src. Local paths are taken relative to
// dir unless absolute. Remote sources are downloaded into cacheDir once and
// reused on later runs.
func Resolve(ctx context.Context, log *slog.Logger, dir, cacheDir, src string) (string, error) {
	if !IsRemote(src) {
		if filepath.IsAbs(src) {
			return src, nil
		}
		return filepath.Join(dir, src), nil
	}

	dst := CachePath(cacheDir, src)
	if _, err := os.Stat(dst); err == nil {
		log.Debug("raster cached", "src", src, "path", dst)
		return dst, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("stat cache: %w", err)
	}

	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("create cache dir: %w", err)
	}
	log.Info("downloading raster", "src", src, "path", dst)
	if err := getter.GetFile(dst, src, getter.WithContext(ctx)); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("fetch %s: %w", src, err)
	}
	return dst, nil
}

// Load resolves src, decodes it, and replaces missing samples with
// r.NoDataDefault.
func Load(ctx context.Context, log *slog.Logger, r config.Rasters, src string) (*elevation.Grid, error) {
	p, err := Resolve(ctx, log, r.Dir, r.CacheDir, src)
	if err != nil {
		return nil, err
	}
	ras, err := ReadFile(p)
	if err != nil {
		return nil, err
	}

	g := ras.Grid
	if sentinel, ok := ras.Sentinel(r.NoDataFromMin); ok {
		n := g.Substitute(sentinel, r.NoDataDefault)
		log.Debug("no-data substituted", "path", p, "sentinel", sentinel, "cells", n)
	}
	if lo, hi, ok := g.FiniteRange(); ok {
		log.Info("raster loaded", "path", p, "rows", g.Rows, "cols", g.Cols, "min", lo, "max", hi)
	}
	return g, nil
}
