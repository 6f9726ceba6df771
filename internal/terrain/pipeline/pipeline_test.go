package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCharnyshevich/minecraft-terrain/internal/terrain/config"
	"github.com/OCharnyshevich/minecraft-terrain/pkg/world/anvil"
	"github.com/OCharnyshevich/minecraft-terrain/pkg/world/chunk"
)

// 4x4 boundary with one NODATA cell and one non-finite cell.
const boundaryASC = `ncols 4
nrows 4
xllcorner 0
yllcorner 0
cellsize 100
NODATA_value -9999
100 120 140 160
110 -9999 150 170
120 140 nan 180
130 150 170 190
`

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "boundary.asc"), []byte(boundaryASC), 0o644))

	cfg := config.DefaultConfig()
	cfg.Step = 1
	cfg.BatchSize = 2
	cfg.Rasters.Dir = dir
	cfg.Rasters.CacheDir = filepath.Join(dir, ".cache")
	cfg.Rasters.Boundary = "boundary.asc"
	cfg.SaveDir = filepath.Join(dir, "saves")
	cfg.WorldName = "Test_02"
	return cfg
}

func TestRun(t *testing.T) {
	cfg := testConfig(t)
	reg := prometheus.NewRegistry()

	m, err := Run(context.Background(), cfg, Options{Registry: reg})
	require.NoError(t, err)

	assert.NotEmpty(t, m.RunID)
	assert.Equal(t, 1, m.Report.Skipped, "the nan cell")
	assert.Equal(t, 15, m.Report.Columns)
	assert.Equal(t, 2, m.Report.Batches)
	assert.Equal(t, 2, m.Report.Checkpoints)
	// Flat bed at shift 5.
	assert.Equal(t, 5, m.Bounds.MinBed)

	worldDir := filepath.Join(cfg.SaveDir, cfg.WorldName)
	assert.FileExists(t, filepath.Join(worldDir, "level.dat"))

	chunks, err := anvil.ReadRegion(anvil.RegionPath(filepath.Join(worldDir, "region"), 0, 0), 0, 0)
	require.NoError(t, err)
	assert.Contains(t, chunks, chunk.Pos{})

	data, err := os.ReadFile(filepath.Join(worldDir, ManifestName))
	require.NoError(t, err)
	var got Manifest
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, m.RunID, got.RunID)
	assert.Equal(t, m.Report, got.Report)
	assert.Equal(t, cfg.Rasters.Boundary, got.Config.Rasters.Boundary)

	assert.Equal(t, 15.0, counterValue(t, reg, "terrain_columns_written_total"))
}

func TestRunWithStaging(t *testing.T) {
	cfg := testConfig(t)
	cfg.StagingDir = filepath.Join(t.TempDir(), "staging")

	m, err := Run(context.Background(), cfg, Options{})
	require.NoError(t, err)
	assert.Equal(t, 15, m.Report.Columns)

	chunks, err := anvil.ReadRegion(anvil.RegionPath(filepath.Join(cfg.SaveDir, cfg.WorldName, "region"), 0, 0), 0, 0)
	require.NoError(t, err)
	assert.Len(t, chunks, 1)
}

func TestRunBoundsViolationCreatesNoWorld(t *testing.T) {
	cfg := testConfig(t)
	cfg.VerticalShift = 0 // flat bed maps to level 0

	_, err := Run(context.Background(), cfg, Options{})

	var cerr *config.ConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.NoDirExists(t, filepath.Join(cfg.SaveDir, cfg.WorldName))
}

func TestRunRequiresBoundary(t *testing.T) {
	cfg := testConfig(t)
	cfg.Rasters.Boundary = ""

	_, err := Run(context.Background(), cfg, Options{})

	var cerr *config.ConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "rasters.boundary", cerr.Field)
}

func TestRunBedShapeMismatch(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Rasters.Dir, "bed.asc"), []byte("ncols 1\nnrows 1\n10\n"), 0o644))
	cfg.Rasters.Bed = "bed.asc"

	_, err := Run(context.Background(), cfg, Options{})
	assert.ErrorContains(t, err, "build elevation model")
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s not gathered", name)
	return 0
}
