package world

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCharnyshevich/minecraft-terrain/pkg/world/anvil"
	"github.com/OCharnyshevich/minecraft-terrain/pkg/world/chunk"
)

type pushRecorder struct {
	pushed []chunk.Pos
}

func (r *pushRecorder) Push(pos chunk.Pos) { r.pushed = append(r.pushed, pos) }

func newStore(t *testing.T, staging bool) *Store {
	t.Helper()
	opts := Options{RegionWorkers: 2}
	if staging {
		opts.StagingDir = filepath.Join(t.TempDir(), "staging")
	}
	s, err := Create(t.TempDir(), "w", opts)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateReplacesExistingWorld(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "w", "stale.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o644))

	s, err := Create(dir, "w", Options{})
	require.NoError(t, err)
	defer s.Close()

	assert.NoFileExists(t, stale)
	assert.DirExists(t, filepath.Join(dir, "w", "region"))
}

func TestFillRegion(t *testing.T) {
	s := newStore(t, false)

	require.NoError(t, s.FillRegion(chunk.Stone, ColumnBox(3, 5, 0, 10)))
	require.NoError(t, s.FillRegion(chunk.Grass, ColumnBox(3, 5, 10, 12)))

	for y, want := range map[int]chunk.State{0: chunk.Stone, 9: chunk.Stone, 10: chunk.Grass, 11: chunk.Grass, 12: chunk.Air} {
		got, err := s.Block(3, y, 5)
		require.NoError(t, err)
		assert.Equal(t, want, got, "y=%d", y)
	}
}

func TestFillRegionSpansChunks(t *testing.T) {
	s := newStore(t, false)
	rec := &pushRecorder{}
	s.SetChangeRecorder(rec)

	box := Box{Min: BlockPos{X: -2, Y: 0, Z: 14}, Max: BlockPos{X: 2, Y: 1, Z: 18}}
	require.NoError(t, s.FillRegion(chunk.Stone, box))

	assert.ElementsMatch(t, []chunk.Pos{{X: -1, Z: 0}, {X: -1, Z: 1}, {X: 0, Z: 0}, {X: 0, Z: 1}}, rec.pushed)
	for x := -2; x < 2; x++ {
		for z := 14; z < 18; z++ {
			got, err := s.Block(x, 0, z)
			require.NoError(t, err)
			assert.Equal(t, chunk.Stone, got, "(%d,%d)", x, z)
		}
	}
	got, err := s.Block(2, 0, 14)
	require.NoError(t, err)
	assert.Equal(t, chunk.Air, got)
}

func TestFillRegionOutOfRange(t *testing.T) {
	s := newStore(t, false)

	err := s.FillRegion(chunk.Stone, ColumnBox(0, 0, 250, 257))
	assert.ErrorIs(t, err, ErrOutOfRange)
	err = s.FillRegion(chunk.Stone, ColumnBox(0, 0, -1, 3))
	assert.ErrorIs(t, err, ErrOutOfRange)

	// Empty boxes are a no-op regardless of position.
	assert.NoError(t, s.FillRegion(chunk.Stone, ColumnBox(0, 0, 300, 300)))
	assert.Zero(t, s.Resident())
}

func TestRecorderSuppressesRelight(t *testing.T) {
	s := newStore(t, false)
	rec := &pushRecorder{}
	s.SetChangeRecorder(rec)

	require.NoError(t, s.FillRegion(chunk.Stone, ColumnBox(0, 0, 0, 5)))
	require.NoError(t, s.FillRegion(chunk.Grass, ColumnBox(0, 0, 5, 6)))
	assert.Equal(t, []chunk.Pos{{}, {}}, rec.pushed)
	assert.False(t, s.resident[chunk.Pos{}].Lit)

	require.NoError(t, s.NotifyChanged(chunk.Pos{}))
	c := s.resident[chunk.Pos{}]
	assert.True(t, c.Lit)
	assert.Equal(t, int32(6), c.HeightMap[0])

	s.ClearChangeRecorder()
	require.NoError(t, s.FillRegion(chunk.Stone, ColumnBox(1, 0, 0, 3)))
	assert.Len(t, rec.pushed, 2)
	assert.True(t, c.Lit, "writes without a recorder relight immediately")
	assert.Equal(t, int32(3), c.HeightMap[1])
}

func TestCheckpointWritesRegions(t *testing.T) {
	for _, staging := range []bool{false, true} {
		name := "memory"
		if staging {
			name = "staging"
		}
		t.Run(name, func(t *testing.T) {
			s := newStore(t, staging)

			// Two regions: chunk (0,0) in r.0.0 and chunk (-1,0) in r.-1.0.
			require.NoError(t, s.FillRegion(chunk.Stone, ColumnBox(1, 1, 0, 4)))
			require.NoError(t, s.FillRegion(chunk.Grass, ColumnBox(-1, 1, 0, 2)))
			s.SetMarkerPosition(5, 250, 7)
			require.NoError(t, s.Checkpoint(context.Background()))

			if staging {
				assert.Zero(t, s.Resident(), "staging evicts resident chunks")
			}

			regionDir := filepath.Join(s.Path(), "region")
			got, err := anvil.ReadRegion(anvil.RegionPath(regionDir, 0, 0), 0, 0)
			require.NoError(t, err)
			require.Len(t, got, 1)

			want := chunk.New()
			want.FillColumn(1, 1, 0, 4, chunk.Stone)
			wantNBT, err := anvil.EncodeChunk(chunk.Pos{}, want)
			require.NoError(t, err)
			assert.Equal(t, wantNBT, got[chunk.Pos{}])

			got, err = anvil.ReadRegion(anvil.RegionPath(regionDir, -1, 0), -1, 0)
			require.NoError(t, err)
			assert.Contains(t, got, chunk.Pos{X: -1, Z: 0})

			assert.FileExists(t, filepath.Join(s.Path(), "level.dat"))
			assert.Equal(t, Marker{X: 5, Y: 250, Z: 7}, s.Marker())
		})
	}
}

func TestCheckpointKeepsEarlierChunks(t *testing.T) {
	s := newStore(t, true)
	regionDir := filepath.Join(s.Path(), "region")

	require.NoError(t, s.FillRegion(chunk.Stone, ColumnBox(0, 0, 0, 3)))
	require.NoError(t, s.Checkpoint(context.Background()))

	// A later batch touches a different chunk of the same region.
	require.NoError(t, s.FillRegion(chunk.Stone, ColumnBox(0, 16, 0, 3)))
	require.NoError(t, s.Checkpoint(context.Background()))

	got, err := anvil.ReadRegion(anvil.RegionPath(regionDir, 0, 0), 0, 0)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestStagingReloadsEvictedChunk(t *testing.T) {
	s := newStore(t, true)

	require.NoError(t, s.FillRegion(chunk.Stone, ColumnBox(4, 4, 0, 3)))
	require.NoError(t, s.Checkpoint(context.Background()))
	require.Zero(t, s.Resident())

	// Stacking onto an evicted column keeps the blocks below.
	require.NoError(t, s.FillRegion(chunk.Grass, ColumnBox(4, 4, 3, 4)))
	for y, want := range []chunk.State{chunk.Stone, chunk.Stone, chunk.Stone, chunk.Grass, chunk.Air} {
		got, err := s.Block(4, y, 4)
		require.NoError(t, err)
		assert.Equal(t, want, got, "y=%d", y)
	}
}

func TestWithCheckpointsOnError(t *testing.T) {
	dir := t.TempDir()
	boom := errors.New("boom")

	err := With(context.Background(), dir, "w", Options{}, func(s *Store) error {
		if err := s.FillRegion(chunk.Stone, ColumnBox(0, 0, 0, 2)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := anvil.ReadRegion(anvil.RegionPath(filepath.Join(dir, "w", "region"), 0, 0), 0, 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestWithCanceledContextStillCheckpoints(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())

	err := With(ctx, dir, "w", Options{}, func(s *Store) error {
		cancel()
		return s.FillRegion(chunk.Stone, ColumnBox(0, 0, 0, 2))
	})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "w", "level.dat"))
}

func TestClosedStore(t *testing.T) {
	s, err := Create(t.TempDir(), "w", Options{})
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.FillRegion(chunk.Stone, ColumnBox(0, 0, 0, 1)), ErrClosed)
	assert.ErrorIs(t, s.Checkpoint(context.Background()), ErrClosed)
	assert.ErrorIs(t, s.NotifyChanged(chunk.Pos{}), ErrClosed)
}
