// Package world is the persistent voxel store: resident chunk memory,
// change notification (lighting), and checkpoints to Anvil region files
// plus level.dat.
package world

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/OCharnyshevich/minecraft-terrain/pkg/world/anvil"
	"github.com/OCharnyshevich/minecraft-terrain/pkg/world/chunk"
)

var (
	// ErrOutOfRange is returned for writes outside the world's vertical range.
	ErrOutOfRange = errors.New("block position outside world height")
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("world store closed")
)

// ChangeRecorder receives chunk change notifications in place of the
// store's immediate relight while installed.
type ChangeRecorder interface {
	Push(pos chunk.Pos)
}

// Options configures a Store.
type Options struct {
	Log           *slog.Logger
	StagingDir    string // BadgerDB spill directory; empty keeps chunks in memory
	RegionWorkers int    // concurrent region file writers per checkpoint
}

// Store is one world directory being written.
type Store struct {
	mu        sync.Mutex
	name      string
	path      string
	regionDir string
	log       *slog.Logger
	workers   int

	resident map[chunk.Pos]*chunk.Data
	dirty    map[chunk.Pos]struct{}
	cache    chunkCache
	recorder ChangeRecorder
	marker   Marker
	closed   bool
}

// Create makes a new world named name inside dir. Any existing world at
// that path is removed first.
func Create(dir, name string, opts Options) (*Store, error) {
	log := opts.Log
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	workers := opts.RegionWorkers
	if workers < 1 {
		workers = 1
	}

	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		log.Info("creating save directory", "dir", dir)
	}
	path := filepath.Join(dir, name)
	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing world %s: %w", path, err)
	}
	regionDir := filepath.Join(path, "region")
	if err := os.MkdirAll(regionDir, 0o755); err != nil {
		return nil, fmt.Errorf("create world dir: %w", err)
	}

	var cache chunkCache = newMemCache()
	if opts.StagingDir != "" {
		sc, err := openStaging(filepath.Join(opts.StagingDir, name))
		if err != nil {
			return nil, err
		}
		cache = sc
	}

	log.Info("world created", "path", path, "staging", opts.StagingDir != "")
	return &Store{
		name:      name,
		path:      path,
		regionDir: regionDir,
		log:       log,
		workers:   workers,
		resident:  make(map[chunk.Pos]*chunk.Data),
		dirty:     make(map[chunk.Pos]struct{}),
		cache:     cache,
	}, nil
}

// With creates a store, runs fn, and always checkpoints and closes the
// store afterwards, even when fn fails, so completed work is persisted.
func With(ctx context.Context, dir, name string, opts Options, fn func(*Store) error) (err error) {
	s, err := Create(dir, name, opts)
	if err != nil {
		return err
	}
	defer func() {
		cerr := s.Checkpoint(context.WithoutCancel(ctx))
		err = errors.Join(err, cerr, s.Close())
	}()
	return fn(s)
}

// Path returns the world directory.
func (s *Store) Path() string { return s.path }

// SetChangeRecorder routes chunk change notifications to r instead of
// relighting each chunk on every write.
func (s *Store) SetChangeRecorder(r ChangeRecorder) {
	s.mu.Lock()
	s.recorder = r
	s.mu.Unlock()
}

// ClearChangeRecorder restores immediate notifications.
func (s *Store) ClearChangeRecorder() {
	s.mu.Lock()
	s.recorder = nil
	s.mu.Unlock()
}

// FillRegion writes state to every block in box, allocating the chunks it
// touches. Each touched chunk is notified once per call.
func (s *Store) FillRegion(state chunk.State, box Box) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if box.Empty() {
		return nil
	}
	if box.Min.Y < 0 || box.Max.Y > chunk.Height {
		return fmt.Errorf("fill y=[%d,%d): %w", box.Min.Y, box.Max.Y, ErrOutOfRange)
	}

	for _, pos := range box.Chunks() {
		c, err := s.chunkLocked(pos)
		if err != nil {
			return err
		}

		x0, x1 := clampSpan(box.Min.X, box.Max.X, pos.X)
		z0, z1 := clampSpan(box.Min.Z, box.Max.Z, pos.Z)
		for x := x0; x < x1; x++ {
			for z := z0; z < z1; z++ {
				c.FillColumn(x, z, box.Min.Y, box.Max.Y, state)
			}
		}
		s.dirty[pos] = struct{}{}

		if s.recorder != nil {
			s.recorder.Push(pos)
		} else {
			c.Relight()
		}
	}
	return nil
}

// clampSpan returns the local [lo,hi) part of world span [min,max) inside
// chunk coordinate cc.
func clampSpan(lo, hi, cc int) (int, int) {
	base := cc << 4
	a, b := lo-base, hi-base
	if a < 0 {
		a = 0
	}
	if b > chunk.Width {
		b = chunk.Width
	}
	return a, b
}

// chunkLocked returns the resident chunk at pos, reloading it from staging
// or allocating it.
func (s *Store) chunkLocked(pos chunk.Pos) (*chunk.Data, error) {
	if c, ok := s.resident[pos]; ok {
		return c, nil
	}
	c, ok, err := s.cache.Load(pos)
	if err != nil {
		return nil, err
	}
	if !ok {
		c = chunk.New()
	}
	s.resident[pos] = c
	return c, nil
}

// Block returns the block at world position (x, y, z). Chunks evicted by a
// checkpoint are reloaded from staging.
func (s *Store) Block(x, y, z int) (chunk.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return chunk.Air, ErrClosed
	}
	if y < 0 || y >= chunk.Height {
		return chunk.Air, fmt.Errorf("block y=%d: %w", y, ErrOutOfRange)
	}
	c, err := s.chunkLocked(chunk.PosOf(x, z))
	if err != nil {
		return chunk.Air, err
	}
	return c.GetBlock(x&0xF, y, z&0xF), nil
}

// Resident returns the number of chunks held in memory.
func (s *Store) Resident() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.resident)
}

// NotifyChanged recomputes the heightmap and sky light of one chunk.
func (s *Store) NotifyChanged(pos chunk.Pos) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	c, err := s.chunkLocked(pos)
	if err != nil {
		return err
	}
	c.Relight()
	return nil
}

// SetMarkerPosition sets the spawn point and player position written to
// level.dat at the next checkpoint.
func (s *Store) SetMarkerPosition(x, y, z int) {
	s.mu.Lock()
	s.marker = Marker{X: x, Y: y, Z: z}
	s.mu.Unlock()
}

// Marker returns the current marker position.
func (s *Store) Marker() Marker {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.marker
}

// Checkpoint persists every chunk written since the previous checkpoint:
// chunks are encoded, each touched region file is rebuilt, and level.dat
// is rewritten. With staging enabled, resident chunks are evicted.
func (s *Store) Checkpoint(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	start := time.Now()

	positions := make([]chunk.Pos, 0, len(s.dirty))
	for pos := range s.dirty {
		positions = append(positions, pos)
	}
	sort.Slice(positions, func(i, j int) bool {
		if positions[i].X != positions[j].X {
			return positions[i].X < positions[j].X
		}
		return positions[i].Z < positions[j].Z
	})

	regions := make(map[[2]int]struct{})
	for _, pos := range positions {
		if err := ctx.Err(); err != nil {
			return err
		}
		c := s.resident[pos]
		data, err := anvil.EncodeChunk(pos, c)
		if err != nil {
			return err
		}
		if err := s.cache.Put(pos, c, data); err != nil {
			return err
		}
		rx, rz := pos.Region()
		regions[[2]int{rx, rz}] = struct{}{}
	}

	if err := s.saveRegions(ctx, regions); err != nil {
		return err
	}
	if err := s.writeLevel(time.Now()); err != nil {
		return fmt.Errorf("write level.dat: %w", err)
	}

	if s.cache.Evicts() {
		clear(s.resident)
	}
	clear(s.dirty)

	s.log.Debug("checkpoint",
		"chunks", len(positions),
		"regions", len(regions),
		"elapsed", time.Since(start),
	)
	return nil
}

func (s *Store) saveRegions(ctx context.Context, regions map[[2]int]struct{}) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for r := range regions {
		rx, rz := r[0], r[1]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			chunks, err := s.cache.RegionChunks(rx, rz)
			if err != nil {
				return err
			}
			if err := anvil.SaveRegion(s.regionDir, rx, rz, chunks); err != nil {
				return fmt.Errorf("save region (%d,%d): %w", rx, rz, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Close releases the staging store. It does not checkpoint.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.resident = nil
	return s.cache.Close()
}
