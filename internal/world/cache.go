package world

import (
	"sync"

	"github.com/OCharnyshevich/minecraft-terrain/pkg/world/chunk"
)

// chunkCache keeps the encoded form of every checkpointed chunk so region
// files can be rebuilt from all of their chunks, not only the dirty ones.
type chunkCache interface {
	// Put records the chunk and its NBT encoding.
	Put(pos chunk.Pos, c *chunk.Data, nbtData []byte) error
	// Load returns a chunk evicted by an earlier checkpoint.
	Load(pos chunk.Pos) (*chunk.Data, bool, error)
	// RegionChunks returns the NBT of every stored chunk in region (rx, rz).
	RegionChunks(rx, rz int) (map[chunk.Pos][]byte, error)
	// Evicts reports whether resident chunks may be dropped after Put.
	Evicts() bool
	Close() error
}

// memCache keeps NBT in memory and never evicts chunk data.
type memCache struct {
	mu      sync.RWMutex
	regions map[[2]int]map[chunk.Pos][]byte
}

func newMemCache() *memCache {
	return &memCache{regions: make(map[[2]int]map[chunk.Pos][]byte)}
}

func (m *memCache) Put(pos chunk.Pos, _ *chunk.Data, nbtData []byte) error {
	rx, rz := pos.Region()
	key := [2]int{rx, rz}

	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.regions[key]
	if !ok {
		r = make(map[chunk.Pos][]byte)
		m.regions[key] = r
	}
	r[pos] = nbtData
	return nil
}

func (m *memCache) Load(chunk.Pos) (*chunk.Data, bool, error) {
	return nil, false, nil
}

func (m *memCache) RegionChunks(rx, rz int) (map[chunk.Pos][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	src := m.regions[[2]int{rx, rz}]
	out := make(map[chunk.Pos][]byte, len(src))
	for pos, data := range src {
		out[pos] = data
	}
	return out, nil
}

func (m *memCache) Evicts() bool { return false }

func (m *memCache) Close() error { return nil }
