package batch

import "github.com/OCharnyshevich/minecraft-terrain/pkg/world/chunk"

// Recorder collects the chunks touched during one batch while installed on
// a store, then replays one notification per chunk.
type Recorder interface {
	Push(pos chunk.Pos)
	// Flush calls notify once for every recorded chunk, in no particular
	// order, and returns how many chunks it notified. It stops at the first
	// error. The recorded set is left intact.
	Flush(notify func(chunk.Pos) error) (int, error)
	Clear()
	Len() int
}

// ChunkSet is the default Recorder: a deduplicating set of chunk positions.
type ChunkSet struct {
	set map[chunk.Pos]struct{}
}

// NewChunkSet returns an empty set.
func NewChunkSet() *ChunkSet {
	return &ChunkSet{set: make(map[chunk.Pos]struct{})}
}

func (s *ChunkSet) Push(pos chunk.Pos) {
	if s.set == nil {
		s.set = make(map[chunk.Pos]struct{})
	}
	s.set[pos] = struct{}{}
}

func (s *ChunkSet) Flush(notify func(chunk.Pos) error) (int, error) {
	n := 0
	for pos := range s.set {
		if err := notify(pos); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (s *ChunkSet) Clear() { clear(s.set) }

func (s *ChunkSet) Len() int { return len(s.set) }
