package world

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v3"
	"github.com/klauspost/compress/zstd"

	"github.com/OCharnyshevich/minecraft-terrain/pkg/world/chunk"
)

const (
	keyRaw byte = 'c' // zstd-compressed block data, reloaded for later writes
	keyNBT byte = 'n' // encoded chunk NBT, read when a region is rebuilt

	rawVersion = 1
)

// stagingCache spills checkpointed chunks to BadgerDB so only the chunks
// of the current batch stay resident.
type stagingCache struct {
	db  *badger.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func openStaging(dir string) (*stagingCache, error) {
	// Staging is scratch state for one run.
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("reset staging dir: %w", err)
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open staging db: %w", err)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &stagingCache{db: db, enc: enc, dec: dec}, nil
}

func stagingKey(kind byte, pos chunk.Pos) []byte {
	rx, rz := pos.Region()
	k := make([]byte, 17)
	k[0] = kind
	binary.BigEndian.PutUint32(k[1:], uint32(int32(rx)))
	binary.BigEndian.PutUint32(k[5:], uint32(int32(rz)))
	binary.BigEndian.PutUint32(k[9:], uint32(int32(pos.X)))
	binary.BigEndian.PutUint32(k[13:], uint32(int32(pos.Z)))
	return k
}

func (s *stagingCache) Put(pos chunk.Pos, c *chunk.Data, nbtData []byte) error {
	raw := s.enc.EncodeAll(encodeRaw(c), nil)

	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(stagingKey(keyRaw, pos), raw); err != nil {
			return err
		}
		return txn.Set(stagingKey(keyNBT, pos), nbtData)
	})
	if err != nil {
		return fmt.Errorf("stage chunk (%d,%d): %w", pos.X, pos.Z, err)
	}
	return nil
}

func (s *stagingCache) Load(pos chunk.Pos) (*chunk.Data, bool, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(stagingKey(keyRaw, pos))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load staged chunk (%d,%d): %w", pos.X, pos.Z, err)
	}

	plain, err := s.dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, false, fmt.Errorf("decompress staged chunk (%d,%d): %w", pos.X, pos.Z, err)
	}
	c, err := decodeRaw(plain)
	if err != nil {
		return nil, false, fmt.Errorf("decode staged chunk (%d,%d): %w", pos.X, pos.Z, err)
	}
	return c, true, nil
}

func (s *stagingCache) RegionChunks(rx, rz int) (map[chunk.Pos][]byte, error) {
	prefix := make([]byte, 9)
	prefix[0] = keyNBT
	binary.BigEndian.PutUint32(prefix[1:], uint32(int32(rx)))
	binary.BigEndian.PutUint32(prefix[5:], uint32(int32(rz)))

	out := make(map[chunk.Pos][]byte)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			k := item.Key()
			pos := chunk.Pos{
				X: int(int32(binary.BigEndian.Uint32(k[9:13]))),
				Z: int(int32(binary.BigEndian.Uint32(k[13:17]))),
			}
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			out[pos] = v
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan staged region (%d,%d): %w", rx, rz, err)
	}
	return out, nil
}

func (s *stagingCache) Evicts() bool { return true }

func (s *stagingCache) Close() error {
	s.enc.Close()
	s.dec.Close()
	return s.db.Close()
}

// encodeRaw serializes biomes and present sections. Light is not kept;
// a reloaded chunk is relit before it is encoded again.
func encodeRaw(c *chunk.Data) []byte {
	n := 0
	for _, sec := range c.Sections {
		if sec != nil {
			n++
		}
	}

	out := make([]byte, 0, 2+len(c.Biomes)+n*(1+len(sec0.Blocks)*2))
	out = append(out, rawVersion, byte(n))
	out = append(out, c.Biomes[:]...)
	for y, sec := range c.Sections {
		if sec == nil {
			continue
		}
		out = append(out, byte(y))
		for _, v := range sec.Blocks {
			out = binary.LittleEndian.AppendUint16(out, v)
		}
	}
	return out
}

var sec0 chunk.Section

func decodeRaw(b []byte) (*chunk.Data, error) {
	const secLen = 1 + len(sec0.Blocks)*2

	c := chunk.New()
	if len(b) < 2+len(c.Biomes) || b[0] != rawVersion {
		return nil, errors.New("bad staged chunk header")
	}
	n := int(b[1])
	b = b[2:]
	copy(c.Biomes[:], b)
	b = b[len(c.Biomes):]

	if len(b) != n*secLen {
		return nil, fmt.Errorf("staged chunk has %d section bytes, want %d", len(b), n*secLen)
	}
	for k := 0; k < n; k++ {
		y := int(b[0])
		if y >= len(c.Sections) {
			return nil, fmt.Errorf("staged section y=%d out of range", y)
		}
		sec := &chunk.Section{}
		for i := range sec.Blocks {
			sec.Blocks[i] = binary.LittleEndian.Uint16(b[1+i*2:])
		}
		c.Sections[y] = sec
		b = b[secLen:]
	}
	return c, nil
}
