package anvil

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauspost/compress/zlib"

	"github.com/OCharnyshevich/minecraft-terrain/pkg/world/chunk"
)

const (
	sectorSize      = 4096
	headerSectors   = 2 // location table + timestamp table
	compressionZlib = 2
	maxChunkSectors = 255
	regionChunks    = 32 * 32
)

// ErrChunkTooLarge is returned when a compressed chunk does not fit in the
// 255 sectors a location entry can address.
var ErrChunkTooLarge = errors.New("anvil: chunk exceeds 255 sectors")

// RegionPath returns the .mca path for region (rx, rz) inside dir.
func RegionPath(dir string, rx, rz int) string {
	return filepath.Join(dir, fmt.Sprintf("r.%d.%d.mca", rx, rz))
}

// SaveRegion writes all provided chunks to a .mca region file, replacing
// any previous file atomically. chunks maps chunk positions to their
// uncompressed NBT data; every position must lie inside region (rx, rz).
func SaveRegion(dir string, rx, rz int, chunks map[chunk.Pos][]byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create region dir: %w", err)
	}

	positions := make([]chunk.Pos, 0, len(chunks))
	for pos := range chunks {
		if prx, prz := pos.Region(); prx != rx || prz != rz {
			return fmt.Errorf("chunk (%d,%d) is outside region (%d,%d)", pos.X, pos.Z, rx, rz)
		}
		positions = append(positions, pos)
	}
	// Stable sector layout for identical input.
	sort.Slice(positions, func(i, j int) bool {
		return chunkIndex(positions[i]) < chunkIndex(positions[j])
	})

	locations := make([]byte, sectorSize)
	timestamps := make([]byte, sectorSize)
	now := uint32(time.Now().Unix())

	var dataBuf bytes.Buffer
	currentSector := uint32(headerSectors)

	for _, pos := range positions {
		compressed, err := compress(chunks[pos])
		if err != nil {
			return fmt.Errorf("compress chunk (%d,%d): %w", pos.X, pos.Z, err)
		}

		// Chunk payload: length (4 bytes) + compression (1 byte) + compressed NBT.
		payloadLen := uint32(len(compressed)) + 1
		totalLen := 4 + payloadLen
		sectorCount := (totalLen + sectorSize - 1) / sectorSize
		if sectorCount > maxChunkSectors {
			return fmt.Errorf("chunk (%d,%d): %w", pos.X, pos.Z, ErrChunkTooLarge)
		}

		off := chunkIndex(pos) * 4
		binary.BigEndian.PutUint32(locations[off:off+4], (currentSector<<8)|sectorCount)
		binary.BigEndian.PutUint32(timestamps[off:off+4], now)

		var header [5]byte
		binary.BigEndian.PutUint32(header[0:4], payloadLen)
		header[4] = compressionZlib
		dataBuf.Write(header[:])
		dataBuf.Write(compressed)

		if pad := int(sectorCount)*sectorSize - int(totalLen); pad > 0 {
			dataBuf.Write(make([]byte, pad))
		}
		currentSector += sectorCount
	}

	return writeAtomic(RegionPath(dir, rx, rz), locations, timestamps, dataBuf.Bytes())
}

// ReadRegion returns the decompressed NBT of every chunk stored in a region
// file, keyed by chunk position.
func ReadRegion(path string, rx, rz int) (map[chunk.Pos][]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read region: %w", err)
	}
	if len(raw) < headerSectors*sectorSize {
		return nil, fmt.Errorf("region %s: truncated header", path)
	}

	out := make(map[chunk.Pos][]byte)
	for idx := 0; idx < regionChunks; idx++ {
		entry := binary.BigEndian.Uint32(raw[idx*4 : idx*4+4])
		if entry == 0 {
			continue
		}
		start := int(entry>>8) * sectorSize
		if start+5 > len(raw) {
			return nil, fmt.Errorf("region %s: chunk %d out of bounds", path, idx)
		}
		payloadLen := int(binary.BigEndian.Uint32(raw[start : start+4]))
		if raw[start+4] != compressionZlib || start+4+payloadLen > len(raw) {
			return nil, fmt.Errorf("region %s: bad chunk header at %d", path, idx)
		}

		zr, err := zlib.NewReader(bytes.NewReader(raw[start+5 : start+4+payloadLen]))
		if err != nil {
			return nil, fmt.Errorf("region %s: chunk %d: %w", path, idx, err)
		}
		data, err := io.ReadAll(zr)
		zr.Close()
		if err != nil {
			return nil, fmt.Errorf("region %s: chunk %d: %w", path, idx, err)
		}

		pos := chunk.Pos{X: rx*32 + idx%32, Z: rz*32 + idx/32}
		out[pos] = data
	}
	return out, nil
}

func chunkIndex(pos chunk.Pos) int {
	return (pos.X & 31) + (pos.Z&31)*32
}

func compress(nbtData []byte) ([]byte, error) {
	var cbuf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&cbuf, zlib.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("create zlib writer: %w", err)
	}
	if _, err := zw.Write(nbtData); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zlib writer: %w", err)
	}
	return cbuf.Bytes(), nil
}

// writeAtomic writes parts to a temp file next to path and renames it.
func writeAtomic(path string, parts ...[]byte) error {
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create temp region file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmp)
	}()

	for _, p := range parts {
		if _, err := f.Write(p); err != nil {
			return fmt.Errorf("write region file: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close region file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename region file: %w", err)
	}
	return nil
}
