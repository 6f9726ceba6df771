package world

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/OCharnyshevich/minecraft-terrain/pkg/world/nbt"
)

const (
	levelVersion  = 19133 // Anvil
	gameCreative  = 1
	levelFileName = "level.dat"
)

// Marker is the spawn point, also used as the player position.
type Marker struct {
	X, Y, Z int
}

// encodeLevel builds the gzip-compressed level.dat for a superflat,
// creative-mode world with no structures.
func encodeLevel(name string, m Marker, lastPlayed time.Time) ([]byte, error) {
	var raw bytes.Buffer
	w := nbt.NewWriter(&raw)

	w.BeginCompound("")
	w.BeginCompound("Data")
	w.WriteInt("version", levelVersion)
	w.WriteBool("initialized", true)
	w.WriteString("LevelName", name)
	w.WriteString("generatorName", "flat")
	w.WriteInt("generatorVersion", 0)
	w.WriteString("generatorOptions", "0")
	w.WriteInt("MapFeatures", 0)
	w.WriteInt("GameType", gameCreative)
	w.WriteBool("hardcore", false)
	w.WriteBool("allowCommands", true)
	w.WriteLong("RandomSeed", 0)
	w.WriteInt("SpawnX", int32(m.X))
	w.WriteInt("SpawnY", int32(m.Y))
	w.WriteInt("SpawnZ", int32(m.Z))
	w.WriteLong("Time", 0)
	w.WriteLong("DayTime", 6000)
	w.WriteLong("LastPlayed", lastPlayed.UnixMilli())
	w.WriteBool("raining", false)
	w.WriteBool("thundering", false)

	w.BeginCompound("Player")
	w.WriteDoubleList("Pos", []float64{float64(m.X) + 0.5, float64(m.Y), float64(m.Z) + 0.5})
	w.WriteDoubleList("Motion", []float64{0, 0, 0})
	w.WriteFloatList("Rotation", []float32{0, 0})
	w.WriteInt("Dimension", 0)
	w.WriteInt("playerGameType", gameCreative)
	w.WriteBool("OnGround", false)
	w.EndCompound()

	w.EndCompound() // Data
	w.EndCompound() // root

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("encode level: %w", err)
	}

	var out bytes.Buffer
	zw := gzip.NewWriter(&out)
	if _, err := zw.Write(raw.Bytes()); err != nil {
		return nil, fmt.Errorf("compress level: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress level: %w", err)
	}
	return out.Bytes(), nil
}

func (s *Store) writeLevel(now time.Time) error {
	data, err := encodeLevel(s.name, s.marker, now)
	if err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(s.path, levelFileName), data)
}

// WriteManifest stores v as indented JSON in <world>/<name>.
func (s *Store) WriteManifest(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	data = append(data, '\n')
	return writeFileAtomic(filepath.Join(s.path, name), data)
}

// writeFileAtomic writes data using a temp file + rename.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
