package anvil

import (
	"bytes"
	"fmt"

	"github.com/OCharnyshevich/minecraft-terrain/pkg/world/chunk"
	"github.com/OCharnyshevich/minecraft-terrain/pkg/world/nbt"
)

// EncodeChunk encodes a chunk as MC 1.8 NBT. The chunk should be lit;
// an unlit chunk is relit first so HeightMap and SkyLight are consistent.
func EncodeChunk(pos chunk.Pos, c *chunk.Data) ([]byte, error) {
	if !c.Lit {
		c.Relight()
	}

	var buf bytes.Buffer
	w := nbt.NewWriter(&buf)

	w.BeginCompound("")
	w.BeginCompound("Level")

	w.WriteInt("xPos", int32(pos.X))
	w.WriteInt("zPos", int32(pos.Z))
	w.WriteTagByte("V", 1)
	w.WriteLong("LastUpdate", 0)
	w.WriteLong("InhabitedTime", 0)
	w.WriteBool("TerrainPopulated", true)
	w.WriteBool("LightPopulated", true)

	var sectionCount int32
	for _, sec := range c.Sections {
		if sec != nil {
			sectionCount++
		}
	}

	w.BeginList("Sections", nbt.TagCompound, sectionCount)
	blockLight := make([]byte, 2048)
	for secY, sec := range c.Sections {
		if sec == nil {
			continue
		}
		writeSection(w, secY, sec, blockLight)
	}

	w.WriteByteArray("Biomes", c.Biomes[:])
	w.WriteIntArray("HeightMap", c.HeightMap[:])
	w.BeginList("Entities", nbt.TagCompound, 0)
	w.BeginList("TileEntities", nbt.TagCompound, 0)

	w.EndCompound() // Level
	w.EndCompound() // root

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("encode chunk (%d,%d): %w", pos.X, pos.Z, err)
	}
	return buf.Bytes(), nil
}

// writeSection splits 12-bit block ids into Blocks, Add and Data arrays.
func writeSection(w *nbt.Writer, secY int, sec *chunk.Section, blockLight []byte) {
	blocks := make([]byte, 4096)
	data := make([]byte, 2048)
	var add []byte

	for i, v := range sec.Blocks {
		state := chunk.State(v)
		id := state.ID()
		blocks[i] = byte(id)
		if id > 255 {
			if add == nil {
				add = make([]byte, 2048)
			}
			chunk.SetNibble(add, i, byte(id>>8))
		}
		chunk.SetNibble(data, i, state.Meta())
	}

	w.BeginListCompound()
	w.WriteTagByte("Y", byte(secY))
	w.WriteByteArray("Blocks", blocks)
	if add != nil {
		w.WriteByteArray("Add", add)
	}
	w.WriteByteArray("Data", data)
	w.WriteByteArray("BlockLight", blockLight)
	w.WriteByteArray("SkyLight", sec.SkyLight[:])
	w.EndCompound()
}
