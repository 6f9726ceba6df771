package world

import "github.com/OCharnyshevich/minecraft-terrain/pkg/world/chunk"

// BlockPos represents a block position in the world.
type BlockPos struct {
	X, Y, Z int
}

// Box is an axis-aligned, half-open block region: Min is inclusive,
// Max is exclusive.
type Box struct {
	Min, Max BlockPos
}

// ColumnBox returns the box covering y0 <= y < y1 of column (x, z).
func ColumnBox(x, z, y0, y1 int) Box {
	return Box{Min: BlockPos{X: x, Y: y0, Z: z}, Max: BlockPos{X: x + 1, Y: y1, Z: z + 1}}
}

// Empty reports whether the box contains no blocks.
func (b Box) Empty() bool {
	return b.Max.X <= b.Min.X || b.Max.Y <= b.Min.Y || b.Max.Z <= b.Min.Z
}

// Chunks returns every chunk position the box touches, in x-major order.
func (b Box) Chunks() []chunk.Pos {
	if b.Empty() {
		return nil
	}
	c0 := chunk.PosOf(b.Min.X, b.Min.Z)
	c1 := chunk.PosOf(b.Max.X-1, b.Max.Z-1)
	out := make([]chunk.Pos, 0, (c1.X-c0.X+1)*(c1.Z-c0.Z+1))
	for cx := c0.X; cx <= c1.X; cx++ {
		for cz := c0.Z; cz <= c1.Z; cz++ {
			out = append(out, chunk.Pos{X: cx, Z: cz})
		}
	}
	return out
}
