package chunk

const (
	// Height is the vertical capacity of a chunk column.
	Height = 256
	// Width is the horizontal edge length of a chunk.
	Width = 16

	sectionCount  = Height / 16
	sectionBlocks = 16 * 16 * 16
	fullSkyLight  = 15
)

// Pos identifies a chunk by its X and Z coordinates.
type Pos struct{ X, Z int }

// PosOf returns the chunk containing block column (x, z).
func PosOf(x, z int) Pos {
	return Pos{X: x >> 4, Z: z >> 4}
}

// Region returns the coordinates of the 32×32 region file holding the chunk.
func (p Pos) Region() (rx, rz int) {
	return p.X >> 5, p.Z >> 5
}

// Section holds block and sky light data for a 16×16×16 vertical slice.
// Index = y*256 + z*16 + x, block value = blockID<<4 | metadata.
type Section struct {
	Blocks   [sectionBlocks]uint16
	SkyLight [sectionBlocks / 2]byte
}

// Data holds one chunk column.
type Data struct {
	Sections  [sectionCount]*Section // nil = all-air
	Biomes    [Width * Width]byte    // index = z*16 + x
	HeightMap [Width * Width]int32   // lowest y with only air above, per column
	Lit       bool                   // HeightMap and SkyLight reflect Blocks
}

// New returns an empty chunk with every column set to the plains biome.
func New() *Data {
	c := &Data{}
	for i := range c.Biomes {
		c.Biomes[i] = BiomePlains
	}
	return c
}

// SetBlock sets a block state at the given local coordinates within the chunk.
// x, z must be in [0,16), y must be in [0,256).
func (c *Data) SetBlock(x, y, z int, state State) {
	sec := y >> 4
	if c.Sections[sec] == nil {
		if state == Air {
			return
		}
		c.Sections[sec] = &Section{}
	}
	c.Sections[sec].Blocks[(y&0xF)*256+z*16+x] = uint16(state)
	c.Lit = false
}

// GetBlock returns the block state at the given local coordinates.
func (c *Data) GetBlock(x, y, z int) State {
	sec := y >> 4
	if c.Sections[sec] == nil {
		return Air
	}
	return State(c.Sections[sec].Blocks[(y&0xF)*256+z*16+x])
}

// FillColumn sets blocks y0 <= y < y1 of local column (x, z) to state.
func (c *Data) FillColumn(x, z, y0, y1 int, state State) {
	for y := y0; y < y1; y++ {
		c.SetBlock(x, y, z, state)
	}
}

// Relight recomputes the heightmap and sky light of every column.
// Sky light is full above the heightmap and zero at or below it.
func (c *Data) Relight() {
	for z := 0; z < Width; z++ {
		for x := 0; x < Width; x++ {
			top := 0
			for y := Height - 1; y >= 0; y-- {
				if c.GetBlock(x, y, z) != Air {
					top = y + 1
					break
				}
			}
			c.HeightMap[z*Width+x] = int32(top)

			for sec, s := range c.Sections {
				if s == nil {
					continue
				}
				base := sec << 4
				for ly := 0; ly < 16; ly++ {
					var level byte
					if base+ly >= top {
						level = fullSkyLight
					}
					setNibble(s.SkyLight[:], ly*256+z*16+x, level)
				}
			}
		}
	}
	c.Lit = true
}

// SkyLightAt returns the sky light level at the given local coordinates.
// Positions inside an absent section are fully lit.
func (c *Data) SkyLightAt(x, y, z int) byte {
	s := c.Sections[y>>4]
	if s == nil {
		return fullSkyLight
	}
	return getNibble(s.SkyLight[:], (y&0xF)*256+z*16+x)
}

// SetNibble sets a 4-bit value at the given block index in a nibble array.
func SetNibble(arr []byte, index int, val byte) {
	setNibble(arr, index, val)
}

func setNibble(arr []byte, index int, val byte) {
	byteIdx := index / 2
	if index%2 == 0 {
		arr[byteIdx] = (arr[byteIdx] & 0xF0) | (val & 0x0F)
	} else {
		arr[byteIdx] = (arr[byteIdx] & 0x0F) | ((val & 0x0F) << 4)
	}
}

func getNibble(arr []byte, index int) byte {
	b := arr[index/2]
	if index%2 == 0 {
		return b & 0x0F
	}
	return b >> 4
}
