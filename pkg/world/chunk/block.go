package chunk

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// State is a 1.8 block state: blockID<<4 | metadata.
type State uint16

// NewState builds a block state from an id and metadata value.
func NewState(id uint16, meta byte) State {
	return State(id<<4 | uint16(meta&0xF))
}

// ID returns the block id.
func (s State) ID() uint16 { return uint16(s) >> 4 }

// Meta returns the block metadata.
func (s State) Meta() byte { return byte(s) & 0xF }

const (
	Air       State = 0
	Stone     State = 1 << 4
	Grass     State = 2 << 4
	Dirt      State = 3 << 4
	Bedrock   State = 7 << 4
	Water     State = 9 << 4
	Sand      State = 12 << 4
	Gravel    State = 13 << 4
	Glowstone State = 89 << 4
	Glass     State = 95 << 4 // stained glass, white
	GreyGlass State = 95<<4 | 7
	PackedIce State = 174 << 4

	BiomePlains = 1
)

var blockNames = map[string]State{
	"air":        Air,
	"stone":      Stone,
	"grass":      Grass,
	"dirt":       Dirt,
	"bedrock":    Bedrock,
	"water":      Water,
	"sand":       Sand,
	"gravel":     Gravel,
	"glowstone":  Glowstone,
	"glass":      Glass,
	"grey_glass": GreyGlass,
	"packed_ice": PackedIce,
}

// ParseBlock resolves a palette entry. It accepts a block name ("stone"),
// a numeric id ("174") or an id:meta pair ("95:7").
func ParseBlock(s string) (State, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if st, ok := blockNames[name]; ok {
		return st, nil
	}

	idPart, metaPart, hasMeta := strings.Cut(name, ":")
	id, err := strconv.Atoi(idPart)
	if err == nil {
		meta := 0
		if hasMeta {
			if meta, err = strconv.Atoi(metaPart); err != nil {
				return 0, fmt.Errorf("parse block %q: %w", s, err)
			}
		}
		return checkedState(s, id, meta)
	}
	return 0, fmt.Errorf("unknown block %q (known: %s)", s, strings.Join(BlockNames(), ", "))
}

func checkedState(s string, id, meta int) (State, error) {
	if id < 0 || id > 0xFFF || meta < 0 || meta > 0xF {
		return 0, fmt.Errorf("block %q out of range", s)
	}
	return NewState(uint16(id), byte(meta)), nil
}

// BlockNames returns the sorted list of named blocks.
func BlockNames() []string {
	names := make([]string, 0, len(blockNames))
	for n := range blockNames {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// String returns the block name when known, otherwise "id:meta".
func (s State) String() string {
	for n, st := range blockNames {
		if st == s {
			return n
		}
	}
	return fmt.Sprintf("%d:%d", s.ID(), s.Meta())
}
