package chunk

import "testing"

func TestSetGetBlock(t *testing.T) {
	c := New()

	c.SetBlock(0, 0, 0, Stone)
	c.SetBlock(15, 255, 15, Grass)

	if got := c.GetBlock(0, 0, 0); got != Stone {
		t.Errorf("GetBlock(0,0,0) = %v, want stone", got)
	}
	if got := c.GetBlock(15, 255, 15); got != Grass {
		t.Errorf("GetBlock(15,255,15) = %v, want grass", got)
	}
	if got := c.GetBlock(3, 40, 3); got != Air {
		t.Errorf("GetBlock(3,40,3) = %v, want air", got)
	}
}

func TestSetAirDoesNotAllocateSection(t *testing.T) {
	c := New()
	c.FillColumn(0, 0, 0, 32, Air)

	for i, s := range c.Sections {
		if s != nil {
			t.Fatalf("section %d allocated for air fill", i)
		}
	}
}

func TestFillColumn(t *testing.T) {
	c := New()
	c.FillColumn(2, 3, 10, 20, Stone)

	for y := 0; y < 30; y++ {
		want := Air
		if y >= 10 && y < 20 {
			want = Stone
		}
		if got := c.GetBlock(2, y, 3); got != want {
			t.Errorf("y=%d: got %v, want %v", y, got, want)
		}
	}
}

func TestRelight(t *testing.T) {
	c := New()
	c.FillColumn(0, 0, 0, 64, Stone)
	c.SetBlock(5, 100, 5, Grass)

	if c.Lit {
		t.Fatal("chunk should not be lit before Relight")
	}
	c.Relight()
	if !c.Lit {
		t.Fatal("chunk should be lit after Relight")
	}

	if c.HeightMap[0] != 64 {
		t.Errorf("HeightMap[0] = %d, want 64", c.HeightMap[0])
	}
	if c.HeightMap[5*16+5] != 101 {
		t.Errorf("HeightMap[85] = %d, want 101", c.HeightMap[5*16+5])
	}
	if c.HeightMap[1] != 0 {
		t.Errorf("HeightMap[1] = %d, want 0", c.HeightMap[1])
	}

	tests := []struct {
		x, y, z int
		want    byte
	}{
		{0, 63, 0, 0},
		{0, 64, 0, 15},
		{0, 10, 0, 0},
		{5, 100, 5, 0},
		{5, 101, 5, 15},
		{1, 5, 0, 15},
	}
	for _, tt := range tests {
		if got := c.SkyLightAt(tt.x, tt.y, tt.z); got != tt.want {
			t.Errorf("SkyLightAt(%d,%d,%d) = %d, want %d", tt.x, tt.y, tt.z, got, tt.want)
		}
	}
}

func TestSetBlockClearsLit(t *testing.T) {
	c := New()
	c.Relight()
	c.SetBlock(1, 1, 1, Dirt)
	if c.Lit {
		t.Error("SetBlock should invalidate lighting")
	}
}

func TestSetNibble(t *testing.T) {
	arr := make([]byte, 4)

	SetNibble(arr, 0, 0x0A)
	if arr[0] != 0x0A {
		t.Fatalf("expected 0x0A, got 0x%02X", arr[0])
	}
	SetNibble(arr, 1, 0x0B)
	if arr[0] != 0xBA {
		t.Fatalf("expected 0xBA, got 0x%02X", arr[0])
	}
	if got := getNibble(arr, 1); got != 0x0B {
		t.Fatalf("getNibble(1) = 0x%X, want 0xB", got)
	}
}

func TestPosOf(t *testing.T) {
	tests := []struct {
		x, z int
		want Pos
	}{
		{0, 0, Pos{0, 0}},
		{15, 16, Pos{0, 1}},
		{-1, 33, Pos{-1, 2}},
	}
	for _, tt := range tests {
		if got := PosOf(tt.x, tt.z); got != tt.want {
			t.Errorf("PosOf(%d,%d) = %v, want %v", tt.x, tt.z, got, tt.want)
		}
	}

	rx, rz := Pos{X: 33, Z: -1}.Region()
	if rx != 1 || rz != -1 {
		t.Errorf("Region() = (%d,%d), want (1,-1)", rx, rz)
	}
}

func TestParseBlock(t *testing.T) {
	tests := []struct {
		in      string
		want    State
		wantErr bool
	}{
		{"stone", Stone, false},
		{" Grass ", Grass, false},
		{"grey_glass", GreyGlass, false},
		{"174", PackedIce, false},
		{"95:7", GreyGlass, false},
		{"obsidian", 0, true},
		{"95:x", 0, true},
		{"5000", 0, true},
		{"1:16", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseBlock(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseBlock(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseBlock(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseBlock(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestStateString(t *testing.T) {
	if got := Stone.String(); got != "stone" {
		t.Errorf("Stone.String() = %q", got)
	}
	if got := NewState(300, 5).String(); got != "300:5" {
		t.Errorf("String() = %q, want 300:5", got)
	}
}
