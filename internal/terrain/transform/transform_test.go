package transform

import (
	"errors"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCharnyshevich/minecraft-terrain/internal/terrain/config"
	"github.com/OCharnyshevich/minecraft-terrain/internal/terrain/elevation"
)

func TestNewRejectsBadScale(t *testing.T) {
	for _, scale := range []float64{0, -0.5, math.NaN(), math.Inf(1)} {
		_, err := New(scale, 0)
		var cerr *config.ConfigurationError
		assert.True(t, errors.As(err, &cerr), "scale %v: want ConfigurationError, got %v", scale, err)
	}

	_, err := New(1, math.NaN())
	assert.Error(t, err)
}

func TestLevel(t *testing.T) {
	tr, err := New(0.025, 5)
	require.NoError(t, err)

	tests := []struct {
		e    float64
		want int
	}{
		{0, 5},
		{39.9, 5},
		{40, 6},
		{1000, 30},
		{-40, 4},
		{-240, -1},
		{-199, 0},
	}
	for _, tt := range tests {
		got, err := tr.Level(tt.e)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "Level(%v)", tt.e)
	}
}

func TestLevelFloorsNegatives(t *testing.T) {
	tr, err := New(1, 0)
	require.NoError(t, err)

	got, err := tr.Level(-0.5)
	require.NoError(t, err)
	assert.Equal(t, -1, got)
}

func TestLevelMalformed(t *testing.T) {
	tr, err := New(1, 0)
	require.NoError(t, err)

	for _, e := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), 1e300} {
		_, err := tr.Level(e)
		assert.ErrorIs(t, err, ErrMalformedSample, "Level(%v)", e)
	}
}

func TestLevelMonotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 20; trial++ {
		tr, err := New(rng.Float64()*3+1e-3, rng.Float64()*20-10)
		require.NoError(t, err)

		samples := make([]float64, 200)
		for i := range samples {
			samples[i] = rng.Float64()*2000 - 1000
		}
		sort.Float64s(samples)

		prev := math.MinInt
		for _, e := range samples {
			l, err := tr.Level(e)
			require.NoError(t, err)
			require.GreaterOrEqual(t, l, prev, "level decreased at %v", e)
			prev = l
		}
	}
}

func model(t *testing.T, boundary, bed []float64) *elevation.Model {
	t.Helper()
	b, err := elevation.NewGrid(1, len(boundary), boundary)
	require.NoError(t, err)
	var bg *elevation.Grid
	if bed != nil {
		bg, err = elevation.NewGrid(1, len(bed), bed)
		require.NoError(t, err)
	}
	m, err := elevation.Derive(b, bg, 1)
	require.NoError(t, err)
	return m
}

func TestCheckBoundsOK(t *testing.T) {
	tr, err := New(0.025, 5)
	require.NoError(t, err)

	m := model(t, []float64{0, 1200, 3000, math.NaN()}, nil)
	b, err := tr.CheckBounds(m, 255)
	require.NoError(t, err)
	assert.Equal(t, 5, b.MinBed)
	assert.Equal(t, 80, b.MaxSurface)
}

func TestCheckBoundsBedTooLow(t *testing.T) {
	tr, err := New(1, 0)
	require.NoError(t, err)

	_, err = tr.CheckBounds(model(t, []float64{10}, nil), 255)

	var cerr *config.ConfigurationError
	require.True(t, errors.As(err, &cerr), "want ConfigurationError, got %v", err)
	assert.Contains(t, cerr.Reason, "below y=0")
}

func TestCheckBoundsSurfaceTooHigh(t *testing.T) {
	tr, err := New(1, 5)
	require.NoError(t, err)

	_, err = tr.CheckBounds(model(t, []float64{10, 249}, nil), 255)

	var cerr *config.ConfigurationError
	require.True(t, errors.As(err, &cerr), "want ConfigurationError, got %v", err)
	assert.Contains(t, cerr.Reason, "above y=255")
}

func TestCheckBoundsNoFiniteSamples(t *testing.T) {
	tr, err := New(1, 5)
	require.NoError(t, err)

	_, err = tr.CheckBounds(model(t, []float64{math.NaN()}, nil), 255)
	var cerr *config.ConfigurationError
	assert.True(t, errors.As(err, &cerr))
}
