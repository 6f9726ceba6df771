// Package raster reads elevation rasters in ESRI ASCII grid format and
// fetches remote raster sources into a local cache.
package raster

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/OCharnyshevich/minecraft-terrain/internal/terrain/elevation"
)

// ErrFormat is returned for malformed grid files.
var ErrFormat = errors.New("invalid ascii grid")

// Raster is a decoded grid and its georeferencing header. Row 0 is the
// northern edge.
type Raster struct {
	Grid      *elevation.Grid
	XLL, YLL  float64 // lower-left corner (or centre, see Centered)
	Centered  bool
	CellSize  float64
	NoData    float64
	HasNoData bool
}

// Sentinel returns the value marking missing samples. A declared
// NODATA_value wins; otherwise, with fromMin set, the grid minimum is used.
func (r *Raster) Sentinel(fromMin bool) (float64, bool) {
	if r.HasNoData {
		return r.NoData, true
	}
	if fromMin {
		lo, _, ok := r.Grid.FiniteRange()
		return lo, ok
	}
	return 0, false
}

// ReadFile decodes the grid file at path.
func ReadFile(path string) (*Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open raster: %w", err)
	}
	defer f.Close()

	r, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Decode reads an ESRI ASCII grid: a header of "key value" lines
// (ncols, nrows, xllcorner|xllcenter, yllcorner|yllcenter, cellsize and an
// optional NODATA_value) followed by nrows*ncols samples in row-major order.
func Decode(rd io.Reader) (*Raster, error) {
	sc := bufio.NewScanner(rd)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	sc.Split(bufio.ScanWords)

	var (
		r          Raster
		rows, cols int
		first      string // first sample word, consumed while reading the header
	)
	for sc.Scan() {
		key := strings.ToLower(sc.Text())
		if !isHeaderKey(key) {
			first = sc.Text()
			break
		}
		if !sc.Scan() {
			return nil, fmt.Errorf("%w: header %s has no value", ErrFormat, key)
		}
		val := sc.Text()

		var err error
		switch key {
		case "ncols":
			cols, err = strconv.Atoi(val)
		case "nrows":
			rows, err = strconv.Atoi(val)
		case "xllcorner", "xllcenter":
			r.XLL, err = strconv.ParseFloat(val, 64)
			r.Centered = key == "xllcenter"
		case "yllcorner", "yllcenter":
			r.YLL, err = strconv.ParseFloat(val, 64)
		case "cellsize":
			r.CellSize, err = strconv.ParseFloat(val, 64)
		case "nodata_value":
			r.NoData, err = strconv.ParseFloat(val, 64)
			r.HasNoData = true
		}
		if err != nil {
			return nil, fmt.Errorf("%w: header %s: %v", ErrFormat, key, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read raster: %w", err)
	}
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: nrows=%d ncols=%d", ErrFormat, rows, cols)
	}

	data := make([]float64, 0, rows*cols)
	add := func(word string) error {
		if len(data) == rows*cols {
			return fmt.Errorf("%w: more than %d samples", ErrFormat, rows*cols)
		}
		v, err := strconv.ParseFloat(word, 64)
		if err != nil {
			return fmt.Errorf("%w: sample %d: %v", ErrFormat, len(data), err)
		}
		data = append(data, v)
		return nil
	}
	if first != "" {
		if err := add(first); err != nil {
			return nil, err
		}
	}
	for sc.Scan() {
		if err := add(sc.Text()); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read raster: %w", err)
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("%w: got %d samples, want %d", ErrFormat, len(data), rows*cols)
	}

	g, err := elevation.NewGrid(rows, cols, data)
	if err != nil {
		return nil, err
	}
	r.Grid = g
	return &r, nil
}

func isHeaderKey(k string) bool {
	switch k {
	case "ncols", "nrows", "xllcorner", "xllcenter", "yllcorner", "yllcenter", "cellsize", "nodata_value":
		return true
	}
	return false
}
