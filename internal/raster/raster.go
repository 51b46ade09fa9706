// Package raster holds the in-memory model for multi-band imagery: the
// Raster cube itself, band-name resolution for the supported sensor
// conventions, and loaders for the supported ingest formats. All analysis
// engines consume this model; none of them touch files or sensors directly.
package raster

import (
	"fmt"
	"math"
)

// Raster is a dense row-major cube of reflectance values indexed
// [row][col][band]. Values are float64; non-finite entries mark invalid or
// missing observations and are kept positionally so score and mask grids
// stay aligned with the source image.
type Raster struct {
	Rows  int
	Cols  int
	Bands int

	// data is laid out row-major: (row*Cols+col)*Bands + band.
	data []float64
}

// New allocates a zero-filled raster of the given shape.
func New(rows, cols, bands int) (*Raster, error) {
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("raster: negative shape %dx%d", rows, cols)
	}
	if bands < 1 {
		return nil, fmt.Errorf("raster: band count must be >= 1, got %d", bands)
	}
	return &Raster{
		Rows:  rows,
		Cols:  cols,
		Bands: bands,
		data:  make([]float64, rows*cols*bands),
	}, nil
}

// FromNested builds a raster from nested [row][col][band] data. Every row
// must have the same column count and every pixel the same band count.
func FromNested(values [][][]float64) (*Raster, error) {
	rows := len(values)
	if rows == 0 {
		return nil, fmt.Errorf("raster: empty input")
	}
	cols := len(values[0])
	if cols == 0 {
		return nil, fmt.Errorf("raster: empty row")
	}
	bands := len(values[0][0])

	r, err := New(rows, cols, bands)
	if err != nil {
		return nil, err
	}
	for i, row := range values {
		if len(row) != cols {
			return nil, fmt.Errorf("raster: row %d has %d columns, want %d", i, len(row), cols)
		}
		for j, px := range row {
			if len(px) != bands {
				return nil, fmt.Errorf("raster: pixel (%d,%d) has %d bands, want %d", i, j, len(px), bands)
			}
			copy(r.data[(i*cols+j)*bands:], px)
		}
	}
	return r, nil
}

// FromFlat wraps an already-flattened row-major buffer. The buffer is
// retained, not copied; its length must equal rows*cols*bands.
func FromFlat(data []float64, rows, cols, bands int) (*Raster, error) {
	r, err := New(rows, cols, bands)
	if err != nil {
		return nil, err
	}
	if len(data) != rows*cols*bands {
		return nil, fmt.Errorf("raster: buffer length %d does not match shape %dx%dx%d", len(data), rows, cols, bands)
	}
	r.data = data
	return r, nil
}

// At returns the value at (row, col, band). Callers index within bounds;
// this is a hot path and performs no checks.
func (r *Raster) At(row, col, band int) float64 {
	return r.data[(row*r.Cols+col)*r.Bands+band]
}

// Set writes the value at (row, col, band).
func (r *Raster) Set(row, col, band int, v float64) {
	r.data[(row*r.Cols+col)*r.Bands+band] = v
}

// Pixel returns the band vector at (row, col) as a slice into the raster's
// backing array. Mutating the slice mutates the raster.
func (r *Raster) Pixel(row, col int) []float64 {
	off := (row*r.Cols + col) * r.Bands
	return r.data[off : off+r.Bands]
}

// PixelCopy returns an owned copy of the band vector at (row, col).
func (r *Raster) PixelCopy(row, col int) []float64 {
	out := make([]float64, r.Bands)
	copy(out, r.Pixel(row, col))
	return out
}

// NumPixels returns the spatial pixel count.
func (r *Raster) NumPixels() int { return r.Rows * r.Cols }

// IsValid reports whether every band value at (row, col) is finite.
func (r *Raster) IsValid(row, col int) bool {
	return VectorValid(r.Pixel(row, col))
}

// VectorValid reports whether every entry of v is finite.
func VectorValid(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// SelectBands builds an H x W x len(bands) view-copy holding only the
// requested band offsets, in the given order. Offsets must be in range.
func (r *Raster) SelectBands(bands []int) (*Raster, error) {
	for _, b := range bands {
		if b < 0 || b >= r.Bands {
			return nil, fmt.Errorf("raster: band offset %d out of range (raster has %d bands)", b, r.Bands)
		}
	}
	out, err := New(r.Rows, r.Cols, len(bands))
	if err != nil {
		return nil, err
	}
	for i := 0; i < r.Rows; i++ {
		for j := 0; j < r.Cols; j++ {
			src := r.Pixel(i, j)
			dst := out.Pixel(i, j)
			for k, b := range bands {
				dst[k] = src[b]
			}
		}
	}
	return out, nil
}

// ValidPixels collects the band vectors of all valid pixels plus their
// row-major positions. The returned vectors are copies.
func (r *Raster) ValidPixels() (vectors [][]float64, positions []int) {
	for i := 0; i < r.Rows; i++ {
		for j := 0; j < r.Cols; j++ {
			px := r.Pixel(i, j)
			if !VectorValid(px) {
				continue
			}
			cp := make([]float64, len(px))
			copy(cp, px)
			vectors = append(vectors, cp)
			positions = append(positions, i*r.Cols+j)
		}
	}
	return vectors, positions
}

// Band extracts a single band as a row-major 2D slice. Convenience for the
// index calculator and cloud mask rule paths.
func (r *Raster) Band(band int) ([]float64, error) {
	if band < 0 || band >= r.Bands {
		return nil, fmt.Errorf("raster: band offset %d out of range (raster has %d bands)", band, r.Bands)
	}
	out := make([]float64, r.Rows*r.Cols)
	for p := 0; p < r.Rows*r.Cols; p++ {
		out[p] = r.data[p*r.Bands+band]
	}
	return out, nil
}
