// Package gridstats holds the spatial result grids shared by every engine
// (score and mask grids aligned with the source raster) plus the
// descriptive statistics, percentile thresholding, and ranked-location
// extraction applied to them.
package gridstats

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ScoreGrid is a row-major grid of per-pixel scores. Non-finite entries
// mark pixels excluded from statistics but retained positionally.
type ScoreGrid struct {
	Rows, Cols int
	Values     []float64
}

// NewScoreGrid allocates a zero score grid.
func NewScoreGrid(rows, cols int) *ScoreGrid {
	return &ScoreGrid{Rows: rows, Cols: cols, Values: make([]float64, rows*cols)}
}

// At returns the score at (row, col).
func (g *ScoreGrid) At(row, col int) float64 { return g.Values[row*g.Cols+col] }

// Set writes the score at (row, col).
func (g *ScoreGrid) Set(row, col int, v float64) { g.Values[row*g.Cols+col] = v }

// MaskGrid is a row-major boolean grid.
type MaskGrid struct {
	Rows, Cols int
	Values     []bool
}

// NewMaskGrid allocates an all-false mask.
func NewMaskGrid(rows, cols int) *MaskGrid {
	return &MaskGrid{Rows: rows, Cols: cols, Values: make([]bool, rows*cols)}
}

// At returns the flag at (row, col).
func (g *MaskGrid) At(row, col int) bool { return g.Values[row*g.Cols+col] }

// Set writes the flag at (row, col).
func (g *MaskGrid) Set(row, col int, v bool) { g.Values[row*g.Cols+col] = v }

// Count returns the number of set cells.
func (g *MaskGrid) Count() int {
	n := 0
	for _, v := range g.Values {
		if v {
			n++
		}
	}
	return n
}

// Stats is the descriptive aggregate attached to result envelopes.
// Mean and StdDev ignore non-finite values; StdDev is the sample form.
type Stats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Valid  int     `json:"valid_pixels"`
	Total  int     `json:"total_pixels"`
}

// Describe computes Stats over a score grid, skipping non-finite entries.
// An all-invalid grid yields zero-valued stats with Valid == 0.
func Describe(g *ScoreGrid) Stats {
	finite := make([]float64, 0, len(g.Values))
	for _, v := range g.Values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	s := Stats{Valid: len(finite), Total: len(g.Values)}
	if len(finite) == 0 {
		return s
	}
	s.Min = floats.Min(finite)
	s.Max = floats.Max(finite)
	s.Mean, s.StdDev = stat.MeanStdDev(finite, nil)
	if math.IsNaN(s.StdDev) { // single sample
		s.StdDev = 0
	}
	return s
}

// PercentileValue returns the value at the given percentile of the finite
// grid scores, computed by sorting and indexing at floor(p * (N-1)).
// p is clamped to [0,1]; an empty population is a data error.
func PercentileValue(g *ScoreGrid, p float64) (float64, error) {
	finite := make([]float64, 0, len(g.Values))
	for _, v := range g.Values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return 0, fmt.Errorf("percentile of empty score population")
	}
	if p < 0 {
		p = 0
	} else if p > 1 {
		p = 1
	}
	sort.Float64s(finite)
	idx := int(p * float64(len(finite)-1))
	return finite[idx], nil
}

// Location is one ranked grid position.
type Location struct {
	Row   int     `json:"row"`
	Col   int     `json:"col"`
	Score float64 `json:"score"`
}

// TopLocations returns the top-n locations by score descending, with ties
// broken by row-major position (stable order). Non-finite scores are
// ignored.
func TopLocations(g *ScoreGrid, n int) []Location {
	if n <= 0 {
		return nil
	}
	locs := make([]Location, 0, len(g.Values))
	for i, v := range g.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		locs = append(locs, Location{Row: i / g.Cols, Col: i % g.Cols, Score: v})
	}
	sort.SliceStable(locs, func(i, j int) bool { return locs[i].Score > locs[j].Score })
	if len(locs) > n {
		locs = locs[:n]
	}
	return locs
}

// NormalizeByMax scales all finite scores in place by the maximum observed
// value. A non-positive maximum leaves the grid unchanged.
func NormalizeByMax(g *ScoreGrid) {
	max := 0.0
	for _, v := range g.Values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) && v > max {
			max = v
		}
	}
	if max <= 0 {
		return
	}
	for i, v := range g.Values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			g.Values[i] = v / max
		}
	}
}
