// Package specindex computes named spectral indices: pixelwise band
// arithmetic (normalized differences, ratios, multi-band means) with
// per-index band requirements, valid ranges, and descriptive statistics
// over the result grid.
package specindex

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/skarn-data/alteration.report/internal/gridstats"
	"github.com/skarn-data/alteration.report/internal/raster"
)

// Formula declares one named index: the bands it needs (in the order its
// compute function expects), its valid numeric range, and a description.
type Formula struct {
	Name        string
	Bands       []string
	Min, Max    float64
	Description string
	// compute maps the required band values of one pixel to the index
	// value.
	compute func(v []float64) float64
}

// normalizedDifference is (a-b)/(a+b) with a zero-sum guard that defines
// the all-zero case as 0.
func normalizedDifference(a, b float64) float64 {
	sum := a + b
	if sum == 0 {
		return 0
	}
	return (a - b) / sum
}

// ratio is a/b with a guarded division: a zero denominator yields 0.
func ratio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

var formulas = map[string]Formula{
	"ndvi": {
		Name:        "ndvi",
		Bands:       []string{raster.BandNIR, raster.BandRed},
		Min:         -1, Max: 1,
		Description: "normalized difference vegetation index (nir-red)/(nir+red)",
		compute:     func(v []float64) float64 { return normalizedDifference(v[0], v[1]) },
	},
	"ndmi": {
		Name:        "ndmi",
		Bands:       []string{raster.BandNIR, raster.BandSWIR1},
		Min:         -1, Max: 1,
		Description: "normalized difference moisture index (nir-swir1)/(nir+swir1)",
		compute:     func(v []float64) float64 { return normalizedDifference(v[0], v[1]) },
	},
	"mndwi": {
		Name:        "mndwi",
		Bands:       []string{raster.BandGreen, raster.BandSWIR1},
		Min:         -1, Max: 1,
		Description: "modified normalized difference water index (green-swir1)/(green+swir1)",
		compute:     func(v []float64) float64 { return normalizedDifference(v[0], v[1]) },
	},
	"nbr": {
		Name:        "nbr",
		Bands:       []string{raster.BandNIR, raster.BandSWIR2},
		Min:         -1, Max: 1,
		Description: "normalized burn ratio (nir-swir2)/(nir+swir2); bare and disturbed ground scores low",
		compute:     func(v []float64) float64 { return normalizedDifference(v[0], v[1]) },
	},
	"iron_oxide": {
		Name:        "iron_oxide",
		Bands:       []string{raster.BandRed, raster.BandBlue},
		Min:         0, Max: 10,
		Description: "iron oxide ratio red/blue; ferric staining scores high",
		compute:     func(v []float64) float64 { return ratio(v[0], v[1]) },
	},
	"clay": {
		Name:        "clay",
		Bands:       []string{raster.BandSWIR1, raster.BandSWIR2},
		Min:         0, Max: 10,
		Description: "clay alteration ratio swir1/swir2; hydroxyl-bearing minerals score high",
		compute:     func(v []float64) float64 { return ratio(v[0], v[1]) },
	},
	"ferrous": {
		Name:        "ferrous",
		Bands:       []string{raster.BandSWIR1, raster.BandNIR},
		Min:         0, Max: 10,
		Description: "ferrous mineral ratio swir1/nir",
		compute:     func(v []float64) float64 { return ratio(v[0], v[1]) },
	},
	"brightness": {
		Name:        "brightness",
		Bands:       []string{raster.BandBlue, raster.BandGreen, raster.BandRed, raster.BandNIR},
		Min:         0, Max: 1,
		Description: "mean reflectance across the visible and nir bands",
		compute: func(v []float64) float64 {
			return (v[0] + v[1] + v[2] + v[3]) / 4
		},
	},
}

// Names lists the known index names, sorted.
func Names() []string {
	names := make([]string, 0, len(formulas))
	for n := range formulas {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup returns a formula by name; unknown names are a data error
// listing the valid names.
func Lookup(name string) (Formula, error) {
	f, ok := formulas[strings.ToLower(name)]
	if !ok {
		return Formula{}, fmt.Errorf("unknown spectral index %q (valid: %s)", name, strings.Join(Names(), ", "))
	}
	return f, nil
}

// Result is the index envelope: the value grid plus descriptive
// statistics ignoring non-finite values.
type Result struct {
	Index       string               `json:"index"`
	Description string               `json:"description"`
	Range       [2]float64           `json:"range"`
	Values      *gridstats.ScoreGrid `json:"-"`
	Stats       gridstats.Stats      `json:"stats"`
}

// Compute evaluates a named index over the raster. Unresolvable bands
// are a data error; invalid pixels yield NaN values excluded from the
// statistics.
func Compute(r *raster.Raster, bi *raster.BandIndex, name string) (*Result, error) {
	f, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	offs, err := bi.ResolveAll(f.Bands)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", f.Name, err)
	}
	if err := bi.Validate(r.Bands); err != nil {
		return nil, fmt.Errorf("index %s: %w", f.Name, err)
	}

	grid := gridstats.NewScoreGrid(r.Rows, r.Cols)
	vals := make([]float64, len(offs))
	for i := 0; i < r.Rows; i++ {
		for j := 0; j < r.Cols; j++ {
			px := r.Pixel(i, j)
			valid := true
			for k, off := range offs {
				v := px[off]
				if math.IsNaN(v) || math.IsInf(v, 0) {
					valid = false
					break
				}
				vals[k] = v
			}
			if !valid {
				grid.Set(i, j, math.NaN())
				continue
			}
			grid.Set(i, j, f.compute(vals))
		}
	}

	return &Result{
		Index:       f.Name,
		Description: f.Description,
		Range:       [2]float64{f.Min, f.Max},
		Values:      grid,
		Stats:       gridstats.Describe(grid),
	}, nil
}
