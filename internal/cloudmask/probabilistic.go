package cloudmask

import (
	"fmt"
	"math"
	"sort"

	"github.com/skarn-data/alteration.report/internal/gridstats"
	"github.com/skarn-data/alteration.report/internal/raster"
)

// Additive probability weights for the five criteria, in rule order. The
// weights are independent heuristics, not a calibrated probability model;
// the final cloud decision is a binary OR of the criteria and must stay
// that way to keep the externally observable masking behaviour.
const (
	weightBlue       = 0.4
	weightCirrus     = 0.4
	weightWhiteness  = 0.2
	weightSWIRRatio  = 0.2
	weightVegetation = 0.2
)

// maskProbabilistic is the sensor-specific scorer for cirrus-capable
// stacks (Sentinel-2 layout). Five weighted criteria contribute to a
// continuous probability grid clipped to [0,1]; a pixel is marked cloud
// if any criterion fires regardless of accumulated probability.
func maskProbabilistic(r *raster.Raster, bi *raster.BandIndex, p Params) (*Result, error) {
	offs, err := bi.ResolveAll([]string{
		raster.BandBlue, raster.BandGreen, raster.BandRed,
		raster.BandNIR, raster.BandSWIR1, raster.BandSWIR2, raster.BandCirrus,
	})
	if err != nil {
		return nil, fmt.Errorf("probabilistic cloud mask: %w", err)
	}
	if err := bi.Validate(r.Bands); err != nil {
		return nil, fmt.Errorf("probabilistic cloud mask: %w", err)
	}
	blue, green, red, nir, swir1, swir2, cirrus := offs[0], offs[1], offs[2], offs[3], offs[4], offs[5], offs[6]

	cirrusThreshold := adaptiveCirrusThreshold(r, cirrus, p.CirrusFloor)

	cloud := gridstats.NewMaskGrid(r.Rows, r.Cols)
	prob := gridstats.NewScoreGrid(r.Rows, r.Cols)

	for i := 0; i < r.Rows; i++ {
		for j := 0; j < r.Cols; j++ {
			px := r.Pixel(i, j)
			if !raster.VectorValid(px) {
				prob.Set(i, j, math.NaN())
				continue
			}

			pSum := 0.0
			fired := false

			// High blue reflectance.
			if px[blue] > p.BlueThreshold {
				pSum += weightBlue
				fired = true
			}

			// Cirrus band against the adaptive threshold.
			if px[cirrus] > cirrusThreshold {
				pSum += weightCirrus
				fired = true
			}

			// Low visible whiteness: relative stddev of blue/green/red
			// below threshold while the visible mean is bright.
			visMean := (px[blue] + px[green] + px[red]) / 3
			if visMean > 0.2 {
				dev := (px[blue]-visMean)*(px[blue]-visMean) +
					(px[green]-visMean)*(px[green]-visMean) +
					(px[red]-visMean)*(px[red]-visMean)
				relStd := math.Sqrt(dev/3) / visMean
				if relStd < p.WhitenessThreshold {
					pSum += weightWhiteness
					fired = true
				}
			}

			// SWIR ratio.
			if px[swir2] > 0 && px[swir1]/px[swir2] > p.SWIRRatioThreshold {
				pSum += weightSWIRRatio
				fired = true
			}

			// Vegetation contrast: low NIR/Red ratio on a bright-blue
			// pixel means the surface is not vegetation.
			if px[red] > 0 && px[nir]/px[red] < p.VegetationRatio && px[blue] > 0.2 {
				pSum += weightVegetation
				fired = true
			}

			if pSum > 1 {
				pSum = 1
			}
			prob.Set(i, j, pSum)
			cloud.Set(i, j, fired)
		}
	}
	return summarize(AlgorithmProbabilistic, cloud, prob), nil
}

// adaptiveCirrusThreshold takes the maximum of the global 95th percentile
// of the cirrus band and the configured floor, so the criterion adapts to
// the scene's overall cirrus level but never drops below the floor.
func adaptiveCirrusThreshold(r *raster.Raster, cirrusBand int, floor float64) float64 {
	vals := make([]float64, 0, r.NumPixels())
	for i := 0; i < r.Rows; i++ {
		for j := 0; j < r.Cols; j++ {
			v := r.At(i, j, cirrusBand)
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				vals = append(vals, v)
			}
		}
	}
	if len(vals) == 0 {
		return floor
	}
	sort.Float64s(vals)
	p95 := vals[int(0.95*float64(len(vals)-1))]
	if p95 > floor {
		return p95
	}
	return floor
}
