// Package cloudmask implements the three interchangeable cloud masking
// algorithms (fixed thresholds, the sensor-specific probabilistic scorer,
// and QA-band bitmask decoding) plus mask application. All three consume
// the same raster + band index and produce the same result envelope; the
// probabilistic variant additionally emits a continuous probability grid.
package cloudmask

import (
	"fmt"

	"github.com/skarn-data/alteration.report/internal/gridstats"
	"github.com/skarn-data/alteration.report/internal/raster"
)

// Algorithm names accepted by Mask.
const (
	AlgorithmThreshold     = "threshold"
	AlgorithmProbabilistic = "probabilistic"
	AlgorithmQABitmask     = "qa_bitmask"
)

// Params configures one masking call. Zero values take defaults.
type Params struct {
	Algorithm string `json:"algorithm"`

	// Threshold rule set.
	BlueThreshold      float64 `json:"blue_threshold"`       // cloud if blue above (default 0.3)
	NIRThreshold       float64 `json:"nir_threshold"`        // cloud if nir below (default 0.1)
	SWIRRatioThreshold float64 `json:"swir_ratio_threshold"` // cloud if swir1/swir2 above (default 1.5)

	// Probabilistic rule set.
	CirrusFloor        float64 `json:"cirrus_floor"`        // adaptive cirrus threshold floor (default 0.01)
	WhitenessThreshold float64 `json:"whiteness_threshold"` // visible rel-stddev below = white (default 0.15)
	VegetationRatio    float64 `json:"vegetation_ratio"`    // nir/red below = not vegetation (default 1.5)

	// QA bitmask bit positions (Landsat QA_PIXEL defaults).
	QABand          string `json:"qa_band"`
	DilatedCloudBit int    `json:"dilated_cloud_bit"`
	CirrusBit       int    `json:"cirrus_bit"`
	CloudBit        int    `json:"cloud_bit"`
	CloudShadowBit  int    `json:"cloud_shadow_bit"`
}

func (p Params) withDefaults() Params {
	if p.Algorithm == "" {
		p.Algorithm = AlgorithmThreshold
	}
	if p.BlueThreshold <= 0 {
		p.BlueThreshold = 0.3
	}
	if p.NIRThreshold <= 0 {
		p.NIRThreshold = 0.1
	}
	if p.SWIRRatioThreshold <= 0 {
		p.SWIRRatioThreshold = 1.5
	}
	if p.CirrusFloor <= 0 {
		p.CirrusFloor = 0.01
	}
	if p.WhitenessThreshold <= 0 {
		p.WhitenessThreshold = 0.15
	}
	if p.VegetationRatio <= 0 {
		p.VegetationRatio = 1.5
	}
	if p.QABand == "" {
		p.QABand = raster.BandQA
	}
	if p.DilatedCloudBit == 0 {
		p.DilatedCloudBit = 1
	}
	if p.CirrusBit == 0 {
		p.CirrusBit = 2
	}
	if p.CloudBit == 0 {
		p.CloudBit = 3
	}
	if p.CloudShadowBit == 0 {
		p.CloudShadowBit = 4
	}
	return p
}

// Result is the cloud masking envelope. Probability is nil except for the
// probabilistic algorithm.
type Result struct {
	Algorithm    string               `json:"algorithm"`
	Cloud        *gridstats.MaskGrid  `json:"-"`
	Probability  *gridstats.ScoreGrid `json:"-"`
	CloudPixels  int                  `json:"cloud_pixels"`
	ClearPixels  int                  `json:"clear_pixels"`
	CloudPercent float64              `json:"cloud_percent"`
	ClearPercent float64              `json:"clear_percent"`
}

// Mask runs the selected algorithm. Unknown names and unresolvable bands
// are data errors.
func Mask(r *raster.Raster, bi *raster.BandIndex, p Params) (*Result, error) {
	p = p.withDefaults()
	switch p.Algorithm {
	case AlgorithmThreshold:
		return maskThreshold(r, bi, p)
	case AlgorithmProbabilistic:
		return maskProbabilistic(r, bi, p)
	case AlgorithmQABitmask:
		return maskQABitmask(r, bi, p)
	}
	return nil, fmt.Errorf("unknown cloud mask algorithm %q (valid: %s, %s, %s)",
		p.Algorithm, AlgorithmThreshold, AlgorithmProbabilistic, AlgorithmQABitmask)
}

func summarize(algorithm string, cloud *gridstats.MaskGrid, prob *gridstats.ScoreGrid) *Result {
	total := len(cloud.Values)
	n := cloud.Count()
	res := &Result{
		Algorithm:   algorithm,
		Cloud:       cloud,
		Probability: prob,
		CloudPixels: n,
		ClearPixels: total - n,
	}
	if total > 0 {
		res.CloudPercent = 100 * float64(n) / float64(total)
		res.ClearPercent = 100 - res.CloudPercent
	}
	return res
}

// Apply replaces the band vectors of masked pixels with the fill value
// (broadcast across all bands), returning a new raster. Unmasked pixels
// pass through unchanged.
func Apply(r *raster.Raster, mask *gridstats.MaskGrid, fill float64) (*raster.Raster, error) {
	if mask.Rows != r.Rows || mask.Cols != r.Cols {
		return nil, fmt.Errorf("mask shape %dx%d does not match raster %dx%d", mask.Rows, mask.Cols, r.Rows, r.Cols)
	}
	out, err := raster.New(r.Rows, r.Cols, r.Bands)
	if err != nil {
		return nil, err
	}
	for i := 0; i < r.Rows; i++ {
		for j := 0; j < r.Cols; j++ {
			dst := out.Pixel(i, j)
			if mask.At(i, j) {
				for b := range dst {
					dst[b] = fill
				}
				continue
			}
			copy(dst, r.Pixel(i, j))
		}
	}
	return out, nil
}
