package cloudmask

import (
	"fmt"

	"github.com/skarn-data/alteration.report/internal/gridstats"
	"github.com/skarn-data/alteration.report/internal/raster"
)

// maskThreshold marks a pixel cloudy when any fixed rule fires: bright
// blue, dark NIR, or a high SWIR1/SWIR2 ratio.
func maskThreshold(r *raster.Raster, bi *raster.BandIndex, p Params) (*Result, error) {
	offs, err := bi.ResolveAll([]string{raster.BandBlue, raster.BandNIR, raster.BandSWIR1, raster.BandSWIR2})
	if err != nil {
		return nil, fmt.Errorf("threshold cloud mask: %w", err)
	}
	if err := bi.Validate(r.Bands); err != nil {
		return nil, fmt.Errorf("threshold cloud mask: %w", err)
	}
	blue, nir, swir1, swir2 := offs[0], offs[1], offs[2], offs[3]

	cloud := gridstats.NewMaskGrid(r.Rows, r.Cols)
	for i := 0; i < r.Rows; i++ {
		for j := 0; j < r.Cols; j++ {
			px := r.Pixel(i, j)
			if !raster.VectorValid(px) {
				continue
			}
			cloudy := px[blue] > p.BlueThreshold || px[nir] < p.NIRThreshold
			if !cloudy && px[swir2] > 0 && px[swir1]/px[swir2] > p.SWIRRatioThreshold {
				cloudy = true
			}
			cloud.Set(i, j, cloudy)
		}
	}
	return summarize(AlgorithmThreshold, cloud, nil), nil
}
