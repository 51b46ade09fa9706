package cloudmask

import (
	"fmt"
	"math"

	"github.com/skarn-data/alteration.report/internal/gridstats"
	"github.com/skarn-data/alteration.report/internal/raster"
)

// maskQABitmask decodes an integer quality-assurance band against four
// independent bit flags (dilated cloud, cirrus, cloud, cloud shadow); any
// set flag marks the pixel cloudy. Bit positions default to the Landsat
// QA_PIXEL layout and are configurable for other products.
func maskQABitmask(r *raster.Raster, bi *raster.BandIndex, p Params) (*Result, error) {
	qa, err := bi.Resolve(p.QABand)
	if err != nil {
		return nil, fmt.Errorf("qa bitmask cloud mask: %w", err)
	}
	if err := bi.Validate(r.Bands); err != nil {
		return nil, fmt.Errorf("qa bitmask cloud mask: %w", err)
	}

	flags := uint64(1)<<uint(p.DilatedCloudBit) |
		uint64(1)<<uint(p.CirrusBit) |
		uint64(1)<<uint(p.CloudBit) |
		uint64(1)<<uint(p.CloudShadowBit)

	cloud := gridstats.NewMaskGrid(r.Rows, r.Cols)
	for i := 0; i < r.Rows; i++ {
		for j := 0; j < r.Cols; j++ {
			v := r.At(i, j, qa)
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				continue
			}
			cloud.Set(i, j, uint64(v)&flags != 0)
		}
	}
	return summarize(AlgorithmQABitmask, cloud, nil), nil
}
