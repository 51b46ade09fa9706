package mineralogy

import (
	"fmt"
	"math"

	"github.com/skarn-data/alteration.report/internal/gridstats"
	"github.com/skarn-data/alteration.report/internal/linalg"
	"github.com/skarn-data/alteration.report/internal/raster"
)

// UnmixParams configures linear spectral unmixing.
type UnmixParams struct {
	// Minerals resolves endmembers from the library; ignored when
	// Endmembers is set explicitly.
	Minerals []string `json:"minerals,omitempty"`
	// Endmembers supplies the basis directly.
	Endmembers []Endmember `json:"endmembers,omitempty"`
	// NonNegative clips negative abundances to zero.
	NonNegative bool `json:"non_negative"`
	// SumToOne rescales abundances to sum to one. When combined with
	// NonNegative, clipping happens first.
	SumToOne bool `json:"sum_to_one"`
}

// UnmixResult is the unmixing envelope: one abundance grid per
// endmember, the per-pixel reconstruction residual, and the aggregate
// error statistics.
type UnmixResult struct {
	Endmembers []string                        `json:"endmembers"`
	Abundances map[string]*gridstats.ScoreGrid `json:"-"`
	Residual   *gridstats.ScoreGrid            `json:"-"`
	// MeanAbundance is the per-endmember mean over valid pixels.
	MeanAbundance map[string]float64 `json:"mean_abundance"`
	// RMSE is the root-mean-square reconstruction error over valid
	// pixels.
	RMSE        float64 `json:"rmse"`
	ValidPixels int     `json:"valid_pixels"`
	TotalPixels int     `json:"total_pixels"`
}

// Unmix solves per-pixel abundance fractions a = E⁺x via the
// pseudo-inverse of the endmember matrix. Endmember count must not
// exceed the band count, and every spectrum must match the raster's
// bands.
func Unmix(r *raster.Raster, lib *SpectralLibrary, p UnmixParams) (*UnmixResult, error) {
	ems := p.Endmembers
	if len(ems) == 0 {
		if len(p.Minerals) == 0 {
			return nil, fmt.Errorf("unmix: no endmembers or mineral names given")
		}
		if lib == nil {
			lib = DefaultLibrary()
		}
		resolved, err := lib.Endmembers(p.Minerals, r.Bands)
		if err != nil {
			return nil, err
		}
		ems = resolved
	}
	if len(ems) > r.Bands {
		return nil, fmt.Errorf("unmix: %d endmembers over %d bands is ill-posed", len(ems), r.Bands)
	}
	for _, em := range ems {
		if len(em.Spectrum) != r.Bands {
			return nil, fmt.Errorf("unmix: endmember %q has %d bands but raster has %d", em.Name, len(em.Spectrum), r.Bands)
		}
	}

	// E is bands x endmembers; columns are the endmember spectra.
	e := linalg.NewMatrix(r.Bands, len(ems))
	for j, em := range ems {
		for b, v := range em.Spectrum {
			e.Set(b, j, v)
		}
	}
	pinv, err := e.PseudoInverse()
	if err != nil {
		return nil, fmt.Errorf("unmix: %w", err)
	}

	names := make([]string, len(ems))
	abundances := make(map[string]*gridstats.ScoreGrid, len(ems))
	for j, em := range ems {
		names[j] = em.Name
		g := gridstats.NewScoreGrid(r.Rows, r.Cols)
		for i := range g.Values {
			g.Values[i] = math.NaN()
		}
		abundances[em.Name] = g
	}
	residual := gridstats.NewScoreGrid(r.Rows, r.Cols)
	for i := range residual.Values {
		residual.Values[i] = math.NaN()
	}

	sums := make([]float64, len(ems))
	sqErr := 0.0
	valid := 0

	for i := 0; i < r.Rows; i++ {
		for j := 0; j < r.Cols; j++ {
			px := r.Pixel(i, j)
			if !raster.VectorValid(px) {
				continue
			}
			a, err := pinv.MulVec(px)
			if err != nil {
				return nil, err
			}
			constrainAbundances(a, p)

			// Reconstruction residual ||x - E a||.
			recon, err := e.MulVec(a)
			if err != nil {
				return nil, err
			}
			res := linalg.Distance(px, recon)
			residual.Set(i, j, res)
			sqErr += res * res
			valid++

			for k, name := range names {
				abundances[name].Set(i, j, a[k])
				sums[k] += a[k]
			}
		}
	}
	if valid == 0 {
		return nil, fmt.Errorf("unmix: raster has no valid pixels")
	}

	mean := make(map[string]float64, len(names))
	for k, name := range names {
		mean[name] = sums[k] / float64(valid)
	}

	return &UnmixResult{
		Endmembers:    names,
		Abundances:    abundances,
		Residual:      residual,
		MeanAbundance: mean,
		RMSE:          math.Sqrt(sqErr / float64(valid)),
		ValidPixels:   valid,
		TotalPixels:   r.NumPixels(),
	}, nil
}

// constrainAbundances applies the optional constraints in place:
// non-negativity first, then sum-to-one.
func constrainAbundances(a []float64, p UnmixParams) {
	if p.NonNegative {
		for i, v := range a {
			if v < 0 {
				a[i] = 0
			}
		}
	}
	if p.SumToOne {
		sum := 0.0
		for _, v := range a {
			sum += v
		}
		if sum != 0 {
			for i := range a {
				a[i] /= sum
			}
		}
	}
}
