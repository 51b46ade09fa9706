package mineralogy

import (
	"fmt"
	"math"

	"github.com/skarn-data/alteration.report/internal/gridstats"
	"github.com/skarn-data/alteration.report/internal/linalg"
	"github.com/skarn-data/alteration.report/internal/raster"
)

// DefaultSAMThreshold is the match angle in radians.
const DefaultSAMThreshold = 0.1

// SAMParams configures spectral angle matching.
type SAMParams struct {
	// Mineral names a library spectrum; ignored when Reference is set.
	Mineral string `json:"mineral"`
	// Reference is an explicit reference spectrum (length == band count).
	Reference []float64 `json:"reference,omitempty"`
	// Threshold is the match angle in radians (default 0.1).
	Threshold float64 `json:"threshold"`
	// TopN ranks the closest-matching locations (default 10).
	TopN int `json:"top_n"`
}

// SAMResult is the spectral-angle envelope. Angles holds per-pixel angles
// in radians (pi/2 for invalid pixels); Matches flags angles below the
// threshold.
type SAMResult struct {
	Mineral      string               `json:"mineral,omitempty"`
	Threshold    float64              `json:"threshold"`
	Angles       *gridstats.ScoreGrid `json:"-"`
	Matches      *gridstats.MaskGrid  `json:"-"`
	MatchCount   int                  `json:"match_count"`
	MatchPercent float64              `json:"match_percent"`
	Stats        gridstats.Stats      `json:"stats"`
	Rankings     []gridstats.Location `json:"rankings"`
}

// SAM computes the spectral angle between every pixel and the reference
// spectrum. Invalid pixels receive the maximum angle pi/2. Rankings list
// the best (smallest-angle) matches first.
func SAM(r *raster.Raster, lib *SpectralLibrary, p SAMParams) (*SAMResult, error) {
	ref := p.Reference
	if ref == nil {
		if p.Mineral == "" {
			return nil, fmt.Errorf("sam: neither mineral name nor reference spectrum given")
		}
		if lib == nil {
			lib = DefaultLibrary()
		}
		s, err := lib.Spectrum(p.Mineral)
		if err != nil {
			return nil, err
		}
		ref = s
	}
	if len(ref) != r.Bands {
		return nil, fmt.Errorf("sam: reference spectrum has %d bands but raster has %d", len(ref), r.Bands)
	}

	threshold := p.Threshold
	if threshold <= 0 {
		threshold = DefaultSAMThreshold
	}

	angles := gridstats.NewScoreGrid(r.Rows, r.Cols)
	matches := gridstats.NewMaskGrid(r.Rows, r.Cols)
	count := 0
	for i := 0; i < r.Rows; i++ {
		for j := 0; j < r.Cols; j++ {
			px := r.Pixel(i, j)
			angle := math.Pi / 2
			if raster.VectorValid(px) {
				angle = linalg.Angle(px, ref)
			}
			angles.Set(i, j, angle)
			if angle < threshold {
				matches.Set(i, j, true)
				count++
			}
		}
	}

	topN := p.TopN
	if topN <= 0 {
		topN = 10
	}
	// Rank by closeness: invert angles so TopLocations' descending order
	// surfaces the best matches, but report the true angle as the score.
	inverted := gridstats.NewScoreGrid(r.Rows, r.Cols)
	for i, a := range angles.Values {
		inverted.Values[i] = math.Pi/2 - a
	}
	rankings := gridstats.TopLocations(inverted, topN)
	for i := range rankings {
		rankings[i].Score = angles.At(rankings[i].Row, rankings[i].Col)
	}

	res := &SAMResult{
		Mineral:    p.Mineral,
		Threshold:  threshold,
		Angles:     angles,
		Matches:    matches,
		MatchCount: count,
		Stats:      gridstats.Describe(angles),
		Rankings:   rankings,
	}
	if total := r.NumPixels(); total > 0 {
		res.MatchPercent = 100 * float64(count) / float64(total)
	}
	return res, nil
}
