// Package anomaly implements the spectral anomaly detectors: the global
// and local (sliding-window) RX detectors and a density-based local
// outlier factor scorer, plus the adapter contract for delegating to an
// external trainable classifier. Every detector runs through the same
// per-call phases — prepare the pixel population, compute raw scores,
// threshold, summarize — and produces the same result envelope.
package anomaly

import (
	"fmt"
	"math"

	"github.com/skarn-data/alteration.report/internal/gridstats"
	"github.com/skarn-data/alteration.report/internal/raster"
)

// Algorithm names accepted by Detect.
const (
	AlgorithmRXGlobal = "rx_global"
	AlgorithmRXLocal  = "rx_local"
	AlgorithmLOF      = "lof"
)

// Defaults applied by Params.withDefaults.
const (
	DefaultThreshold  = 0.99
	DefaultWindowSize = 7
	DefaultNeighbors  = 20
	DefaultTopN       = 10

	// DefaultMaxLOFPixels caps the brute-force O(N^2) neighbour search.
	// Larger populations should go through a trainable classifier backend.
	DefaultMaxLOFPixels = 10000
)

// Params configures one detection call. Zero values take defaults.
type Params struct {
	// Algorithm selects the detector: rx_global, rx_local, or lof.
	Algorithm string `json:"algorithm"`
	// Threshold is the percentile (0,1] of the score distribution above
	// which a pixel is classified anomalous.
	Threshold float64 `json:"threshold"`
	// WindowSize is the odd side length of the local RX window.
	WindowSize int `json:"window_size"`
	// Neighbors is k for the LOF scorer.
	Neighbors int `json:"neighbors"`
	// TopN is the length of the ranked location list.
	TopN int `json:"top_n"`
	// MaxLOFPixels bounds the pixel population the brute-force LOF path
	// will accept.
	MaxLOFPixels int `json:"max_lof_pixels"`
}

func (p Params) withDefaults() Params {
	if p.Algorithm == "" {
		p.Algorithm = AlgorithmRXGlobal
	}
	if p.Threshold <= 0 || p.Threshold > 1 {
		p.Threshold = DefaultThreshold
	}
	if p.WindowSize <= 1 {
		p.WindowSize = DefaultWindowSize
	}
	if p.WindowSize%2 == 0 {
		p.WindowSize++
	}
	if p.Neighbors <= 0 {
		p.Neighbors = DefaultNeighbors
	}
	if p.TopN <= 0 {
		p.TopN = DefaultTopN
	}
	if p.MaxLOFPixels <= 0 {
		p.MaxLOFPixels = DefaultMaxLOFPixels
	}
	return p
}

// Result is the anomaly detection envelope: normalized scores, the
// boolean anomaly mask, descriptive statistics, and the ranked top
// locations.
type Result struct {
	Algorithm      string               `json:"algorithm"`
	Scores         *gridstats.ScoreGrid `json:"-"`
	Anomalous      *gridstats.MaskGrid  `json:"-"`
	ThresholdValue float64              `json:"threshold_value"`
	Stats          gridstats.Stats      `json:"stats"`
	AnomalyCount   int                  `json:"anomaly_count"`
	AnomalyPercent float64              `json:"anomaly_percent"`
	Rankings       []gridstats.Location `json:"rankings"`

	// DegenerateWindows counts local-RX windows whose covariance stayed
	// near singular after regularization (skipped-pivot path). A high
	// count means scores in homogeneous neighbourhoods carry little
	// information.
	DegenerateWindows int `json:"degenerate_windows,omitempty"`
}

// Detect runs the selected detector over the raster. Unknown algorithm
// names and empty pixel populations are data errors; numerical
// degradation inside a detector lowers score quality but never fails the
// call.
func Detect(r *raster.Raster, p Params) (*Result, error) {
	p = p.withDefaults()
	switch p.Algorithm {
	case AlgorithmRXGlobal:
		return detectRXGlobal(r, p)
	case AlgorithmRXLocal:
		return detectRXLocal(r, p)
	case AlgorithmLOF:
		return detectLOF(r, p)
	}
	return nil, fmt.Errorf("unknown anomaly algorithm %q (valid: %s, %s, %s)",
		p.Algorithm, AlgorithmRXGlobal, AlgorithmRXLocal, AlgorithmLOF)
}

// finishResult is the shared Threshold + Summarize phase: normalize the
// raw scores by their maximum, classify by the percentile threshold, and
// build the summary.
func finishResult(scores *gridstats.ScoreGrid, p Params, algorithm string) (*Result, error) {
	gridstats.NormalizeByMax(scores)

	thr, err := gridstats.PercentileValue(scores, p.Threshold)
	if err != nil {
		return nil, err
	}

	mask := gridstats.NewMaskGrid(scores.Rows, scores.Cols)
	count := 0
	for i, v := range scores.Values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) && v > thr {
			mask.Values[i] = true
			count++
		}
	}

	stats := gridstats.Describe(scores)
	res := &Result{
		Algorithm:      algorithm,
		Scores:         scores,
		Anomalous:      mask,
		ThresholdValue: thr,
		Stats:          stats,
		AnomalyCount:   count,
		Rankings:       gridstats.TopLocations(scores, p.TopN),
	}
	if stats.Total > 0 {
		res.AnomalyPercent = 100 * float64(count) / float64(stats.Total)
	}
	return res, nil
}
