package anomaly

import (
	"math"
	"math/rand"
	"testing"

	"github.com/skarn-data/alteration.report/internal/raster"
)

// clusterRaster builds a rows x cols x bands raster of tightly clustered
// pixels around base, with one extreme outlier at (outRow, outCol).
func clusterRaster(t *testing.T, rows, cols, bands, outRow, outCol int) *raster.Raster {
	t.Helper()
	rng := rand.New(rand.NewSource(42))
	r, err := raster.New(rows, cols, bands)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			for b := 0; b < bands; b++ {
				r.Set(i, j, b, 0.2+0.01*rng.NormFloat64())
			}
		}
	}
	for b := 0; b < bands; b++ {
		r.Set(outRow, outCol, b, 5.0)
	}
	return r
}

func TestGlobalRXFlagsSingleOutlier(t *testing.T) {
	// 4x4, 6-band raster, one extreme pixel: default threshold 0.99 must
	// flag exactly that pixel as the single top-ranked anomaly.
	r := clusterRaster(t, 4, 4, 6, 2, 1)

	res, err := Detect(r, Params{Algorithm: AlgorithmRXGlobal})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	if res.AnomalyCount != 1 {
		t.Errorf("AnomalyCount = %d, want 1", res.AnomalyCount)
	}
	if !res.Anomalous.At(2, 1) {
		t.Error("outlier pixel (2,1) not flagged")
	}
	if len(res.Rankings) == 0 {
		t.Fatal("no rankings")
	}
	top := res.Rankings[0]
	if top.Row != 2 || top.Col != 1 {
		t.Errorf("top ranked = (%d,%d), want (2,1)", top.Row, top.Col)
	}
	if top.Score != 1 {
		t.Errorf("top normalized score = %v, want 1 (max-normalized)", top.Score)
	}
}

func TestGlobalRXIsotropicGaussianOutlierRanksHighest(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	r, _ := raster.New(20, 20, 3)
	for i := 0; i < 20; i++ {
		for j := 0; j < 20; j++ {
			for b := 0; b < 3; b++ {
				r.Set(i, j, b, rng.NormFloat64())
			}
		}
	}
	// Push one pixel far outside the isotropic cloud.
	for b := 0; b < 3; b++ {
		r.Set(7, 13, b, 25)
	}

	res, err := Detect(r, Params{Algorithm: AlgorithmRXGlobal, TopN: 3})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if res.Rankings[0].Row != 7 || res.Rankings[0].Col != 13 {
		t.Errorf("top ranked = (%d,%d), want (7,13)", res.Rankings[0].Row, res.Rankings[0].Col)
	}
}

func TestGlobalRXInvalidPixelsExcluded(t *testing.T) {
	r := clusterRaster(t, 4, 4, 6, 0, 0)
	r.Set(3, 3, 0, math.NaN())

	res, err := Detect(r, Params{Algorithm: AlgorithmRXGlobal})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !math.IsNaN(res.Scores.At(3, 3)) {
		t.Errorf("score of invalid pixel = %v, want NaN", res.Scores.At(3, 3))
	}
	if res.Stats.Valid != 15 {
		t.Errorf("Stats.Valid = %d, want 15", res.Stats.Valid)
	}
}

func TestGlobalRXEmptyPopulation(t *testing.T) {
	r, _ := raster.New(2, 2, 2)
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			r.Set(i, j, 0, math.NaN())
		}
	}
	if _, err := Detect(r, Params{Algorithm: AlgorithmRXGlobal}); err == nil {
		t.Error("expected data error for empty valid-pixel population")
	}
}

func TestLocalRXFindsEmbeddedOutlier(t *testing.T) {
	r := clusterRaster(t, 9, 9, 4, 4, 4)

	res, err := Detect(r, Params{Algorithm: AlgorithmRXLocal, WindowSize: 5})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if res.Rankings[0].Row != 4 || res.Rankings[0].Col != 4 {
		t.Errorf("top ranked = (%d,%d), want (4,4)", res.Rankings[0].Row, res.Rankings[0].Col)
	}
	if res.Algorithm != AlgorithmRXLocal {
		t.Errorf("Algorithm = %q", res.Algorithm)
	}
}

func TestLocalRXCountsDegenerateWindows(t *testing.T) {
	// A perfectly uniform raster: every window covariance is singular
	// before regularization.
	r, _ := raster.New(5, 5, 3)
	for i := 0; i < 5; i++ {
		for j := 0; j < 5; j++ {
			for b := 0; b < 3; b++ {
				r.Set(i, j, b, 0.5)
			}
		}
	}

	res, err := Detect(r, Params{Algorithm: AlgorithmRXLocal, WindowSize: 3})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if res.DegenerateWindows != 25 {
		t.Errorf("DegenerateWindows = %d, want 25 (all windows uniform)", res.DegenerateWindows)
	}
}

func TestDetectUnknownAlgorithm(t *testing.T) {
	r, _ := raster.New(2, 2, 2)
	if _, err := Detect(r, Params{Algorithm: "isolation_octopus"}); err == nil {
		t.Error("expected error for unknown algorithm name")
	}
}

func TestParamsDefaults(t *testing.T) {
	p := Params{}.withDefaults()
	if p.Algorithm != AlgorithmRXGlobal || p.Threshold != 0.99 || p.Neighbors != 20 || p.WindowSize != 7 {
		t.Errorf("defaults wrong: %+v", p)
	}
	// Even window sizes are widened to the next odd size.
	if got := (Params{WindowSize: 4}).withDefaults().WindowSize; got != 5 {
		t.Errorf("even window size -> %d, want 5", got)
	}
}
