package anomaly

import (
	"math/rand"
	"testing"

	"github.com/skarn-data/alteration.report/internal/raster"
)

func TestLOFScoresOutlierAboveOne(t *testing.T) {
	// Tight cluster plus one distant point.
	vectors := [][]float64{
		{0, 0}, {0.1, 0}, {0, 0.1}, {0.1, 0.1}, {0.05, 0.05},
		{10, 10},
	}
	scores := lofScores(vectors, 3)
	if len(scores) != 6 {
		t.Fatalf("got %d scores, want 6", len(scores))
	}
	outlier := scores[5]
	if outlier <= 1 {
		t.Errorf("outlier LOF = %v, want > 1", outlier)
	}
	for i := 0; i < 5; i++ {
		if scores[i] >= outlier {
			t.Errorf("cluster point %d LOF %v >= outlier LOF %v", i, scores[i], outlier)
		}
	}
}

func TestLOFScoresCoincidentPoints(t *testing.T) {
	// Duplicate points give infinite densities on both sides of the
	// ratio; they must come out as neutral inliers, not NaN.
	vectors := [][]float64{{1, 1}, {1, 1}, {1, 1}, {5, 5}}
	scores := lofScores(vectors, 2)
	for i := 0; i < 3; i++ {
		if scores[i] != scores[0] {
			t.Errorf("duplicate points score differently: %v", scores[:3])
		}
	}
}

func TestLOFSinglePoint(t *testing.T) {
	scores := lofScores([][]float64{{1, 2}}, 5)
	if len(scores) != 1 || scores[0] != 1 {
		t.Errorf("lone point scores = %v, want [1]", scores)
	}
}

func TestDetectLOFRanksOutlier(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	r, _ := raster.New(6, 6, 3)
	for i := 0; i < 6; i++ {
		for j := 0; j < 6; j++ {
			for b := 0; b < 3; b++ {
				r.Set(i, j, b, 0.3+0.02*rng.NormFloat64())
			}
		}
	}
	for b := 0; b < 3; b++ {
		r.Set(5, 0, b, 3.0)
	}

	res, err := Detect(r, Params{Algorithm: AlgorithmLOF, Neighbors: 5})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if res.Rankings[0].Row != 5 || res.Rankings[0].Col != 0 {
		t.Errorf("top ranked = (%d,%d), want (5,0)", res.Rankings[0].Row, res.Rankings[0].Col)
	}
}

func TestDetectLOFPopulationCap(t *testing.T) {
	r, _ := raster.New(3, 3, 2)
	_, err := Detect(r, Params{Algorithm: AlgorithmLOF, MaxLOFPixels: 4})
	if err == nil {
		t.Error("expected error when population exceeds MaxLOFPixels")
	}
}
