package anomaly

import (
	"fmt"
	"math"
	"sort"

	"github.com/skarn-data/alteration.report/internal/gridstats"
	"github.com/skarn-data/alteration.report/internal/linalg"
	"github.com/skarn-data/alteration.report/internal/raster"
)

// detectLOF scores pixels by local outlier factor: the ratio of the mean
// local reachability density of a pixel's k nearest neighbours to its
// own. Scores above 1 mark locally sparse (anomalous) pixels. The
// neighbour search is brute force O(N^2) and is capped at
// Params.MaxLOFPixels; larger populations belong on a trainable
// classifier backend (see DetectWithClassifier).
func detectLOF(r *raster.Raster, p Params) (*Result, error) {
	vectors, positions := r.ValidPixels()
	if len(vectors) == 0 {
		return nil, fmt.Errorf("lof: raster has no valid pixels")
	}
	if len(vectors) > p.MaxLOFPixels {
		return nil, fmt.Errorf("lof: %d valid pixels exceeds the %d-pixel limit for the brute-force scorer; use a classifier backend for larger rasters",
			len(vectors), p.MaxLOFPixels)
	}

	lof := lofScores(vectors, p.Neighbors)

	scores := gridstats.NewScoreGrid(r.Rows, r.Cols)
	for i := range scores.Values {
		scores.Values[i] = math.NaN()
	}
	for i, pos := range positions {
		scores.Values[pos] = lof[i]
	}

	return finishResult(scores, p, AlgorithmLOF)
}

// neighborSet holds one point's k nearest neighbours and its k-distance.
type neighborSet struct {
	idx       []int
	dist      []float64
	kDistance float64
}

// lofScores computes the classic LOF value for every vector. k is clamped
// to the population size minus one.
func lofScores(vectors [][]float64, k int) []float64 {
	n := len(vectors)
	if k >= n {
		k = n - 1
	}
	if k < 1 {
		// A lone point has no neighbourhood; score it neutral.
		return []float64{1}
	}

	// k nearest neighbours per point, brute force.
	neighbors := make([]neighborSet, n)
	type distIdx struct {
		d   float64
		idx int
	}
	all := make([]distIdx, 0, n-1)
	for i := 0; i < n; i++ {
		all = all[:0]
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			all = append(all, distIdx{d: linalg.Distance(vectors[i], vectors[j]), idx: j})
		}
		sort.Slice(all, func(a, b int) bool {
			if all[a].d != all[b].d {
				return all[a].d < all[b].d
			}
			return all[a].idx < all[b].idx
		})
		ns := neighborSet{idx: make([]int, k), dist: make([]float64, k)}
		for m := 0; m < k; m++ {
			ns.idx[m] = all[m].idx
			ns.dist[m] = all[m].d
		}
		ns.kDistance = ns.dist[k-1]
		neighbors[i] = ns
	}

	// Local reachability density: inverse mean reachability distance,
	// where reach(p, o) = max(d(p,o), k-distance(o)). Guarded division:
	// coincident points would give an infinite density.
	lrd := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := 0.0
		for m, o := range neighbors[i].idx {
			reach := neighbors[i].dist[m]
			if kd := neighbors[o].kDistance; kd > reach {
				reach = kd
			}
			sum += reach
		}
		mean := sum / float64(k)
		if mean <= 0 {
			lrd[i] = math.Inf(1)
		} else {
			lrd[i] = 1 / mean
		}
	}

	// LOF: mean neighbour density over own density.
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := 0.0
		for _, o := range neighbors[i].idx {
			sum += lrd[o]
		}
		meanNeighbor := sum / float64(k)
		switch {
		case math.IsInf(lrd[i], 1) && math.IsInf(meanNeighbor, 1):
			out[i] = 1 // dense duplicate cluster: plain inlier
		case math.IsInf(lrd[i], 1):
			out[i] = 0
		case math.IsInf(meanNeighbor, 1):
			out[i] = math.MaxFloat64
		default:
			out[i] = meanNeighbor / lrd[i]
		}
	}
	return out
}
