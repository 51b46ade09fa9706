package anomaly

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/skarn-data/alteration.report/internal/gridstats"
	"github.com/skarn-data/alteration.report/internal/linalg"
	"github.com/skarn-data/alteration.report/internal/raster"
)

// parallelRowThreshold is the pixel count above which the per-pixel loops
// are split across workers. Below it the goroutine overhead dominates.
const parallelRowThreshold = 4096

// detectRXGlobal scores every pixel by its Mahalanobis distance from the
// global mean and regularized covariance of the valid pixel population.
func detectRXGlobal(r *raster.Raster, p Params) (*Result, error) {
	// Prepare.
	vectors, _ := r.ValidPixels()
	if len(vectors) == 0 {
		return nil, fmt.Errorf("rx_global: raster has no valid pixels")
	}
	mean, covInv, err := linalg.MeanCovariance(vectors)
	if err != nil {
		return nil, fmt.Errorf("rx_global: %w", err)
	}

	// Compute.
	scores := gridstats.NewScoreGrid(r.Rows, r.Cols)
	forEachRow(r.Rows, r.NumPixels(), func(i int) {
		for j := 0; j < r.Cols; j++ {
			px := r.Pixel(i, j)
			if !raster.VectorValid(px) {
				scores.Set(i, j, math.NaN())
				continue
			}
			scores.Set(i, j, linalg.Mahalanobis(px, mean, covInv))
		}
	})

	return finishResult(scores, p, AlgorithmRXGlobal)
}

// detectRXLocal recomputes mean and covariance inside a sliding window
// around each pixel (center excluded, clipped at the edges) and scores
// only the center. Each pixel is independent, so rows are distributed
// across workers.
func detectRXLocal(r *raster.Raster, p Params) (*Result, error) {
	if r.NumPixels() == 0 {
		return nil, fmt.Errorf("rx_local: raster has no pixels")
	}

	half := p.WindowSize / 2
	scores := gridstats.NewScoreGrid(r.Rows, r.Cols)
	var degenerate int64
	var degMu sync.Mutex

	forEachRow(r.Rows, r.NumPixels()*p.WindowSize*p.WindowSize, func(i int) {
		neighborhood := make([][]float64, 0, p.WindowSize*p.WindowSize-1)
		localDegenerate := int64(0)

		for j := 0; j < r.Cols; j++ {
			center := r.Pixel(i, j)
			if !raster.VectorValid(center) {
				scores.Set(i, j, math.NaN())
				continue
			}

			neighborhood = neighborhood[:0]
			for wi := i - half; wi <= i+half; wi++ {
				if wi < 0 || wi >= r.Rows {
					continue
				}
				for wj := j - half; wj <= j+half; wj++ {
					if wj < 0 || wj >= r.Cols || (wi == i && wj == j) {
						continue
					}
					px := r.Pixel(wi, wj)
					if raster.VectorValid(px) {
						neighborhood = append(neighborhood, px)
					}
				}
			}
			if len(neighborhood) < 2 {
				scores.Set(i, j, 0)
				localDegenerate++
				continue
			}

			mean, err := linalg.Mean(neighborhood)
			if err != nil {
				scores.Set(i, j, 0)
				localDegenerate++
				continue
			}
			cov, err := linalg.Covariance(neighborhood, mean)
			if err != nil {
				scores.Set(i, j, 0)
				localDegenerate++
				continue
			}
			if covarianceDegenerate(cov) {
				localDegenerate++
			}
			linalg.RegularizeCovariance(cov)
			covInv, err := cov.Inverse()
			if err != nil {
				scores.Set(i, j, 0)
				continue
			}
			scores.Set(i, j, linalg.Mahalanobis(center, mean, covInv))
		}

		if localDegenerate > 0 {
			degMu.Lock()
			degenerate += localDegenerate
			degMu.Unlock()
		}
	})

	res, err := finishResult(scores, p, AlgorithmRXLocal)
	if err != nil {
		return nil, err
	}
	res.DegenerateWindows = int(degenerate)
	return res, nil
}

// covarianceDegenerate reports a window covariance with (near) zero
// variance in some band before regularization: the score for that window
// comes almost entirely from the regularization floor.
func covarianceDegenerate(cov *linalg.Matrix) bool {
	for i := 0; i < cov.Rows; i++ {
		if cov.At(i, i) < 1e-12 {
			return true
		}
	}
	return false
}

// forEachRow runs fn(i) for every row index, in parallel when the work
// estimate is large enough. Row order is not guaranteed; callers only
// write disjoint rows and accumulate order-independent aggregates.
func forEachRow(rows int, workEstimate int, fn func(i int)) {
	workers := runtime.NumCPU()
	if workEstimate < parallelRowThreshold || workers < 2 || rows < 2 {
		for i := 0; i < rows; i++ {
			fn(i)
		}
		return
	}
	if workers > rows {
		workers = rows
	}

	var wg sync.WaitGroup
	next := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				fn(i)
			}
		}()
	}
	for i := 0; i < rows; i++ {
		next <- i
	}
	close(next)
	wg.Wait()
}
