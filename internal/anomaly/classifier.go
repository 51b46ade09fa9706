package anomaly

import (
	"fmt"
	"math"
	"sort"

	"github.com/skarn-data/alteration.report/internal/gridstats"
	"github.com/skarn-data/alteration.report/internal/raster"
)

// Classifier is the adapter contract for external trainable anomaly
// backends (isolation-forest or density detectors supplied by an ML
// library). Label -1 denotes anomaly, +1 normal. The engine owns score
// normalization and ranking regardless of which backend produced the raw
// values.
type Classifier interface {
	// Train fits the model to a pixel-vector population.
	Train(vectors [][]float64) error
	// Predict returns a -1/+1 label per vector.
	Predict(vectors [][]float64) ([]int, error)
	// Score returns a raw anomaly score per vector. Orientation is
	// backend-defined; normalization fixes it.
	Score(vectors [][]float64) ([]float64, error)
}

// DetectWithClassifier trains the backend on the raster's valid pixels,
// scores them, and maps the label/score pairs onto the engine's [0,1]
// anomaly scale (higher = more anomalous). Thresholding and ranking work
// exactly as for the built-in detectors.
func DetectWithClassifier(r *raster.Raster, clf Classifier, p Params) (*Result, error) {
	p = p.withDefaults()

	vectors, positions := r.ValidPixels()
	if len(vectors) == 0 {
		return nil, fmt.Errorf("classifier: raster has no valid pixels")
	}

	if err := clf.Train(vectors); err != nil {
		return nil, fmt.Errorf("classifier train: %w", err)
	}
	labels, err := clf.Predict(vectors)
	if err != nil {
		return nil, fmt.Errorf("classifier predict: %w", err)
	}
	if len(labels) != len(vectors) {
		return nil, fmt.Errorf("classifier predict returned %d labels for %d vectors", len(labels), len(vectors))
	}
	raw, err := clf.Score(vectors)
	if err != nil {
		return nil, fmt.Errorf("classifier score: %w", err)
	}
	if len(raw) != len(vectors) {
		return nil, fmt.Errorf("classifier score returned %d scores for %d vectors", len(raw), len(vectors))
	}

	norm := normalizeClassifierScores(raw, labels)

	scores := gridstats.NewScoreGrid(r.Rows, r.Cols)
	for i := range scores.Values {
		scores.Values[i] = math.NaN()
	}
	for i, pos := range positions {
		scores.Values[pos] = norm[i]
	}

	return finishResult(scores, p, "classifier")
}

// normalizeClassifierScores min-max scales raw scores to [0,1] and fixes
// orientation so anomalies (label -1) score high: if the mean scaled
// score of the anomaly-labelled vectors is below that of the normal ones,
// the scale is flipped.
func normalizeClassifierScores(raw []float64, labels []int) []float64 {
	min, max := raw[0], raw[0]
	for _, v := range raw {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	out := make([]float64, len(raw))
	if max > min {
		for i, v := range raw {
			out[i] = (v - min) / (max - min)
		}
	}

	var anomSum, normSum float64
	var anomN, normN int
	for i, l := range labels {
		if l == -1 {
			anomSum += out[i]
			anomN++
		} else {
			normSum += out[i]
			normN++
		}
	}
	if anomN > 0 && normN > 0 && anomSum/float64(anomN) < normSum/float64(normN) {
		for i := range out {
			out[i] = 1 - out[i]
		}
	}
	return out
}

// LOFClassifier is the from-scratch fallback backend: it satisfies the
// Classifier contract using the brute-force LOF scorer, so callers wired
// for an external library degrade gracefully when none is available.
type LOFClassifier struct {
	// Neighbors is k for the underlying LOF computation (default 20).
	Neighbors int
	// Contamination is the expected anomalous fraction used to place the
	// -1/+1 label cut (default 0.01).
	Contamination float64

	trained [][]float64
	scores  []float64
	cut     float64
}

// Train stores the population and precomputes LOF scores and the label
// cut at the (1 - contamination) score quantile.
func (c *LOFClassifier) Train(vectors [][]float64) error {
	if len(vectors) == 0 {
		return fmt.Errorf("lof classifier: empty training population")
	}
	k := c.Neighbors
	if k <= 0 {
		k = DefaultNeighbors
	}
	contamination := c.Contamination
	if contamination <= 0 || contamination >= 1 {
		contamination = 0.01
	}

	c.trained = vectors
	c.scores = lofScores(vectors, k)

	sorted := append([]float64(nil), c.scores...)
	sort.Float64s(sorted)
	idx := int((1 - contamination) * float64(len(sorted)-1))
	c.cut = sorted[idx]
	return nil
}

// Predict labels vectors from the trained population: -1 above the
// contamination cut, +1 otherwise. Only the trained population is
// supported (the fallback has no out-of-sample mode).
func (c *LOFClassifier) Predict(vectors [][]float64) ([]int, error) {
	scores, err := c.Score(vectors)
	if err != nil {
		return nil, err
	}
	labels := make([]int, len(scores))
	for i, s := range scores {
		if s > c.cut {
			labels[i] = -1
		} else {
			labels[i] = 1
		}
	}
	return labels, nil
}

// Score returns the precomputed LOF scores for the trained population.
func (c *LOFClassifier) Score(vectors [][]float64) ([]float64, error) {
	if c.trained == nil {
		return nil, fmt.Errorf("lof classifier: not trained")
	}
	if len(vectors) != len(c.trained) {
		return nil, fmt.Errorf("lof classifier scores only its training population (%d vectors, got %d)",
			len(c.trained), len(vectors))
	}
	return c.scores, nil
}
