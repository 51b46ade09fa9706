package mineralogy

import (
	"fmt"
	"math"
	"strings"

	"github.com/skarn-data/alteration.report/internal/gridstats"
	"github.com/skarn-data/alteration.report/internal/linalg"
	"github.com/skarn-data/alteration.report/internal/raster"
)

// Alteration targets the Crosta component identification knows about.
const (
	TargetHydroxyl = "hydroxyl"
	TargetIron     = "iron"
	TargetSilica   = "silica"
)

// wavelengthTolerance is the nearest-neighbour matching tolerance in
// micrometres when locating a diagnostic wavelength among the band
// centers. No band within tolerance disqualifies a component for that
// target.
const wavelengthTolerance = 0.1

// Diagnostic wavelengths (micrometres) per target, resolved against the
// band index's wavelength table at call time.
var diagnosticWavelengths = map[string][]float64{
	TargetHydroxyl: {1.61, 2.20}, // SWIR1 vs SWIR2 absorption contrast
	TargetIron:     {0.66},       // red-band charge-transfer absorption
	TargetSilica:   {1.61, 2.20}, // broad SWIR response beyond 1.5 um
}

// CrostaParams configures directed PCA.
type CrostaParams struct {
	// Target is the alteration signature to identify: hydroxyl, iron, or
	// silica.
	Target string `json:"target"`
	// Components is the number of principal components to extract
	// (default 4, clamped to the selected band count).
	Components int `json:"components"`
	// Bands optionally restricts the analysis to named bands; empty uses
	// every band with a known wavelength.
	Bands []string `json:"bands"`
	// TopN is the ranked-location list length (default 10).
	TopN int `json:"top_n"`
}

// PCAComponent is one extracted loading vector with its eigenvalue.
type PCAComponent struct {
	Loadings   []float64 `json:"loadings"`
	Eigenvalue float64   `json:"eigenvalue"`
}

// CrostaResult is the directed-PCA envelope: the extracted components,
// which component (if any) expresses the target signature, and the score
// grid of pixel projections onto it.
type CrostaResult struct {
	Target     string               `json:"target"`
	Components []PCAComponent       `json:"components"`
	// ComponentIndex is the identified alteration component, -1 when no
	// component matches the target's diagnostic criteria.
	ComponentIndex int                  `json:"component_index"`
	Scores         *gridstats.ScoreGrid `json:"-"`
	Stats          gridstats.Stats      `json:"stats"`
	Rankings       []gridstats.Location `json:"rankings"`
}

// Crosta runs directed PCA over the band-selected pixel population and
// identifies which component correlates with the named alteration
// target by inspecting loadings at the diagnostic wavelengths.
func Crosta(r *raster.Raster, bi *raster.BandIndex, p CrostaParams) (*CrostaResult, error) {
	target := strings.ToLower(p.Target)
	if _, ok := diagnosticWavelengths[target]; !ok {
		return nil, fmt.Errorf("unknown alteration target %q (valid: %s, %s, %s)",
			p.Target, TargetHydroxyl, TargetIron, TargetSilica)
	}

	offsets, wavelengths, err := selectedBands(r, bi, p.Bands)
	if err != nil {
		return nil, err
	}

	sub, err := r.SelectBands(offsets)
	if err != nil {
		return nil, err
	}
	vectors, positions := sub.ValidPixels()
	if len(vectors) == 0 {
		return nil, fmt.Errorf("crosta: raster has no valid pixels")
	}

	mean, err := linalg.Mean(vectors)
	if err != nil {
		return nil, err
	}
	cov, err := linalg.Covariance(vectors, mean)
	if err != nil {
		return nil, err
	}

	k := p.Components
	if k <= 0 {
		k = 4
	}
	if k > len(offsets) {
		k = len(offsets)
	}
	pairs, err := linalg.TopEigenpairs(cov, k)
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("crosta: no principal components could be extracted")
	}

	components := make([]PCAComponent, len(pairs))
	for i, pr := range pairs {
		components[i] = PCAComponent{Loadings: pr.Vector, Eigenvalue: pr.Value}
	}

	idx := identifyComponent(components, wavelengths, target)

	res := &CrostaResult{
		Target:         target,
		Components:     components,
		ComponentIndex: idx,
	}
	if idx < 0 {
		return res, nil
	}

	// Project centered pixels onto the identified component; take the
	// magnitude so the sign ambiguity of the eigenvector does not flip
	// the score orientation.
	loadings := components[idx].Loadings
	scores := gridstats.NewScoreGrid(r.Rows, r.Cols)
	for i := range scores.Values {
		scores.Values[i] = math.NaN()
	}
	centered := make([]float64, len(mean))
	for i, pos := range positions {
		for b := range centered {
			centered[b] = vectors[i][b] - mean[b]
		}
		scores.Values[pos] = math.Abs(linalg.Dot(centered, loadings))
	}
	gridstats.NormalizeByMax(scores)

	topN := p.TopN
	if topN <= 0 {
		topN = 10
	}
	res.Scores = scores
	res.Stats = gridstats.Describe(scores)
	res.Rankings = gridstats.TopLocations(scores, topN)
	return res, nil
}

// selectedBands resolves the requested band names (or all bands with
// known wavelengths) into offsets plus a parallel wavelength slice.
func selectedBands(r *raster.Raster, bi *raster.BandIndex, names []string) ([]int, []float64, error) {
	if err := bi.Validate(r.Bands); err != nil {
		return nil, nil, err
	}
	if len(names) == 0 {
		byOffset := bi.Wavelengths()
		if len(byOffset) == 0 {
			return nil, nil, fmt.Errorf("crosta: band index %q carries no wavelength table; name the analysis bands explicitly", bi.Convention)
		}
		offsets := make([]int, 0, len(byOffset))
		for off := range byOffset {
			offsets = append(offsets, off)
		}
		// Deterministic band order.
		for i := 1; i < len(offsets); i++ {
			for j := i; j > 0 && offsets[j-1] > offsets[j]; j-- {
				offsets[j-1], offsets[j] = offsets[j], offsets[j-1]
			}
		}
		wavelengths := make([]float64, len(offsets))
		for i, off := range offsets {
			wavelengths[i] = byOffset[off]
		}
		return offsets, wavelengths, nil
	}

	offsets := make([]int, len(names))
	wavelengths := make([]float64, len(names))
	for i, name := range names {
		off, err := bi.Resolve(name)
		if err != nil {
			return nil, nil, err
		}
		wl, ok := bi.Wavelength(name)
		if !ok {
			return nil, nil, fmt.Errorf("crosta: band %q has no wavelength in the %s index", name, bi.Convention)
		}
		offsets[i] = off
		wavelengths[i] = wl
	}
	return offsets, wavelengths, nil
}

// identifyComponent returns the first component whose loadings express
// the target's diagnostic criteria, or -1.
func identifyComponent(components []PCAComponent, wavelengths []float64, target string) int {
	for i, c := range components {
		if componentMatches(c.Loadings, wavelengths, target) {
			return i
		}
	}
	return -1
}

func componentMatches(loadings, wavelengths []float64, target string) bool {
	switch target {
	case TargetHydroxyl:
		// SWIR1 vs SWIR2 loading contrast above 0.3.
		l1, ok1 := loadingAt(loadings, wavelengths, diagnosticWavelengths[TargetHydroxyl][0])
		l2, ok2 := loadingAt(loadings, wavelengths, diagnosticWavelengths[TargetHydroxyl][1])
		return ok1 && ok2 && math.Abs(l1-l2) > 0.3
	case TargetIron:
		// Strong negative red loading.
		l, ok := loadingAt(loadings, wavelengths, diagnosticWavelengths[TargetIron][0])
		return ok && l < -0.3
	case TargetSilica:
		// Mean loading above 0.3 across the SWIR wavelengths past 1.5 um.
		sum, n := 0.0, 0
		for i, wl := range wavelengths {
			if wl > 1.5 {
				sum += loadings[i]
				n++
			}
		}
		return n > 0 && sum/float64(n) > 0.3
	}
	return false
}

// loadingAt finds the loading of the band nearest the diagnostic
// wavelength, within tolerance.
func loadingAt(loadings, wavelengths []float64, want float64) (float64, bool) {
	best := -1
	bestDiff := math.Inf(1)
	for i, wl := range wavelengths {
		if d := math.Abs(wl - want); d < bestDiff {
			bestDiff = d
			best = i
		}
	}
	if best < 0 || bestDiff > wavelengthTolerance {
		return 0, false
	}
	return loadings[best], true
}
