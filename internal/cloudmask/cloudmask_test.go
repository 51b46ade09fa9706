package cloudmask

import (
	"math"
	"testing"

	"github.com/skarn-data/alteration.report/internal/gridstats"
	"github.com/skarn-data/alteration.report/internal/raster"
)

// landsatPixel returns a 6-band vector in blue/green/red/nir/swir1/swir2
// order.
func landsatPixel(blue, green, red, nir, swir1, swir2 float64) []float64 {
	return []float64{blue, green, red, nir, swir1, swir2}
}

// sentinelPixel returns a 7-band vector adding the cirrus band.
func sentinelPixel(blue, green, red, nir, swir1, swir2, cirrus float64) []float64 {
	return []float64{blue, green, red, nir, swir1, swir2, cirrus}
}

func rasterFromPixels(t *testing.T, pixels [][][]float64) *raster.Raster {
	t.Helper()
	r, err := raster.FromNested(pixels)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestThresholdMaskRules(t *testing.T) {
	vegetation := landsatPixel(0.04, 0.08, 0.05, 0.45, 0.2, 0.15)
	brightBlue := landsatPixel(0.55, 0.5, 0.5, 0.5, 0.2, 0.18)
	darkNIR := landsatPixel(0.05, 0.05, 0.05, 0.02, 0.2, 0.18)
	highSWIR := landsatPixel(0.05, 0.08, 0.05, 0.45, 0.4, 0.1)

	r := rasterFromPixels(t, [][][]float64{{vegetation, brightBlue}, {darkNIR, highSWIR}})
	bi := raster.InferBandIndex(6)

	res, err := Mask(r, bi, Params{Algorithm: AlgorithmThreshold})
	if err != nil {
		t.Fatalf("Mask: %v", err)
	}
	if res.Cloud.At(0, 0) {
		t.Error("vegetation pixel flagged cloudy")
	}
	if !res.Cloud.At(0, 1) {
		t.Error("bright blue pixel not flagged")
	}
	if !res.Cloud.At(1, 0) {
		t.Error("dark NIR pixel not flagged")
	}
	if !res.Cloud.At(1, 1) {
		t.Error("high SWIR-ratio pixel not flagged")
	}
	if res.CloudPixels != 3 || res.ClearPixels != 1 {
		t.Errorf("counts = %d/%d, want 3/1", res.CloudPixels, res.ClearPixels)
	}
	if math.Abs(res.CloudPercent-75) > 1e-9 {
		t.Errorf("CloudPercent = %v, want 75", res.CloudPercent)
	}
}

func TestProbabilisticMaskSentinelScenario(t *testing.T) {
	// Sentinel-2-shaped 7-band raster: a cloud-like region (high blue,
	// low NIR) and a vegetation region. The mask must flag the cloud
	// region and leave vegetation untouched.
	cloudPx := sentinelPixel(0.5, 0.48, 0.49, 0.3, 0.2, 0.18, 0.02)
	vegPx := sentinelPixel(0.03, 0.07, 0.05, 0.45, 0.18, 0.14, 0.001)

	pixels := make([][][]float64, 4)
	for i := range pixels {
		pixels[i] = make([][]float64, 4)
		for j := range pixels[i] {
			if i < 2 {
				pixels[i][j] = append([]float64(nil), cloudPx...)
			} else {
				pixels[i][j] = append([]float64(nil), vegPx...)
			}
		}
	}
	r := rasterFromPixels(t, pixels)
	bi := raster.InferBandIndex(7)

	res, err := Mask(r, bi, Params{Algorithm: AlgorithmProbabilistic})
	if err != nil {
		t.Fatalf("Mask: %v", err)
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 4; j++ {
			if !res.Cloud.At(i, j) {
				t.Errorf("cloud-region pixel (%d,%d) not flagged", i, j)
			}
		}
	}
	for i := 2; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if res.Cloud.At(i, j) {
				t.Errorf("vegetation pixel (%d,%d) flagged cloudy", i, j)
			}
		}
	}
	if res.Probability == nil {
		t.Fatal("probabilistic variant must emit a probability grid")
	}
	if p := res.Probability.At(0, 0); p <= 0 || p > 1 {
		t.Errorf("cloud probability = %v, want in (0,1]", p)
	}
	if p := res.Probability.At(3, 3); p != 0 {
		t.Errorf("vegetation probability = %v, want 0", p)
	}
}

func TestProbabilisticRequiresCirrusBand(t *testing.T) {
	r := rasterFromPixels(t, [][][]float64{{landsatPixel(0.1, 0.1, 0.1, 0.4, 0.2, 0.1)}})
	bi := raster.InferBandIndex(6) // no cirrus band
	if _, err := Mask(r, bi, Params{Algorithm: AlgorithmProbabilistic}); err == nil {
		t.Error("expected data error when cirrus band is missing")
	}
}

func TestQABitmaskDecoding(t *testing.T) {
	// Single-band QA raster; default Landsat bits: 1=dilated, 2=cirrus,
	// 3=cloud, 4=shadow.
	r := rasterFromPixels(t, [][][]float64{
		{{0}, {1 << 3}},
		{{1 << 4}, {1 << 6}},
	})
	bi, err := raster.NewBandIndex(map[string]int{"qa": 0}, 1)
	if err != nil {
		t.Fatal(err)
	}

	res, err := Mask(r, bi, Params{Algorithm: AlgorithmQABitmask})
	if err != nil {
		t.Fatalf("Mask: %v", err)
	}
	if res.Cloud.At(0, 0) {
		t.Error("zero QA value flagged")
	}
	if !res.Cloud.At(0, 1) {
		t.Error("cloud bit not decoded")
	}
	if !res.Cloud.At(1, 0) {
		t.Error("shadow bit not decoded")
	}
	if res.Cloud.At(1, 1) {
		t.Error("unrelated bit flagged")
	}
}

func TestApplyFillsMaskedPixels(t *testing.T) {
	r := rasterFromPixels(t, [][][]float64{{{1, 2}, {3, 4}}})
	mask := gridstats.NewMaskGrid(1, 2)
	mask.Set(0, 1, true)

	out, err := Apply(r, mask, -9999)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := out.Pixel(0, 0); got[0] != 1 || got[1] != 2 {
		t.Errorf("unmasked pixel changed: %v", got)
	}
	if got := out.Pixel(0, 1); got[0] != -9999 || got[1] != -9999 {
		t.Errorf("masked pixel = %v, want fill broadcast", got)
	}
	// Source raster untouched.
	if r.At(0, 1, 0) != 3 {
		t.Error("Apply mutated its input")
	}
}

func TestApplyShapeMismatch(t *testing.T) {
	r := rasterFromPixels(t, [][][]float64{{{1}}})
	if _, err := Apply(r, gridstats.NewMaskGrid(2, 2), 0); err == nil {
		t.Error("expected shape mismatch error")
	}
}

func TestMaskUnknownAlgorithm(t *testing.T) {
	r := rasterFromPixels(t, [][][]float64{{{1}}})
	if _, err := Mask(r, raster.InferBandIndex(1), Params{Algorithm: "chemtrail"}); err == nil {
		t.Error("expected error for unknown algorithm")
	}
}
