package gridstats

import (
	"math"
	"testing"
)

func gridFrom(rows, cols int, vals []float64) *ScoreGrid {
	g := NewScoreGrid(rows, cols)
	copy(g.Values, vals)
	return g
}

func TestDescribeIgnoresNonFinite(t *testing.T) {
	g := gridFrom(2, 2, []float64{1, 3, math.NaN(), math.Inf(1)})
	s := Describe(g)
	if s.Valid != 2 || s.Total != 4 {
		t.Errorf("Valid/Total = %d/%d, want 2/4", s.Valid, s.Total)
	}
	if s.Min != 1 || s.Max != 3 || s.Mean != 2 {
		t.Errorf("min/max/mean = %v/%v/%v, want 1/3/2", s.Min, s.Max, s.Mean)
	}
	// Sample std of {1,3} is sqrt(2).
	if math.Abs(s.StdDev-math.Sqrt2) > 1e-12 {
		t.Errorf("StdDev = %v, want sqrt(2)", s.StdDev)
	}
}

func TestDescribeAllInvalid(t *testing.T) {
	g := gridFrom(1, 2, []float64{math.NaN(), math.NaN()})
	s := Describe(g)
	if s.Valid != 0 {
		t.Errorf("Valid = %d, want 0", s.Valid)
	}
}

func TestDescribeSingleSample(t *testing.T) {
	s := Describe(gridFrom(1, 1, []float64{5}))
	if s.StdDev != 0 {
		t.Errorf("StdDev of single sample = %v, want 0", s.StdDev)
	}
}

func TestPercentileValueIndexing(t *testing.T) {
	// Ten scores 0..9: percentile p indexes sorted[floor(p*9)].
	vals := []float64{9, 3, 7, 1, 5, 0, 8, 2, 6, 4}
	g := gridFrom(2, 5, vals)

	tests := []struct {
		p    float64
		want float64
	}{
		{0, 0},
		{0.5, 4},
		{0.99, 8}, // floor(0.99*9) = 8
		{1, 9},
	}
	for _, tt := range tests {
		got, err := PercentileValue(g, tt.p)
		if err != nil {
			t.Fatalf("PercentileValue(%v): %v", tt.p, err)
		}
		if got != tt.want {
			t.Errorf("PercentileValue(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestPercentileEmptyPopulation(t *testing.T) {
	g := gridFrom(1, 1, []float64{math.NaN()})
	if _, err := PercentileValue(g, 0.5); err == nil {
		t.Error("expected error for empty score population")
	}
}

func TestTopLocationsStableTies(t *testing.T) {
	g := gridFrom(2, 2, []float64{0.5, 0.9, 0.9, 0.1})
	locs := TopLocations(g, 3)
	if len(locs) != 3 {
		t.Fatalf("got %d locations, want 3", len(locs))
	}
	// Two 0.9 ties: row-major order (0,1) before (1,0).
	if locs[0].Row != 0 || locs[0].Col != 1 {
		t.Errorf("top = (%d,%d), want (0,1)", locs[0].Row, locs[0].Col)
	}
	if locs[1].Row != 1 || locs[1].Col != 0 {
		t.Errorf("second = (%d,%d), want (1,0)", locs[1].Row, locs[1].Col)
	}
	if locs[2].Score != 0.5 {
		t.Errorf("third score = %v, want 0.5", locs[2].Score)
	}
}

func TestNormalizeByMax(t *testing.T) {
	g := gridFrom(1, 3, []float64{2, 4, math.NaN()})
	NormalizeByMax(g)
	if g.Values[0] != 0.5 || g.Values[1] != 1 {
		t.Errorf("normalized = %v, want [0.5 1 NaN]", g.Values[:2])
	}
	if !math.IsNaN(g.Values[2]) {
		t.Error("NaN entry should stay NaN")
	}

	// All-zero grid is left unchanged.
	z := gridFrom(1, 2, []float64{0, 0})
	NormalizeByMax(z)
	if z.Values[0] != 0 || z.Values[1] != 0 {
		t.Errorf("zero grid changed: %v", z.Values)
	}
}

func TestMaskGridCount(t *testing.T) {
	m := NewMaskGrid(2, 2)
	m.Set(0, 1, true)
	m.Set(1, 1, true)
	if m.Count() != 2 {
		t.Errorf("Count = %d, want 2", m.Count())
	}
	if !m.At(0, 1) || m.At(0, 0) {
		t.Error("mask flags wrong")
	}
}
