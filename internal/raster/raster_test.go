package raster

import (
	"math"
	"testing"
)

func TestFromNestedRoundTrip(t *testing.T) {
	in := [][][]float64{
		{{1, 2, 3}, {4, 5, 6}},
		{{7, 8, 9}, {10, 11, 12}},
	}
	r, err := FromNested(in)
	if err != nil {
		t.Fatalf("FromNested: %v", err)
	}
	if r.Rows != 2 || r.Cols != 2 || r.Bands != 3 {
		t.Fatalf("shape = %dx%dx%d, want 2x2x3", r.Rows, r.Cols, r.Bands)
	}
	if got := r.At(1, 0, 2); got != 9 {
		t.Errorf("At(1,0,2) = %v, want 9", got)
	}
	px := r.Pixel(0, 1)
	if px[0] != 4 || px[2] != 6 {
		t.Errorf("Pixel(0,1) = %v, want [4 5 6]", px)
	}
}

func TestFromNestedRaggedInput(t *testing.T) {
	_, err := FromNested([][][]float64{
		{{1, 2}, {3, 4}},
		{{5, 6}},
	})
	if err == nil {
		t.Fatal("expected error for ragged rows")
	}

	_, err = FromNested([][][]float64{
		{{1, 2}, {3}},
	})
	if err == nil {
		t.Fatal("expected error for ragged bands")
	}
}

func TestValidPixelsSkipsNonFinite(t *testing.T) {
	r, _ := FromNested([][][]float64{
		{{1, 2}, {math.NaN(), 3}},
		{{4, math.Inf(1)}, {5, 6}},
	})

	vectors, positions := r.ValidPixels()
	if len(vectors) != 2 {
		t.Fatalf("got %d valid pixels, want 2", len(vectors))
	}
	if positions[0] != 0 || positions[1] != 3 {
		t.Errorf("positions = %v, want [0 3]", positions)
	}
	if r.IsValid(0, 1) {
		t.Error("IsValid(0,1) = true for NaN pixel")
	}
}

func TestSelectBands(t *testing.T) {
	r, _ := FromNested([][][]float64{
		{{1, 2, 3}, {4, 5, 6}},
	})
	sub, err := r.SelectBands([]int{2, 0})
	if err != nil {
		t.Fatalf("SelectBands: %v", err)
	}
	if sub.Bands != 2 {
		t.Fatalf("Bands = %d, want 2", sub.Bands)
	}
	if got := sub.Pixel(0, 1); got[0] != 6 || got[1] != 4 {
		t.Errorf("Pixel(0,1) = %v, want [6 4]", got)
	}

	if _, err := r.SelectBands([]int{3}); err == nil {
		t.Error("expected error for out-of-range band offset")
	}
}

func TestBandExtraction(t *testing.T) {
	r, _ := FromNested([][][]float64{
		{{1, 10}, {2, 20}},
		{{3, 30}, {4, 40}},
	})
	b, err := r.Band(1)
	if err != nil {
		t.Fatalf("Band: %v", err)
	}
	want := []float64{10, 20, 30, 40}
	for i := range want {
		if b[i] != want[i] {
			t.Errorf("Band(1)[%d] = %v, want %v", i, b[i], want[i])
		}
	}
	if _, err := r.Band(2); err == nil {
		t.Error("expected error for out-of-range band")
	}
}

func TestNewRejectsBadShape(t *testing.T) {
	if _, err := New(-1, 4, 2); err == nil {
		t.Error("expected error for negative rows")
	}
	if _, err := New(4, 4, 0); err == nil {
		t.Error("expected error for zero bands")
	}
}
