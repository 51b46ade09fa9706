package raster

import (
	"strings"
	"testing"
)

func TestInferBandIndexByCount(t *testing.T) {
	tests := []struct {
		bands          int
		wantConvention string
	}{
		{6, "landsat8"},
		{7, "sentinel2"},
		{4, "generic"},
		{12, "generic"},
	}
	for _, tt := range tests {
		bi := InferBandIndex(tt.bands)
		if bi.Convention != tt.wantConvention {
			t.Errorf("InferBandIndex(%d).Convention = %q, want %q", tt.bands, bi.Convention, tt.wantConvention)
		}
		if err := bi.Validate(tt.bands); err != nil {
			t.Errorf("InferBandIndex(%d) fails own Validate: %v", tt.bands, err)
		}
	}
}

func TestLandsat8Offsets(t *testing.T) {
	bi := InferBandIndex(6)
	for i, name := range []string{"blue", "green", "red", "nir", "swir1", "swir2"} {
		off, err := bi.Resolve(name)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", name, err)
		}
		if off != i {
			t.Errorf("Resolve(%q) = %d, want %d", name, off, i)
		}
	}
}

func TestSentinel2HasCirrus(t *testing.T) {
	bi := InferBandIndex(7)
	off, err := bi.Resolve("cirrus")
	if err != nil {
		t.Fatalf("Resolve(cirrus): %v", err)
	}
	if off != 6 {
		t.Errorf("cirrus offset = %d, want 6", off)
	}
	wl, ok := bi.Wavelength("cirrus")
	if !ok || wl < 1.3 || wl > 1.4 {
		t.Errorf("cirrus wavelength = %v (%v), want ~1.375", wl, ok)
	}
}

func TestResolveUnknownBand(t *testing.T) {
	bi := InferBandIndex(6)
	_, err := bi.Resolve("thermal")
	if err == nil {
		t.Fatal("expected error for unknown band name")
	}
	if !strings.Contains(err.Error(), "thermal") {
		t.Errorf("error %q should name the missing band", err)
	}
}

func TestCustomBandIndex(t *testing.T) {
	bi, err := NewBandIndex(map[string]int{"Red": 2, "NIR": 3}, 4)
	if err != nil {
		t.Fatalf("NewBandIndex: %v", err)
	}
	// Resolution is case-insensitive.
	off, err := bi.Resolve("red")
	if err != nil || off != 2 {
		t.Errorf("Resolve(red) = %d, %v, want 2, nil", off, err)
	}

	if _, err := NewBandIndex(map[string]int{"red": 5}, 4); err == nil {
		t.Error("expected error for offset beyond band count")
	}
}

func TestResolveAllFailsFast(t *testing.T) {
	bi := InferBandIndex(6)
	offs, err := bi.ResolveAll([]string{"blue", "nir"})
	if err != nil {
		t.Fatalf("ResolveAll: %v", err)
	}
	if offs[0] != 0 || offs[1] != 3 {
		t.Errorf("ResolveAll = %v, want [0 3]", offs)
	}
	if _, err := bi.ResolveAll([]string{"blue", "qa"}); err == nil {
		t.Error("expected error when any name is missing")
	}
}

func TestConventionByName(t *testing.T) {
	if _, err := ConventionByName("sentinel2"); err != nil {
		t.Errorf("ConventionByName(sentinel2): %v", err)
	}
	if _, err := ConventionByName("modis"); err == nil {
		t.Error("expected error for unknown convention")
	}
}
