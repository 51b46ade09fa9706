package raster

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"
	"testing"
)

func TestLoadCSV(t *testing.T) {
	in := "0.1,0.2,0.3\n0.4,0.5,0.6\n0.7,0.8,0.9\n1.0,1.1,1.2\n"
	r, err := LoadCSV(strings.NewReader(in), 2, 2)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if r.Rows != 2 || r.Cols != 2 || r.Bands != 3 {
		t.Fatalf("shape = %dx%dx%d, want 2x2x3", r.Rows, r.Cols, r.Bands)
	}
	if got := r.At(1, 1, 2); got != 1.2 {
		t.Errorf("At(1,1,2) = %v, want 1.2", got)
	}
}

func TestLoadCSVBadValuesBecomeNaN(t *testing.T) {
	in := "0.1,x\n0.2,0.3\n"
	r, err := LoadCSV(strings.NewReader(in), 1, 2)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if !math.IsNaN(r.At(0, 0, 1)) {
		t.Errorf("unparseable field = %v, want NaN", r.At(0, 0, 1))
	}
	if r.IsValid(0, 0) {
		t.Error("pixel with NaN band should be invalid")
	}
}

func TestLoadCSVShapeMismatch(t *testing.T) {
	in := "1,2\n3,4\n"
	if _, err := LoadCSV(strings.NewReader(in), 2, 2); err == nil {
		t.Error("expected error for record count != rows*cols")
	}
}

func TestLoadFlatBinary(t *testing.T) {
	vals := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, vals); err != nil {
		t.Fatal(err)
	}
	r, err := LoadFlatBinary(&buf, 2, 2, 2)
	if err != nil {
		t.Fatalf("LoadFlatBinary: %v", err)
	}
	if got := r.At(1, 0, 1); got != 6 {
		t.Errorf("At(1,0,1) = %v, want 6", got)
	}
}

func TestLoadFlatBinaryTruncated(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, []float64{1, 2, 3})
	if _, err := LoadFlatBinary(&buf, 2, 2, 2); err == nil {
		t.Error("expected error for truncated input")
	}
}
