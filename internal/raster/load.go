package raster

import (
	"encoding/binary"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Loaders for the two supported ingest formats. Parsing stops at producing
// a Raster plus shape metadata; georeferencing and radiometric correction
// are out of scope.

// LoadCSV reads a delimited text raster: one record per pixel in row-major
// order, each record holding the per-band values for that pixel. The
// spatial shape cannot be recovered from the text alone, so rows and cols
// are passed explicitly. Empty fields and unparseable numbers become NaN
// (invalid but positionally retained).
func LoadCSV(rd io.Reader, rows, cols int) (*Raster, error) {
	cr := csv.NewReader(rd)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv raster: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv raster is empty")
	}
	if len(records) != rows*cols {
		return nil, fmt.Errorf("csv raster has %d pixel records, want %d (%dx%d)", len(records), rows*cols, rows, cols)
	}

	bands := len(records[0])
	r, err := New(rows, cols, bands)
	if err != nil {
		return nil, err
	}
	for p, rec := range records {
		if len(rec) != bands {
			return nil, fmt.Errorf("csv raster record %d has %d fields, want %d", p, len(rec), bands)
		}
		for b, field := range rec {
			v, perr := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if perr != nil {
				v = math.NaN()
			}
			r.data[p*bands+b] = v
		}
	}
	return r, nil
}

// LoadFlatBinary reads rows*cols*bands little-endian float64 values in
// row-major [row][col][band] order.
func LoadFlatBinary(rd io.Reader, rows, cols, bands int) (*Raster, error) {
	r, err := New(rows, cols, bands)
	if err != nil {
		return nil, err
	}
	if err := binary.Read(rd, binary.LittleEndian, r.data); err != nil {
		return nil, fmt.Errorf("read binary raster (%dx%dx%d float64): %w", rows, cols, bands, err)
	}
	return r, nil
}

// LoadFile dispatches on format name: "csv" or "bin".
func LoadFile(path, format string, rows, cols, bands int) (*Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(format) {
	case "csv":
		return LoadCSV(f, rows, cols)
	case "bin":
		return LoadFlatBinary(f, rows, cols, bands)
	}
	return nil, fmt.Errorf("unknown raster format %q (valid: csv, bin)", format)
}
