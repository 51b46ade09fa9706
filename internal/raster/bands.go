package raster

import (
	"fmt"
	"sort"
	"strings"
)

// Semantic band names used by the analysis engines.
const (
	BandBlue   = "blue"
	BandGreen  = "green"
	BandRed    = "red"
	BandNIR    = "nir"
	BandSWIR1  = "swir1"
	BandSWIR2  = "swir2"
	BandCirrus = "cirrus"
	BandQA     = "qa"
)

// BandIndex maps semantic band names to offsets into a raster's band axis,
// optionally with the band-center wavelengths (micrometres) needed by the
// directed-PCA component identification.
type BandIndex struct {
	// Convention is the name of the layout this index was built from
	// ("generic", "landsat8", "sentinel2", or "custom").
	Convention string

	offsets     map[string]int
	wavelengths map[string]float64
}

// landsat8Six is the default 6-band reflective stack (OLI bands 2-7).
var landsat8Six = conventionSpec{
	name:  "landsat8",
	order: []string{BandBlue, BandGreen, BandRed, BandNIR, BandSWIR1, BandSWIR2},
	wavelengths: map[string]float64{
		BandBlue:  0.482,
		BandGreen: 0.561,
		BandRed:   0.655,
		BandNIR:   0.865,
		BandSWIR1: 1.609,
		BandSWIR2: 2.201,
	},
}

// sentinel2Seven is the default 7-band stack used by the probabilistic
// cloud mask: B2, B3, B4, B8, B11, B12 plus the B10 cirrus band.
var sentinel2Seven = conventionSpec{
	name:  "sentinel2",
	order: []string{BandBlue, BandGreen, BandRed, BandNIR, BandSWIR1, BandSWIR2, BandCirrus},
	wavelengths: map[string]float64{
		BandBlue:   0.490,
		BandGreen:  0.560,
		BandRed:    0.665,
		BandNIR:    0.842,
		BandSWIR1:  1.610,
		BandSWIR2:  2.190,
		BandCirrus: 1.375,
	},
}

type conventionSpec struct {
	name        string
	order       []string
	wavelengths map[string]float64
}

func (c conventionSpec) build() *BandIndex {
	bi := &BandIndex{
		Convention:  c.name,
		offsets:     make(map[string]int, len(c.order)),
		wavelengths: make(map[string]float64, len(c.wavelengths)),
	}
	for i, name := range c.order {
		bi.offsets[name] = i
	}
	for name, wl := range c.wavelengths {
		bi.wavelengths[name] = wl
	}
	return bi
}

// NewBandIndex builds a custom index from an explicit name -> offset map.
// Offsets must fit inside the given band count.
func NewBandIndex(offsets map[string]int, bands int) (*BandIndex, error) {
	bi := &BandIndex{
		Convention:  "custom",
		offsets:     make(map[string]int, len(offsets)),
		wavelengths: map[string]float64{},
	}
	for name, off := range offsets {
		if off < 0 || off >= bands {
			return nil, fmt.Errorf("band %q maps to offset %d, outside raster with %d bands", name, off, bands)
		}
		bi.offsets[strings.ToLower(name)] = off
	}
	return bi, nil
}

// InferBandIndex picks the default convention for a band count: the
// Landsat 8 reflective stack for 6 bands, the Sentinel-2 stack for 7,
// otherwise a generic ordinal mapping (band_1..band_n) that carries no
// semantic names.
func InferBandIndex(bands int) *BandIndex {
	switch bands {
	case 6:
		return landsat8Six.build()
	case 7:
		return sentinel2Seven.build()
	}
	bi := &BandIndex{
		Convention:  "generic",
		offsets:     make(map[string]int, bands),
		wavelengths: map[string]float64{},
	}
	for i := 0; i < bands; i++ {
		bi.offsets[fmt.Sprintf("band_%d", i+1)] = i
	}
	return bi
}

// ConventionByName returns a named built-in convention ("landsat8",
// "sentinel2") or an error listing the valid names.
func ConventionByName(name string) (*BandIndex, error) {
	switch strings.ToLower(name) {
	case "landsat8":
		return landsat8Six.build(), nil
	case "sentinel2":
		return sentinel2Seven.build(), nil
	}
	return nil, fmt.Errorf("unknown band convention %q (valid: landsat8, sentinel2)", name)
}

// Resolve maps a semantic band name to its offset. Unknown names return a
// data error naming the band and the convention.
func (bi *BandIndex) Resolve(name string) (int, error) {
	off, ok := bi.offsets[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("band %q not present in %s band index (have: %s)",
			name, bi.Convention, strings.Join(bi.Names(), ", "))
	}
	return off, nil
}

// ResolveAll resolves every name or fails on the first missing one.
func (bi *BandIndex) ResolveAll(names []string) ([]int, error) {
	out := make([]int, len(names))
	for i, n := range names {
		off, err := bi.Resolve(n)
		if err != nil {
			return nil, err
		}
		out[i] = off
	}
	return out, nil
}

// Wavelength returns the band-center wavelength in micrometres for a named
// band, or ok=false when the convention has no wavelength table.
func (bi *BandIndex) Wavelength(name string) (float64, bool) {
	wl, ok := bi.wavelengths[strings.ToLower(name)]
	return wl, ok
}

// Wavelengths returns the offset -> wavelength table for all bands with
// known centers, keyed by band offset.
func (bi *BandIndex) Wavelengths() map[int]float64 {
	out := make(map[int]float64, len(bi.wavelengths))
	for name, wl := range bi.wavelengths {
		out[bi.offsets[name]] = wl
	}
	return out
}

// Names lists the known band names in offset order.
func (bi *BandIndex) Names() []string {
	names := make([]string, 0, len(bi.offsets))
	for n := range bi.offsets {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		if bi.offsets[names[i]] != bi.offsets[names[j]] {
			return bi.offsets[names[i]] < bi.offsets[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

// Validate checks that every offset fits inside a raster with the given
// band count.
func (bi *BandIndex) Validate(bands int) error {
	for name, off := range bi.offsets {
		if off >= bands {
			return fmt.Errorf("band %q maps to offset %d but raster has only %d bands", name, off, bands)
		}
	}
	return nil
}
