// Package mineralogy maps mineral-alteration signatures: directed PCA
// (Crosta technique) with component identification against diagnostic
// absorption features, spectral angle matching, and constrained linear
// unmixing against a reference spectrum library.
package mineralogy

import (
	"fmt"
	"sort"
	"strings"
)

// SpectralLibrary is an immutable name -> reference spectrum table. The
// bundled spectra are 6-band reflectance vectors resampled to the
// blue/green/red/nir/swir1/swir2 stack; custom libraries may carry any
// band count as long as it matches the raster they are used against.
type SpectralLibrary struct {
	bands   int
	spectra map[string][]float64
}

// referenceSpectra holds laboratory reflectance resampled to the 6-band
// reflective stack. Values are approximate convex shapes good enough for
// angle matching and unmixing bases; they are not radiometric truth.
var referenceSpectra = map[string][]float64{
	// Hydroxyl-bearing alteration minerals: SWIR1 high, SWIR2 absorbed.
	"kaolinite": {0.42, 0.48, 0.54, 0.60, 0.68, 0.42},
	"alunite":   {0.38, 0.45, 0.52, 0.58, 0.70, 0.40},
	"sericite":  {0.35, 0.42, 0.50, 0.55, 0.64, 0.41},
	"chlorite":  {0.12, 0.18, 0.16, 0.30, 0.32, 0.24},

	// Iron oxides: strong red/NIR rise, blue absorption.
	"hematite": {0.08, 0.16, 0.38, 0.46, 0.52, 0.48},
	"goethite": {0.06, 0.14, 0.30, 0.48, 0.55, 0.50},
	"jarosite": {0.10, 0.22, 0.40, 0.38, 0.50, 0.36},

	// Silica / background.
	"quartz":     {0.55, 0.58, 0.60, 0.62, 0.64, 0.62},
	"vegetation": {0.04, 0.08, 0.05, 0.45, 0.22, 0.12},
}

// DefaultLibrary returns the bundled 6-band alteration library.
func DefaultLibrary() *SpectralLibrary {
	return &SpectralLibrary{bands: 6, spectra: referenceSpectra}
}

// NewLibrary builds a custom library. All spectra must share one length.
func NewLibrary(spectra map[string][]float64) (*SpectralLibrary, error) {
	if len(spectra) == 0 {
		return nil, fmt.Errorf("spectral library: no spectra")
	}
	lib := &SpectralLibrary{spectra: make(map[string][]float64, len(spectra))}
	for name, s := range spectra {
		if lib.bands == 0 {
			lib.bands = len(s)
		}
		if len(s) != lib.bands || len(s) == 0 {
			return nil, fmt.Errorf("spectral library: spectrum %q has %d bands, want %d", name, len(s), lib.bands)
		}
		cp := make([]float64, len(s))
		copy(cp, s)
		lib.spectra[strings.ToLower(name)] = cp
	}
	return lib, nil
}

// Bands returns the band count all spectra share.
func (l *SpectralLibrary) Bands() int { return l.bands }

// Names lists the known mineral names, sorted.
func (l *SpectralLibrary) Names() []string {
	names := make([]string, 0, len(l.spectra))
	for n := range l.spectra {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Spectrum returns a copy of the named reference spectrum. Unknown names
// are a data error listing the valid names.
func (l *SpectralLibrary) Spectrum(name string) ([]float64, error) {
	s, ok := l.spectra[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown mineral %q (valid: %s)", name, strings.Join(l.Names(), ", "))
	}
	out := make([]float64, len(s))
	copy(out, s)
	return out, nil
}

// Endmember is a named unmixing basis spectrum.
type Endmember struct {
	Name     string    `json:"name"`
	Spectrum []float64 `json:"spectrum"`
}

// Endmembers resolves a list of mineral names against the library,
// checking every spectrum against the raster band count.
func (l *SpectralLibrary) Endmembers(names []string, bands int) ([]Endmember, error) {
	if l.bands != bands {
		return nil, fmt.Errorf("spectral library has %d-band spectra but raster has %d bands", l.bands, bands)
	}
	out := make([]Endmember, len(names))
	for i, name := range names {
		s, err := l.Spectrum(name)
		if err != nil {
			return nil, err
		}
		out[i] = Endmember{Name: strings.ToLower(name), Spectrum: s}
	}
	return out, nil
}
