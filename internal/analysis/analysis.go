// Package analysis unifies the engines behind one capability contract:
// every operation takes a raster plus an options document and returns a
// structured result envelope. The registry keys operations by name so the
// run worker, the HTTP API, and the CLIs dispatch identically. Engines
// stay independent types; nothing here owns algorithm state.
package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/skarn-data/alteration.report/internal/anomaly"
	"github.com/skarn-data/alteration.report/internal/cloudmask"
	"github.com/skarn-data/alteration.report/internal/gridstats"
	"github.com/skarn-data/alteration.report/internal/mineralogy"
	"github.com/skarn-data/alteration.report/internal/raster"
	"github.com/skarn-data/alteration.report/internal/specindex"
)

// Operation names known to the default registry.
const (
	OpAnomaly   = "anomaly"
	OpCloudMask = "cloud_mask"
	OpCrosta    = "crosta"
	OpSAM       = "sam"
	OpUnmix     = "unmix"
	OpIndex     = "index"
)

// Result is the envelope every operation returns: a JSON-serializable
// summary plus the named spatial grids, all shaped like the input
// raster. Callers persist and present it; engines never do.
type Result struct {
	Operation string `json:"operation"`
	Rows      int    `json:"rows"`
	Cols      int    `json:"cols"`

	// Summary is the operation-specific result record (statistics,
	// rankings, counts).
	Summary interface{} `json:"summary"`

	// PrimaryGrid names the grid renderers should show by default.
	PrimaryGrid string `json:"primary_grid,omitempty"`

	Grids map[string]*gridstats.ScoreGrid `json:"-"`
	Masks map[string]*gridstats.MaskGrid  `json:"-"`
}

// gridValue marshals NaN and infinities as JSON null so grids with
// invalid pixels survive persistence.
type gridValue float64

func (v gridValue) MarshalJSON() ([]byte, error) {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

func (v *gridValue) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = gridValue(math.NaN())
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = gridValue(f)
	return nil
}

func toGridValues(vals []float64) []gridValue {
	out := make([]gridValue, len(vals))
	for i, v := range vals {
		out[i] = gridValue(v)
	}
	return out
}

func fromGridValues(vals []gridValue) []float64 {
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = float64(v)
	}
	return out
}

// document is the persisted wire form of a Result, with grids flattened.
type document struct {
	Operation   string                 `json:"operation"`
	Rows        int                    `json:"rows"`
	Cols        int                    `json:"cols"`
	Summary     json.RawMessage        `json:"summary"`
	PrimaryGrid string                 `json:"primary_grid,omitempty"`
	Grids       map[string][]gridValue `json:"grids,omitempty"`
	Masks       map[string][]bool      `json:"masks,omitempty"`
}

// MarshalDocument serializes the full result, grids included, as the
// opaque document the run store persists.
func (res *Result) MarshalDocument() ([]byte, error) {
	summary, err := json.Marshal(res.Summary)
	if err != nil {
		return nil, fmt.Errorf("marshal summary: %w", err)
	}
	doc := document{
		Operation:   res.Operation,
		Rows:        res.Rows,
		Cols:        res.Cols,
		Summary:     summary,
		PrimaryGrid: res.PrimaryGrid,
	}
	if len(res.Grids) > 0 {
		doc.Grids = make(map[string][]gridValue, len(res.Grids))
		for name, g := range res.Grids {
			doc.Grids[name] = toGridValues(g.Values)
		}
	}
	if len(res.Masks) > 0 {
		doc.Masks = make(map[string][]bool, len(res.Masks))
		for name, m := range res.Masks {
			doc.Masks[name] = m.Values
		}
	}
	return json.Marshal(doc)
}

// UnmarshalDocument restores a persisted result document. The summary
// comes back as raw JSON; grids are reshaped from their flat form.
func UnmarshalDocument(data []byte) (*Result, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode result document: %w", err)
	}
	res := &Result{
		Operation:   doc.Operation,
		Rows:        doc.Rows,
		Cols:        doc.Cols,
		Summary:     doc.Summary,
		PrimaryGrid: doc.PrimaryGrid,
	}
	if len(doc.Grids) > 0 {
		res.Grids = make(map[string]*gridstats.ScoreGrid, len(doc.Grids))
		for name, vals := range doc.Grids {
			if len(vals) != doc.Rows*doc.Cols {
				return nil, fmt.Errorf("grid %q has %d values for %dx%d document", name, len(vals), doc.Rows, doc.Cols)
			}
			res.Grids[name] = &gridstats.ScoreGrid{Rows: doc.Rows, Cols: doc.Cols, Values: fromGridValues(vals)}
		}
	}
	if len(doc.Masks) > 0 {
		res.Masks = make(map[string]*gridstats.MaskGrid, len(doc.Masks))
		for name, vals := range doc.Masks {
			if len(vals) != doc.Rows*doc.Cols {
				return nil, fmt.Errorf("mask %q has %d values for %dx%d document", name, len(vals), doc.Rows, doc.Cols)
			}
			res.Masks[name] = &gridstats.MaskGrid{Rows: doc.Rows, Cols: doc.Cols, Values: vals}
		}
	}
	return res, nil
}

// Engine is the capability contract: one named operation over a raster.
type Engine interface {
	Name() string
	Operate(r *raster.Raster, bi *raster.BandIndex, options json.RawMessage) (*Result, error)
}

// Registry maps operation names to engines.
type Registry struct {
	engines map[string]Engine
}

// NewRegistry builds a registry with the given engines.
func NewRegistry(engines ...Engine) *Registry {
	reg := &Registry{engines: make(map[string]Engine, len(engines))}
	for _, e := range engines {
		reg.engines[e.Name()] = e
	}
	return reg
}

// DefaultRegistry wires every built-in engine, with the reference
// spectrum library injected into the mineralogy operations.
func DefaultRegistry(lib *mineralogy.SpectralLibrary) *Registry {
	if lib == nil {
		lib = mineralogy.DefaultLibrary()
	}
	return NewRegistry(
		anomalyEngine{},
		cloudMaskEngine{},
		crostaEngine{},
		samEngine{lib: lib},
		unmixEngine{lib: lib},
		indexEngine{},
	)
}

// Names lists the registered operations, sorted.
func (reg *Registry) Names() []string {
	names := make([]string, 0, len(reg.engines))
	for n := range reg.engines {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Operate dispatches by operation name. Unknown names are a data error
// listing the valid operations.
func (reg *Registry) Operate(op string, r *raster.Raster, bi *raster.BandIndex, options json.RawMessage) (*Result, error) {
	e, ok := reg.engines[strings.ToLower(op)]
	if !ok {
		return nil, fmt.Errorf("unknown operation %q (valid: %s)", op, strings.Join(reg.Names(), ", "))
	}
	if bi == nil {
		bi = raster.InferBandIndex(r.Bands)
	}
	return e.Operate(r, bi, options)
}

func decodeOptions(options json.RawMessage, into interface{}) error {
	if len(options) == 0 {
		return nil
	}
	if err := json.Unmarshal(options, into); err != nil {
		return fmt.Errorf("decode options: %w", err)
	}
	return nil
}

type anomalyEngine struct{}

func (anomalyEngine) Name() string { return OpAnomaly }

func (anomalyEngine) Operate(r *raster.Raster, bi *raster.BandIndex, options json.RawMessage) (*Result, error) {
	var p anomaly.Params
	if err := decodeOptions(options, &p); err != nil {
		return nil, err
	}
	res, err := anomaly.Detect(r, p)
	if err != nil {
		return nil, err
	}
	return &Result{
		Operation:   OpAnomaly,
		Rows:        r.Rows,
		Cols:        r.Cols,
		Summary:     res,
		PrimaryGrid: "scores",
		Grids:       map[string]*gridstats.ScoreGrid{"scores": res.Scores},
		Masks:       map[string]*gridstats.MaskGrid{"anomalous": res.Anomalous},
	}, nil
}

type cloudMaskEngine struct{}

func (cloudMaskEngine) Name() string { return OpCloudMask }

func (cloudMaskEngine) Operate(r *raster.Raster, bi *raster.BandIndex, options json.RawMessage) (*Result, error) {
	var p cloudmask.Params
	if err := decodeOptions(options, &p); err != nil {
		return nil, err
	}
	res, err := cloudmask.Mask(r, bi, p)
	if err != nil {
		return nil, err
	}
	out := &Result{
		Operation: OpCloudMask,
		Rows:      r.Rows,
		Cols:      r.Cols,
		Summary:   res,
		Masks:     map[string]*gridstats.MaskGrid{"cloud": res.Cloud},
	}
	if res.Probability != nil {
		out.PrimaryGrid = "probability"
		out.Grids = map[string]*gridstats.ScoreGrid{"probability": res.Probability}
	}
	return out, nil
}

type crostaEngine struct{}

func (crostaEngine) Name() string { return OpCrosta }

func (crostaEngine) Operate(r *raster.Raster, bi *raster.BandIndex, options json.RawMessage) (*Result, error) {
	var p mineralogy.CrostaParams
	if err := decodeOptions(options, &p); err != nil {
		return nil, err
	}
	res, err := mineralogy.Crosta(r, bi, p)
	if err != nil {
		return nil, err
	}
	out := &Result{
		Operation: OpCrosta,
		Rows:      r.Rows,
		Cols:      r.Cols,
		Summary:   res,
	}
	if res.Scores != nil {
		out.PrimaryGrid = "scores"
		out.Grids = map[string]*gridstats.ScoreGrid{"scores": res.Scores}
	}
	return out, nil
}

type samEngine struct {
	lib *mineralogy.SpectralLibrary
}

func (samEngine) Name() string { return OpSAM }

func (e samEngine) Operate(r *raster.Raster, bi *raster.BandIndex, options json.RawMessage) (*Result, error) {
	var p mineralogy.SAMParams
	if err := decodeOptions(options, &p); err != nil {
		return nil, err
	}
	res, err := mineralogy.SAM(r, e.lib, p)
	if err != nil {
		return nil, err
	}
	return &Result{
		Operation:   OpSAM,
		Rows:        r.Rows,
		Cols:        r.Cols,
		Summary:     res,
		PrimaryGrid: "angles",
		Grids:       map[string]*gridstats.ScoreGrid{"angles": res.Angles},
		Masks:       map[string]*gridstats.MaskGrid{"matches": res.Matches},
	}, nil
}

type unmixEngine struct {
	lib *mineralogy.SpectralLibrary
}

func (unmixEngine) Name() string { return OpUnmix }

func (e unmixEngine) Operate(r *raster.Raster, bi *raster.BandIndex, options json.RawMessage) (*Result, error) {
	var p mineralogy.UnmixParams
	if err := decodeOptions(options, &p); err != nil {
		return nil, err
	}
	res, err := mineralogy.Unmix(r, e.lib, p)
	if err != nil {
		return nil, err
	}
	grids := make(map[string]*gridstats.ScoreGrid, len(res.Abundances)+1)
	for name, g := range res.Abundances {
		grids["abundance_"+name] = g
	}
	grids["residual"] = res.Residual
	primary := "residual"
	if len(res.Endmembers) > 0 {
		primary = "abundance_" + res.Endmembers[0]
	}
	return &Result{
		Operation:   OpUnmix,
		Rows:        r.Rows,
		Cols:        r.Cols,
		Summary:     res,
		PrimaryGrid: primary,
		Grids:       grids,
	}, nil
}

type indexEngine struct{}

func (indexEngine) Name() string { return OpIndex }

// indexOptions is the option record for the index operation.
type indexOptions struct {
	Index string `json:"index"`
}

func (indexEngine) Operate(r *raster.Raster, bi *raster.BandIndex, options json.RawMessage) (*Result, error) {
	var p indexOptions
	if err := decodeOptions(options, &p); err != nil {
		return nil, err
	}
	res, err := specindex.Compute(r, bi, p.Index)
	if err != nil {
		return nil, err
	}
	return &Result{
		Operation:   OpIndex,
		Rows:        r.Rows,
		Cols:        r.Cols,
		Summary:     res,
		PrimaryGrid: "values",
		Grids:       map[string]*gridstats.ScoreGrid{"values": res.Values},
	}, nil
}
