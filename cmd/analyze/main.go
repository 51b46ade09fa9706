// Command analyze runs a single analysis operation over a raster file
// and writes the result locally, without the service or its database.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/skarn-data/alteration.report/internal/analysis"
	"github.com/skarn-data/alteration.report/internal/config"
	"github.com/skarn-data/alteration.report/internal/raster"
	"github.com/skarn-data/alteration.report/internal/report"
)

func main() {
	var (
		input       string
		format      string
		rows        int
		cols        int
		bands       int
		op          string
		optionsJSON string
		configPath  string
		outPath     string
		reportPath  string
		pngPath     string
	)

	flag.StringVar(&input, "input", "", "path to the raster file")
	flag.StringVar(&format, "format", "csv", "raster format: csv or bin")
	flag.IntVar(&rows, "rows", 0, "raster rows")
	flag.IntVar(&cols, "cols", 0, "raster cols")
	flag.IntVar(&bands, "bands", 0, "raster bands")
	flag.StringVar(&op, "op", "", "operation to run (see -list)")
	flag.StringVar(&optionsJSON, "options", "", "operation options as JSON (keys override -config values)")
	flag.StringVar(&configPath, "config", "", "tuning config JSON file supplying option defaults (optional)")
	flag.StringVar(&outPath, "out", "", "write the full result document to this path")
	flag.StringVar(&reportPath, "report", "", "write an HTML report to this path")
	flag.StringVar(&pngPath, "png", "", "write a PNG heatmap of the primary grid to this path")
	list := flag.Bool("list", false, "list available operations and exit")
	flag.Parse()

	registry := analysis.DefaultRegistry(nil)

	if *list {
		for _, name := range registry.Names() {
			fmt.Println(name)
		}
		return
	}

	if input == "" || op == "" {
		log.Fatal("both -input and -op must be provided")
	}
	if rows < 1 || cols < 1 || bands < 1 {
		log.Fatal("-rows, -cols, and -bands must be positive")
	}

	options := json.RawMessage(optionsJSON)
	if configPath != "" {
		cfg, err := config.LoadTuningConfig(configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		options, err = tunedOptions(op, cfg, optionsJSON)
		if err != nil {
			log.Fatalf("build options: %v", err)
		}
	}

	r, err := raster.LoadFile(input, format, rows, cols, bands)
	if err != nil {
		log.Fatalf("load raster: %v", err)
	}

	res, err := registry.Operate(op, r, nil, options)
	if err != nil {
		log.Fatalf("run %s: %v", op, err)
	}

	summary, err := json.MarshalIndent(res.Summary, "", "  ")
	if err != nil {
		log.Fatalf("encode summary: %v", err)
	}
	fmt.Printf("%s %dx%d\n%s\n", res.Operation, res.Rows, res.Cols, summary)

	if outPath != "" {
		doc, err := res.MarshalDocument()
		if err != nil {
			log.Fatalf("encode result document: %v", err)
		}
		if err := os.WriteFile(outPath, doc, 0644); err != nil {
			log.Fatalf("write result: %v", err)
		}
		fmt.Printf("wrote result document to %s\n", outPath)
	}

	if reportPath != "" {
		f, err := os.Create(reportPath)
		if err != nil {
			log.Fatalf("create report: %v", err)
		}
		if err := report.RenderHTML(res, f); err != nil {
			log.Fatalf("render report: %v", err)
		}
		f.Close()
		fmt.Printf("wrote report to %s\n", reportPath)
	}

	if pngPath != "" {
		g := res.Grids[res.PrimaryGrid]
		if g == nil {
			log.Fatalf("result for %s has no primary grid to plot", res.Operation)
		}
		if err := report.SaveGridPNG(g, res.PrimaryGrid, pngPath); err != nil {
			log.Fatalf("write png: %v", err)
		}
		fmt.Printf("wrote heatmap to %s\n", pngPath)
	}
}

// tunedOptions builds operation options from a tuning config for the
// operations whose parameters the config covers, with keys from the
// explicit -options JSON overriding the tuned values. The config never
// selects an algorithm; that stays with explicit options or the engine
// default.
func tunedOptions(op string, cfg *config.TuningConfig, explicit string) (json.RawMessage, error) {
	var params interface{}
	switch op {
	case analysis.OpAnomaly:
		params = cfg.AnomalyParams()
	case analysis.OpCloudMask:
		params = cfg.CloudMaskParams()
	case analysis.OpSAM:
		params = map[string]float64{"threshold": cfg.GetSAMThreshold()}
	case analysis.OpCrosta:
		params = map[string]int{"components": cfg.GetCrostaComponents()}
	default:
		return json.RawMessage(explicit), nil
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode tuned options: %w", err)
	}
	merged := map[string]interface{}{}
	if err := json.Unmarshal(raw, &merged); err != nil {
		return nil, fmt.Errorf("decode tuned options: %w", err)
	}
	if alg, ok := merged["algorithm"]; ok && alg == "" {
		delete(merged, "algorithm")
	}

	if explicit != "" {
		overlay := map[string]interface{}{}
		if err := json.Unmarshal([]byte(explicit), &overlay); err != nil {
			return nil, fmt.Errorf("parse -options: %w", err)
		}
		for k, v := range overlay {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}
