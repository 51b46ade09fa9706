// Package report renders analysis results for people: interactive HTML
// charts via go-echarts and static PNG heatmaps via gonum/plot.
package report

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/skarn-data/alteration.report/internal/analysis"
	"github.com/skarn-data/alteration.report/internal/gridstats"
)

// viridis color ramp used by the visual maps.
var viridisColors = []string{
	"#440154", "#482777", "#3e4989", "#31688e", "#26828e",
	"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725",
}

const histogramBins = 30

// RenderHTML writes an HTML page for the result: one heatmap per grid
// plus a value histogram for the primary grid.
func RenderHTML(res *analysis.Result, w io.Writer) error {
	if len(res.Grids) == 0 {
		return fmt.Errorf("result for %s has no grids to render", res.Operation)
	}

	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("%s %dx%d", res.Operation, res.Rows, res.Cols)

	// Primary grid first, the rest in map order.
	if g, ok := res.Grids[res.PrimaryGrid]; ok {
		page.AddCharts(gridHeatMap(res.PrimaryGrid, g), gridHistogram(res.PrimaryGrid, g))
	}
	for name, g := range res.Grids {
		if name == res.PrimaryGrid {
			continue
		}
		page.AddCharts(gridHeatMap(name, g))
	}

	return page.Render(w)
}

// gridHeatMap renders a score grid as an ECharts heatmap with row 0 at
// the top, matching raster orientation.
func gridHeatMap(name string, g *gridstats.ScoreGrid) *charts.HeatMap {
	data := make([]opts.HeatMapData, 0, len(g.Values))
	min, max := math.Inf(1), math.Inf(-1)
	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			v := g.At(row, col)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
			data = append(data, opts.HeatMapData{Value: []interface{}{col, g.Rows - 1 - row, v}})
		}
	}
	if min > max {
		min, max = 0, 1
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: name, Subtitle: fmt.Sprintf("%dx%d", g.Rows, g.Cols)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Name: "col"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Name: "row"}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(min),
			Max:        float32(max),
			InRange:    &opts.VisualMapInRange{Color: viridisColors},
		}),
	)
	hm.AddSeries(name, data)
	return hm
}

// gridHistogram renders the distribution of finite grid values as a
// bar chart.
func gridHistogram(name string, g *gridstats.ScoreGrid) *charts.Bar {
	min, max := math.Inf(1), math.Inf(-1)
	for _, v := range g.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	counts := make([]int, histogramBins)
	labels := make([]string, histogramBins)
	width := (max - min) / histogramBins
	if min > max || width == 0 {
		width = 1
		if min > max {
			min = 0
		}
	}
	for i := range labels {
		labels[i] = fmt.Sprintf("%.3g", min+width*float64(i))
	}
	for _, v := range g.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		bin := int((v - min) / width)
		if bin >= histogramBins {
			bin = histogramBins - 1
		}
		counts[bin]++
	}

	bars := make([]opts.BarData, histogramBins)
	for i, c := range counts {
		bars[i] = opts.BarData{Value: c}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "300px"}),
		charts.WithTitleOpts(opts.Title{Title: name + " distribution"}),
		charts.WithXAxisOpts(opts.XAxis{Name: name}),
		charts.WithYAxisOpts(opts.YAxis{Name: "pixels"}),
	)
	bar.SetXAxis(labels)
	bar.AddSeries("pixels", bars)
	return bar
}
