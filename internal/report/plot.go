package report

import (
	"fmt"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/skarn-data/alteration.report/internal/gridstats"
)

// gridXYZ adapts a ScoreGrid to the plotter heatmap interface. Row 0 is
// drawn at the top to match raster orientation.
type gridXYZ struct {
	g *gridstats.ScoreGrid
}

func (d gridXYZ) Dims() (c, r int)   { return d.g.Cols, d.g.Rows }
func (d gridXYZ) X(c int) float64    { return float64(c) }
func (d gridXYZ) Y(r int) float64    { return float64(r) }
func (d gridXYZ) Z(c, r int) float64 { return d.g.At(d.g.Rows-1-r, c) }

// gridHeatmapPlot builds the heatmap plot for a grid. Invalid (NaN)
// cells are left blank.
func gridHeatmapPlot(g *gridstats.ScoreGrid, title string) (*plot.Plot, vg.Length, vg.Length, error) {
	if g == nil || len(g.Values) == 0 {
		return nil, 0, 0, fmt.Errorf("no grid values to plot")
	}

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
	if min > max {
		return nil, 0, 0, fmt.Errorf("grid %q has no finite values", title)
	}
	if min == max {
		max = min + 1
	}

	h := plotter.NewHeatMap(gridXYZ{g}, moreland.SmoothBlueRed().Palette(255))
	h.Min = min
	h.Max = max

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "col"
	p.Y.Label.Text = "row"
	p.Add(h)

	width := 8 * vg.Inch
	height := width * vg.Length(g.Rows) / vg.Length(g.Cols)
	if height > 16*vg.Inch {
		height = 16 * vg.Inch
	}
	return p, width, height, nil
}

// SaveGridPNG renders the grid as a PNG heatmap at path.
func SaveGridPNG(g *gridstats.ScoreGrid, title, path string) error {
	p, width, height, err := gridHeatmapPlot(g, title)
	if err != nil {
		return err
	}
	if err := p.Save(width, height, path); err != nil {
		return fmt.Errorf("save heatmap %s: %w", path, err)
	}
	return nil
}

// WriteGridPNG renders the grid as a PNG heatmap to w.
func WriteGridPNG(g *gridstats.ScoreGrid, title string, w io.Writer) error {
	p, width, height, err := gridHeatmapPlot(g, title)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("render heatmap %q: %w", title, err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write heatmap %q: %w", title, err)
	}
	return nil
}
