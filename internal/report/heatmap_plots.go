package report

import (
	"fmt"
	"image/color"
	"math"

	"github.com/user/lifetest_analyzer_go/internal/analysis"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// distributionGrid exposes column x bin hours as a plotter.GridXYZ.
// Empty bins are NaN so they render in the NaN colour.
type distributionGrid struct {
	cols []analysis.ColumnResult
	bins int
}

func (g distributionGrid) Dims() (c, r int) { return g.bins, len(g.cols) }
func (g distributionGrid) X(c int) float64 { return float64(c) }
func (g distributionGrid) Y(r int) float64 { return float64(r) }
func (g distributionGrid) Z(c, r int) float64 {
	d := g.cols[r].Distribution.Bins[c]
	if d == 0 {
		return math.NaN()
	}
	return d.Hours()
}

// CreateDistributionHeatmap stacks every column's distribution into one
// heatmap: one row per column, one cell per bin, coloured by hours.
func CreateDistributionHeatmap(res *analysis.Results) ([]byte, error) {
	if res == nil || len(res.Columns) == 0 {
		return nil, fmt.Errorf("no distributions to plot heatmap")
	}
	grid := distributionGrid{cols: res.Columns, bins: res.Bins.Count}

	maxHours := 0.0
	for _, col := range res.Columns {
		if len(col.Distribution.Bins) != res.Bins.Count {
			return nil, fmt.Errorf("column %s has %d bins, want %d", col.Name, len(col.Distribution.Bins), res.Bins.Count)
		}
		for _, d := range col.Distribution.Bins {
			maxHours = math.Max(maxHours, d.Hours())
		}
	}

	p := plot.New()
	p.Title.Text = "Time distribution per channel (h)"
	p.X.Label.Text = "Value"
	p.Y.Label.Text = "Channel"

	yTicks := make([]plot.Tick, len(res.Columns))
	for i, col := range res.Columns {
		yTicks[i] = plot.Tick{Value: float64(i), Label: col.Name}
	}
	p.Y.Tick.Marker = plot.ConstantTicks(yTicks)
	p.Y.Min = -0.5
	p.Y.Max = float64(len(res.Columns)) - 0.5
	p.X.Tick.Marker = plot.ConstantTicks(binTicks(res.Bins))
	p.X.Min = -0.5
	p.X.Max = float64(res.Bins.Count) - 0.5

	hm := plotter.NewHeatMap(grid, palette.Heat(12, 1))
	hm.Min = 0
	hm.Max = maxHours
	if hm.Max == 0 {
		hm.Max = 1
	}
	hm.NaN = color.Gray{Y: 230}
	p.Add(hm)

	height := vg.Points(120 + 18*float64(len(res.Columns)))
	return renderPNG(p, vg.Points(1000), height)
}
