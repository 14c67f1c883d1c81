package cmd

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PlotHistory saves the relative residual of every iteration on a log scale. The image
// format follows the file extension (png, svg, pdf...).
func PlotHistory(fname, title string, history []float64) (err error) {
	if len(history) == 0 || history[0] == 0 {
		return fmt.Errorf("no residual history to plot")
	}
	var (
		p   = plot.New()
		xys = make(plotter.XYs, 0, len(history))
	)
	p.Title.Text = title
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = "||r|| / ||r0||"
	p.Y.Scale = plot.LogScale{}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Add(plotter.NewGrid())
	for it, r := range history {
		if r <= 0 { // Not representable on a log axis
			continue
		}
		xys = append(xys, plotter.XY{X: float64(it), Y: r / history[0]})
	}
	var line *plotter.Line
	if line, err = plotter.NewLine(xys); err != nil {
		return
	}
	p.Add(line)
	return p.Save(6*vg.Inch, 4*vg.Inch, fname)
}
