// Package diagnostics renders MCMC trace plots and posterior-predictive
// fan charts from the output of the mcmc and predict packages, following
// the teacher's gonum/plot conventions (sim.New2DPlot).
package diagnostics

import (
	"fmt"
	"image/color"

	"github.com/milosgajdos/bssm-go/predict"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// TracePlot draws one MCMC parameter's sampled value against iteration
// index, the standard convergence-inspection chart.
func TracePlot(paramName string, values []float64) (*plot.Plot, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("diagnostics: no values to plot")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Trace: %s", paramName)
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = paramName

	pts := make(plotter.XYs, len(values))
	for i, v := range values {
		pts[i].X = float64(i)
		pts[i].Y = v
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("diagnostics: building trace line: %w", err)
	}
	line.Color = color.RGBA{B: 200, A: 255}

	p.Add(line)
	return p, nil
}

// TraceGrid draws one trace plot per row of theta (p x n_stored) and
// returns them in parameter order, for a caller to lay out in a grid.
func TraceGrid(paramNames []string, theta *mat.Dense) ([]*plot.Plot, error) {
	p, n := theta.Dims()
	if len(paramNames) != p {
		return nil, fmt.Errorf("diagnostics: %d parameter names for %d rows", len(paramNames), p)
	}
	plots := make([]*plot.Plot, p)
	for row := 0; row < p; row++ {
		values := make([]float64, n)
		for col := 0; col < n; col++ {
			values[col] = theta.At(row, col)
		}
		pl, err := TracePlot(paramNames[row], values)
		if err != nil {
			return nil, err
		}
		plots[row] = pl
	}
	return plots, nil
}

// PosteriorPredictiveFan draws observed data against a forecast's median
// and (lo, hi) quantile ribbon, the standard posterior-predictive "fan
// chart".
func PosteriorPredictiveFan(observed []float64, forecast []predict.Summary, lo, median, hi float64) (*plot.Plot, error) {
	if len(forecast) == 0 {
		return nil, fmt.Errorf("diagnostics: empty forecast")
	}

	p := plot.New()
	p.Title.Text = "Posterior predictive forecast"
	p.X.Label.Text = "time"
	p.Y.Label.Text = "value"

	legend := plot.NewLegend()
	legend.Top = true
	p.Legend = legend

	obsPts := make(plotter.XYs, len(observed))
	for i, v := range observed {
		obsPts[i].X = float64(i)
		obsPts[i].Y = v
	}
	obsLine, err := plotter.NewLine(obsPts)
	if err != nil {
		return nil, fmt.Errorf("diagnostics: building observed line: %w", err)
	}
	obsLine.Color = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	p.Add(obsLine)
	p.Legend.Add("observed", obsLine)

	offset := len(observed)
	medLine := make(plotter.XYs, len(forecast))
	loLine := make(plotter.XYs, len(forecast))
	hiLine := make(plotter.XYs, len(forecast))
	for i, s := range forecast {
		x := float64(offset + i)
		medLine[i] = plotter.XY{X: x, Y: s.Quantiles[median]}
		loLine[i] = plotter.XY{X: x, Y: s.Quantiles[lo]}
		hiLine[i] = plotter.XY{X: x, Y: s.Quantiles[hi]}
	}

	band, err := plotter.NewLine(medLine)
	if err != nil {
		return nil, fmt.Errorf("diagnostics: building median line: %w", err)
	}
	band.Color = color.RGBA{R: 200, A: 255}
	band.Width = vg.Points(2)
	p.Add(band)
	p.Legend.Add("median forecast", band)

	loPlot, err := plotter.NewLine(loLine)
	if err != nil {
		return nil, fmt.Errorf("diagnostics: building lower quantile line: %w", err)
	}
	loPlot.Color = color.RGBA{R: 200, A: 128}
	loPlot.Dashes = []vg.Length{vg.Points(3), vg.Points(3)}
	p.Add(loPlot)

	hiPlot, err := plotter.NewLine(hiLine)
	if err != nil {
		return nil, fmt.Errorf("diagnostics: building upper quantile line: %w", err)
	}
	hiPlot.Color = color.RGBA{R: 200, A: 128}
	hiPlot.Dashes = []vg.Length{vg.Points(3), vg.Points(3)}
	p.Add(hiPlot)

	return p, nil
}
