package diagnostics_test

import (
	"testing"

	"github.com/milosgajdos/bssm-go/diagnostics"
	"github.com/milosgajdos/bssm-go/predict"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestTracePlot(t *testing.T) {
	p, err := diagnostics.TracePlot("sigma", []float64{0.1, 0.2, 0.15, 0.18})
	assert.NoError(t, err)
	assert.NotNil(t, p)
}

func TestTracePlotRejectsEmpty(t *testing.T) {
	_, err := diagnostics.TracePlot("sigma", nil)
	assert.Error(t, err)
}

func TestTraceGrid(t *testing.T) {
	theta := mat.NewDense(2, 3, []float64{
		0.1, 0.2, 0.15,
		1.0, 1.1, 0.9,
	})
	plots, err := diagnostics.TraceGrid([]string{"sigma", "H"}, theta)
	assert.NoError(t, err)
	assert.Len(t, plots, 2)
}

func TestTraceGridRejectsMismatchedNames(t *testing.T) {
	theta := mat.NewDense(2, 3, []float64{0.1, 0.2, 0.15, 1.0, 1.1, 0.9})
	_, err := diagnostics.TraceGrid([]string{"sigma"}, theta)
	assert.Error(t, err)
}

func TestPosteriorPredictiveFan(t *testing.T) {
	observed := []float64{1.0, 2.0, 1.5}
	forecast := []predict.Summary{
		{Mean: 1.6, Variance: 0.2, Quantiles: map[float64]float64{0.1: 1.0, 0.5: 1.6, 0.9: 2.2}},
		{Mean: 1.7, Variance: 0.25, Quantiles: map[float64]float64{0.1: 1.1, 0.5: 1.7, 0.9: 2.3}},
	}
	p, err := diagnostics.PosteriorPredictiveFan(observed, forecast, 0.1, 0.5, 0.9)
	assert.NoError(t, err)
	assert.NotNil(t, p)
}

func TestPosteriorPredictiveFanRejectsEmptyForecast(t *testing.T) {
	_, err := diagnostics.PosteriorPredictiveFan([]float64{1.0}, nil, 0.1, 0.5, 0.9)
	assert.Error(t, err)
}
