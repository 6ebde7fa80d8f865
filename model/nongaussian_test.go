package model_test

import (
	"math"
	"testing"

	"github.com/milosgajdos/bssm-go/model"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

// scenario 2 (spec §8): Poisson local-level with phi=1, y=[0,1,2,1,3],
// theta = log(R_sd): approximation converges in <= 10 iterations to a mode
// with max relative change < 1e-6.
func TestApproximatePoissonScenario2(t *testing.T) {
	y := []float64{0, 1, 2, 1, 3}
	phi := model.NewStatic(1.0)

	build := func(theta []float64) (model.GaussianSystem, error) {
		sigma := math.Exp(theta[0])
		z := model.NewStatic(mat.NewVecDense(1, []float64{1}))
		hh := model.NewStatic(0.0) // ignored: observation is Poisson, not Gaussian
		tm := model.NewStatic(mat.NewDense(1, 1, []float64{1}))
		rr := model.NewStatic(mat.NewSymDense(1, []float64{sigma * sigma}))
		a1 := mat.NewVecDense(1, []float64{0})
		p1 := mat.NewSymDense(1, []float64{1})
		return model.GaussianSystem{Z: z, HH: hh, T: tm, RR: rr, A1: a1, P1: p1}, nil
	}

	priors := model.PriorSet{model.NewNormal(0, 2)}
	m, err := model.NewNonGaussian(y, model.Poisson, phi, 1, 1, priors, []float64{0}, build, nil)
	assert.NoError(t, err)

	mu0 := mat.NewVecDense(1, []float64{0})
	_, mode, _, converged, err := m.Approximate(mu0, 10, 1e-6)
	assert.NoError(t, err)
	assert.True(t, converged)
	assert.NotNil(t, mode)
}

func TestNonGaussianRoundTrip(t *testing.T) {
	y := []float64{0, 1, 2}
	phi := model.NewStatic(1.0)
	build := func(theta []float64) (model.GaussianSystem, error) {
		z := model.NewStatic(mat.NewVecDense(1, []float64{1}))
		hh := model.NewStatic(0.0)
		tm := model.NewStatic(mat.NewDense(1, 1, []float64{1}))
		rr := model.NewStatic(mat.NewSymDense(1, []float64{1}))
		a1 := mat.NewVecDense(1, []float64{0})
		p1 := mat.NewSymDense(1, []float64{1})
		return model.GaussianSystem{Z: z, HH: hh, T: tm, RR: rr, A1: a1, P1: p1}, nil
	}
	priors := model.PriorSet{model.NewNormal(0, 2)}
	m, err := model.NewNonGaussian(y, model.Poisson, phi, 1, 1, priors, []float64{0.3}, build, nil)
	assert.NoError(t, err)

	assert.NoError(t, m.Update([]float64{0.7}))
	assert.Equal(t, []float64{0.7}, m.Theta())
}
