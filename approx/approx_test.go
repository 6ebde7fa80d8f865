package approx_test

import (
	"math"
	"testing"

	"github.com/milosgajdos/bssm-go/model"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func poissonLocalLevel(y []float64, theta0 []float64) *model.NonGaussian {
	build := func(theta []float64) (model.GaussianSystem, error) {
		z := model.NewStatic(mat.NewVecDense(1, []float64{1}))
		hh := model.NewStatic(0.0)
		tm := model.NewStatic(mat.NewDense(1, 1, []float64{1}))
		sigma := math.Exp(theta[0])
		rr := model.NewStatic(mat.NewSymDense(1, []float64{sigma * sigma}))
		a1 := mat.NewVecDense(1, []float64{0})
		p1 := mat.NewSymDense(1, []float64{1})
		return model.GaussianSystem{Z: z, HH: hh, T: tm, RR: rr, A1: a1, P1: p1}, nil
	}
	priors := model.PriorSet{model.NewNormal(0, 1)}
	phi := model.NewStatic(1.0)
	m, err := model.NewNonGaussian(y, model.Poisson, phi, 1, 1, priors, theta0, build, nil)
	if err != nil {
		panic(err)
	}
	return m
}

func TestGaussianConverges(t *testing.T) {
	y := []float64{0, 1, 2, 1, 3, 2, 0, 1}
	m := poissonLocalLevel(y, []float64{0})

	mu0 := mat.NewVecDense(1, []float64{0})
	approxModel, mode, logWeight, converged, err := m.Approximate(mu0, 50, 1e-8)
	assert.NoError(t, err)
	assert.True(t, converged)
	assert.NotNil(t, approxModel)
	assert.Equal(t, 1, mode.Len())
	assert.False(t, math.IsNaN(logWeight))
}

// TestGaussianLinearizesPerTimeStep checks the IRGA loop does not collapse
// every time step onto the t=0 mode: for a series with a clear level shift,
// the converged pseudo-observations should track the shift rather than stay
// flat at the initial mode's linearization.
func TestGaussianLinearizesPerTimeStep(t *testing.T) {
	y := []float64{0, 0, 0, 8, 9, 8, 9}
	m := poissonLocalLevel(y, []float64{-2})

	mu0 := mat.NewVecDense(1, []float64{0})
	approxModel, _, _, converged, err := m.Approximate(mu0, 50, 1e-8)
	assert.NoError(t, err)
	assert.True(t, converged)

	// the pseudo-Gaussian's pseudo-observations should differ between the
	// early, low-count steps and the later, high-count
	// steps; if every time step were linearized around the same global
	// mode this difference would collapse to (near) zero.
	lowSignal := approxModel.Y()[0]
	highSignal := approxModel.Y()[len(y)-1]
	assert.Greater(t, highSignal, lowSignal+1.0)
}
