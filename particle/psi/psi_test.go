package psi_test

import (
	"math"
	"testing"

	"github.com/milosgajdos/bssm-go/model"
	"github.com/milosgajdos/bssm-go/particle/psi"
	"github.com/milosgajdos/bssm-go/rand"
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

func TestPsiFilterRuns(t *testing.T) {
	y := []float64{0, 1, 2, 1, 3}
	m := poissonLocalLevel(y, []float64{0})

	mu0 := mat.NewVecDense(1, []float64{0})
	approxModel, _, _, converged, err := m.Approximate(mu0, 20, 1e-6)
	assert.NoError(t, err)
	assert.True(t, converged)

	src := rand.New(11)
	res, err := psi.Filter(m, approxModel, 500, src)
	assert.NoError(t, err)
	assert.False(t, math.IsNaN(res.LogLik))
}

func TestPsiFilterSPDKRuns(t *testing.T) {
	y := []float64{0, 1, 2, 1, 3}
	m := poissonLocalLevel(y, []float64{0})

	mu0 := mat.NewVecDense(1, []float64{0})
	approxModel, _, _, _, err := m.Approximate(mu0, 20, 1e-6)
	assert.NoError(t, err)

	src := rand.New(13)
	res, err := psi.FilterSPDK(m, approxModel, 500, src)
	assert.NoError(t, err)
	assert.False(t, math.IsNaN(res.LogLik))
}
