package dispatch_test

import (
	"testing"

	"github.com/milosgajdos/bssm-go/dispatch"
	"github.com/milosgajdos/bssm-go/mcmc"
	"github.com/milosgajdos/bssm-go/model"
	"github.com/milosgajdos/bssm-go/rand"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func mcmcConfig() mcmc.Config {
	return mcmc.Config{
		NIter: 200, NBurnin: 50, NThin: 1,
		Gamma: 0.7, TargetAccept: 0.234,
		S0: mat.NewDense(2, 2, []float64{0.1, 0, 0, 0.1}),
	}
}

func localLevel(y []float64) *model.Gaussian {
	build := func(theta []float64) (model.GaussianSystem, error) {
		z := model.NewStatic(mat.NewVecDense(1, []float64{1}))
		hh := model.NewStatic(0.25)
		tm := model.NewStatic(mat.NewDense(1, 1, []float64{1}))
		rr := model.NewStatic(mat.NewSymDense(1, []float64{0.09}))
		a1 := mat.NewVecDense(1, []float64{0})
		p1 := mat.NewSymDense(1, []float64{10})
		return model.GaussianSystem{Z: z, HH: hh, T: tm, RR: rr, A1: a1, P1: p1}, nil
	}
	m, err := model.NewGaussian(y, 1, 1, model.PriorSet{}, nil, build, nil)
	if err != nil {
		panic(err)
	}
	return m
}

func TestRunFilterOnly(t *testing.T) {
	m := localLevel([]float64{1.0, 2.0, 1.5})
	res, err := dispatch.Run(dispatch.Request{Model: m, Algorithm: dispatch.FilterOnly})
	assert.NoError(t, err)
	assert.NotNil(t, res.Filter)
	assert.Empty(t, res.Error)
}

func TestRunSmootherOnly(t *testing.T) {
	m := localLevel([]float64{1.0, 2.0, 1.5})
	res, err := dispatch.Run(dispatch.Request{Model: m, Algorithm: dispatch.SmootherOnly})
	assert.NoError(t, err)
	assert.Len(t, res.Smoothed, 3)
}

func TestRunUnknownAlgorithmReturnsErrorSentinel(t *testing.T) {
	m := localLevel([]float64{1.0})
	res, err := dispatch.Run(dispatch.Request{Model: m, Algorithm: dispatch.Algorithm(999)})
	assert.NoError(t, err)
	assert.NotEmpty(t, res.Error)
}

func TestRunModelMismatchReturnsErrorSentinel(t *testing.T) {
	res, err := dispatch.Run(dispatch.Request{Model: "not a model", Algorithm: dispatch.FilterOnly})
	assert.NoError(t, err)
	assert.NotEmpty(t, res.Error)
}

func TestRunGaussianMH(t *testing.T) {
	build := func(theta []float64) (model.GaussianSystem, error) {
		z := model.NewStatic(mat.NewVecDense(1, []float64{1}))
		h := theta[1] * theta[1]
		hh := model.NewStatic(h)
		tm := model.NewStatic(mat.NewDense(1, 1, []float64{1}))
		sigma := theta[0]
		rr := model.NewStatic(mat.NewSymDense(1, []float64{sigma * sigma}))
		a1 := mat.NewVecDense(1, []float64{0})
		p1 := mat.NewSymDense(1, []float64{10})
		return model.GaussianSystem{Z: z, HH: hh, T: tm, RR: rr, A1: a1, P1: p1}, nil
	}
	priors := model.PriorSet{model.NewHalfNormal(1), model.NewHalfNormal(1)}
	m, err := model.NewGaussian([]float64{1, 2, 1.8, 2.3}, 1, 1, priors, []float64{0.5, 0.5}, build, nil)
	assert.NoError(t, err)

	cfg := mcmcConfig()
	src := rand.New(3)
	res, err := dispatch.Run(dispatch.Request{Model: m, Algorithm: dispatch.GaussianMH, MCMC: cfg, Src: src})
	assert.NoError(t, err)
	assert.NotNil(t, res.MCMC)
}
