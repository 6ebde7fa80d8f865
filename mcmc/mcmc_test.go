package mcmc_test

import (
	"math"
	"testing"

	"github.com/milosgajdos/bssm-go/mcmc"
	"github.com/milosgajdos/bssm-go/model"
	"github.com/milosgajdos/bssm-go/rand"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

func localLevel(y []float64, theta0 []float64) *model.Gaussian {
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
	m, err := model.NewGaussian(y, 1, 1, priors, theta0, build, nil)
	if err != nil {
		panic(err)
	}
	return m
}

func TestRunGaussianProducesSamples(t *testing.T) {
	y := []float64{1.0, 2.0, 1.8, 2.3, 2.1, 1.9, 2.4}
	m := localLevel(y, []float64{0.5, 0.5})

	cfg := mcmc.Config{
		NIter: 300, NBurnin: 50, NThin: 1,
		Gamma: 0.7, TargetAccept: 0.234,
		S0: mat.NewDense(2, 2, []float64{0.1, 0, 0, 0.1}),
	}
	src := rand.New(42)

	res, err := mcmc.RunGaussian(m, cfg, src)
	assert.NoError(t, err)
	assert.NotNil(t, res.Theta)
	r, c := res.Theta.Dims()
	assert.Equal(t, 2, r)
	assert.Greater(t, c, 0)
	assert.GreaterOrEqual(t, res.AcceptanceRate, 0.0)
	assert.LessOrEqual(t, res.AcceptanceRate, 1.0)
}

func TestConfigValidation(t *testing.T) {
	cfg := mcmc.Config{NIter: 0}
	assert.Error(t, cfg.Validate(2))

	cfg2 := mcmc.Config{NIter: 10, NBurnin: 1, NThin: 1, Gamma: 0.7, S0: mat.NewDense(2, 2, nil)}
	assert.NoError(t, cfg2.Validate(2))

	cfg3 := mcmc.Config{NIter: 10, NBurnin: 1, NThin: 2, Gamma: 0.7, S0: mat.NewDense(2, 2, nil)}
	assert.Error(t, cfg3.Validate(2))
}

// ouSDE builds a mean-reverting Ornstein-Uhlenbeck SDE model with a plain
// Gaussian observation equation, so a pseudo-marginal BSF chain has
// something non-trivial to run on an SDE (model.SDE has no Approximate
// method, so only the BSF back-end can drive it).
func ouSDE(y []float64, theta0 []float64) *model.SDE {
	s := &model.SDE{
		DriftFunc:     func(x float64, theta []float64) float64 { return theta[0] * (theta[1] - x) },
		DiffusionFunc: func(x float64, theta []float64) float64 { return theta[2] },
		ObsLogDensityFunc: func(y, x float64, theta []float64) float64 {
			d := distuv.Normal{Mu: x, Sigma: 0.3}
			return d.LogProb(y)
		},
		X0Func: func(theta []float64) float64 { return theta[1] },
		LogPriorFunc: func(theta []float64) float64 {
			if theta[0] <= 0 || theta[2] <= 0 {
				return math.Inf(-1)
			}
			return 0
		},
	}
	return model.NewSDE(y, 3, theta0, s)
}

func TestRunPseudoMarginalSDEViaBSF(t *testing.T) {
	y := []float64{0.1, 0.3, 0.2, 0.4, 0.5, 0.3}
	m := ouSDE(y, []float64{0.5, 0, 0.4})

	cfg := mcmc.Config{
		NIter: 40, NBurnin: 10, NThin: 1,
		Gamma: 0.7, TargetAccept: 0.234,
		S0:         mat.NewDense(3, 3, []float64{0.05, 0, 0, 0, 0.05, 0, 0, 0, 0.05}),
		NSimStates: 100,
		Method:     mcmc.BSF,
	}
	src := rand.New(7)

	res, err := mcmc.RunPseudoMarginal(m, cfg, src)
	assert.NoError(t, err)
	assert.NotNil(t, res.Theta)
	r, _ := res.Theta.Dims()
	assert.Equal(t, 3, r)
}

func TestSummaryLawOfTotalVariance(t *testing.T) {
	s := mcmc.NewSummary(1)
	for i := 0; i < 100; i++ {
		mean := mat.NewVecDense(1, []float64{float64(i % 3)})
		cov := mat.NewSymDense(1, []float64{0.1})
		s.Add(mean, cov)
	}
	cov := s.Cov()
	assert.Greater(t, cov.At(0, 0), 0.0)
}
