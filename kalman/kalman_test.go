package kalman_test

import (
	"math"
	"testing"

	"github.com/milosgajdos/bssm-go/kalman"
	"github.com/milosgajdos/bssm-go/model"
	"github.com/milosgajdos/bssm-go/rand"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func localLevel(t *testing.T, y []float64) *model.Gaussian {
	build := func(theta []float64) (model.GaussianSystem, error) {
		z := model.NewStatic(mat.NewVecDense(1, []float64{1}))
		hh := model.NewStatic(0.25) // H = 0.5
		tm := model.NewStatic(mat.NewDense(1, 1, []float64{1}))
		rr := model.NewStatic(mat.NewSymDense(1, []float64{0.09})) // R = 0.3
		a1 := mat.NewVecDense(1, []float64{0})
		p1 := mat.NewSymDense(1, []float64{10})
		return model.GaussianSystem{Z: z, HH: hh, T: tm, RR: rr, A1: a1, P1: p1}, nil
	}
	m, err := model.NewGaussian(y, 1, 1, nil, nil, build, nil)
	assert.NoError(t, err)
	return m
}

// scenario 1 (spec §8): y = [1.0, 2.0, NaN, 3.5], Z=1, H=0.5, T=1, R=0.3,
// a1=0, P1=10; log-likelihood = -4.0317 +/- 1e-4.
func TestFilterScenario1(t *testing.T) {
	y := []float64{1.0, 2.0, math.NaN(), 3.5}
	m := localLevel(t, y)

	res, err := kalman.Filter(m, y)
	assert.NoError(t, err)
	assert.InDelta(t, -4.0317, res.LogLik, 1e-4)
}

func TestFastVsClassicalSmootherAgree(t *testing.T) {
	y := []float64{1.0, 2.0, math.NaN(), 3.5, 2.8, 1.9}
	m := localLevel(t, y)

	res, err := kalman.Filter(m, y)
	assert.NoError(t, err)

	fast, err := kalman.FastSmooth(m, res)
	assert.NoError(t, err)

	classical, err := kalman.Smooth(m, res)
	assert.NoError(t, err)

	assert.Equal(t, len(fast), len(classical))
	for i := range fast {
		assert.InDelta(t, fast[i].AtVec(0), classical[i].Val().AtVec(0), 1e-8)
	}
}

func TestLogLik(t *testing.T) {
	y := []float64{1.0, 2.0, math.NaN(), 3.5}
	m := localLevel(t, y)

	ll, err := kalman.LogLik(m, y)
	assert.NoError(t, err)
	assert.InDelta(t, -4.0317, ll, 1e-4)
}

func TestSimSmooth(t *testing.T) {
	y := []float64{1.0, 2.0, math.NaN(), 3.5}
	m := localLevel(t, y)
	src := rand.New(1)

	draw, err := kalman.SimSmooth(m, y, src)
	assert.NoError(t, err)
	assert.Equal(t, len(y), len(draw))
	for _, d := range draw {
		assert.False(t, math.IsNaN(d.AtVec(0)))
	}
}
