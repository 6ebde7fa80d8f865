package ram_test

import (
	"math"
	"testing"

	"github.com/milosgajdos/bssm-go/ram"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

func TestNewValidatesShape(t *testing.T) {
	s0 := mat.NewDense(2, 3, nil)
	_, err := ram.New(s0, 0.7, 0.234, false, 0)
	assert.Error(t, err)
}

func TestNewValidatesGamma(t *testing.T) {
	s0 := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	_, err := ram.New(s0, 0.3, 0.234, false, 0)
	assert.Error(t, err)
}

func TestAdaptPreservesPositiveDefinite(t *testing.T) {
	s0 := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	a, err := ram.New(s0, 0.7, 0.234, false, 0)
	assert.NoError(t, err)

	for i := 1; i <= 200; i++ {
		u := []float64{0.5, -0.3}
		err := a.Adapt(u, 0.0, i) // worst case: always-rejected proposal
		assert.NoError(t, err)
	}

	s := a.S()
	var sst mat.Dense
	sst.Mul(s, s.T())
	var chol mat.Cholesky
	assert.True(t, chol.Factorize(mat.NewSymDense(2, []float64{
		sst.At(0, 0), sst.At(0, 1),
		sst.At(1, 0), sst.At(1, 1),
	})))
}

func TestAdaptConvergesTowardTargetScale(t *testing.T) {
	target := 0.234
	s0 := mat.NewDense(1, 1, []float64{3.0})
	a, err := ram.New(s0, 0.6, target, false, 0)
	assert.NoError(t, err)

	src := distuv.Normal{Mu: 0, Sigma: 1}
	for i := 1; i <= 5000; i++ {
		u := []float64{src.Rand()}
		step := a.Propose(u)
		// accept with probability shrinking as |step| grows, mimicking an
		// MH acceptance curve for a unit-variance Gaussian target.
		alpha := math.Min(1, math.Exp(-0.5*step.AtVec(0)*step.AtVec(0)))
		assert.NoError(t, a.Adapt(u, alpha, i))
	}

	s := a.S()
	scale := math.Abs(s.At(0, 0))
	assert.Greater(t, scale, 0.05)
	assert.Less(t, scale, 20.0)
}
