package model_test

import (
	"testing"

	"github.com/milosgajdos/bssm-go/model"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestNewRegressionBuildsTimeVaryingLoading(t *testing.T) {
	y := []float64{1.0, 2.0, 2.9, 4.1}
	x := mat.NewDense(4, 1, []float64{0, 1, 2, 3})

	m, err := model.NewRegression(y, x, []float64{0.1, 0.2, 1.0})
	assert.NoError(t, err)

	z0 := m.Z(0)
	z3 := m.Z(3)
	assert.InDelta(t, 0.0, z0.AtVec(1), 1e-12)
	assert.InDelta(t, 3.0, z3.AtVec(1), 1e-12)
}

func TestNewRegressionRejectsMismatchedDims(t *testing.T) {
	y := []float64{1.0, 2.0}
	x := mat.NewDense(3, 1, []float64{0, 1, 2})

	_, err := model.NewRegression(y, x, []float64{0.1, 0.2, 1.0})
	assert.Error(t, err)

	x2 := mat.NewDense(2, 1, []float64{0, 1})
	_, err = model.NewRegression(y, x2, []float64{0.1, 0.2})
	assert.Error(t, err)
}

func TestRegressionLayoutPackUnpackRoundTrip(t *testing.T) {
	layout := model.RegressionLayout(2)

	z := []float64{}
	h := []float64{}
	tm := []float64{}
	r := []float64{}
	xbeta := []float64{0.1, 0.2, 1.5, -0.5}
	phi := []float64{}

	theta := model.Pack(layout, z, h, tm, r, xbeta, phi)
	assert.Equal(t, []float64{1.5, -0.5}, theta)

	out := make([]float64, len(xbeta))
	copy(out, xbeta)
	theta[0] = 9.0
	model.Unpack(layout, theta, z, h, tm, r, out, phi)
	assert.InDelta(t, 9.0, out[2], 1e-12)
}

func TestTimeVaryingIsVarying(t *testing.T) {
	static := model.NewStatic(1.0)
	assert.False(t, static.IsVarying())

	varying := model.NewVarying([]float64{1.0, 2.0, 3.0})
	assert.True(t, varying.IsVarying())
	assert.Equal(t, 3, varying.Len())
}
