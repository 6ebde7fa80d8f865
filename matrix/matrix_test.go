package matrix

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestFormat(t *testing.T) {
	assert := assert.New(t)

	out := `⎡1.2  3.4⎤
⎣4.5  6.7⎦`
	data := []float64{1.2, 3.4, 4.5, 6.7}
	m := mat.NewDense(2, 2, data)
	assert.NotNil(m)

	format := Format(m)
	tstOut := fmt.Sprintf("%v", format)
	assert.Equal(out, tstOut)
}

func TestRowSums(t *testing.T) {
	assert := assert.New(t)

	data := []float64{1.2, 3.4, 4.5, 6.7, 8.9, 10.0}
	rowSums := []float64{4.6, 11.2, 18.9}
	delta := 0.001

	m := mat.NewDense(3, 2, data)
	assert.NotNil(m)

	resRows := RowSums(m)
	assert.NotNil(resRows)
	assert.InDeltaSlice(rowSums, resRows, delta)
	assert.Panics(func() { RowSums(nil) })
}

func TestColsMean(t *testing.T) {
	assert := assert.New(t)

	data := []float64{1.2, 3.4, 4.5, 6.7, 8.9, 10.0}
	mCol := []float64{2.3000, 5.6, 9.45}
	delta := 0.001

	m := mat.NewDense(3, 2, data)
	assert.NotNil(m)

	meanCol := ColsMean(m)
	assert.NotNil(meanCol)
	assert.InDeltaSlice(mCol, meanCol, delta)

	assert.Panics(func() { ColsMean(nil) })
}

func TestCov(t *testing.T) {
	assert := assert.New(t)
	data := []float64{1, 2, 2, 4}
	delta := 0.001

	colCov := mat.NewDense(2, 2, []float64{0.5, 1.0, 1.0, 2.0})

	m := mat.NewDense(2, 2, data)
	assert.NotNil(m)

	cov, err := Cov(m)
	assert.NotNil(cov)
	assert.NoError(err)

	rows, cols := cov.Dims()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			assert.InDelta(colCov.At(r, c), cov.At(r, c), delta)
		}
	}
}

func TestToSymDense(t *testing.T) {
	assert := assert.New(t)

	badMx := mat.NewDense(2, 1, []float64{0.5, 1.0})
	notSymMx := mat.NewDense(2, 2, []float64{0.5, 1.0, 2.0, 2.0})
	symMx := mat.NewDense(2, 2, []float64{0.5, 1.0, 1.0, 2.0})

	sym, err := ToSymDense(badMx)
	assert.Nil(sym)
	assert.Error(err)

	sym, err = ToSymDense(notSymMx)
	assert.Nil(sym)
	assert.Error(err)

	sym, err = ToSymDense(symMx)
	assert.NotNil(sym)
	assert.NoError(err)
}

func TestUnivariateUpdate(t *testing.T) {
	assert := assert.New(t)

	a := mat.NewVecDense(1, []float64{0.0})
	p := mat.NewSymDense(1, []float64{10.0})
	z := mat.NewVecDense(1, []float64{1.0})

	step := UnivariateUpdate(a, p, z, 0.25, 1.0)
	assert.True(step.Updated)
	assert.InDelta(10.25, step.F, 1e-9)
	assert.InDelta(1.0, step.V, 1e-9)

	// missing observation: skip update, no log-likelihood contribution
	skipped := UnivariateUpdate(a, p, z, 0.25, math.NaN())
	assert.False(skipped.Updated)
	assert.Equal(0.0, skipped.LogLik)
	assert.InDeltaSlice(a.RawVector().Data, skipped.A.RawVector().Data, 1e-12)
}

func TestPredict(t *testing.T) {
	assert := assert.New(t)

	a := mat.NewVecDense(2, []float64{1.0, 2.0})
	p := mat.NewSymDense(2, []float64{1.0, 0.0, 0.0, 1.0})
	tm := mat.NewDense(2, 2, []float64{1.0, 1.0, 0.0, 1.0})
	rr := mat.NewDense(2, 2, []float64{0.1, 0.0, 0.0, 0.1})

	aNext, pNext := Predict(a, p, tm, rr)
	assert.InDelta(3.0, aNext.AtVec(0), 1e-9)
	assert.InDelta(2.0, aNext.AtVec(1), 1e-9)
	assert.InDelta(pNext.At(0, 1), pNext.At(1, 0), 1e-12)
}

func TestPartialCholesky(t *testing.T) {
	assert := assert.New(t)

	cov := mat.NewSymDense(3, []float64{4, 0, 0, 0, 0, 0, 0, 0, 9})
	root, active := PartialCholesky(cov)
	assert.Equal([]int{0, 2}, active)
	assert.InDelta(2.0, root.At(0, 0), 1e-9)
	assert.InDelta(3.0, root.At(2, 2), 1e-9)
	assert.Equal(0.0, root.At(1, 1))
}

func TestMVNLogDensity(t *testing.T) {
	assert := assert.New(t)

	mean := mat.NewVecDense(2, []float64{0, 0})
	cov := mat.NewSymDense(2, []float64{1, 0, 0, 1})

	lp, err := MVNLogDensity(mean, mean, cov)
	assert.NoError(err)
	assert.InDelta(-math.Log(2*math.Pi), lp, 1e-9)
}
