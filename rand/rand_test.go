package rand

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestWithCovN(t *testing.T) {
	assert := assert.New(t)
	src := New(1)

	cov := mat.NewSymDense(2, []float64{1.0, 0.0, 0.0, 1.0})

	_, err := WithCovN(cov, -3, src)
	assert.Error(err)

	res, err := WithCovN(cov, 5, src)
	assert.NoError(err)
	assert.NotNil(res)
	r, c := res.Dims()
	assert.Equal(2, r)
	assert.Equal(5, c)
}

func TestSeeds(t *testing.T) {
	assert := assert.New(t)

	s1 := Seeds(42, 4)
	s2 := Seeds(42, 4)
	assert.Equal(s1, s2)
	assert.Len(s1, 4)
}

func TestSourceDeterministic(t *testing.T) {
	assert := assert.New(t)

	a := New(7).Normal(10)
	b := New(7).Normal(10)
	assert.Equal(a, b)
}
