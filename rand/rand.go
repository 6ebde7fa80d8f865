// Package rand is the RNG facade used by every engine in this module. Each
// engine or parallel worker owns a single seeded Source; there is no global
// RNG, so a fixed seed array reproduces a run bit-for-bit.
package rand

import (
	"fmt"
	"math"

	xrand "golang.org/x/exp/rand"

	"github.com/milosgajdos/bssm-go/filter"
	"gonum.org/v1/gonum/mat"
)

// Source is a seeded generator of standard normal, uniform and discrete
// draws. It implements filter.Source.
type Source struct {
	seed uint64
	rng  *xrand.Rand
}

// New creates a new Source seeded with seed.
func New(seed uint64) *Source {
	return &Source{
		seed: seed,
		rng:  xrand.New(xrand.NewSource(seed)),
	}
}

// Seed returns the seed the Source was constructed with.
func (s *Source) Seed() uint64 {
	return s.seed
}

// Normal draws n independent standard normal values.
func (s *Source) Normal(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = s.rng.NormFloat64()
	}
	return out
}

// Uniform draws a single uniform value in [0,1).
func (s *Source) Uniform() float64 {
	return s.rng.Float64()
}

// Seeds derives n independent seeds from a single master seed, for handing
// out to n_threads parallel workers (spec "Parallel state sampling").
func Seeds(master uint64, n int) []uint64 {
	src := xrand.New(xrand.NewSource(master))
	out := make([]uint64, n)
	for i := range out {
		out[i] = src.Uint64()
	}
	return out
}

// WithCovN draws n random samples from a zero-mean Normal distribution with
// covariance cov, using src as the source of randomness. It returns a
// matrix holding the samples in its columns. SVD is used rather than
// Cholesky because cov may be singular or near-singular (e.g. a partial
// initial covariance P1). src need only be a filter.Source, so a single
// draw (n=1) from this same root serves as the sampleGaussian a
// ParticleModel's SampleState0/Propagate call (model.NonGaussian,
// model.SV, model.Nonlinear) and the psi-APF proposal (particle/psi) both
// need.
func WithCovN(cov mat.Symmetric, n int, src filter.Source) (*mat.Dense, error) {
	if n <= 0 {
		return nil, fmt.Errorf("invalid number of samples requested: %d", n)
	}

	var svd mat.SVD
	ok := svd.Factorize(cov, mat.SVDFull)
	if !ok {
		return nil, fmt.Errorf("SVD factorization failed")
	}

	U := new(mat.Dense)
	svd.UTo(U)
	vals := svd.Values(nil)
	for i := range vals {
		vals[i] = math.Sqrt(vals[i])
	}
	diag := mat.NewDiagDense(len(vals), vals)
	U.Mul(U, diag)

	rows, _ := cov.Dims()
	samples := mat.NewDense(rows, n, src.Normal(rows*n))
	samples.Mul(U, samples)

	return samples, nil
}

