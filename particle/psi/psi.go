// Package psi implements the auxiliary particle filter proposals that use
// a converged local Gaussian approximation as the importance proposal: the
// plain psi-APF (spec "ψ-APF") and its SPDK variant, which only resamples
// when the particle set's effective sample size degenerates (spec
// "SPDK/sequential Monte Carlo with stratified survival").
package psi

import (
	"fmt"
	"math"

	"github.com/milosgajdos/bssm-go/filter"
	"github.com/milosgajdos/bssm-go/particle"
	"github.com/milosgajdos/bssm-go/particle/resample"
	"github.com/milosgajdos/bssm-go/rand"
	"gonum.org/v1/gonum/mat"
)

// TrueModel is the non-Gaussian (or nonlinear) model whose observation
// density drives the importance weight numerator.
type TrueModel interface {
	N() int
	Observed(t int) bool
	LogObsDensity(t int, x mat.Vector) float64
}

// gaussLogDensity returns log N(y_t; Z(t)'x, HH(t)) under the converged
// pseudo-Gaussian approximation, the importance weight denominator.
func gaussLogDensity(approx filter.GaussianModel, t int, x mat.Vector) float64 {
	y := approx.Y()[t]
	mean := mat.Dot(approx.Z(t), x)
	hh := approx.HH(t)
	if hh <= 0 {
		hh = 1e-12
	}
	diff := y - mean
	return -0.5*math.Log(2*math.Pi*hh) - 0.5*diff*diff/hh
}

// sampleGaussian draws a single vector from N(mean, cov) via rand.WithCovN's
// SVD root, robust to singular or near-singular covariance. A factorization
// failure (cov not PSD) falls back to returning mean unperturbed.
func sampleGaussian(mean mat.Vector, cov mat.Symmetric, src filter.Source) *mat.VecDense {
	n := cov.Symmetric()
	draw, err := rand.WithCovN(cov, 1, src)
	if err != nil {
		out := mat.NewVecDense(n, nil)
		out.CloneFromVec(mean)
		return out
	}
	out := mat.NewVecDense(n, mat.Col(nil, 0, draw))
	out.AddVec(out, mean)
	return out
}

// Filter runs the psi-auxiliary particle filter: particles propagate
// through the converged Gaussian approximation's own transition T(t)/RR(t)
// (identical to the true model's, since only the observation equation was
// approximated), and each step's weight is the ratio of the true
// observation density to the Gaussian approximation's pseudo-observation
// density at that particle.
func Filter(m TrueModel, approx filter.GaussianModel, nsim int, src filter.Source) (*particle.Result, error) {
	if nsim <= 0 {
		return nil, fmt.Errorf("psi: nsim must be positive, got %d", nsim)
	}
	n := m.N()
	dim := approx.A1().Len()

	cube := particle.NewCube(dim, nsim, n-1)
	weights := particle.NewWeights(nsim, n-1)
	ancestors := particle.NewAncestors(nsim, n-1)

	for i := 0; i < nsim; i++ {
		cube.Set(0, i, sampleGaussian(approx.A1(), approx.P1(), src))
	}

	w0 := make([]float64, nsim)
	for i := 0; i < nsim; i++ {
		if m.Observed(0) {
			w0[i] = math.Exp(m.LogObsDensity(0, cube.At(0, i)) - gaussLogDensity(approx, 0, cube.At(0, i)))
		} else {
			w0[i] = 1
		}
	}
	weights.Set(0, w0)
	loglik := math.Log(weights.Mean(0))

	for t := 1; t < n; t++ {
		norm := weights.Normalized(t - 1)
		idx := resample.Stratified(norm, src)
		ancestors.Set(t, idx)

		wt := make([]float64, nsim)
		tm := approx.T(t - 1)
		rr := approx.RR(t - 1)
		rrSym := symmetrize(rr)
		for i, a := range idx {
			xPrev := cube.At(t-1, a)
			mean := mat.NewVecDense(dim, nil)
			mean.MulVec(tm, xPrev)
			xNext := sampleGaussian(mean, rrSym, src)
			cube.Set(t, i, xNext)

			if m.Observed(t) {
				wt[i] = math.Exp(m.LogObsDensity(t, xNext) - gaussLogDensity(approx, t, xNext))
			} else {
				wt[i] = 1
			}
		}
		weights.Set(t, wt)
		loglik += math.Log(weights.Mean(t))
	}

	return &particle.Result{Particles: cube, Weights: weights, Ancestors: ancestors, LogLik: loglik}, nil
}

// FilterSPDK is the SPDK (stratified-survival) variant: particles are only
// resampled when the effective sample size of the current weights falls
// below nsim/2, the standard adaptive-resampling trigger, instead of at
// every step. Between resamplings ancestry is the identity permutation.
func FilterSPDK(m TrueModel, approx filter.GaussianModel, nsim int, src filter.Source) (*particle.Result, error) {
	if nsim <= 0 {
		return nil, fmt.Errorf("psi: nsim must be positive, got %d", nsim)
	}
	n := m.N()
	dim := approx.A1().Len()

	cube := particle.NewCube(dim, nsim, n-1)
	weights := particle.NewWeights(nsim, n-1)
	ancestors := particle.NewAncestors(nsim, n-1)

	for i := 0; i < nsim; i++ {
		cube.Set(0, i, sampleGaussian(approx.A1(), approx.P1(), src))
	}

	w0 := make([]float64, nsim)
	for i := 0; i < nsim; i++ {
		if m.Observed(0) {
			w0[i] = math.Exp(m.LogObsDensity(0, cube.At(0, i)) - gaussLogDensity(approx, 0, cube.At(0, i)))
		} else {
			w0[i] = 1
		}
	}
	weights.Set(0, w0)
	loglik := math.Log(weights.Mean(0))
	carried := w0

	for t := 1; t < n; t++ {
		resampled := effectiveSampleSize(carried) < float64(nsim)/2
		var idx []int
		if resampled {
			idx = resample.Stratified(normalize(carried), src)
		} else {
			idx = identity(nsim)
		}
		ancestors.Set(t, idx)

		wt := make([]float64, nsim)
		tm := approx.T(t - 1)
		rr := approx.RR(t - 1)
		rrSym := symmetrize(rr)
		for i, a := range idx {
			xPrev := cube.At(t-1, a)
			mean := mat.NewVecDense(dim, nil)
			mean.MulVec(tm, xPrev)
			xNext := sampleGaussian(mean, rrSym, src)
			cube.Set(t, i, xNext)

			// when no resampling occurred this step, the incoming weight
			// carries forward multiplicatively; otherwise it was consumed
			// by the stratified draw and resets to 1.
			carry := 1.0
			if !resampled {
				carry = carried[a]
			}
			if m.Observed(t) {
				wt[i] = carry * math.Exp(m.LogObsDensity(t, xNext)-gaussLogDensity(approx, t, xNext))
			} else {
				wt[i] = carry
			}
		}
		weights.Set(t, wt)
		loglik += math.Log(weights.Mean(t))
		carried = wt
	}

	return &particle.Result{Particles: cube, Weights: weights, Ancestors: ancestors, LogLik: loglik}, nil
}

func identity(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func normalize(w []float64) []float64 {
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	out := make([]float64, len(w))
	if sum <= 0 {
		u := 1 / float64(len(w))
		for i := range out {
			out[i] = u
		}
		return out
	}
	for i, v := range w {
		out[i] = v / sum
	}
	return out
}

// effectiveSampleSize returns 1 / sum(w_norm^2), the standard ESS estimate.
func effectiveSampleSize(w []float64) float64 {
	norm := normalize(w)
	sum := 0.0
	for _, v := range norm {
		sum += v * v
	}
	if sum <= 0 {
		return float64(len(w))
	}
	return 1 / sum
}

func symmetrize(m mat.Matrix) *mat.SymDense {
	r, _ := m.Dims()
	out := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for j := i; j < r; j++ {
			out.SetSym(i, j, 0.5*(m.At(i, j)+m.At(j, i)))
		}
	}
	return out
}
