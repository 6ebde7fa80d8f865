// Package bsf implements the bootstrap particle filter: sequential Monte
// Carlo that uses the model's own transition as the importance proposal and
// reweights by observation density (spec "Bootstrap particle filter").
package bsf

import (
	"fmt"
	"math"

	"github.com/milosgajdos/bssm-go/filter"
	"github.com/milosgajdos/bssm-go/particle"
	"github.com/milosgajdos/bssm-go/particle/resample"
	"gonum.org/v1/gonum/mat"
)

// Filter runs the bootstrap particle filter with nsim particles against m.
// At t=0 it draws from the model's initial distribution and weights by the
// observation density; for t=1..n-1 it stratified-resamples the previous
// weights, propagates through the transition (including process noise),
// and reweights. A missing y_t sets weights uniform for that step. The
// cumulative log-likelihood estimate is sum_t log(mean(w_t)).
func Filter(m filter.ParticleModel, nsim int, src filter.Source) (*particle.Result, error) {
	if nsim <= 0 {
		return nil, fmt.Errorf("bsf: nsim must be positive, got %d", nsim)
	}
	n := m.N()
	_, _ = m.Dims()

	cube := particle.NewCube(stateDim(m), nsim, n-1)
	weights := particle.NewWeights(nsim, n-1)
	ancestors := particle.NewAncestors(nsim, n-1)

	for i := 0; i < nsim; i++ {
		x0 := m.SampleState0(src)
		cube.Set(0, i, x0)
	}

	w0 := make([]float64, nsim)
	if m.Observed(0) {
		for i := 0; i < nsim; i++ {
			w0[i] = math.Exp(m.LogObsDensity(0, cube.At(0, i)))
		}
	} else {
		for i := range w0 {
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
		for i, a := range idx {
			xPrev := cube.At(t-1, a)
			xNext := m.Propagate(t-1, xPrev, src)
			cube.Set(t, i, xNext)
			if m.Observed(t) {
				wt[i] = math.Exp(m.LogObsDensity(t, xNext))
			} else {
				wt[i] = 1
			}
		}
		weights.Set(t, wt)
		loglik += math.Log(weights.Mean(t))
	}

	return &particle.Result{
		Particles: cube,
		Weights:   weights,
		Ancestors: ancestors,
		LogLik:    loglik,
	}, nil
}

func stateDim(m filter.ParticleModel) int {
	d, _ := m.Dims()
	return d
}

// TrajectorySmoother rewrites each final particle's ancestry backward,
// producing a cube whose trajectories are mutually consistent (the
// ancestry is degenerate at t=0 afterward). Spec "filter-trajectory
// smoother".
func TrajectorySmoother(res *particle.Result) *particle.Cube {
	n := res.Particles.T
	m, nsim := res.Particles.M, res.Particles.N
	out := particle.NewCube(m, nsim, n)

	lineage := make([]int, nsim)
	for i := range lineage {
		lineage[i] = i
	}
	out.Slice(n).Copy(res.Particles.Slice(n))

	for t := n; t >= 1; t-- {
		anc := res.Ancestors.At(t)
		next := make([]int, nsim)
		for i := range lineage {
			next[i] = anc[lineage[i]]
		}
		lineage = next
		for i, a := range lineage {
			out.Set(t-1, i, res.Particles.At(t-1, a))
		}
	}
	return out
}

// BackwardSimulate draws one smoothed trajectory: i_n is drawn proportional
// to the final weights, and for t = n-1..0, i_t is drawn proportional to
// w_t(j) * p(alpha_{t+1}^{i_{t+1}} | alpha_t^j) (spec "Backward
// simulation"). transDens scores that transition log-density.
func BackwardSimulate(m filter.ParticleModel, res *particle.Result, transDens func(t int, from, to []float64) float64, src filter.Source) [][]float64 {
	n := res.Particles.T
	nsim := res.Particles.N
	traj := make([][]float64, n+1)

	in := drawIndex(res.Weights.Normalized(n), src)
	traj[n] = vecCopy(res.Particles.At(n, in))
	nextIdx := in

	for t := n - 1; t >= 0; t-- {
		w := res.Weights.Normalized(t)
		scores := make([]float64, nsim)
		toState := vecCopy(res.Particles.At(t+1, nextIdx))
		sum := 0.0
		for j := 0; j < nsim; j++ {
			fromState := vecCopy(res.Particles.At(t, j))
			s := w[j] * math.Exp(transDens(t, fromState, toState))
			scores[j] = s
			sum += s
		}
		if sum <= 0 {
			for j := range scores {
				scores[j] = 1
			}
			sum = float64(nsim)
		}
		for j := range scores {
			scores[j] /= sum
		}
		idx := drawIndex(scores, src)
		traj[t] = vecCopy(res.Particles.At(t, idx))
		nextIdx = idx
	}
	return traj
}

func drawIndex(w []float64, src filter.Source) int {
	u := src.Uniform()
	cum := 0.0
	for i, v := range w {
		cum += v
		if u <= cum {
			return i
		}
	}
	return len(w) - 1
}

func vecCopy(v mat.Vector) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}
