// Package particle holds the types shared by every sequential Monte Carlo
// engine (bootstrap filter, psi-APF): the particle cube, weight matrix and
// ancestor-index bookkeeping that the resampling and backward-simulation
// routines operate on.
package particle

import "gonum.org/v1/gonum/mat"

// Cube stores a full particle history: n+1 time steps (including t=0) of
// nsim particles, each an m-vector, laid out as n+1 column-major matrices.
type Cube struct {
	M, N, T int
	cols    []*mat.Dense // cols[t] is m x nsim
}

// NewCube allocates a Cube for m-dimensional states, nsim particles, over
// T+1 time points (t=0..T).
func NewCube(m, nsim, t int) *Cube {
	cols := make([]*mat.Dense, t+1)
	for i := range cols {
		cols[i] = mat.NewDense(m, nsim, nil)
	}
	return &Cube{M: m, N: nsim, T: t, cols: cols}
}

// At returns particle i's state vector at time t.
func (c *Cube) At(t, i int) mat.Vector {
	return c.cols[t].ColView(i)
}

// Set stores x as particle i's state vector at time t.
func (c *Cube) Set(t, i int, x mat.Vector) {
	col := c.cols[t]
	for r := 0; r < c.M; r++ {
		col.Set(r, i, x.AtVec(r))
	}
}

// Slice returns the raw m x nsim particle matrix at time t.
func (c *Cube) Slice(t int) *mat.Dense { return c.cols[t] }

// Weights is a set of per-time-step particle weights,
// stored pre-normalization (spec: "weights are stored pre-normalization
// per time step; normalized on demand").
type Weights struct {
	raw [][]float64
}

// NewWeights allocates a Weights table for nsim particles over t+1 time
// points.
func NewWeights(nsim, t int) *Weights {
	raw := make([][]float64, t+1)
	for i := range raw {
		raw[i] = make([]float64, nsim)
	}
	return &Weights{raw: raw}
}

// Set stores the raw (unnormalized) weights at time t.
func (w *Weights) Set(t int, ws []float64) { copy(w.raw[t], ws) }

// Raw returns the raw (unnormalized) weights at time t.
func (w *Weights) Raw(t int) []float64 { return w.raw[t] }

// Normalized returns the time-t weights scaled to sum to 1.
func (w *Weights) Normalized(t int) []float64 {
	raw := w.raw[t]
	out := make([]float64, len(raw))
	sum := 0.0
	for _, v := range raw {
		sum += v
	}
	if sum <= 0 {
		u := 1 / float64(len(raw))
		for i := range out {
			out[i] = u
		}
		return out
	}
	for i, v := range raw {
		out[i] = v / sum
	}
	return out
}

// Mean returns the unweighted mean of the raw weights at time t, used by
// the cumulative log-likelihood recursion log(mean(w_t)).
func (w *Weights) Mean(t int) float64 {
	raw := w.raw[t]
	sum := 0.0
	for _, v := range raw {
		sum += v
	}
	return sum / float64(len(raw))
}

// Ancestors stores, for each time step t>=1, the index in the time-(t-1)
// particle set each particle descended from after resampling.
type Ancestors struct {
	idx [][]int
}

// NewAncestors allocates an Ancestors table for nsim particles over t
// resampling steps (t=1..T).
func NewAncestors(nsim, t int) *Ancestors {
	idx := make([][]int, t+1)
	for i := range idx {
		idx[i] = make([]int, nsim)
	}
	return &Ancestors{idx: idx}
}

// Set stores the ancestor indices chosen at time t.
func (a *Ancestors) Set(t int, ids []int) { copy(a.idx[t], ids) }

// At returns the ancestor indices chosen at time t.
func (a *Ancestors) At(t int) []int { return a.idx[t] }

// Result is the output of a full forward particle-filter pass.
type Result struct {
	Particles *Cube
	Weights   *Weights
	Ancestors *Ancestors
	LogLik    float64
}
