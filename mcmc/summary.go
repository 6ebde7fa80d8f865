package mcmc

import "gonum.org/v1/gonum/mat"

// Summary accumulates a running posterior mean and covariance over a
// stream of (state-estimate, state-covariance) pairs using Welford's
// algorithm combined with the law of total variance (spec
// "Posterior-summary accumulator (Welford form)"): the final covariance is
// the within-sample mean covariance plus the between-sample covariance of
// the means, Vt + Valpha/N.
type Summary struct {
	n      int
	dim    int
	mean   []float64
	vt     []float64 // running mean of per-sample covariances, flattened row-major
	valpha []float64 // running between-sample covariance accumulator, flattened
}

// NewSummary allocates a Summary for dim-dimensional state estimates.
func NewSummary(dim int) *Summary {
	return &Summary{
		dim:    dim,
		mean:   make([]float64, dim),
		vt:     make([]float64, dim*dim),
		valpha: make([]float64, dim*dim),
	}
}

// Add folds in one new (alphaHat_i, Vt_i) observation.
func (s *Summary) Add(alphaHat mat.Vector, vtI mat.Symmetric) {
	s.n++
	i := float64(s.n)

	prevMean := make([]float64, s.dim)
	copy(prevMean, s.mean)

	for d := 0; d < s.dim; d++ {
		s.mean[d] += (alphaHat.AtVec(d) - s.mean[d]) / i
	}

	for r := 0; r < s.dim; r++ {
		for c := 0; c < s.dim; c++ {
			idx := r*s.dim + c
			s.vt[idx] += (vtI.At(r, c) - s.vt[idx]) / i
			// Valpha += (alphaHat_i - mean_prev)(alphaHat_i - mean_new)'
			s.valpha[idx] += (alphaHat.AtVec(r) - prevMean[r]) * (alphaHat.AtVec(c) - s.mean[c])
		}
	}
}

// Mean returns the running posterior mean estimate.
func (s *Summary) Mean() *mat.VecDense {
	out := make([]float64, s.dim)
	copy(out, s.mean)
	return mat.NewVecDense(s.dim, out)
}

// Cov returns Vt + Valpha/N, the law-of-total-variance posterior
// covariance estimate.
func (s *Summary) Cov() *mat.SymDense {
	out := mat.NewSymDense(s.dim, nil)
	n := float64(s.n)
	for r := 0; r < s.dim; r++ {
		for c := r; c < s.dim; c++ {
			idx := r*s.dim + c
			val := s.vt[idx]
			if n > 0 {
				val += s.valpha[idx] / n
			}
			out.SetSym(r, c, val)
		}
	}
	return out
}
