package mcmc

import "gonum.org/v1/gonum/mat"

// store implements deduplicated parameter-sample storage (spec
// "Deduplicated storage: non-accepted steps increment the visit count of
// the last unique sample rather than appending").
type store struct {
	p       int
	thetas  [][]float64
	counts  []int
	logdens []float64
}

func newStore(p int) *store {
	return &store{p: p}
}

// push appends a new unique sample.
func (s *store) push(theta []float64, logdens float64) {
	t := make([]float64, s.p)
	copy(t, theta)
	s.thetas = append(s.thetas, t)
	s.counts = append(s.counts, 1)
	s.logdens = append(s.logdens, logdens)
}

// bump increments the visit count of the most recently stored sample (the
// chain stayed there this iteration).
func (s *store) bump() {
	if len(s.counts) == 0 {
		return
	}
	s.counts[len(s.counts)-1]++
}

// theta returns the p x n_unique stored-sample matrix.
func (s *store) theta() *mat.Dense {
	n := len(s.thetas)
	out := mat.NewDense(s.p, n, nil)
	for j, row := range s.thetas {
		for i, v := range row {
			out.Set(i, j, v)
		}
	}
	return out
}
