package mcmc

import (
	"github.com/milosgajdos/bssm-go/matrix"
	"gonum.org/v1/gonum/mat"
)

// ThetaSummary reports the posterior mean and covariance of a stored
// parameter chain, honoring deduplicated-storage visit counts (a
// Result.Counts entry of k means that unique sample was visited k times and
// must be weighted accordingly, not treated as one draw).
func ThetaSummary(theta *mat.Dense, counts []int) ([]float64, *mat.SymDense, error) {
	p, n := theta.Dims()

	total := n
	if counts != nil {
		total = 0
		for _, c := range counts {
			if c <= 0 {
				c = 1
			}
			total += c
		}
	}

	expanded := mat.NewDense(p, total, nil)
	col := 0
	for j := 0; j < n; j++ {
		reps := 1
		if counts != nil {
			reps = counts[j]
			if reps <= 0 {
				reps = 1
			}
		}
		for r := 0; r < reps; r++ {
			for i := 0; i < p; i++ {
				expanded.Set(i, col, theta.At(i, j))
			}
			col++
		}
	}

	mean := matrix.ColsMean(expanded)
	cov, err := matrix.Cov(expanded)
	if err != nil {
		return nil, nil, err
	}
	return mean, cov, nil
}

// PosteriorLogDensity evaluates the log density of theta under the
// Gaussian approximation (mean, cov) of a chain's posterior, e.g. as
// returned by ThetaSummary — useful for a Laplace-style evidence estimate
// or for seeding a new chain's RAM proposal scale from a finished one.
func PosteriorLogDensity(theta, mean []float64, cov *mat.SymDense) (float64, error) {
	x := mat.NewVecDense(len(theta), theta)
	m := mat.NewVecDense(len(mean), mean)
	return matrix.MVNLogDensity(x, m, cov)
}
