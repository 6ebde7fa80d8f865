// Package kalman implements the univariate Kalman filter, classical and
// fast state smoothers, and the Durbin-Koopman simulation smoother for any
// model satisfying filter.GaussianModel.
package kalman

import (
	"github.com/milosgajdos/bssm-go/estimate"
	"github.com/milosgajdos/bssm-go/filter"
	"github.com/milosgajdos/bssm-go/matrix"
	"gonum.org/v1/gonum/mat"
)

// Result is the output of Filter: per-step predicted and filtered
// estimates, the cumulative log-likelihood, and the cached per-step
// univariate-update internals (v, F, K) the smoothers reuse.
type Result struct {
	// Predicted holds a_t, P_t for t = 0..n (n+1 entries).
	Predicted []filter.Estimate
	// Filtered holds a_t|t, P_t|t for t = 0..n-1.
	Filtered []filter.Estimate
	// LogLik is the cumulative observation log-likelihood.
	LogLik float64

	steps []*matrix.UnivariateStep
}

// Filter runs the univariate Kalman filter recursion (spec §4.2) over m's
// system matrices against observations y.
func Filter(m filter.GaussianModel, y []float64) (*Result, error) {
	n := m.N()

	res := &Result{
		Predicted: make([]filter.Estimate, 0, n+1),
		Filtered:  make([]filter.Estimate, 0, n),
		steps:     make([]*matrix.UnivariateStep, n),
	}
	res.Predicted = append(res.Predicted, estimate.NewBaseWithCov(m.A1(), m.P1()))

	aCur, pCur := m.A1(), m.P1()
	var loglik float64

	for t := 0; t < n; t++ {
		z := m.Z(t)
		step := matrix.UnivariateUpdate(aCur, pCur, z, m.HH(t), y[t])
		res.steps[t] = step
		loglik += step.LogLik

		var aFilt mat.Vector
		var pFilt mat.Symmetric
		if step.Updated {
			aFilt, pFilt = step.A, step.P
		} else {
			aFilt, pFilt = aCur, pCur
		}
		res.Filtered = append(res.Filtered, estimate.NewBaseWithCov(aFilt, pFilt))

		aNext, pNext := matrix.Predict(aFilt, pFilt, m.T(t), m.RR(t))
		res.Predicted = append(res.Predicted, estimate.NewBaseWithCov(aNext, pNext))
		aCur, pCur = aNext, pNext
	}

	res.LogLik = loglik
	return res, nil
}

// LogLik is a convenience wrapper returning only the filter's cumulative
// log-likelihood, for use by the plain-MH MCMC variant.
func LogLik(m filter.GaussianModel, y []float64) (float64, error) {
	res, err := Filter(m, y)
	if err != nil {
		return 0, err
	}
	return res.LogLik, nil
}
