package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// NewRegression builds a local-level model with an exogenous regression
// component: the observation loading at time t is [1, x(t)]', a genuinely
// time-varying Z built via NewVarying (spec's GaussianSystem X,β
// extension), so the fitted level absorbs y(t) - x(t)'beta. The regression
// coefficients ride along as zero-process-noise, zero-initial-variance
// state components (the same deterministic-initial-condition convention
// PartialCholesky uses for a delta state), so they are filtered like any
// other state element rather than concentrated out beforehand.
//
// theta0 must list [sigma_level, sigma_obs, beta_1, ..., beta_p] in that
// order; layout.XBetaStart/XBetaLen record where beta lives inside theta
// (spec's θ-index bookkeeping), used by Pack/Unpack to translate between
// theta and the assembled system matrices.
func NewRegression(y []float64, x *mat.Dense, theta0 []float64) (*Gaussian, error) {
	n, p := x.Dims()
	if n != len(y) {
		return nil, fmt.Errorf("model: regression design matrix has %d rows, y has %d", n, len(y))
	}
	if len(theta0) != 2+p {
		return nil, fmt.Errorf("model: regression theta0 must have length %d (sigma_level, sigma_obs, %d beta), got %d", 2+p, p, len(theta0))
	}

	layout := ThetaLayout{XBetaStart: 2, XBetaLen: p}
	m := p + 1

	build := func(theta []float64) (GaussianSystem, error) {
		beta := theta[layout.XBetaStart : layout.XBetaStart+layout.XBetaLen]

		zVals := make([]*mat.VecDense, n)
		for t := 0; t < n; t++ {
			row := make([]float64, m)
			row[0] = 1
			for j := 0; j < p; j++ {
				row[j+1] = x.At(t, j)
			}
			zVals[t] = mat.NewVecDense(m, row)
		}
		z := NewVarying(zVals)

		sigmaLevel := theta[0]
		sigmaObs := theta[1]
		hh := NewStatic(sigmaObs * sigmaObs)

		tm := mat.NewDense(m, m, nil)
		for j := 0; j < m; j++ {
			tm.Set(j, j, 1)
		}
		tStatic := NewStatic(tm)

		rrData := make([]float64, m*m)
		rrData[0] = sigmaLevel * sigmaLevel
		rr := NewStatic(mat.NewSymDense(m, rrData))

		a1 := mat.NewVecDense(m, nil)
		for j := 0; j < p; j++ {
			a1.SetVec(j+1, beta[j])
		}
		p1Data := make([]float64, m*m)
		p1Data[0] = 10
		p1 := mat.NewSymDense(m, p1Data)

		return GaussianSystem{Z: z, HH: hh, T: tStatic, RR: rr, A1: a1, P1: p1}, nil
	}

	priors := make(PriorSet, 2+p)
	priors[0] = NewHalfNormal(1)
	priors[1] = NewHalfNormal(1)
	for j := 0; j < p; j++ {
		priors[2+j] = NewNormal(0, 10)
	}

	return NewGaussian(y, m, m, priors, theta0, build, nil)
}

// RegressionLayout returns the θ-index layout NewRegression uses for a
// design matrix with p covariates, for callers that need to Pack/Unpack a
// theta vector against the assembled system matrices directly.
func RegressionLayout(p int) ThetaLayout {
	return ThetaLayout{XBetaStart: 2, XBetaLen: p}
}
