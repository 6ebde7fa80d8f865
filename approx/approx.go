// Package approx builds a local Gaussian approximation of a non-Gaussian or
// nonlinear model around a mode, by iteratively reweighted Gaussian
// approximation (IRGA): each iteration linearizes the observation density
// at the current mode into pseudo-observations and pseudo-variances, runs
// the fast (means-only) Kalman smoother, and refines the mode.
package approx

import (
	"math"

	"github.com/milosgajdos/bssm-go/filter"
	"github.com/milosgajdos/bssm-go/kalman"
	"gonum.org/v1/gonum/mat"
)

// PseudoObsModel is a non-Gaussian model that can linearize its observation
// density around a signal (the linear predictor Z(t)'mu_t).
type PseudoObsModel interface {
	filter.Model
	N() int
	Y() []float64
	Z(t int) mat.Vector
	T(t int) mat.Matrix
	RR(t int) mat.Matrix
	A1() mat.Vector
	P1() mat.Symmetric
	Observed(t int) bool
	// PseudoObs returns the working observation and working variance at
	// time t, linearizing the observation log-density around signal.
	PseudoObs(t int, signal float64) (ytilde, pseudoVar float64)
	// LogObsDensity returns the true non-Gaussian observation log-density
	// of y[t] given state x at time t.
	LogObsDensity(t int, x mat.Vector) float64
}

// pseudoModel is the local Gaussian system produced by one IRGA iteration.
// It implements filter.GaussianModel so the Kalman engine can run on it
// unmodified.
type pseudoModel struct {
	inner PseudoObsModel
	y     []float64
	hh    []float64
}

func (p *pseudoModel) Update(theta []float64) error                      { return p.inner.Update(theta) }
func (p *pseudoModel) Theta() []float64                                  { return p.inner.Theta() }
func (p *pseudoModel) LogPrior(theta []float64) float64                  { return p.inner.LogPrior(theta) }
func (p *pseudoModel) ProposeAdjustment(theta, next []float64) float64   { return p.inner.ProposeAdjustment(theta, next) }
func (p *pseudoModel) Dims() (m, k int)                                  { return p.inner.Dims() }
func (p *pseudoModel) Z(t int) mat.Vector                                { return p.inner.Z(t) }
func (p *pseudoModel) HH(t int) float64                                  { return p.hh[t] }
func (p *pseudoModel) T(t int) mat.Matrix                                { return p.inner.T(t) }
func (p *pseudoModel) RR(t int) mat.Matrix                               { return p.inner.RR(t) }
func (p *pseudoModel) A1() mat.Vector                                    { return p.inner.A1() }
func (p *pseudoModel) P1() mat.Symmetric                                 { return p.inner.P1() }
func (p *pseudoModel) N() int                                            { return p.inner.N() }
func (p *pseudoModel) Y() []float64                                      { return p.y }

// Gaussian runs the IRGA loop (spec §4.4) starting from mode mu0, for at
// most maxIter iterations or until the relative change in the mode falls
// below convTol. It returns the final pseudo-Gaussian model, the converged
// (or last) mode at t=0, a scalar log-weight correction used as an importance-
// weight base, and whether the loop converged before maxIter.
func Gaussian(m PseudoObsModel, mu0 mat.Vector, maxIter int, convTol float64) (filter.GaussianModel, mat.Vector, float64, bool, error) {
	n := m.N()

	// modes[t] holds the current linearization point at time t; every
	// iteration re-linearizes PseudoObs around its own time step's
	// smoothed state, not a single state shared across the whole series.
	modes := make([]*mat.VecDense, n)
	for t := range modes {
		modes[t] = mat.VecDenseCopyOf(mu0)
	}

	var pm *pseudoModel
	converged := false

	for iter := 0; iter < maxIter; iter++ {
		y := make([]float64, n)
		hh := make([]float64, n)
		for t := 0; t < n; t++ {
			if !m.Observed(t) {
				y[t] = math.NaN()
				hh[t] = 1
				continue
			}
			signal := mat.Dot(m.Z(t), modes[t])
			ytilde, pvar := m.PseudoObs(t, signal)
			y[t] = ytilde
			hh[t] = pvar
		}
		pm = &pseudoModel{inner: m, y: y, hh: hh}

		res, err := kalman.Filter(pm, y)
		if err != nil {
			return nil, nil, 0, false, err
		}
		smoothed, err := kalman.FastSmooth(pm, res)
		if err != nil {
			return nil, nil, 0, false, err
		}

		var maxRel float64
		newModes := make([]*mat.VecDense, n)
		for t := 0; t < n; t++ {
			newModes[t] = mat.VecDenseCopyOf(smoothed[t])
			rel := modeRelChange(modes[t], newModes[t])
			if rel > maxRel {
				maxRel = rel
			}
		}
		modes = newModes

		if maxRel < convTol {
			converged = true
			break
		}
	}

	logWeight := logWeightCorrection(m, pm, modes)
	return pm, modes[0], logWeight, converged, nil
}

func modeRelChange(old, new_ *mat.VecDense) float64 {
	var maxRel float64
	for i := 0; i < old.Len(); i++ {
		denom := math.Abs(old.AtVec(i))
		if denom < 1e-12 {
			denom = 1e-12
		}
		rel := math.Abs(new_.AtVec(i)-old.AtVec(i)) / denom
		if rel > maxRel {
			maxRel = rel
		}
	}
	return maxRel
}

// logWeightCorrection is the scalar importance-weight base: the summed
// log-density ratio between the true non-Gaussian observation density and
// the pseudo-Gaussian approximation's density, evaluated at each time
// step's own converged mode.
func logWeightCorrection(m PseudoObsModel, pm *pseudoModel, modes []*mat.VecDense) float64 {
	var sum float64
	for t := 0; t < m.N(); t++ {
		if !m.Observed(t) {
			continue
		}
		mode := modes[t]
		signal := mat.Dot(m.Z(t), mode)
		ytilde := pm.y[t]
		hh := pm.hh[t]
		gaussLogDens := -0.5 * (math.Log(2*math.Pi*hh) + (ytilde-signal)*(ytilde-signal)/hh)
		sum += m.LogObsDensity(t, mode) - gaussLogDens
	}
	return sum
}
