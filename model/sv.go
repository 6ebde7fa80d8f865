package model

import (
	"fmt"
	"math"

	"github.com/milosgajdos/bssm-go/approx"
	"github.com/milosgajdos/bssm-go/filter"
	"gonum.org/v1/gonum/mat"
)

// SV is a stochastic-volatility model: y_t | alpha_t ~ N(0, exp(signal_t))
// where signal_t = Z(t)'alpha_t is the log-volatility. It is a log-normal-
// volatility variant of NonGaussian, with its own observation-density and
// pseudo-observation linearization (spec §3's stochastic-volatility
// extension).
type SV struct {
	y      []float64
	m, k   int
	priors PriorSet
	build  Build
	adjust Adjust

	theta []float64
	sys   GaussianSystem
}

// NewSV constructs a stochastic-volatility model.
func NewSV(y []float64, m, k int, priors PriorSet, theta0 []float64, build Build, adjust Adjust) (*SV, error) {
	if build == nil {
		return nil, fmt.Errorf("model: SV requires a non-nil Build")
	}
	sv := &SV{y: y, m: m, k: k, priors: priors, build: build, adjust: adjust}
	if err := sv.Update(theta0); err != nil {
		return nil, fmt.Errorf("model: initializing SV: %w", err)
	}
	return sv, nil
}

func (sv *SV) Update(theta []float64) error {
	sys, err := sv.build(theta)
	if err != nil {
		return fmt.Errorf("model: building SV system: %w", err)
	}
	t := make([]float64, len(theta))
	copy(t, theta)
	sv.theta = t
	sv.sys = sys
	return nil
}

func (sv *SV) Theta() []float64 {
	t := make([]float64, len(sv.theta))
	copy(t, sv.theta)
	return t
}

func (sv *SV) LogPrior(theta []float64) float64 {
	lp, err := sv.priors.LogDensity(theta)
	if err != nil {
		return math.Inf(-1)
	}
	return lp
}

func (sv *SV) ProposeAdjustment(theta, next []float64) float64 {
	if sv.adjust == nil {
		return 0
	}
	return sv.adjust(theta, next)
}

func (sv *SV) Dims() (m, k int) { return sv.m, sv.k }
func (sv *SV) N() int           { return len(sv.y) }
func (sv *SV) Y() []float64     { return sv.y }

func (sv *SV) Observed(t int) bool { return !math.IsNaN(sv.y[t]) }

func (sv *SV) Z(t int) mat.Vector  { return sv.sys.Z.At(t) }
func (sv *SV) T(t int) mat.Matrix  { return sv.sys.T.At(t) }
func (sv *SV) RR(t int) mat.Matrix { return sv.sys.RR.At(t) }
func (sv *SV) A1() mat.Vector      { return sv.sys.A1 }
func (sv *SV) P1() mat.Symmetric   { return sv.sys.P1 }

// minObs2 floors y^2 away from zero so the Newton linearization around
// signal never divides by an exact zero return.
const minObs2 = 1e-8

// LogObsDensity returns log N(y_t; 0, exp(signal)).
func (sv *SV) LogObsDensity(t int, x mat.Vector) float64 {
	if !sv.Observed(t) {
		return 0
	}
	signal := mat.Dot(sv.Z(t), x)
	y2 := sv.y[t] * sv.y[t]
	return -0.5*math.Log(2*math.Pi) - 0.5*signal - 0.5*y2*math.Exp(-signal)
}

// PseudoObs linearizes the SV log-density around signal via one Newton
// step: f(s) = -s/2 - y^2 exp(-s)/2, f'(s) = -1/2 + y^2 exp(-s)/2,
// f''(s) = -y^2 exp(-s)/2; pseudoVar = -1/f''(s), ytilde = s - f'(s)/f''(s).
func (sv *SV) PseudoObs(t int, signal float64) (ytilde, pseudoVar float64) {
	if !sv.Observed(t) {
		return math.NaN(), 1
	}
	y2 := sv.y[t] * sv.y[t]
	if y2 < minObs2 {
		y2 = minObs2
	}
	fpp := -0.5 * y2 * math.Exp(-signal)
	pseudoVar = -1 / fpp
	ytilde = signal + 1 - math.Exp(signal)/y2
	return ytilde, pseudoVar
}

// SampleObs draws y_t ~ N(0, exp(signal)) at state x, using src.
func (sv *SV) SampleObs(t int, x mat.Vector, src filter.Source) float64 {
	signal := mat.Dot(sv.Z(t), x)
	return math.Exp(0.5*signal) * src.Normal(1)[0]
}

// Approximate builds the IRGA local Gaussian approximation around mu0. It
// implements filter.ApproximatingModel.
func (sv *SV) Approximate(mu0 mat.Vector, maxIter int, convTol float64) (filter.GaussianModel, mat.Vector, float64, bool, error) {
	return approx.Gaussian(sv, mu0, maxIter, convTol)
}

// SampleState0 draws an initial state from N(a1, P1). It implements
// filter.ParticleModel.
func (sv *SV) SampleState0(src filter.Source) mat.Vector {
	return sampleGaussian(sv.sys.A1, sv.sys.P1, src)
}

// Propagate draws the next state given state x at time t. It implements
// filter.ParticleModel.
func (sv *SV) Propagate(t int, x mat.Vector, src filter.Source) mat.Vector {
	mean := mat.NewVecDense(sv.m, nil)
	mean.MulVec(sv.sys.T.At(t), x)
	noise := sampleGaussian(mat.NewVecDense(sv.m, nil), sv.sys.RR.At(t), src)
	mean.AddVec(mean, noise)
	return mean
}
