package model

import (
	"math"

	"github.com/milosgajdos/bssm-go/filter"
	"gonum.org/v1/gonum/mat"
)

// SDE is a scalar state-space model whose latent process is driven by a
// stochastic differential equation dx = mu(x,theta) dt + sigma(x,theta) dW,
// discretized by Euler-Maruyama at refinement level L (step = 2^-L between
// observations). DiffusionDerivFunc, when non-nil, enables the Milstein
// correction term.
type SDE struct {
	y []float64

	DriftFunc          func(x float64, theta []float64) float64
	DiffusionFunc      func(x float64, theta []float64) float64
	DiffusionDerivFunc func(x float64, theta []float64) float64
	ObsLogDensityFunc  func(y, x float64, theta []float64) float64
	// ObsSampleFunc draws y given the latent state and src's uniform/normal
	// draws; optional, needed only for simulation forecasting.
	ObsSampleFunc func(x float64, theta []float64, src filter.Source) float64
	X0Func        func(theta []float64) float64
	LogPriorFunc       func(theta []float64) float64
	AdjustFunc         Adjust

	// L is the discretization refinement level: each unit observation
	// interval is subdivided into 2^L Euler-Maruyama substeps.
	L int

	theta []float64
}

// NewSDE constructs an SDE model.
func NewSDE(y []float64, l int, theta0 []float64, s *SDE) *SDE {
	s.y = y
	s.L = l
	s.theta = append([]float64(nil), theta0...)
	return s
}

func (s *SDE) Update(theta []float64) error {
	t := make([]float64, len(theta))
	copy(t, theta)
	s.theta = t
	return nil
}

func (s *SDE) Theta() []float64 {
	t := make([]float64, len(s.theta))
	copy(t, s.theta)
	return t
}

func (s *SDE) LogPrior(theta []float64) float64 { return s.LogPriorFunc(theta) }

func (s *SDE) ProposeAdjustment(theta, next []float64) float64 {
	if s.AdjustFunc == nil {
		return 0
	}
	return s.AdjustFunc(theta, next)
}

func (s *SDE) Dims() (m, k int)   { return 1, 1 }
func (s *SDE) N() int             { return len(s.y) }
func (s *SDE) Y() []float64       { return s.y }
func (s *SDE) Observed(t int) bool { return !math.IsNaN(s.y[t]) }

// substeps is the number of Euler-Maruyama substeps per unit observation
// interval, and h is their step size.
func (s *SDE) substeps() (n int, h float64) {
	n = 1 << s.L
	h = 1 / float64(n)
	return n, h
}

// eulerMaruyama advances x by one substep of size h using src for the
// Wiener increment, with an optional Milstein correction when
// DiffusionDerivFunc is set.
func (s *SDE) eulerMaruyama(x, h float64, src filter.Source) float64 {
	mu := s.DriftFunc(x, s.theta)
	sigma := s.DiffusionFunc(x, s.theta)
	z := src.Normal(1)[0]
	dw := math.Sqrt(h) * z

	next := x + mu*h + sigma*dw
	if s.DiffusionDerivFunc != nil {
		sigmaP := s.DiffusionDerivFunc(x, s.theta)
		next += 0.5 * sigma * sigmaP * (dw*dw - h)
	}
	return next
}

// SampleState0 draws the initial latent state X0Func(theta). It implements
// filter.ParticleModel.
func (s *SDE) SampleState0(src filter.Source) mat.Vector {
	return mat.NewVecDense(1, []float64{s.X0Func(s.theta)})
}

// Propagate advances the latent state across one full observation interval
// by running 2^L Euler-Maruyama substeps. It implements filter.ParticleModel.
func (s *SDE) Propagate(t int, x mat.Vector, src filter.Source) mat.Vector {
	n, h := s.substeps()
	cur := x.AtVec(0)
	for i := 0; i < n; i++ {
		cur = s.eulerMaruyama(cur, h, src)
	}
	return mat.NewVecDense(1, []float64{cur})
}

// LogObsDensity evaluates the observation log-density at the latent state.
// It implements filter.ParticleModel.
func (s *SDE) LogObsDensity(t int, x mat.Vector) float64 {
	if !s.Observed(t) {
		return 0
	}
	return s.ObsLogDensityFunc(s.y[t], x.AtVec(0), s.theta)
}

// SampleObs draws y_t given state x via ObsSampleFunc. It returns NaN if
// the model was not given one (simulation forecasting is then unsupported
// for this model).
func (s *SDE) SampleObs(t int, x mat.Vector, src filter.Source) float64 {
	if s.ObsSampleFunc == nil {
		return math.NaN()
	}
	return s.ObsSampleFunc(x.AtVec(0), s.theta, src)
}

// Simulate draws one full forward latent-state path of length n, one value
// per observation interval, subdividing each interval into 2^L substeps.
func (s *SDE) Simulate(n int, src filter.Source) []float64 {
	path := make([]float64, n)
	nSub, h := s.substeps()
	cur := s.X0Func(s.theta)
	for t := 0; t < n; t++ {
		for i := 0; i < nSub; i++ {
			cur = s.eulerMaruyama(cur, h, src)
		}
		path[t] = cur
	}
	return path
}
