package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// GaussianSystem is the fully assembled linear-Gaussian state-space system
// matrices produced by a Build for one value of theta (spec §3's Z, HH, T,
// RR, a1, P1).
type GaussianSystem struct {
	Z  TimeVarying[*mat.VecDense]
	HH TimeVarying[float64]
	T  TimeVarying[*mat.Dense]
	RR TimeVarying[*mat.SymDense]
	A1 *mat.VecDense
	P1 *mat.SymDense
}

// Build constructs a GaussianSystem for a given theta. Models are
// callback-driven (design note 9.2): a Build closure is an opaque function
// value, never a host pointer, so the same mechanism covers time-invariant,
// time-varying and parameter-dependent system matrices uniformly.
type Build func(theta []float64) (GaussianSystem, error)

// Adjust computes the log-Jacobian correction for a reparameterized
// proposal theta -> thetaNext (e.g. sampling a variance in log space). A
// nil Adjust is treated as the zero correction.
type Adjust func(theta, thetaNext []float64) float64

// Gaussian is a general time-varying linear-Gaussian state-space model. It
// implements filter.GaussianModel.
type Gaussian struct {
	y      []float64
	m, k   int
	priors PriorSet
	build  Build
	adjust Adjust

	theta []float64
	sys   GaussianSystem
}

// NewGaussian constructs a Gaussian model from observations y, state
// dimension m, disturbance dimension k, a prior set, a Build closure and an
// optional Adjust closure (nil for no reparameterization correction). The
// model is initialized at theta0.
func NewGaussian(y []float64, m, k int, priors PriorSet, theta0 []float64, build Build, adjust Adjust) (*Gaussian, error) {
	if build == nil {
		return nil, fmt.Errorf("model: Gaussian requires a non-nil Build")
	}
	if len(priors) != len(theta0) {
		return nil, fmt.Errorf("model: theta0 has length %d, priors has length %d", len(theta0), len(priors))
	}

	g := &Gaussian{
		y:      y,
		m:      m,
		k:      k,
		priors: priors,
		build:  build,
		adjust: adjust,
	}
	if err := g.Update(theta0); err != nil {
		return nil, fmt.Errorf("model: initializing Gaussian: %w", err)
	}
	return g, nil
}

// Update rebuilds the system matrices for theta and overwrites the current
// snapshot. It implements filter.Model.
func (g *Gaussian) Update(theta []float64) error {
	sys, err := g.build(theta)
	if err != nil {
		return fmt.Errorf("model: building Gaussian system: %w", err)
	}
	t := make([]float64, len(theta))
	copy(t, theta)
	g.theta = t
	g.sys = sys
	return nil
}

// Theta returns a copy of the current parameter snapshot.
func (g *Gaussian) Theta() []float64 {
	t := make([]float64, len(g.theta))
	copy(t, g.theta)
	return t
}

// LogPrior evaluates the sum of per-parameter prior log-densities.
func (g *Gaussian) LogPrior(theta []float64) float64 {
	lp, err := g.priors.LogDensity(theta)
	if err != nil {
		return math.Inf(-1)
	}
	return lp
}

// ProposeAdjustment returns the reparameterization log-Jacobian correction.
func (g *Gaussian) ProposeAdjustment(theta, thetaNext []float64) float64 {
	if g.adjust == nil {
		return 0
	}
	return g.adjust(theta, thetaNext)
}

// Dims returns the state and disturbance dimensions.
func (g *Gaussian) Dims() (m, k int) {
	return g.m, g.k
}

// Z returns the observation loading vector at time t.
func (g *Gaussian) Z(t int) mat.Vector { return g.sys.Z.At(t) }

// HH returns the observation noise variance at time t.
func (g *Gaussian) HH(t int) float64 { return g.sys.HH.At(t) }

// T returns the transition matrix at time t.
func (g *Gaussian) T(t int) mat.Matrix { return g.sys.T.At(t) }

// RR returns the state noise covariance at time t.
func (g *Gaussian) RR(t int) mat.Matrix { return g.sys.RR.At(t) }

// A1 returns the initial state mean.
func (g *Gaussian) A1() mat.Vector { return g.sys.A1 }

// P1 returns the initial state covariance.
func (g *Gaussian) P1() mat.Symmetric { return g.sys.P1 }

// N returns the number of observations.
func (g *Gaussian) N() int { return len(g.y) }

// Y returns the observation series.
func (g *Gaussian) Y() []float64 { return g.y }
