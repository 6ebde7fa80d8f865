// Package filter defines the capability interfaces shared by every
// state-space model and every algorithm (Kalman, particle, MCMC) that
// operates on it.
package filter

import "gonum.org/v1/gonum/mat"

// Model is the minimal capability every state-space model exposes to an
// inference algorithm: it can report and update its parameter vector theta
// and evaluate its prior.
type Model interface {
	// Update sets the model's current parameter snapshot to theta and
	// recomputes any cached system matrices. It returns an error if theta
	// is out of the model's support.
	Update(theta []float64) error
	// Theta returns the model's current parameter vector.
	Theta() []float64
	// LogPrior returns the log prior density of theta.
	LogPrior(theta []float64) float64
	// ProposeAdjustment returns the log-Jacobian correction for a
	// reparameterized proposal theta -> thetaNext (e.g. sampling in log
	// space). It is zero for an identity reparameterization.
	ProposeAdjustment(theta, thetaNext []float64) float64
	// Dims reports the state dimension m and disturbance dimension k.
	Dims() (m, k int)
}

// GaussianModel is a Model whose observation and state equations are
// linear-Gaussian, exposing the system matrices by time index t.
type GaussianModel interface {
	Model
	// Z returns the m-vector observation loading at time t.
	Z(t int) mat.Vector
	// HH returns the observation noise variance H[t]^2 at time t.
	HH(t int) float64
	// T returns the m x m transition matrix at time t.
	T(t int) mat.Matrix
	// RR returns the m x m state noise covariance R[t] R[t]' at time t.
	RR(t int) mat.Matrix
	// A1 returns the initial state mean.
	A1() mat.Vector
	// P1 returns the initial state covariance.
	P1() mat.Symmetric
	// N returns the length of the observation series.
	N() int
	// Y returns the observation series; missing entries are math.NaN().
	Y() []float64
}

// ApproximatingModel is a non-Gaussian (or nonlinear) model that can
// construct a local Gaussian approximation around a mode.
type ApproximatingModel interface {
	Model
	// Approximate builds a pseudo-Gaussian model whose pseudo-observations
	// and pseudo-variances match the first two derivatives of the
	// non-Gaussian log-density at mu0, iterating at most maxIter times or
	// until the relative change in the mode falls below convTol. It
	// returns the final pseudo-model, the converged (or last) mode at t=0, the
	// scalar log-weight correction, and whether it converged.
	Approximate(mu0 mat.Vector, maxIter int, convTol float64) (GaussianModel, mat.Vector, float64, bool, error)
}

// ParticleModel is a model that can be simulated and densitied for use
// inside a particle filter.
type ParticleModel interface {
	Model
	// SampleState0 draws an initial state from the model's prior a1, P1
	// using src as the source of randomness.
	SampleState0(src Source) mat.Vector
	// Propagate draws the next state given the current state x at time t.
	Propagate(t int, x mat.Vector, src Source) mat.Vector
	// LogObsDensity returns the log observation density of y[t] given
	// state x at time t. It returns math.Inf(-1) for an impossible state.
	LogObsDensity(t int, x mat.Vector) float64
	// N returns the length of the observation series.
	N() int
	// Y returns the observation series.
	Y() []float64
	// Observed reports whether y[t] is an observed (non-missing) entry.
	Observed(t int) bool
}

// Source is a seeded source of randomness owned by a single engine or
// worker. No global RNG is ever shared between concurrent workers.
type Source interface {
	// Normal draws n independent standard normal values.
	Normal(n int) []float64
	// Uniform draws a single uniform value in [0,1).
	Uniform() float64
	// Seed reports the seed the source was constructed with.
	Seed() uint64
}

// Noise is a source of additive process or measurement noise.
type Noise interface {
	// Sample draws a single noise vector.
	Sample() mat.Vector
	// Cov returns the noise covariance.
	Cov() mat.Symmetric
	// Mean returns the noise mean.
	Mean() []float64
	// Reset reseeds the noise's internal distribution.
	Reset() error
}

// InitCond is a model's initial state distribution.
type InitCond interface {
	// State returns the initial state mean a1.
	State() mat.Vector
	// Cov returns the initial state covariance P1.
	Cov() mat.Symmetric
}

// Estimate is a filtered, predicted or smoothed state with its covariance.
type Estimate interface {
	// Val returns the state estimate.
	Val() mat.Vector
	// Cov returns the estimate's covariance.
	Cov() mat.Symmetric
}

// Smoother produces smoothed estimates from a sequence of filtered ones.
type Smoother interface {
	// Smooth returns the smoothed estimates corresponding to est.
	Smooth(est []Estimate) ([]Estimate, error)
}
