package model

import (
	"fmt"
	"math"

	"github.com/milosgajdos/bssm-go/filter"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// JacFunc mirrors the teacher's EKF/ERTS Jacobian-function convention: given
// the current theta and time index, it returns a closure fd.Jacobian can
// call directly as the function whose Jacobian is wanted.
type JacFunc func(theta []float64, t int) func(y, x []float64)

// Nonlinear is a callback-driven nonlinear/non-Gaussian state-space model:
// Z, H, T, R, the optional ZgFunc/TgFunc, the initial-state functions a1/P1
// and log_prior_pdf are all opaque function values (design note 9.2 — never
// a host pointer type). Jacobians are always obtained via gonum/diff/fd
// central differences: of the function ZgFunc/TgFunc return when they are
// set, of ZFunc/TFunc when they are nil. No analytic Jacobian is read from
// the callbacks.
type Nonlinear struct {
	y []float64

	// ZFunc is the scalar observation signal: y_t | alpha_t ~ N(ZFunc(alpha,
	// theta, t), HFunc(theta, t)^2).
	ZFunc func(alpha, theta []float64, t int) float64
	HFunc func(theta []float64, t int) float64
	// TFunc returns the noise-free state transition.
	TFunc func(alpha, theta []float64, t int) []float64
	// RFunc returns the m x k disturbance loading at time t.
	RFunc func(theta []float64, t int) *mat.Dense

	ZgFunc JacFunc
	TgFunc JacFunc

	A1Func       func(theta []float64) *mat.VecDense
	P1Func       func(theta []float64) *mat.SymDense
	LogPriorFunc func(theta []float64) float64
	AdjustFunc   Adjust

	KnownParams   []float64
	KnownTVParams *mat.Dense
	// TimeVarying bitmaps whether Z, H, T, R respectively vary by time.
	TimeVarying [4]bool

	m, k  int
	theta []float64
}

// NewNonlinear constructs a Nonlinear model and validates it at theta0.
func NewNonlinear(y []float64, m, k int, theta0 []float64, n *Nonlinear) (*Nonlinear, error) {
	if n.ZFunc == nil || n.TFunc == nil || n.HFunc == nil || n.RFunc == nil || n.A1Func == nil || n.P1Func == nil || n.LogPriorFunc == nil {
		return nil, fmt.Errorf("model: Nonlinear requires Z/H/T/R/A1/P1/LogPrior callbacks")
	}
	n.y = y
	n.m, n.k = m, k
	if err := n.Update(theta0); err != nil {
		return nil, fmt.Errorf("model: initializing Nonlinear: %w", err)
	}
	return n, nil
}

func (n *Nonlinear) Update(theta []float64) error {
	t := make([]float64, len(theta))
	copy(t, theta)
	n.theta = t
	return nil
}

func (n *Nonlinear) Theta() []float64 {
	t := make([]float64, len(n.theta))
	copy(t, n.theta)
	return t
}

func (n *Nonlinear) LogPrior(theta []float64) float64 { return n.LogPriorFunc(theta) }

func (n *Nonlinear) ProposeAdjustment(theta, next []float64) float64 {
	if n.AdjustFunc == nil {
		return 0
	}
	return n.AdjustFunc(theta, next)
}

func (n *Nonlinear) Dims() (m, k int)    { return n.m, n.k }
func (n *Nonlinear) N() int              { return len(n.y) }
func (n *Nonlinear) Observed(t int) bool { return !math.IsNaN(n.y[t]) }

// Y returns the observation series. It implements filter.ParticleModel.
func (n *Nonlinear) Y() []float64 { return n.y }

// SampleState0 draws an initial state from N(A1Func(theta), P1Func(theta)).
// It implements filter.ParticleModel.
func (n *Nonlinear) SampleState0(src filter.Source) mat.Vector {
	return sampleGaussian(n.A1Func(n.theta), n.P1Func(n.theta), src)
}

// Propagate draws the next state through TFunc plus process noise with
// covariance R(t) R(t)'. It implements filter.ParticleModel.
func (n *Nonlinear) Propagate(t int, x mat.Vector, src filter.Source) mat.Vector {
	alpha := vecData(x)
	next := n.TFunc(alpha, n.theta, t)
	mean := mat.NewVecDense(len(next), next)

	r := n.RFunc(n.theta, t)
	rr := new(mat.Dense)
	rr.Mul(r, r.T())
	rrSym := symmetricOf(rr)

	noise := sampleGaussian(mat.NewVecDense(n.m, nil), rrSym, src)
	mean.AddVec(mean, noise)
	return mean
}

// LogObsDensity returns log N(y_t; ZFunc(alpha,theta,t), HFunc(theta,t)^2).
// It implements filter.ParticleModel.
func (n *Nonlinear) LogObsDensity(t int, x mat.Vector) float64 {
	if !n.Observed(t) {
		return 0
	}
	alpha := vecData(x)
	mean := n.ZFunc(alpha, n.theta, t)
	sd := n.HFunc(n.theta, t)
	d := distuv.Normal{Mu: mean, Sigma: sd}
	return d.LogProb(n.y[t])
}

// SampleObs draws y_t ~ N(ZFunc(alpha,theta,t), HFunc(theta,t)^2) at state x.
func (n *Nonlinear) SampleObs(t int, x mat.Vector, src filter.Source) float64 {
	alpha := vecData(x)
	mean := n.ZFunc(alpha, n.theta, t)
	sd := n.HFunc(n.theta, t)
	return mean + sd*src.Normal(1)[0]
}

// LinearizeAt computes the EKF-style linearization of Z and T around state
// alpha at time t: the observation loading Zg and transition Jacobian Tg.
// Both are gonum/diff/fd central differences, taken of the function
// ZgFunc/TgFunc return when set and of ZFunc/TFunc when they are nil.
func (n *Nonlinear) LinearizeAt(alpha []float64, t int) (z mat.Vector, tg *mat.Dense) {
	zJac := mat.NewDense(1, n.m, nil)
	if n.ZgFunc != nil {
		fd.Jacobian(zJac, n.ZgFunc(n.theta, t), alpha, &fd.JacobianSettings{Formula: fd.Central})
	} else {
		f := func(y, x []float64) { y[0] = n.ZFunc(x, n.theta, t) }
		fd.Jacobian(zJac, f, alpha, &fd.JacobianSettings{Formula: fd.Central})
	}
	zVec := mat.NewVecDense(n.m, mat.Row(nil, 0, zJac))

	tJac := mat.NewDense(n.m, n.m, nil)
	if n.TgFunc != nil {
		fd.Jacobian(tJac, n.TgFunc(n.theta, t), alpha, &fd.JacobianSettings{Formula: fd.Central})
	} else {
		f := func(y, x []float64) { copy(y, n.TFunc(x, n.theta, t)) }
		fd.Jacobian(tJac, f, alpha, &fd.JacobianSettings{Formula: fd.Central})
	}

	return zVec, tJac
}

func vecData(v mat.Vector) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}

func symmetricOf(d *mat.Dense) mat.Symmetric {
	n, _ := d.Dims()
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, 0.5*(d.At(i, j)+d.At(j, i)))
		}
	}
	return sym
}
