package estimate

import "gonum.org/v1/gonum/mat"

// Base is base estimate: a state (and, optionally, output) estimate
// carrying its own covariance. It implements filter.Estimate.
type Base struct {
	// state is system state
	state mat.Vector
	// output is system output
	output mat.Vector
	// cov is the state covariance; nil means it has not been supplied
	// and must be derived from state via Covariance.
	cov mat.Symmetric
}

// NewBase returns base information estimate with no explicit covariance.
// Covariance queries fall back to the outer-product estimator.
func NewBase(state, output mat.Vector) *Base {
	return &Base{
		state:  state,
		output: output,
	}
}

// NewBaseWithCov returns a base estimate carrying its own covariance, as
// produced by a Kalman or particle filtering step.
func NewBaseWithCov(state mat.Vector, cov mat.Symmetric) *Base {
	return &Base{
		state: state,
		cov:   cov,
	}
}

// State returns state estimate
func (b *Base) State() mat.Vector {
	return b.state
}

// Output returns output estimate
func (b *Base) Output() mat.Vector {
	return b.output
}

// Val returns the state estimate. It implements filter.Estimate.
func (b *Base) Val() mat.Vector {
	return b.state
}

// Covariance returns covariance estimate. If the estimate was built with an
// explicit covariance, it is returned unchanged; otherwise it falls back to
// the outer-product estimator over the state vector.
func (b *Base) Covariance() mat.Symmetric {
	if b.cov != nil {
		return b.cov
	}

	cov := mat.NewSymDense(b.state.Len(), nil)
	dim := cov.Symmetric()

	for r := 0; r < dim; r++ {
		for c := 0; c < dim; c++ {
			cov.SetSym(r, c, b.state.AtVec(r)*b.state.T().At(0, c))
		}
	}
	cov.ScaleSym(1/float64(b.state.Len()-1), cov)

	return cov
}

// Cov returns the estimate's covariance. It implements filter.Estimate.
func (b *Base) Cov() mat.Symmetric {
	return b.Covariance()
}
