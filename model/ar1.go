package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// NewAR1 builds a univariate AR(1)-plus-noise local-level system: state
// transition rho, state noise sd sigma, observation noise sd H, initial
// state mean mu.
// theta = [rho, log(sigma), log(H)] when rho is left free (stationary is
// true), or [log(sigma), log(H)] when the model is constrained to rho=1
// (a random walk, "nonstationary" AR(1)).
//
// This is a thin parameterization over Gaussian, grounded on the teacher's
// pattern (model.Base/sim.BaseModel) of wrapping raw system matrices rather
// than re-deriving the general machinery per model kind.
func NewAR1(y []float64, mu float64, stationary bool, priors PriorSet, theta0 []float64) (*Gaussian, error) {
	build := func(theta []float64) (GaussianSystem, error) {
		var rho, sigma, h float64
		if stationary {
			if len(theta) != 3 {
				return GaussianSystem{}, fmt.Errorf("model: AR1 theta needs 3 entries, got %d", len(theta))
			}
			rho, sigma, h = theta[0], math.Exp(theta[1]), math.Exp(theta[2])
			if math.Abs(rho) >= 1 {
				return GaussianSystem{}, fmt.Errorf("model: AR1 requires |rho|<1, got %f", rho)
			}
		} else {
			if len(theta) != 2 {
				return GaussianSystem{}, fmt.Errorf("model: random-walk AR1 theta needs 2 entries, got %d", len(theta))
			}
			rho, sigma, h = 1, math.Exp(theta[0]), math.Exp(theta[1])
		}

		z := NewStatic(mat.NewVecDense(1, []float64{1}))
		hh := NewStatic(h * h)
		tm := NewStatic(mat.NewDense(1, 1, []float64{rho}))
		rr := NewStatic(mat.NewSymDense(1, []float64{sigma * sigma}))

		a1 := mat.NewVecDense(1, []float64{mu})
		var p1Val float64
		if stationary {
			p1Val = sigma * sigma / (1 - rho*rho)
		} else {
			p1Val = sigma * sigma * 1e6
		}
		p1 := mat.NewSymDense(1, []float64{p1Val})

		return GaussianSystem{Z: z, HH: hh, T: tm, RR: rr, A1: a1, P1: p1}, nil
	}

	return NewGaussian(y, 1, 1, priors, theta0, build, nil)
}
