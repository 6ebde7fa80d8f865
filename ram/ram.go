// Package ram implements the Robust Adaptive Metropolis self-tuning
// proposal (spec §4.5): after each iteration the proposal's lower
// triangular covariance root is nudged toward the acceptance rate observed
// for that iteration's standardized step, converging the chain's step size
// without requiring a fixed target covariance.
package ram

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Adapter owns one chain's proposal root S (p x p, lower triangular) and
// adapts it iteration by iteration.
type Adapter struct {
	p       int
	s       *mat.Dense
	gamma   float64
	target  float64
	endRAM  bool
	nBurnin int
}

// New creates an Adapter seeded with the initial proposal root s0 (p x p,
// lower triangular), decay gamma in (0.5, 1], target acceptance rate
// target, and the burn-in length after which adaptation freezes if endRAM
// is set.
func New(s0 *mat.Dense, gamma, target float64, endRAM bool, nBurnin int) (*Adapter, error) {
	r, c := s0.Dims()
	if r != c {
		return nil, fmt.Errorf("ram: S0 must be square, got %d x %d", r, c)
	}
	if gamma <= 0.5 || gamma > 1 {
		return nil, fmt.Errorf("ram: gamma must be in (0.5, 1], got %f", gamma)
	}
	s := new(mat.Dense)
	s.CloneFrom(s0)
	return &Adapter{p: r, s: s, gamma: gamma, target: target, endRAM: endRAM, nBurnin: nBurnin}, nil
}

// S returns a copy of the current proposal root.
func (a *Adapter) S() *mat.Dense {
	out := new(mat.Dense)
	out.CloneFrom(a.s)
	return out
}

// Propose draws a proposal step S*u for the standardized innovation u
// (length p, e.g. iid standard normals), i.e. S u.
func (a *Adapter) Propose(u []float64) *mat.VecDense {
	uv := mat.NewVecDense(a.p, u)
	out := mat.NewVecDense(a.p, nil)
	out.MulVec(a.s, uv)
	return out
}

// Adapt updates S after iteration i (1-indexed) with standardized proposal
// u, observed acceptance probability alpha (spec: "out-of-support proposal
// ... acceptance probability set to 0 and the adaptation update still
// runs"). If endRAM is set and i exceeds nBurnin, Adapt is a no-op.
//
// S_{i+1} S_{i+1}' = S_i (I + eta_i (alpha - target) u u' / ||u||^2) S_i',
// with eta_i = min(1, p * i^-gamma). This is computed as a rank-1 update
// of S_i S_i' (a PSD matrix) followed by re-factorization; if the update
// would destroy positive-definiteness the step coefficient is halved and
// the factorization retried, up to 30 attempts, after which Adapt returns
// an error (a numerically necessary safeguard, since alpha-target can be
// as negative as -target).
func (a *Adapter) Adapt(u []float64, alpha float64, i int) error {
	if a.endRAM && i > a.nBurnin {
		return nil
	}
	if len(u) != a.p {
		return fmt.Errorf("ram: u has length %d, want %d", len(u), a.p)
	}

	normU2 := 0.0
	for _, v := range u {
		normU2 += v * v
	}
	if normU2 == 0 {
		return nil
	}

	eta := math.Min(1, float64(a.p)*math.Pow(float64(i), -a.gamma))
	coef := eta * (alpha - a.target) / normU2

	uv := mat.NewVecDense(a.p, u)
	v := mat.NewVecDense(a.p, nil)
	v.MulVec(a.s, uv) // v = S u

	base := new(mat.Dense)
	base.Mul(a.s, a.s.T())

	for attempt := 0; attempt < 30; attempt++ {
		c := mat.NewSymDense(a.p, nil)
		for row := 0; row < a.p; row++ {
			for col := row; col < a.p; col++ {
				val := base.At(row, col) + coef*v.AtVec(row)*v.AtVec(col)
				c.SetSym(row, col, val)
			}
		}

		var chol mat.Cholesky
		if chol.Factorize(c) {
			var lower mat.TriDense
			chol.LTo(&lower)
			a.s.Copy(&lower)
			return nil
		}
		coef *= 0.5 // shrink the step and retry
	}
	return fmt.Errorf("ram: could not maintain positive-definiteness after rank-1 update")
}
