// Package predict implements the two forecasting flavors: a closed-form
// Gaussian forecast that propagates the Kalman recursion's predictive mean
// and variance beyond the observed sample, and a simulation forecast that
// draws forward trajectories from sampled terminal states (spec "4.7
// Predictor").
package predict

import (
	"fmt"
	"math"
	"sort"

	"github.com/milosgajdos/bssm-go/filter"
	"github.com/milosgajdos/bssm-go/kalman"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Interval selects whether a forecast's variance includes the state
// uncertainty alone, or the state plus observation-noise uncertainty.
type Interval int

const (
	// StateInterval summarizes the latent signal Z_t' a_t.
	StateInterval Interval = 1
	// ObservationInterval additionally adds HH_t, the observation-noise
	// variance.
	ObservationInterval Interval = 2
)

// Summary is one forecast step's mean, variance, and requested quantiles.
type Summary struct {
	Mean      float64
	Variance  float64
	Quantiles map[float64]float64
}

// Gaussian runs the closed-form forecast (spec "(a) Closed-form Gaussian
// forecast"): for theta's model m, it filters to the end of the observed
// sample, then propagates the predictive mean Z_t' a_t and variance
// Z_t' P_t Z_t (plus HH_t under ObservationInterval) for nAhead steps
// beyond it, summarizing each step by the requested quantile
// probabilities.
func Gaussian(m filter.GaussianModel, nAhead int, probs []float64, interval Interval) ([]Summary, error) {
	if nAhead <= 0 {
		return nil, fmt.Errorf("predict: n_ahead must be positive, got %d", nAhead)
	}

	res, err := kalman.Filter(m, m.Y())
	if err != nil {
		return nil, err
	}
	n := m.N()
	a := res.Predicted[n].Val()
	p := res.Predicted[n].Cov()

	out := make([]Summary, nAhead)
	for h := 0; h < nAhead; h++ {
		t := n + h
		z := zAt(m, t)
		tm := m.T(t)
		rr := m.RR(t)

		mean := mat.Dot(z, a)
		tmp := mat.NewVecDense(p.Symmetric(), nil)
		tmp.MulVec(p, z)
		variance := mat.Dot(z, tmp)

		if interval == ObservationInterval {
			variance += m.HH(t)
		}

		out[h] = Summary{Mean: mean, Variance: variance, Quantiles: quantiles(mean, variance, probs)}

		aNext := mat.NewVecDense(a.Len(), nil)
		aNext.MulVec(tm, a)
		pNext := new(mat.Dense)
		pNext.Mul(tm, p)
		pNext.Mul(pNext, tm.T())
		pNext.Add(pNext, rr)
		a = aNext
		p = symmetrize(pNext)
	}
	return out, nil
}

// zAt clamps t to the last observed index n-1, so forecast steps past the
// sample reuse the final Z.
func zAt(m filter.GaussianModel, t int) mat.Vector {
	if t >= m.N() {
		return m.Z(m.N() - 1)
	}
	return m.Z(t)
}

func symmetrize(d *mat.Dense) *mat.SymDense {
	n, _ := d.Dims()
	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			out.SetSym(i, j, 0.5*(d.At(i, j)+d.At(j, i)))
		}
	}
	return out
}

func quantiles(mean, variance float64, probs []float64) map[float64]float64 {
	out := make(map[float64]float64, len(probs))
	if variance < 0 {
		variance = 0
	}
	d := distuv.Normal{Mu: mean, Sigma: math.Sqrt(variance)}
	for _, p := range probs {
		out[p] = d.Quantile(p)
	}
	return out
}

// Simulate draws nsim forward trajectories of length nAhead from the
// particle model m, each starting from one of the supplied terminal
// states, by repeatedly sampling the transition and, under
// ObservationInterval, the observation density (spec "(b) Simulation
// forecast"). It returns, per simulated trajectory, the state path and —
// when interval is ObservationInterval — the simulated observation path.
func Simulate(m filter.ParticleModel, terminal []mat.Vector, nAhead int, interval Interval, src filter.Source) (states [][]mat.Vector, obs [][]float64) {
	nsim := len(terminal)
	states = make([][]mat.Vector, nsim)
	if interval == ObservationInterval {
		obs = make([][]float64, nsim)
	}

	n := m.N()
	for i := 0; i < nsim; i++ {
		x := terminal[i]
		path := make([]mat.Vector, nAhead)
		var obsPath []float64
		if interval == ObservationInterval {
			obsPath = make([]float64, nAhead)
		}
		for h := 0; h < nAhead; h++ {
			t := n + h
			x = m.Propagate(t-1, x, src)
			path[h] = x
			if interval == ObservationInterval {
				obsPath[h] = simulateObservation(m, t, x, src)
			}
		}
		states[i] = path
		if interval == ObservationInterval {
			obs[i] = obsPath
		}
	}
	return states, obs
}

// obsSampler is implemented by particle models that can draw from their
// own observation density (model.NonGaussian, model.SV, model.Nonlinear,
// model.SDE all implement it); Simulate requires it under
// ObservationInterval.
type obsSampler interface {
	SampleObs(t int, x mat.Vector, src filter.Source) float64
}

// simulateObservation draws y_t from m's observation density at state x.
func simulateObservation(m filter.ParticleModel, t int, x mat.Vector, src filter.Source) float64 {
	s, ok := m.(obsSampler)
	if !ok {
		return math.NaN()
	}
	return s.SampleObs(t, x, src)
}

// SortedProbs returns probs sorted ascending, the order Gaussian expects
// when quantiles must be reported in increasing order.
func SortedProbs(probs []float64) []float64 {
	out := append([]float64(nil), probs...)
	sort.Float64s(out)
	return out
}
