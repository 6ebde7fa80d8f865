package model

import (
	"fmt"
	"math"

	"github.com/milosgajdos/bssm-go/approx"
	"github.com/milosgajdos/bssm-go/filter"
	"github.com/milosgajdos/bssm-go/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Distribution tags the recognized non-Gaussian observation families
// (spec §3's non-Gaussian extension).
type Distribution int

const (
	Poisson Distribution = iota
	Binomial
	NegBinomial
)

// NonGaussian is an exponential-family observation model over a
// linear-Gaussian state skeleton: Z, T, RR, a1, P1 behave exactly like
// model.Gaussian, but the observation density is Poisson, binomial or
// negative-binomial rather than Gaussian, parameterized by a per-time
// dispersion/rate multiplier Phi.
type NonGaussian struct {
	y      []float64
	dist   Distribution
	phi    TimeVarying[float64]
	m, k   int
	priors PriorSet
	build  Build
	adjust Adjust

	theta []float64
	sys   GaussianSystem
}

// NewNonGaussian constructs a NonGaussian model. build must return a
// GaussianSystem whose HH field is ignored (the observation is not
// Gaussian); it still supplies Z, T, RR, A1, P1.
func NewNonGaussian(y []float64, dist Distribution, phi TimeVarying[float64], m, k int, priors PriorSet, theta0 []float64, build Build, adjust Adjust) (*NonGaussian, error) {
	if build == nil {
		return nil, fmt.Errorf("model: NonGaussian requires a non-nil Build")
	}
	ng := &NonGaussian{y: y, dist: dist, phi: phi, m: m, k: k, priors: priors, build: build, adjust: adjust}
	if err := ng.Update(theta0); err != nil {
		return nil, fmt.Errorf("model: initializing NonGaussian: %w", err)
	}
	return ng, nil
}

// Update implements filter.Model.
func (ng *NonGaussian) Update(theta []float64) error {
	sys, err := ng.build(theta)
	if err != nil {
		return fmt.Errorf("model: building NonGaussian system: %w", err)
	}
	t := make([]float64, len(theta))
	copy(t, theta)
	ng.theta = t
	ng.sys = sys
	return nil
}

// Theta implements filter.Model.
func (ng *NonGaussian) Theta() []float64 {
	t := make([]float64, len(ng.theta))
	copy(t, ng.theta)
	return t
}

// LogPrior implements filter.Model.
func (ng *NonGaussian) LogPrior(theta []float64) float64 {
	lp, err := ng.priors.LogDensity(theta)
	if err != nil {
		return math.Inf(-1)
	}
	return lp
}

// ProposeAdjustment implements filter.Model.
func (ng *NonGaussian) ProposeAdjustment(theta, thetaNext []float64) float64 {
	if ng.adjust == nil {
		return 0
	}
	return ng.adjust(theta, thetaNext)
}

// Dims implements filter.Model.
func (ng *NonGaussian) Dims() (m, k int) { return ng.m, ng.k }

// N returns the number of observations.
func (ng *NonGaussian) N() int { return len(ng.y) }

// Y returns the observation series.
func (ng *NonGaussian) Y() []float64 { return ng.y }

// Observed reports whether y[t] is a non-missing entry.
func (ng *NonGaussian) Observed(t int) bool { return !math.IsNaN(ng.y[t]) }

// Z, T, RR, A1, P1 expose the Gaussian state skeleton, used by the
// approximation engine to build the pseudo-Gaussian linearization.
func (ng *NonGaussian) Z(t int) mat.Vector    { return ng.sys.Z.At(t) }
func (ng *NonGaussian) T(t int) mat.Matrix    { return ng.sys.T.At(t) }
func (ng *NonGaussian) RR(t int) mat.Matrix   { return ng.sys.RR.At(t) }
func (ng *NonGaussian) A1() mat.Vector        { return ng.sys.A1 }
func (ng *NonGaussian) P1() mat.Symmetric     { return ng.sys.P1 }
func (ng *NonGaussian) Phi(t int) float64     { return ng.phi.At(t) }
func (ng *NonGaussian) Kind() Distribution    { return ng.dist }

// SignalMean returns the linear predictor Z(t)'x for state x at time t.
func (ng *NonGaussian) SignalMean(t int, x mat.Vector) float64 {
	return mat.Dot(ng.Z(t), x)
}

// LogObsDensity returns the log observation density of y[t] given the
// linear predictor produced by state x at time t, for use by particle
// filters (filter.ParticleModel).
func (ng *NonGaussian) LogObsDensity(t int, x mat.Vector) float64 {
	if !ng.Observed(t) {
		return 0
	}
	signal := ng.SignalMean(t, x)
	y := ng.y[t]
	phi := ng.phi.At(t)

	switch ng.dist {
	case Poisson:
		rate := phi * math.Exp(signal)
		if rate <= 0 || math.IsInf(rate, 1) {
			return math.Inf(-1)
		}
		d := distuv.Poisson{Lambda: rate}
		return d.LogProb(y)
	case Binomial:
		p := 1 / (1 + math.Exp(-signal))
		d := distuv.Binomial{N: phi, P: p}
		return d.LogProb(y)
	case NegBinomial:
		mean := math.Exp(signal)
		if mean <= 0 || math.IsInf(mean, 1) {
			return math.Inf(-1)
		}
		// phi is the dispersion (size) parameter: Var = mean + mean^2/phi.
		p := mean / (phi + mean)
		d := distuv.Binomial{N: phi + y, P: p}
		// distuv has no native negative-binomial; the log-pmf is the
		// standard NB2 form built from the same gamma-Poisson mixture
		// normalizer used by the Binomial's log-combinatorial term.
		return d.LogProb(y) - nbNormalizationCorrection(phi, y)
	default:
		return math.Inf(-1)
	}
}

// nbNormalizationCorrection adjusts the Binomial(phi+y, mean/(phi+mean))
// log-pmf evaluated at y into the negative-binomial(phi, mean) log-pmf: the
// two combinatorial terms, C(phi+y-1, y) vs C(phi+y, y), differ by
// log((phi+y)/phi).
func nbNormalizationCorrection(phi, y float64) float64 {
	return math.Log((phi + y) / phi)
}

// PseudoObs linearizes the observation log-density around signal,
// returning the working (pseudo-)observation and working variance whose
// first two derivatives match the true log-density at signal (spec §4.4's
// IRGA construction). It implements approx.PseudoObsModel.
func (ng *NonGaussian) PseudoObs(t int, signal float64) (ytilde, pseudoVar float64) {
	if !ng.Observed(t) {
		return math.NaN(), 1
	}
	y := ng.y[t]
	phi := ng.phi.At(t)

	switch ng.dist {
	case Poisson:
		mean := phi * math.Exp(signal)
		if mean < 1e-10 {
			mean = 1e-10
		}
		weight := mean
		ytilde = signal + (y-mean)/weight
		pseudoVar = 1 / weight
	case Binomial:
		p := 1 / (1 + math.Exp(-signal))
		mean := phi * p
		weight := phi * p * (1 - p)
		if weight < 1e-10 {
			weight = 1e-10
		}
		ytilde = signal + (y-mean)/weight
		pseudoVar = 1 / weight
	case NegBinomial:
		mean := math.Exp(signal)
		if mean < 1e-10 {
			mean = 1e-10
		}
		// score phi(y-mean)/(phi+mean), curvature phi*mean*(phi+y)/(phi+mean)^2
		weight := phi * mean * (phi + y) / ((phi + mean) * (phi + mean))
		if weight < 1e-10 {
			weight = 1e-10
		}
		ytilde = signal + (y-mean)*phi/(phi+mean)/weight
		pseudoVar = 1 / weight
	default:
		ytilde, pseudoVar = signal, 1
	}
	return ytilde, pseudoVar
}

// Approximate builds the IRGA local Gaussian approximation around mu0. It
// implements filter.ApproximatingModel by delegating to approx.Gaussian.
func (ng *NonGaussian) Approximate(mu0 mat.Vector, maxIter int, convTol float64) (filter.GaussianModel, mat.Vector, float64, bool, error) {
	return approx.Gaussian(ng, mu0, maxIter, convTol)
}

// SampleState0 draws an initial state from N(a1, P1). It implements
// filter.ParticleModel.
func (ng *NonGaussian) SampleState0(src filter.Source) mat.Vector {
	return sampleGaussian(ng.sys.A1, ng.sys.P1, src)
}

// Propagate draws the next state given state x at time t, through the
// linear transition T(t) plus process noise with covariance RR(t). It
// implements filter.ParticleModel.
func (ng *NonGaussian) Propagate(t int, x mat.Vector, src filter.Source) mat.Vector {
	mean := mat.NewVecDense(ng.m, nil)
	mean.MulVec(ng.sys.T.At(t), x)
	noise := sampleGaussian(mat.NewVecDense(ng.m, nil), ng.sys.RR.At(t), src)
	mean.AddVec(mean, noise)
	return mean
}

// SampleObs draws a single observation from the observation density at
// state x, using only src (Normal/Uniform) so simulation forecasts stay
// reproducible under a fixed seed like every other draw in this module.
func (ng *NonGaussian) SampleObs(t int, x mat.Vector, src filter.Source) float64 {
	signal := ng.SignalMean(t, x)
	phi := ng.phi.At(t)

	switch ng.dist {
	case Poisson:
		rate := phi * math.Exp(signal)
		return samplePoisson(rate, src)
	case Binomial:
		p := 1 / (1 + math.Exp(-signal))
		return sampleBinomialNormalApprox(phi, p, src)
	case NegBinomial:
		// normal approximation with the NB2 mean and variance
		mean := math.Exp(signal)
		variance := mean + mean*mean/phi
		draw := math.Round(mean + math.Sqrt(variance)*src.Normal(1)[0])
		if draw < 0 {
			draw = 0
		}
		return draw
	default:
		return math.NaN()
	}
}

// samplePoisson draws from Poisson(lambda) via Knuth's product-of-
// uniforms algorithm.
func samplePoisson(lambda float64, src filter.Source) float64 {
	if lambda <= 0 {
		return 0
	}
	l := math.Exp(-lambda)
	k := 0.0
	p := 1.0
	for {
		k++
		p *= src.Uniform()
		if p <= l {
			break
		}
	}
	return k - 1
}

// sampleBinomialNormalApprox draws from Binomial(n, p) via the normal
// approximation, rounded and clamped to [0, n].
func sampleBinomialNormalApprox(n, p float64, src filter.Source) float64 {
	mean := n * p
	variance := n * p * (1 - p)
	if variance <= 0 {
		return math.Round(mean)
	}
	draw := mean + math.Sqrt(variance)*src.Normal(1)[0]
	draw = math.Round(draw)
	if draw < 0 {
		draw = 0
	}
	if draw > n {
		draw = n
	}
	return draw
}

// sampleGaussian draws a single N(mean, cov) sample using src, via
// rand.WithCovN's SVD square root so cov may be singular. A factorization
// failure (cov not PSD) falls back to returning mean unperturbed, matching
// the degenerate-covariance convention used elsewhere in this package.
func sampleGaussian(mean mat.Vector, cov mat.Symmetric, src filter.Source) mat.Vector {
	n := cov.Symmetric()
	draw, err := rand.WithCovN(cov, 1, src)
	if err != nil {
		out := mat.NewVecDense(n, nil)
		out.CloneFromVec(mean)
		return out
	}
	out := mat.NewVecDense(n, mat.Col(nil, 0, draw))
	out.AddVec(out, mean)
	return out
}
