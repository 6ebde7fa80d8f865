// Package dispatch is the single entrypoint that routes a model payload
// and an algorithm tag to the right engine (spec §6 "External interfaces"):
// Kalman filter/smoother, one of the four MCMC variants, or the
// predictor.
package dispatch

import (
	"fmt"

	"github.com/milosgajdos/bssm-go/filter"
	"github.com/milosgajdos/bssm-go/kalman"
	"github.com/milosgajdos/bssm-go/mcmc"
	"github.com/milosgajdos/bssm-go/predict"
	"gonum.org/v1/gonum/mat"
)

// Algorithm tags the family of computation a Request asks for (spec
// "Algorithm tag: {Gaussian-MH, non-Gaussian-{PM, DA, IS}, SDE-{PM, DA,
// IS}, filter-only, smoother-only, predict}").
type Algorithm int

const (
	GaussianMH Algorithm = iota
	NonGaussianPM
	NonGaussianDA
	NonGaussianIS
	SDEPM
	SDEDA
	SDEIS
	FilterOnly
	SmootherOnly
	Predict
)

// PredictConfig selects which predictor flavor and parameters Run(Predict)
// uses.
type PredictConfig struct {
	NAhead   int
	Probs    []float64
	Interval predict.Interval
	// Simulate, when true, runs predict.Simulate instead of the
	// closed-form Gaussian forecast; Terminal supplies its starting
	// states.
	Simulate bool
	Terminal []mat.Vector
}

// Request bundles a model payload with the algorithm tag and per-algorithm
// configuration needed to run it. Model must satisfy whichever capability
// interface Algorithm requires; a mismatch is a configuration error, not a
// panic.
type Request struct {
	Model     interface{}
	Algorithm Algorithm
	MCMC      mcmc.Config
	Predict   PredictConfig
	Src       filter.Source
}

// Result is the union of every engine's possible output. Only the fields
// for the requested Algorithm are populated (SimStates and SimObs together
// for a simulated forecast, otherwise a single field).
// Error is set, with every other field left zero, "on unreachable
// dispatch branches" (spec "Error sentinel").
type Result struct {
	MCMC     *mcmc.Result
	ISMCMC   *mcmc.ISResult
	Filter   *kalman.Result
	Smoothed []filter.Estimate
	Forecast []predict.Summary
	SimStates [][]mat.Vector
	SimObs    [][]float64
	Error     string
}

// Run dispatches req to the engine its Algorithm names.
func Run(req Request) (Result, error) {
	switch req.Algorithm {
	case GaussianMH:
		m, ok := req.Model.(filter.GaussianModel)
		if !ok {
			return errorResult("model does not implement GaussianModel")
		}
		res, err := mcmc.RunGaussian(m, req.MCMC, req.Src)
		if err != nil {
			return Result{}, err
		}
		return Result{MCMC: res}, nil

	case NonGaussianPM, SDEPM:
		m, ok := req.Model.(mcmc.PMModel)
		if !ok {
			return errorResult("model does not implement PMModel")
		}
		res, err := mcmc.RunPseudoMarginal(m, req.MCMC, req.Src)
		if err != nil {
			return Result{}, err
		}
		return Result{MCMC: res}, nil

	case NonGaussianDA, SDEDA:
		m, ok := req.Model.(mcmc.ApproxPMModel)
		if !ok {
			return errorResult("model does not implement ApproxPMModel")
		}
		res, err := mcmc.RunDelayedAcceptance(m, req.MCMC, req.Src)
		if err != nil {
			return Result{}, err
		}
		return Result{MCMC: res}, nil

	case NonGaussianIS, SDEIS:
		m, ok := req.Model.(mcmc.ApproxPMModel)
		if !ok {
			return errorResult("model does not implement ApproxPMModel")
		}
		res, err := mcmc.RunISCorrected(m, req.MCMC, req.Src)
		if err != nil {
			return Result{}, err
		}
		return Result{ISMCMC: res}, nil

	case FilterOnly:
		m, ok := req.Model.(filter.GaussianModel)
		if !ok {
			return errorResult("model does not implement GaussianModel")
		}
		res, err := kalman.Filter(m, m.Y())
		if err != nil {
			return Result{}, err
		}
		return Result{Filter: res}, nil

	case SmootherOnly:
		m, ok := req.Model.(filter.GaussianModel)
		if !ok {
			return errorResult("model does not implement GaussianModel")
		}
		filt, err := kalman.Filter(m, m.Y())
		if err != nil {
			return Result{}, err
		}
		smoothed, err := kalman.Smooth(m, filt)
		if err != nil {
			return Result{}, err
		}
		return Result{Smoothed: smoothed}, nil

	case Predict:
		if req.Predict.Simulate {
			m, ok := req.Model.(filter.ParticleModel)
			if !ok {
				return errorResult("model does not implement ParticleModel")
			}
			states, obs := predict.Simulate(m, req.Predict.Terminal, req.Predict.NAhead, req.Predict.Interval, req.Src)
			return Result{SimStates: states, SimObs: obs}, nil
		}
		m, ok := req.Model.(filter.GaussianModel)
		if !ok {
			return errorResult("model does not implement GaussianModel")
		}
		summaries, err := predict.Gaussian(m, req.Predict.NAhead, req.Predict.Probs, req.Predict.Interval)
		if err != nil {
			return Result{}, err
		}
		return Result{Forecast: summaries}, nil

	default:
		return errorResult(fmt.Sprintf("unknown algorithm tag %d", req.Algorithm))
	}
}

func errorResult(msg string) (Result, error) {
	return Result{Error: msg}, nil
}
