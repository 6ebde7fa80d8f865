package mcmc

import (
	"math"

	"github.com/milosgajdos/bssm-go/filter"
	"github.com/milosgajdos/bssm-go/kalman"
	"github.com/milosgajdos/bssm-go/ram"
)

// surrogateLogLik evaluates the cheap first-stage surrogate: the converged
// Gaussian approximation's own log-likelihood plus its log-weight
// correction (spec "Delayed-acceptance MH").
func surrogateLogLik(m ApproxPMModel, cfg Config, src filter.Source) (float64, error) {
	approxModel, _, logWeightCorrection, _, err := m.Approximate(cfg.InitialMode, cfg.MaxIter, cfg.ConvTol)
	if err != nil {
		return 0, err
	}
	ll, err := kalman.LogLik(approxModel, approxModel.Y())
	if err != nil {
		return 0, err
	}
	return ll + logWeightCorrection, nil
}

// RunDelayedAcceptance runs the two-stage delayed-acceptance MH variant
// (spec "Delayed-acceptance MH"): the first stage tests the cheap
// surrogate; only on first-stage acceptance does the second stage compute
// the particle-filter estimate and perform a second MH test. Rejection at
// either stage returns to the previous sample.
func RunDelayedAcceptance(m ApproxPMModel, cfg Config, src filter.Source) (*Result, error) {
	theta := m.Theta()
	p := len(theta)
	if err := cfg.Validate(p); err != nil {
		return nil, err
	}

	adapter, err := ram.New(cfg.S0, cfg.Gamma, cfg.TargetAccept, cfg.EndRAM, cfg.NBurnin)
	if err != nil {
		return nil, err
	}

	st := newStore(p)
	accepted := 0

	lpCur := m.LogPrior(theta)
	surrCur, err := surrogateLogLik(m, cfg, src)
	if err != nil {
		return nil, err
	}
	exactCur, err := estimateLogLik(m, cfg, src)
	if err != nil {
		return nil, err
	}

	for i := 1; i <= cfg.NIter; i++ {
		u := src.Normal(p)
		step := adapter.Propose(u)
		thetaProp := make([]float64, p)
		for j := range thetaProp {
			thetaProp[j] = theta[j] + step.AtVec(j)
		}

		lpProp := m.LogPrior(thetaProp)
		alpha := 0.0
		accept := false
		var surrProp, exactProp float64

		if !math.IsInf(lpProp, -1) {
			if err := m.Update(thetaProp); err != nil {
				lpProp = math.Inf(-1)
			} else {
				surrProp, err = surrogateLogLik(m, cfg, src)
				if err != nil {
					return nil, err
				}
				q := m.ProposeAdjustment(theta, thetaProp)
				logAlpha1 := (surrProp + lpProp) - (surrCur + lpCur) + q
				alpha1 := math.Min(1, math.Exp(logAlpha1))

				if src.Uniform() < alpha1 {
					exactProp, err = estimateLogLik(m, cfg, src)
					if err != nil {
						return nil, err
					}
					logAlpha2 := (exactProp - surrProp) - (exactCur - surrCur)
					alpha = math.Min(1, math.Exp(logAlpha2))
					accept = src.Uniform() < alpha
				}
			}
		}

		if accept {
			theta = thetaProp
			surrCur, exactCur, lpCur = surrProp, exactProp, lpProp
			if i > cfg.NBurnin {
				accepted++
			}
		} else if err := m.Update(theta); err != nil {
			return nil, err
		}

		if err := adapter.Adapt(u, alpha, i); err != nil {
			return nil, err
		}

		if i > cfg.NBurnin && (i-cfg.NBurnin)%cfg.NThin == 0 {
			if accept || len(st.thetas) == 0 {
				st.push(theta, exactCur+lpCur)
			} else {
				st.bump()
			}
		}
	}

	denom := cfg.NIter - cfg.NBurnin
	rate := 0.0
	if denom > 0 {
		rate = float64(accepted) / float64(denom)
	}

	return &Result{
		Theta:          st.theta(),
		Counts:         st.counts,
		Posterior:      st.logdens,
		AcceptanceRate: rate,
		S:              adapter.S(),
	}, nil
}
