package mcmc

import (
	"fmt"
	"math"

	"github.com/milosgajdos/bssm-go/filter"
	"github.com/milosgajdos/bssm-go/particle/bsf"
	"github.com/milosgajdos/bssm-go/particle/psi"
	"github.com/milosgajdos/bssm-go/ram"
)

// PMModel is the minimal capability a pseudo-marginal chain needs: a model
// simulable enough for the particle-filter likelihood estimate. An SDE
// model, which has no Gaussian approximation, satisfies this and can run
// pseudo-marginal MH via the BSF back-end; the psi/SPDK back-ends need
// more, asserted in estimateLogLik (see ApproxPMModel).
type PMModel interface {
	filter.ParticleModel
}

// ApproxPMModel is the capability set the delayed-acceptance and
// IS-corrected variants need: a PMModel that can also construct a local
// Gaussian approximation, since both variants' cheap stage always runs
// against the converged pseudo-Gaussian's own likelihood.
type ApproxPMModel interface {
	PMModel
	filter.ApproximatingModel
}

// estimateLogLik returns one particle-filter unbiased log-likelihood
// estimate for m at its current theta, using the back-end selected by
// cfg.Method. The psi/SPDK back-ends require m to additionally implement
// filter.ApproximatingModel; the BSF back-end does not.
func estimateLogLik(m PMModel, cfg Config, src filter.Source) (float64, error) {
	switch cfg.Method {
	case BSF:
		res, err := bsf.Filter(m, cfg.NSimStates, src)
		if err != nil {
			return 0, err
		}
		return res.LogLik, nil
	case PSI, SPDK:
		am, ok := m.(filter.ApproximatingModel)
		if !ok {
			return 0, fmt.Errorf("mcmc: psi/SPDK back-end requires a model implementing ApproximatingModel")
		}
		approxModel, _, _, _, err := am.Approximate(cfg.InitialMode, cfg.MaxIter, cfg.ConvTol)
		if err != nil {
			return 0, err
		}
		if cfg.Method == PSI {
			res, err := psi.Filter(m, approxModel, cfg.NSimStates, src)
			if err != nil {
				return 0, err
			}
			return res.LogLik, nil
		}
		res, err := psi.FilterSPDK(m, approxModel, cfg.NSimStates, src)
		if err != nil {
			return 0, err
		}
		return res.LogLik, nil
	default:
		return 0, fmt.Errorf("mcmc: unknown simulation method %d", cfg.Method)
	}
}

// RunPseudoMarginal runs pseudo-marginal Metropolis-Hastings (spec
// "Pseudo-marginal MH (non-Gaussian, SDE)"): the exact likelihood is
// replaced by a particle-filter unbiased estimate, and upon acceptance
// that noisy estimate is retained as the chain's current log-likelihood
// so the chain targets the correct augmented joint distribution.
func RunPseudoMarginal(m PMModel, cfg Config, src filter.Source) (*Result, error) {
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
	llCur, err := estimateLogLik(m, cfg, src)
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
		var llProp float64

		if !math.IsInf(lpProp, -1) {
			if err := m.Update(thetaProp); err != nil {
				lpProp = math.Inf(-1)
			} else {
				llProp, err = estimateLogLik(m, cfg, src)
				if err != nil {
					return nil, err
				}
				q := m.ProposeAdjustment(theta, thetaProp)
				logAlpha := (llProp + lpProp) - (llCur + lpCur) + q
				alpha = math.Min(1, math.Exp(logAlpha))
				accept = src.Uniform() < alpha
			}
		}

		if accept {
			theta = thetaProp
			llCur, lpCur = llProp, lpProp
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
				st.push(theta, llCur+lpCur)
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
