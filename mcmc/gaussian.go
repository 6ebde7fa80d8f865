package mcmc

import (
	"math"

	"github.com/milosgajdos/bssm-go/filter"
	"github.com/milosgajdos/bssm-go/kalman"
	"github.com/milosgajdos/bssm-go/ram"
)

// RunGaussian runs plain Metropolis-Hastings against a Gaussian model's
// exact Kalman log-likelihood (spec "Plain MH (Gaussian models)").
// Acceptance is min(1, exp(ll(theta') - ll(theta) + logprior(theta') -
// logprior(theta) + q)), where q is the reparameterization Jacobian
// correction.
func RunGaussian(m filter.GaussianModel, cfg Config, src filter.Source) (*Result, error) {
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
	llCur, err := kalman.LogLik(m, m.Y())
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
				llProp, err = kalman.LogLik(m, m.Y())
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
			// reverting to the previous theta should never fail since it
			// already validated once; surface it if it somehow does.
			return nil, err
		}

		if err := adapter.Adapt(u, alpha, i); err != nil {
			return nil, err
		}

		if i > cfg.NBurnin && (i-cfg.NBurnin)%cfg.NThin == 0 {
			if accept {
				st.push(theta, llCur+lpCur)
			} else if len(st.thetas) == 0 {
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
