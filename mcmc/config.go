// Package mcmc implements the shared Metropolis-Hastings loop skeleton and
// its four variants (plain, pseudo-marginal, delayed-acceptance,
// IS-corrected), all driven by a Robust Adaptive Metropolis proposal (spec
// §4.6's "MCMC engine").
package mcmc

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// SimMethod selects the particle-filter back-end a non-Gaussian/SDE MCMC
// variant uses to estimate or correct the likelihood.
type SimMethod int

const (
	// PSI runs the psi-auxiliary particle filter against a converged
	// Gaussian approximation.
	PSI SimMethod = iota
	// BSF runs the plain bootstrap particle filter.
	BSF
	// SPDK runs the psi-APF with stratified-survival (adaptive)
	// resampling.
	SPDK
)

// Config holds every parameter the MCMC engine's four variants share (spec
// §6 "For MCMC").
type Config struct {
	NIter, NBurnin, NThin int
	Gamma, TargetAccept   float64
	S0                    *mat.Dense
	EndRAM                bool
	Seed                  uint64
	NThreads              int
	NSimStates            int
	Method                SimMethod
	MaxIter               int
	ConvTol               float64
	InitialMode           mat.Vector
	LocalApprox           bool
	ConstSim              bool
}

// Validate checks the configuration is self-consistent (spec's
// "configuration errors ... recognized at entry").
func (c Config) Validate(p int) error {
	if c.NIter <= 0 {
		return fmt.Errorf("mcmc: n_iter must be positive, got %d", c.NIter)
	}
	if c.NBurnin < 0 || c.NBurnin > c.NIter {
		return fmt.Errorf("mcmc: n_burnin must be in [0, n_iter], got %d", c.NBurnin)
	}
	if c.NThin <= 0 {
		return fmt.Errorf("mcmc: n_thin must be positive, got %d", c.NThin)
	}
	if c.NThin > 1 {
		return fmt.Errorf("mcmc: n_thin > 1 is incompatible with deduplicated storage, got %d", c.NThin)
	}
	if c.Gamma <= 0.5 || c.Gamma > 1 {
		return fmt.Errorf("mcmc: gamma must be in (0.5, 1], got %f", c.Gamma)
	}
	if c.S0 == nil {
		return fmt.Errorf("mcmc: S0 is required")
	}
	r, cc := c.S0.Dims()
	if r != p || cc != p {
		return fmt.Errorf("mcmc: S0 must be %d x %d, got %d x %d", p, p, r, cc)
	}
	return nil
}

// Result is the common output shape across all four MCMC variants (spec §6
// "Outputs").
type Result struct {
	// Theta is p x n_unique: one column per unique stored sample.
	Theta *mat.Dense
	// Counts is the per-unique-sample visit count for deduplicated
	// storage, one entry per column of Theta.
	Counts []int
	// Posterior holds the stored log-posterior-density values.
	Posterior []float64
	// Weights holds the per-sample IS weight for IS-corrected runs; nil
	// otherwise.
	Weights []float64
	// AcceptanceRate is accepted / (n_iter - n_burnin), counting only
	// acceptances after burn-in.
	AcceptanceRate float64
	// S is the final adapted proposal root.
	S *mat.Dense
}
