package model

import (
	"fmt"
	"math"

	extmatrix "github.com/milosgajdos/matrix"
	"gonum.org/v1/gonum/mat"
)

// BSMConfig selects which structural components a basic structural model
// (local level + trend + seasonal) includes.
type BSMConfig struct {
	Slope    bool
	Seasonal bool
	Period   int
}

// Dim returns the state dimension implied by the configuration: 1 (level)
// + 1 if Slope + (Period-1) if Seasonal.
func (c BSMConfig) Dim() int {
	d := 1
	if c.Slope {
		d++
	}
	if c.Seasonal {
		d += c.Period - 1
	}
	return d
}

// NewBSM builds a basic structural model: local level, optional local
// linear trend, optional dummy-variable seasonal component of the given
// period. theta is, in order, [log(sigma_level), log(sigma_slope)?,
// log(sigma_seasonal)?, log(H)].
//
// T and RR are assembled as block matrices the way the teacher's ukf.New
// assembles matrix.BlockSymDiag block-covariances for its augmented sigma
// points, reused here for the structural-component noise blocks.
func NewBSM(y []float64, cfg BSMConfig, priors PriorSet, theta0 []float64) (*Gaussian, error) {
	m := cfg.Dim()
	nFree := 1 // level noise
	if cfg.Slope {
		nFree++
	}
	if cfg.Seasonal {
		nFree++
	}
	nFree++ // H

	build := func(theta []float64) (GaussianSystem, error) {
		if len(theta) != nFree {
			return GaussianSystem{}, fmt.Errorf("model: BSM theta needs %d entries, got %d", nFree, len(theta))
		}
		pos := 0
		sigmaLevel := math.Exp(theta[pos])
		pos++
		var sigmaSlope float64
		if cfg.Slope {
			sigmaSlope = math.Exp(theta[pos])
			pos++
		}
		var sigmaSeason float64
		if cfg.Seasonal {
			sigmaSeason = math.Exp(theta[pos])
			pos++
		}
		h := math.Exp(theta[pos])

		zData := make([]float64, m)
		zData[0] = 1
		idx := 1
		if cfg.Slope {
			idx++ // slope does not load directly onto the observation
		}
		if cfg.Seasonal {
			zData[idx] = 1
		}
		z := NewStatic(mat.NewVecDense(m, zData))

		tm := mat.NewDense(m, m, nil)
		tm.Set(0, 0, 1)
		row := 1
		if cfg.Slope {
			tm.Set(0, 1, 1)
			tm.Set(1, 1, 1)
			row = 2
		}
		if cfg.Seasonal {
			s := cfg.Period - 1
			for j := 0; j < s; j++ {
				tm.Set(row, row+j, -1)
			}
			for j := 1; j < s; j++ {
				tm.Set(row+j, row+j-1, 1)
			}
		}

		blocks := []mat.Symmetric{mat.NewSymDense(1, []float64{sigmaLevel * sigmaLevel})}
		if cfg.Slope {
			blocks = append(blocks, mat.NewSymDense(1, []float64{sigmaSlope * sigmaSlope}))
		}
		if cfg.Seasonal {
			s := cfg.Period - 1
			seasonCov := mat.NewSymDense(s, nil)
			seasonCov.SetSym(0, 0, sigmaSeason*sigmaSeason)
			blocks = append(blocks, seasonCov)
		}
		rrBlock := extmatrix.BlockSymDiag(blocks)
		rr := NewStatic(copySym(rrBlock))

		hh := NewStatic(h * h)

		a1 := mat.NewVecDense(m, nil)
		p1 := mat.NewSymDense(m, nil)
		for i := 0; i < m; i++ {
			p1.SetSym(i, i, 1e6)
		}

		return GaussianSystem{Z: z, HH: hh, T: NewStatic(tm), RR: rr, A1: a1, P1: p1}, nil
	}

	return NewGaussian(y, m, m, priors, theta0, build, nil)
}

func copySym(s mat.Symmetric) *mat.SymDense {
	n := s.Symmetric()
	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			out.SetSym(i, j, s.At(i, j))
		}
	}
	return out
}
