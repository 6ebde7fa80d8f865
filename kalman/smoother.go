package kalman

import (
	"github.com/milosgajdos/bssm-go/estimate"
	"github.com/milosgajdos/bssm-go/filter"
	"gonum.org/v1/gonum/mat"
)

// backwardMeans runs the shared backward r-recursion (spec §4.2's classical
// smoother) and returns the smoothed state means alphahat_t, t = 0..n-1.
// It is the core shared by both Smooth and FastSmooth: the fast smoother
// skips the accompanying N-recursion that Smooth uses to also produce
// smoothed covariances.
func backwardMeans(m filter.GaussianModel, res *Result) []*mat.VecDense {
	n := m.N()
	mDim, _ := m.Dims()

	r := mat.NewVecDense(mDim, nil)
	alphahat := make([]*mat.VecDense, n)

	for t := n - 1; t >= 0; t-- {
		step := res.steps[t]
		z := m.Z(t)
		tm := m.T(t)

		var rPrev *mat.VecDense
		if step.Updated {
			l := lMatrix(tm, step.K, z)

			rPrev = mat.NewVecDense(mDim, nil)
			rPrev.AddScaledVec(rPrev, step.V/step.F, z)

			ltr := new(mat.VecDense)
			ltr.MulVec(l.T(), r)
			rPrev.AddVec(rPrev, ltr)
		} else {
			rPrev = new(mat.VecDense)
			rPrev.MulVec(tm.T(), r)
		}

		aPred := res.Predicted[t].Val()
		pPred := res.Predicted[t].Cov()

		a := mat.NewVecDense(mDim, nil)
		a.MulVec(pPred, rPrev)
		a.AddVec(a, aPred)

		alphahat[t] = a
		r = rPrev
	}

	return alphahat
}

// lMatrix computes L_t = T_t (I - K_t Z_t').
func lMatrix(tm mat.Matrix, k *mat.VecDense, z mat.Vector) *mat.Dense {
	n, _ := tm.Dims()
	kz := mat.NewDense(n, n, nil)
	kz.Outer(1, k, z)

	imKZ := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := -kz.At(i, j)
			if i == j {
				v++
			}
			imKZ.Set(i, j, v)
		}
	}

	l := new(mat.Dense)
	l.Mul(tm, imKZ)
	return l
}

// nMatrices runs the backward N-recursion accompanying the r-recursion, used
// by Smooth to also produce smoothed covariances V_t = P_t - P_t N_{t-1} P_t.
func nMatrices(m filter.GaussianModel, res *Result) []*mat.SymDense {
	n := m.N()
	mDim, _ := m.Dims()

	nMat := mat.NewSymDense(mDim, nil)
	out := make([]*mat.SymDense, n)

	for t := n - 1; t >= 0; t-- {
		step := res.steps[t]
		z := m.Z(t)
		tm := m.T(t)

		var nPrev *mat.SymDense
		if step.Updated {
			l := lMatrix(tm, step.K, z)

			zzt := mat.NewDense(mDim, mDim, nil)
			zzt.Outer(1/step.F, z, z)

			ltnl := new(mat.Dense)
			ltnl.Mul(l.T(), nMat)
			ltnl.Mul(ltnl, l)

			sum := mat.NewDense(mDim, mDim, nil)
			sum.Add(zzt, ltnl)
			nPrev = symmetrizeDense(sum)
		} else {
			tnt := new(mat.Dense)
			tnt.Mul(tm.T(), nMat)
			tnt.Mul(tnt, tm)
			nPrev = symmetrizeDense(tnt)
		}

		out[t] = nPrev
		nMat = nPrev
	}

	return out
}

func symmetrizeDense(d *mat.Dense) *mat.SymDense {
	n, _ := d.Dims()
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, 0.5*(d.At(i, j)+d.At(j, i)))
		}
	}
	return sym
}

// FastSmooth produces only the smoothed state means alphahat_t in a single
// backward pass, reusing res's cached per-step v, F, K internals (spec
// §4.2's fast-smoother caching overload); L is recomputed from K per step.
func FastSmooth(m filter.GaussianModel, res *Result) ([]mat.Vector, error) {
	means := backwardMeans(m, res)
	out := make([]mat.Vector, len(means))
	for i, a := range means {
		out[i] = a
	}
	return out, nil
}

// Smooth runs the classical smoother: the backward r/N recursion producing
// both smoothed means and covariances (spec §4.2's classical smoother).
func Smooth(m filter.GaussianModel, res *Result) ([]filter.Estimate, error) {
	means := backwardMeans(m, res)
	covs := nMatrices(m, res)

	out := make([]filter.Estimate, len(means))
	for t := range means {
		pPred := res.Predicted[t].Cov()
		v := subtractPNP(pPred, covs[t])
		out[t] = estimate.NewBaseWithCov(means[t], v)
	}
	return out, nil
}

// subtractPNP computes V_t = P_t - P_t N_{t-1} P_t.
func subtractPNP(p mat.Symmetric, n mat.Symmetric) *mat.SymDense {
	dim := p.Symmetric()
	pn := new(mat.Dense)
	pn.Mul(p, n)
	pnp := new(mat.Dense)
	pnp.Mul(pn, p)

	out := mat.NewSymDense(dim, nil)
	for i := 0; i < dim; i++ {
		for j := i; j < dim; j++ {
			out.SetSym(i, j, 0.5*(p.At(i, j)+p.At(j, i))-0.5*(pnp.At(i, j)+pnp.At(j, i)))
		}
	}
	return out
}
