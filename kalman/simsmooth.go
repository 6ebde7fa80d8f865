package kalman

import (
	"math"

	"github.com/milosgajdos/bssm-go/filter"
	"github.com/milosgajdos/bssm-go/matrix"
	"gonum.org/v1/gonum/mat"
)

// SimSmooth draws one exact draw from the smoothing distribution p(alpha |
// y) via the Durbin-Koopman simulation smoother (spec §4.2): simulate a
// state trajectory alpha+ and synthetic observations y+ from the model,
// then return alphahat(y) - alphahat(y+) + alpha+.
//
// The antithetic variant is intentionally not exposed (design note 9(b)).
func SimSmooth(m filter.GaussianModel, y []float64, src filter.Source) ([]mat.Vector, error) {
	n := m.N()
	mDim, _ := m.Dims()

	alphaPlus := make([]*mat.VecDense, n)
	yPlus := make([]float64, n)

	p1Root, _ := matrix.PartialCholesky(m.P1())
	a0 := addScaledNoise(m.A1(), p1Root, src)

	aCur := a0
	for t := 0; t < n; t++ {
		alphaPlus[t] = aCur

		z := m.Z(t)
		signal := mat.Dot(z, aCur)
		if !isMissing(y[t]) {
			hEps := src.Normal(1)[0] * sqrtNonNeg(m.HH(t))
			yPlus[t] = signal + hEps
		} else {
			yPlus[t] = missingValue()
		}

		rr := denseOf(m.RR(t))
		rrSym := matrix.Symmetrize(rr)
		rrRoot, _ := matrix.PartialCholesky(rrSym)
		mean := mat.NewVecDense(mDim, nil)
		mean.MulVec(m.T(t), aCur)
		aCur = addScaledNoise(mean, rrRoot, src)
	}

	resY, err := Filter(m, y)
	if err != nil {
		return nil, err
	}
	resYPlus, err := Filter(m, yPlus)
	if err != nil {
		return nil, err
	}

	smoothedY, err := FastSmooth(m, resY)
	if err != nil {
		return nil, err
	}
	smoothedYPlus, err := FastSmooth(m, resYPlus)
	if err != nil {
		return nil, err
	}

	draw := make([]mat.Vector, n)
	for t := 0; t < n; t++ {
		d := mat.NewVecDense(mDim, nil)
		d.SubVec(smoothedY[t], smoothedYPlus[t])
		d.AddVec(d, alphaPlus[t])
		draw[t] = d
	}

	return draw, nil
}

func addScaledNoise(mean mat.Vector, root *mat.Dense, src filter.Source) *mat.VecDense {
	n, _ := root.Dims()
	z := mat.NewVecDense(n, src.Normal(n))
	out := mat.NewVecDense(n, nil)
	out.MulVec(root, z)
	out.AddVec(out, mean)
	return out
}

func denseOf(m mat.Matrix) *mat.Dense {
	if d, ok := m.(*mat.Dense); ok {
		return d
	}
	return mat.DenseCopyOf(m)
}

func sqrtNonNeg(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Sqrt(v)
}

func isMissing(y float64) bool {
	return math.IsNaN(y)
}

func missingValue() float64 {
	return math.NaN()
}
