// Package matrix holds the linear-algebra helpers shared by the Kalman,
// approximation and particle engines: the scalar Kalman update/predict
// step, multivariate-normal density evaluation, symmetrization and partial
// Cholesky factorization of a possibly rank-deficient PSD matrix.
package matrix

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// ZeroTol is the numerical tolerance below which a Kalman innovation
// variance F is treated as degenerate and the update step is skipped.
const ZeroTol = 1e-8

// Format returns matrix formatter for printing matrices
func Format(m mat.Matrix) fmt.Formatter {
	return mat.Formatted(m, mat.Prefix(""), mat.Squeeze())
}

// RowSums returns a slice containing m row sums.
// It panics if m is nil.
func RowSums(m *mat.Dense) []float64 {
	rows, _ := m.Dims()
	sum := make([]float64, rows)

	for i := 0; i < rows; i++ {
		sum[i] = floats.Sum(m.RawRowView(i))
	}

	return sum
}

// ColsMean returns, for an m with variables stored in rows and samples in
// columns, the per-row (per-variable) mean across all columns.
// It panics if m is nil
func ColsMean(m *mat.Dense) []float64 {
	_, cols := m.Dims()
	mean := RowSums(m)

	floats.Scale(1/float64(cols), mean)

	return mean
}

// Cov calculates the covariance matrix of m's rows (variables), treating
// each column as one sample; it is the counterpart to ColsMean.
// It returns error if the covariance could not be calculated.
func Cov(m *mat.Dense) (*mat.SymDense, error) {
	// 1. We will calculate the zero-mean matrix x of the data
	// 2. 1/(n-1)(x * x^T) will give us the covariance of the data
	rows, cols := m.Dims()
	mean := ColsMean(m)

	x := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			x.Set(r, c, m.At(r, c)-mean[r])
		}
	}

	cov := new(mat.Dense)
	cov.Mul(x, x.T())
	cov.Scale(1/(float64(cols)-1.0), cov)

	return ToSymDense(cov)
}

// ToSymDense converts m to SymDense (symmetric Dense matrix) if possible.
// It returns error if the provided Dense matrix is not symmetric.
func ToSymDense(m *mat.Dense) (*mat.SymDense, error) {
	r, c := m.Dims()
	if r != c {
		return nil, errors.New("Matrix must be square")
	}

	mT := m.T()
	vals := make([]float64, r*c)
	idx := 0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if i != j && !floats.EqualWithinAbsOrRel(mT.At(i, j), m.At(i, j), 1e-6, 1e-2) {
				return nil, fmt.Errorf("Matrix not symmetric (%d, %d): %.40f != %.40f\n%v",
					i, j, mT.At(i, j), m.At(i, j), Format(m))
			}
			vals[idx] = m.At(i, j)
			idx++
		}
	}

	return mat.NewSymDense(r, vals), nil
}

// Symmetrize averages m with its transpose so that small floating point
// asymmetries introduced by repeated matrix products do not accumulate
// across a long filtering/smoothing recursion.
func Symmetrize(m *mat.Dense) *mat.SymDense {
	r, _ := m.Dims()
	sym := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for j := i; j < r; j++ {
			sym.SetSym(i, j, 0.5*(m.At(i, j)+m.At(j, i)))
		}
	}
	return sym
}

// UnivariateStep holds the outputs of a single scalar Kalman update.
type UnivariateStep struct {
	// A is the filtered state mean a[t|t].
	A *mat.VecDense
	// P is the filtered state covariance P[t|t].
	P *mat.SymDense
	// V is the innovation y[t] - Z[t]'a[t].
	V float64
	// F is the innovation variance Z[t]'P[t]Z[t] + HH[t].
	F float64
	// K is the Kalman gain P[t]Z[t]/F[t].
	K *mat.VecDense
	// LogLik is this step's contribution to the log-likelihood; zero when
	// the step was skipped (missing observation or degenerate F).
	LogLik float64
	// Updated reports whether the correction step actually ran.
	Updated bool
}

// UnivariateUpdate performs one scalar Kalman correction step given the
// predicted state (a, P), observation loading z, observation noise
// variance hh and observed value y (math.NaN() for a missing observation).
// When F <= ZeroTol or y is missing, the step is skipped: it is not an
// error, only silent and expected (spec error taxonomy item 2).
func UnivariateUpdate(a mat.Vector, p mat.Symmetric, z mat.Vector, hh, y float64) *UnivariateStep {
	m := a.Len()

	pz := mat.NewVecDense(m, nil)
	pz.MulVec(p, z)

	f := mat.Dot(z, pz) + hh

	if math.IsNaN(y) || f <= ZeroTol || math.IsInf(f, 0) {
		aCopy := mat.NewVecDense(m, nil)
		aCopy.CloneFromVec(a)
		pCopy := mat.NewSymDense(m, nil)
		pCopy.CopySym(p)
		return &UnivariateStep{A: aCopy, P: pCopy, V: 0, F: f, K: mat.NewVecDense(m, nil), LogLik: 0, Updated: false}
	}

	v := y - mat.Dot(z, a)

	k := mat.NewVecDense(m, nil)
	k.ScaleVec(1/f, pz)

	aUpd := mat.NewVecDense(m, nil)
	aUpd.AddScaledVec(a, v, k)

	// P[t|t] = P[t] - K F K'
	kkt := mat.NewDense(m, m, nil)
	kkt.Mul(k, k.T())
	kkt.Scale(f, kkt)

	pUpdDense := mat.NewDense(m, m, nil)
	pUpdDense.Sub(p, kkt)
	pUpd := Symmetrize(pUpdDense)

	logLik := -0.5 * (math.Log(2*math.Pi) + math.Log(f) + v*v/f)

	return &UnivariateStep{A: aUpd, P: pUpd, V: v, F: f, K: k, LogLik: logLik, Updated: true}
}

// Predict propagates the filtered state (a, P) one step forward through
// transition matrix t and state noise covariance rr, returning the
// predicted mean and symmetrized predicted covariance.
func Predict(a mat.Vector, p mat.Symmetric, t, rr mat.Matrix) (*mat.VecDense, *mat.SymDense) {
	m, _ := t.Dims()

	aNext := mat.NewVecDense(m, nil)
	aNext.MulVec(t, a)

	tp := new(mat.Dense)
	tp.Mul(t, p)
	pNext := new(mat.Dense)
	pNext.Mul(tp, t.T())
	pNext.Add(pNext, rr)

	return aNext, Symmetrize(pNext)
}

// PartialCholesky computes the lower-triangular square root of cov
// restricted to the indices where diag(cov) > 0; the remaining rows and
// columns are left as zero, matching the convention that a zero-variance
// diagonal entry is a deterministic (delta) initial condition, not a
// degenerate distribution to be factorized (design note (c)).
func PartialCholesky(cov mat.Symmetric) (*mat.Dense, []int) {
	n := cov.Symmetric()

	var active []int
	for i := 0; i < n; i++ {
		if cov.At(i, i) > 0 {
			active = append(active, i)
		}
	}

	root := mat.NewDense(n, n, nil)
	if len(active) == 0 {
		return root, active
	}

	sub := mat.NewSymDense(len(active), nil)
	for i, ai := range active {
		for j, aj := range active {
			if j >= i {
				sub.SetSym(i, j, cov.At(ai, aj))
			}
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(sub); ok {
		var l mat.TriDense
		chol.LTo(&l)
		for i, ai := range active {
			for j, aj := range active {
				if j <= i {
					root.Set(ai, aj, l.At(i, j))
				}
			}
		}
	}

	return root, active
}

// MVNLogDensity evaluates the log density of x under a multivariate normal
// with mean mean and covariance cov.
func MVNLogDensity(x, mean mat.Vector, cov mat.Symmetric) (float64, error) {
	n := mean.Len()
	m := make([]float64, n)
	for i := 0; i < n; i++ {
		m[i] = mean.AtVec(i)
	}

	dist, ok := distmv.NewNormal(m, cov, nil)
	if !ok {
		return math.Inf(-1), fmt.Errorf("failed to construct multivariate normal: covariance not PSD")
	}

	xs := make([]float64, n)
	for i := 0; i < n; i++ {
		xs[i] = x.AtVec(i)
	}

	return dist.LogProb(xs), nil
}
