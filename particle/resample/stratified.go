// Package resample implements particle-survival resampling schemes.
package resample

import "github.com/milosgajdos/bssm-go/filter"

// Stratified draws N ancestor indices from normalized weights w using one
// stratified uniform per stratum: nu_i = (i + u_i) / N, for i = 0..N-1,
// then returns the smallest index j with the cumulative sum of w up to and
// including j at least nu_i times the total weight. This is a low-variance
// alternative to multinomial resampling (spec "Stratified resampling").
func Stratified(w []float64, src filter.Source) []int {
	n := len(w)
	idx := make([]int, n)

	cum := make([]float64, n)
	sum := 0.0
	for i, v := range w {
		sum += v
		cum[i] = sum
	}
	// an all-zero weight vector has nothing to search and returns the
	// identity; below, targets are scaled by the total so a sum that is not
	// exactly 1 due to floating point roundoff does not matter
	if cum[n-1] <= 0 {
		for i := range idx {
			idx[i] = i
		}
		return idx
	}

	j := 0
	for i := 0; i < n; i++ {
		u := src.Uniform()
		nu := (float64(i) + u) / float64(n)
		target := nu * cum[n-1]
		for j < n-1 && cum[j] < target {
			j++
		}
		idx[i] = j
	}
	return idx
}
