package resample_test

import (
	"math"
	"testing"

	"github.com/milosgajdos/bssm-go/particle/resample"
	"github.com/milosgajdos/bssm-go/rand"
	"github.com/stretchr/testify/assert"
)

func TestStratifiedCounts(t *testing.T) {
	w := []float64{0.1, 0.2, 0.3, 0.4}
	src := rand.New(7)
	idx := resample.Stratified(w, src)
	assert.Len(t, idx, 4)

	counts := make([]int, len(w))
	for _, i := range idx {
		counts[i]++
	}
	// every particle with positive weight should appear roughly N*w_i times;
	// none should be wildly off given stratified sampling's low variance.
	for i, c := range counts {
		expected := float64(len(w)) * w[i]
		assert.LessOrEqual(t, math.Abs(float64(c)-expected), 2.0)
	}
}

func TestStratifiedDegenerate(t *testing.T) {
	w := []float64{0, 0, 1, 0}
	src := rand.New(3)
	idx := resample.Stratified(w, src)
	for _, i := range idx {
		assert.Equal(t, 2, i)
	}
}
