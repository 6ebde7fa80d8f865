package mcmc

import (
	"sync"

	"github.com/milosgajdos/bssm-go/rand"
	"gonum.org/v1/gonum/mat"
)

// ParallelWeights evaluates an independent particle-filter importance
// weight for each unique column of theta, embarrassingly parallel across
// the unique-sample index (spec "Parallel importance correction"). modelFor
// must return an independent model instance per worker.
func ParallelWeights(modelFor func() ApproxPMModel, theta *mat.Dense, cfg Config, nThreads int, masterSeed uint64) ([]float64, error) {
	_, nStored := theta.Dims()
	out := make([]float64, nStored)

	if nThreads <= 0 {
		nThreads = 1
	}
	seeds := rand.Seeds(masterSeed, nThreads)
	indices := partitionIndices(nStored, nThreads)

	var wg sync.WaitGroup
	errs := make([]error, nThreads)

	for w := 0; w < nThreads; w++ {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			src := rand.New(seeds[w])
			m := modelFor()
			cache := map[string]float64{}
			for _, idx := range indices[w] {
				col := mat.Col(nil, idx, theta)
				if err := m.Update(col); err != nil {
					errs[w] = err
					return
				}
				wgt, err := sampleWeight(m, cfg, src, col, cache)
				if err != nil {
					errs[w] = err
					return
				}
				out[idx] = wgt
			}
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
