package mcmc

import (
	"sync"

	"github.com/milosgajdos/bssm-go/filter"
	"github.com/milosgajdos/bssm-go/kalman"
	"github.com/milosgajdos/bssm-go/rand"
	"gonum.org/v1/gonum/mat"
)

// StatePosterior draws nsimStates simulation-smoother trajectories for
// each of the n_stored columns of theta, using nThreads workers each
// seeded independently from masterSeed (spec "Parallel state sampling").
// modelFor must return an independent model instance for a worker (cloning
// is the caller's responsibility, since models are opaque function
// values); each worker calls Update(theta column) before smoothing.
func StatePosterior(modelFor func() filter.GaussianModel, theta *mat.Dense, nsimStates, nThreads int, masterSeed uint64) ([][]mat.Vector, error) {
	_, nStored := theta.Dims()
	out := make([][]mat.Vector, nStored)

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
			for _, idx := range indices[w] {
				col := mat.Col(nil, idx, theta)
				if err := m.Update(col); err != nil {
					errs[w] = err
					return
				}
				draws := make([]mat.Vector, nsimStates)
				for s := 0; s < nsimStates; s++ {
					traj, err := kalman.SimSmooth(m, m.Y(), src)
					if err != nil {
						errs[w] = err
						return
					}
					draws[s] = combineTrajectory(traj)
				}
				out[idx] = draws
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

// combineTrajectory flattens a per-time-step trajectory into a single
// vector stacking every time point, for simple storage; callers that need
// the per-t breakdown should use kalman.SimSmooth directly.
func combineTrajectory(traj []mat.Vector) mat.Vector {
	if len(traj) == 0 {
		return mat.NewVecDense(0, nil)
	}
	m := traj[0].Len()
	data := make([]float64, m*len(traj))
	for t, v := range traj {
		for i := 0; i < m; i++ {
			data[t*m+i] = v.AtVec(i)
		}
	}
	return mat.NewVecDense(len(data), data)
}

// partitionIndices splits [0, n) into nThreads disjoint, contiguous,
// roughly equal ranges, preserving the original index order within each
// worker's slice so results concatenate deterministically.
func partitionIndices(n, nThreads int) [][]int {
	out := make([][]int, nThreads)
	base := n / nThreads
	rem := n % nThreads
	start := 0
	for w := 0; w < nThreads; w++ {
		size := base
		if w < rem {
			size++
		}
		idx := make([]int, size)
		for i := range idx {
			idx[i] = start + i
		}
		out[w] = idx
		start += size
	}
	return out
}
