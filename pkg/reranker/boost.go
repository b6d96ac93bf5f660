package reranker

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// regularization term added to leaf hessians to keep values finite.
const lambda = 1e-6

// fitStump finds the depth-1 tree minimizing the second-order boosting
// objective over all features and split thresholds. Returns false when no
// split improves on a single leaf (e.g. constant features), in which case
// boosting stops early.
func fitStump(X [][]float64, grad, hess []float64) (stump, bool) {
	totalG := floats.Sum(grad)
	totalH := floats.Sum(hess)

	best := stump{}
	bestGain := 0.0
	found := false

	nFeatures := len(X[0])
	idx := make([]int, len(X))

	for f := 0; f < nFeatures; f++ {
		for i := range idx {
			idx[i] = i
		}
		sort.Slice(idx, func(a, b int) bool {
			return X[idx[a]][f] < X[idx[b]][f]
		})

		var leftG, leftH float64
		for pos := 0; pos < len(idx)-1; pos++ {
			i := idx[pos]
			leftG += grad[i]
			leftH += hess[i]

			cur, next := X[i][f], X[idx[pos+1]][f]
			if cur == next {
				continue
			}

			rightG := totalG - leftG
			rightH := totalH - leftH
			gain := leftG*leftG/(leftH+lambda) +
				rightG*rightG/(rightH+lambda) -
				totalG*totalG/(totalH+lambda)

			if gain > bestGain {
				bestGain = gain
				best = stump{
					Feature:   f,
					Threshold: (cur + next) / 2,
					Left:      leftG / (leftH + lambda),
					Right:     rightG / (rightH + lambda),
				}
				found = true
			}
		}
	}

	return best, found
}
