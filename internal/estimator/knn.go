package estimator

import (
	"fmt"
	"math"
	"sort"
)

// KNN is brute-force k-nearest-neighbors regression. Fit just retains the
// training set; all work happens at prediction time.
type KNN struct {
	K       int
	Weights string // "uniform" or "distance"

	X [][]float64
	Y []float64
}

func newKNN(params map[string]interface{}) Estimator {
	return &KNN{
		K:       intParam(params, "n_neighbors"),
		Weights: strParam(params, "weights"),
	}
}

func (m *KNN) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 {
		return fmt.Errorf("knn: no training rows")
	}
	if m.K < 1 {
		return fmt.Errorf("knn: n_neighbors must be at least 1")
	}
	m.X = X
	m.Y = y
	return nil
}

func (m *KNN) Predict(row []float64) (float64, error) {
	if len(m.X) == 0 {
		return 0, fmt.Errorf("knn: estimator is not fitted")
	}
	if len(row) != len(m.X[0]) {
		return 0, fmt.Errorf("knn: expected %d features, got %d", len(m.X[0]), len(row))
	}

	type neighbor struct {
		dist float64
		y    float64
	}
	neighbors := make([]neighbor, len(m.X))
	for i, train := range m.X {
		neighbors[i] = neighbor{dist: euclidean(row, train), y: m.Y[i]}
	}
	sort.Slice(neighbors, func(i, j int) bool { return neighbors[i].dist < neighbors[j].dist })

	k := m.K
	if k > len(neighbors) {
		k = len(neighbors)
	}
	nearest := neighbors[:k]

	if m.Weights == "distance" {
		// An exact match dominates: return its label directly.
		var sum, weightSum float64
		for _, nb := range nearest {
			if nb.dist == 0 {
				return nb.y, nil
			}
			w := 1 / nb.dist
			sum += w * nb.y
			weightSum += w
		}
		return sum / weightSum, nil
	}

	var sum float64
	for _, nb := range nearest {
		sum += nb.y
	}
	return sum / float64(k), nil
}

func euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
