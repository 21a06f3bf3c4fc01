package estimator

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// TreeNode is one node of a fitted regression tree. Exported for gob.
type TreeNode struct {
	Leaf      bool
	Value     float64
	Feature   int
	Threshold float64
	Left      *TreeNode
	Right     *TreeNode
}

// Forest is a random forest regressor: bootstrap-sampled CART trees with a
// random feature subset considered at each split, averaged at predict time.
type Forest struct {
	NEstimators     int
	MaxDepth        int // 0 means unlimited
	MinSamplesSplit int
	MinSamplesLeaf  int

	Trees       []*TreeNode
	NumFeatures int
}

func newForest(params map[string]interface{}) Estimator {
	return &Forest{
		NEstimators:     intParam(params, "n_estimators"),
		MaxDepth:        intParam(params, "max_depth"),
		MinSamplesSplit: intParam(params, "min_samples_split"),
		MinSamplesLeaf:  intParam(params, "min_samples_leaf"),
	}
}

func (m *Forest) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 {
		return fmt.Errorf("random_forest: no training rows")
	}
	if m.NEstimators < 1 {
		return fmt.Errorf("random_forest: n_estimators must be at least 1")
	}
	if m.MinSamplesSplit < 2 {
		m.MinSamplesSplit = 2
	}
	if m.MinSamplesLeaf < 1 {
		m.MinSamplesLeaf = 1
	}
	m.NumFeatures = len(X[0])

	rng := rand.New(rand.NewSource(splitSeed))
	m.Trees = make([]*TreeNode, m.NEstimators)
	for t := 0; t < m.NEstimators; t++ {
		sampleX := make([][]float64, len(X))
		sampleY := make([]float64, len(y))
		for i := range X {
			j := rng.Intn(len(X))
			sampleX[i] = X[j]
			sampleY[i] = y[j]
		}
		m.Trees[t] = m.buildTree(sampleX, sampleY, 1, rng)
	}
	return nil
}

func (m *Forest) Predict(row []float64) (float64, error) {
	if len(m.Trees) == 0 {
		return 0, fmt.Errorf("random_forest: estimator is not fitted")
	}
	if len(row) != m.NumFeatures {
		return 0, fmt.Errorf("random_forest: expected %d features, got %d", m.NumFeatures, len(row))
	}
	var sum float64
	for _, tree := range m.Trees {
		sum += predictTree(tree, row)
	}
	return sum / float64(len(m.Trees)), nil
}

func predictTree(node *TreeNode, row []float64) float64 {
	for !node.Leaf {
		if row[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Value
}

func (m *Forest) buildTree(X [][]float64, y []float64, depth int, rng *rand.Rand) *TreeNode {
	if len(X) < m.MinSamplesSplit || (m.MaxDepth > 0 && depth > m.MaxDepth) || constant(y) {
		return &TreeNode{Leaf: true, Value: mean(y)}
	}

	feature, threshold, ok := m.bestSplit(X, y, rng)
	if !ok {
		return &TreeNode{Leaf: true, Value: mean(y)}
	}

	var leftX, rightX [][]float64
	var leftY, rightY []float64
	for i, row := range X {
		if row[feature] <= threshold {
			leftX = append(leftX, row)
			leftY = append(leftY, y[i])
		} else {
			rightX = append(rightX, row)
			rightY = append(rightY, y[i])
		}
	}
	if len(leftY) < m.MinSamplesLeaf || len(rightY) < m.MinSamplesLeaf {
		return &TreeNode{Leaf: true, Value: mean(y)}
	}

	return &TreeNode{
		Feature:   feature,
		Threshold: threshold,
		Left:      m.buildTree(leftX, leftY, depth+1, rng),
		Right:     m.buildTree(rightX, rightY, depth+1, rng),
	}
}

// bestSplit scans a random sqrt-sized feature subset for the threshold with
// the lowest weighted variance.
func (m *Forest) bestSplit(X [][]float64, y []float64, rng *rand.Rand) (int, float64, bool) {
	nFeatures := len(X[0])
	nCandidates := int(math.Sqrt(float64(nFeatures)))
	if nCandidates < 1 {
		nCandidates = 1
	}

	candidates := rng.Perm(nFeatures)[:nCandidates]

	bestScore := math.Inf(1)
	bestFeature, bestThreshold := -1, 0.0

	for _, feature := range candidates {
		values := make([]float64, 0, len(X))
		for _, row := range X {
			values = append(values, row[feature])
		}
		sort.Float64s(values)

		for i := 1; i < len(values); i++ {
			if values[i] == values[i-1] {
				continue
			}
			threshold := (values[i] + values[i-1]) / 2

			var leftY, rightY []float64
			for j, row := range X {
				if row[feature] <= threshold {
					leftY = append(leftY, y[j])
				} else {
					rightY = append(rightY, y[j])
				}
			}
			if len(leftY) < m.MinSamplesLeaf || len(rightY) < m.MinSamplesLeaf {
				continue
			}

			score := variance(leftY)*float64(len(leftY)) + variance(rightY)*float64(len(rightY))
			if score < bestScore {
				bestScore = score
				bestFeature = feature
				bestThreshold = threshold
			}
		}
	}

	return bestFeature, bestThreshold, bestFeature >= 0
}

func mean(y []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	var sum float64
	for _, v := range y {
		sum += v
	}
	return sum / float64(len(y))
}

func variance(y []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	mu := mean(y)
	var sum float64
	for _, v := range y {
		sum += (v - mu) * (v - mu)
	}
	return sum / float64(len(y))
}

func constant(y []float64) bool {
	for i := 1; i < len(y); i++ {
		if y[i] != y[0] {
			return false
		}
	}
	return true
}
