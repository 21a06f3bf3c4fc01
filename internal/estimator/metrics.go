package estimator

import (
	"math"
	"math/rand"
)

// splitSeed keeps train/test splits reproducible across runs.
const splitSeed = 42

// TrainTestSplit shuffles the rows with a fixed seed and splits them at
// trainFrac. When the split would leave the test side empty the full set is
// returned for both, so evaluation still has something to score.
func TrainTestSplit(X [][]float64, y []float64, trainFrac float64) (XTrain, XTest [][]float64, yTrain, yTest []float64) {
	n := len(X)
	perm := rand.New(rand.NewSource(splitSeed)).Perm(n)

	nTrain := int(float64(n) * trainFrac)
	if nTrain < 1 {
		nTrain = 1
	}
	if nTrain >= n {
		return X, X, y, y
	}

	for i, p := range perm {
		if i < nTrain {
			XTrain = append(XTrain, X[p])
			yTrain = append(yTrain, y[p])
		} else {
			XTest = append(XTest, X[p])
			yTest = append(yTest, y[p])
		}
	}
	return XTrain, XTest, yTrain, yTest
}

// Evaluate scores the fitted estimator on the held-out rows.
func Evaluate(est Estimator, X [][]float64, y []float64) (map[string]float64, error) {
	preds := make([]float64, len(X))
	for i, row := range X {
		p, err := est.Predict(row)
		if err != nil {
			return nil, err
		}
		preds[i] = p
	}

	return map[string]float64{
		"r2_score":            r2Score(y, preds),
		"mean_squared_error":  meanSquaredError(y, preds),
		"mean_absolute_error": meanAbsoluteError(y, preds),
	}, nil
}

func r2Score(y, preds []float64) float64 {
	mean := 0.0
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))

	var ssRes, ssTot float64
	for i := range y {
		ssRes += (y[i] - preds[i]) * (y[i] - preds[i])
		ssTot += (y[i] - mean) * (y[i] - mean)
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}

func meanSquaredError(y, preds []float64) float64 {
	var sum float64
	for i := range y {
		sum += (y[i] - preds[i]) * (y[i] - preds[i])
	}
	return sum / float64(len(y))
}

func meanAbsoluteError(y, preds []float64) float64 {
	var sum float64
	for i := range y {
		sum += math.Abs(y[i] - preds[i])
	}
	return sum / float64(len(y))
}
