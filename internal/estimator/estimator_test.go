package estimator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetUnknownKind(t *testing.T) {
	_, err := Get("neural_net")

	var unknown *UnknownKindError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "neural_net", unknown.Kind)
}

func TestKinds(t *testing.T) {
	assert.Equal(t, []string{"knn", "linear", "logistic", "random_forest"}, Kinds())
}

func TestSchemaListsAllKinds(t *testing.T) {
	schema := Schema()
	require.Len(t, schema, 4)
	assert.Contains(t, schema["logistic"], "solver")
	assert.Equal(t, "bool", schema["linear"]["fit_intercept"].Type)
}

func TestValidateParamsDefaults(t *testing.T) {
	def, err := Get("knn")
	require.NoError(t, err)

	params, err := def.ValidateParams(nil)
	require.NoError(t, err)

	assert.Equal(t, 5, params["n_neighbors"])
	assert.Equal(t, "distance", params["weights"])
}

func TestValidateParamsRejectsUnknownKeys(t *testing.T) {
	def, err := Get("linear")
	require.NoError(t, err)

	_, err = def.ValidateParams(map[string]interface{}{"learning_rate": 0.1, "alpha": 1})

	var paramErr *ParameterError
	require.True(t, errors.As(err, &paramErr))
	assert.Contains(t, paramErr.Msg, "alpha, learning_rate")
}

func TestValidateParamsTypeConversion(t *testing.T) {
	def, err := Get("logistic")
	require.NoError(t, err)

	// JSON decodes every number as float64; declared ints convert back
	params, err := def.ValidateParams(map[string]interface{}{"max_iter": float64(200), "c": 2})
	require.NoError(t, err)

	assert.Equal(t, 200, params["max_iter"])
	assert.Equal(t, 2.0, params["c"])
	assert.Equal(t, "lbfgs", params["solver"])
}

func TestValidateParamsEnum(t *testing.T) {
	def, err := Get("knn")
	require.NoError(t, err)

	_, err = def.ValidateParams(map[string]interface{}{"weights": "cosine"})

	var paramErr *ParameterError
	require.True(t, errors.As(err, &paramErr))
	assert.Contains(t, paramErr.Msg, "must be one of uniform, distance")
}

func TestValidateParamsBadType(t *testing.T) {
	def, err := Get("random_forest")
	require.NoError(t, err)

	_, err = def.ValidateParams(map[string]interface{}{"n_estimators": []interface{}{1}})

	var paramErr *ParameterError
	require.True(t, errors.As(err, &paramErr))
}

func TestLinearRecoversCoefficients(t *testing.T) {
	// y = 2*x1 - 3*x2 + 5, noiseless
	X := [][]float64{{1, 0}, {0, 1}, {1, 1}, {2, 3}, {4, 1}, {3, 2}}
	y := make([]float64, len(X))
	for i, row := range X {
		y[i] = 2*row[0] - 3*row[1] + 5
	}

	m := &Linear{FitIntercept: true}
	require.NoError(t, m.Fit(X, y))

	assert.InDelta(t, 2, m.Coef[0], 1e-9)
	assert.InDelta(t, -3, m.Coef[1], 1e-9)
	assert.InDelta(t, 5, m.Intercept, 1e-9)

	pred, err := m.Predict([]float64{10, 10})
	require.NoError(t, err)
	assert.InDelta(t, -5, pred, 1e-9)
}

func TestLinearWithoutIntercept(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}}
	y := []float64{2, 4, 6}

	m := &Linear{FitIntercept: false}
	require.NoError(t, m.Fit(X, y))

	assert.InDelta(t, 2, m.Coef[0], 1e-9)
	assert.Equal(t, 0.0, m.Intercept)
}

func TestLinearUnderdetermined(t *testing.T) {
	// one row cannot determine two coefficients plus an intercept
	m := &Linear{FitIntercept: true}
	err := m.Fit([][]float64{{1, 2}}, []float64{3})
	require.Error(t, err)
}

func TestLinearPredictDimensionMismatch(t *testing.T) {
	m := &Linear{Coef: []float64{1, 2}}
	_, err := m.Predict([]float64{1})
	require.Error(t, err)
}

func TestLogisticSeparatesClasses(t *testing.T) {
	X := [][]float64{{-2}, {-1.5}, {-1}, {1}, {1.5}, {2}}
	y := []float64{3, 3, 3, 7, 7, 7}

	m := &Logistic{C: 1, MaxIter: 500, Solver: "lbfgs"}
	require.NoError(t, m.Fit(X, y))

	low, err := m.Predict([]float64{-3})
	require.NoError(t, err)
	high, err := m.Predict([]float64{3})
	require.NoError(t, err)

	// predictions come back as the original label values
	assert.Equal(t, 3.0, low)
	assert.Equal(t, 7.0, high)
}

func TestLogisticRequiresTwoClasses(t *testing.T) {
	m := &Logistic{C: 1, MaxIter: 10}
	err := m.Fit([][]float64{{1}, {2}}, []float64{1, 1})
	require.Error(t, err)

	err = m.Fit([][]float64{{1}, {2}, {3}}, []float64{1, 2, 3})
	require.Error(t, err)
}

func TestKNNUniform(t *testing.T) {
	X := [][]float64{{0}, {1}, {10}, {11}}
	y := []float64{1, 1, 9, 9}

	m := &KNN{K: 2, Weights: "uniform"}
	require.NoError(t, m.Fit(X, y))

	pred, err := m.Predict([]float64{0.4})
	require.NoError(t, err)
	assert.InDelta(t, 1, pred, 1e-9)

	pred, err = m.Predict([]float64{10.6})
	require.NoError(t, err)
	assert.InDelta(t, 9, pred, 1e-9)
}

func TestKNNDistanceWeightsExactMatch(t *testing.T) {
	X := [][]float64{{0}, {5}, {10}}
	y := []float64{1, 5, 9}

	m := &KNN{K: 3, Weights: "distance"}
	require.NoError(t, m.Fit(X, y))

	// an exact hit returns that row's label regardless of the other neighbors
	pred, err := m.Predict([]float64{5})
	require.NoError(t, err)
	assert.Equal(t, 5.0, pred)
}

func TestKNNRejectsBadK(t *testing.T) {
	m := &KNN{K: 0}
	err := m.Fit([][]float64{{1}}, []float64{1})
	require.Error(t, err)
}

func TestForestFitsConstantData(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}, {4}, {5}, {6}}
	y := []float64{4, 4, 4, 4, 4, 4}

	m := &Forest{NEstimators: 10, MaxDepth: 0, MinSamplesSplit: 2, MinSamplesLeaf: 1}
	require.NoError(t, m.Fit(X, y))

	pred, err := m.Predict([]float64{3.5})
	require.NoError(t, err)
	assert.InDelta(t, 4, pred, 1e-9)
}

func TestForestSeparatesClusters(t *testing.T) {
	var X [][]float64
	var y []float64
	for i := 0; i < 20; i++ {
		X = append(X, []float64{float64(i)})
		if i < 10 {
			y = append(y, 0)
		} else {
			y = append(y, 100)
		}
	}

	m := &Forest{NEstimators: 30, MaxDepth: 0, MinSamplesSplit: 2, MinSamplesLeaf: 1}
	require.NoError(t, m.Fit(X, y))

	pred, err := m.Predict([]float64{2})
	require.NoError(t, err)
	assert.Less(t, pred, 50.0)

	pred, err = m.Predict([]float64{17})
	require.NoError(t, err)
	assert.Greater(t, pred, 50.0)
}

func TestTrainTestSplit(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}, {4}, {5}, {6}, {7}, {8}, {9}, {10}}
	y := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	XTrain, XTest, yTrain, yTest := TrainTestSplit(X, y, 0.8)

	assert.Len(t, XTrain, 8)
	assert.Len(t, XTest, 2)
	assert.Len(t, yTrain, 8)
	assert.Len(t, yTest, 2)

	// the split is deterministic
	XTrain2, _, _, _ := TrainTestSplit(X, y, 0.8)
	assert.Equal(t, XTrain, XTrain2)
}

func TestTrainTestSplitTinyDataset(t *testing.T) {
	X := [][]float64{{1}, {2}}
	y := []float64{1, 2}

	// 0.9 of 2 rounds to 1 train row, leaving a test row
	XTrain, XTest, _, _ := TrainTestSplit(X, y, 0.9)
	assert.Len(t, XTrain, 1)
	assert.Len(t, XTest, 1)

	// a single row trains and evaluates on itself
	XTrain, XTest, _, _ = TrainTestSplit(X[:1], y[:1], 0.5)
	assert.Len(t, XTrain, 1)
	assert.Len(t, XTest, 1)
}

func TestEvaluatePerfectFit(t *testing.T) {
	m := &Linear{Coef: []float64{2}, Intercept: 0}
	metrics, err := Evaluate(m, [][]float64{{1}, {2}, {3}}, []float64{2, 4, 6})
	require.NoError(t, err)

	assert.InDelta(t, 1, metrics["r2_score"], 1e-9)
	assert.InDelta(t, 0, metrics["mean_squared_error"], 1e-9)
	assert.InDelta(t, 0, metrics["mean_absolute_error"], 1e-9)
}

func TestEvaluateConstantTruth(t *testing.T) {
	// zero variance in y: r2 is defined as 1 for a perfect fit, 0 otherwise
	m := &Linear{Coef: []float64{0}, Intercept: 5}
	metrics, err := Evaluate(m, [][]float64{{1}, {2}}, []float64{5, 5})
	require.NoError(t, err)
	assert.Equal(t, 1.0, metrics["r2_score"])

	m.Intercept = 6
	metrics, err = Evaluate(m, [][]float64{{1}, {2}}, []float64{5, 5})
	require.NoError(t, err)
	assert.Equal(t, 0.0, metrics["r2_score"])
	assert.InDelta(t, 1, metrics["mean_squared_error"], 1e-9)
}
