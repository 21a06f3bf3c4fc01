package estimator

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Logistic is binary logistic regression with L2 regularization, fitted by
// gradient descent. All solver names accepted by the schema run the same
// minimizer; the choice is kept for request compatibility.
type Logistic struct {
	C       float64
	MaxIter int
	Solver  string

	Coef      []float64
	Intercept float64
	// Classes maps the internal 0/1 encoding back to the original label
	// values, smaller label first.
	Classes [2]float64
}

func newLogistic(params map[string]interface{}) Estimator {
	return &Logistic{
		C:       floatParam(params, "c"),
		MaxIter: intParam(params, "max_iter"),
		Solver:  strParam(params, "solver"),
	}
}

func (m *Logistic) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 {
		return fmt.Errorf("logistic: no training rows")
	}

	classes, err := binaryClasses(y)
	if err != nil {
		return err
	}
	m.Classes = classes

	target := make([]float64, len(y))
	for i, v := range y {
		if v == m.Classes[1] {
			target[i] = 1
		}
	}

	cols := len(X[0])
	m.Coef = make([]float64, cols)
	m.Intercept = 0

	n := float64(len(X))
	lambda := 0.0
	if m.C > 0 {
		lambda = 1 / m.C
	}
	const learningRate = 0.1

	grad := make([]float64, cols)
	for iter := 0; iter < m.MaxIter; iter++ {
		for j := range grad {
			grad[j] = 0
		}
		gradIntercept := 0.0

		for i, row := range X {
			p := sigmoid(floats.Dot(m.Coef, row) + m.Intercept)
			diff := p - target[i]
			floats.AddScaled(grad, diff, row)
			gradIntercept += diff
		}

		floats.Scale(1/n, grad)
		floats.AddScaled(grad, lambda/n, m.Coef)
		floats.AddScaled(m.Coef, -learningRate, grad)
		m.Intercept -= learningRate * gradIntercept / n
	}
	return nil
}

func (m *Logistic) Predict(row []float64) (float64, error) {
	if len(row) != len(m.Coef) {
		return 0, fmt.Errorf("logistic: expected %d features, got %d", len(m.Coef), len(row))
	}
	p := sigmoid(floats.Dot(m.Coef, row) + m.Intercept)
	if p >= 0.5 {
		return m.Classes[1], nil
	}
	return m.Classes[0], nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func binaryClasses(y []float64) ([2]float64, error) {
	seen := map[float64]bool{}
	for _, v := range y {
		seen[v] = true
	}
	if len(seen) != 2 {
		return [2]float64{}, fmt.Errorf("logistic: label column must contain exactly two classes, found %d", len(seen))
	}
	var classes [2]float64
	i := 0
	for v := range seen {
		classes[i] = v
		i++
	}
	if classes[0] > classes[1] {
		classes[0], classes[1] = classes[1], classes[0]
	}
	return classes, nil
}
