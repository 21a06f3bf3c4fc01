package estimator

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Linear is ordinary least squares regression, solved through a QR
// factorization of the design matrix.
type Linear struct {
	FitIntercept bool

	Coef      []float64
	Intercept float64
}

func newLinear(params map[string]interface{}) Estimator {
	return &Linear{FitIntercept: boolParam(params, "fit_intercept")}
}

func (m *Linear) Fit(X [][]float64, y []float64) error {
	rows := len(X)
	if rows == 0 {
		return fmt.Errorf("linear: no training rows")
	}
	cols := len(X[0])

	designCols := cols
	if m.FitIntercept {
		designCols++
	}
	if rows < designCols {
		return fmt.Errorf("linear: need at least %d rows for %d coefficients, got %d", designCols, designCols, rows)
	}

	a := mat.NewDense(rows, designCols, nil)
	for i, row := range X {
		for j, v := range row {
			a.Set(i, j, v)
		}
		if m.FitIntercept {
			a.Set(i, cols, 1)
		}
	}
	b := mat.NewDense(rows, 1, nil)
	for i, v := range y {
		b.Set(i, 0, v)
	}

	var qr mat.QR
	qr.Factorize(a)

	var beta mat.Dense
	if err := qr.SolveTo(&beta, false, b); err != nil {
		return fmt.Errorf("linear: least squares solve failed: %w", err)
	}

	m.Coef = make([]float64, cols)
	for j := 0; j < cols; j++ {
		m.Coef[j] = beta.At(j, 0)
	}
	if m.FitIntercept {
		m.Intercept = beta.At(cols, 0)
	}
	return nil
}

func (m *Linear) Predict(row []float64) (float64, error) {
	if len(row) != len(m.Coef) {
		return 0, fmt.Errorf("linear: expected %d features, got %d", len(m.Coef), len(row))
	}
	pred := m.Intercept
	for j, v := range row {
		pred += m.Coef[j] * v
	}
	return pred, nil
}
