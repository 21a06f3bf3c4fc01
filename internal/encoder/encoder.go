package encoder

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ShaniStaretz-ai/FinalProject/internal/dataset"
)

// SchemaError reports a request that does not match the dataset's shape:
// a declared column is missing, or encoding left nothing to train on.
type SchemaError struct {
	Msg string
}

func (e *SchemaError) Error() string {
	return e.Msg
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"1/2/2006",
	"01/02/2006",
}

// Encoder turns raw feature columns into a numeric design matrix and
// remembers the resulting column identity so prediction rows can be aligned
// to the exact train-time order. All fields are exported for gob.
type Encoder struct {
	// FeatureCols is the raw feature list the caller trained with.
	FeatureCols []string
	// Kinds records how each raw column was interpreted.
	Kinds map[string]dataset.ColumnKind
	// Categories holds, per string column, the sorted category list with the
	// first entry dropped (dummy-variable trap).
	Categories map[string][]string
	// TrainedCols is the encoded column order of the design matrix.
	TrainedCols []string
}

// FitTransform encodes the frame's feature columns: dates become Unix
// timestamps, strings become one-hot dummies, numerics pass through. Returns
// the fitted encoder and the design matrix in TrainedCols order.
func FitTransform(f *dataset.Frame, featureCols []string) (*Encoder, [][]float64, error) {
	enc := &Encoder{
		FeatureCols: featureCols,
		Kinds:       make(map[string]dataset.ColumnKind, len(featureCols)),
		Categories:  make(map[string][]string),
	}

	for _, col := range featureCols {
		kind, ok := f.ColumnKind(col)
		if !ok {
			return nil, nil, &SchemaError{Msg: fmt.Sprintf("column not found in CSV: %s", col)}
		}
		enc.Kinds[col] = kind

		switch kind {
		case dataset.KindString:
			values, _ := f.Column(col)
			cats := uniqueSorted(values)
			if len(cats) <= 1 {
				// single category encodes to nothing after dropping the first
				enc.Categories[col] = nil
				continue
			}
			enc.Categories[col] = cats[1:]
			for _, cat := range cats[1:] {
				enc.TrainedCols = append(enc.TrainedCols, dummyName(col, cat))
			}
		default:
			enc.TrainedCols = append(enc.TrainedCols, col)
		}
	}

	if len(enc.TrainedCols) == 0 {
		return nil, nil, &SchemaError{Msg: "no valid feature columns found after encoding"}
	}

	colIdx := make(map[string]int, len(f.Columns))
	for j, name := range f.Columns {
		colIdx[name] = j
	}

	matrix := make([][]float64, f.NumRows())
	for i, row := range f.Rows {
		vec, err := enc.encodeRawRow(func(col string) (string, bool) {
			j, ok := colIdx[col]
			if !ok {
				return "", false
			}
			return row[j], true
		})
		if err != nil {
			return nil, nil, err
		}
		matrix[i] = vec
	}

	return enc, matrix, nil
}

// TransformRow expands a single prediction-time feature mapping the same way
// training did and reindexes it to TrainedCols: absent columns fill with 0,
// unseen categories contribute nothing, extra keys are dropped.
func (e *Encoder) TransformRow(features map[string]interface{}) ([]float64, error) {
	return e.encodeRawRow(func(col string) (string, bool) {
		v, ok := features[col]
		if !ok {
			return "", false
		}
		return valueToString(v), true
	})
}

func (e *Encoder) encodeRawRow(lookup func(col string) (string, bool)) ([]float64, error) {
	cells := make(map[string]float64, len(e.TrainedCols))

	for _, col := range e.FeatureCols {
		raw, present := lookup(col)
		if !present {
			continue
		}
		switch e.Kinds[col] {
		case dataset.KindDate:
			cells[col] = float64(parseDateValue(raw))
		case dataset.KindNumeric:
			v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return nil, &SchemaError{Msg: fmt.Sprintf("column %s: non-numeric value %q", col, raw)}
			}
			cells[col] = v
		case dataset.KindString:
			for _, cat := range e.Categories[col] {
				if strings.TrimSpace(raw) == cat {
					cells[dummyName(col, cat)] = 1
				}
			}
		}
	}

	vec := make([]float64, len(e.TrainedCols))
	for i, col := range e.TrainedCols {
		vec[i] = cells[col]
	}
	return vec, nil
}

// parseDateValue converts a date cell to Unix seconds. Unparsable dates
// convert to 0, never fail. Numeric input is taken as an epoch value.
func parseDateValue(raw string) int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if ts, err := strconv.ParseFloat(raw, 64); err == nil {
		return int64(ts)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Unix()
		}
	}
	return 0
}

func valueToString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		if t {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprintf("%v", v)
	}
}

func dummyName(col, category string) string {
	return col + "_" + category
}

func uniqueSorted(values []string) []string {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		set[v] = true
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
