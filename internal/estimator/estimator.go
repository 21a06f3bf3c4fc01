package estimator

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Estimator is the opaque fit/predict contract every trainer kind satisfies.
type Estimator interface {
	Fit(X [][]float64, y []float64) error
	Predict(row []float64) (float64, error)
}

// UnknownKindError reports a model type that is not registered.
type UnknownKindError struct {
	Kind string
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("model type '%s' not recognized", e.Kind)
}

// ParameterError reports an unknown or badly typed hyperparameter. Unknown
// parameters are rejected rather than ignored so a typo cannot silently
// produce a differently configured training run.
type ParameterError struct {
	Msg string
}

func (e *ParameterError) Error() string {
	return e.Msg
}

// ParamSpec declares one hyperparameter of a trainer kind.
type ParamSpec struct {
	Type    string      `json:"type"` // int | float | bool | str
	Default interface{} `json:"default"`
	Options []string    `json:"options,omitempty"`
}

// Definition binds a trainer kind to its hyperparameter schema and factory.
type Definition struct {
	Params map[string]ParamSpec
	New    func(params map[string]interface{}) Estimator
}

// registry is the closed set of supported trainer kinds.
var registry = map[string]Definition{
	"linear": {
		Params: map[string]ParamSpec{
			"fit_intercept": {Type: "bool", Default: true},
		},
		New: newLinear,
	},
	"logistic": {
		Params: map[string]ParamSpec{
			"c":        {Type: "float", Default: 1.0},
			"max_iter": {Type: "int", Default: 100},
			"solver": {
				Type:    "str",
				Default: "lbfgs",
				Options: []string{"lbfgs", "liblinear", "newton-cg", "sag", "saga"},
			},
		},
		New: newLogistic,
	},
	"knn": {
		Params: map[string]ParamSpec{
			"n_neighbors": {Type: "int", Default: 5},
			"weights": {
				Type:    "str",
				Default: "distance",
				Options: []string{"uniform", "distance"},
			},
		},
		New: newKNN,
	},
	"random_forest": {
		Params: map[string]ParamSpec{
			"n_estimators":      {Type: "int", Default: 100},
			"max_depth":         {Type: "int", Default: 0}, // 0 means unlimited
			"min_samples_split": {Type: "int", Default: 2},
			"min_samples_leaf":  {Type: "int", Default: 1},
		},
		New: newForest,
	},
}

// Get resolves a trainer kind by name.
func Get(kind string) (Definition, error) {
	def, ok := registry[kind]
	if !ok {
		return Definition{}, &UnknownKindError{Kind: kind}
	}
	return def, nil
}

// Kinds returns the registered kind names, sorted.
func Kinds() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Schema returns the hyperparameter schema of each registered kind, keyed by
// kind name. Used by GET /models.
func Schema() map[string]map[string]ParamSpec {
	out := make(map[string]map[string]ParamSpec, len(registry))
	for name, def := range registry {
		out[name] = def.Params
	}
	return out
}

// ValidateParams checks caller-supplied hyperparameters against the kind's
// schema, rejecting unknown keys and converting values to their declared
// types. The result has defaults filled in for every declared parameter.
func (d Definition) ValidateParams(raw map[string]interface{}) (map[string]interface{}, error) {
	var invalid []string
	for key := range raw {
		if _, ok := d.Params[key]; !ok {
			invalid = append(invalid, key)
		}
	}
	if len(invalid) > 0 {
		sort.Strings(invalid)
		return nil, &ParameterError{Msg: fmt.Sprintf("invalid optional parameter(s): %s", strings.Join(invalid, ", "))}
	}

	out := make(map[string]interface{}, len(d.Params))
	for key, spec := range d.Params {
		out[key] = spec.Default
	}
	for key, value := range raw {
		spec := d.Params[key]
		converted, err := convertParam(value, spec.Type)
		if err != nil {
			return nil, &ParameterError{Msg: fmt.Sprintf("invalid type for parameter '%s': expected %s", key, spec.Type)}
		}
		if len(spec.Options) > 0 {
			s, _ := converted.(string)
			if !contains(spec.Options, s) {
				return nil, &ParameterError{
					Msg: fmt.Sprintf("invalid value for parameter '%s': must be one of %s", key, strings.Join(spec.Options, ", ")),
				}
			}
		}
		out[key] = converted
	}
	return out, nil
}

// convertParam coerces a JSON-decoded value to the declared parameter type.
func convertParam(value interface{}, expectedType string) (interface{}, error) {
	switch expectedType {
	case "int":
		switch v := value.(type) {
		case float64:
			return int(v), nil
		case int:
			return v, nil
		case string:
			return strconv.Atoi(strings.TrimSpace(v))
		}
	case "float":
		switch v := value.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case string:
			return strconv.ParseFloat(strings.TrimSpace(v), 64)
		}
	case "bool":
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			lower := strings.ToLower(strings.TrimSpace(v))
			return lower == "true" || lower == "1" || lower == "yes", nil
		case float64:
			return v != 0, nil
		}
	case "str":
		if s, ok := value.(string); ok {
			return s, nil
		}
		return fmt.Sprintf("%v", value), nil
	}
	return nil, fmt.Errorf("cannot convert %T to %s", value, expectedType)
}

func contains(options []string, v string) bool {
	for _, o := range options {
		if o == v {
			return true
		}
	}
	return false
}

func intParam(params map[string]interface{}, key string) int {
	v, _ := params[key].(int)
	return v
}

func floatParam(params map[string]interface{}, key string) float64 {
	v, _ := params[key].(float64)
	return v
}

func boolParam(params map[string]interface{}, key string) bool {
	v, _ := params[key].(bool)
	return v
}

func strParam(params map[string]interface{}, key string) string {
	v, _ := params[key].(string)
	return v
}
