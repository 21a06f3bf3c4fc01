package model

// ModelRecord is the relational half of a trained model. The fitted pipeline
// itself lives on disk at FilePath; FeatureCols holds the encoded column
// order as a JSON array.
type ModelRecord struct {
	ID          int    `json:"id" db:"id"`
	UserID      int    `json:"user_id" db:"user_id"`
	ModelName   string `json:"model_name" db:"model_name"`
	ModelType   string `json:"model_type" db:"model_type"`
	FilePath    string `json:"file_path" db:"file_path"`
	FeatureCols string `json:"feature_cols" db:"feature_cols"`
	CreatedAt   string `json:"created_at" db:"created_at"`
}

// TrainRequest carries the validated form fields of POST /create.
// The CSV payload travels separately as an upload.
type TrainRequest struct {
	ModelType       string
	FeatureCols     []string
	LabelCol        string
	TrainPercentage float64
	OptionalParams  map[string]interface{}
	ModelFilename   string // optional caller-supplied name
}

// TrainResponse is the success body of POST /create
type TrainResponse struct {
	Status         string             `json:"status"`
	ModelName      string             `json:"model_name"`
	Metrics        map[string]float64 `json:"metrics"`
	TokensDeducted int                `json:"tokens_deducted"`
	FilePath       string             `json:"file_path"`
}

// PredictRequest is the body of POST /predict/{model_name}
type PredictRequest struct {
	Features map[string]interface{} `json:"features" binding:"required"`
}

// PredictResponse is the success body of POST /predict/{model_name}
type PredictResponse struct {
	Status         string  `json:"status"`
	Prediction     float64 `json:"prediction"`
	TokensDeducted int     `json:"tokens_deducted"`
}

// ModelDetail is returned by GET /trained/{model_name}
type ModelDetail struct {
	ModelName   string   `json:"model_name"`
	ModelType   string   `json:"model_type"`
	FeatureCols []string `json:"feature_cols"`
	CreatedAt   string   `json:"created_at"`
}
