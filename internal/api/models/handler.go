package models

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ShaniStaretz-ai/FinalProject/internal/artifact"
	"github.com/ShaniStaretz-ai/FinalProject/internal/dataset"
	"github.com/ShaniStaretz-ai/FinalProject/internal/estimator"
	"github.com/ShaniStaretz-ai/FinalProject/internal/model"
	"github.com/ShaniStaretz-ai/FinalProject/internal/repository"
	"github.com/ShaniStaretz-ai/FinalProject/internal/service"
)

// Handler serves the model lifecycle endpoints.
type Handler struct {
	lifecycle      *service.LifecycleService
	maxUploadBytes int64
}

func NewHandler(lifecycle *service.LifecycleService, maxUploadBytes int64) *Handler {
	return &Handler{lifecycle: lifecycle, maxUploadBytes: maxUploadBytes}
}

// ListKinds handles GET /models
func (h *Handler) ListKinds(c *gin.Context) {
	out := make(map[string]gin.H)
	for kind, params := range estimator.Schema() {
		out[kind] = gin.H{"params": params}
	}
	c.JSON(http.StatusOK, out)
}

// Create handles POST /create (multipart: csv_file + form fields)
func (h *Handler) Create(c *gin.Context) {
	userID := c.GetInt("user_id")

	fileHeader, err := c.FormFile("csv_file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "CSV file missing"})
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	defer src.Close()

	frame, err := dataset.ReadCSV(src, h.maxUploadBytes)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	req, ok := h.parseTrainForm(c)
	if !ok {
		return
	}

	resp, err := h.lifecycle.Train(c.Request.Context(), userID, frame, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// parseTrainForm extracts and decodes the training form fields.
func (h *Handler) parseTrainForm(c *gin.Context) (model.TrainRequest, bool) {
	var req model.TrainRequest

	req.ModelType = c.PostForm("model_type")
	req.LabelCol = c.PostForm("label_col")
	req.ModelFilename = c.PostForm("model_filename")

	featureCols, ok := parseFeatureCols(c.PostForm("feature_cols"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid JSON in parameter 'feature_cols'"})
		return req, false
	}
	req.FeatureCols = featureCols

	trainPct := c.DefaultPostForm("train_percentage", "0.8")
	pct, err := strconv.ParseFloat(trainPct, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "train_percentage must be a number"})
		return req, false
	}
	req.TrainPercentage = pct

	optionalParams := c.DefaultPostForm("optional_params", "{}")
	if err := json.Unmarshal([]byte(optionalParams), &req.OptionalParams); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid JSON in parameter 'optional_params'"})
		return req, false
	}

	return req, true
}

// parseFeatureCols accepts a JSON array, with a comma-separated string as a
// fallback for plain form submissions.
func parseFeatureCols(raw string) ([]string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	if strings.HasPrefix(raw, "[") {
		var cols []string
		if err := json.Unmarshal([]byte(raw), &cols); err != nil {
			return nil, false
		}
		return cols, true
	}
	var cols []string
	for _, col := range strings.Split(raw, ",") {
		if col = strings.TrimSpace(col); col != "" {
			cols = append(cols, col)
		}
	}
	return cols, true
}

// Trained handles GET /trained
func (h *Handler) Trained(c *gin.Context) {
	userID := c.GetInt("user_id")

	names, err := h.lifecycle.ListModels(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, names)
}

// TrainedDetail handles GET /trained/{model_name}
func (h *Handler) TrainedDetail(c *gin.Context) {
	userID := c.GetInt("user_id")

	detail, err := h.lifecycle.GetModel(userID, c.Param("model_name"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// Predict handles POST /predict/{model_name}
func (h *Handler) Predict(c *gin.Context) {
	userID := c.GetInt("user_id")

	var req model.PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Missing 'features' in request body"})
		return
	}

	resp, err := h.lifecycle.Predict(c.Request.Context(), userID, c.Param("model_name"), req.Features)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Delete handles DELETE /delete/{model_name}
func (h *Handler) Delete(c *gin.Context) {
	userID := c.GetInt("user_id")
	name := c.Param("model_name")

	if err := h.lifecycle.Delete(userID, name); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Model deleted successfully"})
}

// respondError maps service errors onto the HTTP taxonomy. Compensation has
// already happened by the time an error reaches here.
func respondError(c *gin.Context, err error) {
	var (
		validationErr   *service.ValidationError
		paramErr        *estimator.ParameterError
		unknownKindErr  *estimator.UnknownKindError
		insufficientErr *repository.InsufficientTokensError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"detail": validationErr.Msg})
	case errors.As(err, &paramErr):
		c.JSON(http.StatusBadRequest, gin.H{"detail": paramErr.Msg})
	case errors.As(err, &unknownKindErr):
		c.JSON(http.StatusBadRequest, gin.H{"detail": unknownKindErr.Error()})
	case errors.As(err, &insufficientErr):
		c.JSON(http.StatusPaymentRequired, gin.H{
			"detail":    "Insufficient tokens",
			"required":  insufficientErr.Required,
			"available": insufficientErr.Available,
		})
	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, artifact.ErrArtifactNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": "Model not found"})
	case errors.Is(err, service.ErrTooManyTrainings):
		c.JSON(http.StatusTooManyRequests, gin.H{"detail": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
	}
}
