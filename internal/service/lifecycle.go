package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/ShaniStaretz-ai/FinalProject/internal/artifact"
	"github.com/ShaniStaretz-ai/FinalProject/internal/dataset"
	"github.com/ShaniStaretz-ai/FinalProject/internal/encoder"
	"github.com/ShaniStaretz-ai/FinalProject/internal/estimator"
	"github.com/ShaniStaretz-ai/FinalProject/internal/model"
	"github.com/ShaniStaretz-ai/FinalProject/internal/pkg/redis"
	"github.com/ShaniStaretz-ai/FinalProject/internal/repository"
)

// maxTrainingSlotsPerUser caps in-flight trainings per account when Redis is
// available.
const maxTrainingSlotsPerUser = 2

var modelNamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ArtifactStore is the persistence capability the orchestrator depends on.
type ArtifactStore interface {
	Save(name string, p *artifact.Pipeline, metrics map[string]float64) (string, error)
	Load(name string) (*artifact.Pipeline, error)
	Delete(name string) (bool, error)
	Exists(name string) bool
}

// LifecycleService coordinates training, prediction and deletion of models.
// It is the only component allowed to move tokens, and every post-debit
// failure path compensates: artifact files are removed and the debit is
// refunded before the error reaches the caller.
type LifecycleService struct {
	users  *repository.UserRepository
	models *repository.ModelRepository
	store  ArtifactStore

	trainCost   int
	predictCost int

	// sem bounds concurrent CPU-bound fits across all users.
	sem *semaphore.Weighted
	log *zap.Logger
}

func NewLifecycleService(
	users *repository.UserRepository,
	models *repository.ModelRepository,
	store ArtifactStore,
	trainCost, predictCost int,
	maxConcurrentFits int64,
) *LifecycleService {
	if maxConcurrentFits < 1 {
		maxConcurrentFits = 1
	}
	return &LifecycleService{
		users:       users,
		models:      models,
		store:       store,
		trainCost:   trainCost,
		predictCost: predictCost,
		sem:         semaphore.NewWeighted(maxConcurrentFits),
		log:         zap.L().With(zap.String("component", "lifecycle")),
	}
}

// TrainCost returns the fixed token cost of a training run.
func (s *LifecycleService) TrainCost() int { return s.trainCost }

// PredictCost returns the fixed token cost of a prediction.
func (s *LifecycleService) PredictCost() int { return s.predictCost }

// Train runs the full training use case. Validation is fully resolved before
// the debit; everything after the debit either completes or compensates.
func (s *LifecycleService) Train(ctx context.Context, userID int, frame *dataset.Frame, req model.TrainRequest) (*model.TrainResponse, error) {
	if err := validateTrainRequest(frame, req); err != nil {
		return nil, err
	}

	def, err := estimator.Get(req.ModelType)
	if err != nil {
		return nil, err
	}
	params, err := def.ValidateParams(req.OptionalParams)
	if err != nil {
		return nil, err
	}

	name, err := s.resolveModelName(userID, req)
	if err != nil {
		return nil, err
	}

	// Reject a taken name before the debit, and before Save could overwrite
	// the existing artifact. The insert's unique check remains the backstop
	// for a concurrent claim of the same name.
	if rec, err := s.models.Find(userID, name); err != nil {
		return nil, err
	} else if rec != nil {
		return nil, &ValidationError{Msg: fmt.Sprintf("model name already exists: %s", name)}
	}

	// Optional per-user concurrency limit, enforced through Redis when a
	// connection is configured.
	if redis.Available() {
		acquired, err := redis.AcquireTrainingSlot(userID, maxTrainingSlotsPerUser)
		if err != nil {
			s.log.Warn("Training slot acquisition failed, continuing without limit", zap.Error(err))
		} else if !acquired {
			return nil, ErrTooManyTrainings
		} else {
			defer func() {
				if err := redis.ReleaseTrainingSlot(userID); err != nil {
					s.log.Warn("Failed to release training slot", zap.Int("user_id", userID), zap.Error(err))
				}
			}()
		}
	}

	// Point of no return for cost.
	if _, err := s.users.CheckAndDebit(userID, s.trainCost); err != nil {
		return nil, err
	}

	resp, err := s.fitAndPersist(ctx, userID, name, frame, req, def, params)
	if err != nil {
		s.compensate(userID, name, s.trainCost)
		return nil, err
	}
	return resp, nil
}

// fitAndPersist runs the CPU-bound part of training on a bounded worker and
// persists the result. Caller compensates on any error.
func (s *LifecycleService) fitAndPersist(
	ctx context.Context,
	userID int,
	name string,
	frame *dataset.Frame,
	req model.TrainRequest,
	def estimator.Definition,
	params map[string]interface{},
) (*model.TrainResponse, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("training queue wait aborted: %w", err)
	}

	type outcome struct {
		pipeline *artifact.Pipeline
		metrics  map[string]float64
		err      error
	}
	resCh := make(chan outcome, 1)

	go func() {
		defer s.sem.Release(1)
		pipeline, metrics, err := fit(frame, req, def, params)
		resCh <- outcome{pipeline: pipeline, metrics: metrics, err: err}
	}()

	// The fit is not interruptible; the response awaits this unit of work.
	out := <-resCh
	if out.err != nil {
		return nil, out.err
	}

	path, err := s.store.Save(name, out.pipeline, out.metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to save artifact: %w", err)
	}
	if !s.store.Exists(name) {
		return nil, fmt.Errorf("artifact missing after save: %s", name)
	}

	colsJSON, err := json.Marshal(out.pipeline.Encoder.TrainedCols)
	if err != nil {
		return nil, err
	}

	_, inserted, err := s.models.Insert(userID, name, req.ModelType, path, string(colsJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to insert model record: %w", err)
	}
	if !inserted {
		// Training succeeded, but the artifact must not become unreferenced
		// garbage; the caller's compensation removes it.
		return nil, &ValidationError{Msg: fmt.Sprintf("model name already exists: %s", name)}
	}

	s.log.Info("Model trained",
		zap.Int("user_id", userID),
		zap.String("model", name),
		zap.String("type", req.ModelType))

	return &model.TrainResponse{
		Status:         "success",
		ModelName:      name,
		Metrics:        out.metrics,
		TokensDeducted: s.trainCost,
		FilePath:       path,
	}, nil
}

// fit encodes, splits, fits and evaluates. Pure computation, no side effects.
func fit(frame *dataset.Frame, req model.TrainRequest, def estimator.Definition, params map[string]interface{}) (*artifact.Pipeline, map[string]float64, error) {
	enc, X, err := encoder.FitTransform(frame, req.FeatureCols)
	if err != nil {
		var schemaErr *encoder.SchemaError
		if errors.As(err, &schemaErr) {
			return nil, nil, &ValidationError{Msg: schemaErr.Msg}
		}
		return nil, nil, err
	}

	y, err := numericLabels(frame, req.LabelCol)
	if err != nil {
		return nil, nil, err
	}

	XTrain, XTest, yTrain, yTest := estimator.TrainTestSplit(X, y, req.TrainPercentage)

	est := def.New(params)
	if err := est.Fit(XTrain, yTrain); err != nil {
		return nil, nil, fmt.Errorf("training failed: %w", err)
	}

	metrics, err := estimator.Evaluate(est, XTest, yTest)
	if err != nil {
		return nil, nil, fmt.Errorf("evaluation failed: %w", err)
	}

	return &artifact.Pipeline{ModelType: req.ModelType, Encoder: enc, Estimator: est}, metrics, nil
}

// Predict loads the caller's model, aligns the features and runs inference.
// The debit is refunded on every failure after it.
func (s *LifecycleService) Predict(ctx context.Context, userID int, modelName string, features map[string]interface{}) (*model.PredictResponse, error) {
	name, err := sanitizeModelName(modelName)
	if err != nil {
		return nil, err
	}
	if len(features) == 0 {
		return nil, &ValidationError{Msg: "missing 'features' in request body"}
	}

	rec, err := s.models.Find(userID, name)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound
	}

	if _, err := s.users.CheckAndDebit(userID, s.predictCost); err != nil {
		return nil, err
	}

	prediction, err := s.runInference(name, features)
	if err != nil {
		s.refund(userID, s.predictCost)
		return nil, err
	}

	return &model.PredictResponse{
		Status:         "success",
		Prediction:     prediction,
		TokensDeducted: s.predictCost,
	}, nil
}

func (s *LifecycleService) runInference(name string, features map[string]interface{}) (float64, error) {
	pipeline, err := s.store.Load(name)
	if err != nil {
		if errors.Is(err, artifact.ErrArtifactNotFound) {
			// DB record exists but the file is gone: a server-side
			// inconsistency, surfaced to the caller as not-found.
			s.log.Warn("Metadata record has no artifact on disk", zap.String("model", name))
		}
		return 0, err
	}

	row, err := pipeline.Encoder.TransformRow(features)
	if err != nil {
		var schemaErr *encoder.SchemaError
		if errors.As(err, &schemaErr) {
			return 0, &ValidationError{Msg: schemaErr.Msg}
		}
		return 0, err
	}

	prediction, err := pipeline.Estimator.Predict(row)
	if err != nil {
		return 0, fmt.Errorf("prediction failed: %w", err)
	}
	return prediction, nil
}

// Delete removes a model's files and its metadata record, scoped to the
// owning user. File removal is best-effort; the record removal decides the
// outcome.
func (s *LifecycleService) Delete(userID int, modelName string) error {
	name, err := sanitizeModelName(modelName)
	if err != nil {
		return err
	}

	rec, err := s.models.Find(userID, name)
	if err != nil {
		return err
	}
	if rec == nil {
		return ErrNotFound
	}

	if _, err := s.store.Delete(name); err != nil {
		s.log.Warn("Failed to remove artifact files", zap.String("model", name), zap.Error(err))
	}

	deleted, err := s.models.Delete(userID, name)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}

	s.log.Info("Model deleted", zap.Int("user_id", userID), zap.String("model", name))
	return nil
}

// ListModels returns the caller's model names whose artifact is still on
// disk. Records with a missing artifact are skipped and logged.
func (s *LifecycleService) ListModels(userID int) ([]string, error) {
	records, err := s.models.List(userID)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(records))
	for _, rec := range records {
		if !s.store.Exists(rec.ModelName) {
			s.log.Warn("Skipping model with missing artifact",
				zap.Int("user_id", userID), zap.String("model", rec.ModelName))
			continue
		}
		names = append(names, rec.ModelName)
	}
	return names, nil
}

// GetModel returns the metadata of one owned model.
func (s *LifecycleService) GetModel(userID int, modelName string) (*model.ModelDetail, error) {
	name, err := sanitizeModelName(modelName)
	if err != nil {
		return nil, err
	}

	rec, err := s.models.Find(userID, name)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	if !s.store.Exists(rec.ModelName) {
		s.log.Warn("Metadata record has no artifact on disk", zap.String("model", rec.ModelName))
		return nil, ErrNotFound
	}

	var cols []string
	if err := json.Unmarshal([]byte(rec.FeatureCols), &cols); err != nil {
		return nil, fmt.Errorf("corrupt feature column list for %s: %w", rec.ModelName, err)
	}

	return &model.ModelDetail{
		ModelName:   rec.ModelName,
		ModelType:   rec.ModelType,
		FeatureCols: cols,
		CreatedAt:   rec.CreatedAt,
	}, nil
}

// DeleteUserModels removes every artifact owned by a user. Used by the admin
// cascade before the user row (and its model rows) are deleted.
func (s *LifecycleService) DeleteUserModels(userID int) {
	records, err := s.models.List(userID)
	if err != nil {
		s.log.Error("Failed to list models for cascade delete", zap.Int("user_id", userID), zap.Error(err))
		return
	}
	for _, rec := range records {
		if _, err := s.store.Delete(rec.ModelName); err != nil {
			s.log.Warn("Failed to remove artifact during cascade delete",
				zap.String("model", rec.ModelName), zap.Error(err))
		}
	}
}

// compensate undoes the post-debit side effects of a failed training run.
// Performed exactly once per failure; a refund failure is logged, not
// escalated, so the original error still reaches the caller.
func (s *LifecycleService) compensate(userID int, name string, cost int) {
	if _, err := s.store.Delete(name); err != nil {
		s.log.Warn("Compensation: failed to remove artifact files",
			zap.String("model", name), zap.Error(err))
	}
	s.refund(userID, cost)
}

func (s *LifecycleService) refund(userID, amount int) {
	if err := s.users.Refund(userID, amount); err != nil {
		s.log.Error("Refund failed",
			zap.Int("user_id", userID), zap.Int("amount", amount), zap.Error(err))
	}
}

// resolveModelName computes the final, globally unique artifact name. A
// caller-supplied name is sanitized and prefixed with the user id, which
// also makes ownership part of the name itself.
func (s *LifecycleService) resolveModelName(userID int, req model.TrainRequest) (string, error) {
	if req.ModelFilename == "" {
		return fmt.Sprintf("%d_%s_%d", userID, req.ModelType, time.Now().UnixMicro()), nil
	}
	name, err := sanitizeModelName(req.ModelFilename)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d_%s", userID, name), nil
}

// sanitizeModelName enforces the allow-listed character set before any
// lookup or filesystem access.
func sanitizeModelName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, "..") || !modelNamePattern.MatchString(name) {
		return "", &ValidationError{Msg: "invalid model name"}
	}
	return name, nil
}

func validateTrainRequest(frame *dataset.Frame, req model.TrainRequest) error {
	if !(req.TrainPercentage > 0 && req.TrainPercentage < 1) {
		return &ValidationError{Msg: "train_percentage must be between 0 and 1"}
	}
	if len(req.FeatureCols) == 0 {
		return &ValidationError{Msg: "feature_cols must not be empty"}
	}
	if req.LabelCol == "" {
		return &ValidationError{Msg: "label_col must not be empty"}
	}

	var missing []string
	for _, col := range append(append([]string{}, req.FeatureCols...), req.LabelCol) {
		if !frame.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Msg: fmt.Sprintf("columns not found in CSV: %s", strings.Join(missing, ", "))}
	}

	for _, col := range append(append([]string{}, req.FeatureCols...), req.LabelCol) {
		values, _ := frame.Column(col)
		for i, v := range values {
			if strings.TrimSpace(v) == "" {
				return &ValidationError{Msg: fmt.Sprintf("column %s has a missing value at row %d", col, i+1)}
			}
		}
	}

	if _, err := numericLabels(frame, req.LabelCol); err != nil {
		return err
	}

	return nil
}

func numericLabels(frame *dataset.Frame, labelCol string) ([]float64, error) {
	values, ok := frame.Column(labelCol)
	if !ok {
		return nil, &ValidationError{Msg: fmt.Sprintf("columns not found in CSV: %s", labelCol)}
	}
	y := make([]float64, len(values))
	for i, v := range values {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, &ValidationError{Msg: fmt.Sprintf("label column %s must be numeric", labelCol)}
		}
		y[i] = f
	}
	return y, nil
}
