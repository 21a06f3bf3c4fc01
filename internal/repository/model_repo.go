package repository

import (
	"database/sql"
	"time"

	"github.com/ShaniStaretz-ai/FinalProject/internal/model"
)

// ModelRepository owns the model metadata table. Every query is scoped by
// user_id so one user's models are invisible to another.
type ModelRepository struct {
	d *Database
}

func NewModelRepository(d *Database) *ModelRepository {
	return &ModelRepository{d: d}
}

// Insert creates a metadata record. Returns (0, false, nil) when the
// (user_id, model_name) pair is already taken; storage errors are returned
// as errors so callers can tell "name taken" from an outage.
func (r *ModelRepository) Insert(userID int, name, modelType, filePath, featureColsJSON string) (int, bool, error) {
	now := time.Now().Format(time.RFC3339)
	query := `
		INSERT INTO models (user_id, model_name, model_type, file_path, feature_cols, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.d.db.Exec(query, userID, name, modelType, filePath, featureColsJSON, now)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, false, nil
		}
		return 0, false, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, false, err
	}

	return int(id), true, nil
}

// Find returns the record for (userID, name), or nil when absent.
func (r *ModelRepository) Find(userID int, name string) (*model.ModelRecord, error) {
	rec := &model.ModelRecord{}
	err := r.d.db.QueryRow(`
		SELECT id, user_id, model_name, model_type, file_path, feature_cols, created_at
		FROM models WHERE user_id = ? AND model_name = ?
	`, userID, name).Scan(
		&rec.ID, &rec.UserID, &rec.ModelName, &rec.ModelType,
		&rec.FilePath, &rec.FeatureCols, &rec.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns all records owned by userID, newest first.
func (r *ModelRepository) List(userID int) ([]model.ModelRecord, error) {
	rows, err := r.d.db.Query(`
		SELECT id, user_id, model_name, model_type, file_path, feature_cols, created_at
		FROM models WHERE user_id = ? ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.ModelRecord
	for rows.Next() {
		var rec model.ModelRecord
		err := rows.Scan(&rec.ID, &rec.UserID, &rec.ModelName, &rec.ModelType,
			&rec.FilePath, &rec.FeatureCols, &rec.CreatedAt)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Delete removes the record for (userID, name). Returns false when no such
// record existed for this user.
func (r *ModelRepository) Delete(userID int, name string) (bool, error) {
	result, err := r.d.db.Exec(`DELETE FROM models WHERE user_id = ? AND model_name = ?`, userID, name)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}
