package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/whatif-grades-api/internal/models"
	appErrors "github.com/noah-isme/whatif-grades-api/pkg/errors"
)

// GradingScaleRepository persists per-course letter grade scales.
type GradingScaleRepository struct {
	db *sqlx.DB
}

// NewGradingScaleRepository constructs the repository.
func NewGradingScaleRepository(db *sqlx.DB) *GradingScaleRepository {
	return &GradingScaleRepository{db: db}
}

// Get fetches the custom scale of a course.
func (r *GradingScaleRepository) Get(ctx context.Context, courseID string) (*models.GradingScale, error) {
	const query = `SELECT course_id, thresholds, updated_by, updated_at FROM grading_scales WHERE course_id = $1`
	var scale models.GradingScale
	if err := r.db.GetContext(ctx, &scale, query, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grading scale not found")
		}
		return nil, fmt.Errorf("get grading scale: %w", err)
	}
	thresholds, err := models.ParseGradingScale(scale.Raw)
	if err != nil {
		return nil, fmt.Errorf("decode grading scale %s: %w", courseID, err)
	}
	scale.Thresholds = thresholds
	scale.Custom = true
	return &scale, nil
}

// Upsert inserts or replaces the scale of a course.
func (r *GradingScaleRepository) Upsert(ctx context.Context, scale *models.GradingScale) error {
	const query = `INSERT INTO grading_scales (course_id, thresholds, updated_by, updated_at)
VALUES (:course_id, :thresholds, :updated_by, :updated_at)
ON CONFLICT (course_id)
DO UPDATE SET thresholds = EXCLUDED.thresholds, updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at`
	scale.Raw = scale.Encode()
	scale.UpdatedAt = time.Now().UTC()
	if _, err := r.db.NamedExecContext(ctx, query, scale); err != nil {
		return fmt.Errorf("upsert grading scale: %w", err)
	}
	scale.Custom = true
	return nil
}

// Delete removes a custom scale. Deleting a missing scale is not an error.
func (r *GradingScaleRepository) Delete(ctx context.Context, courseID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM grading_scales WHERE course_id = $1`, courseID); err != nil {
		return fmt.Errorf("delete grading scale: %w", err)
	}
	return nil
}
