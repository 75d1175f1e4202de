package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/whatif-grades-api/internal/models"
	appErrors "github.com/noah-isme/whatif-grades-api/pkg/errors"
)

func newGradingScaleRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestGradingScaleRepositoryGet(t *testing.T) {
	db, mock, cleanup := newGradingScaleRepoMock(t)
	defer cleanup()

	repo := NewGradingScaleRepository(db)
	rows := sqlmock.NewRows([]string{"course_id", "thresholds", "updated_by", "updated_at"}).
		AddRow("c1", "93:A,90:A-,0:F", "u1", time.Now())
	mock.ExpectQuery("SELECT course_id, thresholds").
		WithArgs("c1").
		WillReturnRows(rows)

	scale, err := repo.Get(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, scale.Thresholds, 3)
	assert.Equal(t, "A-", scale.Thresholds[1].Letter)
	assert.True(t, scale.Custom)
	assert.Equal(t, "u1", *scale.UpdatedBy)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradingScaleRepositoryGetMissing(t *testing.T) {
	db, mock, cleanup := newGradingScaleRepoMock(t)
	defer cleanup()

	mock.ExpectQuery("SELECT course_id, thresholds").
		WithArgs("c404").
		WillReturnError(sql.ErrNoRows)

	_, err := NewGradingScaleRepository(db).Get(context.Background(), "c404")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestGradingScaleRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newGradingScaleRepoMock(t)
	defer cleanup()

	updatedBy := "instructor-1"
	mock.ExpectExec("INSERT INTO grading_scales").
		WithArgs("c1", "90:A,80:B", "instructor-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	scale := &models.GradingScale{
		CourseID:   "c1",
		Thresholds: []models.GradeThreshold{{Min: 80, Letter: "B"}, {Min: 90, Letter: "A"}},
		UpdatedBy:  &updatedBy,
	}
	require.NoError(t, NewGradingScaleRepository(db).Upsert(context.Background(), scale))
	assert.Equal(t, "90:A,80:B", scale.Raw)
	assert.False(t, scale.UpdatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradingScaleRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newGradingScaleRepoMock(t)
	defer cleanup()

	mock.ExpectExec("DELETE FROM grading_scales").
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, NewGradingScaleRepository(db).Delete(context.Background(), "c1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
