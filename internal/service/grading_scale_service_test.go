package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/whatif-grades-api/internal/models"
	appErrors "github.com/noah-isme/whatif-grades-api/pkg/errors"
)

type gradingScaleRepoStub struct {
	items map[string]models.GradingScale
	err   error
	gets  int
}

func (s *gradingScaleRepoStub) Get(ctx context.Context, courseID string) (*models.GradingScale, error) {
	s.gets++
	if s.err != nil {
		return nil, s.err
	}
	scale, ok := s.items[courseID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "grading scale not found")
	}
	scale.Custom = true
	return &scale, nil
}

func (s *gradingScaleRepoStub) Upsert(ctx context.Context, scale *models.GradingScale) error {
	if s.err != nil {
		return s.err
	}
	if s.items == nil {
		s.items = make(map[string]models.GradingScale)
	}
	s.items[scale.CourseID] = *scale
	return nil
}

func (s *gradingScaleRepoStub) Delete(ctx context.Context, courseID string) error {
	delete(s.items, courseID)
	return s.err
}

func newGradingScaleService(t *testing.T, repo *gradingScaleRepoStub, cache *CacheService, enabled bool) *GradingScaleService {
	t.Helper()
	svc, err := NewGradingScaleService(repo, cache, nil, nil, nil, GradingScaleServiceConfig{
		Enabled:      enabled,
		DefaultScale: "90:A,80:B,70:C,0:F",
		CacheTTL:     time.Minute,
	})
	require.NoError(t, err)
	return svc
}

func TestGradingScaleServiceDefaultAndCustom(t *testing.T) {
	repo := &gradingScaleRepoStub{items: map[string]models.GradingScale{
		"c2": {CourseID: "c2", Thresholds: []models.GradeThreshold{{Min: 93, Letter: "A"}, {Min: 0, Letter: "B"}}},
	}}
	svc := newGradingScaleService(t, repo, nil, true)
	ctx := context.Background()

	scale, err := svc.Get(ctx, "c1")
	require.NoError(t, err)
	assert.False(t, scale.Custom)
	assert.Len(t, scale.Thresholds, 4)

	scale, err = svc.Resolve(ctx, "c2")
	require.NoError(t, err)
	assert.True(t, scale.Custom)
	assert.Equal(t, "A: 93%\nB: 0%", scale.String())
}

func TestGradingScaleServiceDisabled(t *testing.T) {
	svc := newGradingScaleService(t, &gradingScaleRepoStub{}, nil, false)
	scale, err := svc.Resolve(context.Background(), "c1")
	require.NoError(t, err)
	assert.Nil(t, scale)
	assert.False(t, svc.Enabled())
}

func TestGradingScaleServiceResolveFallsBackOnError(t *testing.T) {
	svc := newGradingScaleService(t, &gradingScaleRepoStub{err: errors.New("db down")}, nil, true)

	_, err := svc.Get(context.Background(), "c1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)

	scale, err := svc.Resolve(context.Background(), "c1")
	require.NoError(t, err)
	assert.Len(t, scale.Thresholds, 4)
}

func TestGradingScaleServiceCachesLookups(t *testing.T) {
	repo := &gradingScaleRepoStub{}
	cacheRepo := newMemoryCacheRepo()
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	svc := newGradingScaleService(t, repo, cache, true)
	ctx := context.Background()

	_, err := svc.Get(ctx, "c1")
	require.NoError(t, err)
	_, err = svc.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.gets)

	_, err = svc.Upsert(ctx, "c1", models.UpsertGradingScaleRequest{
		Thresholds: []models.GradeThreshold{{Min: 50, Letter: "P"}, {Min: 0, Letter: "NP"}},
	}, "u1")
	require.NoError(t, err)
	assert.Contains(t, cacheRepo.deleted, scaleCacheKey("c1"))

	scale, err := svc.Get(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, scale.Custom)
	assert.Equal(t, "u1", *scale.UpdatedBy)
}

func TestGradingScaleServiceUpsertValidation(t *testing.T) {
	svc := newGradingScaleService(t, &gradingScaleRepoStub{}, nil, true)
	ctx := context.Background()

	cases := []models.UpsertGradingScaleRequest{
		{},
		{Thresholds: []models.GradeThreshold{{Min: -1, Letter: "A"}}},
		{Thresholds: []models.GradeThreshold{{Min: 90, Letter: ""}}},
		{Thresholds: []models.GradeThreshold{{Min: 90, Letter: "A"}, {Min: 90, Letter: "B"}}},
		{Thresholds: []models.GradeThreshold{{Min: 90, Letter: "A:1"}}},
	}
	for _, req := range cases {
		_, err := svc.Upsert(ctx, "c1", req, "u1")
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
}

func TestGradingScaleServiceDelete(t *testing.T) {
	repo := &gradingScaleRepoStub{items: map[string]models.GradingScale{"c1": {CourseID: "c1"}}}
	svc := newGradingScaleService(t, repo, nil, true)

	scale, err := svc.Delete(context.Background(), "c1")
	require.NoError(t, err)
	assert.False(t, scale.Custom)
	assert.Empty(t, repo.items)
}

func TestNewGradingScaleServiceRejectsBadDefault(t *testing.T) {
	_, err := NewGradingScaleService(&gradingScaleRepoStub{}, nil, nil, nil, nil, GradingScaleServiceConfig{DefaultScale: "A90"})
	assert.Error(t, err)
}
