package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/whatif-grades-api/internal/models"
	appErrors "github.com/noah-isme/whatif-grades-api/pkg/errors"
)

type gradingScaleRepository interface {
	Get(ctx context.Context, courseID string) (*models.GradingScale, error)
	Upsert(ctx context.Context, scale *models.GradingScale) error
	Delete(ctx context.Context, courseID string) error
}

// GradingScaleServiceConfig tunes runtime behaviour.
type GradingScaleServiceConfig struct {
	Enabled      bool
	DefaultScale string
	CacheTTL     time.Duration
}

// GradingScaleService resolves the letter grade scale applied to a course.
type GradingScaleService struct {
	repo      gradingScaleRepository
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	defaults  []models.GradeThreshold
	enabled   bool
	ttl       time.Duration
}

// NewGradingScaleService constructs a GradingScaleService. An unparsable
// default scale is a configuration error.
func NewGradingScaleService(repo gradingScaleRepository, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg GradingScaleServiceConfig) (*GradingScaleService, error) {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults, err := models.ParseGradingScale(cfg.DefaultScale)
	if err != nil {
		return nil, fmt.Errorf("default grading scale: %w", err)
	}
	return &GradingScaleService{
		repo:      repo,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		defaults:  defaults,
		enabled:   cfg.Enabled,
		ttl:       cfg.CacheTTL,
	}, nil
}

// Enabled reports whether letter grades are rendered at all.
func (s *GradingScaleService) Enabled() bool {
	return s.enabled
}

// Resolve returns the scale a course model should render with, or nil when
// letter grades are turned off. Lookup failures fall back to the default.
func (s *GradingScaleService) Resolve(ctx context.Context, courseID string) (*models.GradingScale, error) {
	if !s.enabled {
		return nil, nil
	}
	scale, err := s.Get(ctx, courseID)
	if err != nil {
		s.logger.Warn("grading scale lookup failed, using default", zap.String("course_id", courseID), zap.Error(err))
		return s.defaultScale(courseID), nil
	}
	return scale, nil
}

// Get returns the custom scale of a course or the configured default.
func (s *GradingScaleService) Get(ctx context.Context, courseID string) (*models.GradingScale, error) {
	if strings.TrimSpace(courseID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course id required")
	}

	var cached models.GradingScale
	if hit, _ := s.cache.Get(ctx, scaleCacheKey(courseID), &cached); hit {
		return &cached, nil
	}

	start := time.Now()
	scale, err := s.repo.Get(ctx, courseID)
	s.metrics.ObserveDBQuery("grading_scale_get", time.Since(start))
	if err != nil {
		var appErr *appErrors.Error
		if !errors.As(err, &appErr) || appErr.Code != appErrors.ErrNotFound.Code {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grading scale")
		}
		scale = s.defaultScale(courseID)
	}

	_ = s.cache.Set(ctx, scaleCacheKey(courseID), scale, s.ttl)
	return scale, nil
}

// Upsert stores a custom scale for the course.
func (s *GradingScaleService) Upsert(ctx context.Context, courseID string, req models.UpsertGradingScaleRequest, actor string) (*models.GradingScale, error) {
	if strings.TrimSpace(courseID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course id required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grading scale")
	}
	seen := make(map[float64]struct{}, len(req.Thresholds))
	for _, t := range req.Thresholds {
		if _, dup := seen[t.Min]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate threshold %g", t.Min))
		}
		seen[t.Min] = struct{}{}
		if strings.ContainsAny(t.Letter, ",:") {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("letter %q may not contain ',' or ':'", t.Letter))
		}
	}

	scale := &models.GradingScale{CourseID: courseID, Thresholds: req.Thresholds}
	if actor != "" {
		scale.UpdatedBy = &actor
	}
	start := time.Now()
	err := s.repo.Upsert(ctx, scale)
	s.metrics.ObserveDBQuery("grading_scale_upsert", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store grading scale")
	}
	_ = s.cache.Delete(ctx, scaleCacheKey(courseID))
	s.logger.Info("grading scale updated", zap.String("course_id", courseID), zap.String("actor", actor), zap.Int("thresholds", len(req.Thresholds)))
	return scale, nil
}

// Delete drops the custom scale and returns the default now in effect.
func (s *GradingScaleService) Delete(ctx context.Context, courseID string) (*models.GradingScale, error) {
	if err := s.repo.Delete(ctx, courseID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete grading scale")
	}
	_ = s.cache.Delete(ctx, scaleCacheKey(courseID))
	return s.defaultScale(courseID), nil
}

func (s *GradingScaleService) defaultScale(courseID string) *models.GradingScale {
	thresholds := make([]models.GradeThreshold, len(s.defaults))
	copy(thresholds, s.defaults)
	return &models.GradingScale{CourseID: courseID, Thresholds: thresholds}
}
