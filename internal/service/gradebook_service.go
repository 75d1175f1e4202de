package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/whatif-grades-api/internal/gradebook"
	"github.com/noah-isme/whatif-grades-api/internal/models"
	appErrors "github.com/noah-isme/whatif-grades-api/pkg/errors"
	"github.com/noah-isme/whatif-grades-api/pkg/jobs"
)

const resolveJobType = "resolve_assignment"

type gradebookUpstream interface {
	GradeListing(ctx context.Context, userID, courseID string) (*models.GradeListing, error)
	SectionAssignments(ctx context.Context, courseID string) ([]models.AssignmentMeta, error)
	AssignmentDetail(ctx context.Context, courseID, assignmentID string) (*models.AssignmentDetail, error)
}

type gradingScaleResolver interface {
	Resolve(ctx context.Context, courseID string) (*models.GradingScale, error)
}

type courseExporter interface {
	Render(view models.CourseView, format string) (*ExportResult, error)
}

// GradebookServiceConfig tunes runtime behaviour.
type GradebookServiceConfig struct {
	Workers      int
	WaitTimeout  time.Duration
	PollInterval time.Duration
	CourseTTL    time.Duration
	ListingTTL   time.Duration
}

type courseEntry struct {
	course     *gradebook.Course
	userID     string
	loadID     string
	lastAccess time.Time
}

type resolveJob struct {
	course       *gradebook.Course
	assignmentID string
}

// GradebookService owns the in-memory course models of every user and drives
// their background score resolution.
type GradebookService struct {
	upstream  gradebookUpstream
	scales    gradingScaleResolver
	exporter  courseExporter
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       GradebookServiceConfig
	queue     *jobs.Queue
	now       func() time.Time

	mu      sync.Mutex
	courses map[string]*courseEntry

	stopSweep context.CancelFunc
	sweepDone chan struct{}
}

// NewGradebookService constructs a GradebookService. Start must be called
// before courses are loaded.
func NewGradebookService(upstream gradebookUpstream, scales gradingScaleResolver, exporter courseExporter, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg GradebookServiceConfig) *GradebookService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if exporter == nil {
		exporter = NewExportService(logger, nil, nil)
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = gradebook.DefaultWaitTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = gradebook.DefaultPollInterval
	}
	if cfg.CourseTTL <= 0 {
		cfg.CourseTTL = time.Hour
	}
	s := &GradebookService{
		upstream:  upstream,
		scales:    scales,
		exporter:  exporter,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
		courses:   make(map[string]*courseEntry),
	}
	s.queue = jobs.NewQueue("assignment-resolver", s.handleResolve, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: 0,
		Logger:     logger,
	})
	return s
}

// Start launches the resolution workers and the idle course sweeper.
func (s *GradebookService) Start(ctx context.Context) {
	s.queue.Start(ctx)

	sweepCtx, cancel := context.WithCancel(ctx)
	s.stopSweep = cancel
	s.sweepDone = make(chan struct{})
	interval := s.cfg.CourseTTL / 4
	if interval < time.Second {
		interval = time.Second
	}
	go func() {
		defer close(s.sweepDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					s.logger.Info("expired idle courses", zap.Int("count", n))
				}
			}
		}
	}()
}

// Stop halts the sweeper and the workers. In-flight fetches are abandoned.
func (s *GradebookService) Stop() {
	if s.stopSweep != nil {
		s.stopSweep()
		<-s.sweepDone
	}
	s.queue.Stop()
}

// Load builds a course model from a host snapshot, replacing any model the
// user already had for that course, and schedules resolution of every
// assignment with a missing score. With wait set it blocks until loading has
// finished.
func (s *GradebookService) Load(ctx context.Context, userID string, snapshot models.CourseSnapshot, wait bool) (models.CourseView, error) {
	if userID == "" {
		return models.CourseView{}, appErrors.Clone(appErrors.ErrUnauthorized, "user id required")
	}
	if err := s.validator.Struct(snapshot); err != nil {
		return models.CourseView{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course snapshot")
	}
	courseID := snapshot.Course.ID
	logger := s.logger.With(zap.String("course_id", courseID), zap.String("user_id", userID))

	var scale *models.GradingScale
	if s.scales != nil {
		resolved, err := s.scales.Resolve(ctx, courseID)
		if err != nil {
			logger.Warn("grading scale unavailable", zap.Error(err))
		}
		scale = resolved
	}

	course, err := gradebook.Build(gradebook.NewSnapshotSource(snapshot),
		gradebook.WithLogger(logger),
		gradebook.WithGradingScale(scale),
		gradebook.WithPollInterval(s.cfg.PollInterval),
	)
	if err != nil {
		return models.CourseView{}, err
	}

	listing, metas := s.fetchCourseData(ctx, userID, courseID, logger)
	course.SetListing(listing)
	if applied := course.ApplyAssignmentMeta(metas); applied > 0 {
		logger.Debug("applied assignment metadata", zap.Int("count", applied))
	}

	entry := &courseEntry{course: course, userID: userID, loadID: uuid.NewString(), lastAccess: s.now()}
	s.mu.Lock()
	_, replaced := s.courses[courseKey(userID, courseID)]
	s.courses[courseKey(userID, courseID)] = entry
	loaded := len(s.courses)
	s.mu.Unlock()
	s.metrics.SetCoursesLoaded(loaded)

	unresolved := course.UnresolvedAssignments()
	for _, assignmentID := range unresolved {
		job := jobs.Job{
			Key:     entry.loadID + "/" + assignmentID,
			Type:    resolveJobType,
			Payload: resolveJob{course: course, assignmentID: assignmentID},
		}
		if err := s.queue.Enqueue(ctx, job); err != nil && !errors.Is(err, jobs.ErrDuplicate) {
			logger.Error("failed to schedule assignment resolution", zap.String("assignment_id", assignmentID), zap.Error(err))
		}
	}
	logger.Info("course loaded",
		zap.Bool("replaced", replaced),
		zap.Int("assignments", len(course.Assignments())),
		zap.Int("unresolved", len(unresolved)),
	)

	if wait {
		if err := course.WaitLoaded(ctx, s.cfg.WaitTimeout); err != nil {
			return models.CourseView{}, err
		}
	}
	return course.Render(false), nil
}

// fetchCourseData loads the bulk listing and assignment metadata side by side.
// The two fetches are independent: a failure of one does not cancel the
// other, and either may be missing afterwards, in which case resolution falls
// back or fails per assignment.
func (s *GradebookService) fetchCourseData(ctx context.Context, userID, courseID string, logger *zap.Logger) (*models.GradeListing, []models.AssignmentMeta) {
	if s.upstream == nil {
		return nil, nil
	}
	var (
		g          errgroup.Group
		listing    *models.GradeListing
		metas      []models.AssignmentMeta
		listingErr error
		metasErr   error
	)
	g.Go(func() error {
		listing, listingErr = s.gradeListing(ctx, userID, courseID)
		if listingErr != nil {
			listingErr = fmt.Errorf("grade listing: %w", listingErr)
		}
		return nil
	})
	g.Go(func() error {
		metas, metasErr = s.upstream.SectionAssignments(ctx, courseID)
		if metasErr != nil {
			metasErr = fmt.Errorf("assignment metadata: %w", metasErr)
		}
		return nil
	})
	_ = g.Wait()
	if err := errors.Join(listingErr, metasErr); err != nil {
		logger.Warn("course data incomplete", zap.Error(err))
	}
	return listing, metas
}

func (s *GradebookService) gradeListing(ctx context.Context, userID, courseID string) (*models.GradeListing, error) {
	key := listingCacheKey(userID, courseID)
	var cached models.GradeListing
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}
	listing, err := s.upstream.GradeListing(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, key, listing, s.cfg.ListingTTL)
	return listing, nil
}

func (s *GradebookService) handleResolve(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(resolveJob)
	if !ok {
		return jobs.Permanent(fmt.Errorf("unexpected payload %T", job.Payload))
	}
	var fetcher gradebook.DetailFetcher
	if s.upstream != nil {
		fetcher = s.upstream
	}
	outcome, err := payload.course.ResolveAssignment(ctx, payload.assignmentID, fetcher)
	if err != nil {
		return jobs.Permanent(err)
	}
	s.metrics.RecordResolution(outcome)
	return nil
}

// Get renders a loaded course, optionally waiting for loading to finish.
func (s *GradebookService) Get(ctx context.Context, userID, courseID string, whatIf, wait bool) (models.CourseView, error) {
	course, err := s.lookup(userID, courseID)
	if err != nil {
		return models.CourseView{}, err
	}
	if wait {
		if err := course.WaitLoaded(ctx, s.cfg.WaitTimeout); err != nil {
			return models.CourseView{}, err
		}
	}
	return course.Render(whatIf), nil
}

// Detail returns the indented text dump of a loaded course.
func (s *GradebookService) Detail(userID, courseID string, whatIf bool) (string, error) {
	course, err := s.lookup(userID, courseID)
	if err != nil {
		return "", err
	}
	return course.DetailedString(whatIf), nil
}

// Export renders a loaded course as a CSV or PDF download.
func (s *GradebookService) Export(userID, courseID, format string, whatIf bool) (*ExportResult, error) {
	course, err := s.lookup(userID, courseID)
	if err != nil {
		return nil, err
	}
	return s.exporter.Render(course.Render(whatIf), format)
}

// SetWhatIf applies a hypothetical score to an assignment.
func (s *GradebookService) SetWhatIf(userID, courseID, assignmentID string, req models.WhatIfRequest) (models.WhatIfResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.WhatIfResult{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid what-if score")
	}
	course, err := s.lookup(userID, courseID)
	if err != nil {
		return models.WhatIfResult{}, err
	}
	return course.SetWhatIf(assignmentID, req, s.renderLogger(courseID))
}

// ClearWhatIf removes the hypothetical score of an assignment.
func (s *GradebookService) ClearWhatIf(userID, courseID, assignmentID string) (models.WhatIfResult, error) {
	course, err := s.lookup(userID, courseID)
	if err != nil {
		return models.WhatIfResult{}, err
	}
	return course.ClearWhatIf(assignmentID, s.renderLogger(courseID))
}

// SetMethodOverride flips the assumed grading method of a category in
// what-if mode.
func (s *GradebookService) SetMethodOverride(userID, courseID, categoryID string, enabled bool) (models.WhatIfResult, error) {
	course, err := s.lookup(userID, courseID)
	if err != nil {
		return models.WhatIfResult{}, err
	}
	return course.SetMethodOverride(categoryID, enabled, s.renderLogger(courseID))
}

// WaitForPoints blocks until the assignment's real score is known. A
// non-positive timeout uses the configured default.
func (s *GradebookService) WaitForPoints(ctx context.Context, userID, courseID, assignmentID string, timeout time.Duration) error {
	course, err := s.lookup(userID, courseID)
	if err != nil {
		return err
	}
	if timeout <= 0 {
		timeout = s.cfg.WaitTimeout
	}
	return course.WaitForPoints(ctx, assignmentID, timeout)
}

// ApplyGradingScale swaps the scale of every loaded model of the course and
// reports how many were updated.
func (s *GradebookService) ApplyGradingScale(courseID string, scale *models.GradingScale) int {
	s.mu.Lock()
	var targets []*gradebook.Course
	for _, entry := range s.courses {
		if entry.course.ID == courseID {
			targets = append(targets, entry.course)
		}
	}
	s.mu.Unlock()

	for _, course := range targets {
		course.SetGradingScale(scale)
	}
	return len(targets)
}

// Delete tears down a loaded course and forgets its cached listing. Pending
// resolutions finish against the detached model.
func (s *GradebookService) Delete(ctx context.Context, userID, courseID string) error {
	key := courseKey(userID, courseID)
	s.mu.Lock()
	_, ok := s.courses[key]
	delete(s.courses, key)
	loaded := len(s.courses)
	s.mu.Unlock()
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "course not loaded")
	}
	s.metrics.SetCoursesLoaded(loaded)
	_ = s.cache.Delete(ctx, listingCacheKey(userID, courseID))
	return nil
}

// Sweep drops models not accessed within the course TTL.
func (s *GradebookService) Sweep() int {
	cutoff := s.now().Add(-s.cfg.CourseTTL)
	s.mu.Lock()
	removed := 0
	for key, entry := range s.courses {
		if entry.lastAccess.Before(cutoff) {
			delete(s.courses, key)
			removed++
		}
	}
	loaded := len(s.courses)
	s.mu.Unlock()
	if removed > 0 {
		s.metrics.SetCoursesLoaded(loaded)
	}
	return removed
}

// Loaded returns the number of models held in memory.
func (s *GradebookService) Loaded() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.courses)
}

// PendingResolutions returns the number of queued or running resolutions.
func (s *GradebookService) PendingResolutions() int {
	return s.queue.Pending()
}

func (s *GradebookService) lookup(userID, courseID string) (*gradebook.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.courses[courseKey(userID, courseID)]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not loaded")
	}
	entry.lastAccess = s.now()
	return entry.course, nil
}

func (s *GradebookService) renderLogger(courseID string) gradebook.Renderer {
	return gradebook.RendererFunc(func(level gradebook.Level, view models.GradeView) {
		s.logger.Debug("re-rendered",
			zap.String("course_id", courseID),
			zap.String("level", string(level)),
			zap.String("id", view.ID),
			zap.String("percent", view.Percent),
		)
	})
}

func courseKey(userID, courseID string) string {
	return userID + "/" + courseID
}
