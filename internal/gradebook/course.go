package gradebook

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/whatif-grades-api/internal/models"
	appErrors "github.com/noah-isme/whatif-grades-api/pkg/errors"
)

const (
	// DefaultWaitTimeout bounds WaitForPoints when no timeout is given.
	DefaultWaitTimeout = 30 * time.Second
	// DefaultPollInterval is how often waits re-check the model.
	DefaultPollInterval = 500 * time.Millisecond
)

// Course is the root of the hierarchy and the arena that owns every period,
// category and assignment. Children are referenced downward; parents are
// reached through the index each child stores.
//
// The exported Course methods are safe for concurrent use. Accessors on
// Period, Category and Assignment are not synchronised and must only be used
// once loading has finished or from a single goroutine.
type Course struct {
	ID   string
	Name string

	mu               sync.Mutex
	displayedPercent *float64
	periods          []*Period
	categories       []*Category
	assignments      []*Assignment
	assignmentIndex  map[string]int
	categoryIndex    map[string]int

	scale         *models.GradingScale
	listing       *models.GradeListing
	listingCached bool

	logger       *zap.Logger
	pollInterval time.Duration
}

// Option configures a Course at build time.
type Option func(*Course)

// WithLogger sets the logger used for parse and resolution diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Course) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithGradingScale enables letter grades using the given scale.
func WithGradingScale(scale *models.GradingScale) Option {
	return func(c *Course) { c.scale = scale }
}

// WithPollInterval overrides the wait polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Course) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// Build reconstructs a course from raw host fields.
func Build(src Source, opts ...Option) (*Course, error) {
	raw := src.Course()
	if raw.ID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course id required")
	}
	c := &Course{
		ID:              raw.ID,
		Name:            raw.Name,
		assignmentIndex: make(map[string]int),
		categoryIndex:   make(map[string]int),
		logger:          zap.NewNop(),
		pollInterval:    DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.displayedPercent = c.parsePercent(raw.DisplayedGradeText, "course", raw.ID)

	for _, rp := range src.Periods() {
		period := &Period{ID: rp.ID, Name: rp.Name, course: c.ID}
		if w, ok := parseFirstNumber(rp.WeightText); ok {
			period.Weight = w / 100
		} else {
			c.logger.Warn("error parsing period weight", zap.String("period_id", rp.ID), zap.String("text", rp.WeightText))
		}
		period.displayedPercent = c.parsePercent(rp.DisplayedGradeText, "period", rp.ID)
		c.periods = append(c.periods, period)

		for _, rc := range src.Categories(rp.ID) {
			if _, dup := c.categoryIndex[rc.ID]; dup {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate category %s", rc.ID))
			}
			category := &Category{ID: rc.ID, Name: rc.Name, period: len(c.periods) - 1}
			if rc.WeightText != nil {
				if w, ok := parseFirstNumber(*rc.WeightText); ok {
					category.Weight = ptr(w / 100)
				} else {
					c.logger.Warn("error parsing category weight", zap.String("category_id", rc.ID), zap.String("text", *rc.WeightText))
				}
			}
			category.displayedPercent = c.parsePercent(rc.DisplayedGradeText, "category", rc.ID)
			c.categoryIndex[rc.ID] = len(c.categories)
			c.categories = append(c.categories, category)
			period.categories = append(period.categories, category)

			for _, ra := range src.Assignments(rc.ID) {
				if _, dup := c.assignmentIndex[ra.ID]; dup {
					return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate assignment %s", ra.ID))
				}
				assignment := newAssignment(ra, len(c.categories)-1, c.logger)
				c.assignmentIndex[ra.ID] = len(c.assignments)
				c.assignments = append(c.assignments, assignment)
				category.assignments = append(category.assignments, assignment)
			}
		}
	}
	if rows, ok := src.(rowSource); ok {
		c.warnOrphans(rows)
	}
	return c, nil
}

// warnOrphans logs rows whose parent is not part of the course. Their scores
// take no part in any aggregate.
func (c *Course) warnOrphans(rows rowSource) {
	periods := make(map[string]struct{}, len(c.periods))
	for _, p := range c.periods {
		periods[p.ID] = struct{}{}
	}
	for _, rc := range rows.CategoryRows() {
		if _, ok := periods[rc.ParentID]; !ok {
			c.logger.Warn("category references unknown period",
				zap.String("category_id", rc.ID), zap.String("parent_id", rc.ParentID))
		}
	}
	for _, ra := range rows.AssignmentRows() {
		if _, ok := c.categoryIndex[ra.ParentID]; !ok {
			c.logger.Warn("assignment references unknown category",
				zap.String("assignment_id", ra.ID), zap.String("parent_id", ra.ParentID))
		}
	}
}

func (c *Course) parsePercent(text *string, kind, id string) *float64 {
	if text == nil {
		return nil
	}
	v, ok := parseDisplayedPercent(*text)
	if !ok {
		c.logger.Debug("no displayed percent", zap.String("kind", kind), zap.String("id", id), zap.String("text", *text))
		return nil
	}
	return &v
}

// Periods returns the course's periods in page order.
func (c *Course) Periods() []*Period { return c.periods }

// Assignment looks up an assignment by id.
func (c *Course) Assignment(id string) (*Assignment, bool) {
	idx, ok := c.assignmentIndex[id]
	if !ok {
		return nil, false
	}
	return c.assignments[idx], true
}

// Category looks up a category by id.
func (c *Course) Category(id string) (*Category, bool) {
	idx, ok := c.categoryIndex[id]
	if !ok {
		return nil, false
	}
	return c.categories[idx], true
}

// CategoryOf walks from an assignment to its category.
func (c *Course) CategoryOf(a *Assignment) *Category { return c.categories[a.category] }

// PeriodOf walks from a category to its period.
func (c *Course) PeriodOf(cat *Category) *Period { return c.periods[cat.period] }

// Assignments returns every assignment in page order.
func (c *Course) Assignments() []*Assignment { return c.assignments }

// SetGradingScale replaces the scale; nil disables letter grades.
func (c *Course) SetGradingScale(scale *models.GradingScale) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scale = scale
}

// GradingScaleString renders the active scale, highest threshold first.
func (c *Course) GradingScaleString() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scale == nil {
		return ""
	}
	return c.scale.String()
}

// SetListing caches the bulk grade listing. Only the first call has effect;
// a nil listing records that the fetch failed.
func (c *Course) SetListing(listing *models.GradeListing) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listingCached {
		return false
	}
	c.listing = listing
	c.listingCached = true
	if c.displayedPercent == nil {
		if final, ok := listing.LastFinalGrade(); ok {
			c.displayedPercent = &final
		}
	}
	return true
}

// ApplyAssignmentMeta refines grade factors from upstream assignment metadata.
func (c *Course) ApplyAssignmentMeta(metas []models.AssignmentMeta) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	applied := 0
	for _, meta := range metas {
		a, ok := c.Assignment(meta.ID.String())
		if !ok || meta.Factor.Value == nil {
			continue
		}
		a.gradeFactor = *meta.Factor.Value
		applied++
	}
	return applied
}

// DisplayedPercent is the host's own course percent, if known.
func (c *Course) DisplayedPercent() *float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.displayedPercent
}

// UnresolvedAssignments lists assignments whose real score has gaps to fill.
func (c *Course) UnresolvedAssignments() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var ids []string
	for _, a := range c.assignments {
		if a.unresolved() {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// GradePercent sums period percent times weight over periods with a weight
// and a percent. It is nil only when no period contributed.
func (c *Course) GradePercent(whatIf bool) *float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.percent(whatIf)
}

func (c *Course) percent(whatIf bool) *float64 {
	var sum float64
	anyValid := false
	for _, p := range c.periods {
		if p.Weight == 0 {
			continue
		}
		pct := p.GradePercent(whatIf)
		if pct == nil {
			continue
		}
		anyValid = true
		sum += *pct * p.Weight
	}
	if !anyValid {
		return nil
	}
	return &sum
}

// IsLoading reports whether any period is loading.
func (c *Course) IsLoading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading()
}

func (c *Course) loading() bool {
	for _, p := range c.periods {
		if p.IsLoading() {
			return true
		}
	}
	return false
}

// FailedToLoad reports whether any period contains a failed assignment.
func (c *Course) FailedToLoad() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failedAny()
}

// IsModified reports whether any period carries a what-if change.
func (c *Course) IsModified() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.modified()
}

func (c *Course) modified() bool {
	for _, p := range c.periods {
		if p.IsModified() {
			return true
		}
	}
	return false
}

func (c *Course) pending(whatIf bool) bool {
	for _, p := range c.periods {
		if p.pending(whatIf) {
			return true
		}
	}
	return false
}

func (c *Course) failed(whatIf bool) bool {
	for _, p := range c.periods {
		if p.failed(whatIf) {
			return true
		}
	}
	return false
}

// LetterGrade looks up the letter for a percent. ok is false when letter
// grades are disabled or no scale is configured.
func (c *Course) LetterGrade(percent float64) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.letterGrade(percent)
}

func (c *Course) letterGrade(percent float64) (string, bool) {
	if c.scale == nil || len(c.scale.Thresholds) == 0 {
		return "", false
	}
	for _, t := range c.scale.Descending() {
		if percent >= t.Min {
			return t.Letter, true
		}
	}
	return "?", true
}

func (c *Course) letterGradeString(pct *float64, percentString string) string {
	if pct == nil {
		return "—"
	}
	letter, ok := c.letterGrade(*pct)
	if !ok {
		return percentString
	}
	return fmt.Sprintf("%s (%s)", letter, percentString)
}

func (c *Course) percentString(whatIf bool) string {
	return aggregatePercentString(c.pending(whatIf), c.failed(whatIf), c.percent(whatIf))
}

// String renders the course line.
func (c *Course) String(whatIf bool) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.line(whatIf)
}

func (c *Course) line(whatIf bool) string {
	return fmt.Sprintf("%s (%s) - %s", c.Name, c.ID, c.percentString(whatIf))
}

// DetailedString renders the whole tree, one indented line per entity.
func (c *Course) DetailedString(whatIf bool) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	lines := []string{c.line(whatIf)}
	for _, p := range c.periods {
		lines = append(lines, "  "+p.String(whatIf))
		for _, cat := range p.categories {
			lines = append(lines, "    "+cat.String(whatIf))
			for _, a := range cat.assignments {
				lines = append(lines, "      "+a.String(whatIf))
			}
		}
	}
	return strings.Join(lines, "\n")
}

func (c *Course) describe(a *Assignment) string {
	category := c.CategoryOf(a)
	period := c.PeriodOf(category)
	return fmt.Sprintf("assignment %q (%s) from category %q from period %q from course %q (%s)",
		a.Name, a.ID, category.Name, period.Name, c.Name, c.ID)
}

// WaitForPoints polls until both real score fields of the assignment are
// set. It fails when the assignment fails to load or the timeout elapses.
func (c *Course) WaitForPoints(ctx context.Context, assignmentID string, timeout time.Duration) error {
	a, ok := c.Assignment(assignmentID)
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("assignment %s not found", assignmentID))
	}
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	return c.poll(ctx, timeout, func() (bool, error) {
		if a.points != nil && a.maxPoints != nil {
			return true, nil
		}
		if a.failedToLoad {
			return true, appErrors.Clone(appErrors.ErrResolutionFailed, "failed to load points for "+c.describe(a))
		}
		return false, nil
	}, func() string {
		return fmt.Sprintf("timeout (%s) waiting for points on %s", timeout, c.describe(a))
	})
}

// WaitLoaded polls until no assignment in the course is still loading.
func (c *Course) WaitLoaded(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	return c.poll(ctx, timeout, func() (bool, error) {
		return !c.loading(), nil
	}, func() string {
		return fmt.Sprintf("timeout (%s) waiting for course %s to load", timeout, c.ID)
	})
}

func (c *Course) poll(ctx context.Context, timeout time.Duration, check func() (bool, error), describe func() string) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		c.mu.Lock()
		done, err := check()
		c.mu.Unlock()
		if done {
			return err
		}
		select {
		case <-ctx.Done():
			c.mu.Lock()
			msg := describe()
			c.mu.Unlock()
			return appErrors.Wrap(ctx.Err(), appErrors.ErrTimeout.Code, appErrors.ErrTimeout.Status, msg)
		case <-ticker.C:
		}
	}
}
