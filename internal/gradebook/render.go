package gradebook

import (
	"fmt"

	"github.com/noah-isme/whatif-grades-api/internal/models"
	appErrors "github.com/noah-isme/whatif-grades-api/pkg/errors"
)

// Level names a tier of the hierarchy in render notifications.
type Level string

const (
	LevelAssignment Level = "assignment"
	LevelCategory   Level = "category"
	LevelPeriod     Level = "period"
	LevelCourse     Level = "course"
)

// Renderer receives the recomputed view of each level after an edit, from the
// edited assignment up to the course.
type Renderer interface {
	Render(level Level, view models.GradeView)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(level Level, view models.GradeView)

// Render implements Renderer.
func (f RendererFunc) Render(level Level, view models.GradeView) { f(level, view) }

// Render produces the full view tree of the course.
func (c *Course) Render(whatIf bool) models.CourseView {
	c.mu.Lock()
	defer c.mu.Unlock()

	view := models.CourseView{
		GradeView: c.courseView(whatIf),
		WhatIf:    whatIf,
		Periods:   make([]models.PeriodView, 0, len(c.periods)),
	}
	if c.scale != nil {
		view.GradingScale = c.scale.String()
	}
	for _, p := range c.periods {
		pv := models.PeriodView{
			GradeView:          c.periodView(p, whatIf),
			CategoriesWeighted: p.CategoriesAreWeighted(),
			Categories:         make([]models.CategoryView, 0, len(p.categories)),
		}
		for _, cat := range p.categories {
			cv := models.CategoryView{
				GradeView:      c.categoryView(cat, whatIf),
				GradingMethod:  cat.AssumedGradingMethod(),
				MethodOverride: cat.methodOverride,
				Assignments:    make([]models.AssignmentView, 0, len(cat.assignments)),
			}
			for _, a := range cat.assignments {
				cv.Assignments = append(cv.Assignments, assignmentView(a, whatIf))
			}
			pv.Categories = append(pv.Categories, cv)
		}
		view.Periods = append(view.Periods, pv)
	}
	return view
}

func assignmentView(a *Assignment, whatIf bool) models.AssignmentView {
	return models.AssignmentView{
		GradeView: models.GradeView{
			ID:        a.ID,
			Name:      a.Name,
			Points:    formatOptional(a.Points(whatIf)),
			MaxPoints: formatOptional(a.MaxPoints(whatIf)),
			Percent:   a.PercentString(whatIf),
			Detail:    a.DetailString(whatIf),
			Loading:   a.IsLoading(),
			Failed:    a.failedToLoad,
			Modified:  a.IsModified(),
			Ignored:   a.IgnoreInCalculations(whatIf),
			Dropped:   a.Dropped(whatIf),
		},
		Comment:   valueOr(a.Comment, ""),
		Exception: valueOr(a.Exception, ""),
	}
}

func (c *Course) categoryView(cat *Category, whatIf bool) models.GradeView {
	percent := cat.PercentString(whatIf)
	return models.GradeView{
		ID:        cat.ID,
		Name:      cat.Name,
		Points:    formatNumber(roundTo(cat.Points(whatIf), 2)),
		MaxPoints: formatNumber(roundTo(cat.MaxPoints(whatIf), 2)),
		Percent:   percent,
		Detail:    cat.DetailString(whatIf),
		Letter:    c.letterGradeString(cat.GradePercent(whatIf), percent),
		Loading:   cat.IsLoading(),
		Failed:    cat.FailedToLoad(),
		Modified:  cat.IsModified(),
		Ignored:   cat.Weight == nil && c.PeriodOf(cat).CategoriesAreWeighted(),
	}
}

func (c *Course) periodView(p *Period, whatIf bool) models.GradeView {
	percent := p.PercentString(whatIf)
	view := models.GradeView{
		ID:       p.ID,
		Name:     p.Name,
		Percent:  percent,
		Detail:   p.DetailString(whatIf),
		Letter:   c.letterGradeString(p.GradePercent(whatIf), percent),
		Loading:  p.IsLoading(),
		Failed:   p.FailedToLoad(),
		Modified: p.IsModified(),
	}
	if !p.CategoriesAreWeighted() {
		view.Points = formatNumber(roundTo(p.Points(whatIf), 2))
		view.MaxPoints = formatNumber(roundTo(p.MaxPoints(whatIf), 2))
	}
	return view
}

func (c *Course) courseView(whatIf bool) models.GradeView {
	percent := c.percentString(whatIf)
	pct := c.percent(whatIf)
	return models.GradeView{
		ID:       c.ID,
		Name:     c.Name,
		Percent:  percent,
		Detail:   aggregateDetailString(c.pending(whatIf), c.failed(whatIf), pct),
		Letter:   c.letterGradeString(pct, percent),
		Loading:  c.loading(),
		Failed:   c.failedAny(),
		Modified: c.modified(),
	}
}

func (c *Course) failedAny() bool {
	for _, p := range c.periods {
		if p.FailedToLoad() {
			return true
		}
	}
	return false
}

// LetterGradeString renders the course letter with its percent, or the bare
// percent when letter grades are off.
func (c *Course) LetterGradeString(whatIf bool) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.letterGradeString(c.percent(whatIf), c.percentString(whatIf))
}

// SetWhatIf applies a hypothetical score to an assignment and re-renders the
// chain above it in what-if mode. Nil score fields inherit the real score.
func (c *Course) SetWhatIf(assignmentID string, req models.WhatIfRequest, r Renderer) (models.WhatIfResult, error) {
	a, ok := c.Assignment(assignmentID)
	if !ok {
		return models.WhatIfResult{}, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("assignment %s not found", assignmentID))
	}
	c.mu.Lock()
	a.setWhatIf(copyFloat(req.Points), copyFloat(req.MaxPoints), copyBool(req.Dropped))
	changed := c.propagate(a)
	c.mu.Unlock()
	return c.notify(changed, r), nil
}

// ClearWhatIf removes every what-if override from an assignment.
func (c *Course) ClearWhatIf(assignmentID string, r Renderer) (models.WhatIfResult, error) {
	return c.SetWhatIf(assignmentID, models.WhatIfRequest{}, r)
}

// SetMethodOverride toggles the what-if grading method flip of a category.
func (c *Course) SetMethodOverride(categoryID string, enabled bool, r Renderer) (models.WhatIfResult, error) {
	cat, ok := c.Category(categoryID)
	if !ok {
		return models.WhatIfResult{}, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("category %s not found", categoryID))
	}
	c.mu.Lock()
	cat.methodOverride = enabled
	changed := c.propagateCategory(cat, nil)
	c.mu.Unlock()
	return c.notify(changed, r), nil
}

type levelView struct {
	level Level
	view  models.GradeView
}

func (c *Course) propagate(a *Assignment) []levelView {
	return c.propagateCategory(c.CategoryOf(a), []levelView{{LevelAssignment, assignmentView(a, true).GradeView}})
}

func (c *Course) propagateCategory(cat *Category, changed []levelView) []levelView {
	period := c.PeriodOf(cat)
	return append(changed,
		levelView{LevelCategory, c.categoryView(cat, true)},
		levelView{LevelPeriod, c.periodView(period, true)},
		levelView{LevelCourse, c.courseView(true)},
	)
}

// notify hands the views to the renderer outside the lock and builds the
// result with a fresh what-if render of the course.
func (c *Course) notify(changed []levelView, r Renderer) models.WhatIfResult {
	result := models.WhatIfResult{Changed: make([]models.GradeView, 0, len(changed))}
	for _, lv := range changed {
		if r != nil {
			r.Render(lv.level, lv.view)
		}
		result.Changed = append(result.Changed, lv.view)
	}
	result.Course = c.Render(true)
	return result
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func copyBool(v *bool) *bool {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
