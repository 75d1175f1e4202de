package gradebook

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/noah-isme/whatif-grades-api/internal/models"
)

// Assignment is a leaf of the grade hierarchy. It owns its real score, which
// may be filled in once by the resolver, and an optional what-if score.
type Assignment struct {
	ID        string
	Name      string
	Comment   *string
	Exception *string

	isMissing bool
	isDropped bool
	// ignore is the exclusion decided from the scraped fields alone and
	// controls whether a gap is worth resolving.
	ignore       bool
	gradeFactor  float64
	failedToLoad bool

	points    *float64
	maxPoints *float64

	whatIfPoints    *float64
	whatIfMaxPoints *float64
	whatIfDropped   *bool

	category int
}

func newAssignment(raw models.RawAssignment, category int, logger *zap.Logger) *Assignment {
	a := &Assignment{
		ID:          raw.ID,
		Name:        raw.Name,
		Comment:     raw.Comment,
		Exception:   raw.ExceptionText,
		isDropped:   raw.Dropped,
		gradeFactor: 1,
		category:    category,
	}

	if raw.PointsText != nil {
		if v, ok := parseLeadingFloat(*raw.PointsText); ok {
			a.points = &v
		} else {
			logger.Warn("error parsing points for assignment", zap.String("assignment_id", raw.ID), zap.String("text", *raw.PointsText))
		}
	}
	if raw.MaxPointsText != nil {
		if v, ok := parseFirstNumber(*raw.MaxPointsText); ok {
			a.maxPoints = &v
		} else {
			logger.Warn("error parsing max points for assignment", zap.String("assignment_id", raw.ID), zap.String("text", *raw.MaxPointsText))
		}
	}

	a.ignore = a.isDropped || a.Exception != nil || (a.points == nil && a.maxPoints == nil)

	if raw.Missing {
		a.ignore = a.isDropped
		a.points = ptr(0.0)
		a.maxPoints = nil
		a.isMissing = true
	}
	return a
}

// Points returns the what-if points when requested and set, else the real points.
func (a *Assignment) Points(whatIf bool) *float64 {
	if whatIf && a.whatIfPoints != nil {
		return a.whatIfPoints
	}
	return a.points
}

// MaxPoints returns the what-if max points when requested and set, else the real value.
func (a *Assignment) MaxPoints(whatIf bool) *float64 {
	if whatIf && a.whatIfMaxPoints != nil {
		return a.whatIfMaxPoints
	}
	return a.maxPoints
}

// GradeFactor is the multiplier applied when aggregating into the category.
func (a *Assignment) GradeFactor() float64 { return a.gradeFactor }

// IsMissing reports whether the host flagged the assignment as missing.
func (a *Assignment) IsMissing() bool { return a.isMissing }

// FailedToLoad reports the terminal resolution failure.
func (a *Assignment) FailedToLoad() bool { return a.failedToLoad }

// HasWhatIfScore reports whether either what-if score field is set.
func (a *Assignment) HasWhatIfScore() bool {
	return a.whatIfPoints != nil || a.whatIfMaxPoints != nil
}

// IsModified reports whether any what-if override is present.
func (a *Assignment) IsModified() bool {
	return a.HasWhatIfScore() || a.whatIfDropped != nil
}

// IsLoading reports an unresolved real score that still matters.
func (a *Assignment) IsLoading() bool {
	return (a.points == nil || a.maxPoints == nil) && !a.ignore && !a.failedToLoad
}

// Dropped honours the what-if dropped override in what-if mode.
func (a *Assignment) Dropped(whatIf bool) bool {
	if whatIf && a.whatIfDropped != nil {
		return *a.whatIfDropped
	}
	return a.isDropped
}

// masked reports whether a what-if score fully covers the real score.
func (a *Assignment) masked(whatIf bool) bool {
	return whatIf && a.HasWhatIfScore() && a.Points(true) != nil && a.MaxPoints(true) != nil
}

// IgnoreInCalculations reports whether the assignment is left out of every
// aggregate for the given mode.
func (a *Assignment) IgnoreInCalculations(whatIf bool) bool {
	if a.Dropped(whatIf) {
		return true
	}
	if a.masked(whatIf) {
		return false
	}
	if a.failedToLoad {
		return true
	}
	if a.Exception != nil && !a.isMissing && !(whatIf && a.HasWhatIfScore()) {
		return true
	}
	return a.Points(whatIf) == nil || a.MaxPoints(whatIf) == nil
}

// GradePercent returns nil when ignored, 0 for a zero score, +Inf for a zero
// maximum and the plain ratio otherwise.
func (a *Assignment) GradePercent(whatIf bool) *float64 {
	if a.IgnoreInCalculations(whatIf) {
		return nil
	}
	points, maxPoints := a.Points(whatIf), a.MaxPoints(whatIf)
	switch {
	case *points == 0:
		return ptr(0.0)
	case *maxPoints == 0:
		return ptr(math.Inf(1))
	}
	return ptr(*points * 100 / *maxPoints)
}

// PercentString is the short percent label shown next to the score.
func (a *Assignment) PercentString(whatIf bool) string {
	masked := a.masked(whatIf)
	if a.IsLoading() && !masked {
		return "LOADING"
	}
	if a.failedToLoad && !masked {
		return "ERR"
	}
	pct := a.GradePercent(whatIf)
	if pct == nil {
		return "—"
	}
	if isExtraCredit(pct) {
		return "EC"
	}
	return fmt.Sprintf("%s%%", formatNumber(math.Round(*pct)))
}

// DetailString is the tooltip text for the percent label.
func (a *Assignment) DetailString(whatIf bool) string {
	masked := a.masked(whatIf)
	if a.IsLoading() && !masked {
		return "Loading grade percentage..."
	}
	if a.failedToLoad && !masked {
		return "Failed to load grade percentage"
	}
	pct := a.GradePercent(whatIf)
	if pct == nil {
		return "—"
	}
	if isExtraCredit(pct) {
		return fmt.Sprintf("%s points of Extra Credit", formatOptional(a.Points(whatIf)))
	}
	return fmt.Sprintf("%s%%", formatNumber(*pct))
}

// String renders a single diagnostic line.
func (a *Assignment) String(whatIf bool) string {
	return fmt.Sprintf("%s (%s) - %s/%s - %s - %s - %s",
		a.Name, a.ID,
		formatOptional(a.Points(whatIf)), formatOptional(a.MaxPoints(whatIf)),
		a.PercentString(whatIf), optionalText(a.Comment), optionalText(a.Exception))
}

func (a *Assignment) setWhatIf(points, maxPoints *float64, dropped *bool) {
	a.whatIfPoints = points
	a.whatIfMaxPoints = maxPoints
	a.whatIfDropped = dropped
}

func (a *Assignment) needPoints() bool {
	return a.points == nil && !a.ignore && a.Exception == nil
}

func (a *Assignment) shouldLoadMaxPoints() bool {
	return a.maxPoints == nil
}

func (a *Assignment) needMaxPoints() bool {
	return a.maxPoints == nil && !a.ignore
}

func (a *Assignment) unresolved() bool {
	return !a.failedToLoad && (a.needPoints() || a.shouldLoadMaxPoints())
}

func optionalText(s *string) string {
	if s == nil {
		return "—"
	}
	return *s
}
