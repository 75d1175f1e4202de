package gradebook

import (
	"fmt"
	"math"

	"github.com/noah-isme/whatif-grades-api/internal/models"
)

// Category aggregates assignments using either raw points or equal
// weighting, whichever reproduces the host's own percentage.
type Category struct {
	ID     string
	Name   string
	Weight *float64

	displayedPercent *float64
	assignments      []*Assignment
	period           int

	// method is nil until inference has run on fully loaded data.
	method         *models.GradingMethod
	methodOverride bool
}

// Assignments returns the category's assignments in page order.
func (c *Category) Assignments() []*Assignment { return c.assignments }

// DisplayedPercent is the percent the host showed for this category, if any.
func (c *Category) DisplayedPercent() *float64 { return c.displayedPercent }

// MethodOverride reports whether the what-if method toggle is active.
func (c *Category) MethodOverride() bool { return c.methodOverride }

// IsLoading reports whether any assignment is still unresolved.
func (c *Category) IsLoading() bool {
	for _, a := range c.assignments {
		if a.IsLoading() {
			return true
		}
	}
	return false
}

// FailedToLoad reports whether any assignment permanently failed.
func (c *Category) FailedToLoad() bool {
	for _, a := range c.assignments {
		if a.FailedToLoad() {
			return true
		}
	}
	return false
}

// IsModified reports a method override or any modified assignment.
func (c *Category) IsModified() bool {
	if c.methodOverride {
		return true
	}
	for _, a := range c.assignments {
		if a.IsModified() {
			return true
		}
	}
	return false
}

func (c *Category) pending(whatIf bool) bool {
	for _, a := range c.assignments {
		if a.IsLoading() && !a.masked(whatIf) {
			return true
		}
	}
	return false
}

func (c *Category) failed(whatIf bool) bool {
	for _, a := range c.assignments {
		if a.FailedToLoad() && !a.masked(whatIf) {
			return true
		}
	}
	return false
}

// rawPointTotals sums factored points and max points.
func (c *Category) rawPointTotals(whatIf bool) (float64, float64) {
	var points, maxPoints float64
	for _, a := range c.assignments {
		if a.IgnoreInCalculations(whatIf) {
			continue
		}
		points += *a.Points(whatIf) * a.gradeFactor
		maxPoints += *a.MaxPoints(whatIf) * a.gradeFactor
	}
	return points, maxPoints
}

// equalWeightTotals sums factored percentages over factored hundreds. A zero
// maximum assignment adds its raw points as a flat bonus.
func (c *Category) equalWeightTotals(whatIf bool) (float64, float64) {
	var points, maxPoints float64
	for _, a := range c.assignments {
		if a.IgnoreInCalculations(whatIf) {
			continue
		}
		if *a.MaxPoints(whatIf) == 0 {
			points += *a.Points(whatIf)
			continue
		}
		points += *a.GradePercent(whatIf) * a.gradeFactor
		maxPoints += 100 * a.gradeFactor
	}
	return points, maxPoints
}

func (c *Category) inferGradingMethod() models.GradingMethod {
	if c.displayedPercent == nil {
		return models.GradingMethodNoData
	}
	matches := func(points, maxPoints float64) bool {
		pct := ratioPercent(points, maxPoints)
		return pct != nil && !math.IsInf(*pct, 0) && numbersNearlyMatch(*pct, *c.displayedPercent, methodTolerance)
	}
	if matches(c.rawPointTotals(false)) {
		return models.GradingMethodPoints
	}
	if matches(c.equalWeightTotals(false)) {
		return models.GradingMethodPercent
	}
	return models.GradingMethodNoMatch
}

// AssumedGradingMethod returns the inferred method. The result is memoised
// the first time it is computed on fully loaded data.
func (c *Category) AssumedGradingMethod() models.GradingMethod {
	if c.method != nil {
		return *c.method
	}
	method := c.inferGradingMethod()
	if !c.IsLoading() {
		c.method = &method
	}
	return method
}

// AssignmentsWeightedEqually reports whether equal weighting is in effect.
// The override only flips the inferred method in what-if mode.
func (c *Category) AssignmentsWeightedEqually(whatIf bool) bool {
	inferred := c.AssumedGradingMethod() == models.GradingMethodPercent
	return inferred != (c.methodOverride && whatIf)
}

func (c *Category) totals(whatIf bool) (float64, float64) {
	if c.AssignmentsWeightedEqually(whatIf) {
		return c.equalWeightTotals(whatIf)
	}
	return c.rawPointTotals(whatIf)
}

// Points returns the aggregate numerator under the active strategy.
func (c *Category) Points(whatIf bool) float64 {
	points, _ := c.totals(whatIf)
	return points
}

// MaxPoints returns the aggregate denominator under the active strategy.
func (c *Category) MaxPoints(whatIf bool) float64 {
	_, maxPoints := c.totals(whatIf)
	return maxPoints
}

// GradePercent returns the category percent, nil when nothing is gradable.
func (c *Category) GradePercent(whatIf bool) *float64 {
	return ratioPercent(c.totals(whatIf))
}

// PercentString is the two-decimal percent label.
func (c *Category) PercentString(whatIf bool) string {
	return aggregatePercentString(c.pending(whatIf), c.failed(whatIf), c.GradePercent(whatIf))
}

// DetailString is the tooltip text for the percent label.
func (c *Category) DetailString(whatIf bool) string {
	if c.pending(whatIf) {
		return "Loading grade percentage..."
	}
	if c.failed(whatIf) {
		return "Failed to load grade percentage"
	}
	pct := c.GradePercent(whatIf)
	if pct == nil {
		return "—"
	}
	if isExtraCredit(pct) {
		return fmt.Sprintf("%s points of Extra Credit", formatNumber(c.Points(whatIf)))
	}
	return fmt.Sprintf("%s%%", formatNumber(*pct))
}

// String renders a single diagnostic line.
func (c *Category) String(whatIf bool) string {
	return fmt.Sprintf("%s (%s) - %s/%s - %s",
		c.Name, c.ID,
		formatNumber(roundTo(c.Points(whatIf), 2)), formatNumber(roundTo(c.MaxPoints(whatIf), 2)),
		c.PercentString(whatIf))
}

func aggregatePercentString(loading, failed bool, pct *float64) string {
	switch {
	case loading:
		return "LOADING"
	case failed:
		return "ERR"
	case pct == nil:
		return "—"
	case isExtraCredit(pct):
		return "EC"
	}
	return fmt.Sprintf("%s%%", formatNumber(roundTo(*pct, 2)))
}
