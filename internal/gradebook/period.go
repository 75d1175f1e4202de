package gradebook

import (
	"fmt"
)

// Period aggregates categories, either as a weighted percent of percents or
// as a plain point total.
type Period struct {
	ID     string
	Name   string
	Weight float64

	displayedPercent *float64
	categories       []*Category
	course           string
}

// Categories returns the period's categories in page order.
func (p *Period) Categories() []*Category { return p.categories }

// CategoriesAreWeighted reports whether any category declares a weight. One
// weighted category switches the formula for the whole period.
func (p *Period) CategoriesAreWeighted() bool {
	for _, c := range p.categories {
		if c.Weight != nil {
			return true
		}
	}
	return false
}

// IsLoading reports whether any category is still loading.
func (p *Period) IsLoading() bool {
	for _, c := range p.categories {
		if c.IsLoading() {
			return true
		}
	}
	return false
}

// FailedToLoad reports whether any category contains a failed assignment.
func (p *Period) FailedToLoad() bool {
	for _, c := range p.categories {
		if c.FailedToLoad() {
			return true
		}
	}
	return false
}

// IsModified reports whether any category is modified.
func (p *Period) IsModified() bool {
	for _, c := range p.categories {
		if c.IsModified() {
			return true
		}
	}
	return false
}

func (p *Period) pending(whatIf bool) bool {
	for _, c := range p.categories {
		if c.pending(whatIf) {
			return true
		}
	}
	return false
}

func (p *Period) failed(whatIf bool) bool {
	for _, c := range p.categories {
		if c.failed(whatIf) {
			return true
		}
	}
	return false
}

// weightedPercent sums category percent times weight over weighted
// categories only. It is nil when no weighted category has gradable content.
func (p *Period) weightedPercent(whatIf bool) *float64 {
	var sum float64
	valid := false
	for _, c := range p.categories {
		if c.Weight == nil {
			continue
		}
		pct := c.GradePercent(whatIf)
		if pct != nil {
			valid = true
		}
		sum += valueOr(pct, 0) * *c.Weight
	}
	if !valid {
		return nil
	}
	return &sum
}

// Points is the weighted percent (or 0) for weighted periods and the sum of
// category points otherwise, with weighted categories scaled by their weight.
func (p *Period) Points(whatIf bool) float64 {
	if p.CategoriesAreWeighted() {
		return valueOr(p.weightedPercent(whatIf), 0)
	}
	var sum float64
	for _, c := range p.categories {
		sum += c.Points(whatIf) * valueOr(c.Weight, 1)
	}
	return sum
}

// MaxPoints is fixed at 100 for weighted periods.
func (p *Period) MaxPoints(whatIf bool) float64 {
	if p.CategoriesAreWeighted() {
		return 100
	}
	var sum float64
	for _, c := range p.categories {
		sum += c.MaxPoints(whatIf) * valueOr(c.Weight, 1)
	}
	return sum
}

// GradePercent returns the period percent, nil when nothing is gradable.
func (p *Period) GradePercent(whatIf bool) *float64 {
	if p.CategoriesAreWeighted() {
		pct := p.weightedPercent(whatIf)
		if pct == nil {
			return nil
		}
		return ratioPercent(*pct, 100)
	}
	return ratioPercent(p.Points(whatIf), p.MaxPoints(whatIf))
}

// PercentString is the two-decimal percent label.
func (p *Period) PercentString(whatIf bool) string {
	return aggregatePercentString(p.pending(whatIf), p.failed(whatIf), p.GradePercent(whatIf))
}

// DetailString is the tooltip text for the percent label.
func (p *Period) DetailString(whatIf bool) string {
	return aggregateDetailString(p.pending(whatIf), p.failed(whatIf), p.GradePercent(whatIf))
}

// String renders a single diagnostic line.
func (p *Period) String(whatIf bool) string {
	return fmt.Sprintf("%s (%s) - %s/%s - %s",
		p.Name, p.ID,
		formatNumber(roundTo(p.Points(whatIf), 2)), formatNumber(roundTo(p.MaxPoints(whatIf), 2)),
		p.PercentString(whatIf))
}

func aggregateDetailString(loading, failed bool, pct *float64) string {
	switch {
	case loading:
		return "Loading grade percentage..."
	case failed:
		return "Failed to load grade percentage"
	case pct == nil:
		return "—"
	case isExtraCredit(pct):
		return "Extra Credit"
	}
	return fmt.Sprintf("%s%%", formatNumber(*pct))
}
