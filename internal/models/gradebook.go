package models

// CourseSnapshot carries the raw gradebook fields read from the host page.
// Rows are flat and point at their parent the same way the host table does.
type CourseSnapshot struct {
	Course      RawCourse       `json:"course" validate:"required"`
	Periods     []RawPeriod     `json:"periods" validate:"dive"`
	Categories  []RawCategory   `json:"categories" validate:"dive"`
	Assignments []RawAssignment `json:"assignments" validate:"dive"`
}

// RawCourse describes the course container.
type RawCourse struct {
	ID                 string  `json:"id" validate:"required"`
	Name               string  `json:"name"`
	DisplayedGradeText *string `json:"displayed_grade_text,omitempty"`
}

// RawPeriod describes a grading period row.
type RawPeriod struct {
	ID                 string  `json:"id" validate:"required"`
	Name               string  `json:"name"`
	WeightText         string  `json:"weight_text"`
	DisplayedGradeText *string `json:"displayed_grade_text,omitempty"`
}

// RawCategory describes a category row; WeightText is absent for unweighted categories.
type RawCategory struct {
	ID                 string  `json:"id" validate:"required"`
	ParentID           string  `json:"parent_id" validate:"required"`
	Name               string  `json:"name"`
	WeightText         *string `json:"weight_text,omitempty"`
	DisplayedGradeText *string `json:"displayed_grade_text,omitempty"`
}

// RawAssignment describes an assignment row as displayed by the host.
type RawAssignment struct {
	ID            string  `json:"id" validate:"required"`
	ParentID      string  `json:"parent_id" validate:"required"`
	Name          string  `json:"name"`
	PointsText    *string `json:"points_text,omitempty"`
	MaxPointsText *string `json:"max_points_text,omitempty"`
	Comment       *string `json:"comment,omitempty"`
	ExceptionText *string `json:"exception_text,omitempty"`
	Missing       bool    `json:"missing"`
	Dropped       bool    `json:"dropped"`
}

// GradingMethod is the aggregation strategy assumed for a category.
type GradingMethod string

const (
	// GradingMethodPoints sums points over max points.
	GradingMethodPoints GradingMethod = "points"
	// GradingMethodPercent averages per-assignment percentages.
	GradingMethodPercent GradingMethod = "percent"
	// GradingMethodNoMatch means neither strategy reproduced the host's number.
	GradingMethodNoMatch GradingMethod = "no-match"
	// GradingMethodNoData means the host displayed no usable percentage.
	GradingMethodNoData GradingMethod = "no-data"
)

// GradeView is the rendered state of one entity in the hierarchy.
type GradeView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Points    string `json:"points"`
	MaxPoints string `json:"max_points"`
	Percent   string `json:"percent"`
	Detail    string `json:"detail"`
	Letter    string `json:"letter,omitempty"`
	Loading   bool   `json:"loading"`
	Failed    bool   `json:"failed"`
	Modified  bool   `json:"modified"`
	Ignored   bool   `json:"ignored"`
	Dropped   bool   `json:"dropped"`
}

// AssignmentView renders an assignment row.
type AssignmentView struct {
	GradeView
	Comment   string `json:"comment,omitempty"`
	Exception string `json:"exception,omitempty"`
}

// CategoryView renders a category with its assignments.
type CategoryView struct {
	GradeView
	GradingMethod  GradingMethod    `json:"grading_method"`
	MethodOverride bool             `json:"method_override"`
	Assignments    []AssignmentView `json:"assignments"`
}

// PeriodView renders a grading period with its categories.
type PeriodView struct {
	GradeView
	CategoriesWeighted bool           `json:"categories_weighted"`
	Categories         []CategoryView `json:"categories"`
}

// CourseView renders the whole course tree.
type CourseView struct {
	GradeView
	WhatIf       bool         `json:"what_if"`
	GradingScale string       `json:"grading_scale,omitempty"`
	Periods      []PeriodView `json:"periods"`
}

// WhatIfRequest sets hypothetical scores for an assignment. Nil fields clear
// the corresponding override.
type WhatIfRequest struct {
	Points    *float64 `json:"points" validate:"omitempty,min=0"`
	MaxPoints *float64 `json:"max_points" validate:"omitempty,min=0"`
	Dropped   *bool    `json:"dropped"`
}

// MethodOverrideRequest toggles the what-if grading method of a category.
type MethodOverrideRequest struct {
	Enabled bool `json:"enabled"`
}

// WhatIfResult lists the rows re-rendered by an edit, leaf first.
type WhatIfResult struct {
	Changed []GradeView `json:"changed"`
	Course  CourseView  `json:"course"`
}
