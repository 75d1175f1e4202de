package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// GradeThreshold maps a minimum percentage to a letter grade.
type GradeThreshold struct {
	Min    float64 `json:"min" validate:"min=0"`
	Letter string  `json:"letter" validate:"required"`
}

// GradingScale is the ordered threshold table for a course.
type GradingScale struct {
	CourseID   string           `db:"course_id" json:"course_id"`
	Thresholds []GradeThreshold `db:"-" json:"thresholds"`
	Raw        string           `db:"thresholds" json:"-"`
	UpdatedBy  *string          `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt  time.Time        `db:"updated_at" json:"updated_at"`
	Custom     bool             `db:"-" json:"custom"`
}

// UpsertGradingScaleRequest stores a custom scale for a course.
type UpsertGradingScaleRequest struct {
	Thresholds []GradeThreshold `json:"thresholds" validate:"required,min=1,dive"`
}

// Descending returns the thresholds sorted from highest to lowest minimum.
func (s *GradingScale) Descending() []GradeThreshold {
	if s == nil {
		return nil
	}
	sorted := make([]GradeThreshold, len(s.Thresholds))
	copy(sorted, s.Thresholds)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Min > sorted[j].Min })
	return sorted
}

// String renders one "Letter: min%" line per threshold, highest first.
func (s *GradingScale) String() string {
	lines := make([]string, 0, len(s.Descending()))
	for _, t := range s.Descending() {
		lines = append(lines, fmt.Sprintf("%s: %s%%", t.Letter, strconv.FormatFloat(t.Min, 'f', -1, 64)))
	}
	return strings.Join(lines, "\n")
}

// Encode renders the thresholds in the "90:A,80:B" form ParseGradingScale reads.
func (s *GradingScale) Encode() string {
	parts := make([]string, 0, len(s.Thresholds))
	for _, t := range s.Descending() {
		parts = append(parts, strconv.FormatFloat(t.Min, 'f', -1, 64)+":"+t.Letter)
	}
	return strings.Join(parts, ",")
}

// ParseGradingScale reads "90:A,80:B" style definitions used in configuration.
func ParseGradingScale(raw string) ([]GradeThreshold, error) {
	var thresholds []GradeThreshold
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		pieces := strings.SplitN(part, ":", 2)
		if len(pieces) != 2 {
			return nil, fmt.Errorf("invalid grading scale entry %q", part)
		}
		min, err := strconv.ParseFloat(strings.TrimSpace(pieces[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid grading scale threshold %q: %w", pieces[0], err)
		}
		letter := strings.TrimSpace(pieces[1])
		if letter == "" {
			return nil, fmt.Errorf("empty letter for threshold %q", pieces[0])
		}
		thresholds = append(thresholds, GradeThreshold{Min: min, Letter: letter})
	}
	return thresholds, nil
}
