package models

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/spf13/cast"
)

// Number decodes upstream numeric fields that may arrive as JSON numbers,
// numeric strings or null.
type Number struct {
	Value *float64
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil || raw == "" {
		n.Value = nil
		return nil
	}
	v, err := cast.ToFloat64E(raw)
	if err != nil || math.IsNaN(v) {
		n.Value = nil
		return nil
	}
	n.Value = &v
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*n.Value)
}

// Valid reports whether a value was present.
func (n Number) Valid() bool {
	return n.Value != nil
}

// String formats integral values without a fraction, as ids are.
func (n Number) String() string {
	if n.Value == nil {
		return ""
	}
	return strconv.FormatFloat(*n.Value, 'f', -1, 64)
}

// NumberOf wraps a float for tests and fixtures.
func NumberOf(v float64) Number {
	return Number{Value: &v}
}

// GradeListing is the bulk per-course grade listing.
type GradeListing struct {
	Section []ListingSection `json:"section"`
}

// ListingSection groups periods for one section.
type ListingSection struct {
	Period     []ListingPeriod     `json:"period"`
	FinalGrade []ListingFinalGrade `json:"final_grade"`
}

// ListingPeriod groups assignment grades.
type ListingPeriod struct {
	Assignment []ListingAssignment `json:"assignment"`
}

// ListingAssignment is one graded item in the listing.
type ListingAssignment struct {
	AssignmentID Number `json:"assignment_id"`
	Grade        Number `json:"grade"`
	MaxPoints    Number `json:"max_points"`
}

// ListingFinalGrade is a period or course final grade entry.
type ListingFinalGrade struct {
	Grade Number `json:"grade"`
}

// Find returns the first assignment with the given id in the first section.
func (l *GradeListing) Find(assignmentID string) (*ListingAssignment, bool) {
	if l == nil || len(l.Section) == 0 {
		return nil, false
	}
	for _, period := range l.Section[0].Period {
		for i := range period.Assignment {
			if period.Assignment[i].AssignmentID.String() == assignmentID {
				return &period.Assignment[i], true
			}
		}
	}
	return nil, false
}

// LastFinalGrade returns the last final grade of the first section.
func (l *GradeListing) LastFinalGrade() (float64, bool) {
	if l == nil || len(l.Section) == 0 {
		return 0, false
	}
	finals := l.Section[0].FinalGrade
	if len(finals) == 0 || finals[len(finals)-1].Grade.Value == nil {
		return 0, false
	}
	return *finals[len(finals)-1].Grade.Value, true
}

// AssignmentDetail is the per-assignment detail payload.
type AssignmentDetail struct {
	MaxPoints Number `json:"max_points"`
}

// AssignmentPage is one page of the per-course assignment list.
type AssignmentPage struct {
	Assignment []AssignmentMeta `json:"assignment"`
	Links      PageLinks        `json:"links"`
}

// AssignmentMeta carries assignment metadata used to refine grade factors.
type AssignmentMeta struct {
	ID        Number `json:"id"`
	Factor    Number `json:"factor"`
	MaxPoints Number `json:"max_points"`
}

// PageLinks holds pagination links.
type PageLinks struct {
	Next string `json:"next,omitempty"`
}
