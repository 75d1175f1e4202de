package gradebook

import "github.com/noah-isme/whatif-grades-api/internal/models"

// Source supplies the raw host fields a course is reconstructed from. The
// engine never looks at presentation structure beyond these values.
type Source interface {
	Course() models.RawCourse
	Periods() []models.RawPeriod
	Categories(periodID string) []models.RawCategory
	Assignments(categoryID string) []models.RawAssignment
}

// rowSource lists every row regardless of parent, so Build can report rows
// that hang off an unknown period or category.
type rowSource interface {
	CategoryRows() []models.RawCategory
	AssignmentRows() []models.RawAssignment
}

// SnapshotSource adapts a posted CourseSnapshot to Source.
type SnapshotSource struct {
	snapshot models.CourseSnapshot
}

// NewSnapshotSource wraps a snapshot.
func NewSnapshotSource(snapshot models.CourseSnapshot) *SnapshotSource {
	return &SnapshotSource{snapshot: snapshot}
}

// Course implements Source.
func (s *SnapshotSource) Course() models.RawCourse { return s.snapshot.Course }

// Periods implements Source.
func (s *SnapshotSource) Periods() []models.RawPeriod { return s.snapshot.Periods }

// Categories implements Source.
func (s *SnapshotSource) Categories(periodID string) []models.RawCategory {
	var out []models.RawCategory
	for _, c := range s.snapshot.Categories {
		if c.ParentID == periodID {
			out = append(out, c)
		}
	}
	return out
}

// Assignments implements Source.
func (s *SnapshotSource) Assignments(categoryID string) []models.RawAssignment {
	var out []models.RawAssignment
	for _, a := range s.snapshot.Assignments {
		if a.ParentID == categoryID {
			out = append(out, a)
		}
	}
	return out
}

// CategoryRows returns every category row of the snapshot.
func (s *SnapshotSource) CategoryRows() []models.RawCategory { return s.snapshot.Categories }

// AssignmentRows returns every assignment row of the snapshot.
func (s *SnapshotSource) AssignmentRows() []models.RawAssignment { return s.snapshot.Assignments }
