package gradebook

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/whatif-grades-api/internal/models"
)

func text(s string) *string { return &s }

func assignmentRow(id, categoryID, points, maxPoints string) models.RawAssignment {
	row := models.RawAssignment{ID: id, ParentID: categoryID, Name: "Assignment " + id}
	if points != "" {
		row.PointsText = text(points)
	}
	if maxPoints != "" {
		row.MaxPointsText = text(maxPoints)
	}
	return row
}

func singleCategory(displayed string, rows ...models.RawAssignment) models.CourseSnapshot {
	category := models.RawCategory{ID: "cat1", ParentID: "p1", Name: "Homework"}
	if displayed != "" {
		category.DisplayedGradeText = text(displayed)
	}
	return models.CourseSnapshot{
		Course:      models.RawCourse{ID: "course1", Name: "Algebra"},
		Periods:     []models.RawPeriod{{ID: "p1", Name: "Q1", WeightText: "(100%)"}},
		Categories:  []models.RawCategory{category},
		Assignments: rows,
	}
}

func build(t *testing.T, snapshot models.CourseSnapshot, opts ...Option) *Course {
	t.Helper()
	course, err := Build(NewSnapshotSource(snapshot), opts...)
	require.NoError(t, err)
	return course
}

func mustAssignment(t *testing.T, c *Course, id string) *Assignment {
	t.Helper()
	a, ok := c.Assignment(id)
	require.True(t, ok, "assignment %s", id)
	return a
}

func mustCategory(t *testing.T, c *Course, id string) *Category {
	t.Helper()
	cat, ok := c.Category(id)
	require.True(t, ok, "category %s", id)
	return cat
}

func TestAssignmentGradePercent(t *testing.T) {
	cases := []struct {
		name      string
		row       models.RawAssignment
		expected  *float64
		isIgnored bool
	}{
		{name: "ratio", row: assignmentRow("a1", "cat1", "8", "/ 10"), expected: ptr(80.0)},
		{name: "decimal max", row: assignmentRow("a1", "cat1", "9.5", "/ 12.5"), expected: ptr(76.0)},
		{name: "extra credit", row: assignmentRow("a1", "cat1", "5", "/ 0"), expected: ptr(math.Inf(1))},
		{name: "zero over zero", row: assignmentRow("a1", "cat1", "0", "/ 0"), expected: ptr(0.0)},
		{name: "zero score", row: assignmentRow("a1", "cat1", "0", "/ 10"), expected: ptr(0.0)},
		{name: "ungraded", row: assignmentRow("a1", "cat1", "", ""), isIgnored: true},
		{
			name: "excused",
			row: func() models.RawAssignment {
				row := assignmentRow("a1", "cat1", "8", "/ 10")
				row.ExceptionText = text("Excused")
				return row
			}(),
			isIgnored: true,
		},
		{
			name: "dropped",
			row: func() models.RawAssignment {
				row := assignmentRow("a1", "cat1", "8", "/ 10")
				row.Dropped = true
				return row
			}(),
			isIgnored: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			course := build(t, singleCategory("", tc.row))
			a := mustAssignment(t, course, "a1")

			assert.Equal(t, tc.isIgnored, a.IgnoreInCalculations(false))
			pct := a.GradePercent(false)
			if tc.expected == nil {
				assert.Nil(t, pct)
				return
			}
			require.NotNil(t, pct)
			assert.Equal(t, *tc.expected, *pct)
		})
	}
}

func TestMalformedScoreTextIsLoggedAndTreatedAsNull(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	course := build(t, singleCategory("", assignmentRow("a1", "cat1", "abc", "/ 10")), WithLogger(zap.New(core)))

	a := mustAssignment(t, course, "a1")
	assert.Nil(t, a.Points(false))
	require.NotNil(t, a.MaxPoints(false))
	assert.Equal(t, 10.0, *a.MaxPoints(false))
	assert.True(t, a.IsLoading())
	assert.Equal(t, 1, logs.FilterMessage("error parsing points for assignment").Len())
}

func TestMissingAssignmentScoresZeroAndLoadsMaxPoints(t *testing.T) {
	row := assignmentRow("a1", "cat1", "", "/ 10")
	row.Missing = true
	course := build(t, singleCategory("", row))

	a := mustAssignment(t, course, "a1")
	assert.True(t, a.IsMissing())
	require.NotNil(t, a.Points(false))
	assert.Equal(t, 0.0, *a.Points(false))
	assert.Nil(t, a.MaxPoints(false))
	assert.True(t, a.IsLoading())
	assert.Equal(t, []string{"a1"}, course.UnresolvedAssignments())
}

func TestAssignmentStrings(t *testing.T) {
	extra := assignmentRow("a2", "cat1", "5", "/ 0")
	extra.Comment = text("bonus")
	course := build(t, singleCategory("", assignmentRow("a1", "cat1", "8", "/ 10"), extra))

	a1 := mustAssignment(t, course, "a1")
	assert.Equal(t, "80%", a1.PercentString(false))
	assert.Equal(t, "Assignment a1 (a1) - 8/10 - 80% - — - —", a1.String(false))

	a2 := mustAssignment(t, course, "a2")
	assert.Equal(t, "EC", a2.PercentString(false))
	assert.Equal(t, "5 points of Extra Credit", a2.DetailString(false))
	assert.Equal(t, "Assignment a2 (a2) - 5/0 - EC - bonus - —", a2.String(false))
}

func TestCategoryInferencePrefersRawPointsWhenBothMatch(t *testing.T) {
	course := build(t, singleCategory("75%",
		assignmentRow("a1", "cat1", "10", "/ 10"),
		assignmentRow("a2", "cat1", "5", "/ 10"),
	))
	cat := mustCategory(t, course, "cat1")

	assert.Equal(t, models.GradingMethodPoints, cat.AssumedGradingMethod())
	require.NotNil(t, cat.GradePercent(false))
	assert.Equal(t, 75.0, *cat.GradePercent(false))
	assert.Equal(t, 15.0, cat.Points(false))
	assert.Equal(t, 20.0, cat.MaxPoints(false))
}

func TestEqualWeightTreatsZeroMaxAsFlatBonus(t *testing.T) {
	course := build(t, singleCategory("85%",
		assignmentRow("ec", "cat1", "5", "/ 0"),
		assignmentRow("a1", "cat1", "8", "/ 10"),
	))
	cat := mustCategory(t, course, "cat1")

	assert.Equal(t, models.GradingMethodPercent, cat.AssumedGradingMethod())
	assert.True(t, cat.AssignmentsWeightedEqually(false))
	assert.Equal(t, 85.0, cat.Points(false))
	assert.Equal(t, 100.0, cat.MaxPoints(false))
	require.NotNil(t, cat.GradePercent(false))
	assert.Equal(t, 85.0, *cat.GradePercent(false))
	assert.Equal(t, "85%", cat.PercentString(false))
}

func TestCategoryInferenceFallbacks(t *testing.T) {
	rows := []models.RawAssignment{
		assignmentRow("a1", "cat1", "1", "/ 2"),
		assignmentRow("a2", "cat1", "10", "/ 10"),
	}

	noMatch := build(t, singleCategory("42%", rows...))
	assert.Equal(t, models.GradingMethodNoMatch, mustCategory(t, noMatch, "cat1").AssumedGradingMethod())

	noData := build(t, singleCategory("", rows...))
	assert.Equal(t, models.GradingMethodNoData, mustCategory(t, noData, "cat1").AssumedGradingMethod())
	assert.False(t, mustCategory(t, noData, "cat1").AssignmentsWeightedEqually(false))
}

func TestCategoryInferenceIsCachedOnceLoaded(t *testing.T) {
	course := build(t, singleCategory("75%",
		assignmentRow("a1", "cat1", "10", "/ 10"),
		assignmentRow("a2", "cat1", "5", "/ 10"),
	))
	cat := mustCategory(t, course, "cat1")

	first := cat.AssumedGradingMethod()
	require.NotNil(t, cat.method)
	assert.Equal(t, first, cat.AssumedGradingMethod())
	assert.Equal(t, first, *cat.method)
}

func TestCategoryInferenceWaitsForLoading(t *testing.T) {
	course := build(t, singleCategory("80%",
		assignmentRow("a1", "cat1", "8", "/ 10"),
		assignmentRow("a2", "cat1", "8", ""),
	))
	cat := mustCategory(t, course, "cat1")

	require.True(t, cat.IsLoading())
	cat.AssumedGradingMethod()
	assert.Nil(t, cat.method)
	assert.Equal(t, "LOADING", cat.PercentString(false))
}

func TestMethodOverrideOnlyAffectsWhatIf(t *testing.T) {
	course := build(t, singleCategory("91.67%",
		assignmentRow("a1", "cat1", "1", "/ 2"),
		assignmentRow("a2", "cat1", "10", "/ 10"),
	))
	cat := mustCategory(t, course, "cat1")
	require.Equal(t, models.GradingMethodPoints, cat.AssumedGradingMethod())

	before := course.Render(false)
	_, err := course.SetMethodOverride("cat1", true, nil)
	require.NoError(t, err)

	assert.Equal(t, 11.0, cat.Points(false))
	assert.Equal(t, 150.0, cat.Points(true))
	assert.True(t, cat.AssignmentsWeightedEqually(true))
	assert.True(t, course.IsModified())

	after := course.Render(false)
	assert.Equal(t, before.Periods[0].Categories[0].Percent, after.Periods[0].Categories[0].Percent)
	assert.Equal(t, before.Percent, after.Percent)
	assert.Equal(t, "75%", course.Render(true).Periods[0].Categories[0].Percent)
}

func TestCoursePercentSkipsPeriodsWithoutGradableContent(t *testing.T) {
	snapshot := models.CourseSnapshot{
		Course: models.RawCourse{ID: "course1", Name: "Algebra"},
		Periods: []models.RawPeriod{
			{ID: "p1", Name: "S1", WeightText: "(60%)"},
			{ID: "p2", Name: "S2", WeightText: "(40%)"},
		},
		Categories: []models.RawCategory{
			{ID: "cat1", ParentID: "p1", Name: "Tests"},
			{ID: "cat2", ParentID: "p2", Name: "Tests"},
		},
		Assignments: []models.RawAssignment{
			assignmentRow("a1", "cat1", "9", "/ 10"),
		},
	}
	course := build(t, snapshot)

	assert.Nil(t, course.Periods()[1].GradePercent(false))
	pct := course.GradePercent(false)
	require.NotNil(t, pct)
	assert.InDelta(t, 54.0, *pct, 1e-9)
}

func TestCoursePercentCountsTrueZero(t *testing.T) {
	course := build(t, singleCategory("", assignmentRow("a1", "cat1", "0", "/ 10")))

	pct := course.GradePercent(false)
	require.NotNil(t, pct)
	assert.Equal(t, 0.0, *pct)
	assert.Equal(t, "0%", course.Render(false).Percent)
}

func TestCoursePercentUndefinedWithoutContent(t *testing.T) {
	course := build(t, singleCategory("", assignmentRow("a1", "cat1", "", "")))

	assert.Nil(t, course.GradePercent(false))
	assert.Equal(t, "—", course.Render(false).Percent)
}

func TestWeightedPeriod(t *testing.T) {
	snapshot := models.CourseSnapshot{
		Course:  models.RawCourse{ID: "course1", Name: "Algebra"},
		Periods: []models.RawPeriod{{ID: "p1", Name: "Q1", WeightText: "(100%)"}},
		Categories: []models.RawCategory{
			{ID: "quiz", ParentID: "p1", Name: "Quizzes", WeightText: text("(40%)")},
			{ID: "test", ParentID: "p1", Name: "Tests", WeightText: text("(60%)")},
			{ID: "misc", ParentID: "p1", Name: "Ungraded"},
		},
		Assignments: []models.RawAssignment{
			assignmentRow("q1", "quiz", "8", "/ 10"),
			assignmentRow("t1", "test", "9", "/ 10"),
			assignmentRow("m1", "misc", "1", "/ 10"),
		},
	}
	course := build(t, snapshot)
	period := course.Periods()[0]

	require.True(t, period.CategoriesAreWeighted())
	assert.InDelta(t, 86.0, period.Points(false), 1e-9)
	assert.Equal(t, 100.0, period.MaxPoints(false))
	require.NotNil(t, period.GradePercent(false))
	assert.InDelta(t, 86.0, *period.GradePercent(false), 1e-9)

	view := course.Render(false)
	assert.Empty(t, view.Periods[0].Points)
	assert.True(t, view.Periods[0].CategoriesWeighted)
	assert.False(t, view.Periods[0].Categories[0].Ignored)
	assert.True(t, view.Periods[0].Categories[2].Ignored)
}

func TestUnweightedPeriodSumsPoints(t *testing.T) {
	snapshot := models.CourseSnapshot{
		Course:  models.RawCourse{ID: "course1", Name: "Algebra"},
		Periods: []models.RawPeriod{{ID: "p1", Name: "Q1", WeightText: "(100%)"}},
		Categories: []models.RawCategory{
			{ID: "hw", ParentID: "p1", Name: "Homework"},
			{ID: "lab", ParentID: "p1", Name: "Labs"},
		},
		Assignments: []models.RawAssignment{
			assignmentRow("h1", "hw", "8", "/ 10"),
			assignmentRow("l1", "lab", "5", "/ 10"),
		},
	}
	course := build(t, snapshot)
	period := course.Periods()[0]

	assert.Equal(t, 13.0, period.Points(false))
	assert.Equal(t, 20.0, period.MaxPoints(false))
	assert.Equal(t, "65%", period.PercentString(false))
	assert.Equal(t, "Q1 (p1) - 13/20 - 65%", period.String(false))
}

func TestWhatIfPropagatesAndRoundTrips(t *testing.T) {
	course := build(t, singleCategory("75%",
		assignmentRow("a1", "cat1", "10", "/ 10"),
		assignmentRow("a2", "cat1", "5", "/ 10"),
	))
	a2 := mustAssignment(t, course, "a2")

	var levels []Level
	renderer := RendererFunc(func(level Level, view models.GradeView) {
		levels = append(levels, level)
	})

	result, err := course.SetWhatIf("a2", models.WhatIfRequest{Points: ptr(9.0)}, renderer)
	require.NoError(t, err)
	assert.Equal(t, []Level{LevelAssignment, LevelCategory, LevelPeriod, LevelCourse}, levels)
	require.Len(t, result.Changed, 4)
	assert.Equal(t, "a2", result.Changed[0].ID)
	assert.Equal(t, "95%", result.Changed[1].Percent)
	assert.True(t, result.Course.Modified)
	assert.True(t, result.Course.WhatIf)
	assert.Equal(t, 9.0, *a2.Points(true))
	assert.Equal(t, 5.0, *a2.Points(false))
	assert.Equal(t, "75%", course.Render(false).Percent)

	_, err = course.ClearWhatIf("a2", nil)
	require.NoError(t, err)
	assert.Equal(t, *a2.Points(false), *a2.Points(true))
	assert.False(t, course.IsModified())
	assert.Equal(t, course.Render(false).Percent, course.Render(true).Percent)
}

func TestWhatIfDroppedOverride(t *testing.T) {
	course := build(t, singleCategory("75%",
		assignmentRow("a1", "cat1", "10", "/ 10"),
		assignmentRow("a2", "cat1", "5", "/ 10"),
	))

	_, err := course.SetWhatIf("a2", models.WhatIfRequest{Dropped: ptr(true)}, nil)
	require.NoError(t, err)

	cat := mustCategory(t, course, "cat1")
	assert.Equal(t, 100.0, *cat.GradePercent(true))
	assert.Equal(t, 75.0, *cat.GradePercent(false))
	assert.True(t, course.Render(true).Periods[0].Categories[0].Assignments[1].Dropped)
}

func TestWhatIfOverridesException(t *testing.T) {
	excused := assignmentRow("a2", "cat1", "", "/ 10")
	excused.ExceptionText = text("Excused")
	course := build(t, singleCategory("", assignmentRow("a1", "cat1", "8", "/ 10"), excused))

	a2 := mustAssignment(t, course, "a2")
	require.True(t, a2.IgnoreInCalculations(true))

	_, err := course.SetWhatIf("a2", models.WhatIfRequest{Points: ptr(6.0)}, nil)
	require.NoError(t, err)
	assert.False(t, a2.IgnoreInCalculations(true))
	assert.True(t, a2.IgnoreInCalculations(false))
	assert.Equal(t, 70.0, *course.GradePercent(true))
	assert.Equal(t, 80.0, *course.GradePercent(false))
}

func TestWhatIfUnknownAssignment(t *testing.T) {
	course := build(t, singleCategory("", assignmentRow("a1", "cat1", "8", "/ 10")))

	_, err := course.SetWhatIf("nope", models.WhatIfRequest{}, nil)
	require.Error(t, err)
	_, err = course.SetMethodOverride("nope", true, nil)
	require.Error(t, err)
}

func TestRenderIsIdempotent(t *testing.T) {
	course := build(t, singleCategory("75%",
		assignmentRow("a1", "cat1", "10", "/ 10"),
		assignmentRow("a2", "cat1", "5", "/ 10"),
	))

	for _, whatIf := range []bool{false, true} {
		assert.Equal(t, course.Render(whatIf), course.Render(whatIf))
		assert.Equal(t, course.DetailedString(whatIf), course.DetailedString(whatIf))
	}
}

func TestDetailedString(t *testing.T) {
	course := build(t, singleCategory("", assignmentRow("a1", "cat1", "8", "/ 10")))

	expected := "Algebra (course1) - 80%\n" +
		"  Q1 (p1) - 8/10 - 80%\n" +
		"    Homework (cat1) - 8/10 - 80%\n" +
		"      Assignment a1 (a1) - 8/10 - 80% - — - —"
	assert.Equal(t, expected, course.DetailedString(false))
}

func TestLetterGrades(t *testing.T) {
	scale := &models.GradingScale{CourseID: "course1", Thresholds: []models.GradeThreshold{
		{Min: 80, Letter: "B"},
		{Min: 90, Letter: "A"},
	}}
	course := build(t, singleCategory("", assignmentRow("a1", "cat1", "8.5", "/ 10")), WithGradingScale(scale))

	letter, ok := course.LetterGrade(95)
	assert.True(t, ok)
	assert.Equal(t, "A", letter)
	letter, ok = course.LetterGrade(50)
	assert.True(t, ok)
	assert.Equal(t, "?", letter)
	assert.Equal(t, "B (85%)", course.LetterGradeString(false))
	assert.Equal(t, "A: 90%\nB: 80%", course.GradingScaleString())

	course.SetGradingScale(nil)
	_, ok = course.LetterGrade(95)
	assert.False(t, ok)
	assert.Equal(t, "85%", course.LetterGradeString(false))
}

func TestBuildRejectsDuplicateIDs(t *testing.T) {
	_, err := Build(NewSnapshotSource(singleCategory("",
		assignmentRow("a1", "cat1", "8", "/ 10"),
		assignmentRow("a1", "cat1", "9", "/ 10"),
	)))
	require.Error(t, err)

	_, err = Build(NewSnapshotSource(models.CourseSnapshot{}))
	require.Error(t, err)
}

func TestBuildParsesDisplayedPercents(t *testing.T) {
	snapshot := singleCategory("B+ (87.5%)", assignmentRow("a1", "cat1", "8", "/ 10"))
	snapshot.Course.DisplayedGradeText = text("A- 91.2%")
	course := build(t, snapshot)

	require.NotNil(t, mustCategory(t, course, "cat1").DisplayedPercent())
	assert.Equal(t, 87.5, *mustCategory(t, course, "cat1").DisplayedPercent())
	require.NotNil(t, course.DisplayedPercent())
	assert.Equal(t, 91.2, *course.DisplayedPercent())
	assert.Equal(t, 1.0, course.Periods()[0].Weight)
}

func TestBuildWarnsAboutOrphanRows(t *testing.T) {
	snapshot := singleCategory("", assignmentRow("a1", "cat1", "8", "/ 10"), assignmentRow("a2", "cat9", "5", "/ 10"))
	snapshot.Categories = append(snapshot.Categories, models.RawCategory{ID: "cat2", ParentID: "p9", Name: "Quizzes"})
	core, logs := observer.New(zapcore.WarnLevel)
	course := build(t, snapshot, WithLogger(zap.New(core)))

	_, ok := course.Assignment("a2")
	assert.False(t, ok)
	_, ok = course.Category("cat2")
	assert.False(t, ok)
	assert.Equal(t, "80%", course.Render(false).Percent)

	category := logs.FilterMessage("category references unknown period").All()
	require.Len(t, category, 1)
	assert.Equal(t, "cat2", category[0].ContextMap()["category_id"])
	assignment := logs.FilterMessage("assignment references unknown category").All()
	require.Len(t, assignment, 1)
	assert.Equal(t, "a2", assignment[0].ContextMap()["assignment_id"])
	assert.Equal(t, "cat9", assignment[0].ContextMap()["parent_id"])
}
