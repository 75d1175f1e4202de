package service

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/whatif-grades-api/internal/gradebook"
)

func TestMetricsServiceSnapshotAndExposition(t *testing.T) {
	metrics := NewMetricsService()

	metrics.RecordResolution(gradebook.OutcomeListing)
	metrics.RecordResolution(gradebook.OutcomeDetail)
	metrics.RecordResolution(gradebook.OutcomeFailed)
	metrics.RecordResolution(gradebook.OutcomeSkipped)
	metrics.ObserveUpstreamFetch("grade_listing", 10*time.Millisecond, nil)
	metrics.ObserveUpstreamFetch("assignment_detail", 10*time.Millisecond, errors.New("boom"))
	metrics.RecordCacheOperation(true, time.Millisecond)
	metrics.RecordCacheOperation(false, time.Millisecond)
	metrics.SetCoursesLoaded(3)

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(2), snapshot.ResolvedAssignments)
	assert.Equal(t, uint64(1), snapshot.FailedAssignments)
	assert.Equal(t, uint64(1), snapshot.UpstreamErrors)
	assert.Equal(t, 3, snapshot.CoursesLoaded)
	assert.InDelta(t, 0.5, snapshot.CacheHitRatio, 1e-9)

	w := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `assignment_resolutions_total{outcome="failed"} 1`)
	assert.Contains(t, w.Body.String(), "courses_loaded 3")
}

func TestNilMetricsServiceIsSafe(t *testing.T) {
	var metrics *MetricsService
	metrics.RecordResolution(gradebook.OutcomeFailed)
	metrics.ObserveUpstreamFetch("x", time.Second, nil)
	metrics.SetCoursesLoaded(1)
	assert.Equal(t, 0, metrics.Snapshot().CoursesLoaded)
}
