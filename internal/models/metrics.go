package models

import "time"

// MetricsSnapshot summarises service counters for readiness checks.
type MetricsSnapshot struct {
	CoursesLoaded       int       `json:"courses_loaded"`
	ResolvedAssignments uint64    `json:"resolved_assignments"`
	FailedAssignments   uint64    `json:"failed_assignments"`
	UpstreamErrors      uint64    `json:"upstream_errors"`
	RequestsTotal       uint64    `json:"requests_total"`
	CacheHitRatio       float64   `json:"cache_hit_ratio"`
	Goroutines          int       `json:"goroutines"`
	GeneratedAt         time.Time `json:"generated_at"`
}
