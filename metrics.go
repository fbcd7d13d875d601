package main

import (
	"fmt"
	"math"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"a11y-server/internal/audit"
)

var serverStartTime = time.Now()

// HTTP metrics
var (
	httpRequestsTotal   atomic.Int64
	httpErrorsTotal     atomic.Int64
	rateLimitedTotal    atomic.Int64
	liveConnectionsOpen atomic.Int64
)

// Audit metrics
var (
	auditsTotal        atomic.Int64
	auditFailuresTotal atomic.Int64
	fetchErrorsTotal   atomic.Int64
	criticalIssueTotal atomic.Int64
	warningIssueTotal  atomic.Int64
	lastScoreBits      atomic.Uint64
)

// Cache metrics
var (
	cacheHitsTotal   atomic.Int64
	cacheMissesTotal atomic.Int64
)

// recordAudit updates counters after a report is assembled
func recordAudit(r audit.Report) {
	auditsTotal.Add(1)
	criticalIssueTotal.Add(int64(r.Summary.Critical))
	warningIssueTotal.Add(int64(r.Summary.Warnings))
	lastScoreBits.Store(math.Float64bits(r.Score))
}

// metricsHandler serves Prometheus-compatible metrics
func metricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	// Build info metric
	fmt.Fprintf(w, "# HELP a11y_build_info Build and configuration information\n")
	fmt.Fprintf(w, "# TYPE a11y_build_info gauge\n")
	fmt.Fprintf(w, "a11y_build_info{cache_backend=%q,go_version=%q} 1\n\n", cacheBackendType, runtime.Version())

	// Process metrics
	fmt.Fprintf(w, "# HELP process_start_time_seconds Unix timestamp of process start\n")
	fmt.Fprintf(w, "# TYPE process_start_time_seconds gauge\n")
	fmt.Fprintf(w, "process_start_time_seconds %d\n\n", serverStartTime.Unix())

	fmt.Fprintf(w, "# HELP process_uptime_seconds Time since process started\n")
	fmt.Fprintf(w, "# TYPE process_uptime_seconds gauge\n")
	fmt.Fprintf(w, "process_uptime_seconds %.0f\n\n", time.Since(serverStartTime).Seconds())

	// Go runtime metrics
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	fmt.Fprintf(w, "# HELP go_goroutines Number of active goroutines\n")
	fmt.Fprintf(w, "# TYPE go_goroutines gauge\n")
	fmt.Fprintf(w, "go_goroutines %d\n\n", runtime.NumGoroutine())

	fmt.Fprintf(w, "# HELP go_memstats_alloc_bytes Currently allocated memory in bytes\n")
	fmt.Fprintf(w, "# TYPE go_memstats_alloc_bytes gauge\n")
	fmt.Fprintf(w, "go_memstats_alloc_bytes %d\n\n", memStats.Alloc)

	// HTTP metrics
	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", httpRequestsTotal.Load())

	fmt.Fprintf(w, "# HELP http_errors_total Total number of HTTP 5xx errors\n")
	fmt.Fprintf(w, "# TYPE http_errors_total counter\n")
	fmt.Fprintf(w, "http_errors_total %d\n\n", httpErrorsTotal.Load())

	fmt.Fprintf(w, "# HELP http_rate_limited_total Requests rejected by the rate limiter\n")
	fmt.Fprintf(w, "# TYPE http_rate_limited_total counter\n")
	fmt.Fprintf(w, "http_rate_limited_total %d\n\n", rateLimitedTotal.Load())

	fmt.Fprintf(w, "# HELP a11y_live_connections_active Open live-audit websocket connections\n")
	fmt.Fprintf(w, "# TYPE a11y_live_connections_active gauge\n")
	fmt.Fprintf(w, "a11y_live_connections_active %d\n\n", liveConnectionsOpen.Load())

	// Audit metrics
	fmt.Fprintf(w, "# HELP a11y_audits_total Completed audits\n")
	fmt.Fprintf(w, "# TYPE a11y_audits_total counter\n")
	fmt.Fprintf(w, "a11y_audits_total %d\n\n", auditsTotal.Load())

	fmt.Fprintf(w, "# HELP a11y_audit_failures_total Audits that ended without a report\n")
	fmt.Fprintf(w, "# TYPE a11y_audit_failures_total counter\n")
	fmt.Fprintf(w, "a11y_audit_failures_total %d\n\n", auditFailuresTotal.Load())

	fmt.Fprintf(w, "# HELP a11y_fetch_errors_total Page fetches that failed\n")
	fmt.Fprintf(w, "# TYPE a11y_fetch_errors_total counter\n")
	fmt.Fprintf(w, "a11y_fetch_errors_total %d\n\n", fetchErrorsTotal.Load())

	fmt.Fprintf(w, "# HELP a11y_issues_total Issues found across all audits\n")
	fmt.Fprintf(w, "# TYPE a11y_issues_total counter\n")
	fmt.Fprintf(w, "a11y_issues_total{severity=\"critical\"} %d\n", criticalIssueTotal.Load())
	fmt.Fprintf(w, "a11y_issues_total{severity=\"warning\"} %d\n\n", warningIssueTotal.Load())

	fmt.Fprintf(w, "# HELP a11y_last_score Score of the most recent audit\n")
	fmt.Fprintf(w, "# TYPE a11y_last_score gauge\n")
	fmt.Fprintf(w, "a11y_last_score %.1f\n\n", math.Float64frombits(lastScoreBits.Load()))

	// Cache metrics
	cacheHits := cacheHitsTotal.Load()
	cacheMisses := cacheMissesTotal.Load()

	fmt.Fprintf(w, "# HELP cache_hits_total Total cache hits\n")
	fmt.Fprintf(w, "# TYPE cache_hits_total counter\n")
	fmt.Fprintf(w, "cache_hits_total %d\n\n", cacheHits)

	fmt.Fprintf(w, "# HELP cache_misses_total Total cache misses\n")
	fmt.Fprintf(w, "# TYPE cache_misses_total counter\n")
	fmt.Fprintf(w, "cache_misses_total %d\n\n", cacheMisses)

	// Cache hit ratio (useful for alerting)
	var hitRatio float64
	if total := cacheHits + cacheMisses; total > 0 {
		hitRatio = float64(cacheHits) / float64(total)
	}
	fmt.Fprintf(w, "# HELP cache_hit_ratio Cache hit ratio (0-1)\n")
	fmt.Fprintf(w, "# TYPE cache_hit_ratio gauge\n")
	fmt.Fprintf(w, "cache_hit_ratio %.4f\n", hitRatio)
}
