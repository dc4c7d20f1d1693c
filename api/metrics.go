package api

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"sync"
	"time"

	"go.uber.org/zap"
)

var objectIDSegment = regexp.MustCompile(`/[0-9a-fA-F]{24}(/|$)`)

// RouteMetrics aggregates request counts and timings for one route
type RouteMetrics struct {
	Method      string        `json:"method"`
	Path        string        `json:"path"`
	Count       int64         `json:"count"`
	ErrorCount  int64         `json:"errorCount"`
	TotalTime   time.Duration `json:"totalTime"`
	AvgTime     time.Duration `json:"avgTime"`
	MaxTime     time.Duration `json:"maxTime"`
	LastRequest time.Time     `json:"lastRequest"`
}

// MetricsCollector keeps best-effort in-memory request metrics. Recording
// never blocks a request: observations go through a buffered channel and
// are dropped when it is full.
type MetricsCollector struct {
	mu            sync.RWMutex
	routeMetrics  map[string]*RouteMetrics
	startedAt     time.Time
	totalRequests int64
	totalErrors   int64
	obsChan       chan observation
}

type observation struct {
	method   string
	path     string
	status   int
	duration time.Duration
	at       time.Time
}

var globalMetrics *MetricsCollector
var metricsOnce sync.Once

// GetMetrics returns the global metrics collector, creating it on first use
func GetMetrics() *MetricsCollector {
	metricsOnce.Do(func() {
		globalMetrics = &MetricsCollector{
			routeMetrics: make(map[string]*RouteMetrics),
			startedAt:    time.Now(),
			obsChan:      make(chan observation, 1000),
		}
		go globalMetrics.process()
	})
	return globalMetrics
}

func (mc *MetricsCollector) record(obs observation) {
	select {
	case mc.obsChan <- obs:
	default:
		// full buffer: drop the observation, metrics are best-effort
	}
}

func (mc *MetricsCollector) process() {
	for obs := range mc.obsChan {
		mc.mu.Lock()
		key := obs.method + " " + obs.path
		m, ok := mc.routeMetrics[key]
		if !ok {
			m = &RouteMetrics{Method: obs.method, Path: obs.path}
			mc.routeMetrics[key] = m
		}
		m.Count++
		m.TotalTime += obs.duration
		m.AvgTime = m.TotalTime / time.Duration(m.Count)
		m.LastRequest = obs.at
		if obs.duration > m.MaxTime {
			m.MaxTime = obs.duration
		}
		if obs.status >= 400 {
			m.ErrorCount++
			mc.totalErrors++
		}
		mc.totalRequests++
		mc.mu.Unlock()
	}
}

// GetRouteMetrics returns a copy of the per-route aggregates
func (mc *MetricsCollector) GetRouteMetrics() map[string]*RouteMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	result := make(map[string]*RouteMetrics, len(mc.routeMetrics))
	for k, v := range mc.routeMetrics {
		m := *v
		result[k] = &m
	}
	return result
}

// GetSummary returns overall request totals since startup
func (mc *MetricsCollector) GetSummary() map[string]interface{} {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	var errorRate float64
	if mc.totalRequests > 0 {
		errorRate = float64(mc.totalErrors) / float64(mc.totalRequests)
	}
	return map[string]interface{}{
		"totalRequests": mc.totalRequests,
		"totalErrors":   mc.totalErrors,
		"errorRate":     errorRate,
		"startedAt":     mc.startedAt,
		"routeCount":    len(mc.routeMetrics),
	}
}

// MetricsMiddleware tracks request timing per route
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "/health" || path == "/api/v1/metrics/summary" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		GetMetrics().record(observation{
			method:   r.Method,
			path:     normalizeRoutePath(path),
			status:   wrapped.statusCode,
			duration: duration,
			at:       start,
		})

		if duration > 1*time.Second {
			zap.S().Warnw("Slow request detected",
				"method", r.Method,
				"path", path,
				"duration", duration,
				"status", wrapped.statusCode,
			)
		}
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
// It implements http.Hijacker to support WebSocket upgrades.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack implements http.Hijacker to support WebSocket upgrades
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, fmt.Errorf("underlying ResponseWriter does not implement http.Hijacker")
}

// normalizeRoutePath collapses ObjectID path segments so metrics group by
// route, e.g. /api/v1/session/507f1f77bcf86cd799439011 -> /api/v1/session/{id}
func normalizeRoutePath(path string) string {
	return objectIDSegment.ReplaceAllString(path, "/{id}$1")
}
