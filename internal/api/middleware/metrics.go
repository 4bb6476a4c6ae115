package middleware

import (
	"net/http"
	"sync/atomic"
)

// MetricsCollector tracks request volume for the /metrics endpoint.
// Counters are process-local and reset on restart.
type MetricsCollector struct {
	requests atomic.Int64
	errors   atomic.Int64
	inflight atomic.Int64
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{}
}

// MetricsSnapshot is a point-in-time read of the counters.
type MetricsSnapshot struct {
	Requests int64 `json:"request_count"`
	Errors   int64 `json:"error_count"`
	Inflight int64 `json:"inflight"`
}

func (mc *MetricsCollector) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Requests: mc.requests.Load(),
		Errors:   mc.errors.Load(),
		Inflight: mc.inflight.Load(),
	}
}

// Middleware counts every request, and every response at or above 400
// counts as an error.
func (mc *MetricsCollector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mc.requests.Add(1)
		mc.inflight.Add(1)
		defer mc.inflight.Add(-1)

		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)

		if rw.statusCode >= 400 {
			mc.errors.Add(1)
		}
	})
}
