package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/artype/pkg/metrics"
)

// MetricsMiddleware records request count, latency and failures for one
// route. endpoint is the route label, shared by handlers of the same
// resource so guest ids never reach a label.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		ms := float64(time.Since(start).Microseconds()) / 1000
		code := strconv.Itoa(sw.status)
		metrics.RecordHTTPRequest(endpoint, r.Method, code)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, code, ms)

		if kind, failed := failureKind(sw.status); failed {
			metrics.RecordErrorByEndpoint(endpoint, r.Method, kind)
			metrics.RecordErrorByComponent("http", kind)
		}
	}
}

// failureKind buckets a response status. A quiz or guest request can fail
// because the caller sent bad input, named an unknown guest, or hit the
// engine before it started.
func failureKind(status int) (string, bool) {
	switch {
	case status < http.StatusBadRequest:
		return "", false
	case status == http.StatusNotFound:
		return "not_found", true
	case status == http.StatusServiceUnavailable:
		return "unavailable", true
	case status >= http.StatusInternalServerError:
		return "server_error", true
	default:
		return "client_error", true
	}
}

// statusWriter remembers the status code written by a handler.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}
