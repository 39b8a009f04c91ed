package web

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jbctechsolutions/tokencalc/internal/infrastructure/logging"
)

// RequestIDHeader carries the correlation id in and out of a request.
const RequestIDHeader = "X-Request-ID"

// requestLogger logs one line per request and tags the request context with
// a correlation id so that every log line of a request can be joined.
type requestLogger struct {
	logger    *logging.Logger
	skipPaths map[string]bool
}

func newRequestLogger(logger *logging.Logger, skipPaths ...string) *requestLogger {
	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = true
	}
	return &requestLogger{logger: logger, skipPaths: skip}
}

// Handler wraps next with request logging.
func (m *requestLogger) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		ctx := logging.WithCorrelationID(r.Context(), id)
		ctx = logging.WithHost(ctx, "serve")
		r = r.WithContext(ctx)

		if m.skipPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		args := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"bytes", wrapped.written,
			"remote", clientIP(r),
		}
		switch {
		case wrapped.status >= 500:
			m.logger.ErrorContext(ctx, "request", args...)
		case wrapped.status >= 400:
			m.logger.WarnContext(ctx, "request", args...)
		default:
			m.logger.InfoContext(ctx, "request", args...)
		}
	})
}

// statusRecorder captures the status code and body size of a response.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	written     int64
	wroteHeader bool
}

func (w *statusRecorder) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.written += int64(n)
	return n, err
}

func (w *statusRecorder) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
