package engine

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/todomock/todomock/internal/routing"
	"github.com/todomock/todomock/pkg/requestlog"
)

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
}

func (w *statusRecorder) WriteHeader(code int) {
	if !w.written {
		w.statusCode = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if !w.written {
		w.written = true
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusRecorder) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

type requestIDKey struct{}

// RequestIDFromContext returns the request ID assigned by LoggingMiddleware,
// or "" when none was assigned.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// LoggingMiddleware assigns each request a UUID, logs it through slog, and
// records it in the request log when one is configured. Control-surface
// requests are logged but not captured.
func LoggingMiddleware(next http.Handler, log *slog.Logger, logs *requestlog.Store) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := uuid.NewString()
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, reqID))

		rec := newStatusRecorder(w)
		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		log.Info("request",
			"request_id", reqID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.statusCode,
			"duration", duration,
		)

		if logs == nil || isControlPath(r.URL.Path) {
			return
		}
		var op string
		if m, ok := routing.Resolve(r.Method, r.URL.Path); ok {
			op = m.Op.String()
		}
		logs.Log(&requestlog.Entry{
			Timestamp: start,
			Method:    r.Method,
			Path:      routing.NormalizePath(r.URL.Path),
			Operation: op,
			Outcome:   requestlog.OutcomeMocked,
			Status:    rec.statusCode,
			Duration:  duration,
		})
	})
}

func isControlPath(path string) bool {
	return len(path) >= len(ControlPrefix) && path[:len(ControlPrefix)] == ControlPrefix
}
