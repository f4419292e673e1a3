package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"exoplanets-server/internal/shared/logger"
)

// statusRecorder captures the status code written by downstream handlers.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

// AccessLog assigns each request a correlation id, carries it through the
// request context, and logs method, path, status, duration, client IP and
// user agent once the response is written. Error logs emitted downstream
// carry the same id via logger.RequestIDFromContext.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := uuid.NewString()[:8]
		ctx := logger.ContextWithRequestID(r.Context(), rid)

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r.WithContext(ctx))

		slog.Info("Request completed",
			"component", "http",
			"request_id", rid,
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", getClientIP(r, false),
			"user_agent", r.UserAgent(),
		)
	})
}
