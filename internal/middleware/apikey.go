package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"exoplanets-server/internal/shared/config"
	"exoplanets-server/internal/shared/errors"
	"exoplanets-server/internal/shared/response"
)

const apiKeyHeader = "X-API-Key"

// APIKeyMiddleware gates admin endpoints behind the static API key
// configured via ADMIN_API_KEY.
func APIKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := slog.With(
			"middleware", "api_key",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		key := r.Header.Get(apiKeyHeader)
		expected := config.GlobalConfig.Admin.APIKey

		if subtle.ConstantTimeCompare([]byte(key), []byte(expected)) != 1 {
			logger.Warn("Admin endpoint called with invalid API key")
			response.Error(w, r, logger, errors.Unauthorized("invalid API key"))
			return
		}

		logger.Debug("Admin authorization successful")
		next.ServeHTTP(w, r)
	})
}
