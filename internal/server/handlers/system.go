package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"exoplanets-server/internal/shared/database"
	"exoplanets-server/internal/shared/response"
)

type RootResponse struct {
	OK        bool   `json:"ok"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

type ReadinessResponse struct {
	Status    string `json:"status"`
	Database  string `json:"db"`
	Timestamp string `json:"timestamp"`
	Detail    string `json:"detail,omitempty"`
}

type SystemHandler struct {
	db *database.DB
}

func NewSystemHandler(db *database.DB) *SystemHandler {
	return &SystemHandler{db: db}
}

// Root confirms the API is up.
func (h *SystemHandler) Root(w http.ResponseWriter, r *http.Request) {
	response.Success(w, http.StatusOK, RootResponse{
		OK:        true,
		Message:   "Exoplanets API is running.",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Health is a cheap liveness probe; it never touches dependencies.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.Success(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Readiness verifies the database is reachable.
func (h *SystemHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "readiness")

	resp := ReadinessResponse{
		Status:    "ready",
		Database:  "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if err := h.db.PingContext(r.Context()); err != nil {
		logger.Warn("Database ping failed", "error", err)
		resp.Status = "not_ready"
		resp.Database = "fail"
		resp.Detail = err.Error()
	}

	response.Success(w, http.StatusOK, resp)
}
