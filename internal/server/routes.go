package server

import (
	"log/slog"
	"net/http"

	"exoplanets-server/internal/middleware"
	"exoplanets-server/internal/planet"
	planetHandlers "exoplanets-server/internal/planet/handlers"
	serverHandlers "exoplanets-server/internal/server/handlers"
	"exoplanets-server/internal/shared/database"
	visHandlers "exoplanets-server/internal/vis/handlers"
)

type Routes struct {
	db            *database.DB
	planetService *planet.Service
	logger        *slog.Logger
}

func NewRoutes(db *database.DB, planetService *planet.Service, logger *slog.Logger) *Routes {
	return &Routes{
		db:            db,
		planetService: planetService,
		logger:        logger,
	}
}

func (r *Routes) Setup() *http.ServeMux {
	logger := slog.With("component", "routes", "operation", "setup")
	logger.Debug("Setting up application routes")

	mux := http.NewServeMux()

	systemHandler := serverHandlers.NewSystemHandler(r.db)
	planetHandler := planetHandlers.NewPlanetHandler(r.planetService)
	visHandler := visHandlers.NewVisHandler(r.planetService)

	// System endpoints
	mux.HandleFunc("GET /system/root", systemHandler.Root)
	mux.HandleFunc("GET /system/health", systemHandler.Health)
	mux.HandleFunc("GET /system/readiness", systemHandler.Readiness)

	// Public planet endpoints
	mux.HandleFunc("POST /planets/{$}", planetHandler.Create)
	mux.HandleFunc("GET /planets/{$}", planetHandler.List)
	mux.HandleFunc("GET /planets/count", planetHandler.Count)
	mux.HandleFunc("GET /planets/method-counts", planetHandler.MethodCounts)
	mux.HandleFunc("GET /planets/methods", planetHandler.Methods)
	mux.HandleFunc("GET /planets/stats", planetHandler.Stats)
	mux.HandleFunc("GET /planets/timeline", planetHandler.Timeline)
	mux.HandleFunc("GET /planets/method/{method}/stats", planetHandler.MethodStats)
	mux.HandleFunc("GET /planets/by-name/{name}", planetHandler.GetByName)
	mux.HandleFunc("GET /planets/{id}", planetHandler.GetByID)
	mux.HandleFunc("PATCH /planets/{id}", planetHandler.Update)

	// Admin endpoints (static API key)
	mux.Handle("DELETE /planets/{id}", middleware.APIKeyMiddleware(http.HandlerFunc(planetHandler.Delete)))
	mux.Handle("POST /planets/{id}/restore", middleware.APIKeyMiddleware(http.HandlerFunc(planetHandler.Restore)))
	mux.Handle("GET /planets/admin/deleted", middleware.APIKeyMiddleware(http.HandlerFunc(planetHandler.ListDeleted)))
	mux.Handle("GET /planets/admin/{id}/changes", middleware.APIKeyMiddleware(http.HandlerFunc(planetHandler.Changes)))
	mux.Handle("DELETE /planets/admin/hard-delete/{id}", middleware.APIKeyMiddleware(http.HandlerFunc(planetHandler.HardDelete)))
	mux.Handle("DELETE /planets/admin/delete-all", middleware.APIKeyMiddleware(http.HandlerFunc(planetHandler.DeleteAll)))

	// Visualization
	mux.HandleFunc("GET /vis/discovery.png", visHandler.Discovery)

	logger.Info("Routes configured successfully",
		"public_endpoints", []string{
			"/planets/", "/planets/count", "/planets/method-counts", "/planets/methods",
			"/planets/stats", "/planets/timeline", "/planets/method/{method}/stats",
			"/planets/{id}", "/planets/by-name/{name}", "/vis/discovery.png",
		},
		"admin_endpoints", []string{
			"/planets/{id} (DELETE)", "/planets/{id}/restore", "/planets/admin/deleted",
			"/planets/admin/{id}/changes", "/planets/admin/hard-delete/{id}", "/planets/admin/delete-all",
		},
		"system_endpoints", []string{"/system/root", "/system/health", "/system/readiness"},
	)

	return mux
}
