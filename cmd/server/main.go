package main

import (
	"log"
	"log/slog"
	"net/http"

	"exoplanets-server/internal/middleware"
	"exoplanets-server/internal/planet"
	"exoplanets-server/internal/server"
	"exoplanets-server/internal/shared/config"
	"exoplanets-server/internal/shared/database"
	"exoplanets-server/internal/shared/logger"
)

func main() {
	if err := config.Init(); err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	logger.Init()

	db, err := database.Connect()
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		log.Fatal(err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("Failed to close database", "error", err)
		}
	}()

	if err := db.RunMigrations(); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		log.Fatal(err)
	}

	planetRepo := planet.NewRepository(db, slog.Default())
	planetService := planet.NewService(planetRepo, slog.Default())

	routes := server.NewRoutes(db, planetService, slog.Default())
	mux := routes.Setup()

	rateLimiter := middleware.NewRateLimiter(config.GlobalConfig.RateLimit)
	corsMiddleware := middleware.NewCORS()

	handler := corsMiddleware.Middleware(
		rateLimiter.Middleware(
			middleware.AccessLog(mux),
		),
	)

	cfg := config.GlobalConfig.Server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	slog.Info("Exoplanets server starting",
		"port", cfg.Port,
		"environment", cfg.Environment,
	)

	if err := srv.ListenAndServe(); err != nil {
		slog.Error("Server stopped", "error", err)
		log.Fatal(err)
	}
}
