package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/rpattn/splitlab/internal/api"
	"github.com/rpattn/splitlab/internal/assignment"
	"github.com/rpattn/splitlab/internal/config"
	"github.com/rpattn/splitlab/internal/db"
	"github.com/rpattn/splitlab/internal/experiments"
	"github.com/rpattn/splitlab/internal/metrics"
	"github.com/rpattn/splitlab/internal/middleware"
	"github.com/rpattn/splitlab/internal/repository"
	"github.com/rpattn/splitlab/internal/toggles"
)

func main() {
	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Resolve configuration once; everything downstream takes it as a
	// constructor parameter.
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Run migrations
	if err := db.RunMigrations(cfg.Database); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Setup database connection
	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()

	// Create repositories
	experimentRepo := repository.NewExperimentRepository(conn.Pool)
	assignmentRepo := repository.NewAssignmentRepository(conn.Pool)
	eventRepo := repository.NewEventRepository(conn)
	toggleRepo := repository.NewFeatureToggleRepository(conn.Pool)

	// Create services and the API server over them
	apiServer := api.NewServer(
		experiments.NewService(experimentRepo),
		assignment.NewService(experimentRepo, assignmentRepo),
		toggles.NewService(toggleRepo),
		metrics.NewService(eventRepo),
	)

	mux := http.NewServeMux()
	apiServer.Register(mux)
	mux.Handle("/metrics", promhttp.Handler())

	// Setup CORS
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	handler := middleware.LoggingMiddleware(
		middleware.MetricsMiddleware(corsHandler.Handler(mux)),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting splitlab server on %s", cfg.Server.Addr)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
