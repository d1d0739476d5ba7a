// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Shivanand-hulikatti/campus-registrations/internal/config"
	"github.com/Shivanand-hulikatti/campus-registrations/internal/database"
	"github.com/Shivanand-hulikatti/campus-registrations/internal/handler"
	"github.com/Shivanand-hulikatti/campus-registrations/internal/memstore"
	"github.com/Shivanand-hulikatti/campus-registrations/internal/notify"
	"github.com/Shivanand-hulikatti/campus-registrations/internal/repository"
	"github.com/Shivanand-hulikatti/campus-registrations/internal/service"
	"github.com/Shivanand-hulikatti/campus-registrations/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// ── 1. Pick the store backend ─────────────────────────────────────────
	var (
		st      store.Store
		catalog service.EventCatalog
	)
	switch cfg.Backend {
	case "memory":
		mem := memstore.New()
		st, catalog = mem, mem
		logger.Info("using in-memory store")
	default:
		pool, err := database.NewPool(ctx, cfg.DSN())
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer pool.Close()
		st = repository.New(pool)
		catalog = repository.NewEventRepository(pool)
		logger.Info("connected to postgres", "host", cfg.DB.Host, "db", cfg.DB.Name)
	}

	// ── 2. Notification emitter ───────────────────────────────────────────
	var emitter notify.Emitter
	if cfg.RedisAddr != "" {
		asynqEmitter := notify.NewAsynqEmitter(cfg.RedisAddr, logger)
		defer asynqEmitter.Close()
		emitter = asynqEmitter
		logger.Info("notifications via asynq", "redis", cfg.RedisAddr)
	} else {
		emitter = notify.NewLogEmitter(logger)
	}

	// ── 3. Wire up layers ────────────────────────────────────────────────
	svc := service.NewRegistrationService(st, catalog, emitter, logger, cfg.MaxTxRetries)
	regHandler := handler.NewRegistrationHandler(svc)

	// ── 4. Build the router ───────────────────────────────────────────────
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(handler.Logger(logger))  // structured access log
	r.Use(handler.CORS)            // permissive CORS for browser clients

	r.Get("/health", handler.HealthCheck)

	r.Route("/events", func(r chi.Router) {
		r.Post("/", regHandler.CreateEvent)
		r.Get("/", regHandler.ListEvents)
		r.Get("/{id}", regHandler.GetEvent)
		r.Post("/{id}/register", regHandler.Register)
		r.Get("/{id}/eligibility", regHandler.CheckEligibility)
		r.Get("/{id}/registrations", regHandler.ListRegistrations)
		r.Get("/{id}/stats", regHandler.Stats)
	})
	r.Route("/registrations", func(r chi.Router) {
		r.Post("/{id}/cancel", regHandler.Cancel)
		r.Post("/{id}/attendance", regHandler.MarkAttendance)
	})
	r.Get("/participants/{id}/registrations", regHandler.ListByParticipant)

	// ── 5. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
