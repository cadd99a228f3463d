// Package internal provides application initialization and runtime logic
// for the pothos agents and the archive server.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/evmaki/pothos/internal/api"
	"github.com/evmaki/pothos/internal/archive"
	"github.com/evmaki/pothos/internal/models"
	"github.com/evmaki/pothos/internal/sse"
	"github.com/evmaki/pothos/internal/storage"
)

var errConfigRequired = errors.New("config is required")

// newLogger initializes the structured JSON logger and makes it the default.
func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// openArchive creates the archive root and its category directories.
func openArchive(root string) (*storage.FS, error) {
	for _, c := range models.Categories {
		if err := os.MkdirAll(filepath.Join(root, c.Dir()), 0o755); err != nil {
			return nil, fmt.Errorf("create archive dir: %w", err)
		}
	}
	store, err := storage.NewFS(root)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	return store, nil
}

// newServerRouter wraps the archive routes with request middleware and
// health endpoints.
func newServerRouter(store *storage.FS, apiRouter http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints.
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if ok, _ := storage.Exists(store.Root()); !ok {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"archive unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/", apiRouter)
	return r
}

// Serve runs the archive HTTP server until ctx is cancelled or a shutdown
// signal arrives.
func Serve(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(cfg, os.Stdout)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("archive_root", cfg.Archive.Root),
		slog.Int64("max_upload_bytes", cfg.Archive.MaxUploadBytes),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if cfg.Archive.PasswordHash == "" {
		return fmt.Errorf("archive.password_hash is required (generate one with `pothos hash-password`)")
	}

	store, err := openArchive(cfg.Archive.Root)
	if err != nil {
		return err
	}

	// SSE broker.
	broker := sse.NewBroker(cfg.Archive.EventThrottle)
	defer broker.Close()

	svc := archive.NewService(store, broker.PublishFileAdded)
	apiRouter := api.NewRouter(svc, archive.NewAuthenticator(cfg.Archive.PasswordHash), api.Options{
		MaxUploadBytes: cfg.Archive.MaxUploadBytes,
		Events:         broker,
	})

	r := newServerRouter(store, apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Ends open event streams so Shutdown does not wait on them.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
