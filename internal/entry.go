// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
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

	"github.com/starford/notedrop/internal/access"
	"github.com/starford/notedrop/internal/api"
	"github.com/starford/notedrop/internal/auth"
	"github.com/starford/notedrop/internal/mcpserver"
	"github.com/starford/notedrop/internal/metrics"
	"github.com/starford/notedrop/internal/service"
	"github.com/starford/notedrop/internal/storage"
	"github.com/starford/notedrop/internal/store"
)

// deps holds the wired dependencies shared by all entry points.
type deps struct {
	config  *Config
	logger  *slog.Logger
	db      *store.DB
	files   storage.Provider
	metrics *metrics.Metrics
	svc     *service.Service
}

// setup installs the logger, opens and migrates the database and builds the
// service. The caller closes the returned database.
func setup(ctx context.Context, opts []Option) (*deps, error) {
	app := newApplication(opts)
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	driver, dsn, err := cfg.Database.Resolve()
	if err != nil {
		return nil, fmt.Errorf("resolve database: %w", err)
	}

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("database_driver", driver),
		slog.String("storage_backend", cfg.Storage.Backend),
		slog.Int64("max_upload_bytes", cfg.App.MaxUploadBytes),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if driver == string(store.DialectSQLite) {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	db, err := store.Open(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	files, err := newStorage(ctx, cfg.Storage)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}

	m := metrics.New()
	svc := service.New(db, files, service.WithMetrics(m), service.WithLogger(logger))
	return &deps{config: cfg, logger: logger, db: db, files: files, metrics: m, svc: svc}, nil
}

func newStorage(ctx context.Context, cfg StorageConfig) (storage.Provider, error) {
	switch cfg.Backend {
	case StorageBackendS3:
		client, err := storage.NewS3Client(ctx, storage.S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			KeyPrefix:       cfg.S3.KeyPrefix,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		return storage.NewS3(client, cfg.S3.Bucket, cfg.S3.KeyPrefix), nil
	default:
		if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
			return nil, fmt.Errorf("create upload dir: %w", err)
		}
		return storage.NewFS(cfg.UploadDir)
	}
}

// Migrate applies pending database migrations and exits.
func Migrate(ctx context.Context, opts ...Option) error {
	rt, err := setup(ctx, opts)
	if err != nil {
		return err
	}
	defer rt.db.Close()
	rt.logger.Info("Migrations applied")
	return nil
}

// ServeMCP serves the MCP tools on stdin/stdout acting as username, or as the
// anonymous actor when username is empty. Logs go to stderr.
func ServeMCP(ctx context.Context, username string, opts ...Option) error {
	opts = append(opts, WithLogOutput(os.Stderr))
	rt, err := setup(ctx, opts)
	if err != nil {
		return err
	}
	defer rt.db.Close()

	actor := access.Anonymous()
	if username != "" {
		u, err := rt.db.UserByUsername(ctx, username)
		if err != nil {
			return fmt.Errorf("mcp user %q: %w", username, err)
		}
		actor = access.Actor{UserID: u.ID, Username: u.Username}
	}
	rt.logger.Info("MCP server starting", slog.String("actor", actor.Username))
	return mcpserver.New(rt.svc, actor).ServeStdio()
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	rt, err := setup(ctx, opts)
	if err != nil {
		return err
	}
	defer rt.db.Close()

	cfg, logger := rt.config, rt.logger

	sessions := auth.NewSessions(cfg.Auth.SecretKey, cfg.Auth.SessionTTL).
		WithSecureCookies(cfg.Auth.SecureCookies)
	appRouter := api.NewRouter(rt.svc, sessions, rt.db, cfg.App.MaxUploadBytes)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(rt.metrics.Middleware)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := rt.db.Ping(r.Context()); err != nil {
			logger.Warn("readiness check failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", rt.metrics.Handler())

	r.Mount("/", appRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

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
