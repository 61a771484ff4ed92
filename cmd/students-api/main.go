// main is the entry point of the Students API application.
//
// STARTUP SEQUENCE:
//  1. Load configuration from a YAML file
//  2. Initialise the logger
//  3. Open the database pool (SQLite or PostgreSQL) and create tables
//  4. Open the session store (memory or Redis)
//  5. Register all HTTP routes
//  6. Serve until SIGINT / SIGTERM, then shut down gracefully
//
// RUNNING THE SERVER:
//
//	go run ./cmd/students-api --config=config/local.yaml
//
// or (with the environment variable):
//
//	CONFIG_PATH=config/local.yaml go run ./cmd/students-api
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aanand-mishra/students-api/internal/config"
	"github.com/aanand-mishra/students-api/internal/http/server"
	"github.com/aanand-mishra/students-api/internal/session"
	"github.com/aanand-mishra/students-api/internal/storage"
	"github.com/aanand-mishra/students-api/internal/storage/postgres"
	"github.com/aanand-mishra/students-api/internal/storage/sqlite"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)

	log.Info("starting students-api",
		slog.String("env", cfg.Env),
		slog.String("version", "1.1.0"),
	)

	// os.Exit skips deferred calls, so everything that owns a resource
	// lives in run.
	if err := run(cfg, log); err != nil {
		log.Error("students-api stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, dialect, err := openDatabase(ctx, cfg.Database)
	cancel()
	if err != nil {
		return fmt.Errorf("initialise storage: %w", err)
	}
	defer db.Close()

	log.Info("storage initialised", slog.String("driver", dialect.Name()))

	store, closeStore, err := openSessionStore(cfg.Session)
	if err != nil {
		return fmt.Errorf("initialise session store: %w", err)
	}
	defer closeStore()

	log.Info("session store initialised", slog.String("backend", cfg.Session.Backend))

	router := server.NewRouter(server.Deps{
		Pool:     storage.NewProvider(db, dialect),
		Sessions: session.NewManager(store, cfg.Session.CookieName, cfg.Session.TTL, cfg.Session.SecureCookie),
	})

	srv := &http.Server{
		Addr:    cfg.HTTPServer.Addr,
		Handler: router,

		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server started", slog.String("address", cfg.HTTPServer.Addr))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		return fmt.Errorf("serve: %w", err)
	case <-done:
	}

	log.Info("shutdown signal received, stopping server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}

func openDatabase(ctx context.Context, cfg config.Database) (*sql.DB, storage.Dialect, error) {
	switch cfg.Driver {
	case "pgx":
		db, err := postgres.Open(ctx, cfg.DSN)
		return db, postgres.Dialect{}, err
	case "sqlite3":
		db, err := sqlite.Open(ctx, cfg.DSN)
		return db, sqlite.Dialect{}, err
	default:
		return nil, nil, fmt.Errorf("unsupported database driver: %q", cfg.Driver)
	}
}

func openSessionStore(cfg config.Session) (session.Store, func(), error) {
	switch cfg.Backend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return session.NewRedisStore(rdb, "students:session"), func() { _ = rdb.Close() }, nil
	case "memory":
		return session.NewMemoryStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported session backend: %q", cfg.Backend)
	}
}

// setupLogger returns a *slog.Logger configured for the given environment.
//
// Development (dev): human-readable text output at DEBUG level.
// Production (prod): machine-readable JSON output at INFO level.
func setupLogger(env string) *slog.Logger {
	switch env {
	case "prod":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	case "staging":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	default:
		return slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}
}
