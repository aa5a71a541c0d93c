package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"boxstore/internal/config"
	"boxstore/internal/database"
	"boxstore/internal/database/migration"
	"boxstore/internal/filestore"
	handlers "boxstore/internal/http/handler"
	"boxstore/internal/http/middleware"
	"boxstore/internal/otel"
	"boxstore/internal/store"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	shutdownTracing, err := otel.Init(context.Background(), time.UTC)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(ctx)
	}()

	db, backend, err := newBackend(cfg)
	if err != nil {
		log.Fatalf("failed to initialize document backend: %v", err)
	}
	if db != nil {
		defer db.Close()
	}
	if closer, ok := backend.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	driver, err := newFileDriver(cfg)
	if err != nil {
		log.Fatalf("failed to initialize file driver: %v", err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    50 * 1024 * 1024,
	})

	// Register global middleware
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger())
	app.Use(otelfiber.Middleware())

	reg := prometheus.NewRegistry()
	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Fatalf("failed to register metrics: %v", err)
	}
	app.Use(promMiddleware.Handler())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// Register HTTP routes with the injected backend and driver
	handlers.RegisterRoutes(app, db, backend, driver, cfg.Store.Prefix, cfg.FileStore.Prefix)

	addr := ":" + cfg.Port

	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}

// newBackend builds the document backend named by STORE_BACKEND. The
// returned *sql.DB is non-nil only for the postgres backend so the
// health check can ping it.
func newBackend(cfg *config.AppConfig) (*sql.DB, store.Backend, error) {
	switch cfg.Store.Backend {
	case "memory":
		return nil, store.NewMemory(nil), nil
	case "badger":
		b, err := store.NewBadger(cfg.Store.BadgerDir, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("open badger at %s: %w", cfg.Store.BadgerDir, err)
		}
		return nil, b, nil
	case "postgres":
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := migration.EnsureMigrated(ctx, db, time.UTC, cfg.Database.Host); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("run migrations: %w", err)
		}
		return db, store.NewPostgres(db, nil), nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// newFileDriver builds the file driver named by FILE_STORE_TYPE.
func newFileDriver(cfg *config.AppConfig) (filestore.Driver, error) {
	switch cfg.FileStore.Type {
	case "memory":
		return filestore.NewMemory(nil), nil
	case "disk":
		return filestore.NewDisk(cfg.FileStore.DiskRoot, nil)
	case "s3":
		return filestore.NewMinio(cfg.MinIO, nil)
	default:
		return nil, fmt.Errorf("unknown file store type %q", cfg.FileStore.Type)
	}
}
