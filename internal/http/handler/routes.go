package handler

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"

	"boxstore/internal/filestore"
	"boxstore/internal/store"
)

// RegisterRoutes attaches all HTTP routes to the provided Fiber app.
// The document backend and file driver are chosen once at startup and
// injected here; db is non-nil only when the postgres backend is active.
func RegisterRoutes(app *fiber.App, db *sql.DB, backend store.Backend, driver filestore.Driver, storePrefix, filePrefix string) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	RegisterStoreRoutes(app, storePrefix, backend)
	RegisterFileRoutes(app, filePrefix, driver)
}

// HealthCheck reports readiness. With the postgres backend it pings the
// database; the embedded and in-memory backends have no external
// dependency to check.
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				return fiber.NewError(fiber.StatusServiceUnavailable, "dependency unavailable")
			}
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a plain liveness endpoint.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}
