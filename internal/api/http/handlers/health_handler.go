package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/maintenance-desk/internal/persistence"
)

const readinessTimeout = 2 * time.Second

// dependency is one readiness probe. An unconfigured dependency reports its
// in-process fallback and never fails readiness.
type dependency struct {
	name      string
	fallback  string
	available func() bool
	ping      func(context.Context) error
}

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName  string
	version      string
	startedAt    time.Time
	dependencies []dependency
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(serviceName, version string, postgres *persistence.Postgres, redis *persistence.Redis) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		startedAt:   time.Now(),
		dependencies: []dependency{
			{name: "postgres", fallback: "in-memory", available: postgres.Available, ping: postgres.Ping},
			{name: "redis", fallback: "in-process", available: redis.Available, ping: redis.Ping},
		},
	}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":         "alive",
		"service":        h.serviceName,
		"version":        h.version,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	})
}

// Ready pings every configured dependency.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	statuses := make(fiber.Map, len(h.dependencies))
	ready := true
	for _, dep := range h.dependencies {
		switch {
		case !dep.available():
			statuses[dep.name] = dep.fallback
		case dep.ping(ctx) != nil:
			statuses[dep.name] = "unreachable"
			ready = false
		default:
			statuses[dep.name] = "ok"
		}
	}

	if !ready {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "DEPENDENCY_UNAVAILABLE",
				"message": "one or more dependencies unavailable",
				"details": statuses,
			},
		})
	}
	return c.JSON(fiber.Map{"status": "ready", "dependencies": statuses})
}
