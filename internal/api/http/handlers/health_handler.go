package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
)

const readinessTimeout = 2 * time.Second

// probe checks one backing service. A nil check reports the fallback state.
type probe struct {
	name     string
	fallback string
	check    func(context.Context) error
}

// HealthHandler serves liveness, readiness and the metrics snapshot.
type HealthHandler struct {
	serviceName string
	version     string
	probes      []probe
	metrics     *observability.Metrics
}

// NewHealthHandler probes Postgres and Redis only when they are configured.
func NewHealthHandler(serviceName, version string, postgres *persistence.Postgres, redis *persistence.Redis, metrics *observability.Metrics) *HealthHandler {
	pg := probe{name: "postgres", fallback: "in-memory"}
	if postgres.Enabled() {
		pg.check = postgres.Ping
	}
	rdb := probe{name: "redis", fallback: "disabled"}
	if redis != nil {
		rdb.check = redis.Ping
	}
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		probes:      []probe{pg, rdb},
		metrics:     metrics,
	}
}

func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready answers 503 with the error envelope when any configured dependency
// fails its ping.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	deps := fiber.Map{}
	ready := true
	for _, p := range h.probes {
		if p.check == nil {
			deps[p.name] = p.fallback
			continue
		}
		if err := p.check(ctx); err != nil {
			deps[p.name] = err.Error()
			ready = false
			continue
		}
		deps[p.name] = "ok"
	}

	if !ready {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "DEPENDENCY_UNAVAILABLE",
				"message": "one or more dependencies unavailable",
				"details": deps,
			},
		})
	}
	return c.JSON(fiber.Map{"status": "ready", "dependencies": deps})
}

// Metrics reports request and triage counters.
func (h *HealthHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.metrics.Snapshot()})
}
