package http

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

const readinessTimeout = 3 * time.Second

// HealthHandler returns a basic liveness check.
func HealthHandler() fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "campaign-api",
			"uptime":  time.Since(startedAt).Round(time.Second).String(),
		})
	}
}

// probe reports one dependency. A failing required probe fails readiness.
type probe struct {
	name     string
	required bool
	check    func(ctx context.Context) string
}

func pingProbe(p Pinger) func(context.Context) string {
	return func(ctx context.Context) string {
		if p == nil {
			return "not configured"
		}
		if err := p.Ping(ctx); err != nil {
			return "error: " + err.Error()
		}
		return "ok"
	}
}

func (d *Dependencies) probes() []probe {
	return []probe{
		{name: "store", required: true, check: pingProbe(d.Store)},
		{name: "cache", check: pingProbe(d.Cache)},
		{name: "nats", check: func(context.Context) string {
			switch {
			case d.NATS == nil:
				return "not configured"
			case !d.NATS.IsConnected():
				return "disconnected"
			}
			return "ok"
		}},
	}
}

// ReadyHandler runs every dependency probe. Only the store gates readiness;
// the event bus and cache degrade to in-process fan-out and direct reads.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	probes := deps.probes()

	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
		defer cancel()

		checks := make(map[string]string, len(probes)+1)
		code := fiber.StatusOK
		for _, p := range probes {
			res := p.check(ctx)
			checks[p.name] = res
			if p.required && res != "ok" {
				code = fiber.StatusServiceUnavailable
			}
		}
		if deps.Hub != nil {
			checks["ws_connections"] = strconv.Itoa(deps.Hub.Len())
		}

		status := "ready"
		if code != fiber.StatusOK {
			status = "not ready"
		}
		return c.Status(code).JSON(fiber.Map{"status": status, "checks": checks})
	}
}
