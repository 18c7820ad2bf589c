package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses that the
// handler left alone. Aggregates are short-lived because every new visit
// changes them.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet || c.Get(fiber.HeaderCacheControl) != "" {
			return err
		}

		path := strings.TrimSuffix(c.Path(), "/")
		var ttl string

		switch {
		case path == "/health" || path == "/ready" || path == "/metrics":
			ttl = "no-store"
		case path == "/api/v1/locations/heatmap-data":
			ttl = "public, max-age=30"
		case path == "/api/v1/locations/coverage-stats":
			ttl = "public, max-age=60"
		case path == "/api/v1/locations/recent":
			ttl = "no-cache"
		case path == "/api/v1/locations/nearby":
			ttl = "public, max-age=10"
		case strings.HasPrefix(path, "/docs"):
			ttl = "public, max-age=3600"
		}

		if ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}
		return err
	}
}
