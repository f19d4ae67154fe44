package router

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/foodar/foodar/internal/pkg/metrics"
)

// HttpRouter mounts operational endpoints outside /api.
type HttpRouter struct {
	deps Dependencies
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	app.Get("/healthz", h.health)
	if h.deps.Gatherer != nil {
		app.Get("/metrics", metrics.Handler(h.deps.Gatherer))
	}
}

func (h HttpRouter) health(c *fiber.Ctx) error {
	if h.deps.HealthCheck != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := h.deps.HealthCheck(ctx); err != nil {
			log.Warnf("[Health] Check failed: %v", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func NewHttpRouter(deps Dependencies) *HttpRouter {
	return &HttpRouter{deps: deps}
}
