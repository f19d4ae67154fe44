package router

import (
	"github.com/gofiber/fiber/v2"
)

// registerPublicRoutes mounts endpoints without bearer auth. Webhooks
// authenticate through their signatures.
func (h ApiRouter) registerPublicRoutes(v1 fiber.Router, limit fiber.Handler) {
	v1.Group("/menu", limit).Get("/:slug", h.deps.Menu.HandleMenu)

	hooks := v1.Group("/webhooks", limit)
	hooks.Post("/lemon-squeezy", h.deps.Webhooks.HandleLemonSqueezy)
	hooks.Post("/clerk", h.deps.Webhooks.HandleClerk)
}
