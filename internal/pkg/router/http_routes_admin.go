package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/foodar/foodar/internal/pkg/middleware"
)

func (h ApiRouter) registerAdminRoutes(v1 fiber.Router, protected []fiber.Handler) {
	admin := v1.Group("/admin", append(append([]fiber.Handler{}, protected...), middleware.RequireAdmin)...)
	admin.Get("/restaurants", h.deps.Admin.HandleList)
	admin.Post("/restaurants/:id/approve", h.deps.Admin.HandleApprove)
	admin.Post("/restaurants/:id/reject", h.deps.Admin.HandleReject)
}
