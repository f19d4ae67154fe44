package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/foodar/foodar/internal/pkg/middleware"
)

type ApiRouter struct {
	deps Dependencies
}

// InstallRouter mounts /api/v1. Every group has its own prefix because a
// group's handlers are installed as middleware on that prefix.
func (h ApiRouter) InstallRouter(app *fiber.App) {
	limits := h.deps.Limits
	if limits.Protected <= 0 || limits.Public <= 0 {
		limits = DefaultRateLimits()
	}

	v1 := app.Group("/api/v1")
	h.registerPublicRoutes(v1, newLimiter(h.deps.LimiterStorage, limits.Public, "public"))

	protected := []fiber.Handler{
		newLimiter(h.deps.LimiterStorage, limits.Protected, "protected"),
		middleware.RequireAuth(h.deps.Verifier, h.deps.Users),
	}
	h.registerOwnerRoutes(v1, protected)
	h.registerAdminRoutes(v1, protected)
}

// registerOwnerRoutes mounts the restaurant owner API. Reads need an
// onboarded restaurant, writes additionally need billing access.
func (h ApiRouter) registerOwnerRoutes(v1 fiber.Router, protected []fiber.Handler) {
	loadRestaurant := middleware.LoadRestaurant(h.deps.Restaurants)
	requireAccess := middleware.RequireActiveSubscription(h.deps.Access)
	withRestaurant := append(append([]fiber.Handler{}, protected...), loadRestaurant)

	restaurants := v1.Group("/restaurants", protected...)
	restaurants.Post("/", h.deps.Restaurant.HandleCreate)
	restaurants.Get("/me", loadRestaurant, h.deps.Restaurant.HandleMe)

	subs := v1.Group("/subscriptions", withRestaurant...)
	subs.Get("/", h.deps.Subscriptions.HandleGet)
	subs.Post("/checkout", h.deps.Subscriptions.HandleCheckout)

	products := v1.Group("/products", withRestaurant...)
	products.Get("/", h.deps.Products.HandleList)
	products.Get("/:id", h.deps.Products.HandleGet)
	products.Post("/", requireAccess, h.deps.Products.HandleCreate)
	products.Patch("/:id", requireAccess, h.deps.Products.HandleUpdate)
	products.Delete("/:id", requireAccess, h.deps.Products.HandleDelete)

	models := v1.Group("/models", withRestaurant...)
	models.Get("/", h.deps.Models.HandleList)
	models.Get("/:id", h.deps.Models.HandleGet)
	models.Post("/", requireAccess, h.deps.Models.HandleUpload)
}

func NewApiRouter(deps Dependencies) *ApiRouter {
	return &ApiRouter{deps: deps}
}
