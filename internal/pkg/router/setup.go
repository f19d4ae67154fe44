package router

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/foodar/foodar/app/controllers"
	"github.com/foodar/foodar/internal/pkg/middleware"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// Dependencies carries everything the routers mount. Nil optional fields
// disable the matching feature (limiter storage falls back to memory,
// /metrics is not mounted without a gatherer).
type Dependencies struct {
	Verifier    middleware.TokenVerifier
	Users       middleware.UserLookup
	Restaurants middleware.RestaurantLookup
	Access      middleware.AccessChecker

	Webhooks      *controllers.WebhookController
	Restaurant    *controllers.RestaurantController
	Admin         *controllers.AdminController
	Products      *controllers.ProductController
	Models        *controllers.ModelController
	Menu          *controllers.MenuController
	Subscriptions *controllers.SubscriptionController

	LimiterStorage fiber.Storage
	Limits         RateLimits
	Gatherer       prometheus.Gatherer
	HealthCheck    func(ctx context.Context) error
}

func InstallRouter(app *fiber.App, deps Dependencies) {
	// Operational endpoints first so they bypass the API limiter.
	setup(app, NewHttpRouter(deps), NewApiRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
