package middleware

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/foodar/foodar/app/models"
	"github.com/foodar/foodar/app/repository"
	"github.com/foodar/foodar/internal/pkg/usercontext"
)

// RestaurantLookup resolves the caller's restaurant.
type RestaurantLookup interface {
	GetByOwnerID(ctx context.Context, ownerID string) (*models.Restaurant, error)
}

// AccessChecker reads billing state and evaluates feature access.
type AccessChecker interface {
	GetSubscription(ctx context.Context, restaurantID string) (*models.Subscription, error)
	CanAccess(restaurant *models.Restaurant, sub *models.Subscription) bool
}

// LoadRestaurant resolves the authenticated owner's restaurant into Locals.
func LoadRestaurant(restaurants RestaurantLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		r, err := restaurants.GetByOwnerID(c.UserContext(), usercontext.GetUserID(c))
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Restaurant not found"})
		}
		if err != nil {
			log.Errorf("[Auth] Restaurant lookup failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Restaurant lookup failed"})
		}
		usercontext.SetRestaurant(c, r)
		return c.Next()
	}
}

// RequireActiveSubscription blocks restaurants that are neither in trial nor
// actively subscribed. Must run after LoadRestaurant.
func RequireActiveSubscription(access AccessChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		r := usercontext.GetRestaurant(c)
		if r == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Restaurant not found"})
		}

		sub, err := access.GetSubscription(c.UserContext(), r.ID)
		if err != nil {
			log.Errorf("[Auth] Subscription lookup for restaurant %s failed: %v", r.ID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Subscription lookup failed"})
		}
		if !access.CanAccess(r, sub) {
			return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
				"error":   "subscription_required",
				"message": "An approved restaurant with an active trial or subscription is required",
			})
		}
		usercontext.SetSubscription(c, sub)
		return c.Next()
	}
}
