package controllers

import (
	"context"
	"fmt"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/foodar/foodar/app/models"
)

// SubscriptionReader exposes the cached billing state.
type SubscriptionReader interface {
	GetSubscription(ctx context.Context, restaurantID string) (*models.Subscription, error)
	CanAccess(restaurant *models.Restaurant, sub *models.Subscription) bool
}

// CheckoutCreator opens a hosted checkout for a restaurant.
type CheckoutCreator interface {
	CreateCheckout(ctx context.Context, restaurant *models.Restaurant) (string, error)
}

type SubscriptionController struct {
	subs     SubscriptionReader
	checkout CheckoutCreator
	// testFallback returns a placeholder checkout URL when the provider call
	// fails. Only enabled in dev.
	testFallback bool
}

func NewSubscriptionController(subs SubscriptionReader, checkout CheckoutCreator, testFallback bool) *SubscriptionController {
	return &SubscriptionController{subs: subs, checkout: checkout, testFallback: testFallback}
}

// HandleGet serves GET /api/v1/subscriptions.
func (sc *SubscriptionController) HandleGet(c *fiber.Ctx) error {
	r, ok := currentRestaurant(c)
	if !ok {
		return errorResponse(c, fiber.StatusNotFound, "not_found", "Restaurant not found")
	}

	sub, err := sc.subs.GetSubscription(c.UserContext(), r.ID)
	if err != nil {
		log.Errorf("[Subscription] Lookup for restaurant %s failed: %v", r.ID, err)
		return errorResponse(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load subscription")
	}
	if sub == nil {
		return errorResponse(c, fiber.StatusNotFound, "not_found", "Subscription not found")
	}

	return c.JSON(fiber.Map{
		"subscription":      sub,
		"can_access":        sc.subs.CanAccess(r, sub),
		"restaurant_status": r.Status,
		"trial_ends_at":     formatTimePtr(r.TrialEndsAt),
	})
}

// HandleCheckout serves POST /api/v1/subscriptions/checkout.
func (sc *SubscriptionController) HandleCheckout(c *fiber.Ctx) error {
	r, ok := currentRestaurant(c)
	if !ok {
		return errorResponse(c, fiber.StatusNotFound, "not_found", "Restaurant not found")
	}

	sub, err := sc.subs.GetSubscription(c.UserContext(), r.ID)
	if err != nil {
		log.Errorf("[Subscription] Lookup for restaurant %s failed: %v", r.ID, err)
		return errorResponse(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load subscription")
	}
	if sub.IsActive() {
		return errorResponse(c, fiber.StatusBadRequest, "already_subscribed", "Subscription already active")
	}

	checkoutURL, err := sc.checkout.CreateCheckout(c.UserContext(), r)
	if err != nil {
		if !sc.testFallback {
			log.Errorf("[Subscription] Checkout for restaurant %s failed: %v", r.ID, err)
			return errorResponse(c, fiber.StatusBadGateway, "checkout_failed", "Payment provider unavailable")
		}
		log.Warnf("[Subscription] Checkout failed, returning test URL: %v", err)
		checkoutURL = fmt.Sprintf("https://checkout.lemonsqueezy.com/test?restaurant_id=%s", url.QueryEscape(r.ID))
	}

	return c.JSON(fiber.Map{"checkout_url": checkoutURL})
}
