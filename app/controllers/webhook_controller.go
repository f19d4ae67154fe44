package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/foodar/foodar/app/models"
	"github.com/foodar/foodar/internal/pkg/billing"
	"github.com/foodar/foodar/internal/pkg/identity"
)

// PaymentWebhookHandler reconciles verified payment-provider webhooks.
type PaymentWebhookHandler interface {
	HandleWebhook(ctx context.Context, body []byte) (billing.Result, error)
}

// IdentityWebhookHandler mirrors verified identity-provider webhooks.
type IdentityWebhookHandler interface {
	HandleWebhook(ctx context.Context, body []byte) (identity.Result, error)
}

// WebhookController verifies inbound webhook signatures and hands the raw
// body to the matching service.
type WebhookController struct {
	payments       PaymentWebhookHandler
	identities     IdentityWebhookHandler
	paymentSecret  string
	identitySecret string
	metrics        billing.Metrics
	now            func() time.Time
}

func NewWebhookController(payments PaymentWebhookHandler, identities IdentityWebhookHandler, paymentSecret, identitySecret string, metrics billing.Metrics) *WebhookController {
	if metrics == nil {
		metrics = &billing.NoopMetrics{}
	}
	return &WebhookController{
		payments:       payments,
		identities:     identities,
		paymentSecret:  paymentSecret,
		identitySecret: identitySecret,
		metrics:        metrics,
		now:            time.Now,
	}
}

// HandleLemonSqueezy serves POST /api/v1/webhooks/lemon-squeezy.
func (wc *WebhookController) HandleLemonSqueezy(c *fiber.Ctx) error {
	// Fiber reuses the request buffer after the handler returns.
	body := append([]byte(nil), c.Body()...)

	if !billing.VerifyWebhookSignature(body, c.Get("X-Signature"), wc.paymentSecret) {
		wc.metrics.RecordWebhookError(models.WebhookProviderLemonSqueezy, "invalid_signature")
		log.Warnf("[Webhook] Lemon Squeezy signature rejected from %s", c.IP())
		return errorResponse(c, fiber.StatusUnauthorized, "invalid_signature", "Invalid signature")
	}

	res, err := wc.payments.HandleWebhook(c.UserContext(), body)
	if err != nil {
		status, code := paymentErrorStatus(err)
		if status >= fiber.StatusInternalServerError {
			log.Errorf("[Webhook] Lemon Squeezy %s failed: %v", res.EventName, err)
			return errorResponse(c, status, code, "Webhook processing failed")
		}
		return errorResponse(c, status, code, err.Error())
	}

	return c.JSON(fiber.Map{
		"status":        res.Outcome,
		"event_name":    res.EventName,
		"restaurant_id": res.RestaurantID,
	})
}

// HandleClerk serves POST /api/v1/webhooks/clerk.
func (wc *WebhookController) HandleClerk(c *fiber.Ctx) error {
	body := append([]byte(nil), c.Body()...)

	headers := identity.SvixHeaders{
		ID:        c.Get("svix-id"),
		Timestamp: c.Get("svix-timestamp"),
		Signature: c.Get("svix-signature"),
	}
	if err := identity.VerifySvixSignature(wc.identitySecret, headers, body, wc.now()); err != nil {
		wc.metrics.RecordWebhookError(models.WebhookProviderClerk, "invalid_signature")
		log.Warnf("[Webhook] Clerk signature rejected: %v", err)
		return errorResponse(c, fiber.StatusUnauthorized, "invalid_signature", "Webhook verification failed")
	}

	res, err := wc.identities.HandleWebhook(c.UserContext(), body)
	if err != nil {
		if identity.IsClientError(err) {
			return errorResponse(c, fiber.StatusBadRequest, "invalid_payload", err.Error())
		}
		log.Errorf("[Webhook] Clerk %s failed: %v", res.EventType, err)
		return errorResponse(c, fiber.StatusInternalServerError, "internal_server_error", "Webhook processing failed")
	}

	status := "processed"
	if res.Ignored {
		status = "ignored"
	}
	return c.JSON(fiber.Map{"status": status, "event_type": res.EventType})
}

func paymentErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, billing.ErrInvalidSignature):
		return fiber.StatusUnauthorized, "invalid_signature"
	case errors.Is(err, billing.ErrInvalidPayload):
		return fiber.StatusBadRequest, "invalid_payload"
	case errors.Is(err, billing.ErrMissingRestaurantID):
		return fiber.StatusBadRequest, "missing_restaurant_id"
	case errors.Is(err, billing.ErrRestaurantNotFound):
		return fiber.StatusNotFound, "restaurant_not_found"
	default:
		return fiber.StatusInternalServerError, "internal_server_error"
	}
}
