package router

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodar/foodar/app/controllers"
	"github.com/foodar/foodar/app/models"
	"github.com/foodar/foodar/app/repository"
	"github.com/foodar/foodar/internal/pkg/identity"
)

type ownerToken struct{}

func (ownerToken) Verify(_ context.Context, token string) (*identity.Claims, error) {
	if token != "owner" {
		return nil, identity.ErrInvalidToken
	}
	return &identity.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user_owner"}}, nil
}

type ownerUsers struct{}

func (ownerUsers) GetByClerkID(_ context.Context, id string) (*models.User, error) {
	if id != "user_owner" {
		return nil, repository.ErrNotFound
	}
	return &models.User{ID: "u1", ClerkUserID: id, Role: models.ROLE_RESTAURANT_OWNER}, nil
}

type noRestaurants struct{}

func (noRestaurants) GetByOwnerID(_ context.Context, _ string) (*models.Restaurant, error) {
	return nil, repository.ErrNotFound
}

func testApp(limits RateLimits, health func(context.Context) error) *fiber.App {
	app := fiber.New()
	app.Use(recover.New())
	InstallRouter(app, Dependencies{
		Verifier:      ownerToken{},
		Users:         ownerUsers{},
		Restaurants:   noRestaurants{},
		Webhooks:      controllers.NewWebhookController(nil, nil, "secret", "", nil),
		Restaurant:    controllers.NewRestaurantController(nil),
		Admin:         controllers.NewAdminController(nil, nil, 7),
		Products:      controllers.NewProductController(nil, nil, nil, nil),
		Models:        controllers.NewModelController(nil, nil),
		Menu:          controllers.NewMenuController(nil, nil, nil, nil, nil, nil),
		Subscriptions: controllers.NewSubscriptionController(nil, nil, false),
		Limits:        limits,
		Gatherer:      prometheus.NewRegistry(),
		HealthCheck:   health,
	})
	return app
}

func send(t *testing.T, app *fiber.App, method, path, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestHealthAndMetrics(t *testing.T) {
	app := testApp(DefaultRateLimits(), nil)
	assert.Equal(t, fiber.StatusOK, send(t, app, http.MethodGet, "/healthz", "").StatusCode)
	assert.Equal(t, fiber.StatusOK, send(t, app, http.MethodGet, "/metrics", "").StatusCode)

	down := testApp(DefaultRateLimits(), func(context.Context) error { return errors.New("db down") })
	assert.Equal(t, fiber.StatusServiceUnavailable, send(t, down, http.MethodGet, "/healthz", "").StatusCode)
}

func TestWebhooksDoNotRequireBearerAuth(t *testing.T) {
	app := testApp(DefaultRateLimits(), nil)

	resp := send(t, app, http.MethodPost, "/api/v1/webhooks/lemon-squeezy", "")
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "invalid_signature")
}

func TestOwnerRoutesRequireAuth(t *testing.T) {
	app := testApp(DefaultRateLimits(), nil)

	for _, path := range []string{"/api/v1/products", "/api/v1/models", "/api/v1/subscriptions", "/api/v1/restaurants/me"} {
		assert.Equal(t, fiber.StatusUnauthorized, send(t, app, http.MethodGet, path, "").StatusCode, path)
		assert.Equal(t, fiber.StatusNotFound, send(t, app, http.MethodGet, path, "owner").StatusCode, path)
	}
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	app := testApp(DefaultRateLimits(), nil)

	assert.Equal(t, fiber.StatusUnauthorized, send(t, app, http.MethodGet, "/api/v1/admin/restaurants", "").StatusCode)
	assert.Equal(t, fiber.StatusForbidden, send(t, app, http.MethodGet, "/api/v1/admin/restaurants", "owner").StatusCode)
}

func TestPublicRateLimit(t *testing.T) {
	app := testApp(RateLimits{Protected: 100, Public: 2}, nil)

	for i := 0; i < 2; i++ {
		assert.Equal(t, fiber.StatusUnauthorized, send(t, app, http.MethodPost, "/api/v1/webhooks/lemon-squeezy", "").StatusCode)
	}
	assert.Equal(t, fiber.StatusTooManyRequests, send(t, app, http.MethodPost, "/api/v1/webhooks/lemon-squeezy", "").StatusCode)

	// protected routes count separately
	assert.Equal(t, fiber.StatusUnauthorized, send(t, app, http.MethodGet, "/api/v1/products", "").StatusCode)
}
