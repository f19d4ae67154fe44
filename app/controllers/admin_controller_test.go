package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodar/foodar/app/models"
)

type recordingApprovals struct {
	approved []string
	rejected []string
	err      error
}

func (r *recordingApprovals) NotifyApproved(_ context.Context, rest *models.Restaurant) error {
	r.approved = append(r.approved, rest.ID)
	return r.err
}

func (r *recordingApprovals) NotifyRejected(_ context.Context, rest *models.Restaurant) error {
	r.rejected = append(r.rejected, rest.ID)
	return r.err
}

func adminApp(store *memoryRestaurants, notifier *recordingApprovals) *fiber.App {
	ac := NewAdminController(store, notifier, 7)
	ac.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }

	app := fiber.New()
	app.Get("/admin/restaurants", ac.HandleList)
	app.Post("/admin/restaurants/:id/approve", ac.HandleApprove)
	app.Post("/admin/restaurants/:id/reject", ac.HandleReject)
	return app
}

func TestAdminApproveOpensTrial(t *testing.T) {
	store := newMemoryRestaurants(&models.Restaurant{ID: "r1", Slug: "a", Status: models.RestaurantStatusPending})
	notifier := &recordingApprovals{}
	app := adminApp(store, notifier)

	resp := postJSON(t, app, "/admin/restaurants/r1/approve", ``)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	saved, err := store.GetByID(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, models.RestaurantStatusApproved, saved.Status)
	require.NotNil(t, saved.TrialEndsAt)
	assert.Equal(t, time.Date(2026, 3, 8, 10, 0, 0, 0, time.UTC), *saved.TrialEndsAt)
	assert.Equal(t, []string{"r1"}, notifier.approved)
}

func TestAdminApproveNotificationFailureIsNotFatal(t *testing.T) {
	store := newMemoryRestaurants(&models.Restaurant{ID: "r1", Slug: "a", Status: models.RestaurantStatusPending})
	app := adminApp(store, &recordingApprovals{err: errors.New("smtp down")})

	resp := postJSON(t, app, "/admin/restaurants/r1/approve", ``)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAdminApproveErrors(t *testing.T) {
	store := newMemoryRestaurants(&models.Restaurant{ID: "r1", Slug: "a", Status: models.RestaurantStatusApproved})
	app := adminApp(store, &recordingApprovals{})

	resp := postJSON(t, app, "/admin/restaurants/r1/approve", ``)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_state", decodeBody(t, resp)["error"])

	resp = postJSON(t, app, "/admin/restaurants/missing/approve", ``)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestAdminReject(t *testing.T) {
	store := newMemoryRestaurants(&models.Restaurant{ID: "r1", Slug: "a", Status: models.RestaurantStatusPending})
	notifier := &recordingApprovals{}
	app := adminApp(store, notifier)

	resp := postJSON(t, app, "/admin/restaurants/r1/reject", `{}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, app, "/admin/restaurants/r1/reject", `{"reason":"menu photos missing"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	saved, err := store.GetByID(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, models.RestaurantStatusRejected, saved.Status)
	assert.Equal(t, "menu photos missing", saved.RejectionReason)
	assert.Equal(t, []string{"r1"}, notifier.rejected)
}

func TestAdminListFiltersByStatus(t *testing.T) {
	store := newMemoryRestaurants(
		&models.Restaurant{ID: "r1", Slug: "a", Status: models.RestaurantStatusPending},
		&models.Restaurant{ID: "r2", Slug: "b", Status: models.RestaurantStatusApproved},
	)
	app := adminApp(store, &recordingApprovals{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin/restaurants", nil), -1)
	require.NoError(t, err)
	body := decodeBody(t, resp)
	assert.Len(t, body["restaurants"], 1)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/admin/restaurants?status=all", nil), -1)
	require.NoError(t, err)
	body = decodeBody(t, resp)
	assert.Len(t, body["restaurants"], 2)
}
