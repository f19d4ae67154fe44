package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodar/foodar/app/models"
)

func restaurantApp(store *memoryRestaurants, userID string) *fiber.App {
	app := fiber.New()
	rc := NewRestaurantController(store)
	app.Post("/restaurants", withRestaurant(userID, nil), rc.HandleCreate)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestRestaurantCreatePending(t *testing.T) {
	store := newMemoryRestaurants()
	app := restaurantApp(store, "user-1")

	resp := postJSON(t, app, "/restaurants", `{"name":"Café Zürich"}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, models.RestaurantStatusPending, body["status"])
	assert.Equal(t, "user-1", body["owner_id"])
	assert.Equal(t, "cafe-zurich", body["slug"])
}

func TestRestaurantCreateSlugCollision(t *testing.T) {
	store := newMemoryRestaurants(&models.Restaurant{ID: "r0", OwnerID: "user-0", Slug: "cafe-zurich", Status: models.RestaurantStatusApproved})
	app := restaurantApp(store, "user-1")

	resp := postJSON(t, app, "/restaurants", `{"name":"Café Zürich"}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Regexp(t, `^cafe-zurich-[0-9a-z]{4}$`, decodeBody(t, resp)["slug"])
}

func TestRestaurantCreateRejectsSecondApplication(t *testing.T) {
	store := newMemoryRestaurants(&models.Restaurant{ID: "r1", OwnerID: "user-1", Slug: "x", Status: models.RestaurantStatusPending})
	app := restaurantApp(store, "user-1")

	resp := postJSON(t, app, "/restaurants", `{"name":"Second"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "already_exists", decodeBody(t, resp)["error"])
}

func TestRestaurantResubmitAfterRejection(t *testing.T) {
	store := newMemoryRestaurants(&models.Restaurant{
		ID: "r1", OwnerID: "user-1", Name: "Old", Slug: "old-abcd",
		Status: models.RestaurantStatusRejected, RejectionReason: "blurry logo",
	})
	app := restaurantApp(store, "user-1")

	resp := postJSON(t, app, "/restaurants", `{"name":"New Name"}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	saved, err := store.GetByID(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, models.RestaurantStatusPending, saved.Status)
	assert.Equal(t, "New Name", saved.Name)
	assert.Equal(t, "old-abcd", saved.Slug)
	assert.Empty(t, saved.RejectionReason)
}

func TestRestaurantCreateValidation(t *testing.T) {
	app := restaurantApp(newMemoryRestaurants(), "user-1")

	resp := postJSON(t, app, "/restaurants", `{"name":""}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_failed", decodeBody(t, resp)["error"])

	resp = postJSON(t, app, "/restaurants", `not json`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestRestaurantMe(t *testing.T) {
	r := &models.Restaurant{ID: "r1", OwnerID: "user-1", Name: "Mine", Slug: "mine"}
	rc := NewRestaurantController(newMemoryRestaurants(r))

	app := fiber.New()
	app.Get("/with", withRestaurant("user-1", r), rc.HandleMe)
	app.Get("/without", withRestaurant("user-1", nil), rc.HandleMe)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/with", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "mine", decodeBody(t, resp)["slug"])

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/without", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
