package controllers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/foodar/foodar/app/models"
	"github.com/foodar/foodar/app/repository"
	"github.com/foodar/foodar/internal/pkg/slug"
	"github.com/foodar/foodar/internal/pkg/usercontext"
)

// RestaurantStore is the part of the restaurant repository used by
// onboarding.
type RestaurantStore interface {
	Create(ctx context.Context, restaurant *models.Restaurant) error
	GetByOwnerID(ctx context.Context, ownerID string) (*models.Restaurant, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	Update(ctx context.Context, restaurant *models.Restaurant) error
}

type RestaurantController struct {
	restaurants RestaurantStore
}

func NewRestaurantController(restaurants RestaurantStore) *RestaurantController {
	return &RestaurantController{restaurants: restaurants}
}

type createRestaurantRequest struct {
	Name         string  `json:"name" validate:"required,min=2,max=255"`
	CustomDomain *string `json:"custom_domain" validate:"omitempty,fqdn"`
}

// HandleCreate serves POST /api/v1/restaurants. A rejected application can be
// resubmitted; it keeps its slug so shared links stay valid.
func (rc *RestaurantController) HandleCreate(c *fiber.Ctx) error {
	var req createRestaurantRequest
	if msg, ok := bindJSON(c, &req); !ok {
		return errorResponse(c, fiber.StatusBadRequest, "validation_failed", msg)
	}
	req.Name = strings.TrimSpace(req.Name)

	ctx := c.UserContext()
	ownerID := usercontext.GetUserID(c)

	existing, err := rc.restaurants.GetByOwnerID(ctx, ownerID)
	switch {
	case err == nil && existing.Status == models.RestaurantStatusRejected:
		existing.Name = req.Name
		existing.CustomDomain = req.CustomDomain
		existing.Status = models.RestaurantStatusPending
		existing.RejectionReason = ""
		if err := rc.restaurants.Update(ctx, existing); err != nil {
			log.Errorf("[Restaurant] Resubmission for %s failed: %v", existing.ID, err)
			return errorResponse(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to save restaurant")
		}
		return c.Status(fiber.StatusCreated).JSON(existing)
	case err == nil:
		return errorResponse(c, fiber.StatusBadRequest, "already_exists", "User already has a restaurant application")
	case !errors.Is(err, repository.ErrNotFound):
		log.Errorf("[Restaurant] Lookup for owner %s failed: %v", ownerID, err)
		return errorResponse(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load restaurant")
	}

	s, err := slug.Unique(req.Name, func(candidate string) (bool, error) {
		return rc.restaurants.SlugExists(ctx, candidate)
	})
	if err != nil {
		log.Errorf("[Restaurant] Slug generation for %q failed: %v", req.Name, err)
		return errorResponse(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to generate slug")
	}

	restaurant := &models.Restaurant{
		OwnerID:      ownerID,
		Name:         req.Name,
		Slug:         s,
		CustomDomain: req.CustomDomain,
		Status:       models.RestaurantStatusPending,
	}
	if err := rc.restaurants.Create(ctx, restaurant); err != nil {
		log.Errorf("[Restaurant] Create for owner %s failed: %v", ownerID, err)
		return errorResponse(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to save restaurant")
	}
	log.Infof("[Restaurant] Application %s (%s) submitted", restaurant.ID, restaurant.Slug)
	return c.Status(fiber.StatusCreated).JSON(restaurant)
}

// HandleMe serves GET /api/v1/restaurants/me.
func (rc *RestaurantController) HandleMe(c *fiber.Ctx) error {
	r, ok := currentRestaurant(c)
	if !ok {
		return errorResponse(c, fiber.StatusNotFound, "not_found", "Restaurant not found")
	}
	return c.JSON(r)
}
