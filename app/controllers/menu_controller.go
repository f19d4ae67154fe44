package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/foodar/foodar/app/models"
	"github.com/foodar/foodar/app/repository"
	"github.com/foodar/foodar/internal/pkg/cache"
)

const menuCacheTTL = 60 * time.Second

// MenuCacheKey is the cache key of a restaurant's public menu.
func MenuCacheKey(slug string) string {
	return "menu:" + slug
}

// MenuCache stores rendered public menus.
type MenuCache interface {
	GetJSON(ctx context.Context, key string, out interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// MenuAccess decides whether a restaurant's menu may be shown.
type MenuAccess interface {
	GetSubscription(ctx context.Context, restaurantID string) (*models.Subscription, error)
	CanAccess(restaurant *models.Restaurant, sub *models.Subscription) bool
}

// ViewRecorder counts public menu views.
type ViewRecorder interface {
	RecordMenuView(ctx context.Context, restaurantID string) error
}

type menuProduct struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Subtitle    string  `json:"subtitle,omitempty"`
	Description string  `json:"description,omitempty"`
	PriceAmount int     `json:"price_amount"`
	Currency    string  `json:"currency"`
	OrderIndex  int     `json:"order_index"`
	ModelURL    *string `json:"model_url,omitempty"`
	ModelType   *string `json:"model_content_type,omitempty"`
}

type menuResponse struct {
	Restaurant struct {
		Name string `json:"name"`
		Slug string `json:"slug"`
	} `json:"restaurant"`
	Status   string        `json:"status"`
	Products []menuProduct `json:"products"`
}

// menuCacheEntry keeps the restaurant id next to the public payload so cache
// hits can still be counted.
type menuCacheEntry struct {
	RestaurantID string       `json:"restaurant_id"`
	Menu         menuResponse `json:"menu"`
}

type MenuController struct {
	restaurants repository.RestaurantRepository
	products    repository.ProductRepository
	models3d    repository.Model3DRepository
	access      MenuAccess
	cache       MenuCache
	views       ViewRecorder
}

func NewMenuController(restaurants repository.RestaurantRepository, products repository.ProductRepository, models3d repository.Model3DRepository, access MenuAccess, cache MenuCache, views ViewRecorder) *MenuController {
	return &MenuController{restaurants: restaurants, products: products, models3d: models3d, access: access, cache: cache, views: views}
}

// HandleMenu serves GET /api/v1/menu/:slug without authentication.
func (mc *MenuController) HandleMenu(c *fiber.Ctx) error {
	ctx := c.UserContext()
	slug := c.Params("slug")

	var entry menuCacheEntry
	if mc.cache != nil {
		err := mc.cache.GetJSON(ctx, MenuCacheKey(slug), &entry)
		if err == nil {
			mc.recordView(ctx, entry.RestaurantID)
			c.Set("X-Cache", "HIT")
			return c.JSON(entry.Menu)
		}
		if !errors.Is(err, cache.ErrMiss) {
			log.Warnf("[Menu] Cache read for %s failed: %v", slug, err)
		}
	}

	r, err := mc.restaurants.GetBySlug(ctx, slug)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !r.IsApproved()) {
		return errorResponse(c, fiber.StatusNotFound, "not_found", "Menu not found")
	}
	if err != nil {
		log.Errorf("[Menu] Lookup of %s failed: %v", slug, err)
		return errorResponse(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load menu")
	}

	resp, err := mc.build(ctx, r)
	if err != nil {
		log.Errorf("[Menu] Building menu for %s failed: %v", slug, err)
		return errorResponse(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load menu")
	}

	if mc.cache != nil {
		entry = menuCacheEntry{RestaurantID: r.ID, Menu: resp}
		if err := mc.cache.SetJSON(ctx, MenuCacheKey(slug), entry, menuCacheTTL); err != nil {
			log.Warnf("[Menu] Cache write for %s failed: %v", slug, err)
		}
	}
	mc.recordView(ctx, r.ID)
	c.Set("X-Cache", "MISS")
	return c.JSON(resp)
}

func (mc *MenuController) recordView(ctx context.Context, restaurantID string) {
	if mc.views == nil || restaurantID == "" {
		return
	}
	if err := mc.views.RecordMenuView(ctx, restaurantID); err != nil {
		log.Debugf("[Menu] View not counted for %s: %v", restaurantID, err)
	}
}

func (mc *MenuController) build(ctx context.Context, r *models.Restaurant) (menuResponse, error) {
	var resp menuResponse
	resp.Restaurant.Name = r.Name
	resp.Restaurant.Slug = r.Slug
	resp.Products = []menuProduct{}

	sub, err := mc.access.GetSubscription(ctx, r.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return resp, err
	}
	if !mc.access.CanAccess(r, sub) {
		resp.Status = "unavailable"
		return resp, nil
	}
	resp.Status = "available"

	products, err := mc.products.ListMenu(ctx, r.ID)
	if err != nil {
		return resp, err
	}

	var modelIDs []string
	for _, p := range products {
		if p.ARModelID != nil {
			modelIDs = append(modelIDs, *p.ARModelID)
		}
	}
	byID := make(map[string]models.Model3D, len(modelIDs))
	if len(modelIDs) > 0 {
		list, err := mc.models3d.GetByIDs(ctx, modelIDs)
		if err != nil {
			return resp, err
		}
		for _, m := range list {
			byID[m.ID] = m
		}
	}

	for _, p := range products {
		item := menuProduct{
			ID:          p.ID,
			Title:       p.Title,
			Subtitle:    p.Subtitle,
			Description: p.Description,
			PriceAmount: p.PriceAmount,
			Currency:    p.Currency,
			OrderIndex:  p.OrderIndex,
		}
		if p.ARModelID != nil {
			if m, ok := byID[*p.ARModelID]; ok {
				url, ct := m.FileURL, m.ContentType
				item.ModelURL, item.ModelType = &url, &ct
			}
		}
		resp.Products = append(resp.Products, item)
	}
	return resp, nil
}
