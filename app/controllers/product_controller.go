package controllers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/foodar/foodar/app/models"
	"github.com/foodar/foodar/app/repository"
)

// ProductRecounter schedules the usage recount after the number of active
// products changed.
type ProductRecounter interface {
	ScheduleProductRecount(ctx context.Context, restaurantID string) error
}

// CacheInvalidator drops cached public menus.
type CacheInvalidator interface {
	Delete(ctx context.Context, keys ...string) error
}

type ProductController struct {
	products  repository.ProductRepository
	models3d  repository.Model3DRepository
	recounter ProductRecounter
	cache     CacheInvalidator
}

func NewProductController(products repository.ProductRepository, models3d repository.Model3DRepository, recounter ProductRecounter, cache CacheInvalidator) *ProductController {
	return &ProductController{products: products, models3d: models3d, recounter: recounter, cache: cache}
}

type createProductRequest struct {
	ARModelID   *string `json:"ar_model_id" validate:"omitempty,uuid"`
	Title       string  `json:"title" validate:"required,max=255"`
	Subtitle    string  `json:"subtitle" validate:"max=255"`
	Description string  `json:"description"`
	PriceAmount int     `json:"price_amount" validate:"min=0"`
	Currency    string  `json:"currency" validate:"omitempty,len=3"`
	Active      *bool   `json:"active"`
	ShowInMenu  *bool   `json:"show_in_menu"`
	OrderIndex  int     `json:"order_index" validate:"min=0"`
}

// HandleList serves GET /api/v1/products.
func (pc *ProductController) HandleList(c *fiber.Ctx) error {
	r, ok := currentRestaurant(c)
	if !ok {
		return errorResponse(c, fiber.StatusNotFound, "not_found", "Restaurant not found")
	}
	list, err := pc.products.ListByRestaurant(c.UserContext(), r.ID)
	if err != nil {
		log.Errorf("[Product] List for %s failed: %v", r.ID, err)
		return errorResponse(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to list products")
	}
	return c.JSON(fiber.Map{"products": list})
}

// HandleGet serves GET /api/v1/products/:id.
func (pc *ProductController) HandleGet(c *fiber.Ctx) error {
	r, ok := currentRestaurant(c)
	if !ok {
		return errorResponse(c, fiber.StatusNotFound, "not_found", "Restaurant not found")
	}
	p, err := pc.products.GetByID(c.UserContext(), r.ID, c.Params("id"))
	if err != nil {
		return pc.lookupError(c, err)
	}
	return c.JSON(p)
}

// HandleCreate serves POST /api/v1/products.
func (pc *ProductController) HandleCreate(c *fiber.Ctx) error {
	r, ok := currentRestaurant(c)
	if !ok {
		return errorResponse(c, fiber.StatusNotFound, "not_found", "Restaurant not found")
	}
	var req createProductRequest
	if msg, ok := bindJSON(c, &req); !ok {
		return errorResponse(c, fiber.StatusBadRequest, "validation_failed", msg)
	}
	ctx := c.UserContext()
	if req.ARModelID != nil && *req.ARModelID == "" {
		req.ARModelID = nil
	}
	if req.ARModelID != nil {
		if ok, err := pc.ownsModel(ctx, r.ID, *req.ARModelID); err != nil {
			log.Errorf("[Product] Model lookup for %s failed: %v", r.ID, err)
			return errorResponse(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load model")
		} else if !ok {
			return errorResponse(c, fiber.StatusBadRequest, "invalid_model", "AR model not found")
		}
	}

	p := &models.Product{
		RestaurantID: r.ID,
		ARModelID:    req.ARModelID,
		Title:        req.Title,
		Subtitle:     req.Subtitle,
		Description:  req.Description,
		PriceAmount:  req.PriceAmount,
		Currency:     req.Currency,
		Active:       boolOr(req.Active, true),
		ShowInMenu:   boolOr(req.ShowInMenu, true),
		OrderIndex:   req.OrderIndex,
	}
	if err := pc.products.Create(ctx, p); err != nil {
		log.Errorf("[Product] Create for %s failed: %v", r.ID, err)
		return errorResponse(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to save product")
	}

	pc.afterChange(ctx, r, p.Active)
	return c.Status(fiber.StatusCreated).JSON(p)
}

// HandleUpdate serves PATCH /api/v1/products/:id.
func (pc *ProductController) HandleUpdate(c *fiber.Ctx) error {
	r, ok := currentRestaurant(c)
	if !ok {
		return errorResponse(c, fiber.StatusNotFound, "not_found", "Restaurant not found")
	}
	var upd models.ProductUpdate
	if msg, ok := bindJSON(c, &upd); !ok {
		return errorResponse(c, fiber.StatusBadRequest, "validation_failed", msg)
	}
	ctx := c.UserContext()

	p, err := pc.products.GetByID(ctx, r.ID, c.Params("id"))
	if err != nil {
		return pc.lookupError(c, err)
	}
	if upd.ARModelID != nil && *upd.ARModelID != "" {
		if ok, err := pc.ownsModel(ctx, r.ID, *upd.ARModelID); err != nil {
			log.Errorf("[Product] Model lookup for %s failed: %v", r.ID, err)
			return errorResponse(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load model")
		} else if !ok {
			return errorResponse(c, fiber.StatusBadRequest, "invalid_model", "AR model not found")
		}
	}

	upd.Apply(p)
	if err := pc.products.Update(ctx, p); err != nil {
		log.Errorf("[Product] Update of %s failed: %v", p.ID, err)
		return errorResponse(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to save product")
	}

	pc.afterChange(ctx, r, upd.Active != nil)
	return c.JSON(p)
}

// HandleDelete serves DELETE /api/v1/products/:id. Products are deactivated,
// not removed, so billing history stays consistent.
func (pc *ProductController) HandleDelete(c *fiber.Ctx) error {
	r, ok := currentRestaurant(c)
	if !ok {
		return errorResponse(c, fiber.StatusNotFound, "not_found", "Restaurant not found")
	}
	ctx := c.UserContext()
	p, err := pc.products.GetByID(ctx, r.ID, c.Params("id"))
	if err != nil {
		return pc.lookupError(c, err)
	}
	p.Active = false
	if err := pc.products.Update(ctx, p); err != nil {
		log.Errorf("[Product] Deactivation of %s failed: %v", p.ID, err)
		return errorResponse(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to delete product")
	}

	pc.afterChange(ctx, r, true)
	return c.SendStatus(fiber.StatusNoContent)
}

func (pc *ProductController) ownsModel(ctx context.Context, restaurantID, modelID string) (bool, error) {
	_, err := pc.models3d.GetByID(ctx, restaurantID, modelID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// afterChange invalidates the public menu and, when the billable set may
// have changed, schedules a usage recount. Failures are logged only.
func (pc *ProductController) afterChange(ctx context.Context, r *models.Restaurant, recount bool) {
	if pc.cache != nil {
		if err := pc.cache.Delete(ctx, MenuCacheKey(r.Slug)); err != nil {
			log.Warnf("[Product] Menu cache invalidation for %s failed: %v", r.Slug, err)
		}
	}
	if recount && pc.recounter != nil {
		if err := pc.recounter.ScheduleProductRecount(ctx, r.ID); err != nil {
			log.Errorf("[Product] Recount for %s not scheduled: %v", r.ID, err)
		}
	}
}

func (pc *ProductController) lookupError(c *fiber.Ctx, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return errorResponse(c, fiber.StatusNotFound, "not_found", "Product not found")
	}
	log.Errorf("[Product] Lookup failed: %v", err)
	return errorResponse(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load product")
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
