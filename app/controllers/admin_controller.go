package controllers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/foodar/foodar/app/models"
	"github.com/foodar/foodar/app/repository"
)

// ApprovalNotifier informs owners about review decisions.
type ApprovalNotifier interface {
	NotifyApproved(ctx context.Context, r *models.Restaurant) error
	NotifyRejected(ctx context.Context, r *models.Restaurant) error
}

// AdminController handles the restaurant review workflow
type AdminController struct {
	restaurants repository.RestaurantRepository
	notifier    ApprovalNotifier
	trialDays   int
	now         func() time.Time
}

// NewAdminController creates a new admin controller with repository dependencies
func NewAdminController(restaurants repository.RestaurantRepository, notifier ApprovalNotifier, trialDays int) *AdminController {
	if trialDays <= 0 {
		trialDays = models.DefaultTrialDays
	}
	return &AdminController{
		restaurants: restaurants,
		notifier:    notifier,
		trialDays:   trialDays,
		now:         time.Now,
	}
}

// HandleList serves GET /api/v1/admin/restaurants?status=pending.
func (ac *AdminController) HandleList(c *fiber.Ctx) error {
	status := strings.TrimSpace(c.Query("status", models.RestaurantStatusPending))
	if status == "all" {
		status = ""
	}
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	list, err := ac.restaurants.ListByStatus(c.UserContext(), status, offset, limit)
	if err != nil {
		return ac.handleError(c, "Failed to list restaurants", err)
	}
	return c.JSON(fiber.Map{"restaurants": list, "offset": offset, "limit": limit})
}

// HandleApprove serves POST /api/v1/admin/restaurants/:id/approve.
func (ac *AdminController) HandleApprove(c *fiber.Ctx) error {
	id := c.Params("id")
	r, err := ac.restaurants.Approve(c.UserContext(), id, ac.now().UTC(), ac.trialDays)
	if err != nil {
		return ac.handleError(c, "Failed to approve restaurant", err)
	}
	log.Infof("[Admin] Restaurant %s approved, trial until %s", r.ID, r.TrialEndsAt.Format(time.RFC3339))

	if err := ac.notifier.NotifyApproved(c.UserContext(), r); err != nil {
		log.Warnf("[Admin] Approval notice for %s not sent: %v", r.ID, err)
	}
	return c.JSON(r)
}

type rejectRequest struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}

// HandleReject serves POST /api/v1/admin/restaurants/:id/reject.
func (ac *AdminController) HandleReject(c *fiber.Ctx) error {
	var req rejectRequest
	if msg, ok := bindJSON(c, &req); !ok {
		return errorResponse(c, fiber.StatusBadRequest, "validation_failed", msg)
	}

	r, err := ac.restaurants.Reject(c.UserContext(), c.Params("id"), strings.TrimSpace(req.Reason))
	if err != nil {
		return ac.handleError(c, "Failed to reject restaurant", err)
	}
	log.Infof("[Admin] Restaurant %s rejected", r.ID)

	if err := ac.notifier.NotifyRejected(c.UserContext(), r); err != nil {
		log.Warnf("[Admin] Rejection notice for %s not sent: %v", r.ID, err)
	}
	return c.JSON(r)
}

func (ac *AdminController) handleError(c *fiber.Ctx, message string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return errorResponse(c, fiber.StatusNotFound, "not_found", "Restaurant not found")
	case errors.Is(err, repository.ErrInvalidState):
		return errorResponse(c, fiber.StatusBadRequest, "invalid_state", "Restaurant is not pending review")
	}
	log.Errorf("[Admin] %s: %v", message, err)
	return errorResponse(c, fiber.StatusInternalServerError, "internal_server_error", message)
}
