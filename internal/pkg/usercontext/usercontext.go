package usercontext

import (
	"github.com/gofiber/fiber/v2"

	"github.com/foodar/foodar/app/models"
)

// UserContext represents the authenticated caller of a request
type UserContext struct {
	UserID      string `json:"user_id"`
	ClerkUserID string `json:"clerk_user_id"`
	Email       string `json:"email"`
	IsLoggedIn  bool   `json:"is_logged_in"`
	IsAdmin     bool   `json:"is_admin"`
}

// FromUser builds the context of a logged-in user.
func FromUser(u *models.User) UserContext {
	return UserContext{
		UserID:      u.ID,
		ClerkUserID: u.ClerkUserID,
		Email:       u.Email,
		IsLoggedIn:  true,
		IsAdmin:     u.IsAdmin(),
	}
}

func SetUserContext(c *fiber.Ctx, uc UserContext) {
	c.Locals(KeyUserContext, uc)
}

// GetUserContext retrieves the user context from fiber context
// Returns a default anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if uc, ok := c.Locals(KeyUserContext).(UserContext); ok {
		return uc
	}
	return UserContext{}
}

// IsLoggedIn checks if the current user is logged in
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

// IsAdmin checks if the current user is an admin
func IsAdmin(c *fiber.Ctx) bool {
	return GetUserContext(c).IsAdmin
}

// GetUserID returns the current user's ID, or "" if not logged in
func GetUserID(c *fiber.Ctx) string {
	return GetUserContext(c).UserID
}

func SetRestaurant(c *fiber.Ctx, r *models.Restaurant) {
	c.Locals(KeyRestaurant, r)
}

// GetRestaurant returns the restaurant resolved by middleware, or nil.
func GetRestaurant(c *fiber.Ctx) *models.Restaurant {
	r, _ := c.Locals(KeyRestaurant).(*models.Restaurant)
	return r
}

func SetSubscription(c *fiber.Ctx, s *models.Subscription) {
	c.Locals(KeySubscription, s)
}

func GetSubscription(c *fiber.Ctx) *models.Subscription {
	s, _ := c.Locals(KeySubscription).(*models.Subscription)
	return s
}
