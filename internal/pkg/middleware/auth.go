package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/foodar/foodar/app/models"
	"github.com/foodar/foodar/app/repository"
	"github.com/foodar/foodar/internal/pkg/identity"
	"github.com/foodar/foodar/internal/pkg/usercontext"
)

// TokenVerifier validates session tokens.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*identity.Claims, error)
}

// UserLookup resolves the local user of a verified token.
type UserLookup interface {
	GetByClerkID(ctx context.Context, clerkUserID string) (*models.User, error)
}

// RequireAuth verifies the bearer token and loads the mirrored user. Users
// that the identity webhook has not synced yet are rejected.
func RequireAuth(verifier TokenVerifier, users UserLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractBearerToken(c)
		if token == "" {
			return unauthorized(c, "Missing bearer token")
		}

		claims, err := verifier.Verify(c.UserContext(), token)
		if err != nil {
			log.Debugf("[Auth] Token rejected: %v", err)
			return unauthorized(c, "Invalid token")
		}

		user, err := users.GetByClerkID(c.UserContext(), claims.Subject)
		if errors.Is(err, repository.ErrNotFound) {
			return unauthorized(c, "User not found")
		}
		if err != nil {
			log.Errorf("[Auth] User lookup for %s failed: %v", claims.Subject, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "User lookup failed"})
		}

		usercontext.SetUserContext(c, usercontext.FromUser(user))
		return c.Next()
	}
}

// RequireAdmin ensures an authenticated admin.
func RequireAdmin(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	if !uc.IsLoggedIn {
		return unauthorized(c, "login required")
	}
	if !uc.IsAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Admin access required"})
	}
	return c.Next()
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": message})
}

func extractBearerToken(c *fiber.Ctx) string {
	auth := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
