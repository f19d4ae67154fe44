package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/storage/redis"

	"github.com/foodar/foodar/internal/pkg/env"
)

// RateLimits are requests per minute per client IP.
type RateLimits struct {
	Protected int
	Public    int
}

func DefaultRateLimits() RateLimits {
	return RateLimits{Protected: 100, Public: 1000}
}

func LoadRateLimits() RateLimits {
	def := DefaultRateLimits()
	return RateLimits{
		Protected: env.GetEnvInt("RATE_LIMIT_PROTECTED", def.Protected),
		Public:    env.GetEnvInt("RATE_LIMIT_PUBLIC", def.Public),
	}
}

// NewLimiterStorage keeps limiter counters in Redis so all instances share
// them. Database 2 is reserved for it; the cache and queue use 0.
func NewLimiterStorage() fiber.Storage {
	storage := redis.New(redis.Config{
		Host:     env.GetEnv("CACHE_HOST", "localhost"),
		Port:     env.GetEnvInt("CACHE_PORT", 6379),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		Database: 2,
		Reset:    false,
	})
	log.Info("[Router] Rate limiter storage: redis db 2")
	return storage
}

func newLimiter(storage fiber.Storage, max int, scope string) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: time.Minute,
		Storage:    storage,
		KeyGenerator: func(c *fiber.Ctx) string {
			return scope + ":" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "rate_limited",
				"message": "Too many requests",
			})
		},
	})
}
