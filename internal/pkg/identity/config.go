package identity

import (
	"errors"
	"strings"
	"time"

	"github.com/foodar/foodar/internal/pkg/env"
)

const (
	DefaultJWKSTTL = time.Hour
	DefaultLeeway  = 30 * time.Second
)

// Config holds the identity provider settings.
type Config struct {
	WebhookSecret string
	Issuer        string
	JWKSURL       string
	JWKSTTL       time.Duration
	Leeway        time.Duration
}

// LoadConfig reads the CLERK_* environment keys. The JWKS URL defaults to
// the issuer's well-known document.
func LoadConfig() (Config, error) {
	cfg := Config{
		WebhookSecret: env.GetEnv("CLERK_WEBHOOK_SECRET", ""),
		Issuer:        strings.TrimRight(env.GetEnv("CLERK_ISSUER", ""), "/"),
		JWKSURL:       env.GetEnv("CLERK_JWKS_URL", ""),
		JWKSTTL:       env.GetEnvDuration("CLERK_JWKS_TTL", DefaultJWKSTTL),
		Leeway:        DefaultLeeway,
	}
	if cfg.JWKSURL == "" && cfg.Issuer != "" {
		cfg.JWKSURL = cfg.Issuer + "/.well-known/jwks.json"
	}
	if env.IsDev() {
		return cfg, nil
	}
	if cfg.WebhookSecret == "" {
		return cfg, errors.New("CLERK_WEBHOOK_SECRET is required")
	}
	if cfg.Issuer == "" {
		return cfg, errors.New("CLERK_ISSUER is required")
	}
	return cfg, nil
}
