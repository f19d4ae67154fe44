package billing

import (
	"errors"
	"strconv"
	"strings"

	"github.com/foodar/foodar/internal/pkg/env"
)

const (
	DefaultPerProductPrice = 300
	DefaultSetupFee        = 4999
	DefaultGracePeriodDays = 3

	defaultLemonSqueezyAPIBaseURL = "https://api.lemonsqueezy.com/v1"
)

// Config holds pricing and payment-provider settings. Amounts are minor
// currency units.
type Config struct {
	PerProductPrice int
	SetupFee        int
	GracePeriodDays int

	WebhookSecret string
	APIKey        string
	StoreID       string
	VariantID     string
	APIBaseURL    string
	TestMode      bool
}

// DefaultConfig returns the pricing defaults with no provider credentials.
func DefaultConfig() Config {
	return Config{
		PerProductPrice: DefaultPerProductPrice,
		SetupFee:        DefaultSetupFee,
		GracePeriodDays: DefaultGracePeriodDays,
		APIBaseURL:      defaultLemonSqueezyAPIBaseURL,
	}
}

// LoadConfig loads billing configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	var err error
	if cfg.PerProductPrice, err = intFromEnv("BILLING_PER_PRODUCT_PRICE", cfg.PerProductPrice); err != nil {
		return nil, err
	}
	if cfg.SetupFee, err = intFromEnv("BILLING_SETUP_FEE", cfg.SetupFee); err != nil {
		return nil, err
	}
	if cfg.GracePeriodDays, err = intFromEnv("BILLING_GRACE_PERIOD_DAYS", cfg.GracePeriodDays); err != nil {
		return nil, err
	}

	cfg.WebhookSecret = strings.TrimSpace(env.GetEnv("LEMON_SQUEEZY_WEBHOOK_SECRET", ""))
	cfg.APIKey = strings.TrimSpace(env.GetEnv("LEMON_SQUEEZY_API_KEY", ""))
	cfg.StoreID = strings.TrimSpace(env.GetEnv("LEMON_SQUEEZY_STORE_ID", ""))
	cfg.VariantID = strings.TrimSpace(env.GetEnv("LEMON_SQUEEZY_VARIANT_ID", ""))
	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(env.GetEnv("LEMON_SQUEEZY_API_BASE_URL", defaultLemonSqueezyAPIBaseURL)), "/")
	cfg.TestMode = env.IsDev()

	if cfg.WebhookSecret == "" && !env.IsDev() {
		return nil, errors.New("LEMON_SQUEEZY_WEBHOOK_SECRET is required outside dev")
	}
	return &cfg, nil
}

func intFromEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(env.GetEnv(key, ""))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.New(key + " must be a non-negative integer")
	}
	return v, nil
}
