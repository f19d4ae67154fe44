package billing

import (
	"strings"

	"github.com/foodar/foodar/app/models"
)

var providerStatusMap = map[string]string{
	"on_trial":  models.SubscriptionStatusActive,
	"active":    models.SubscriptionStatusActive,
	"paused":    models.SubscriptionStatusPaused,
	"past_due":  models.SubscriptionStatusPastDue,
	"unpaid":    models.SubscriptionStatusPastDue,
	"cancelled": models.SubscriptionStatusCancelled,
	"expired":   models.SubscriptionStatusExpired,
}

// MapProviderStatus translates a Lemon Squeezy subscription status into the
// internal vocabulary. Provider trials count as active. Unknown values pass
// through unchanged.
func MapProviderStatus(external string) string {
	if internal, ok := providerStatusMap[external]; ok {
		return internal
	}
	return external
}

func isTerminalStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case models.SubscriptionStatusCancelled, models.SubscriptionStatusExpired:
		return true
	default:
		return false
	}
}
