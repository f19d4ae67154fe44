package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Internal subscription states. Unknown provider states are stored verbatim.
const (
	SubscriptionStatusInactive  = "inactive"
	SubscriptionStatusActive    = "active"
	SubscriptionStatusPastDue   = "past_due"
	SubscriptionStatusPaused    = "paused"
	SubscriptionStatusCancelled = "cancelled"
	SubscriptionStatusExpired   = "expired"
)

// Subscription is the locally cached billing state of a restaurant (1:1).
// ActiveProductsCount and NextBillAmount are caches reconciled by webhooks and
// product mutations; the payment provider remains the source of truth.
type Subscription struct {
	ID                         string     `gorm:"primaryKey;type:char(36)" json:"id"`
	RestaurantID               string     `gorm:"type:char(36);not null;uniqueIndex" json:"restaurant_id"`
	ExternalSubscriptionID     *string    `gorm:"type:varchar(191);default:null;uniqueIndex" json:"external_subscription_id,omitempty"`
	ExternalSubscriptionItemID *string    `gorm:"type:varchar(191);default:null;index" json:"external_subscription_item_id,omitempty"`
	Status                     string     `gorm:"type:varchar(50);not null;default:'inactive';index" json:"status"`
	ActiveProductsCount        int        `gorm:"not null;default:0" json:"active_products_count"`
	LastBilledAt               *time.Time `gorm:"type:timestamp;default:null" json:"last_billed_at,omitempty"`
	NextBillAmount             int        `gorm:"not null;default:0" json:"next_bill_amount"`
	SetupFeeCharged            bool       `gorm:"not null;default:false" json:"setup_fee_charged"`
	GraceEndAt                 *time.Time `gorm:"type:timestamp;default:null" json:"grace_end_at,omitempty"`
	WarningCount               int        `gorm:"not null;default:0" json:"warning_count"`
	CreatedAt                  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

// NewInactiveSubscription returns the initial row created on approval or on
// the first webhook for a restaurant without one.
func NewInactiveSubscription(restaurantID string) *Subscription {
	return &Subscription{
		RestaurantID: restaurantID,
		Status:       SubscriptionStatusInactive,
	}
}

func (s *Subscription) IsActive() bool {
	return s != nil && s.Status == SubscriptionStatusActive
}

// HasSubscribed reports whether the provider ever confirmed a subscription.
func (s *Subscription) HasSubscribed() bool {
	return s.ExternalSubscriptionID != nil && *s.ExternalSubscriptionID != ""
}

// UsageItemID returns the usage-billed line item id, or "" when unknown.
func (s *Subscription) UsageItemID() string {
	if s == nil || s.ExternalSubscriptionItemID == nil {
		return ""
	}
	return *s.ExternalSubscriptionItemID
}
