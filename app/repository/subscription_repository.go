package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/foodar/foodar/app/models"
)

// subscriptionRepository implements the SubscriptionRepository interface
type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new subscription repository instance
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) GetByRestaurantID(ctx context.Context, restaurantID string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).Where("restaurant_id = ?", restaurantID).First(&sub).Error; err != nil {
		return nil, translate(err)
	}
	return &sub, nil
}

// ListUsageBilledRestaurantIDs lists restaurants whose subscription has a
// usage-billed line item and is not terminal.
func (r *subscriptionRepository) ListUsageBilledRestaurantIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("external_subscription_item_id IS NOT NULL AND external_subscription_item_id <> ''").
		Where("status NOT IN ?", []string{models.SubscriptionStatusCancelled, models.SubscriptionStatusExpired}).
		Pluck("restaurant_id", &ids).Error
	return ids, err
}
