package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/foodar/foodar/app/models"
	"github.com/foodar/foodar/internal/pkg/metrics/counter"
)

// restaurantRepository implements the RestaurantRepository interface
type restaurantRepository struct {
	db *gorm.DB
}

// NewRestaurantRepository creates a new restaurant repository instance
func NewRestaurantRepository(db *gorm.DB) RestaurantRepository {
	return &restaurantRepository{db: db}
}

func (r *restaurantRepository) Create(ctx context.Context, restaurant *models.Restaurant) error {
	return r.db.WithContext(ctx).Create(restaurant).Error
}

func (r *restaurantRepository) GetByID(ctx context.Context, id string) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	if err := r.db.WithContext(ctx).Preload("Owner").Where("id = ?", id).First(&restaurant).Error; err != nil {
		return nil, translate(err)
	}
	return &restaurant, nil
}

func (r *restaurantRepository) GetByOwnerID(ctx context.Context, ownerID string) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Where("owner_id = ?", ownerID).
		Order("created_at ASC").
		First(&restaurant).Error
	if err != nil {
		return nil, translate(err)
	}
	return &restaurant, nil
}

func (r *restaurantRepository) GetBySlug(ctx context.Context, slug string) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&restaurant).Error; err != nil {
		return nil, translate(err)
	}
	return &restaurant, nil
}

func (r *restaurantRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Restaurant{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

func (r *restaurantRepository) Update(ctx context.Context, restaurant *models.Restaurant) error {
	return r.db.WithContext(ctx).Omit("Owner", "Subscription").Save(restaurant).Error
}

func (r *restaurantRepository) ListByStatus(ctx context.Context, status string, offset, limit int) ([]models.Restaurant, error) {
	var restaurants []models.Restaurant
	q := r.db.WithContext(ctx).Preload("Owner").Order("created_at ASC").Offset(offset).Limit(limit)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Find(&restaurants).Error
	return restaurants, err
}

func (r *restaurantRepository) Approve(ctx context.Context, id string, now time.Time, trialDays int) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&restaurant).Error; err != nil {
			return translate(err)
		}
		if restaurant.Status != models.RestaurantStatusPending {
			return ErrInvalidState
		}

		restaurant.Approve(now, trialDays)
		if err := tx.Save(&restaurant).Error; err != nil {
			return err
		}

		var existing int64
		if err := tx.Model(&models.Subscription{}).Where("restaurant_id = ?", id).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return nil
		}
		return tx.Create(models.NewInactiveSubscription(id)).Error
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *restaurantRepository) Reject(ctx context.Context, id, reason string) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&restaurant).Error; err != nil {
			return translate(err)
		}
		if restaurant.Status != models.RestaurantStatusPending {
			return ErrInvalidState
		}
		restaurant.Reject(reason)
		return tx.Save(&restaurant).Error
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *restaurantRepository) AddMenuViews(ctx context.Context, increments map[string]int64) error {
	if len(increments) == 0 {
		return nil
	}
	sql, args := counter.BatchIncrementSQL("restaurants", "menu_views", increments)
	return r.db.WithContext(ctx).Exec(sql, args...).Error
}
