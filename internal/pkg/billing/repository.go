package billing

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/foodar/foodar/app/models"
	"github.com/foodar/foodar/internal/pkg/ledger"
)

// Repository provides DB operations used by the billing service.
type Repository interface {
	FindRestaurant(ctx context.Context, id string) (*models.Restaurant, error)
	FindSubscription(ctx context.Context, restaurantID string) (*models.Subscription, error)
	Transaction(ctx context.Context, fn func(tx TxRepository) error) error
}

// TxRepository is the set of operations available inside one transaction.
type TxRepository interface {
	LockWebhookEvent(id string) (*models.WebhookEvent, error)
	MarkWebhookProcessed(id, processingError string, at time.Time) error
	// LockOrCreateSubscription locks the restaurant row, then returns the
	// restaurant's subscription locked for update, creating an inactive one
	// when none exists.
	LockOrCreateSubscription(restaurantID string) (*models.Subscription, error)
	// LockSubscription returns nil without error when the restaurant has no
	// subscription.
	LockSubscription(restaurantID string) (*models.Subscription, error)
	CountActiveProducts(restaurantID string) (int, error)
	SaveSubscription(sub *models.Subscription) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) FindRestaurant(ctx context.Context, id string) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	err := r.db.WithContext(ctx).Preload("Owner").Where("id = ?", id).First(&restaurant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRestaurantNotFound
	}
	if err != nil {
		return nil, err
	}
	return &restaurant, nil
}

func (r *gormRepository) FindSubscription(ctx context.Context, restaurantID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).Where("restaurant_id = ?", restaurantID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) Transaction(ctx context.Context, fn func(tx TxRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTxRepository{tx: tx, ctx: ctx, events: ledger.NewRepository(tx)})
	})
}

type gormTxRepository struct {
	tx     *gorm.DB
	ctx    context.Context
	events ledger.Repository
}

func (r *gormTxRepository) LockWebhookEvent(id string) (*models.WebhookEvent, error) {
	return r.events.Lock(r.ctx, id)
}

func (r *gormTxRepository) MarkWebhookProcessed(id, processingError string, at time.Time) error {
	return r.events.MarkProcessed(r.ctx, id, processingError, at)
}

func (r *gormTxRepository) LockOrCreateSubscription(restaurantID string) (*models.Subscription, error) {
	var restaurant models.Restaurant
	if err := r.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ?", restaurantID).
		First(&restaurant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRestaurantNotFound
		}
		return nil, err
	}

	sub, err := r.LockSubscription(restaurantID)
	if err != nil || sub != nil {
		return sub, err
	}

	sub = models.NewInactiveSubscription(restaurantID)
	if err := r.tx.Create(sub).Error; err != nil {
		return nil, err
	}
	return sub, nil
}

func (r *gormTxRepository) LockSubscription(restaurantID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("restaurant_id = ?", restaurantID).
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormTxRepository) CountActiveProducts(restaurantID string) (int, error) {
	var count int64
	err := r.tx.Model(&models.Product{}).
		Where("restaurant_id = ? AND active = ?", restaurantID, true).
		Count(&count).Error
	return int(count), err
}

func (r *gormTxRepository) SaveSubscription(sub *models.Subscription) error {
	return r.tx.Save(sub).Error
}
