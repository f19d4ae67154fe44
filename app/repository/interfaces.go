package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/foodar/foodar/app/models"
)

var (
	// ErrNotFound is returned instead of gorm.ErrRecordNotFound.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidState is returned when a workflow step does not apply to the
	// record's current status.
	ErrInvalidState = errors.New("invalid state for this operation")
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByClerkID(ctx context.Context, clerkUserID string) (*models.User, error)
	UpsertByClerkID(ctx context.Context, user *models.User) error
	DeleteByClerkID(ctx context.Context, clerkUserID string) error
}

// RestaurantRepository defines the interface for restaurant operations
type RestaurantRepository interface {
	Create(ctx context.Context, restaurant *models.Restaurant) error
	GetByID(ctx context.Context, id string) (*models.Restaurant, error)
	GetByOwnerID(ctx context.Context, ownerID string) (*models.Restaurant, error)
	GetBySlug(ctx context.Context, slug string) (*models.Restaurant, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	Update(ctx context.Context, restaurant *models.Restaurant) error
	ListByStatus(ctx context.Context, status string, offset, limit int) ([]models.Restaurant, error)
	// Approve opens the trial and creates the inactive subscription in one
	// transaction. Only pending restaurants can be approved.
	Approve(ctx context.Context, id string, now time.Time, trialDays int) (*models.Restaurant, error)
	// Reject records the reason. Only pending restaurants can be rejected.
	Reject(ctx context.Context, id, reason string) (*models.Restaurant, error)
	// AddMenuViews applies buffered public menu view counts.
	AddMenuViews(ctx context.Context, increments map[string]int64) error
}

// ProductRepository defines the interface for product operations
type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, restaurantID, id string) (*models.Product, error)
	ListByRestaurant(ctx context.Context, restaurantID string) ([]models.Product, error)
	// ListMenu returns the active products shown in the public menu.
	ListMenu(ctx context.Context, restaurantID string) ([]models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	CountActive(ctx context.Context, restaurantID string) (int64, error)
}

// Model3DRepository defines the interface for uploaded AR model operations
type Model3DRepository interface {
	Create(ctx context.Context, model *models.Model3D) error
	GetByID(ctx context.Context, restaurantID, id string) (*models.Model3D, error)
	ListByRestaurant(ctx context.Context, restaurantID string) ([]models.Model3D, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.Model3D, error)
}

// SubscriptionRepository defines read access to subscriptions outside the
// billing transaction.
type SubscriptionRepository interface {
	GetByRestaurantID(ctx context.Context, restaurantID string) (*models.Subscription, error)
	ListUsageBilledRestaurantIDs(ctx context.Context) ([]string, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User         UserRepository
	Restaurant   RestaurantRepository
	Product      ProductRepository
	Model3D      Model3DRepository
	Subscription SubscriptionRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Restaurant:   NewRestaurantRepository(db),
		Product:      NewProductRepository(db),
		Model3D:      NewModel3DRepository(db),
		Subscription: NewSubscriptionRepository(db),
	}
}

// translate maps GORM's not-found error to ErrNotFound.
func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
