package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/foodar/foodar/app/models"
)

// productRepository implements the ProductRepository interface
type productRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a new product repository instance
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *productRepository) GetByID(ctx context.Context, restaurantID, id string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Where("id = ? AND restaurant_id = ?", id, restaurantID).First(&product).Error
	if err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (r *productRepository) ListByRestaurant(ctx context.Context, restaurantID string) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ?", restaurantID).
		Order("order_index ASC, created_at ASC").
		Find(&products).Error
	return products, err
}

func (r *productRepository) ListMenu(ctx context.Context, restaurantID string) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ? AND active = ? AND show_in_menu = ?", restaurantID, true, true).
		Order("order_index ASC, created_at ASC").
		Find(&products).Error
	return products, err
}

func (r *productRepository) Update(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

func (r *productRepository) CountActive(ctx context.Context, restaurantID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("restaurant_id = ? AND active = ?", restaurantID, true).
		Count(&count).Error
	return count, err
}
