package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/foodar/foodar/app/models"
)

// model3DRepository implements the Model3DRepository interface
type model3DRepository struct {
	db *gorm.DB
}

// NewModel3DRepository creates a new 3D model repository instance
func NewModel3DRepository(db *gorm.DB) Model3DRepository {
	return &model3DRepository{db: db}
}

func (r *model3DRepository) Create(ctx context.Context, model *models.Model3D) error {
	return r.db.WithContext(ctx).Create(model).Error
}

func (r *model3DRepository) GetByID(ctx context.Context, restaurantID, id string) (*models.Model3D, error) {
	var model models.Model3D
	err := r.db.WithContext(ctx).Where("id = ? AND restaurant_id = ?", id, restaurantID).First(&model).Error
	if err != nil {
		return nil, translate(err)
	}
	return &model, nil
}

func (r *model3DRepository) ListByRestaurant(ctx context.Context, restaurantID string) ([]models.Model3D, error) {
	var list []models.Model3D
	err := r.db.WithContext(ctx).Where("restaurant_id = ?", restaurantID).Order("created_at DESC").Find(&list).Error
	return list, err
}

func (r *model3DRepository) GetByIDs(ctx context.Context, ids []string) ([]models.Model3D, error) {
	var list []models.Model3D
	if len(ids) == 0 {
		return list, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error
	return list, err
}
