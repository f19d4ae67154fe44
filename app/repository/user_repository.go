package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/foodar/foodar/app/models"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userRepository) GetByClerkID(ctx context.Context, clerkUserID string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("clerk_user_id = ?", clerkUserID).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// UpsertByClerkID relies on the unique clerk_user_id index so concurrent
// deliveries of the same event cannot create two rows. Empty email or name
// never overwrite stored values.
func (r *userRepository) UpsertByClerkID(ctx context.Context, user *models.User) error {
	if err := user.Validate(); err != nil {
		return err
	}
	updates := map[string]interface{}{"role": user.Role, "updated_at": gorm.Expr("CURRENT_TIMESTAMP")}
	if user.Email != "" {
		updates["email"] = user.Email
	}
	if user.FullName != "" {
		updates["full_name"] = user.FullName
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "clerk_user_id"}},
		DoUpdates: clause.Assignments(updates),
	}).Create(user).Error
}

// DeleteByClerkID removes the user; restaurants cascade through the foreign
// key.
func (r *userRepository) DeleteByClerkID(ctx context.Context, clerkUserID string) error {
	return r.db.WithContext(ctx).Where("clerk_user_id = ?", clerkUserID).Delete(&models.User{}).Error
}
