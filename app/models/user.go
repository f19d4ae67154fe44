package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ROLE_RESTAURANT_OWNER = "restaurant_owner"
	ROLE_ADMIN            = "admin"
)

// User mirrors an identity-provider account. Rows are created and updated by
// identity webhooks, keyed by ClerkUserID.
type User struct {
	ID          string    `gorm:"primaryKey;type:char(36)" json:"id"`
	ClerkUserID string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"clerk_user_id" validate:"required"`
	Email       string    `gorm:"type:varchar(200);default:null" json:"email" validate:"omitempty,email,max=200"`
	FullName    string    `gorm:"type:varchar(255);default:null" json:"full_name" validate:"max=255"`
	Role        string    `gorm:"type:varchar(50);not null;default:'restaurant_owner'" json:"role" validate:"oneof=restaurant_owner admin"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

func (u *User) IsAdmin() bool {
	return u.Role == ROLE_ADMIN
}

// NormalizeRole maps an identity-provider role claim to a known role.
// Anything unknown falls back to restaurant owner.
func NormalizeRole(role string) string {
	if role == ROLE_ADMIN {
		return ROLE_ADMIN
	}
	return ROLE_RESTAURANT_OWNER
}
