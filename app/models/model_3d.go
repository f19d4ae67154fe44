package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const StorageProviderS3 = "s3"

// Model3D is an uploaded AR asset (glb/gltf/usdz) that products can reference.
type Model3D struct {
	ID              string    `gorm:"primaryKey;type:char(36)" json:"id"`
	RestaurantID    string    `gorm:"type:char(36);not null;index" json:"restaurant_id"`
	Name            string    `gorm:"type:varchar(255);not null" json:"name"`
	FileKey         string    `gorm:"type:varchar(512);not null" json:"file_key"`
	FileURL         string    `gorm:"type:varchar(1024);not null" json:"file_url"`
	ContentType     string    `gorm:"type:varchar(100)" json:"content_type"`
	FileSize        int64     `gorm:"not null;default:0" json:"file_size"`
	StorageProvider string    `gorm:"type:varchar(20);not null;default:'s3'" json:"storage_provider"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Model3D) TableName() string {
	return "models_3d"
}

func (m *Model3D) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}
