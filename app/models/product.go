package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const DefaultCurrency = "PKR"

// Product is a menu item. Only products with Active=true are billable,
// independent of ShowInMenu.
type Product struct {
	ID           string    `gorm:"primaryKey;type:char(36)" json:"id"`
	RestaurantID string    `gorm:"type:char(36);not null;index:idx_products_restaurant_active,priority:1" json:"restaurant_id"`
	ARModelID    *string   `gorm:"type:char(36);default:null;index" json:"ar_model_id,omitempty"`
	Title        string    `gorm:"type:varchar(255);not null" json:"title"`
	Subtitle     string    `gorm:"type:varchar(255);default:null" json:"subtitle,omitempty"`
	Description  string    `gorm:"type:text" json:"description,omitempty"`
	PriceAmount  int       `gorm:"not null" json:"price_amount"`
	Currency     string    `gorm:"type:varchar(3);not null;default:'PKR'" json:"currency"`
	Active       bool      `gorm:"not null;default:true;index:idx_products_restaurant_active,priority:2" json:"active"`
	ShowInMenu   bool      `gorm:"not null;default:true;index" json:"show_in_menu"`
	OrderIndex   int       `gorm:"not null;default:0;index" json:"order_index"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Currency == "" {
		p.Currency = DefaultCurrency
	}
	return nil
}

// ProductUpdate is a typed partial update. Nil fields are left untouched.
type ProductUpdate struct {
	ARModelID   *string `json:"ar_model_id" validate:"omitempty,uuid"`
	Title       *string `json:"title" validate:"omitempty,min=1,max=255"`
	Subtitle    *string `json:"subtitle" validate:"omitempty,max=255"`
	Description *string `json:"description"`
	PriceAmount *int    `json:"price_amount" validate:"omitempty,min=0"`
	Currency    *string `json:"currency" validate:"omitempty,len=3"`
	Active      *bool   `json:"active"`
	ShowInMenu  *bool   `json:"show_in_menu"`
	OrderIndex  *int    `json:"order_index" validate:"omitempty,min=0"`
}

// Apply merges the update into p field by field and reports whether the
// billable flag changed.
func (u ProductUpdate) Apply(p *Product) (activeChanged bool) {
	if u.ARModelID != nil {
		if *u.ARModelID == "" {
			p.ARModelID = nil
		} else {
			id := *u.ARModelID
			p.ARModelID = &id
		}
	}
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.Subtitle != nil {
		p.Subtitle = *u.Subtitle
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.PriceAmount != nil {
		p.PriceAmount = *u.PriceAmount
	}
	if u.Currency != nil {
		p.Currency = *u.Currency
	}
	if u.Active != nil && *u.Active != p.Active {
		p.Active = *u.Active
		activeChanged = true
	}
	if u.ShowInMenu != nil {
		p.ShowInMenu = *u.ShowInMenu
	}
	if u.OrderIndex != nil {
		p.OrderIndex = *u.OrderIndex
	}
	return activeChanged
}
