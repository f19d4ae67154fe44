package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Onboarding states of a restaurant.
const (
	RestaurantStatusPending   = "pending"
	RestaurantStatusApproved  = "approved"
	RestaurantStatusRejected  = "rejected"
	RestaurantStatusSuspended = "suspended"
)

// DefaultTrialDays is the internal trial granted on approval.
const DefaultTrialDays = 7

type Restaurant struct {
	ID              string        `gorm:"primaryKey;type:char(36)" json:"id"`
	OwnerID         string        `gorm:"type:char(36);not null;index" json:"owner_id"`
	Owner           *User         `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"-"`
	Name            string        `gorm:"type:varchar(255);not null" json:"name"`
	Slug            string        `gorm:"type:varchar(100);not null;uniqueIndex" json:"slug"`
	CustomDomain    *string       `gorm:"type:varchar(255);default:null" json:"custom_domain,omitempty"`
	Status          string        `gorm:"type:varchar(50);not null;default:'pending';index" json:"status"`
	RejectionReason string        `gorm:"type:text" json:"rejection_reason,omitempty"`
	TrialStartsAt   *time.Time    `gorm:"type:timestamp;default:null" json:"trial_starts_at,omitempty"`
	TrialEndsAt     *time.Time    `gorm:"type:timestamp;default:null" json:"trial_ends_at,omitempty"`
	ApprovedAt      *time.Time    `gorm:"type:timestamp;default:null" json:"approved_at,omitempty"`
	MenuViews       int64         `gorm:"not null;default:0" json:"menu_views"`
	Subscription    *Subscription `gorm:"foreignKey:RestaurantID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt       time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

func (r *Restaurant) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

func (r *Restaurant) IsApproved() bool {
	return r.Status == RestaurantStatusApproved
}

// IsTrialActive reports whether now lies inside the internally tracked trial
// window. Both bounds are inclusive.
func (r *Restaurant) IsTrialActive(now time.Time) bool {
	if r.TrialStartsAt == nil || r.TrialEndsAt == nil {
		return false
	}
	return !now.Before(*r.TrialStartsAt) && !now.After(*r.TrialEndsAt)
}

// Approve moves a pending restaurant to approved and opens the trial window.
func (r *Restaurant) Approve(now time.Time, trialDays int) {
	trialEnd := now.AddDate(0, 0, trialDays)
	r.Status = RestaurantStatusApproved
	r.ApprovedAt = &now
	r.TrialStartsAt = &now
	r.TrialEndsAt = &trialEnd
	r.RejectionReason = ""
}

func (r *Restaurant) Reject(reason string) {
	r.Status = RestaurantStatusRejected
	r.RejectionReason = reason
}
