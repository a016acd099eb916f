package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RedeemType string

const (
	RedeemTypeUnlimited RedeemType = "unlimited"
	RedeemTypeOnce      RedeemType = "once"
)

// Valid reports whether t is one of the known redeem types.
func (t RedeemType) Valid() bool {
	return t == RedeemTypeUnlimited || t == RedeemTypeOnce
}

// Reward is a catalog entry. IsActive=false is a soft delete; IsSuspended
// hides the reward from the public catalog without deleting it.
type Reward struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `gorm:"type:text;not null" json:"description"`
	HowToRedeem string     `gorm:"type:text;not null" json:"how_to_redeem"`
	Points      int        `gorm:"not null;check:points > 0" json:"points"`
	RedeemType  RedeemType `gorm:"type:varchar(20);not null;default:unlimited" json:"redeem_type"`
	IsActive    bool       `gorm:"not null;index" json:"is_active"`
	IsSuspended bool       `gorm:"not null" json:"is_suspended"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (r *Reward) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.RedeemType == "" {
		r.RedeemType = RedeemTypeUnlimited
	}
	return nil
}
