package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PointsHistory records one settlement. It is an audit trail only: the
// balance lives in users.points and is never recomputed from these rows.
type PointsHistory struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User         User      `gorm:"foreignKey:UserID" json:"-"`
	SubmissionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"submission_id"`
	RewardID     uuid.UUID `gorm:"type:uuid;not null" json:"reward_id"`
	Points       int       `gorm:"not null" json:"points"`
	CreatedAt    time.Time `json:"created_at"`
}

func (h *PointsHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
