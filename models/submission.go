package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SubmissionStatus string

const (
	SubmissionStatusPending  SubmissionStatus = "pending"
	SubmissionStatusApproved SubmissionStatus = "approved"
	SubmissionStatusRejected SubmissionStatus = "rejected"
)

// Submission is one redemption attempt. FilePath keeps the evidence object
// reference even after the object itself has been deleted.
type Submission struct {
	ID              uuid.UUID        `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID          uuid.UUID        `gorm:"type:uuid;not null;index" json:"user_id"`
	User            User             `gorm:"foreignKey:UserID" json:"-"`
	RewardID        uuid.UUID        `gorm:"type:uuid;not null;index" json:"reward_id"`
	Reward          Reward           `gorm:"foreignKey:RewardID" json:"-"`
	FilePath        string           `gorm:"not null" json:"file_path"`
	Status          SubmissionStatus `gorm:"type:varchar(20);not null;default:pending;index" json:"status"`
	RejectionReason *string          `gorm:"type:text" json:"rejection_reason"`
	ReviewedAt      *time.Time       `gorm:"index" json:"reviewed_at"`
	EvidencePurged  bool             `gorm:"not null" json:"-"`
	CreatedAt       time.Time        `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func (s *Submission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Status == "" {
		s.Status = SubmissionStatusPending
	}
	return nil
}

// AllowedTransitions defines the submission state machine. Approved and
// rejected are terminal.
var AllowedTransitions = map[SubmissionStatus][]SubmissionStatus{
	SubmissionStatusPending:  {SubmissionStatusApproved, SubmissionStatusRejected},
	SubmissionStatusApproved: {},
	SubmissionStatusRejected: {},
}

// IsValidTransition checks if a status transition is allowed.
func IsValidTransition(from, to SubmissionStatus) bool {
	allowed, exists := AllowedTransitions[from]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsResolved reports whether the submission has left the pending state.
func (s *Submission) IsResolved() bool {
	return s.Status == SubmissionStatusApproved || s.Status == SubmissionStatusRejected
}
