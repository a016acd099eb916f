package dtos

import (
	"time"

	"loyalty-backend/models"

	"github.com/google/uuid"
)

// RewardView is a reward personalised for a known user.
type RewardView struct {
	models.Reward
	UserStatus *models.SubmissionStatus `json:"userStatus"`
	CanRedeem  bool                     `json:"canRedeem"`
}

// RankEntry is one leaderboard row. Position is 1-based and derived on read.
type RankEntry struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Name     string    `json:"name"`
	Photo    *string   `json:"photo"`
	Points   int       `json:"points"`
	Position int       `json:"position"`
}

// SubmissionDetail is a submission joined with its reward and, for the
// review queue, its author.
type SubmissionDetail struct {
	ID              uuid.UUID               `json:"id"`
	UserID          uuid.UUID               `json:"user_id"`
	RewardID        uuid.UUID               `json:"reward_id"`
	FilePath        string                  `json:"file_path"`
	Status          models.SubmissionStatus `json:"status"`
	RejectionReason *string                 `json:"rejection_reason"`
	ReviewedAt      *time.Time              `json:"reviewed_at"`
	CreatedAt       time.Time               `json:"created_at"`
	RewardTitle     string                  `json:"reward_title"`
	Points          int                     `json:"points"`
	Username        string                  `json:"username,omitempty"`
	Name            string                  `json:"name,omitempty"`
}

// ContactMessageView is a contact message with its author, if any.
type ContactMessageView struct {
	ID        uuid.UUID          `json:"id"`
	UserID    *uuid.UUID         `json:"user_id"`
	Subject   string             `json:"subject"`
	Type      models.ContactType `json:"type"`
	Message   string             `json:"message"`
	CreatedAt time.Time          `json:"created_at"`
	Username  *string            `json:"username"`
	Name      *string            `json:"name"`
	Email     *string            `json:"email"`
}

type Colors struct {
	PrimaryColor   string `json:"primary_color"`
	SecondaryColor string `json:"secondary_color"`
}

type Banner struct {
	ImagePath *string `json:"image_path"`
	URL       *string `json:"url"`
}
