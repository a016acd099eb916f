package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ContactType string

const (
	ContactTypeIncident   ContactType = "incident"
	ContactTypeSuggestion ContactType = "suggestion"
)

func (t ContactType) Valid() bool {
	return t == ContactTypeIncident || t == ContactTypeSuggestion
}

type ContactMessage struct {
	ID        uuid.UUID   `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID    *uuid.UUID  `gorm:"type:uuid;index" json:"user_id"`
	Subject   string      `gorm:"not null" json:"subject"`
	Type      ContactType `gorm:"type:varchar(20);not null" json:"type"`
	Message   string      `gorm:"type:text;not null" json:"message"`
	CreatedAt time.Time   `json:"created_at"`
}

func (m *ContactMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
