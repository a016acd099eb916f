package models

import "time"

const (
	SettingPrimaryColor   = "primary_color"
	SettingSecondaryColor = "secondary_color"
	SettingBanner         = "banner"
)

type Setting struct {
	Key       string    `gorm:"primaryKey;type:varchar(64)" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
