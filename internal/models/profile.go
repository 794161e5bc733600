package models

import "time"

// Profile holds the public-facing details of a user
type Profile struct {
	ID          string    `gorm:"type:varchar(36);primarykey" json:"id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Email       string    `gorm:"type:varchar(255);not null" json:"email"`
	AvatarURL   *string   `gorm:"type:text" json:"avatar_url"`
	Phone       *string   `gorm:"type:varchar(32)" json:"phone"`
	CountryCode *string   `gorm:"type:varchar(8)" json:"country_code"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
