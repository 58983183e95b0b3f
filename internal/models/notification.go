package model

import (
	"time"

	"taskmarket.com/engagement/internal/constants"
)

type Notification struct {
	ID        string                         `gorm:"primaryKey;size:36" json:"id"`
	UserID    string                         `gorm:"size:64;not null;index" json:"user_id"`
	Title     string                         `gorm:"not null" json:"title"`
	Message   string                         `json:"message"`
	Category  constants.NotificationCategory `gorm:"type:varchar(20);not null" json:"category"`
	DeepLink  string                         `json:"deep_link,omitempty"`
	Status    constants.NotificationStatus   `gorm:"type:varchar(20);not null;index" json:"status"`
	Attempts  int                            `gorm:"not null;default:0" json:"-"`
	ReadAt    *time.Time                     `json:"read_at,omitempty"`
	CreatedAt time.Time                      `json:"created_at"`
}
