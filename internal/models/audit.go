package model

import (
	"time"

	"gorm.io/datatypes"

	"taskmarket.com/engagement/internal/constants"
)

type AuditEvent struct {
	ID            string                   `gorm:"primaryKey;size:36" json:"id"`
	BookingID     string                   `gorm:"size:36;index" json:"booking_id"`
	TaskID        string                   `gorm:"size:36;index" json:"task_id"`
	UserID        string                   `gorm:"size:64" json:"user_id"`
	EventType     constants.AuditEventType `gorm:"type:varchar(40);not null" json:"event_type"`
	EventCategory constants.AuditCategory  `gorm:"type:varchar(20);not null" json:"event_category"`
	Payload       datatypes.JSON           `json:"payload,omitempty"`
	CreatedAt     time.Time                `json:"created_at"`
}
