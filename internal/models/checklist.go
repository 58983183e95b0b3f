package model

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"taskmarket.com/engagement/internal/constants"
)

type ChecklistItem struct {
	ID                    string    `gorm:"primaryKey;size:36" json:"id"`
	TaskID                string    `gorm:"size:36;not null;index" json:"task_id"`
	Title                 string    `gorm:"not null" json:"title"`
	Description           string    `json:"description,omitempty"`
	RequiresPhoto         bool      `gorm:"not null;default:false" json:"requires_photo"`
	RequiresGiverApproval bool      `gorm:"not null;default:false" json:"requires_giver_approval"`
	DisplayOrder          int       `gorm:"not null;default:0" json:"display_order"`
	CreatedAt             time.Time `json:"created_at"`
}

// ChecklistCompletion is a worker's fulfillment of one item within one booking.
type ChecklistCompletion struct {
	ID              string                     `gorm:"primaryKey;size:36" json:"id"`
	ChecklistItemID string                     `gorm:"size:36;not null;uniqueIndex:idx_completion_item_booking" json:"checklist_item_id"`
	BookingID       string                     `gorm:"size:36;not null;uniqueIndex:idx_completion_item_booking" json:"booking_id"`
	CompletedBy     string                     `gorm:"size:64;not null" json:"completed_by"`
	PhotoURL        string                     `json:"photo_url,omitempty"`
	Status          constants.CompletionStatus `gorm:"type:varchar(20);not null" json:"status"`
	RejectionReason string                     `json:"rejection_reason,omitempty"`
	ReviewedBy      string                     `gorm:"size:64" json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time                 `json:"reviewed_at,omitempty"`
	Version         uint                       `gorm:"not null;default:1" json:"version"`
	CreatedAt       time.Time                  `json:"created_at"`
}

func (c *ChecklistCompletion) AfterFind(tx *gorm.DB) error {
	if !c.Status.Valid() {
		return fmt.Errorf("completion %s: unknown status %q", c.ID, c.Status)
	}
	return nil
}
