package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"taskmarket.com/engagement/internal/constants"
)

// Booking is an engagement between a task owner and a worker. It is created
// either by accepting a bid or by a direct hire request.
type Booking struct {
	ID             string                   `gorm:"primaryKey;size:36" json:"id"`
	TaskID         string                   `gorm:"size:36;not null;index" json:"task_id"`
	OwnerID        string                   `gorm:"size:64;not null" json:"owner_id"`
	WorkerID       string                   `gorm:"size:64;not null;index" json:"worker_id"`
	BidID          *string                  `gorm:"size:36" json:"bid_id,omitempty"`
	Amount         decimal.Decimal          `gorm:"type:numeric;not null" json:"amount"`
	Message        string                   `json:"message,omitempty"`
	Status         constants.BookingStatus  `gorm:"type:varchar(20);not null;index" json:"status"`
	WorkerDecision constants.WorkerDecision `gorm:"type:varchar(20);not null" json:"worker_decision"`
	DeclineReason  string                   `json:"decline_reason,omitempty"`
	DecidedAt      *time.Time               `json:"decided_at,omitempty"`
	ScheduledAt    *time.Time               `json:"scheduled_at,omitempty"`
	CompletedAt    *time.Time               `json:"completed_at,omitempty"`
	CancelledAt    *time.Time               `json:"cancelled_at,omitempty"`
	CancelledBy    string                   `gorm:"size:64" json:"cancelled_by,omitempty"`
	Version        uint                     `gorm:"not null;default:1" json:"version"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

// InProgress reports the derived state: accepted with the checklist still open.
func (b *Booking) InProgress() bool {
	return b.Status == constants.BookingStatusAccepted
}

func (b *Booking) AfterFind(tx *gorm.DB) error {
	if !b.Status.Valid() {
		return fmt.Errorf("booking %s: unknown status %q", b.ID, b.Status)
	}
	if !b.WorkerDecision.Valid() {
		return fmt.Errorf("booking %s: unknown worker decision %q", b.ID, b.WorkerDecision)
	}
	return nil
}
