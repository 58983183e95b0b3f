package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"taskmarket.com/engagement/internal/constants"
)

type Bid struct {
	ID             string              `gorm:"primaryKey;size:36" json:"id"`
	TaskID         string              `gorm:"size:36;not null;uniqueIndex:idx_bid_task_bidder" json:"task_id"`
	BidderID       string              `gorm:"size:64;not null;uniqueIndex:idx_bid_task_bidder" json:"bidder_id"`
	Amount         decimal.Decimal     `gorm:"type:numeric;not null" json:"amount"`
	Message        string              `gorm:"size:1000" json:"message,omitempty"`
	EstimatedHours *float64            `json:"estimated_hours,omitempty"`
	Status         constants.BidStatus `gorm:"type:varchar(20);not null" json:"status"`
	Version        uint                `gorm:"not null;default:1" json:"version"`
	CreatedAt      time.Time           `json:"created_at"`
}

func (b *Bid) AfterFind(tx *gorm.DB) error {
	if !b.Status.Valid() {
		return fmt.Errorf("bid %s: unknown status %q", b.ID, b.Status)
	}
	return nil
}
