package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"taskmarket.com/engagement/internal/constants"
)

// Payment is the escrow record of a booking.
type Payment struct {
	ID             string                  `gorm:"primaryKey;size:36" json:"id"`
	BookingID      string                  `gorm:"size:36;not null;uniqueIndex" json:"booking_id"`
	PayerID        string                  `gorm:"size:64;not null" json:"payer_id"`
	PayeeID        string                  `gorm:"size:64;not null" json:"payee_id"`
	Amount         decimal.Decimal         `gorm:"type:numeric;not null" json:"amount"`
	Status         constants.PaymentStatus `gorm:"type:varchar(20);not null" json:"status"`
	FeeAmount      decimal.Decimal         `gorm:"type:numeric;not null;default:0" json:"fee_amount"`
	PayoutAmount   decimal.Decimal         `gorm:"type:numeric;not null;default:0" json:"payout_amount"`
	RefundedAmount decimal.Decimal         `gorm:"type:numeric;not null;default:0" json:"refunded_amount"`
	RefundReason   string                  `json:"refund_reason,omitempty"`
	Version        uint                    `gorm:"not null;default:1" json:"version"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
}

func (p *Payment) AfterFind(tx *gorm.DB) error {
	if !p.Status.Valid() {
		return fmt.Errorf("payment %s: unknown status %q", p.ID, p.Status)
	}
	return nil
}

// LedgerEntry is an append-only movement on an account. Amounts are signed.
type LedgerEntry struct {
	ID        string                    `gorm:"primaryKey;size:36" json:"id"`
	AccountID string                    `gorm:"size:64;not null;index" json:"account_id"`
	BookingID string                    `gorm:"size:36;not null;index" json:"booking_id"`
	EntryType constants.LedgerEntryType `gorm:"type:varchar(20);not null" json:"entry_type"`
	Amount    decimal.Decimal           `gorm:"type:numeric;not null" json:"amount"`
	CreatedAt time.Time                 `json:"created_at"`
}
