package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"taskmarket.com/engagement/internal/constants"
	model "taskmarket.com/engagement/internal/models"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	now := time.Now().UTC()
	payment.ID = uuid.NewString()
	payment.Version = 1
	payment.CreatedAt = now
	payment.UpdatedAt = now

	return translate(r.db.WithContext(ctx).Create(payment).Error)
}

func (r *PaymentRepository) FindByBooking(ctx context.Context, bookingID string) (*model.Payment, error) {
	var payment model.Payment
	if err := r.db.WithContext(ctx).First(&payment, "booking_id = ?", bookingID).Error; err != nil {
		return nil, translate(err)
	}
	return &payment, nil
}

// Settle writes the final amounts of a held payment, guarded by version.
func (r *PaymentRepository) Settle(ctx context.Context, payment *model.Payment) error {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("id = ? AND version = ? AND status = ?", payment.ID, payment.Version, constants.PaymentHeld).
		Updates(map[string]interface{}{
			"status":          payment.Status,
			"fee_amount":      payment.FeeAmount,
			"payout_amount":   payment.PayoutAmount,
			"refunded_amount": payment.RefundedAmount,
			"refund_reason":   payment.RefundReason,
			"updated_at":      now,
			"version":         gorm.Expr("version + 1"),
		})

	if res.Error != nil {
		return translate(res.Error)
	}

	if res.RowsAffected == 0 {
		return ErrOptimisticLock
	}

	payment.Version++
	payment.UpdatedAt = now
	return nil
}

func (r *PaymentRepository) AppendEntry(ctx context.Context, entry *model.LedgerEntry) error {
	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now().UTC()

	return translate(r.db.WithContext(ctx).Create(entry).Error)
}

func (r *PaymentRepository) ListEntries(ctx context.Context, accountID string) ([]model.LedgerEntry, error) {
	var entries []model.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at asc").
		Find(&entries).Error
	return entries, translate(err)
}

// Balance sums the account's entries in Go so precision does not depend on
// the database's numeric handling.
func (r *PaymentRepository) Balance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	entries, err := r.ListEntries(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	return total, nil
}
