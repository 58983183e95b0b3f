package services

import (
	"context"
	"maps"

	"github.com/shopspring/decimal"

	"taskmarket.com/engagement/internal/constants"
	apperrors "taskmarket.com/engagement/internal/errors"
	model "taskmarket.com/engagement/internal/models"
	repository "taskmarket.com/engagement/internal/repositories"
)

// EscrowService holds a booking's amount until it is released to the worker
// or refunded to the owner. Every movement is mirrored as ledger entries so a
// wallet balance is the sum of an account's entries.
type EscrowService struct {
	store      *repository.Store
	feePercent int
}

func NewEscrowService(store *repository.Store, feePercent int) *EscrowService {
	return &EscrowService{store: store, feePercent: feePercent}
}

// Settlement reports how a held amount was split.
type Settlement struct {
	Refunded decimal.Decimal `json:"refunded"`
	Payout   decimal.Decimal `json:"payout"`
	Fee      decimal.Decimal `json:"fee"`
}

// Hold places the booking amount on hold. It runs inside the caller's
// transaction so the booking and its escrow appear together.
func (e *EscrowService) Hold(ctx context.Context, tx *repository.Store, booking *model.Booking, out *outbox) (*model.Payment, error) {
	if !booking.Amount.IsPositive() {
		return nil, apperrors.ErrValidation.With("escrow amount must be positive")
	}

	payment := &model.Payment{
		BookingID:      booking.ID,
		PayerID:        booking.OwnerID,
		PayeeID:        booking.WorkerID,
		Amount:         booking.Amount,
		Status:         constants.PaymentHeld,
		FeeAmount:      decimal.Zero,
		PayoutAmount:   decimal.Zero,
		RefundedAmount: decimal.Zero,
	}
	if err := tx.Payments.Create(ctx, payment); err != nil {
		return nil, err
	}

	err := tx.Payments.AppendEntry(ctx, &model.LedgerEntry{
		AccountID: booking.OwnerID,
		BookingID: booking.ID,
		EntryType: constants.LedgerEscrowHold,
		Amount:    booking.Amount.Neg(),
	})
	if err != nil {
		return nil, err
	}

	out.audit(AuditRecord{
		BookingID:     booking.ID,
		TaskID:        booking.TaskID,
		UserID:        booking.OwnerID,
		EventType:     constants.AuditEscrowHeld,
		EventCategory: constants.AuditCategoryPayment,
		Payload:       map[string]any{"amount": booking.Amount.StringFixed(2)},
	})
	return payment, nil
}

// Release pays the held amount, less the platform fee, to the worker.
func (e *EscrowService) Release(ctx context.Context, tx *repository.Store, booking *model.Booking, out *outbox) (Settlement, error) {
	return e.settle(ctx, tx, booking, decimal.Zero, "", out)
}

// Refund returns amount to the owner. Any remainder of the held amount is
// released to the worker less the platform fee.
func (e *EscrowService) Refund(
	ctx context.Context,
	tx *repository.Store,
	booking *model.Booking,
	amount decimal.Decimal,
	reason string,
	out *outbox,
) (Settlement, error) {
	return e.settle(ctx, tx, booking, amount, reason, out)
}

func (e *EscrowService) settle(
	ctx context.Context,
	tx *repository.Store,
	booking *model.Booking,
	refund decimal.Decimal,
	reason string,
	out *outbox,
) (Settlement, error) {
	payment, err := tx.Payments.FindByBooking(ctx, booking.ID)
	if err != nil {
		return Settlement{}, err
	}
	if payment.Status != constants.PaymentHeld {
		return Settlement{}, apperrors.ErrInvalidStateTransition.With("escrow for booking %s is already %s", booking.ID, payment.Status)
	}
	if refund.IsNegative() || refund.GreaterThan(payment.Amount) {
		return Settlement{}, apperrors.ErrValidation.With("refund must be between 0 and %s", payment.Amount.StringFixed(2))
	}

	remainder := payment.Amount.Sub(refund)
	fee := PlatformFee(remainder, e.feePercent)
	s := Settlement{Refunded: refund, Payout: remainder.Sub(fee), Fee: fee}

	switch {
	case refund.IsZero():
		payment.Status = constants.PaymentReleased
	case remainder.IsZero():
		payment.Status = constants.PaymentRefunded
	default:
		payment.Status = constants.PaymentPartiallyRefunded
	}
	payment.FeeAmount = s.Fee
	payment.PayoutAmount = s.Payout
	payment.RefundedAmount = s.Refunded
	payment.RefundReason = reason

	if err := tx.Payments.Settle(ctx, payment); err != nil {
		return Settlement{}, conflict(err, "escrow for booking %s was settled concurrently", booking.ID)
	}

	entries := []model.LedgerEntry{
		{AccountID: payment.PayerID, EntryType: constants.LedgerRefund, Amount: s.Refunded},
		{AccountID: payment.PayeeID, EntryType: constants.LedgerEscrowRelease, Amount: s.Payout},
		{AccountID: constants.PlatformAccount, EntryType: constants.LedgerPlatformFee, Amount: s.Fee},
	}
	for i := range entries {
		if entries[i].Amount.IsZero() {
			continue
		}
		entries[i].BookingID = booking.ID
		if err := tx.Payments.AppendEntry(ctx, &entries[i]); err != nil {
			return Settlement{}, err
		}
	}

	payload := map[string]any{
		"refunded": s.Refunded.StringFixed(2),
		"payout":   s.Payout.StringFixed(2),
		"fee":      s.Fee.StringFixed(2),
	}
	if !s.Payout.IsZero() || !s.Fee.IsZero() {
		out.audit(AuditRecord{
			BookingID: booking.ID, TaskID: booking.TaskID, UserID: payment.PayeeID,
			EventType: constants.AuditEscrowReleased, EventCategory: constants.AuditCategoryPayment,
			Payload: payload,
		})
		out.notify(Notice{
			UserID:   payment.PayeeID,
			Title:    "Payment released",
			Message:  "A payout of " + s.Payout.StringFixed(2) + " is on its way.",
			Category: constants.CategoryPayment,
			DeepLink: bookingLink(booking.ID),
		})
	}
	if !s.Refunded.IsZero() {
		refundPayload := maps.Clone(payload)
		refundPayload["reason"] = reason
		out.audit(AuditRecord{
			BookingID: booking.ID, TaskID: booking.TaskID, UserID: payment.PayerID,
			EventType: constants.AuditEscrowRefunded, EventCategory: constants.AuditCategoryPayment,
			Payload: refundPayload,
		})
		out.notify(Notice{
			UserID:   payment.PayerID,
			Title:    "Refund issued",
			Message:  s.Refunded.StringFixed(2) + " has been returned to your wallet.",
			Category: constants.CategoryPayment,
			DeepLink: bookingLink(booking.ID),
		})
	}

	return s, nil
}

func (e *EscrowService) Payment(ctx context.Context, bookingID string) (*model.Payment, error) {
	return e.store.Payments.FindByBooking(ctx, bookingID)
}

func (e *EscrowService) Balance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	return e.store.Payments.Balance(ctx, accountID)
}

func (e *EscrowService) Entries(ctx context.Context, accountID string) ([]model.LedgerEntry, error) {
	return e.store.Payments.ListEntries(ctx, accountID)
}
