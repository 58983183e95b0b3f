package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	apperrors "taskmarket.com/engagement/internal/errors"
)

// ErrOptimisticLock is returned when a conditional write matched no row:
// the row changed state or version since it was read.
var ErrOptimisticLock = errors.New("optimistic locking conflict")

// Store groups the repositories over one gorm handle. Inside Transaction the
// handle is the transaction, so every repository shares it.
type Store struct {
	db *gorm.DB

	Tasks         *TaskRepository
	Bids          *BidRepository
	Bookings      *BookingRepository
	Checklists    *ChecklistRepository
	Payments      *PaymentRepository
	Notifications *NotificationRepository
	Audit         *AuditRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:            db,
		Tasks:         NewTaskRepository(db),
		Bids:          NewBidRepository(db),
		Bookings:      NewBookingRepository(db),
		Checklists:    NewChecklistRepository(db),
		Payments:      NewPaymentRepository(db),
		Notifications: NewNotificationRepository(db),
		Audit:         NewAuditRepository(db),
	}
}

// Transaction runs fn against a Store bound to a single database
// transaction. Any error returned by fn rolls every write back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// translate maps gorm failures onto the application taxonomy.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.ErrNotFound
	case errors.Is(err, ErrOptimisticLock):
		return err
	default:
		var appErr *apperrors.Exception
		if errors.As(err, &appErr) {
			return err
		}
		return fmt.Errorf("%w: %w", apperrors.ErrStorage, err)
	}
}
