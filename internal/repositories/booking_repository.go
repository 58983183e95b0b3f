package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskmarket.com/engagement/internal/constants"
	model "taskmarket.com/engagement/internal/models"
)

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	now := time.Now().UTC()
	booking.ID = uuid.NewString()
	booking.Version = 1
	booking.CreatedAt = now
	booking.UpdatedAt = now

	return translate(r.db.WithContext(ctx).Create(booking).Error)
}

func (r *BookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	var booking model.Booking
	if err := r.db.WithContext(ctx).First(&booking, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &booking, nil
}

// FindOpenForWorker returns the most recent pending or accepted booking of
// the worker on the task.
func (r *BookingRepository) FindOpenForWorker(ctx context.Context, taskID, workerID string) (*model.Booking, error) {
	var booking model.Booking
	err := r.db.WithContext(ctx).
		Where("task_id = ? AND worker_id = ? AND status IN ?", taskID, workerID,
			[]constants.BookingStatus{constants.BookingStatusPending, constants.BookingStatusAccepted}).
		Order("created_at desc").
		First(&booking).Error
	if err != nil {
		return nil, translate(err)
	}
	return &booking, nil
}

// FindLiveForBid returns the accepted or completed booking that came out of
// the bid.
func (r *BookingRepository) FindLiveForBid(ctx context.Context, bidID string) (*model.Booking, error) {
	var booking model.Booking
	err := r.db.WithContext(ctx).
		Where("bid_id = ? AND status IN ?", bidID,
			[]constants.BookingStatus{constants.BookingStatusAccepted, constants.BookingStatusCompleted}).
		First(&booking).Error
	if err != nil {
		return nil, translate(err)
	}
	return &booking, nil
}

// FindActiveForTask returns the accepted booking of a task, if any.
func (r *BookingRepository) FindActiveForTask(ctx context.Context, taskID string) (*model.Booking, error) {
	var booking model.Booking
	err := r.db.WithContext(ctx).
		Where("task_id = ? AND status = ?", taskID, constants.BookingStatusAccepted).
		First(&booking).Error
	if err != nil {
		return nil, translate(err)
	}
	return &booking, nil
}

func (r *BookingRepository) ListByTask(ctx context.Context, taskID string) ([]model.Booking, error) {
	var bookings []model.Booking
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at desc").
		Find(&bookings).Error
	return bookings, translate(err)
}

func (r *BookingRepository) ListByUser(ctx context.Context, userID string) ([]model.Booking, error) {
	var bookings []model.Booking
	err := r.db.WithContext(ctx).
		Where("owner_id = ? OR worker_id = ?", userID, userID).
		Order("created_at desc").
		Find(&bookings).Error
	return bookings, translate(err)
}

// Transition applies fields to the booking only if it is currently in one of
// `from`. The status key of fields carries the target state.
func (r *BookingRepository) Transition(
	ctx context.Context,
	id string,
	from []constants.BookingStatus,
	fields map[string]interface{},
) error {
	fields["updated_at"] = time.Now().UTC()
	fields["version"] = gorm.Expr("version + 1")

	res := r.db.WithContext(ctx).Model(&model.Booking{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(fields)

	if res.Error != nil {
		return translate(res.Error)
	}

	if res.RowsAffected == 0 {
		return ErrOptimisticLock
	}

	return nil
}
