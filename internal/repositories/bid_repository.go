package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskmarket.com/engagement/internal/constants"
	apperrors "taskmarket.com/engagement/internal/errors"
	model "taskmarket.com/engagement/internal/models"
)

type BidRepository struct {
	db *gorm.DB
}

func NewBidRepository(db *gorm.DB) *BidRepository {
	return &BidRepository{db: db}
}

// Create inserts a pending bid. A second bid by the same bidder on the same
// task violates the unique index and surfaces as ErrDuplicateBid.
func (r *BidRepository) Create(ctx context.Context, bid *model.Bid) error {
	bid.ID = uuid.NewString()
	bid.Status = constants.BidStatusPending
	bid.Version = 1
	bid.CreatedAt = time.Now().UTC()

	err := r.db.WithContext(ctx).Create(bid).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.ErrDuplicateBid
	}
	return translate(err)
}

func (r *BidRepository) FindByID(ctx context.Context, id string) (*model.Bid, error) {
	var bid model.Bid
	if err := r.db.WithContext(ctx).First(&bid, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &bid, nil
}

func (r *BidRepository) FindByTaskAndBidder(ctx context.Context, taskID, bidderID string) (*model.Bid, error) {
	var bid model.Bid
	err := r.db.WithContext(ctx).
		Where("task_id = ? AND bidder_id = ?", taskID, bidderID).
		First(&bid).Error
	if err != nil {
		return nil, translate(err)
	}
	return &bid, nil
}

// ListByTask returns the task's bids in submission order.
func (r *BidRepository) ListByTask(ctx context.Context, taskID string) ([]model.Bid, error) {
	var bids []model.Bid
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at asc").
		Find(&bids).Error
	return bids, translate(err)
}

func (r *BidRepository) ListByBidder(ctx context.Context, bidderID string) ([]model.Bid, error) {
	var bids []model.Bid
	err := r.db.WithContext(ctx).
		Where("bidder_id = ?", bidderID).
		Order("created_at desc").
		Find(&bids).Error
	return bids, translate(err)
}

// UpdateTerms rewrites amount, message and hours of a pending bid, guarded by
// version and status.
func (r *BidRepository) UpdateTerms(ctx context.Context, bid *model.Bid) error {
	res := r.db.WithContext(ctx).Model(&model.Bid{}).
		Where("id = ? AND version = ? AND status = ?", bid.ID, bid.Version, constants.BidStatusPending).
		Updates(map[string]interface{}{
			"amount":          bid.Amount,
			"message":         bid.Message,
			"estimated_hours": bid.EstimatedHours,
			"version":         gorm.Expr("version + 1"),
		})

	if res.Error != nil {
		return translate(res.Error)
	}

	if res.RowsAffected == 0 {
		return ErrOptimisticLock
	}

	bid.Version++
	return nil
}

func (r *BidRepository) TransitionStatus(ctx context.Context, id string, from, to constants.BidStatus) error {
	res := r.db.WithContext(ctx).Model(&model.Bid{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":  to,
			"version": gorm.Expr("version + 1"),
		})

	if res.Error != nil {
		return translate(res.Error)
	}

	if res.RowsAffected == 0 {
		return ErrOptimisticLock
	}

	return nil
}

// RejectSiblings rejects every pending bid on the task except keepID and
// returns the bidders that were rejected.
func (r *BidRepository) RejectSiblings(ctx context.Context, taskID, keepID string) ([]string, error) {
	var bidders []string
	err := r.db.WithContext(ctx).Model(&model.Bid{}).
		Where("task_id = ? AND id <> ? AND status = ?", taskID, keepID, constants.BidStatusPending).
		Pluck("bidder_id", &bidders).Error
	if err != nil {
		return nil, translate(err)
	}

	err = r.db.WithContext(ctx).Model(&model.Bid{}).
		Where("task_id = ? AND id <> ? AND status = ?", taskID, keepID, constants.BidStatusPending).
		Updates(map[string]interface{}{
			"status":  constants.BidStatusRejected,
			"version": gorm.Expr("version + 1"),
		}).Error
	if err != nil {
		return nil, translate(err)
	}

	return bidders, nil
}

// RejectPending rejects every pending bid on the task.
func (r *BidRepository) RejectPending(ctx context.Context, taskID string) ([]string, error) {
	return r.RejectSiblings(ctx, taskID, "")
}

// DeletePending removes a bid only while it is still pending.
func (r *BidRepository) DeletePending(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, constants.BidStatusPending).
		Delete(&model.Bid{})

	if res.Error != nil {
		return translate(res.Error)
	}

	if res.RowsAffected == 0 {
		return ErrOptimisticLock
	}

	return nil
}
