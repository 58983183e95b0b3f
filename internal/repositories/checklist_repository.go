package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskmarket.com/engagement/internal/constants"
	model "taskmarket.com/engagement/internal/models"
)

type ChecklistRepository struct {
	db *gorm.DB
}

func NewChecklistRepository(db *gorm.DB) *ChecklistRepository {
	return &ChecklistRepository{db: db}
}

func (r *ChecklistRepository) CreateItem(ctx context.Context, item *model.ChecklistItem) error {
	item.ID = uuid.NewString()
	item.CreatedAt = time.Now().UTC()

	return translate(r.db.WithContext(ctx).Create(item).Error)
}

func (r *ChecklistRepository) FindItem(ctx context.Context, id string) (*model.ChecklistItem, error) {
	var item model.ChecklistItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

// ListItems returns the task's items in display order.
func (r *ChecklistRepository) ListItems(ctx context.Context, taskID string) ([]model.ChecklistItem, error) {
	var items []model.ChecklistItem
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("display_order asc, created_at asc").
		Find(&items).Error
	return items, translate(err)
}

func (r *ChecklistRepository) NextDisplayOrder(ctx context.Context, taskID string) (int, error) {
	var next int
	err := r.db.WithContext(ctx).Model(&model.ChecklistItem{}).
		Where("task_id = ?", taskID).
		Select("COALESCE(MAX(display_order) + 1, 0)").
		Row().
		Scan(&next)
	if err != nil {
		return 0, translate(err)
	}
	return next, nil
}

func (r *ChecklistRepository) UpdateItem(ctx context.Context, item *model.ChecklistItem) error {
	err := r.db.WithContext(ctx).Model(&model.ChecklistItem{}).
		Where("id = ?", item.ID).
		Updates(map[string]interface{}{
			"title":                   item.Title,
			"description":             item.Description,
			"requires_photo":          item.RequiresPhoto,
			"requires_giver_approval": item.RequiresGiverApproval,
			"display_order":           item.DisplayOrder,
		}).Error
	return translate(err)
}

// DeleteItemWithoutCompletions deletes the item unless any completion
// references it. It returns ErrOptimisticLock if a completion exists.
func (r *ChecklistRepository) DeleteItemWithoutCompletions(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND NOT EXISTS (?)", id,
			r.db.Model(&model.ChecklistCompletion{}).Select("1").Where("checklist_item_id = ?", id)).
		Delete(&model.ChecklistItem{})

	if res.Error != nil {
		return translate(res.Error)
	}

	if res.RowsAffected == 0 {
		return ErrOptimisticLock
	}

	return nil
}

func (r *ChecklistRepository) CountCompletionsForItem(ctx context.Context, itemID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ChecklistCompletion{}).
		Where("checklist_item_id = ?", itemID).
		Count(&count).Error
	return count, translate(err)
}

// CreateCompletion inserts the completion. An existing completion for the
// same (item, booking) pair surfaces as ErrOptimisticLock.
func (r *ChecklistRepository) CreateCompletion(ctx context.Context, completion *model.ChecklistCompletion) error {
	completion.ID = uuid.NewString()
	completion.Version = 1
	completion.CreatedAt = time.Now().UTC()

	err := r.db.WithContext(ctx).Create(completion).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrOptimisticLock
	}
	return translate(err)
}

func (r *ChecklistRepository) FindCompletion(ctx context.Context, id string) (*model.ChecklistCompletion, error) {
	var completion model.ChecklistCompletion
	if err := r.db.WithContext(ctx).First(&completion, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &completion, nil
}

func (r *ChecklistRepository) FindCompletionFor(ctx context.Context, itemID, bookingID string) (*model.ChecklistCompletion, error) {
	var completion model.ChecklistCompletion
	err := r.db.WithContext(ctx).
		Where("checklist_item_id = ? AND booking_id = ?", itemID, bookingID).
		First(&completion).Error
	if err != nil {
		return nil, translate(err)
	}
	return &completion, nil
}

func (r *ChecklistRepository) ListCompletions(ctx context.Context, bookingID string) ([]model.ChecklistCompletion, error) {
	var completions []model.ChecklistCompletion
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at asc").
		Find(&completions).Error
	return completions, translate(err)
}

// ReviewCompletion moves a pending completion to approved or rejected.
func (r *ChecklistRepository) ReviewCompletion(
	ctx context.Context,
	id string,
	to constants.CompletionStatus,
	reviewer string,
	reason string,
) error {
	res := r.db.WithContext(ctx).Model(&model.ChecklistCompletion{}).
		Where("id = ? AND status = ?", id, constants.CompletionPending).
		Updates(map[string]interface{}{
			"status":           to,
			"reviewed_by":      reviewer,
			"reviewed_at":      time.Now().UTC(),
			"rejection_reason": reason,
			"version":          gorm.Expr("version + 1"),
		})

	if res.Error != nil {
		return translate(res.Error)
	}

	if res.RowsAffected == 0 {
		return ErrOptimisticLock
	}

	return nil
}

// DeleteRejectedCompletion removes a completion only while it is rejected.
func (r *ChecklistRepository) DeleteRejectedCompletion(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, constants.CompletionRejected).
		Delete(&model.ChecklistCompletion{})

	if res.Error != nil {
		return translate(res.Error)
	}

	if res.RowsAffected == 0 {
		return ErrOptimisticLock
	}

	return nil
}
