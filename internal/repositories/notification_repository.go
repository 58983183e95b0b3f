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

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	n.ID = uuid.NewString()
	n.Status = constants.NotificationPending
	n.CreatedAt = time.Now().UTC()

	return translate(r.db.WithContext(ctx).Create(n).Error)
}

func (r *NotificationRepository) FindByID(ctx context.Context, id string) (*model.Notification, error) {
	var n model.Notification
	if err := r.db.WithContext(ctx).First(&n, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &n, nil
}

func (r *NotificationRepository) ListForUser(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}

	var list []model.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Find(&list).Error
	return list, translate(err)
}

// ListUndelivered returns pending notifications that still have attempts
// left, oldest first.
func (r *NotificationRepository) ListUndelivered(ctx context.Context, maxAttempts, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}

	var list []model.Notification
	err := r.db.WithContext(ctx).
		Where("status = ? AND attempts < ?", constants.NotificationPending, maxAttempts).
		Order("created_at asc").
		Limit(limit).
		Find(&list).Error
	return list, translate(err)
}

func (r *NotificationRepository) MarkDelivered(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND status = ?", id, constants.NotificationPending).
		Updates(map[string]interface{}{
			"status":   constants.NotificationDelivered,
			"attempts": gorm.Expr("attempts + 1"),
		}).Error
	return translate(err)
}

// MarkAttemptFailed counts a failed delivery and gives up once maxAttempts
// is reached.
func (r *NotificationRepository) MarkAttemptFailed(ctx context.Context, id string, maxAttempts int) error {
	err := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND status = ?", id, constants.NotificationPending).
		Updates(map[string]interface{}{
			"attempts": gorm.Expr("attempts + 1"),
			"status": gorm.Expr("CASE WHEN attempts + 1 >= ? THEN ? ELSE status END",
				maxAttempts, constants.NotificationFailed),
		}).Error
	return translate(err)
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	res := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", id, userID).
		Update("read_at", time.Now().UTC())

	if res.Error != nil {
		return translate(res.Error)
	}

	if res.RowsAffected == 0 {
		return ErrOptimisticLock
	}

	return nil
}
