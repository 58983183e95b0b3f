package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	model "taskmarket.com/engagement/internal/models"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(ctx context.Context, ev *model.AuditEvent) error {
	ev.ID = uuid.NewString()
	ev.CreatedAt = time.Now().UTC()

	return translate(r.db.WithContext(ctx).Create(ev).Error)
}

func (r *AuditRepository) ListForBooking(ctx context.Context, bookingID string) ([]model.AuditEvent, error) {
	var events []model.AuditEvent
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at asc").
		Find(&events).Error
	return events, translate(err)
}
