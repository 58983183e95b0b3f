package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"gorm.io/datatypes"

	model "taskmarket.com/engagement/internal/models"
	repository "taskmarket.com/engagement/internal/repositories"
)

type AuditService struct {
	repo *repository.AuditRepository
	log  *slog.Logger
}

func NewAuditService(repo *repository.AuditRepository, log *slog.Logger) *AuditService {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &AuditService{repo: repo, log: log}
}

func (a *AuditService) Record(ctx context.Context, rec AuditRecord) {
	var payload datatypes.JSON
	if len(rec.Payload) > 0 {
		b, err := json.Marshal(rec.Payload)
		if err != nil {
			a.log.Warn("audit payload not serialisable", "event_type", rec.EventType, "error", err)
		} else {
			payload = datatypes.JSON(b)
		}
	}

	ev := &model.AuditEvent{
		BookingID:     rec.BookingID,
		TaskID:        rec.TaskID,
		UserID:        rec.UserID,
		EventType:     rec.EventType,
		EventCategory: rec.EventCategory,
		Payload:       payload,
	}
	if err := a.repo.Create(ctx, ev); err != nil {
		a.log.Error("audit record failed",
			"booking_id", rec.BookingID,
			"event_type", rec.EventType,
			"error", err)
	}
}

func (a *AuditService) ListForBooking(ctx context.Context, bookingID string) ([]model.AuditEvent, error) {
	return a.repo.ListForBooking(ctx, bookingID)
}
