package http

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "taskmarket.com/engagement/internal/errors"
	"taskmarket.com/engagement/internal/events"
	"taskmarket.com/engagement/internal/services"
)

type Handler struct {
	tasks         *services.TaskService
	bids          *services.BidService
	bookings      *services.BookingService
	checklists    *services.ChecklistService
	escrow        *services.EscrowService
	audit         *services.AuditService
	notifications *services.NotificationService
	hub           *events.Hub
	log           *slog.Logger
}

type HandlerDeps struct {
	Tasks         *services.TaskService
	Bids          *services.BidService
	Bookings      *services.BookingService
	Checklists    *services.ChecklistService
	Escrow        *services.EscrowService
	Audit         *services.AuditService
	Notifications *services.NotificationService
	Hub           *events.Hub
	Logger        *slog.Logger
}

func NewHandler(d HandlerDeps) *Handler {
	return &Handler{
		tasks:         d.Tasks,
		bids:          d.Bids,
		bookings:      d.Bookings,
		checklists:    d.Checklists,
		escrow:        d.Escrow,
		audit:         d.Audit,
		notifications: d.Notifications,
		hub:           d.Hub,
		log:           d.Logger,
	}
}

// fail turns a service error into an HTTP error. Unexpected failures are
// logged and reported without detail.
func (h *Handler) fail(c echo.Context, err error) error {
	status := apperrors.StatusCode(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"error", err)
	}
	return echo.NewHTTPError(status, apperrors.Message(err))
}

func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON payload")
	}
	return nil
}
