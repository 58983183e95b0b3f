package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	dto "taskmarket.com/engagement/internal/data_models"
	apperrors "taskmarket.com/engagement/internal/errors"
	middleware "taskmarket.com/engagement/internal/http/middlewares"
	"taskmarket.com/engagement/internal/http/validators"
	"taskmarket.com/engagement/internal/services"
)

func (h *Handler) CreateHireRequest(c echo.Context) error {
	var req dto.HireRequestData
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := validators.ValidateHireRequest(&req); err != nil {
		return err
	}

	booking, err := h.bookings.CreateHireRequest(c.Request().Context(), middleware.Actor(c), services.HireInput{
		TaskID:      c.Param("id"),
		WorkerID:    req.WorkerID,
		Amount:      req.Amount,
		Message:     req.Message,
		ScheduledAt: req.ScheduledAt,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, booking)
}

func (h *Handler) ListTaskBookings(c echo.Context) error {
	ctx := c.Request().Context()
	taskID := c.Param("id")

	task, err := h.tasks.GetTask(ctx, taskID)
	if err != nil {
		return h.fail(c, err)
	}
	if task.OwnerID != middleware.Actor(c) {
		return h.fail(c, apperrors.ErrAuthorization.With("only the task owner can list its bookings"))
	}

	bookings, err := h.bookings.ListForTask(ctx, taskID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"count":    len(bookings),
		"bookings": bookings,
	})
}

func (h *Handler) MyBookings(c echo.Context) error {
	bookings, err := h.bookings.ListForUser(c.Request().Context(), middleware.Actor(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"count":    len(bookings),
		"bookings": bookings,
	})
}

func (h *Handler) GetBooking(c echo.Context) error {
	booking, err := h.bookings.Get(c.Request().Context(), c.Param("id"), middleware.Actor(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, booking)
}

func (h *Handler) AcceptBooking(c echo.Context) error {
	booking, err := h.bookings.Accept(c.Request().Context(), c.Param("id"), middleware.Actor(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, booking)
}

func (h *Handler) DeclineBooking(c echo.Context) error {
	var req dto.DeclineRequestData
	if err := bind(c, &req); err != nil {
		return err
	}

	booking, err := h.bookings.Decline(c.Request().Context(), c.Param("id"), middleware.Actor(c), req.Reason, req.Details)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, booking)
}

func (h *Handler) CompleteBooking(c echo.Context) error {
	booking, settlement, err := h.bookings.Complete(c.Request().Context(), c.Param("id"), middleware.Actor(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"booking":    booking,
		"settlement": settlement,
	})
}

func (h *Handler) CancelBooking(c echo.Context) error {
	var req dto.CancelRequestData
	if err := bind(c, &req); err != nil {
		return err
	}

	booking, settlement, err := h.bookings.Cancel(c.Request().Context(), c.Param("id"), middleware.Actor(c), req.Reason)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"booking":    booking,
		"settlement": settlement,
	})
}

func (h *Handler) BookingProgress(c echo.Context) error {
	ctx := c.Request().Context()

	booking, err := h.bookings.Get(ctx, c.Param("id"), middleware.Actor(c))
	if err != nil {
		return h.fail(c, err)
	}

	progress, err := h.checklists.Progress(ctx, booking.ID)
	if err != nil {
		return h.fail(c, err)
	}
	completions, err := h.checklists.Completions(ctx, booking.ID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"progress":    progress,
		"completions": completions,
	})
}

func (h *Handler) BookingAudit(c echo.Context) error {
	ctx := c.Request().Context()

	booking, err := h.bookings.Get(ctx, c.Param("id"), middleware.Actor(c))
	if err != nil {
		return h.fail(c, err)
	}

	events, err := h.audit.ListForBooking(ctx, booking.ID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"count":  len(events),
		"events": events,
	})
}
