package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	dto "taskmarket.com/engagement/internal/data_models"
	middleware "taskmarket.com/engagement/internal/http/middlewares"
)

const defaultNotificationLimit = 50

func (h *Handler) ListNotifications(c echo.Context) error {
	limit := defaultNotificationLimit
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be positive")
		}
		limit = n
	}

	list, err := h.notifications.ListForUser(c.Request().Context(), middleware.Actor(c), limit)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"count":         len(list),
		"notifications": list,
	})
}

func (h *Handler) MarkNotificationRead(c echo.Context) error {
	if err := h.notifications.MarkRead(c.Request().Context(), c.Param("id"), middleware.Actor(c)); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Wallet(c echo.Context) error {
	ctx := c.Request().Context()
	actor := middleware.Actor(c)

	entries, err := h.escrow.Entries(ctx, actor)
	if err != nil {
		return h.fail(c, err)
	}
	balance, err := h.escrow.Balance(ctx, actor)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, dto.WalletResponse{
		AccountID: actor,
		Balance:   balance,
		Entries:   entries,
	})
}
