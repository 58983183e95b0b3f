package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	dto "taskmarket.com/engagement/internal/data_models"
	middleware "taskmarket.com/engagement/internal/http/middlewares"
	"taskmarket.com/engagement/internal/services"
)

func (h *Handler) ListBids(c echo.Context) error {
	bids, err := h.bids.ListBids(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"count": len(bids),
		"bids":  bids,
	})
}

func (h *Handler) MyBids(c echo.Context) error {
	bids, err := h.bids.ListBidsByBidder(c.Request().Context(), middleware.Actor(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"count": len(bids),
		"bids":  bids,
	})
}

func (h *Handler) SubmitBid(c echo.Context) error {
	var req dto.BidRequestData
	if err := bind(c, &req); err != nil {
		return err
	}

	bid, err := h.bids.SubmitBid(c.Request().Context(), c.Param("id"), middleware.Actor(c), services.BidInput{
		Amount:         req.Amount,
		Message:        req.Message,
		EstimatedHours: req.EstimatedHours,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, bid)
}

func (h *Handler) UpdateBid(c echo.Context) error {
	var req dto.BidPatchRequestData
	if err := bind(c, &req); err != nil {
		return err
	}

	bid, err := h.bids.UpdateBid(c.Request().Context(), c.Param("id"), middleware.Actor(c), services.BidUpdate{
		Amount:         req.Amount,
		Message:        req.Message,
		EstimatedHours: req.EstimatedHours,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, bid)
}

func (h *Handler) WithdrawBid(c echo.Context) error {
	if err := h.bids.WithdrawBid(c.Request().Context(), c.Param("id"), middleware.Actor(c)); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AcceptBid(c echo.Context) error {
	ctx := c.Request().Context()

	bid, err := h.bids.GetBid(ctx, c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}

	bookingID, err := h.bids.AcceptBid(ctx, bid.TaskID, bid.ID, middleware.Actor(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, dto.AcceptBidResponse{BookingID: bookingID})
}

func (h *Handler) RejectBid(c echo.Context) error {
	bid, err := h.bids.RejectBid(c.Request().Context(), c.Param("id"), middleware.Actor(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, bid)
}
