package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	dto "taskmarket.com/engagement/internal/data_models"
	middleware "taskmarket.com/engagement/internal/http/middlewares"
	"taskmarket.com/engagement/internal/http/validators"
	"taskmarket.com/engagement/internal/services"
)

func itemInput(req *dto.ChecklistItemRequestData) services.ItemInput {
	return services.ItemInput{
		Title:            req.Title,
		Description:      req.Description,
		RequiresPhoto:    req.RequiresPhoto,
		RequiresApproval: req.RequiresApproval,
		DisplayOrder:     req.DisplayOrder,
	}
}

func (h *Handler) ListChecklist(c echo.Context) error {
	items, err := h.checklists.ListItems(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"count": len(items),
		"items": items,
	})
}

func (h *Handler) DefineChecklistItem(c echo.Context) error {
	var req dto.ChecklistItemRequestData
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := validators.ValidateChecklistItemRequest(&req); err != nil {
		return err
	}

	item, err := h.checklists.DefineItem(c.Request().Context(), c.Param("id"), middleware.Actor(c), itemInput(&req))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *Handler) UpdateChecklistItem(c echo.Context) error {
	var req dto.ChecklistItemRequestData
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := validators.ValidateChecklistItemRequest(&req); err != nil {
		return err
	}

	item, err := h.checklists.UpdateItem(c.Request().Context(), c.Param("id"), middleware.Actor(c), itemInput(&req))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handler) DeleteChecklistItem(c echo.Context) error {
	if err := h.checklists.DeleteItem(c.Request().Context(), c.Param("id"), middleware.Actor(c)); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CompleteChecklistItem(c echo.Context) error {
	var req dto.CompleteItemRequestData
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := validators.ValidateCompleteItemRequest(&req); err != nil {
		return err
	}

	completion, err := h.checklists.CompleteItem(c.Request().Context(), c.Param("id"), req.BookingID, middleware.Actor(c), req.PhotoURL)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, completion)
}

func (h *Handler) ApproveCompletion(c echo.Context) error {
	completion, err := h.checklists.ApproveItem(c.Request().Context(), c.Param("id"), middleware.Actor(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, completion)
}

func (h *Handler) RejectCompletion(c echo.Context) error {
	var req dto.RejectItemRequestData
	if err := bind(c, &req); err != nil {
		return err
	}

	completion, err := h.checklists.RejectItem(c.Request().Context(), c.Param("id"), middleware.Actor(c), req.Reason)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, completion)
}

func (h *Handler) RetryCompletion(c echo.Context) error {
	if err := h.checklists.RetryItem(c.Request().Context(), c.Param("id"), middleware.Actor(c)); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
