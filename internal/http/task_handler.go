package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"taskmarket.com/engagement/internal/constants"
	dto "taskmarket.com/engagement/internal/data_models"
	middleware "taskmarket.com/engagement/internal/http/middlewares"
	"taskmarket.com/engagement/internal/http/validators"
	"taskmarket.com/engagement/internal/services"
)

func taskInput(req *dto.TaskRequestData) services.TaskInput {
	return services.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Location:    req.Location,
		PayAmount:   req.PayAmount,
		BudgetType:  constants.BudgetType(req.BudgetType),
	}
}

func (h *Handler) CreateTask(c echo.Context) error {
	var req dto.TaskRequestData
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := validators.ValidateTaskRequest(&req); err != nil {
		return err
	}

	task, err := h.tasks.CreateTask(c.Request().Context(), middleware.Actor(c), taskInput(&req), req.Publish)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, task)
}

func (h *Handler) UpdateTask(c echo.Context) error {
	var req dto.TaskRequestData
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := validators.ValidateTaskRequest(&req); err != nil {
		return err
	}

	task, err := h.tasks.UpdateDraft(c.Request().Context(), c.Param("id"), middleware.Actor(c), taskInput(&req))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, task)
}

func (h *Handler) GetTask(c echo.Context) error {
	task, err := h.tasks.GetTask(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, task)
}

func (h *Handler) ListTasks(c echo.Context) error {
	tasks, err := h.tasks.ListTasks(c.Request().Context(), constants.TaskStatus(c.QueryParam("status")))
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"count": len(tasks),
		"tasks": tasks,
	})
}

func (h *Handler) PublishTask(c echo.Context) error {
	task, err := h.tasks.PublishTask(c.Request().Context(), c.Param("id"), middleware.Actor(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, task)
}

func (h *Handler) CancelTask(c echo.Context) error {
	task, err := h.tasks.CancelTask(c.Request().Context(), c.Param("id"), middleware.Actor(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, task)
}
