package validators

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	dto "taskmarket.com/engagement/internal/data_models"
)

// These checks cover request shape only. Bounds and state rules live in the
// services so every caller gets them.

func ValidateTaskRequest(r *dto.TaskRequestData) error {
	if strings.TrimSpace(r.Title) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title is required")
	}
	return nil
}

func ValidateHireRequest(r *dto.HireRequestData) error {
	if strings.TrimSpace(r.WorkerID) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "worker_id is required")
	}
	return nil
}

func ValidateCompleteItemRequest(r *dto.CompleteItemRequestData) error {
	if strings.TrimSpace(r.BookingID) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "booking_id is required")
	}
	return nil
}

func ValidateChecklistItemRequest(r *dto.ChecklistItemRequestData) error {
	if strings.TrimSpace(r.Title) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title is required")
	}
	return nil
}
