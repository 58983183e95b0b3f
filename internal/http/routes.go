package http

import (
	"time"

	"github.com/labstack/echo/v4"

	middleware "taskmarket.com/engagement/internal/http/middlewares"
)

func Register(e *echo.Echo, h *Handler, rateLimitPerMinute int) {
	e.Use(middleware.RateLimiter(rateLimitPerMinute, time.Minute))

	e.GET("/tasks", h.ListTasks)
	e.GET("/tasks/:id", h.GetTask)
	e.GET("/tasks/:id/bids", h.ListBids)
	e.GET("/tasks/:id/checklist", h.ListChecklist)
	e.GET("/tasks/:id/events", h.TaskEvents)

	actor := middleware.RequireActor()

	e.POST("/tasks", h.CreateTask, actor)
	e.PATCH("/tasks/:id", h.UpdateTask, actor)
	e.POST("/tasks/:id/publish", h.PublishTask, actor)
	e.POST("/tasks/:id/cancel", h.CancelTask, actor)

	e.POST("/tasks/:id/bids", h.SubmitBid, actor)
	e.PATCH("/bids/:id", h.UpdateBid, actor)
	e.DELETE("/bids/:id", h.WithdrawBid, actor)
	e.POST("/bids/:id/accept", h.AcceptBid, actor)
	e.POST("/bids/:id/reject", h.RejectBid, actor)

	e.POST("/tasks/:id/hire", h.CreateHireRequest, actor)
	e.GET("/tasks/:id/bookings", h.ListTaskBookings, actor)
	e.GET("/bookings/:id", h.GetBooking, actor)
	e.POST("/bookings/:id/accept", h.AcceptBooking, actor)
	e.POST("/bookings/:id/decline", h.DeclineBooking, actor)
	e.POST("/bookings/:id/complete", h.CompleteBooking, actor)
	e.POST("/bookings/:id/cancel", h.CancelBooking, actor)
	e.GET("/bookings/:id/progress", h.BookingProgress, actor)
	e.GET("/bookings/:id/audit", h.BookingAudit, actor)

	e.POST("/tasks/:id/checklist", h.DefineChecklistItem, actor)
	e.PATCH("/checklist/:id", h.UpdateChecklistItem, actor)
	e.DELETE("/checklist/:id", h.DeleteChecklistItem, actor)
	e.POST("/checklist/:id/complete", h.CompleteChecklistItem, actor)
	e.POST("/completions/:id/approve", h.ApproveCompletion, actor)
	e.POST("/completions/:id/reject", h.RejectCompletion, actor)
	e.POST("/completions/:id/retry", h.RetryCompletion, actor)

	e.GET("/me/bids", h.MyBids, actor)
	e.GET("/me/bookings", h.MyBookings, actor)
	e.GET("/me/notifications", h.ListNotifications, actor)
	e.POST("/me/notifications/:id/read", h.MarkNotificationRead, actor)
	e.GET("/me/wallet", h.Wallet, actor)
}
