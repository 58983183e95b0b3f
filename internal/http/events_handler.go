package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"taskmarket.com/engagement/internal/events"
)

const heartbeatInterval = 25 * time.Second

// TaskEvents streams the task's change feed as server-sent events so open
// views can refresh. The stream carries no state a client should act on.
func (h *Handler) TaskEvents(c echo.Context) error {
	ctx := c.Request().Context()

	if _, err := h.tasks.GetTask(ctx, c.Param("id")); err != nil {
		return h.fail(c, err)
	}

	ch, unsubscribe := h.hub.Subscribe(events.TaskTopic(c.Param("id")))
	defer unsubscribe()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-heartbeat.C:
			if _, err := fmt.Fprint(res, ": ping\n\n"); err != nil {
				return nil
			}
			res.Flush()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if _, err := fmt.Fprintf(res, "event: change\ndata: %s\n\n", msg); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}
