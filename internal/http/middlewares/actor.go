package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	ActorHeader = "X-User-ID"
	actorKey    = "actor"
)

// RequireActor reads the calling user from ActorHeader. Authenticating that
// identity is the job of the gateway in front of this service.
func RequireActor() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor := strings.TrimSpace(c.Request().Header.Get(ActorHeader))
			if actor == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, ActorHeader+" header is required")
			}
			c.Set(actorKey, actor)
			return next(c)
		}
	}
}

func Actor(c echo.Context) string {
	actor, _ := c.Get(actorKey).(string)
	return actor
}
