package handler // handler defines http handlers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jiseti/reporting-api/internal/model"
	"github.com/jiseti/reporting-api/internal/policy"
)

// reqContext bounds database work to five seconds per request.
func reqContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

// identityFrom rebuilds the caller's Identity from the claims the JWT
// middleware stored in the context.  JWT numeric claims decode as
// float64, so a type switch is required.
func identityFrom(c echo.Context) (policy.Identity, error) {
	var id policy.Identity
	switch t := c.Get("user_id").(type) {
	case uint64:
		id.UserID = t
	case int:
		id.UserID = uint64(t)
	case int64:
		id.UserID = uint64(t)
	case float64:
		id.UserID = uint64(t)
	case string:
		n, err := strconv.ParseUint(t, 10, 64)
		if err != nil {
			return policy.Identity{}, errors.New("invalid user_id in context")
		}
		id.UserID = n
	default:
		return policy.Identity{}, errors.New("missing user_id in context")
	}
	role, ok := c.Get("role").(string)
	if !ok || !model.Role(role).Valid() {
		return policy.Identity{}, errors.New("invalid role in context")
	}
	id.Role = model.Role(role)
	return id, nil
}

// recordID parses the :id path parameter.
func recordID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid record id")
	}
	return id, nil
}
