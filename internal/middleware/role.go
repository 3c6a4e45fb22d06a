package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jiseti/reporting-api/internal/model"
)

// RequireRole enforces that the authenticated caller has one of the
// given roles.  It assumes JWTAuth already stored the "role" claim in
// the context; a missing or unknown role is rejected with 403.  The
// fine-grained checks (ownership, draft status) stay in the policy
// package; this gate only keeps whole route groups role-scoped.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[string(r)] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get("role").(string)
			if !ok || !allowed[role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
