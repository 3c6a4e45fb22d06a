package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jiseti/reporting-api/internal/policy"
	"github.com/jiseti/reporting-api/internal/repository"
)

// UserHandler serves the admin-only citizen listing.
type UserHandler struct {
	Users *repository.UserRepo
}

func NewUserHandler(users *repository.UserRepo) *UserHandler {
	if users == nil {
		panic("nil repository passed to NewUserHandler")
	}
	return &UserHandler{Users: users}
}

type userResp struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// List handles GET /users.  Admins see every citizen account; password
// hashes never leave the repository layer.
func (h *UserHandler) List(c echo.Context) error {
	id, err := identityFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if err := policy.CanListUsers(id); err != nil {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only admins can list users"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	users, err := h.Users.ListCitizens(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list users failed"})
	}
	out := make([]userResp, 0, len(users))
	for _, u := range users {
		out = append(out, userResp{ID: u.ID, Name: u.Name, Email: u.Email})
	}
	return c.JSON(http.StatusOK, out)
}
