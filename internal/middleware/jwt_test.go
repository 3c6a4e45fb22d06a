package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiseti/reporting-api/internal/model"
	"github.com/jiseti/reporting-api/internal/utils"
)

const testSecret = "unit-test-secret"

func echoRequest(t *testing.T, token string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/records", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestJWTAuthMissingToken(t *testing.T) {
	c, rec := echoRequest(t, "")
	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	require.NoError(t, JWTAuth(testSecret)(next)(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthGarbageToken(t *testing.T) {
	c, rec := echoRequest(t, "not-a-jwt")
	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	require.NoError(t, JWTAuth(testSecret)(next)(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthWrongSecret(t *testing.T) {
	at, err := utils.NewAccessToken("other-secret", 1, "citizen", 5)
	require.NoError(t, err)
	c, rec := echoRequest(t, at.Token)
	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	require.NoError(t, JWTAuth(testSecret)(next)(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthInjectsClaims(t *testing.T) {
	at, err := utils.NewAccessToken(testSecret, 42, "citizen", 5)
	require.NoError(t, err)
	c, rec := echoRequest(t, at.Token)

	called := false
	next := func(c echo.Context) error {
		called = true
		assert.Equal(t, float64(42), c.Get("user_id"))
		assert.Equal(t, "citizen", c.Get("role"))
		return c.NoContent(http.StatusOK)
	}
	require.NoError(t, JWTAuth(testSecret)(next)(c))
	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole(t *testing.T) {
	cases := []struct {
		name     string
		role     interface{}
		allowed  []model.Role
		wantCode int
	}{
		{"citizen passes citizen gate", "citizen", []model.Role{model.RoleCitizen}, http.StatusOK},
		{"admin passes mixed gate", "admin", []model.Role{model.RoleCitizen, model.RoleAdmin}, http.StatusOK},
		{"citizen blocked from admin gate", "citizen", []model.Role{model.RoleAdmin}, http.StatusForbidden},
		{"missing role blocked", nil, []model.Role{model.RoleCitizen}, http.StatusForbidden},
		{"non-string role blocked", 7, []model.Role{model.RoleCitizen}, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := echoRequest(t, "")
			if tc.role != nil {
				c.Set("role", tc.role)
			}
			next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
			require.NoError(t, RequireRole(tc.allowed...)(next)(c))
			assert.Equal(t, tc.wantCode, rec.Code)
		})
	}
}
