package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiseti/reporting-api/internal/config"
	"github.com/jiseti/reporting-api/internal/repository"
	"github.com/jiseti/reporting-api/internal/utils"
)

var userCols = []string{"id", "name", "email", "password_hash", "role", "admin_number", "created_at", "updated_at"}

func newAuthHandler(t *testing.T) (*AuthHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	cfg := config.Config{
		JWTSecret:      "test-secret",
		AccessTTLMin:   15,
		RefreshTTLDays: 7,
		BcryptCost:     4, // keep the tests fast
	}
	return NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db)), mock
}

func TestSignupCitizen(t *testing.T) {
	h, mock := newAuthHandler(t)

	mock.ExpectExec("INSERT INTO users").
		WillReturnResult(sqlmock.NewResult(7, 1))

	c, rec := request(t, http.MethodPost,
		`{"name":"Wanjiku","email":"Wanjiku@Example.com","password":"hunter2"}`, 0, "")
	require.NoError(t, h.Signup(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(7), body["id"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSignupAdminNeedsAdminNumber(t *testing.T) {
	h, mock := newAuthHandler(t)

	c, rec := request(t, http.MethodPost,
		`{"name":"Otieno","email":"o@example.com","password":"pw","role":"admin"}`, 0, "")
	require.NoError(t, h.Signup(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "admin_number required", errorBody(t, rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSignupUnknownRole(t *testing.T) {
	h, mock := newAuthHandler(t)

	c, rec := request(t, http.MethodPost,
		`{"name":"x","email":"x@example.com","password":"pw","role":"superuser"}`, 0, "")
	require.NoError(t, h.Signup(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSignupDuplicateEmail(t *testing.T) {
	h, mock := newAuthHandler(t)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry 'x@example.com' for key 'users.email'"))

	c, rec := request(t, http.MethodPost,
		`{"name":"x","email":"x@example.com","password":"pw"}`, 0, "")
	require.NoError(t, h.Signup(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email already registered", errorBody(t, rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginUnknownEmail(t *testing.T) {
	h, mock := newAuthHandler(t)

	mock.ExpectQuery("SELECT .+ FROM users WHERE email=\\?").
		WithArgs("ghost@example.com").
		WillReturnRows(sqlmock.NewRows(userCols))

	c, rec := request(t, http.MethodPost,
		`{"email":"ghost@example.com","password":"pw"}`, 0, "")
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid credentials", errorBody(t, rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginWrongPassword(t *testing.T) {
	h, mock := newAuthHandler(t)

	hash, err := utils.HashPassword("correct horse", 4)
	require.NoError(t, err)
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT .+ FROM users WHERE email=\\?").
		WithArgs("w@example.com").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(1, "Wanjiku", "w@example.com", hash, "citizen", nil, now, now))

	c, rec := request(t, http.MethodPost,
		`{"email":"w@example.com","password":"battery staple"}`, 0, "")
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid credentials", errorBody(t, rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginIssuesTokenPair(t *testing.T) {
	h, mock := newAuthHandler(t)

	hash, err := utils.HashPassword("correct horse", 4)
	require.NoError(t, err)
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT .+ FROM users WHERE email=\\?").
		WithArgs("w@example.com").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(1, "Wanjiku", "w@example.com", hash, "citizen", nil, now, now))
	mock.ExpectExec("INSERT INTO refresh_tokens").
		WillReturnResult(sqlmock.NewResult(1, 1))

	c, rec := request(t, http.MethodPost,
		`{"email":"w@example.com","password":"correct horse"}`, 0, "")
	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp tokenResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AccessToken)
	assert.Len(t, resp.RefreshToken, 96)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshRotatesToken(t *testing.T) {
	h, mock := newAuthHandler(t)

	raw := "old-refresh-token"
	hash := utils.HashRefreshRaw(raw)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT user_id, expires_at, revoked_at FROM refresh_tokens").
		WithArgs(hash).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}).
			AddRow(1, now.Add(24*time.Hour), nil))
	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at=NOW\\(\\)").
		WithArgs(hash).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT .+ FROM users WHERE id=\\?").
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(1, "Wanjiku", "w@example.com", "irrelevant", "citizen", nil, now, now))
	mock.ExpectExec("INSERT INTO refresh_tokens").
		WillReturnResult(sqlmock.NewResult(2, 1))

	c, rec := request(t, http.MethodPost, `{"refresh_token":"old-refresh-token"}`, 0, "")
	require.NoError(t, h.Refresh(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp tokenResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEqual(t, raw, resp.RefreshToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshRejectsUnknownToken(t *testing.T) {
	h, mock := newAuthHandler(t)

	mock.ExpectQuery("SELECT user_id, expires_at, revoked_at FROM refresh_tokens").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}))

	c, rec := request(t, http.MethodPost, `{"refresh_token":"never-issued"}`, 0, "")
	require.NoError(t, h.Refresh(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
