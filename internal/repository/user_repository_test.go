package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiseti/reporting-api/internal/model"
)

const testBcryptCost = 4 // minimum cost keeps tests fast

func TestUserCreateDuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry 'a@x.com' for key 'users.email'"))

	_, err := repo.Create(context.Background(), "Asha", "a@x.com", "pw", model.RoleCitizen, nil, testBcryptCost)
	assert.ErrorIs(t, err, ErrEmailExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// The uniqueness constraint lives on the email column alone, so a
// second signup with the same address fails regardless of role.
func TestUserCreateDuplicateEmailAcrossRoles(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry 'a@x.com' for key 'users.email'"))

	n := "ADM-1"
	_, err := repo.Create(context.Background(), "Kip", "a@x.com", "pw", model.RoleAdmin, &n, testBcryptCost)
	assert.ErrorIs(t, err, ErrEmailExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserGetByEmailNormalizes(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	cols := []string{"id", "name", "email", "password_hash", "role", "admin_number", "created_at", "updated_at"}
	mock.ExpectQuery("SELECT .+ FROM users WHERE email=\\? LIMIT 1").
		WithArgs("a@x.com").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(1, "Asha", "a@x.com", "hash", "citizen", nil, time.Now(), time.Now()))

	u, err := repo.GetByEmail(context.Background(), "  A@X.com ")
	require.NoError(t, err)
	assert.Equal(t, model.RoleCitizen, u.Role)
	assert.Nil(t, u.AdminNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserGetByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery("SELECT .+ FROM users WHERE id=\\? LIMIT 1").
		WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), 42)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListCitizensExcludesAdmins(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id,name,email FROM users WHERE role=? ORDER BY id")).
		WithArgs("citizen").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}).
			AddRow(1, "Asha", "a@x.com").
			AddRow(2, "Biko", "b@x.com"))

	users, err := repo.ListCitizens(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Biko", users[1].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}
