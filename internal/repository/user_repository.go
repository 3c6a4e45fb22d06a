package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jiseti/reporting-api/internal/model"
	"github.com/jiseti/reporting-api/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

// Create inserts a user and returns its ID.  The email uniqueness
// constraint spans both roles: a citizen and an admin can never share
// an address.  adminNumber must be non-nil when role is admin.
func (r *UserRepo) Create(ctx context.Context, name, email, password string, role model.Role, adminNumber *string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, role, admin_number) VALUES (?,?,?,?,?)",
		name, email, hash, string(role), adminNumber)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanUser(r.DB.QueryRowContext(ctx,
		"SELECT id,name,email,password_hash,role,admin_number,created_at,updated_at FROM users WHERE email=? LIMIT 1",
		email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanUser(r.DB.QueryRowContext(ctx,
		"SELECT id,name,email,password_hash,role,admin_number,created_at,updated_at FROM users WHERE id=? LIMIT 1",
		id))
}

func (r *UserRepo) scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	var adminNumber sql.NullString
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &adminNumber, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, err
	}
	if adminNumber.Valid {
		n := adminNumber.String
		u.AdminNumber = &n
	}
	return u, nil
}

// ListCitizens returns all citizen accounts ordered by id.  Admin
// accounts are excluded; this backs the admin-only /users listing.
func (r *UserRepo) ListCitizens(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,name,email FROM users WHERE role=? ORDER BY id", string(model.RoleCitizen))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := make([]model.User, 0)
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			return nil, err
		}
		u.Role = model.RoleCitizen
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}
