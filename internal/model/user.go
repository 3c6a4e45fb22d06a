package model

import "time"

// Role tags a user as either an ordinary citizen or an administrator.
// The two kinds of account share a single `users` table distinguished
// by this value; admins additionally carry an admin number.
type Role string

const (
	RoleCitizen Role = "citizen"
	RoleAdmin   Role = "admin"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleCitizen || r == RoleAdmin
}

// User mirrors the `users` table.  PasswordHash holds the bcrypt digest
// of the credential; the plain password is never stored.  AdminNumber is
// nil for citizens and required (and unique) for admins.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Name         – display name.
//  Email        – unique email address across all roles.
//  PasswordHash – bcrypt hashed password.
//  Role         – citizen or admin.
//  AdminNumber  – staff number for admins (nullable).
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Name         string    // users.name
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         Role      // users.role
	AdminNumber  *string   // users.admin_number (nullable)
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and carries metadata for expiry and
// revocation.  The plain token is not stored; only its SHA-256 hash.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
