// Package policy holds the authorization rules for the record lifecycle.
// Every mutating operation is validated here before the repository layer
// is allowed to touch the database.  The rules are pure functions over an
// Identity and the record's current state, so handlers stay thin and the
// whole state machine is testable without a database.
package policy

import (
	"errors"

	"github.com/jiseti/reporting-api/internal/model"
)

// Sentinel errors returned by the policy checks.  Handlers translate all
// of them except ErrInvalidStatus into HTTP 403; the distinction between
// a role failure, an ownership failure and a finalized record is kept so
// responses can carry a precise reason.
var (
	ErrCitizenOnly   = errors.New("citizen role required")
	ErrAdminOnly     = errors.New("admin role required")
	ErrNotOwner      = errors.New("record belongs to another user")
	ErrNotDraft      = errors.New("record is no longer a draft")
	ErrInvalidStatus = errors.New("invalid status value")
)

// Identity is the authenticated caller as produced by the JWT middleware.
// The policy trusts it completely; token validation happened upstream.
type Identity struct {
	UserID uint64
	Role   model.Role
}

// CanCreateRecord permits record creation for citizens only.  Admins
// review reports, they do not file them, so a record's owner is always
// a citizen.
func CanCreateRecord(id Identity) error {
	if id.Role != model.RoleCitizen {
		return ErrCitizenOnly
	}
	return nil
}

// CanMutateRecord gates edit, delete and add-media.  The caller must be
// a citizen, must own the record, and the record must still be a draft.
// Ownership is checked before status: "not yours" is the more fundamental
// rejection than "already finalized".
func CanMutateRecord(id Identity, rec model.Record) error {
	if id.Role != model.RoleCitizen {
		return ErrCitizenOnly
	}
	if rec.UserID != id.UserID {
		return ErrNotOwner
	}
	if rec.Status.Finalized() {
		return ErrNotDraft
	}
	return nil
}

// CanSetStatus gates the admin status transition.  The raw target is
// parsed here so that an unknown value (including "draft") surfaces as
// ErrInvalidStatus rather than silently writing garbage.  Transitions
// between the three review statuses are unrestricted; there is no way
// back to draft.
func CanSetStatus(id Identity, raw string) (model.Status, error) {
	if id.Role != model.RoleAdmin {
		return "", ErrAdminOnly
	}
	status, ok := model.ParseStatus(raw)
	if !ok {
		return "", ErrInvalidStatus
	}
	return status, nil
}

// CanListUsers restricts the citizen-account listing to admins.
func CanListUsers(id Identity) error {
	if id.Role != model.RoleAdmin {
		return ErrAdminOnly
	}
	return nil
}
