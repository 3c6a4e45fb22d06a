// Package repository is the persistence layer.  Each repository wraps a
// *sql.DB, speaks hand-written SQL and returns sentinel errors so that
// handlers can map failures to precise HTTP responses.  Repositories do
// not enforce authorization or lifecycle rules; that is the policy
// package's job.  Mutations that must not interleave (status changes,
// field patches, cascading deletes) run against a *sql.Tx supplied by
// the caller.
package repository

import "errors"

// ErrRecordNotFound is returned when the requested record id does not
// exist.  Handlers translate it into HTTP 404.
var ErrRecordNotFound = errors.New("record not found")

// ErrUserNotFound is returned when a user id or email matches no row.
var ErrUserNotFound = errors.New("user not found")
