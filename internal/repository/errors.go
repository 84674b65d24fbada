// Package repository defines the persistence layer: MySQL-backed users and
// donations, and the Redis-backed staging stores for signup codes,
// password-reset codes and refresh tokens.  The sentinel values below let
// the service layer distinguish failure scenarios without inspecting
// driver errors.
package repository

import "errors"

// ErrNotFound is returned when a users/payments lookup matches no row.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when an insert or update collides with the
// unique index on users.email.
var ErrEmailExists = errors.New("email already exists")

// ErrStagedNotFound is returned when no staged record exists for a key,
// either because none was requested or because its TTL elapsed.
var ErrStagedNotFound = errors.New("staged record not found")

// ErrCodeMismatch is returned when a supplied one-time code does not equal
// the staged one.  The staged record is left in place.
var ErrCodeMismatch = errors.New("code mismatch")

// ErrConflict is returned when a conditional update cannot be applied
// because the row is no longer in the expected state.
var ErrConflict = errors.New("conflict")
