// Package persistence provides standardized error types for storage
// operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations use.
var (
	// ErrDraftNotFound indicates no flow draft exists for the identifier.
	ErrDraftNotFound = errors.New("flow draft not found")

	// ErrVersionNotFound indicates no flow version exists for the identifier.
	ErrVersionNotFound = errors.New("flow version not found")

	// ErrVersionConflict indicates a concurrent publish already claimed the
	// version number; the caller should recompute and retry.
	ErrVersionConflict = errors.New("version number already exists for draft")

	// ErrDeploymentNotFound indicates no deployment exists for the
	// (realm, flow type) pair.
	ErrDeploymentNotFound = errors.New("flow deployment not found")

	// ErrSessionNotFound indicates no authentication session exists for
	// the identifier.
	ErrSessionNotFound = errors.New("authentication session not found")

	// ErrStaleSession indicates an optimistic concurrency conflict: the
	// session changed since it was read.
	ErrStaleSession = errors.New("stale session, re-fetch")

	// ErrActionNotFound indicates no continuation ticket matches the token.
	ErrActionNotFound = errors.New("session action not found")

	// ErrActionConsumed indicates the continuation ticket was already used.
	ErrActionConsumed = errors.New("session action already consumed")
)

// StoreError wraps storage errors with operation context.
type StoreError struct {
	Op     string // Operation being performed (e.g. "GetByID", "Consume")
	Entity string // Entity kind (e.g. "flow_version", "auth_session")
	ID     string // Entity identifier, if applicable
	Err    error
}

func (e *StoreError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s %s: %v", e.Op, e.Entity, e.ID, e.Err)
	}

	return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewStoreError creates a storage error with context.
func NewStoreError(op, entity, id string, err error) *StoreError {
	return &StoreError{Op: op, Entity: entity, ID: id, Err: err}
}

// IsNotFound reports whether err is any of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrDraftNotFound) ||
		errors.Is(err, ErrVersionNotFound) ||
		errors.Is(err, ErrDeploymentNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrActionNotFound)
}
