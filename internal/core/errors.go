package core

import (
	"errors"
	"fmt"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("not authorized")
	ErrNotFound     = errors.New("not found")
)

// ValidationError reports a single malformed or out-of-range field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// AuthorizationError is returned when an entity exists but belongs to another owner.
type AuthorizationError struct {
	Entity string
	ID     int64
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("%s %d: not owned by caller", e.Entity, e.ID)
}

func (e *AuthorizationError) Unwrap() error { return ErrUnauthorized }

type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// CheckOwner returns an AuthorizationError when entityOwner differs from owner.
func CheckOwner(entity string, id, entityOwner, owner int64) error {
	if entityOwner != owner {
		return &AuthorizationError{Entity: entity, ID: id}
	}
	return nil
}
