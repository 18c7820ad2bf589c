package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfBounds means the point lies outside the constituency.
	ErrOutOfBounds = errors.New("location outside Lalganj constituency")
	// ErrValidation means a required field is missing or malformed.
	ErrValidation = errors.New("validation failed")
	// ErrStoreUnavailable means the persistence backend failed or is unreachable.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrBroadcastSend means a live connection refused a message.
	// It never leaves the hub.
	ErrBroadcastSend = errors.New("broadcast send failed")
)

// ValidationError describes a rejected field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// StoreError wraps a backend failure for operation Op.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStoreUnavailable, e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error { return []error{ErrStoreUnavailable, e.Err} }
