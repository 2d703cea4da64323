package model

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	// ErrPagination is a ValidationError raised for out-of-range from/size.
	ErrPagination = fmt.Errorf("pagination: %w", ErrValidation)
)

// Error is the business error surfaced to callers.
type Error struct {
	Kind    error
	Message string
	Meta    map[string]string

	// Partial carries the effects that were persisted before a moderation
	// batch failed on capacity exhaustion.
	Partial *StatusUpdateResult
}

func (e *Error) Error() string {
	if len(e.Meta) == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s (%v)", e.Kind, e.Message, e.Meta)
}

func (e *Error) Unwrap() error { return e.Kind }

func Validation(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) error {
	return &Error{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

func Pagination(format string, args ...any) error {
	return &Error{Kind: ErrPagination, Message: fmt.Sprintf(format, args...)}
}
