package billing

import (
	"errors"
	"fmt"
)

// Sentinel errors of the billing domain. Concrete errors returned by the
// engine, the store, and the lifecycle manager match one of these with
// errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrInvalidRange = errors.New("invalid range")
)

// NotFoundError reports a missing entity.
type NotFoundError struct {
	Entity string
	ID     int64
}

// NotFound returns a NotFoundError for the given entity kind and id.
func NotFound(entity string, id int64) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// StateError reports an operation that the entity's current state forbids,
// e.g. leasing a room that is not vacant.
type StateError struct {
	Message string
}

// InvalidState returns a StateError with a formatted message.
func InvalidState(format string, args ...any) *StateError {
	return &StateError{Message: fmt.Sprintf(format, args...)}
}

func (e *StateError) Error() string { return e.Message }

func (e *StateError) Is(target error) bool { return target == ErrInvalidState }

// RangeError reports a lease whose end date is not after its start date.
type RangeError struct {
	Message string
}

func (e *RangeError) Error() string { return e.Message }

func (e *RangeError) Is(target error) bool { return target == ErrInvalidRange }

// ValidationError reports meter input the calculator refuses, such as a
// reading below the last recorded one.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
