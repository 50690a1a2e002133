package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks malformed or empty usage data.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDivisionUndefined marks an entity whose mean usage is zero.
	ErrDivisionUndefined = errors.New("division undefined: mean usage is zero")
	// ErrInputTooLarge marks an analysis request above the configured record bound.
	ErrInputTooLarge = errors.New("input exceeds maximum record count")
)

const (
	FailureInvalidInput      = "invalid_input"
	FailureDivisionUndefined = "division_undefined"
	FailureUnknown           = "unknown"
)

// EntityError ties an analysis error to the entity and level it happened on.
type EntityError struct {
	Level    Level
	EntityID string
	Err      error
}

func (e *EntityError) Error() string {
	if e.EntityID == "" {
		return fmt.Sprintf("%s: %v", e.Level, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Level, e.EntityID, e.Err)
}

func (e *EntityError) Unwrap() error {
	return e.Err
}

// FailureFromError converts an analysis error into its serializable form.
func FailureFromError(level Level, entityID string, err error) EntityFailure {
	var entityErr *EntityError
	if errors.As(err, &entityErr) {
		level = entityErr.Level
		entityID = entityErr.EntityID
	}

	kind := FailureUnknown
	switch {
	case errors.Is(err, ErrDivisionUndefined):
		kind = FailureDivisionUndefined
	case errors.Is(err, ErrInvalidInput):
		kind = FailureInvalidInput
	}

	return EntityFailure{
		Level:    level,
		EntityID: entityID,
		Kind:     kind,
		Message:  err.Error(),
	}
}
