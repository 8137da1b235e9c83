package schedule

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrOverrideNotFound = errors.New("availability override not found")
)

// ValidationError reports well-formed but semantically invalid input, such as
// an override dated in the past.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ScheduleValidationError rejects a whole weekly-schedule batch. It carries
// every violation found so the caller can fix all of them in one round trip.
type ScheduleValidationError struct {
	Violations []string
}

func (e *ScheduleValidationError) Error() string {
	return fmt.Sprintf("weekly schedule invalid: %s", strings.Join(e.Violations, "; "))
}
