package engine

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced project, activity or
// material does not exist. Callers map it to a 404 or treat it as a
// no-op.
var ErrNotFound = errors.New("record not found")

// ValidationError reports invalid input: a progress regression, an
// out-of-range value, or an estimate that exceeds stock. No state is
// changed when one is returned.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationErrorf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
