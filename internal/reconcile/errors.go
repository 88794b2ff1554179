package reconcile

import (
	"errors"
	"fmt"
)

// ErrInvalidBatch is returned when a request is rejected before any storage
// mutation.
var ErrInvalidBatch = errors.New("invalid batch")

// ValidationError describes a single rejected field. Index is the position of
// the offending row in the batch, or -1 for request-level fields.
type ValidationError struct {
	Index   int
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("transactions[%d].%s: %s", e.Index, e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidBatch
}

func invalid(index int, field, format string, args ...any) error {
	return &ValidationError{Index: index, Field: field, Message: fmt.Sprintf(format, args...)}
}
