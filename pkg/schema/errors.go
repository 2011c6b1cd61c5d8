package schema

import (
	"fmt"

	"github.com/aretw0/weft/pkg/domain"
)

// ValidationError represents a single input validation failure.
type ValidationError struct {
	Key    string       // Input label
	Reason string       // Human-readable reason for failure
	Value  domain.Value // The value that failed validation
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Value.IsEmpty() {
		return fmt.Sprintf("field %q: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("field %q: %s (got %s)", e.Key, e.Reason, e.Value)
}

// Unwrap exposes the underlying type error, usually wrapping domain.ErrTypeMismatch.
func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return domain.ErrTypeMismatch
}

// AggregateError represents multiple validation failures.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		msg += fmt.Sprintf("  %d. %s\n", i+1, err.Error())
	}
	return msg
}

// Unwrap lets errors.Is and errors.As see every failure.
func (e *AggregateError) Unwrap() []error { return e.Errors }

// ValidationErrors returns all validation errors if err is an AggregateError.
// Otherwise returns nil.
func ValidationErrors(err error) []error {
	if aggr, ok := err.(*AggregateError); ok {
		return aggr.Errors
	}
	return nil
}
