package message

import (
	"errors"
	"fmt"
)

var (
	ErrTrailingElements = errors.New("message: unexpected trailing elements")
)

// MalformedTagError reports a sequence whose first element is missing or is not
// an unsigned integer. It is raised before any type-specific decoding.
type MalformedTagError struct {
	Raw List
}

func (e *MalformedTagError) Error() string {
	if len(e.Raw) == 0 {
		return "message: empty sequence has no type tag"
	}
	return fmt.Sprintf("message: malformed type tag %v", e.Raw[0])
}

// TypeMismatchError reports a decode into the wrong catalog type.
type TypeMismatchError struct {
	Expected Type
	Actual   Type
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("message: %s has invalid tag %d, the tag for %s must be %d",
		e.Expected, uint64(e.Actual), e.Expected, uint64(e.Expected))
}

// FieldError reports a missing or wrongly shaped field.
type FieldError struct {
	Type   Type
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("message: %s.%s %s", e.Type, e.Field, e.Reason)
}

// NoSuchErrorCauseError reports an Error message whose cause tag is not one of
// the request-bearing types. Raw keeps the whole sequence for diagnostics.
type NoSuchErrorCauseError struct {
	Cause uint64
	Raw   List
}

func (e *NoSuchErrorCauseError) Error() string {
	return fmt.Sprintf("message: no such error-causing type %d in %v", e.Cause, e.Raw)
}
