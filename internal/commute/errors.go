package commute

import (
	"errors"
	"fmt"
)

// InputFormatError reports a user input that does not parse for the current
// dialogue step. It never leaves the dialogue layer; the user is re-prompted
// in the same state.
type InputFormatError struct {
	Field string
	Value string
}

// Error implements the error interface.
func (e *InputFormatError) Error() string {
	return fmt.Sprintf("invalid %s: %q", e.Field, e.Value)
}

// PastTimeError reports a target timestamp that is not strictly in the
// future. Like InputFormatError it only ever produces a re-prompt.
type PastTimeError struct {
	Value string
}

// Error implements the error interface.
func (e *PastTimeError) Error() string {
	return fmt.Sprintf("target time %s is not in the future", e.Value)
}

// ExternalAPIError reports a routing response whose status was
// not the success sentinel.
type ExternalAPIError struct {
	Status string
}

// Error implements the error interface.
func (e *ExternalAPIError) Error() string {
	return fmt.Sprintf("routing API returned status %s", e.Status)
}

// MalformedResponseError reports a routing response missing structure
// the contract promises.
type MalformedResponseError struct {
	Field string
}

// Error implements the error interface.
func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("routing API response missing %s", e.Field)
}

// UnavailableError reports a network-level failure reaching an upstream service.
type UnavailableError struct {
	Err error
}

// Error implements the error interface.
func (e *UnavailableError) Error() string {
	return fmt.Sprintf("routing API unavailable: %v", e.Err)
}

// Unwrap exposes the transport error for errors.Is checks.
func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// IsRecoverable reports whether the error only warrants a re-prompt in the
// current dialogue state, as opposed to discarding the session.
func IsRecoverable(err error) bool {
	var formatErr *InputFormatError
	var pastErr *PastTimeError
	return errors.As(err, &formatErr) || errors.As(err, &pastErr)
}
