// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reflexion

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration reports an invalid loop setup: a non-positive
	// iteration bound, a missing adapter, or an empty question.
	ErrConfiguration = errors.New("configuration error")

	// ErrMalformedOutput reports an adapter result that does not match the
	// expected structured shape.
	ErrMalformedOutput = errors.New("malformed output")

	// ErrAdapterFailure reports a responder, resolver, or revisor call that
	// failed outright.
	ErrAdapterFailure = errors.New("adapter failure")

	// ErrNoDraft is returned when revise runs on a state without a draft.
	ErrNoDraft = errors.New("revise requires a draft answer")
)

// StepError is returned by Run when a node fails. State is the last state
// successfully produced before the failure; it is diagnostic only.
type StepError struct {
	Step  Step
	State LoopState
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s step: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Malformed builds an ErrMalformedOutput error. Adapters call it when a
// response fails validation.
func Malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedOutput, fmt.Sprintf(format, args...))
}

// classify tags adapter errors that are not already categorized as
// ErrAdapterFailure.
func classify(err error) error {
	if errors.Is(err, ErrMalformedOutput) || errors.Is(err, ErrAdapterFailure) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrAdapterFailure, err)
}
