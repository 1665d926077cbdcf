// Package validation schedules debounced validation of the current
// specification and tracks the resulting status.
package validation

import (
	"context"
	"fmt"

	"infranest/internal/dsl"
)

// Status is the coordinator state.
type Status int

const (
	// StatusIdle means nothing has been observed yet.
	StatusIdle Status = iota
	// StatusPending means a change is waiting for, or undergoing, validation.
	StatusPending
	StatusValid
	StatusInvalid
)

var statusNames = [...]string{"idle", "pending", "valid", "invalid"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", int(s))
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Result is the verdict of the external validator, the sole authority on
// validity.
type Result struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// State is a snapshot of the coordinator.
type State struct {
	Status Status `json:"status"`
	// Result is set for StatusValid and StatusInvalid.
	Result *Result `json:"result,omitempty"`
	// Generation is the edit counter value this state belongs to.
	Generation uint64 `json:"generation"`
	// Err is the transport failure behind a synthetic Invalid result.
	Err error `json:"-"`
}

// Validator classifies a specification. Transport failures, including a
// context deadline, are returned as errors.
type Validator interface {
	Validate(ctx context.Context, spec dsl.Specification) (Result, error)
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(ctx context.Context, spec dsl.Specification) (Result, error)

func (f ValidatorFunc) Validate(ctx context.Context, spec dsl.Specification) (Result, error) {
	return f(ctx, spec)
}
