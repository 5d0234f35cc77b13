package provider

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a provider failure for retry purposes.
type ErrorKind string

const (
	// ErrorKindTransient marks failures worth retrying (timeouts, rate
	// limits, 5xx responses).
	ErrorKindTransient ErrorKind = "transient"
	// ErrorKindPermanent marks failures that will not succeed on retry
	// (bad credentials, invalid request, missing binary).
	ErrorKindPermanent ErrorKind = "permanent"
)

// Error is a classified provider failure.
type Error struct {
	Kind     ErrorKind
	Provider string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider %s: %s failure: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewTransient wraps err as a retryable provider failure.
func NewTransient(provider string, err error) *Error {
	return &Error{Kind: ErrorKindTransient, Provider: provider, Err: err}
}

// NewPermanent wraps err as a non-retryable provider failure.
func NewPermanent(provider string, err error) *Error {
	return &Error{Kind: ErrorKindPermanent, Provider: provider, Err: err}
}

// IsPermanent returns true if err is classified as permanent.
func IsPermanent(err error) bool {
	var perr *Error
	return errors.As(err, &perr) && perr.Kind == ErrorKindPermanent
}

// IsTransient returns true if err is classified as transient.
func IsTransient(err error) bool {
	var perr *Error
	return errors.As(err, &perr) && perr.Kind == ErrorKindTransient
}
