package core

import "github.com/pkg/errors"

// ErrUnauthenticated is returned by any mutating operation attempted while no
// identity is present. The operation is never started.
var ErrUnauthenticated = errors.New("user not authenticated")

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

func IsValidationError(err error) bool {
	_, ok := errors.Cause(err).(*ValidationError)
	return ok
}

// NotConfiguredError signals that an optional backend integration has no
// credentials. Reads degrade to empty results; writes fail with this error.
type NotConfiguredError struct {
	Integration string
}

func NewNotConfiguredError(integration string) error {
	return &NotConfiguredError{Integration: integration}
}

func (err NotConfiguredError) Error() string {
	return err.Integration + " is disabled: no credentials configured"
}

func IsNotConfigured(err error) bool {
	_, ok := errors.Cause(err).(*NotConfiguredError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
