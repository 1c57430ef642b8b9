// Package apperr holds the error taxonomy shared by services and the HTTP layer:
// not-found, validation, external service and render failures.
package apperr

import (
	"fmt"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific field or row.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// NotFoundError never says which lookup failed; Resource is for logs only.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string { return "not found" }

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if e.Err == nil {
		return "validation failed"
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ExternalError is a non-success answer (or no answer) from a gateway.
type ExternalError struct {
	Provider string
	Code     string
	Message  string
	Err      error
}

func (e *ExternalError) Error() string {
	s := fmt.Sprintf("%s: code=%s", e.Provider, e.Code)
	if e.Message != "" {
		s += " " + e.Message
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *ExternalError) Unwrap() error { return e.Err }

// RenderError marks a single record that could not be rendered as-is.
type RenderError struct {
	Record string
	Err    error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.Record, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

func NotFound(resource string) error {
	return errors.WithStack(&NotFoundError{Resource: resource})
}

func Validation(msg string, fields ...FieldError) error {
	return errors.WithStack(&ValidationError{Err: errors.New(msg), Fields: fields})
}

func External(provider, code, msg string, cause error) error {
	return errors.WithStack(&ExternalError{Provider: provider, Code: code, Message: msg, Err: cause})
}

func Render(record string, cause error) error {
	return &RenderError{Record: record, Err: cause}
}

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func AsValidation(err error) (*ValidationError, bool) {
	var e *ValidationError
	ok := errors.As(err, &e)
	return e, ok
}

func AsExternal(err error) (*ExternalError, bool) {
	var e *ExternalError
	ok := errors.As(err, &e)
	return e, ok
}

// Wrap re-exports pkg/errors wrapping so callers need one import.
func Wrap(err error, msg string) error { return errors.Wrap(err, msg) }
