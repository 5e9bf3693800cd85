package core

import "github.com/pkg/errors"

var (
	// ErrPermissionDenied is returned by services when the acting user may not perform an operation.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNotFound is the common parent of every domain "not found" error.
	ErrNotFound = errors.New("not found")
)

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

// NewFieldError is a shortcut for a ValidationError on a single field.
func NewFieldError(field, msg string) error {
	return &ValidationError{Err: errors.New(msg), Fields: []FieldError{{Field: field, Error: msg}}}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// NotFoundError wraps a domain specific "not found" message while still matching ErrNotFound.
type NotFoundError struct {
	msg string
}

func NewNotFoundError(msg string) error {
	return &NotFoundError{msg: msg}
}

func (err *NotFoundError) Error() string { return err.msg }

// IsNotFound reports whether the cause of err is a "not found" error.
func IsNotFound(err error) bool {
	switch errors.Cause(err).(type) {
	case *NotFoundError:
		return true
	}
	return errors.Cause(err) == ErrNotFound
}

// ConflictError reports a write that lost against a concurrent change of the same record.
type ConflictError struct {
	msg string
}

func NewConflictError(msg string) error {
	return &ConflictError{msg: msg}
}

func (err *ConflictError) Error() string { return err.msg }

func IsConflict(err error) bool {
	_, ok := errors.Cause(err).(*ConflictError)
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
