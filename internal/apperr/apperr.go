package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels for the engine-wide error taxonomy. Callers classify with
// errors.Is; the HTTP and CLI layers map them to statuses and exit codes.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrIO         = errors.New("io failure")
	ErrRender     = errors.New("render failed")
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func NotFound(what string) error {
	return fmt.Errorf("%s: %w", what, ErrNotFound)
}

func IO(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrIO, err)
}

func Validation(message string, fields ...FieldError) error {
	if len(fields) == 0 {
		return fmt.Errorf("%s: %w", message, ErrValidation)
	}
	return fmt.Errorf("%s: %w", message, &ValidationErrors{Errors: fields})
}

// FieldError is one field-level failure surfaced by publish validation.
type FieldError struct {
	Path    string `json:"path"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []FieldError `json:"errors"`
}

func (v *ValidationErrors) Error() string {
	if v == nil || len(v.Errors) == 0 {
		return ErrValidation.Error()
	}
	return fmt.Sprintf("%s: %d error(s), first: %s: %s", ErrValidation.Error(), len(v.Errors), v.Errors[0].Path, v.Errors[0].Message)
}

func (v *ValidationErrors) Unwrap() error { return ErrValidation }

func (v *ValidationErrors) Add(path, field, message string) {
	v.Errors = append(v.Errors, FieldError{Path: path, Field: field, Message: message})
}

func (v *ValidationErrors) Empty() bool { return v == nil || len(v.Errors) == 0 }

// HTTPStatus maps taxonomy errors to response statuses.
func HTTPStatus(err error) int {
	var ae *Error
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae.Status
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrIO):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Code returns the short machine code carried in the error envelope.
func Code(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Code != "" {
		return ae.Code
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "validation_failed"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrIO):
		return "io_failure"
	case errors.Is(err, ErrRender):
		return "render_error"
	default:
		return "internal"
	}
}

// ExitCode maps errors to CLI exit codes: 0 success, 1 validation
// failure, 2 not found, 3 I/O failure.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrValidation):
		return 1
	case errors.Is(err, ErrNotFound):
		return 2
	default:
		return 3
	}
}
