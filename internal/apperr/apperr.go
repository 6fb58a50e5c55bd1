package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies failures surfaced by the workbench.
type Kind string

const (
	SchemaInsufficient Kind = "schema_insufficient"
	NoData             Kind = "no_data"
	EmptySelection     Kind = "empty_selection"
	ServiceError       Kind = "service_error"
	StorageError       Kind = "storage_error"
	Busy               Kind = "busy"
	Stale              Kind = "stale"
)

// Error is a kinded error carrying a flat, human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// New builds an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind && other.Message == ""
}

// Sentinels for errors.Is checks.
var (
	ErrSchemaInsufficient = &Error{Kind: SchemaInsufficient}
	ErrNoData             = &Error{Kind: NoData}
	ErrEmptySelection     = &Error{Kind: EmptySelection}
	ErrService            = &Error{Kind: ServiceError}
	ErrStorage            = &Error{Kind: StorageError}
	ErrBusy               = &Error{Kind: Busy}
	ErrStale              = &Error{Kind: Stale}
)

// KindOf reports the kind of err, or "" when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Servicef formats a ServiceError message.
func Servicef(format string, args ...any) *Error {
	return New(ServiceError, fmt.Sprintf(format, args...))
}
