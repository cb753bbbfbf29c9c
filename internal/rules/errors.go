package rules

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation was rejected.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindGuard         Kind = "guard"
	KindConfiguration Kind = "configuration"
	KindNotFound      Kind = "not_found"
	KindUsage         Kind = "usage"
)

// Sentinels for errors.Is matching on Kind.
var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrGuard         = &Error{Kind: KindGuard}
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrUsage         = &Error{Kind: KindUsage}
)

// Error is a business-rule rejection. Error() returns Message verbatim so the
// reason can be shown to users unchanged.
type Error struct {
	Kind    Kind   `json:"kind"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

// Is matches any *Error of the same Kind, so errors.Is(err, ErrGuard) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func Validation(field, msg string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: msg}
}

func Guard(msg string) *Error {
	return &Error{Kind: KindGuard, Message: msg}
}

func Configuration(msg string) *Error {
	return &Error{Kind: KindConfiguration, Message: msg}
}

func NotFound(what string, id fmt.Stringer) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %s not found", what, id)}
}

func Usage(msg string) *Error {
	return &Error{Kind: KindUsage, Message: msg}
}

// KindOf returns the Kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
