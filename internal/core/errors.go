package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed cleaning run. Every kind is terminal for the
// run that produced it; the engine never retries.
type ErrorKind string

const (
	KindEmptyInput           ErrorKind = "empty_input"
	KindInvalidInput         ErrorKind = "invalid_input"
	KindUnsupportedFeature   ErrorKind = "unsupported_feature"
	KindMissingRequiredField ErrorKind = "missing_required_field"
)

// Error is the single error type returned by the engine.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error // Optional underlying cause
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind, so errors.Is(err, ErrEmptyInput) works for any message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Sentinels for errors.Is comparisons.
var (
	ErrEmptyInput           = &Error{Kind: KindEmptyInput}
	ErrInvalidInput         = &Error{Kind: KindInvalidInput}
	ErrUnsupportedFeature   = &Error{Kind: KindUnsupportedFeature}
	ErrMissingRequiredField = &Error{Kind: KindMissingRequiredField}
)

func emptyInput(format string, args ...any) error {
	return &Error{Kind: KindEmptyInput, Message: fmt.Sprintf(format, args...)}
}

func invalidInput(cause error, format string, args ...any) error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...), Err: cause}
}

func unsupported(format string, args ...any) error {
	return &Error{Kind: KindUnsupportedFeature, Message: fmt.Sprintf(format, args...)}
}

// MissingField reports a blank caller-supplied parameter.
func MissingField(name string) error {
	return &Error{Kind: KindMissingRequiredField, Message: fmt.Sprintf("missing required field %q", name)}
}

// KindOf returns the engine error kind of err, or "" if err did not come
// from the engine.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// InvalidOption reports a caller-supplied option value the engine cannot use.
func InvalidOption(name, value, reason string) error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf("invalid %s %q: %s", name, value, reason)}
}
