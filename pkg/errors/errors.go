// Package errors defines the error kinds shared across the desk and their mapping to RFC 7807 problem details.
package errors

import (
	"errors"
	"fmt"
)

// Standard error functions
var (
	Is   = errors.Is
	As   = errors.As
	Join = errors.Join
)

// Error kinds
const (
	KindNotFound        = "NotFound"
	KindValidation      = "ValidationError"
	KindFeedUnavailable = "FeedUnavailable"
	KindModel           = "ModelError"
	KindUnauthorized    = "Unauthorized"
)

// Sentinels for errors.Is checks. Is compares kinds, so any error created
// from these with Explain or Wrap still matches.
var (
	NotFound        = NewWithKind(KindNotFound)
	Invalid         = NewWithKind(KindValidation)
	FeedUnavailable = NewWithKind(KindFeedUnavailable)
	ModelError      = NewWithKind(KindModel)
	Unauthorized    = NewWithKind(KindUnauthorized)
)

// FieldError represents a validation error for a specific field
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag,omitempty"`
	Message string `json:"message"`
}

func (f FieldError) Error() string {
	return fmt.Sprintf("%s: %s", f.Field, f.Message)
}

// Error is a custom error type carrying a kind and optional field causes
type Error struct {
	Kind    string       `json:"kind"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields,omitempty"`

	cause error
}

var _ error = (*Error)(nil)

func NewWithKind(kind string) *Error {
	return &Error{Kind: kind}
}

// Error implements error
func (e *Error) Error() string {
	str := fmt.Sprintf("[%s]", e.Kind)
	if e.Message != "" {
		str += " " + e.Message
	}
	if len(e.Fields) > 0 {
		str += fmt.Sprintf(" (%s)", e.Fields[0].Error())
	}
	if e.cause != nil {
		str += fmt.Sprintf(": %s", e.cause)
	}
	return str
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Wrap returns a copy of the error with the given cause
func (e *Error) Wrap(cause error) *Error {
	err := *e
	err.cause = cause
	return &err
}

// Explain makes a copy of the error with given message
func (e *Error) Explain(message string, args ...any) *Error {
	err := *e
	err.Message = fmt.Sprintf(message, args...)
	return &err
}

// WithField returns a copy of error with the field appended.
func (e *Error) WithField(field, tag, message string) *Error {
	err := *e
	err.Fields = append(append([]FieldError(nil), e.Fields...), FieldError{Field: field, Tag: tag, Message: message})
	return &err
}

// WithFields returns a copy of error with fields replaced.
func (e *Error) WithFields(fields []FieldError) *Error {
	err := *e
	err.Fields = fields
	return &err
}

// Is implements the needed interface for errors.Is
// It checks kind for equality
func (e *Error) Is(target error) bool {
	if e == nil {
		return target == nil
	}
	if other, ok := target.(*Error); ok {
		return other.Kind == e.Kind
	}
	return false
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) string {
	var e *Error
	if As(err, &e) {
		return e.Kind
	}
	return ""
}
