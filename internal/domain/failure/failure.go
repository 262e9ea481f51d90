// Package failure defines the error taxonomy shared by every layer of the
// claims workflow. A rejected operation is always a *Error whose Kind tells
// the caller how to recover and whose Reason names the rule that was broken.
package failure

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure by how the caller is expected to recover
type Kind string

const (
	KindValidation    Kind = "validation-error"
	KindAuthorization Kind = "authorization-error"
	KindConflict      Kind = "conflict-error"
	KindTransport     Kind = "transport-error"
)

// String returns the string representation of the kind
func (k Kind) String() string {
	return string(k)
}

// Reason names the specific rule a rejected operation violated
type Reason string

const (
	ReasonWrongRole        Reason = "wrong-role"
	ReasonWrongState       Reason = "wrong-state"
	ReasonAlreadyPaid      Reason = "already-paid"
	ReasonDuplicatePayment Reason = "duplicate-payment"
	ReasonNotOwner         Reason = "not-owner"
	ReasonNotFound         Reason = "not-found"
	ReasonInvalidField     Reason = "invalid-field"
	ReasonUnauthenticated  Reason = "unauthenticated"
	ReasonUnavailable      Reason = "unavailable"
)

// FieldError describes a validation failure for a single field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the single error type returned by workflow operations
type Error struct {
	Kind    Kind
	Reason  Reason
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Reason != "" {
		b.WriteString(" (")
		b.WriteString(string(e.Reason))
		b.WriteString(")")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Fields) > 0 {
		parts := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			parts = append(parts, f.Field+" "+f.Message)
		}
		b.WriteString(" [")
		b.WriteString(strings.Join(parts, "; "))
		b.WriteString("]")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind and, when set on the target, by reason
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

// Validation builds a validation failure listing every failing field
func Validation(fields ...FieldError) *Error {
	return &Error{
		Kind:    KindValidation,
		Reason:  ReasonInvalidField,
		Message: fmt.Sprintf("%d invalid field(s)", len(fields)),
		Fields:  fields,
	}
}

// NotFound builds a validation failure for a reference that does not resolve
func NotFound(field, format string, args ...interface{}) *Error {
	msg := fmt.Sprintf(format, args...)
	return &Error{
		Kind:    KindValidation,
		Reason:  ReasonNotFound,
		Message: msg,
		Fields:  []FieldError{{Field: field, Message: "not found"}},
	}
}

// Denied builds an authorization failure
func Denied(reason Reason, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    KindAuthorization,
		Reason:  reason,
		Message: fmt.Sprintf(format, args...),
	}
}

// Conflict builds a failure for state that changed underneath the caller
func Conflict(reason Reason, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    KindConflict,
		Reason:  reason,
		Message: fmt.Sprintf(format, args...),
	}
}

// Transport wraps a collaborator failure (store, file system, external API)
func Transport(err error, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    KindTransport,
		Reason:  ReasonUnavailable,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// As extracts a *Error from err
func As(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// KindOf returns the kind of err; unclassified errors count as transport errors
func KindOf(err error) Kind {
	if fe, ok := As(err); ok {
		return fe.Kind
	}
	return KindTransport
}

// ReasonOf returns the reason of err, or "" when err is not a *Error
func ReasonOf(err error) Reason {
	if fe, ok := As(err); ok {
		return fe.Reason
	}
	return ""
}

// Ensure classifies err: a *Error passes through, anything else becomes a transport failure
func Ensure(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}
	return Transport(err, format, args...)
}
