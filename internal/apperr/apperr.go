// Package apperr defines the error taxonomy shared by the core services.
// Every failure a caller can act on is one of five kinds; the transport
// layer maps kinds to status codes and the core never retries any of them.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// KindValidation marks malformed input, always caller-correctable.
	KindValidation Kind = iota
	// KindDenied marks an authorization failure.
	KindDenied
	// KindNotFound marks a missing organization, membership or movement.
	KindNotFound
	// KindConflict marks a uniqueness violation.
	KindConflict
	// KindIntegrity marks a cascade or renumbering step that failed
	// mid-sequence. Fatal to the enclosing operation.
	KindIntegrity
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDenied:
		return "denied"
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	case KindIntegrity:
		return "integrity"
	}
	return "unknown"
}

// Error is a classified application error. Field is set for validation
// errors to name the offending input.
type Error struct {
	Kind   Kind
	Field  string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(field, reason string) error {
	return &Error{Kind: KindValidation, Field: field, Reason: reason}
}

func Denied(reason string) error {
	return &Error{Kind: KindDenied, Reason: reason}
}

func NotFound(reason string) error {
	return &Error{Kind: KindNotFound, Reason: reason}
}

func Conflict(reason string) error {
	return &Error{Kind: KindConflict, Reason: reason}
}

// Integrity wraps err as a partial-state failure.
func Integrity(reason string, err error) error {
	return &Error{Kind: KindIntegrity, Reason: reason, Err: err}
}

// KindOf returns the kind of err, or ok=false for unclassified errors.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Is reports whether err carries the given kind.
func Is(err error, k Kind) bool {
	kind, ok := KindOf(err)
	return ok && kind == k
}
