package access

import (
	"errors"
	"fmt"
)

// Kind classifies why a scan was not applied.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuthentication
	KindAuthorization
	KindScheduleViolation
	KindDuplicate
	KindNotFound
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication_failure"
	case KindAuthorization:
		return "authorization_failure"
	case KindScheduleViolation:
		return "schedule_violation"
	case KindDuplicate:
		return "duplicate_submission"
	case KindNotFound:
		return "not_found"
	case KindStore:
		return "store_failure"
	default:
		return "unknown"
	}
}

// Error is a denied or failed scan. Reason is safe to show to the person at the reader.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, KindStore for any untyped error and KindUnknown for nil.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindStore
}

// ReasonOf returns the caller-facing reason of err.
func ReasonOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Reason
	}
	return reasonInternal
}

const reasonInternal = "internal error"

func authFailure(reason string, err error) *Error {
	return &Error{Kind: KindAuthentication, Reason: reason, Err: err}
}

func forbidden(reason string) *Error {
	return &Error{Kind: KindAuthorization, Reason: reason}
}

func violation(reason string) *Error {
	return &Error{Kind: KindScheduleViolation, Reason: reason}
}

func duplicate(reason string) *Error {
	return &Error{Kind: KindDuplicate, Reason: reason}
}

func notFound(reason string) *Error {
	return &Error{Kind: KindNotFound, Reason: reason}
}

func storeFailure(err error) *Error {
	return &Error{Kind: KindStore, Reason: reasonInternal, Err: err}
}
