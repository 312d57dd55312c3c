// Package apperr defines transport-agnostic error kinds shared by the domain
// services. Adapters map a Kind to their own status codes.
package apperr

import (
	"github.com/go-faster/errors"
)

// Kind classifies a failure.
type Kind int

const (
	// KindInternal is the fallback for errors that carry no kind.
	KindInternal Kind = iota
	// KindValidation marks malformed or inconsistent input.
	KindValidation
	// KindAuthentication marks an unresolvable buyer identity.
	KindAuthentication
	// KindNotFound marks a lookup by identifier or code that found nothing.
	KindNotFound
	// KindUpstream marks a failure of the payment processor or a persistence
	// collaborator.
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindNotFound:
		return "not_found"
	case KindUpstream:
		return "upstream"
	default:
		return "internal"
	}
}

// Error is a kinded error. When Message is empty the wrapped error's message
// is reported as is.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Validation returns a KindValidation error.
func Validation(msg string) *Error { return New(KindValidation, msg) }

// Authentication returns a KindAuthentication error.
func Authentication(msg string) *Error { return New(KindAuthentication, msg) }

// NotFound returns a KindNotFound error.
func NotFound(msg string) *Error { return New(KindNotFound, msg) }

// Upstream tags err as a collaborator failure without altering its message.
// A nil err yields nil.
func Upstream(err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) && ae.Kind == KindUpstream {
		return err
	}
	return &Error{Kind: KindUpstream, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Message returns the outward message for err: the kinded error's message,
// or the full text when err carries no kind.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Error()
	}
	return err.Error()
}
