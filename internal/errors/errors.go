// Package errors defines the domain error taxonomy shared by the processors
// and the HTTP layer.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind is the machine-checkable category of a DomainError.
type Kind string

const (
	KindInvalidArgument  Kind = "invalid_argument"
	KindUnauthenticated  Kind = "unauthenticated"
	KindUnauthorized     Kind = "unauthorized"
	KindNotFound         Kind = "not_found"
	KindAlreadyFinalized Kind = "already_finalized"
	KindPartialFailure   Kind = "partial_failure"
	KindTransient        Kind = "transient_store_failure"
	KindInternal         Kind = "internal"
)

// DomainError carries a kind, a stable code and a human-readable message.
type DomainError struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches two domain errors by code so that sentinels survive wrapping.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code != "" && e.Code == t.Code
}

// New builds a DomainError of the given kind.
func New(kind Kind, code, message string) *DomainError {
	return &DomainError{Kind: kind, Code: code, Message: message}
}

// Wrap attaches a cause to a new DomainError.
func Wrap(kind Kind, code, message string, err error) *DomainError {
	return &DomainError{Kind: kind, Code: code, Message: message, Err: err}
}

// Propagate wraps err under a new code and message, keeping err's kind.
func Propagate(code, message string, err error) *DomainError {
	return Wrap(KindOf(err), code, message, err)
}

func InvalidArgument(message string) *DomainError {
	return New(KindInvalidArgument, "INVALID_ARGUMENT", message)
}

func Unauthenticated(message string) *DomainError {
	return New(KindUnauthenticated, "UNAUTHENTICATED", message)
}

func Unauthorized(message string) *DomainError {
	return New(KindUnauthorized, "UNAUTHORIZED", message)
}

func NotFound(message string) *DomainError {
	return New(KindNotFound, "NOT_FOUND", message)
}

func AlreadyFinalized(message string) *DomainError {
	return New(KindAlreadyFinalized, "ALREADY_FINALIZED", message)
}

func Transient(message string, err error) *DomainError {
	return Wrap(KindTransient, "TRANSIENT_STORE_FAILURE", message, err)
}

func Internal(message string, err error) *DomainError {
	return Wrap(KindInternal, "INTERNAL", message, err)
}

// KindOf returns the kind of the first DomainError in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var de *DomainError
	if stderrors.As(err, &de) {
		if de.Kind == "" {
			return KindInternal
		}
		return de.Kind
	}
	return KindInternal
}

// HTTPStatus maps a kind onto the response status used by the API.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindUnauthorized:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindAlreadyFinalized:
		return http.StatusConflict
	case KindPartialFailure:
		return http.StatusMultiStatus
	case KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
