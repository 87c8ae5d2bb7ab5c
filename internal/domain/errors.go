package domain

import (
	"errors"
	"fmt"
)

// DomainError keeps backward compatibility for generic codes.
type DomainError struct {
	Code string
	Err  error
}

func (e DomainError) Error() string {
	if e.Err == nil {
		return e.Code
	}
	if e.Code == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e DomainError) Unwrap() error {
	return e.Err
}

type NotFoundError struct {
	Resource string
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e NotFoundError) Unwrap() error { return e.Err }

type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e ValidationError) Error() string {
	if e.Msg != "" && e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return "validation error"
}

func (e ValidationError) Unwrap() error { return e.Err }

// ForbiddenError means the actor lacks the required permission.
// It is always raised before any entity state is inspected.
type ForbiddenError struct {
	Permission string
	Err        error
}

func (e ForbiddenError) Error() string {
	if e.Permission == "" {
		return "forbidden"
	}
	return fmt.Sprintf("missing permission %s", e.Permission)
}

func (e ForbiddenError) Unwrap() error { return e.Err }

// InvalidStateError means the operation is not legal from the entity's
// current state (wrong transition, double refund, paying a paid booking).
type InvalidStateError struct {
	Resource string
	State    string
	Msg      string
	Err      error
}

func (e InvalidStateError) Error() string {
	switch {
	case e.Msg != "":
		return e.Msg
	case e.Resource != "" && e.State != "":
		return fmt.Sprintf("%s is %s", e.Resource, e.State)
	case e.Resource != "":
		return fmt.Sprintf("invalid %s state", e.Resource)
	default:
		return "invalid state"
	}
}

func (e InvalidStateError) Unwrap() error { return e.Err }

// CapacityFullError means confirming the booking would exceed trip capacity.
type CapacityFullError struct {
	TripID int64
	Err    error
}

func (e CapacityFullError) Error() string {
	return "trip capacity full"
}

func (e CapacityFullError) Unwrap() error { return e.Err }

// SignatureError means a gateway callback failed signature verification.
// Treated as a security event; the caller must not retry.
type SignatureError struct {
	OrderID string
	Err     error
}

func (e SignatureError) Error() string {
	return "payment signature invalid"
}

func (e SignatureError) Unwrap() error { return e.Err }

// NetworkError wraps gateway/transport failures. The only category a caller
// may retry with backoff.
type NetworkError struct {
	Op  string
	Err error
}

func (e NetworkError) Error() string {
	if e.Op == "" {
		return "network error"
	}
	return fmt.Sprintf("%s: network error", e.Op)
}

func (e NetworkError) Unwrap() error { return e.Err }

type ConflictError struct {
	Resource string
	Msg      string
	Err      error
}

func (e ConflictError) Error() string {
	switch {
	case e.Msg != "" && e.Resource != "":
		return fmt.Sprintf("%s conflict: %s", e.Resource, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Resource != "":
		return fmt.Sprintf("%s conflict", e.Resource)
	default:
		return "conflict"
	}
}

func (e ConflictError) Unwrap() error { return e.Err }

type InternalError struct {
	Msg string
	Err error
}

func (e InternalError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "internal error"
}

func (e InternalError) Unwrap() error { return e.Err }

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsForbidden(err error) bool {
	var target ForbiddenError
	return errors.As(err, &target)
}

func IsInvalidState(err error) bool {
	var target InvalidStateError
	return errors.As(err, &target)
}

func IsCapacityFull(err error) bool {
	var target CapacityFullError
	return errors.As(err, &target)
}

func IsSignature(err error) bool {
	var target SignatureError
	return errors.As(err, &target)
}

func IsNetwork(err error) bool {
	var target NetworkError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

func IsInternal(err error) bool {
	var target InternalError
	return errors.As(err, &target)
}
