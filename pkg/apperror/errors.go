package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers and for HTTP status mapping.
type Kind string

const (
	KindNotFound          Kind = "NOT_FOUND"
	KindInvalidState      Kind = "INVALID_STATE"
	KindPolicyViolation   Kind = "POLICY_VIOLATION"
	KindDependencyFailure Kind = "DEPENDENCY_FAILURE"
	KindConflict          Kind = "CONFLICT"
	KindInvalidInput      Kind = "INVALID_INPUT"
	KindInternal          Kind = "INTERNAL"
)

// Error is the domain error carried through every RMA operation.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind and code, so sentinels work with errors.Is
// even after a message or cause has been attached.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code == "" {
		return e.Kind == t.Kind
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// With returns a copy of the sentinel with a more specific message.
func (e *Error) With(format string, args ...interface{}) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: fmt.Sprintf(format, args...), Err: e.Err}
}

// Wrap returns a copy of the sentinel carrying cause.
func (e *Error) Wrap(cause error) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: e.Message, Err: cause}
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func NotFound(resource, id string) *Error {
	return &Error{Kind: KindNotFound, Code: "NOT_FOUND", Message: fmt.Sprintf("%s %s not found", resource, id)}
}

func InvalidState(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidState, Code: "INVALID_STATE", Message: fmt.Sprintf(format, args...)}
}

func InvalidInput(field, message string) *Error {
	return &Error{Kind: KindInvalidInput, Code: "INVALID_INPUT", Message: fmt.Sprintf("%s: %s", field, message)}
}

func DependencyFailure(dependency string, cause error) *Error {
	return &Error{Kind: KindDependencyFailure, Code: "DEPENDENCY_FAILURE", Message: dependency + " failed", Err: cause}
}

func Conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Code: "STALE_VERSION", Message: fmt.Sprintf(format, args...)}
}

// Policy violation sentinels.
var (
	ErrPolicyDisabled       = New(KindPolicyViolation, "POLICY_DISABLED", "returns are disabled for this company")
	ErrEmptyItemList        = New(KindPolicyViolation, "EMPTY_ITEM_LIST", "at least one item is required")
	ErrTooManyItems         = New(KindPolicyViolation, "TOO_MANY_ITEMS", "item count exceeds policy maximum")
	ErrReasonNotAllowed     = New(KindPolicyViolation, "REASON_NOT_ALLOWED", "return reason is not enabled")
	ErrReasonRequired       = New(KindPolicyViolation, "REASON_REQUIRED", "a return reason is required")
	ErrPhotosRequired       = New(KindPolicyViolation, "PHOTOS_REQUIRED", "photos are required for this return")
	ErrItemNotReturnable    = New(KindPolicyViolation, "ITEM_NOT_RETURNABLE", "item is excluded from returns")
	ErrOutsideReturnWindow  = New(KindPolicyViolation, "OUTSIDE_RETURN_WINDOW", "order is outside the return window")
	ErrResolutionNotAllowed = New(KindPolicyViolation, "RESOLUTION_NOT_ALLOWED", "resolution type is not enabled")
	ErrInvalidPolicy        = New(KindPolicyViolation, "INVALID_POLICY", "policy is invalid")
)

// Kind-only sentinels for errors.Is checks.
var (
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrInvalidState      = &Error{Kind: KindInvalidState}
	ErrPolicyViolation   = &Error{Kind: KindPolicyViolation}
	ErrDependencyFailure = &Error{Kind: KindDependencyFailure}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrInvalidInput      = &Error{Kind: KindInvalidInput}
)

// KindOf returns the kind of the first *Error in the chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the code of the first *Error in the chain.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
