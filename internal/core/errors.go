// AngelaMos | 2026
// errors.go

package core

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")

	ErrTokenMissing = errors.New("token missing")
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenStale   = errors.New("token issued before password change")

	ErrTenantRequired       = errors.New("tenant context required")
	ErrTenantNotFound       = errors.New("tenant not found")
	ErrSubscriptionInactive = errors.New("subscription inactive")

	ErrPrincipalNotFound = errors.New("principal not found")
	ErrAccountSuspended  = errors.New("account suspended")
	ErrAccountLocked     = errors.New("account locked")

	ErrForbidden          = errors.New("forbidden")
	ErrTenantAccessDenied = errors.New("tenant access denied")

	ErrQuotaExceeded = errors.New("quota exceeded")
	ErrNotEmulating  = errors.New("not emulating")
	ErrRateLimited   = errors.New("rate limited")
)

// Kind is the machine-readable error name carried in the "error" field of
// every gate response.
type Kind string

const (
	KindTokenMissing         Kind = "TokenMissing"
	KindTokenInvalid         Kind = "TokenInvalid"
	KindTokenExpired         Kind = "TokenExpired"
	KindTokenStale           Kind = "TokenStale"
	KindTenantRequired       Kind = "TenantRequired"
	KindTenantNotFound       Kind = "TenantNotFound"
	KindSubscriptionInactive Kind = "SubscriptionInactive"
	KindPrincipalNotFound    Kind = "PrincipalNotFound"
	KindAccountSuspended     Kind = "AccountSuspended"
	KindAccountLocked        Kind = "AccountLocked"
	KindForbidden            Kind = "Forbidden"
	KindTenantAccessDenied   Kind = "TenantAccessDenied"
	KindQuotaExceeded        Kind = "QuotaExceeded"
	KindNotEmulating         Kind = "NotEmulating"
	KindNotFound             Kind = "NotFound"
	KindConflict             Kind = "Conflict"
	KindBadRequest           Kind = "BadRequest"
	KindUnauthorized         Kind = "Unauthorized"
	KindRateLimited          Kind = "RateLimited"
	KindInternal             Kind = "InternalError"
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
	Kind       Kind
	Details    map[string]any
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(err error, message string, status int, kind Kind) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		StatusCode: status,
		Kind:       kind,
	}
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// DetailedError is implemented by errors that carry a structured payload for
// the client, such as quota counts.
type DetailedError interface {
	error
	ErrorDetails() map[string]any
}

type errorMapping struct {
	target  error
	status  int
	kind    Kind
	message string
}

// errorTable is the one place that maps the error taxonomy to HTTP.
// Order matters: the first match wins.
var errorTable = []errorMapping{
	{ErrTokenMissing, http.StatusUnauthorized, KindTokenMissing, "authentication token missing"},
	{ErrTokenExpired, http.StatusUnauthorized, KindTokenExpired, "authentication token expired"},
	{ErrTokenStale, http.StatusUnauthorized, KindTokenStale, "password changed since token was issued, please log in again"},
	{ErrTokenInvalid, http.StatusUnauthorized, KindTokenInvalid, "authentication token invalid"},
	{ErrTenantRequired, http.StatusBadRequest, KindTenantRequired, "tenant context required"},
	{ErrTenantNotFound, http.StatusNotFound, KindTenantNotFound, "tenant not found or inactive"},
	{ErrSubscriptionInactive, http.StatusForbidden, KindSubscriptionInactive, "tenant subscription is not active"},
	{ErrPrincipalNotFound, http.StatusUnauthorized, KindPrincipalNotFound, "account no longer exists"},
	{ErrAccountSuspended, http.StatusUnauthorized, KindAccountSuspended, "account is inactive"},
	{ErrAccountLocked, http.StatusLocked, KindAccountLocked, "account locked after too many failed login attempts"},
	{ErrTenantAccessDenied, http.StatusForbidden, KindTenantAccessDenied, "access to this tenant is denied"},
	{ErrForbidden, http.StatusForbidden, KindForbidden, "insufficient permissions"},
	{ErrQuotaExceeded, http.StatusForbidden, KindQuotaExceeded, "plan limit reached"},
	{ErrNotEmulating, http.StatusBadRequest, KindNotEmulating, "not currently emulating a tenant"},
	{ErrRateLimited, http.StatusTooManyRequests, KindRateLimited, "rate limit exceeded"},
	{ErrNotFound, http.StatusNotFound, KindNotFound, "resource not found"},
	{ErrDuplicateKey, http.StatusConflict, KindConflict, "resource already exists"},
	{ErrInvalidInput, http.StatusBadRequest, KindBadRequest, "invalid input"},
	{ErrUnauthorized, http.StatusUnauthorized, KindUnauthorized, "authentication required"},
}

// ToAppError converts any error into the AppError written to the client.
// Unknown errors become a 500 without leaking their text.
func ToAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	for _, m := range errorTable {
		if !errors.Is(err, m.target) {
			continue
		}

		out := NewAppError(err, m.message, m.status, m.kind)

		var detailed DetailedError
		if errors.As(err, &detailed) {
			out.Message = detailed.Error()
			out.Details = detailed.ErrorDetails()
		}
		return out
	}

	return NewAppError(
		err,
		"internal server error",
		http.StatusInternalServerError,
		KindInternal,
	)
}

func KindOf(err error) Kind {
	return ToAppError(err).Kind
}

func UnauthorizedError(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return NewAppError(ErrUnauthorized, message, http.StatusUnauthorized, KindUnauthorized)
}

func ForbiddenError(message string) *AppError {
	if message == "" {
		message = "insufficient permissions"
	}
	return NewAppError(ErrForbidden, message, http.StatusForbidden, KindForbidden)
}

func NotFoundError(resource string) *AppError {
	return NewAppError(
		ErrNotFound,
		fmt.Sprintf("%s not found", resource),
		http.StatusNotFound,
		KindNotFound,
	)
}

func DuplicateError(field string) *AppError {
	return NewAppError(
		ErrDuplicateKey,
		fmt.Sprintf("%s already exists", field),
		http.StatusConflict,
		KindConflict,
	)
}

func BadRequestError(message string) *AppError {
	return NewAppError(ErrInvalidInput, message, http.StatusBadRequest, KindBadRequest)
}

func FormatValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request"
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "email":
			msgs = append(msgs, field+" must be a valid email")
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", field, fe.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", field, fe.Tag()))
		}
	}

	return strings.Join(msgs, "; ")
}
