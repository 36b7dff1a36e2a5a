package errors

import (
	stdErrors "errors"
	"net/http"
)

type Code string

const (
	CodeValidation             Code = "VALIDATION_ERROR"
	CodeUnauthorized           Code = "UNAUTHORIZED"
	CodeForbidden              Code = "FORBIDDEN"
	CodeNotFound               Code = "NOT_FOUND"
	CodeConflict               Code = "CONFLICT"
	CodeInvalidTransition      Code = "INVALID_TRANSITION"
	CodeReconciliationConflict Code = "RECONCILIATION_CONFLICT"
	CodeDuplicateReference     Code = "DUPLICATE_REFERENCE"
	CodeGateway                Code = "GATEWAY_ERROR"
	CodePersistence            Code = "PERSISTENCE_ERROR"
	CodeIdempotency            Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit              Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal               Code = "INTERNAL_ERROR"
	CodeDependency             Code = "DEPENDENCY_ERROR"
)

// Metadata is how a code surfaces at the API edge.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

type trait uint8

const (
	retryable trait = 1 << iota
	withDetails
)

func meta(status int, public string, traits ...trait) Metadata {
	var t trait
	for _, x := range traits {
		t |= x
	}
	return Metadata{
		HTTPStatus:     status,
		PublicMessage:  public,
		Retryable:      t&retryable != 0,
		DetailsAllowed: t&withDetails != 0,
	}
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:             meta(http.StatusBadRequest, "validation failed", withDetails),
	CodeUnauthorized:           meta(http.StatusUnauthorized, "authentication required"),
	CodeForbidden:              meta(http.StatusForbidden, "access denied"),
	CodeNotFound:               meta(http.StatusNotFound, "resource not found"),
	CodeConflict:               meta(http.StatusConflict, "conflict detected"),
	CodeInvalidTransition:      meta(http.StatusUnprocessableEntity, "state transition disallowed", withDetails),
	CodeReconciliationConflict: meta(http.StatusConflict, "concurrent update detected", retryable, withDetails),
	CodeDuplicateReference:     meta(http.StatusConflict, "payment reference already used", retryable),
	CodeGateway:                meta(http.StatusBadGateway, "payment gateway unavailable", retryable, withDetails),
	CodePersistence:            meta(http.StatusInternalServerError, "failed to persist changes", retryable),
	CodeIdempotency:            meta(http.StatusConflict, "idempotency key reused", withDetails),
	CodeRateLimit:              meta(http.StatusTooManyRequests, "rate limit exceeded"),
	CodeInternal:               meta(http.StatusInternalServerError, "internal server error", retryable),
	CodeDependency:             meta(http.StatusServiceUnavailable, "dependency unavailable", retryable, withDetails),
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if m, ok := metadataByCode[code]; ok {
		return m
	}
	return metadataByCode[CodeInternal]
}

// Error is a coded failure with an optional cause and caller-facing details.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap with a nil err is New.
func Wrap(code Code, err error, message string) *Error {
	e := New(code, message)
	e.cause = err
	return e
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	s := string(e.code) + ": " + e.message
	if e.cause != nil {
		s += ": " + e.cause.Error()
	}
	return s
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Retryable reports whether callers may safely retry the failed operation.
func (e *Error) Retryable() bool {
	return MetadataFor(e.Code()).Retryable
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode checks only the outermost typed error.
func IsCode(err error, code Code) bool {
	if typed := As(err); typed != nil {
		return typed.code == code
	}
	return false
}
