// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package apperr defines the centralized error handling framework for Warden.

It provides a tagged error type that bridges low-level storage and crypto
failures with the stable, client-facing error codes of the HTTP API.

Architecture:

  - AppError: Kind, machine-readable Code, client-safe Message and an
    Operational flag.
  - Kind: Fixes the HTTP status class of an error.
  - Operational: true for expected, client-correctable failures. Everything
    else is a server fault that is logged, audited and genericized.

Every error that leaves the service layer should be an [AppError] or wrap one.
*/
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an [AppError] and determines its HTTP status.
type Kind int

const (
	// KindValidation covers malformed input and failed checks (400).
	KindValidation Kind = iota + 1
	// KindUnauthorized covers missing or rejected credentials (401).
	KindUnauthorized
	// KindForbidden covers requests refused regardless of identity (403).
	KindForbidden
	// KindNotFound covers absent resources (404).
	KindNotFound
	// KindConflict covers unique-constraint violations (409).
	KindConflict
	// KindRateLimited covers throttled clients (429).
	KindRateLimited
	// KindInternal covers unexpected server faults (500).
	KindInternal
	// KindUnavailable covers dependencies that are down (503).
	KindUnavailable
)

// Status maps a Kind to its HTTP status code.
func (kind Kind) Status() int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// String returns a lowercase label used in logs and the error audit table.
func (kind Kind) String() string {
	switch kind {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindRateLimited:
		return "rate_limited"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// AppError is the canonical error type for the Warden API.
//
// # Security
//
// The Cause field is for server-side logging only and is never sent to clients
// to avoid leaking internal implementation details (e.g., SQL queries).
type AppError struct {
	// Kind is the error class.
	Kind Kind `json:"-"`
	// Code is a stable machine-readable identifier (e.g. "USER_NOT_FOUND").
	Code string `json:"code"`
	// Message is a human-readable description safe to return to the client.
	Message string `json:"message"`
	// HTTPStatus is the HTTP response status code.
	HTTPStatus int `json:"-"`
	// Operational is false for server faults that must be audited.
	Operational bool `json:"-"`
	// Cause is the underlying error, used for server-side logging only.
	Cause error `json:"-"`
	// Details holds per-field validation errors for SCHEMA_VALIDATE_ERROR responses.
	Details []FieldError `json:"details,omitempty"`
}

// FieldError represents a single field-level validation failure.
type FieldError struct {
	// Field is the JSON field name that failed validation.
	Field string `json:"field"`
	// Message is the human-readable description of the failure.
	Message string `json:"message"`
}

// Error implements the error interface. It returns the client-safe message.
func (e *AppError) Error() string { return e.Message }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// Is matches two AppErrors by code so sentinel values work with [errors.Is].
func (e *AppError) Is(target error) bool {
	other, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == other.Code
}

// WithCause returns a copy of the error carrying cause.
//
// Sentinels are shared values, so they are never mutated in place.
func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

// New creates an operational [AppError] of the given kind.
func New(kind Kind, code, message string) *AppError {
	return &AppError{
		Kind:        kind,
		Code:        code,
		Message:     message,
		HTTPStatus:  kind.Status(),
		Operational: true,
	}
}

// # Client Errors (4xx)

// BadRequest creates a 400 [AppError] with a specific code.
func BadRequest(code, message string) *AppError {
	return New(KindValidation, code, message)
}

// NotFound creates a 404 [AppError].
//
// Example:
//
//	apperr.NotFound(apperr.CodeUserNotFound, "User not found")
func NotFound(code, message string) *AppError {
	return New(KindNotFound, code, message)
}

// Unauthorized creates a 401 [AppError].
func Unauthorized(code, message string) *AppError {
	return New(KindUnauthorized, code, message)
}

// Forbidden creates a 403 [AppError].
func Forbidden(code, message string) *AppError {
	return New(KindForbidden, code, message)
}

// Conflict creates a 409 [AppError] for duplicate or unique-constraint violations.
func Conflict(message string) *AppError {
	return New(KindConflict, CodeUniqueConstraintFailed, message)
}

// ValidationError creates a 400 [AppError] with optional per-field details.
func ValidationError(message string, details ...FieldError) *AppError {
	appError := New(KindValidation, CodeSchemaValidate, message)
	appError.Details = details
	return appError
}

// RateLimited creates a 429 [AppError].
func RateLimited(retryAfterSeconds int) *AppError {
	return New(KindRateLimited, CodeTooManyRequests,
		fmt.Sprintf("Too many requests. Try again in %ds.", retryAfterSeconds))
}

// # Server Errors (5xx)

// Internal creates a non-operational 500 [AppError] wrapping an unexpected
// server-side error. The cause is stored for logging but is never sent to the
// client.
func Internal(cause error) *AppError {
	return &AppError{
		Kind:       KindInternal,
		Code:       CodeServerError,
		Message:    "An unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// Unexpected creates a non-operational 500 [AppError] for an error that no
// layer classified. It is what respond.Error turns plain errors into.
func Unexpected(cause error) *AppError {
	appError := Internal(cause)
	appError.Code = CodeUnexpectedError
	return appError
}

// InternalMessage is [Internal] with a custom client-safe message.
func InternalMessage(message string, cause error) *AppError {
	appError := Internal(cause)
	appError.Message = message
	return appError
}

// ServiceUnavailable creates a 503 [AppError].
func ServiceUnavailable(message string) *AppError {
	return &AppError{
		Kind:       KindUnavailable,
		Code:       CodeServiceUnavailable,
		Message:    message,
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// # Helpers

// IsAppError reports whether err (or any error in its chain) is an [*AppError].
func IsAppError(err error) bool {
	var ae *AppError
	return errors.As(err, &ae)
}

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// HasCode reports whether err carries an [*AppError] with the given code.
func HasCode(err error, code string) bool {
	appError := As(err)
	return appError != nil && appError.Code == code
}
