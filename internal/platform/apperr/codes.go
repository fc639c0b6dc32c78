// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package apperr

// # Error Codes
//
// Stable identifiers returned in the `code` field of every error response.
// Clients branch on these values.

const (
	CodeSchemaValidate         = "SCHEMA_VALIDATE_ERROR"
	CodeInvalidPassword        = "INVALID_PASSWORD"
	CodeIncorrectPassword      = "INCORRECT_PASSWORD"
	CodeInvalidOTP             = "INVALID_OTP"
	CodeExpiredOTP             = "EXPIRED_OTP"
	CodeTOTPNotEnabled         = "TOTP_NOT_ENABLED"
	CodeInvalidTOTPToken       = "INVALID_TOTP_TOKEN"
	CodeInvalidMethod          = "INVALID_METHOD"
	CodeInvalidLink            = "INVALID_LINK"
	CodeAlreadyVerified        = "ALREADY_VERIFIED"
	CodeEmailNotVerified       = "EMAIL_NOT_VERIFIED"
	CodeNotLoggedIn            = "NOT_LOGGED_IN"
	CodeInvalidToken           = "UNAUTHORIZED_INVALID_TOKEN"
	CodeInvalidOrExpired       = "UNAUTHORIZED_INVALID_OR_EXPIRED_TOKEN"
	CodeSessionExpired         = "UNAUTHORIZED_SESSION_EXPIRED"
	CodeInvalidCSRFToken       = "INVALID_CSRF_TOKEN"
	CodeUserNotFound           = "USER_NOT_FOUND"
	CodeNotFound               = "NOT_FOUND"
	CodeUniqueConstraintFailed = "UNIQUE_CONSTRAINT_FAILED"
	CodeTooManyRequests        = "TOO_MANY_REQUESTS"
	CodeServerError            = "SERVER_ERROR"
	CodeUnexpectedError        = "UNEXPECTED_ERROR"
	CodeServiceUnavailable     = "SERVICE_UNAVAILABLE"
)

// # Shared Sentinels
//
// Errors raised from more than one package. Compare with [errors.Is].

var (
	// ErrUserNotFound is returned when no account matches a lookup.
	ErrUserNotFound = NotFound(CodeUserNotFound, "User not found")

	// ErrNotLoggedIn is returned by protected routes without a session cookie.
	ErrNotLoggedIn = Unauthorized(CodeNotLoggedIn, "You are not logged in")

	// ErrInvalidOrExpiredToken is returned for forged, malformed or unrefreshable tokens.
	ErrInvalidOrExpiredToken = Unauthorized(CodeInvalidOrExpired, "Invalid or expired access token")

	// ErrSessionExpired is returned when the refresh session is gone or expired.
	ErrSessionExpired = Unauthorized(CodeSessionExpired, "Session expired, please log in again")
)
