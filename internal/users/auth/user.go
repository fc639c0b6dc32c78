// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the authentication flows of a Warden account.

It covers registration, password and two-factor login, logout, one-time code
delivery, password reset, authenticator (TOTP) enrolment and removal, email
verification links and email-based two-factor authentication.

# Architecture

  - Service: Orchestrates the flows on top of the session, otp, totp and
    emaillink services.
  - UserRepository: PostgreSQL-backed account store (users.account).
  - Handler: chi routes under /api/v1/auth.

The account state machine lives here: unverified to verified, and 2FA
disabled to enabled for each of the two second factors.
*/
package auth

import (
	"time"

	"github.com/taibuivan/warden/internal/platform/apperr"
)

// # Domain Entities

// User is a registered account.
type User struct {
	ID             string  `json:"id"`
	Email          string  `json:"email"`
	PasswordHash   string  `json:"-"`
	FirstName      string  `json:"firstName"`
	LastName       *string `json:"lastName"`
	AvatarURL      *string `json:"avatarUrl,omitempty"`
	AvatarPublicID *string `json:"-"`
	IsVerified     bool    `json:"verified"`

	// IsEmailTwoFactor requires an emailed code on every login.
	IsEmailTwoFactor bool `json:"emailTwoFactor"`

	// TOTPSecret is set exactly when IsTOTPEnabled is true.
	TOTPSecret    *string   `json:"-"`
	IsTOTPEnabled bool      `json:"totpEnabled"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Methods lists the second factors a login must satisfy.
func (user *User) Methods() map[string]bool {
	methods := map[string]bool{}
	if user.IsEmailTwoFactor {
		methods[MethodEmail] = true
	}
	if user.IsTOTPEnabled {
		methods[MethodTOTP] = true
	}
	return methods
}

// # Second Factors

const (
	MethodEmail = "email"
	MethodTOTP  = "totp"
)

// # Field Identifiers

const (
	FieldEmail       = "email"
	FieldPassword    = "password"
	FieldNewPassword = "newPassword"
	FieldFirstName   = "firstName"
	FieldLastName    = "lastName"
	FieldOTP         = "otp"
	FieldToken       = "token"
	FieldMethod      = "method"
	FieldProfile     = "profile"
	FieldData        = "data"
	FieldIV          = "iv"
	FieldTag         = "tag"
)

// # Errors

var (
	ErrEmailTaken        = apperr.Conflict("Email is already registered")
	ErrInvalidPassword   = apperr.BadRequest(apperr.CodeInvalidPassword, "Invalid password")
	ErrIncorrectPassword = apperr.Unauthorized(apperr.CodeIncorrectPassword, "Incorrect password")
	ErrTOTPNotEnabled    = apperr.BadRequest(apperr.CodeTOTPNotEnabled, "Two-factor authentication with an authenticator app is not enabled")
	ErrInvalidTOTPToken  = apperr.BadRequest(apperr.CodeInvalidTOTPToken, "Invalid TOTP token")
	ErrInvalidMethod     = apperr.BadRequest(apperr.CodeInvalidMethod, "Invalid two-factor method")
	ErrEmailTwoFactorOff = apperr.BadRequest(apperr.CodeInvalidMethod, "Email two-factor authentication is not enabled")
	ErrAlreadyVerified   = apperr.BadRequest(apperr.CodeAlreadyVerified, "Email is already verified")
	ErrEmailNotVerified  = apperr.BadRequest(apperr.CodeEmailNotVerified, "Verify your email before enabling email two-factor authentication")
	ErrEmailSendFailed   = apperr.InternalMessage("Something went wrong while sending the email", nil)
)
