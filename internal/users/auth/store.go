// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import "context"

// UserRepository is the durable account store.
//
// Lookups and updates of an absent account return [apperr.ErrUserNotFound].
// Emails are matched case-insensitively.
type UserRepository interface {
	Create(context context.Context, user *User) error
	FindByID(context context.Context, id string) (*User, error)
	FindByEmail(context context.Context, email string) (*User, error)

	UpdatePassword(context context.Context, id, passwordHash string) error
	UpdateNames(context context.Context, id string, firstName, lastName *string) (*User, error)
	MarkVerified(context context.Context, id string) error
	SetEmailTwoFactor(context context.Context, id string, enabled bool) error

	// SetTOTPSecret stores secret and enables TOTP in one statement.
	SetTOTPSecret(context context.Context, id, secret string) error

	// ClearTOTPSecret removes the secret and disables TOTP.
	ClearTOTPSecret(context context.Context, id string) error

	Delete(context context.Context, id string) error
}
