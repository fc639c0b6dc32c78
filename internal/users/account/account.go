// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account handles the signed-in user's own profile.

It reads the public profile, renames the user and deletes the account.

# Architecture

  - Profile: The client-facing view of an [auth.User].
  - Service: Profile use cases. Deletion revokes every session and removes
    the account in one transaction.
  - Domain: This package depends on the auth package for the User entity
    and its repository.
*/
package account

import (
	"context"

	"github.com/taibuivan/warden/internal/users/auth"
)

// # Domain Entities

// Profile is what /me returns.
type Profile struct {
	Email          string  `json:"email"`
	FirstName      string  `json:"firstName"`
	LastName       *string `json:"lastName"`
	AvatarURL      *string `json:"avatarUrl"`
	Verified       bool    `json:"verified"`
	EmailTwoFactor bool    `json:"emailTwoFactor"`
	TOTPEnabled    bool    `json:"totpEnabled"`
}

// NewProfile maps a user to its public profile.
func NewProfile(user *auth.User) *Profile {
	return &Profile{
		Email:          user.Email,
		FirstName:      user.FirstName,
		LastName:       user.LastName,
		AvatarURL:      user.AvatarURL,
		Verified:       user.IsVerified,
		EmailTwoFactor: user.IsEmailTwoFactor,
		TOTPEnabled:    user.IsTOTPEnabled,
	}
}

// # Contracts

// Users is the part of [auth.UserRepository] this package needs.
type Users interface {
	FindByID(context context.Context, id string) (*auth.User, error)
	UpdateNames(context context.Context, id string, firstName, lastName *string) (*auth.User, error)
	Delete(context context.Context, id string) error
}

// Sessions revokes every session of a user.
type Sessions interface {
	DestroyAllForUser(ctx context.Context, userID string) error
}

// OneTimeCodes checks step-up codes.
type OneTimeCodes interface {
	Verify(ctx context.Context, userID, code string) error
}

// AvatarRemover deletes stored profile pictures.
type AvatarRemover interface {
	Delete(ctx context.Context, publicID string) error
}

// # Field Identifiers

const (
	FieldFirstName = "firstName"
	FieldLastName  = "lastName"
	FieldOTP       = "otp"
)
