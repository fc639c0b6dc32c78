// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/taibuivan/warden/internal/platform/apperr"
	"github.com/taibuivan/warden/internal/platform/validate"
	"github.com/taibuivan/warden/internal/users/auth"
	"github.com/taibuivan/warden/pkg/pointer"
)

const maxNameLength = 50

// # Service Layer

// Service implements the profile use cases.
type Service struct {
	users    Users
	sessions Sessions
	codes    OneTimeCodes
	avatars  AvatarRemover
	tx       auth.TxRunner
	logger   *slog.Logger
}

// NewService constructs an account [Service]. avatars may be nil when
// object storage is not configured.
func NewService(users Users, sessions Sessions, codes OneTimeCodes, avatars AvatarRemover, tx auth.TxRunner, logger *slog.Logger) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		codes:    codes,
		avatars:  avatars,
		tx:       tx,
		logger:   logger,
	}
}

func classify(err error, message string) error {
	if err == nil || apperr.IsAppError(err) {
		return err
	}
	return apperr.InternalMessage(message, err)
}

// # Profile Management

// Me returns the profile of userID.
func (service *Service) Me(ctx context.Context, userID string) (*Profile, error) {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		return nil, classify(err, "Something went wrong while getting user data")
	}
	return NewProfile(user), nil
}

// normalizeName trims and NFC-normalises a name so that visually identical
// names compare equal.
func normalizeName(name *string) *string {
	if name == nil {
		return nil
	}
	return pointer.To(norm.NFC.String(strings.TrimSpace(*name)))
}

/*
ChangeNames updates the first and/or last name.

A nil name is left unchanged. An empty last name clears it; the first name
cannot be empty.

Returns:
  - *Profile: the updated profile
  - error: SCHEMA_VALIDATE_ERROR when no name is given or a name is invalid
*/
func (service *Service) ChangeNames(ctx context.Context, userID string, firstName, lastName *string) (*Profile, error) {
	firstName, lastName = normalizeName(firstName), normalizeName(lastName)

	validator := &validate.Validator{}
	validator.Custom(FieldFirstName, firstName == nil && lastName == nil, "Provide firstName or lastName")
	if firstName != nil {
		validator.Required(FieldFirstName, *firstName).MaxLen(FieldFirstName, *firstName, maxNameLength)
	}
	if lastName != nil {
		validator.MaxLen(FieldLastName, *lastName, maxNameLength)
	}
	if err := validator.Err(); err != nil {
		return nil, err
	}

	user, err := service.users.UpdateNames(ctx, userID, firstName, lastName)
	if err != nil {
		return nil, classify(err, "Something went wrong while updating the names")
	}

	service.logger.InfoContext(ctx, "user_names_changed", slog.String("user_id", userID))
	return NewProfile(user), nil
}

// # Account Deletion

/*
Delete removes the account after an OTP step-up.

Every session (and its cache entry) and the account row are removed in one
transaction. The avatar is deleted afterwards on a best-effort basis.

Returns:
  - error: INVALID_OTP / EXPIRED_OTP, USER_NOT_FOUND, or SERVER_ERROR
*/
func (service *Service) Delete(ctx context.Context, userID, code string) error {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		return classify(err, "Something went wrong while deleting the user")
	}

	if err := service.codes.Verify(ctx, user.ID, code); err != nil {
		return err
	}

	err = service.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := service.sessions.DestroyAllForUser(ctx, user.ID); err != nil {
			return err
		}
		return service.users.Delete(ctx, user.ID)
	})
	if err != nil {
		return classify(err, "Something went wrong while deleting the user")
	}

	if user.AvatarPublicID != nil && service.avatars != nil {
		if err := service.avatars.Delete(context.WithoutCancel(ctx), *user.AvatarPublicID); err != nil {
			service.logger.WarnContext(ctx, "avatar_delete_failed", slog.String("user_id", user.ID), slog.Any("error", err))
		}
	}

	service.logger.InfoContext(ctx, "user_deleted", slog.String("user_id", user.ID))
	return nil
}
