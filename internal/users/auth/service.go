// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/taibuivan/warden/internal/platform/apperr"
	"github.com/taibuivan/warden/internal/platform/storage"
	"github.com/taibuivan/warden/internal/users/totp"
	"github.com/taibuivan/warden/pkg/uuidv7"
)

// # Contracts

// Sessions is the part of the session service used by the login flows.
type Sessions interface {
	Issue(ctx context.Context, userID string) (string, error)
	Destroy(ctx context.Context, sessionID string) error
	DestroyAllForUser(ctx context.Context, userID string) error
}

// OneTimeCodes issues and checks emailed step-up codes.
type OneTimeCodes interface {
	Issue(ctx context.Context, userID string) (string, error)
	Verify(ctx context.Context, userID, code string) error
}

// Authenticator manages authenticator-app secrets.
type Authenticator interface {
	GenerateSecret(accountName string) (*totp.Secret, error)
	RenderQRCode(provisioningURI string) (string, error)
	Verify(secret, code string) bool
}

// LinkSealer encrypts and opens email verification links.
type LinkSealer interface {
	EncryptLink(plaintext string) (string, error)
	DecryptLink(data, iv, tag string) (string, error)
}

// Mailer sends the account emails.
type Mailer interface {
	SendOTP(ctx context.Context, to, code string) error
	SendVerificationLink(ctx context.Context, to, link string) error
	SendTOTPEnabled(ctx context.Context, to, firstName string) error
}

// AvatarStore holds uploaded profile pictures.
type AvatarStore interface {
	Upload(ctx context.Context, name string, body io.Reader, contentType string) (*storage.Object, error)
	Delete(ctx context.Context, publicID string) error
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(plainTextPassword string) (string, error)
	Verify(plainTextPassword, existingHash string) bool
}

// TxRunner groups repository calls into one transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Dependencies are the collaborators of [Service]. Avatars may be nil, in
// which case uploaded profile pictures are ignored.
type Dependencies struct {
	Users         UserRepository
	Sessions      Sessions
	Codes         OneTimeCodes
	Authenticator Authenticator
	Links         LinkSealer
	Mailer        Mailer
	Avatars       AvatarStore
	Hasher        PasswordHasher
	Tx            TxRunner
}

// Service implements the authentication use cases.
type Service struct {
	users         UserRepository
	sessions      Sessions
	codes         OneTimeCodes
	authenticator Authenticator
	links         LinkSealer
	mailer        Mailer
	avatars       AvatarStore
	hasher        PasswordHasher
	tx            TxRunner
	logger        *slog.Logger
}

// NewService constructs the authentication [Service].
func NewService(deps Dependencies, logger *slog.Logger) *Service {
	return &Service{
		users:         deps.Users,
		sessions:      deps.Sessions,
		codes:         deps.Codes,
		authenticator: deps.Authenticator,
		links:         deps.Links,
		mailer:        deps.Mailer,
		avatars:       deps.Avatars,
		hasher:        deps.Hasher,
		tx:            deps.Tx,
		logger:        logger,
	}
}

// classify passes AppErrors through and turns anything else into a
// non-operational SERVER_ERROR carrying message.
func classify(err error, message string) error {
	if err == nil || apperr.IsAppError(err) {
		return err
	}
	return apperr.InternalMessage(message, err)
}

// # Registration Flow

// AvatarUpload is a profile picture streamed from the request.
type AvatarUpload struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// RegisterInput holds the data required to create an account.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  *string
	Avatar    *AvatarUpload
}

/*
Register creates an account and logs it in.

The avatar is uploaded before the account row is written. If anything after
the upload fails, the uploaded object is deleted again.

Returns:
  - string: Access token of the first session
  - error: UNIQUE_CONSTRAINT_FAILED when the email is taken
*/
func (service *Service) Register(ctx context.Context, input RegisterInput) (string, error) {
	email := strings.TrimSpace(input.Email)

	// 1. Uniqueness
	_, err := service.users.FindByEmail(ctx, email)
	if err == nil {
		return "", ErrEmailTaken
	}
	if !errors.Is(err, apperr.ErrUserNotFound) {
		return "", classify(err, "Something went wrong while registering user")
	}

	// 2. Credentials
	passwordHash, err := service.hasher.Hash(input.Password)
	if err != nil {
		return "", apperr.InternalMessage("Something went wrong while registering user", err)
	}

	user := &User{
		ID:           uuidv7.New(),
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
	}

	// 3. Avatar
	var avatar *storage.Object
	if input.Avatar != nil && service.avatars != nil {
		avatar, err = service.avatars.Upload(ctx, input.Avatar.Name, input.Avatar.Body, input.Avatar.ContentType)
		if err != nil {
			return "", apperr.InternalMessage("Something went wrong while uploading the profile picture", err)
		}
		user.AvatarURL = &avatar.URL
		user.AvatarPublicID = &avatar.PublicID
	}

	// 4. Account and first session
	var accessToken string
	err = service.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := service.users.Create(ctx, user); err != nil {
			return err
		}
		accessToken, err = service.sessions.Issue(ctx, user.ID)
		return err
	})
	if err != nil {
		if avatar != nil {
			service.deleteAvatar(ctx, avatar.PublicID)
		}
		return "", classify(err, "Something went wrong while registering user")
	}

	service.logger.InfoContext(ctx, "user_registered", slog.String("user_id", user.ID))
	return accessToken, nil
}

func (service *Service) deleteAvatar(ctx context.Context, publicID string) {
	if err := service.avatars.Delete(context.WithoutCancel(ctx), publicID); err != nil {
		service.logger.WarnContext(ctx, "avatar_cleanup_failed", slog.String("public_id", publicID), slog.Any("error", err))
	}
}

// # Login Flow

// LoginResult is either a session or the list of second factors still needed.
type LoginResult struct {
	AccessToken string
	Methods     map[string]bool
}

// NeedsTwoFactor reports whether the login stopped at the second factor.
func (result *LoginResult) NeedsTwoFactor() bool {
	return result.AccessToken == ""
}

// checkPassword loads the account behind email and checks its password.
func (service *Service) checkPassword(ctx context.Context, email, password string) (*User, error) {
	user, err := service.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, classify(err, "Something went wrong while logging in")
	}
	if !service.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidPassword
	}
	return user, nil
}

/*
Login checks email and password.

Accounts with a second factor get no session here: the result lists the
enabled methods and the client continues with [Service.LoginTwoFactor].

Returns:
  - *LoginResult: token, or the required methods
  - error: USER_NOT_FOUND or INVALID_PASSWORD
*/
func (service *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := service.checkPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if methods := user.Methods(); len(methods) > 0 {
		return &LoginResult{Methods: methods}, nil
	}

	accessToken, err := service.sessions.Issue(ctx, user.ID)
	if err != nil {
		return nil, classify(err, "Something went wrong while logging in")
	}
	return &LoginResult{AccessToken: accessToken}, nil
}

// TwoFactorInput is a password login completed with a second factor.
type TwoFactorInput struct {
	Email    string
	Password string
	Method   string

	// Proof is the emailed code for "email" and the authenticator code for "totp".
	Proof string
}

/*
LoginTwoFactor completes a login with an emailed code or an authenticator code.

Returns:
  - string: Access token
  - error: INVALID_METHOD, TOTP_NOT_ENABLED, INVALID_TOTP_TOKEN or an OTP error
*/
func (service *Service) LoginTwoFactor(ctx context.Context, input TwoFactorInput) (string, error) {
	if input.Method != MethodEmail && input.Method != MethodTOTP {
		return "", ErrInvalidMethod
	}

	user, err := service.checkPassword(ctx, input.Email, input.Password)
	if err != nil {
		return "", err
	}

	switch input.Method {
	case MethodEmail:
		if !user.IsEmailTwoFactor {
			return "", ErrEmailTwoFactorOff
		}
		if err := service.codes.Verify(ctx, user.ID, input.Proof); err != nil {
			return "", err
		}
	case MethodTOTP:
		if err := service.checkTOTP(user, input.Proof); err != nil {
			return "", err
		}
	}

	accessToken, err := service.sessions.Issue(ctx, user.ID)
	if err != nil {
		return "", classify(err, "Something went wrong while logging in")
	}
	return accessToken, nil
}

// Logout ends the session behind the current access token.
func (service *Service) Logout(ctx context.Context, sessionID string) error {
	return classify(service.sessions.Destroy(ctx, sessionID), "Something went wrong while logging out")
}

// # One-Time Codes

// RequestOTP emails a fresh code to the signed-in user.
func (service *Service) RequestOTP(ctx context.Context, userID string) error {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		return classify(err, "Something went wrong while sending the email")
	}
	return service.sendOTP(ctx, user)
}

// RequestOTPByEmail emails a fresh code to the account registered under email.
func (service *Service) RequestOTPByEmail(ctx context.Context, email string) error {
	user, err := service.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return classify(err, "Something went wrong while sending the email")
	}
	return service.sendOTP(ctx, user)
}

func (service *Service) sendOTP(ctx context.Context, user *User) error {
	code, err := service.codes.Issue(ctx, user.ID)
	if err != nil {
		return classify(err, "Something went wrong while creating the OTP code")
	}

	if err := service.mailer.SendOTP(ctx, user.Email, code); err != nil {
		service.logger.ErrorContext(ctx, "otp_email_send_failed", slog.String("user_id", user.ID), slog.Any("error", err))
		return ErrEmailSendFailed.WithCause(err)
	}
	return nil
}

// # Password Reset

// ResetPassword changes the signed-in user's password after an OTP step-up.
func (service *Service) ResetPassword(ctx context.Context, userID, code, newPassword string) (string, error) {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		return "", classify(err, "Something went wrong while resetting the password")
	}
	return service.resetPassword(ctx, user, code, newPassword)
}

// ResetPasswordByEmail is [Service.ResetPassword] for a user who cannot log in.
func (service *Service) ResetPasswordByEmail(ctx context.Context, email, code, newPassword string) (string, error) {
	user, err := service.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return "", classify(err, "Something went wrong while resetting the password")
	}
	return service.resetPassword(ctx, user, code, newPassword)
}

/*
resetPassword verifies code, stores the new hash, revokes every session of
the user and starts one fresh session, all in one transaction.
*/
func (service *Service) resetPassword(ctx context.Context, user *User, code, newPassword string) (string, error) {
	if err := service.codes.Verify(ctx, user.ID, code); err != nil {
		return "", err
	}

	passwordHash, err := service.hasher.Hash(newPassword)
	if err != nil {
		return "", apperr.InternalMessage("Something went wrong while resetting the password", err)
	}

	var accessToken string
	err = service.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := service.users.UpdatePassword(ctx, user.ID, passwordHash); err != nil {
			return err
		}
		if err := service.sessions.DestroyAllForUser(ctx, user.ID); err != nil {
			return err
		}
		accessToken, err = service.sessions.Issue(ctx, user.ID)
		return err
	})
	if err != nil {
		return "", classify(err, "Something went wrong while resetting the password")
	}

	service.logger.InfoContext(ctx, "password_reset", slog.String("user_id", user.ID))
	return accessToken, nil
}
