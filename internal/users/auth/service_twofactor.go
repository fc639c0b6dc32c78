// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"log/slog"
	"strings"

	"github.com/taibuivan/warden/internal/users/emaillink"
)

// # Authenticator App (TOTP)

// TOTPEnrolment is returned once, when a secret is generated.
type TOTPEnrolment struct {
	Secret string `json:"secret"`
	URI    string `json:"uri"`
	QRCode string `json:"base64"`
}

func (service *Service) checkTOTP(user *User, code string) error {
	if !user.IsTOTPEnabled || user.TOTPSecret == nil {
		return ErrTOTPNotEnabled
	}
	if !service.authenticator.Verify(*user.TOTPSecret, code) {
		return ErrInvalidTOTPToken
	}
	return nil
}

/*
GenerateTOTP enrols an authenticator app after an OTP step-up.

A new secret replaces any previous one. The enrolment notice email is best
effort: a delivery failure is logged and does not undo the enrolment.

Returns:
  - *TOTPEnrolment: Base32 secret, provisioning URI and QR code data URL
  - error: INVALID_OTP / EXPIRED_OTP, or SERVER_ERROR
*/
func (service *Service) GenerateTOTP(ctx context.Context, userID, code string) (*TOTPEnrolment, error) {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		return nil, classify(err, "Something went wrong while generating the TOTP secret")
	}

	if err := service.codes.Verify(ctx, user.ID, code); err != nil {
		return nil, err
	}

	secret, err := service.authenticator.GenerateSecret(user.Email)
	if err != nil {
		return nil, classify(err, "Something went wrong while generating the TOTP secret")
	}

	qrCode, err := service.authenticator.RenderQRCode(secret.URI)
	if err != nil {
		return nil, classify(err, "Something went wrong while generating the TOTP secret")
	}

	if err := service.users.SetTOTPSecret(ctx, user.ID, secret.Base32); err != nil {
		return nil, classify(err, "Something went wrong while generating the TOTP secret")
	}

	if err := service.mailer.SendTOTPEnabled(ctx, user.Email, user.FirstName); err != nil {
		service.logger.WarnContext(ctx, "totp_notice_send_failed", slog.String("user_id", user.ID), slog.Any("error", err))
	}

	service.logger.InfoContext(ctx, "totp_enabled", slog.String("user_id", user.ID))
	return &TOTPEnrolment{Secret: secret.Base32, URI: secret.URI, QRCode: qrCode}, nil
}

// VerifyTOTP checks that the user's authenticator produces valid codes.
func (service *Service) VerifyTOTP(ctx context.Context, userID, token string) error {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		return classify(err, "Something went wrong while verifying the TOTP token")
	}
	return service.checkTOTP(user, token)
}

/*
RemoveTOTPByEmail disables the authenticator for a user who lost it.

It needs the password and an emailed code.

Returns:
  - error: TOTP_NOT_ENABLED, INCORRECT_PASSWORD, or an OTP error
*/
func (service *Service) RemoveTOTPByEmail(ctx context.Context, email, password, code string) error {
	user, err := service.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return classify(err, "Something went wrong while removing the TOTP secret")
	}

	if !user.IsTOTPEnabled {
		return ErrTOTPNotEnabled
	}
	if !service.hasher.Verify(password, user.PasswordHash) {
		return ErrIncorrectPassword
	}
	if err := service.codes.Verify(ctx, user.ID, code); err != nil {
		return err
	}

	return service.clearTOTP(ctx, user.ID)
}

// RemoveTOTPByCode disables the authenticator using a current code from it.
func (service *Service) RemoveTOTPByCode(ctx context.Context, userID, token string) error {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		return classify(err, "Something went wrong while removing the TOTP secret")
	}
	if err := service.checkTOTP(user, token); err != nil {
		return err
	}
	return service.clearTOTP(ctx, user.ID)
}

func (service *Service) clearTOTP(ctx context.Context, userID string) error {
	if err := service.users.ClearTOTPSecret(ctx, userID); err != nil {
		return classify(err, "Something went wrong while removing the TOTP secret")
	}
	service.logger.InfoContext(ctx, "totp_disabled", slog.String("user_id", userID))
	return nil
}

// # Email Verification

// SendVerificationEmail emails a verification link to the signed-in user.
func (service *Service) SendVerificationEmail(ctx context.Context, userID string) error {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		return classify(err, "Something went wrong while sending the verification email")
	}
	return service.sendVerificationLink(ctx, user)
}

// SendVerificationEmailTo emails a verification link to the account registered under email.
func (service *Service) SendVerificationEmailTo(ctx context.Context, email string) error {
	user, err := service.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return classify(err, "Something went wrong while sending the verification email")
	}
	return service.sendVerificationLink(ctx, user)
}

/*
sendVerificationLink issues an OTP and mails a link carrying
"<email>&<otp>" encrypted under the link key.
*/
func (service *Service) sendVerificationLink(ctx context.Context, user *User) error {
	if user.IsVerified {
		return ErrAlreadyVerified
	}

	code, err := service.codes.Issue(ctx, user.ID)
	if err != nil {
		return classify(err, "Something went wrong while creating the OTP code")
	}

	link, err := service.links.EncryptLink(emaillink.Payload(user.Email, code))
	if err != nil {
		return classify(err, "Something went wrong while creating the verification link")
	}

	if err := service.mailer.SendVerificationLink(ctx, user.Email, link); err != nil {
		service.logger.ErrorContext(ctx, "verification_email_send_failed", slog.String("user_id", user.ID), slog.Any("error", err))
		return ErrEmailSendFailed.WithCause(err)
	}
	return nil
}

/*
VerifyEmailLink opens a verification link and marks the account verified.

Returns:
  - error: INVALID_LINK for anything that does not decrypt, USER_NOT_FOUND, or an OTP error
*/
func (service *Service) VerifyEmailLink(ctx context.Context, data, iv, tag string) error {
	plaintext, err := service.links.DecryptLink(data, iv, tag)
	if err != nil {
		return err
	}

	email, code, err := emaillink.ParsePayload(plaintext)
	if err != nil {
		return err
	}

	user, err := service.users.FindByEmail(ctx, email)
	if err != nil {
		return classify(err, "Something went wrong while verifying the email")
	}

	if err := service.codes.Verify(ctx, user.ID, code); err != nil {
		return err
	}

	if user.IsVerified {
		return nil
	}
	if err := service.users.MarkVerified(ctx, user.ID); err != nil {
		return classify(err, "Something went wrong while verifying the email")
	}

	service.logger.InfoContext(ctx, "email_verified", slog.String("user_id", user.ID))
	return nil
}

// # Email Two-Factor

// EnableEmailTwoFactor turns on emailed login codes. The email must be verified.
func (service *Service) EnableEmailTwoFactor(ctx context.Context, userID, code string) error {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		return classify(err, "Something went wrong while enabling email two-factor authentication")
	}
	if !user.IsVerified {
		return ErrEmailNotVerified
	}
	return service.setEmailTwoFactor(ctx, user, code, true)
}

// DisableEmailTwoFactor turns off emailed login codes.
func (service *Service) DisableEmailTwoFactor(ctx context.Context, userID, code string) error {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		return classify(err, "Something went wrong while disabling email two-factor authentication")
	}
	return service.setEmailTwoFactor(ctx, user, code, false)
}

func (service *Service) setEmailTwoFactor(ctx context.Context, user *User, code string, enabled bool) error {
	if err := service.codes.Verify(ctx, user.ID, code); err != nil {
		return err
	}
	if err := service.users.SetEmailTwoFactor(ctx, user.ID, enabled); err != nil {
		return classify(err, "Something went wrong while updating email two-factor authentication")
	}

	service.logger.InfoContext(ctx, "email_two_factor_changed", slog.String("user_id", user.ID), slog.Bool("enabled", enabled))
	return nil
}
