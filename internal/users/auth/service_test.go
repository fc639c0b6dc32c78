// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/warden/internal/platform/apperr"
	"github.com/taibuivan/warden/internal/users/auth"
)

/*
TestRegister covers account creation, duplicate emails and avatar cleanup.
*/
func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		f := newFixture(t)
		lastName := "Doe"

		token, err := f.service.Register(ctx, auth.RegisterInput{
			Email:     "  jane@example.com ",
			Password:  "correct-horse",
			FirstName: "Jane",
			LastName:  &lastName,
			Avatar:    &auth.AvatarUpload{Name: "me.png", ContentType: "image/png", Body: strings.NewReader("png")},
		})
		require.NoError(t, err)
		assert.NotEmpty(t, token)

		user, err := f.users.FindByEmail(ctx, "jane@example.com")
		require.NoError(t, err)
		assert.Equal(t, "jane@example.com", user.Email)
		assert.NotEqual(t, "correct-horse", user.PasswordHash)
		require.NotNil(t, user.AvatarURL)
		require.NotNil(t, user.AvatarPublicID)
		assert.Contains(t, f.avatars.objects, *user.AvatarPublicID)
		assert.False(t, user.IsVerified)
		assert.Equal(t, []string{token}, f.sessions.forUser(user.ID))
	})

	t.Run("duplicate_email", func(t *testing.T) {
		f := newFixture(t)
		f.register(t)

		_, err := f.service.Register(ctx, auth.RegisterInput{
			Email:     "JANE@example.com",
			Password:  "another-pass",
			FirstName: "Jane",
		})
		assert.True(t, apperr.HasCode(err, apperr.CodeUniqueConstraintFailed))
		assert.Len(t, f.users.users, 1)
	})

	t.Run("avatar_deleted_on_failure", func(t *testing.T) {
		f := newFixture(t)
		f.sessions.issueErr = errBoom

		_, err := f.service.Register(ctx, auth.RegisterInput{
			Email:     "jane@example.com",
			Password:  "correct-horse",
			FirstName: "Jane",
			Avatar:    &auth.AvatarUpload{Name: "me.png", ContentType: "image/png", Body: strings.NewReader("png")},
		})
		assert.True(t, apperr.HasCode(err, apperr.CodeServerError))
		assert.Empty(t, f.avatars.objects)
	})
}

/*
TestLogin covers the password check and the two-factor hand-off.
*/
func TestLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	userID := f.register(t)

	tests := []struct {
		name     string
		email    string
		password string
		wantCode string
	}{
		{"unknown_user", "nobody@example.com", "correct-horse", apperr.CodeUserNotFound},
		{"wrong_password", "jane@example.com", "wrong-horse", apperr.CodeInvalidPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Login(ctx, tt.email, tt.password)
			assert.True(t, apperr.HasCode(err, tt.wantCode), "got %v", err)
		})
	}

	t.Run("success", func(t *testing.T) {
		result, err := f.service.Login(ctx, "Jane@Example.com", "correct-horse")
		require.NoError(t, err)
		assert.False(t, result.NeedsTwoFactor())
		assert.Contains(t, f.sessions.forUser(userID), result.AccessToken)
	})

	t.Run("two_factor_required", func(t *testing.T) {
		require.NoError(t, f.users.SetEmailTwoFactor(ctx, userID, true))
		require.NoError(t, f.users.SetTOTPSecret(ctx, userID, "JBSWY3DPEHPK3PXP"))
		before := len(f.sessions.forUser(userID))

		result, err := f.service.Login(ctx, "jane@example.com", "correct-horse")
		require.NoError(t, err)
		assert.True(t, result.NeedsTwoFactor())
		assert.Equal(t, map[string]bool{auth.MethodEmail: true, auth.MethodTOTP: true}, result.Methods)
		assert.Len(t, f.sessions.forUser(userID), before)
	})
}

/*
TestLoginTwoFactor covers both second factors and their failure codes.
*/
func TestLoginTwoFactor(t *testing.T) {
	ctx := context.Background()

	input := func(method, proof string) auth.TwoFactorInput {
		return auth.TwoFactorInput{Email: "jane@example.com", Password: "correct-horse", Method: method, Proof: proof}
	}

	t.Run("invalid_method", func(t *testing.T) {
		f := newFixture(t)
		f.register(t)
		_, err := f.service.LoginTwoFactor(ctx, input("sms", "123456"))
		assert.True(t, apperr.HasCode(err, apperr.CodeInvalidMethod))
	})

	t.Run("email", func(t *testing.T) {
		f := newFixture(t)
		userID := f.register(t)

		_, err := f.service.LoginTwoFactor(ctx, input(auth.MethodEmail, f.otpFor(t, userID)))
		assert.True(t, apperr.HasCode(err, apperr.CodeInvalidMethod), "email 2FA disabled")

		require.NoError(t, f.users.SetEmailTwoFactor(ctx, userID, true))

		_, err = f.service.LoginTwoFactor(ctx, input(auth.MethodEmail, "999999"))
		assert.True(t, apperr.HasCode(err, apperr.CodeInvalidOTP))

		token, err := f.service.LoginTwoFactor(ctx, input(auth.MethodEmail, f.otpFor(t, userID)))
		require.NoError(t, err)
		assert.Contains(t, f.sessions.forUser(userID), token)
	})

	t.Run("totp", func(t *testing.T) {
		f := newFixture(t)
		userID := f.register(t)

		_, err := f.service.LoginTwoFactor(ctx, input(auth.MethodTOTP, "123456"))
		assert.True(t, apperr.HasCode(err, apperr.CodeTOTPNotEnabled))

		enrolment, err := f.service.GenerateTOTP(ctx, userID, f.otpFor(t, userID))
		require.NoError(t, err)

		code, err := f.totp.Code(enrolment.Secret, fixedNow)
		require.NoError(t, err)

		_, err = f.service.LoginTwoFactor(ctx, input(auth.MethodTOTP, flipDigit(code)))
		assert.True(t, apperr.HasCode(err, apperr.CodeInvalidTOTPToken))

		token, err := f.service.LoginTwoFactor(ctx, input(auth.MethodTOTP, code))
		require.NoError(t, err)
		assert.Contains(t, f.sessions.forUser(userID), token)
	})

	t.Run("wrong_password", func(t *testing.T) {
		f := newFixture(t)
		f.register(t)
		in := input(auth.MethodEmail, "000001")
		in.Password = "nope"
		_, err := f.service.LoginTwoFactor(ctx, in)
		assert.True(t, apperr.HasCode(err, apperr.CodeInvalidPassword))
	})
}

func flipDigit(code string) string {
	last := code[len(code)-1]
	replacement := byte('0')
	if last == '0' {
		replacement = '1'
	}
	return code[:len(code)-1] + string(replacement)
}

/*
TestLogout destroys only the current session.
*/
func TestLogout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	userID := f.register(t)

	second, err := f.service.Login(ctx, "jane@example.com", "correct-horse")
	require.NoError(t, err)
	require.Len(t, f.sessions.forUser(userID), 2)

	require.NoError(t, f.service.Logout(ctx, second.AccessToken))
	remaining := f.sessions.forUser(userID)
	assert.Len(t, remaining, 1)
	assert.NotContains(t, remaining, second.AccessToken)
}

/*
TestRequestOTP emails codes by user id or email and surfaces mail failures.
*/
func TestRequestOTP(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	userID := f.register(t)

	require.NoError(t, f.service.RequestOTP(ctx, userID))
	sent := f.mailer.last(t)
	assert.Equal(t, "otp", sent.kind)
	assert.Equal(t, "jane@example.com", sent.to)
	assert.NoError(t, f.codes.Verify(ctx, userID, sent.value))

	require.NoError(t, f.service.RequestOTPByEmail(ctx, "jane@example.com"))
	assert.Equal(t, "otp", f.mailer.last(t).kind)

	err := f.service.RequestOTPByEmail(ctx, "nobody@example.com")
	assert.True(t, apperr.HasCode(err, apperr.CodeUserNotFound))

	f.mailer.err = errBoom
	err = f.service.RequestOTP(ctx, userID)
	require.True(t, apperr.HasCode(err, apperr.CodeServerError))
	assert.Equal(t, "Something went wrong while sending the email", err.Error())
}

/*
TestResetPassword replaces the password and revokes every earlier session.
*/
func TestResetPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("signed_in", func(t *testing.T) {
		f := newFixture(t)
		userID := f.register(t)
		_, err := f.service.Login(ctx, "jane@example.com", "correct-horse")
		require.NoError(t, err)
		previous := f.sessions.forUser(userID)
		require.Len(t, previous, 2)

		token, err := f.service.ResetPassword(ctx, userID, f.otpFor(t, userID), "new-password-1")
		require.NoError(t, err)

		assert.Equal(t, []string{token}, f.sessions.forUser(userID))

		_, err = f.service.Login(ctx, "jane@example.com", "correct-horse")
		assert.True(t, apperr.HasCode(err, apperr.CodeInvalidPassword))
		_, err = f.service.Login(ctx, "jane@example.com", "new-password-1")
		assert.NoError(t, err)
	})

	t.Run("by_email", func(t *testing.T) {
		f := newFixture(t)
		userID := f.register(t)

		_, err := f.service.ResetPasswordByEmail(ctx, "jane@example.com", "000000", "new-password-1")
		assert.True(t, apperr.HasCode(err, apperr.CodeInvalidOTP))

		code := f.otpFor(t, userID)
		_, err = f.service.ResetPasswordByEmail(ctx, "jane@example.com", code, "new-password-1")
		require.NoError(t, err)

		_, err = f.service.ResetPasswordByEmail(ctx, "jane@example.com", code, "new-password-2")
		assert.True(t, apperr.HasCode(err, apperr.CodeInvalidOTP), "codes are single use")
	})
}

/*
TestTOTPLifecycle walks enrolment, verification and both removal paths.
*/
func TestTOTPLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	userID := f.register(t)

	_, err := f.service.GenerateTOTP(ctx, userID, "000000")
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidOTP))

	err = f.service.VerifyTOTP(ctx, userID, "123456")
	assert.True(t, apperr.HasCode(err, apperr.CodeTOTPNotEnabled))

	enrolment, err := f.service.GenerateTOTP(ctx, userID, f.otpFor(t, userID))
	require.NoError(t, err)
	assert.NotEmpty(t, enrolment.Secret)
	assert.True(t, strings.HasPrefix(enrolment.URI, "otpauth://totp/"))
	assert.True(t, strings.HasPrefix(enrolment.QRCode, "data:image/png;base64,"))

	user, err := f.users.FindByID(ctx, userID)
	require.NoError(t, err)
	assert.True(t, user.IsTOTPEnabled)
	require.NotNil(t, user.TOTPSecret)
	assert.Equal(t, enrolment.Secret, *user.TOTPSecret)

	notice := f.mailer.last(t)
	assert.Equal(t, "totp", notice.kind)
	assert.Equal(t, "Jane", notice.value)

	code, err := f.totp.Code(enrolment.Secret, fixedNow)
	require.NoError(t, err)
	assert.NoError(t, f.service.VerifyTOTP(ctx, userID, code))
	assert.True(t, apperr.HasCode(f.service.VerifyTOTP(ctx, userID, flipDigit(code)), apperr.CodeInvalidTOTPToken))

	t.Run("remove_by_email", func(t *testing.T) {
		err := f.service.RemoveTOTPByEmail(ctx, "jane@example.com", "wrong", f.otpFor(t, userID))
		assert.True(t, apperr.HasCode(err, apperr.CodeIncorrectPassword))

		err = f.service.RemoveTOTPByEmail(ctx, "jane@example.com", "correct-horse", "000000")
		assert.True(t, apperr.HasCode(err, apperr.CodeInvalidOTP))

		require.NoError(t, f.service.RemoveTOTPByEmail(ctx, "jane@example.com", "correct-horse", f.otpFor(t, userID)))

		user, err := f.users.FindByID(ctx, userID)
		require.NoError(t, err)
		assert.False(t, user.IsTOTPEnabled)
		assert.Nil(t, user.TOTPSecret)

		err = f.service.RemoveTOTPByEmail(ctx, "jane@example.com", "correct-horse", f.otpFor(t, userID))
		assert.True(t, apperr.HasCode(err, apperr.CodeTOTPNotEnabled))
	})

	t.Run("remove_by_code", func(t *testing.T) {
		enrolment, err := f.service.GenerateTOTP(ctx, userID, f.otpFor(t, userID))
		require.NoError(t, err)
		code, err := f.totp.Code(enrolment.Secret, fixedNow)
		require.NoError(t, err)

		assert.True(t, apperr.HasCode(f.service.RemoveTOTPByCode(ctx, userID, flipDigit(code)), apperr.CodeInvalidTOTPToken))
		require.NoError(t, f.service.RemoveTOTPByCode(ctx, userID, code))

		user, err := f.users.FindByID(ctx, userID)
		require.NoError(t, err)
		assert.False(t, user.IsTOTPEnabled)
	})
}

/*
TestGenerateTOTP_NoticeFailureIsIgnored keeps the enrolment when the notice
email cannot be sent.
*/
func TestGenerateTOTP_NoticeFailureIsIgnored(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	userID := f.register(t)
	code := f.otpFor(t, userID)
	f.mailer.err = errBoom

	_, err := f.service.GenerateTOTP(ctx, userID, code)
	require.NoError(t, err)

	user, err := f.users.FindByID(ctx, userID)
	require.NoError(t, err)
	assert.True(t, user.IsTOTPEnabled)
}

/*
TestEmailVerification sends a link, opens it and rejects tampered or reused links.
*/
func TestEmailVerification(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	userID := f.register(t)

	require.NoError(t, f.service.SendVerificationEmail(ctx, userID))
	sent := f.mailer.last(t)
	require.Equal(t, "link", sent.kind)

	link, err := url.Parse(sent.value)
	require.NoError(t, err)
	assert.Equal(t, "warden.test", link.Host)
	query := link.Query()

	tampered := []byte(query.Get("data"))
	if tampered[0] == 'A' {
		tampered[0] = 'B'
	} else {
		tampered[0] = 'A'
	}
	err = f.service.VerifyEmailLink(ctx, string(tampered), query.Get("iv"), query.Get("tag"))
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidLink))

	require.NoError(t, f.service.VerifyEmailLink(ctx, query.Get("data"), query.Get("iv"), query.Get("tag")))
	user, err := f.users.FindByID(ctx, userID)
	require.NoError(t, err)
	assert.True(t, user.IsVerified)

	err = f.service.VerifyEmailLink(ctx, query.Get("data"), query.Get("iv"), query.Get("tag"))
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidOTP), "the embedded code is consumed")

	err = f.service.SendVerificationEmailTo(ctx, "jane@example.com")
	assert.True(t, apperr.HasCode(err, apperr.CodeAlreadyVerified))
}

/*
TestEmailTwoFactor requires a verified address and an OTP for both toggles.
*/
func TestEmailTwoFactor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	userID := f.register(t)

	err := f.service.EnableEmailTwoFactor(ctx, userID, f.otpFor(t, userID))
	assert.True(t, apperr.HasCode(err, apperr.CodeEmailNotVerified))

	require.NoError(t, f.users.MarkVerified(ctx, userID))

	err = f.service.EnableEmailTwoFactor(ctx, userID, "000000")
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidOTP))

	require.NoError(t, f.service.EnableEmailTwoFactor(ctx, userID, f.otpFor(t, userID)))
	result, err := f.service.Login(ctx, "jane@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{auth.MethodEmail: true}, result.Methods)

	require.NoError(t, f.service.DisableEmailTwoFactor(ctx, userID, f.otpFor(t, userID)))
	result, err = f.service.Login(ctx, "jane@example.com", "correct-horse")
	require.NoError(t, err)
	assert.False(t, result.NeedsTwoFactor())
}
