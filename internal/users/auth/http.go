// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/warden/internal/platform/constants"
	"github.com/taibuivan/warden/internal/platform/middleware"
	requestutil "github.com/taibuivan/warden/internal/platform/request"
	"github.com/taibuivan/warden/internal/platform/respond"
	"github.com/taibuivan/warden/internal/platform/validate"
	"github.com/taibuivan/warden/internal/users/emaillink"
	"github.com/taibuivan/warden/internal/users/otp"
	"github.com/taibuivan/warden/pkg/pointer"
)

// # Response Codes

const (
	CodeCreated                = "SUCCESSFULLY_CREATED"
	CodeLogin                  = "SUCCESSFULLY_LOGIN"
	CodeNeedTwoFactor          = "NEED_TWO_FACTOR_AUTH"
	CodeLogout                 = "SUCCESSFULLY_LOGOUT"
	CodeSentOTP                = "SUCCESSFULLY_SENT_OTP"
	CodeResetPassword          = "SUCCESSFULLY_RESET_PASSWORD"
	CodeCreatedTOTP            = "SUCCESSFULLY_CREATED_TOTP"
	CodeVerifiedTOTP           = "SUCCESSFULLY_VERIFIED_TOTP"
	CodeRemovedTOTP            = "SUCCESSFULLY_REMOVED_TOTP"
	CodeSentVerificationEmail  = "SUCCESSFULLY_SEND_VERIFICATION_EMAIL"
	CodeEnabledEmailTwoFactor  = "SUCCESSFULLY_ENABLED_EMAIL_VERIFICATION"
	CodeDisabledEmailTwoFactor = "SUCCESSFULLY_DISABLE_EMAIL_VERIFICATION"
)

const (
	minPasswordLength = 8

	// bcrypt ignores input past 72 bytes.
	maxPasswordLength = 72
	maxNameLength     = 50
	verifiedQuery     = "?Verified=true"
)

// # Definitions & Constructors

// Handler implements the authentication endpoints.
type Handler struct {
	service     *Service
	cookie      *middleware.AccessCookie
	csrf        *middleware.CSRF
	frontendURL string
}

// NewHandler constructs a [Handler]. frontendURL is where verified users are
// redirected; when empty they go to "/".
func NewHandler(service *Service, cookie *middleware.AccessCookie, csrf *middleware.CSRF, frontendURL string) *Handler {
	return &Handler{service: service, cookie: cookie, csrf: csrf, frontendURL: frontendURL}
}

/*
Mount registers the authentication routes on router.

The routes share the /api/v1/auth prefix with the account handler, so both
register onto the same router instead of mounting sub-routers.

# Endpoints
  - GET  /csrf                          : Issues the CSRF token
  - GET  /email-verification-check      : Opens a verification link
  - POST /register, /login, /login-two-factor
  - POST /otp-request, /password-reset, /email-verification-req (optional session)
  - POST /remove-totp/email
  - POST /logout, /generate-totp, /verify-totp, /remove-totp/totp (session)
  - POST /email-verification-enable-2fa, /email-verification-remove-2fa (session)
*/
func (handler *Handler) Mount(router chi.Router) {
	router.Get("/csrf", handler.csrf.TokenHandler)
	router.Get("/email-verification-check", handler.verifyEmailLink)

	router.Group(func(r chi.Router) {
		r.Use(handler.csrf.Protect)

		// Public endpoints
		r.Post("/register", handler.register)
		r.Post("/login", handler.login)
		r.Post("/login-two-factor", handler.loginTwoFactor)
		r.Post("/remove-totp/email", handler.removeTOTPByEmail)

		// Session optional: the body names the account when anonymous
		r.Post("/otp-request", handler.requestOTP)
		r.Post("/password-reset", handler.resetPassword)
		r.Post("/email-verification-req", handler.requestVerificationEmail)

		// Protected endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Post("/logout", handler.logout)
			r.Post("/generate-totp", handler.generateTOTP)
			r.Post("/verify-totp", handler.verifyTOTP)
			r.Post("/remove-totp/totp", handler.removeTOTPByCode)
			r.Post("/email-verification-enable-2fa", handler.enableEmailTwoFactor)
			r.Post("/email-verification-remove-2fa", handler.disableEmailTwoFactor)
		})
	})
}

// # Request Payloads

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type twoFactorLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	OTP      string `json:"otp"`
	Token    string `json:"token"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type otpRequest struct {
	OTP string `json:"otp"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type passwordResetRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

type removeTOTPByEmailRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	OTP      string `json:"otp"`
}

// # Registration

/*
Register creates an account and logs it in.

POST /api/v1/auth/register

Request:
  - Body: multipart form (email, password, firstName, lastName, optional "profile" file)
    or the same fields as JSON

Response:
  - 201: SUCCESSFULLY_CREATED, access cookie set
  - 400: SCHEMA_VALIDATE_ERROR
  - 409: UNIQUE_CONSTRAINT_FAILED
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	input, cleanup, err := decodeRegistration(writer, request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	defer cleanup()

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, minPasswordLength).
		Custom(FieldPassword, len(input.Password) > maxPasswordLength, "Maximum 72 bytes").
		Required(FieldFirstName, input.FirstName).
		MaxLen(FieldFirstName, input.FirstName, maxNameLength)
	if input.LastName != nil {
		validator.MaxLen(FieldLastName, *input.LastName, maxNameLength)
	}

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	accessToken, err := handler.service.Register(request.Context(), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.cookie.Set(writer, accessToken)
	respond.Created(writer, CodeCreated, "User has been successfully created.", nil)
}

// decodeRegistration reads either a multipart form or a JSON body.
// The returned cleanup releases the multipart temp files.
func decodeRegistration(writer http.ResponseWriter, request *http.Request) (RegisterInput, func(), error) {
	noop := func() {}

	if !strings.HasPrefix(request.Header.Get("Content-Type"), "multipart/") {
		var body struct {
			Email     string  `json:"email"`
			Password  string  `json:"password"`
			FirstName string  `json:"firstName"`
			LastName  *string `json:"lastName"`
		}
		if err := requestutil.DecodeJSON(request, &body); err != nil {
			return RegisterInput{}, noop, err
		}
		return RegisterInput{
			Email:     body.Email,
			Password:  body.Password,
			FirstName: strings.TrimSpace(body.FirstName),
			LastName:  trimmedOrNil(body.LastName),
		}, noop, nil
	}

	request.Body = http.MaxBytesReader(writer, request.Body, constants.MaxAvatarUploadBytes+1<<20)
	if err := request.ParseMultipartForm(constants.MaxAvatarUploadBytes); err != nil {
		return RegisterInput{}, noop, validate.RequiredError(FieldProfile, "Invalid multipart form or file too large")
	}
	cleanup := func() { _ = request.MultipartForm.RemoveAll() }

	lastName := request.FormValue(FieldLastName)
	input := RegisterInput{
		Email:     request.FormValue(FieldEmail),
		Password:  request.FormValue(FieldPassword),
		FirstName: strings.TrimSpace(request.FormValue(FieldFirstName)),
		LastName:  trimmedOrNil(&lastName),
	}

	file, header, err := request.FormFile(FieldProfile)
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return input, cleanup, nil
	case err != nil:
		cleanup()
		return RegisterInput{}, noop, validate.RequiredError(FieldProfile, "Unreadable profile picture")
	}

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		_ = file.Close()
		cleanup()
		return RegisterInput{}, noop, validate.RequiredError(FieldProfile, "Profile picture must be an image")
	}

	input.Avatar = &AvatarUpload{Name: header.Filename, ContentType: contentType, Body: file}
	return input, func() { closeFile(file); cleanup() }, nil
}

func closeFile(file multipart.File) {
	_ = file.Close()
}

func trimmedOrNil(value *string) *string {
	return pointer.NilIfZero(strings.TrimSpace(pointer.Val(value)))
}

// # Login & Logout

/*
Login authenticates with email and password.

POST /api/v1/auth/login

Response:
  - 200: SUCCESSFULLY_LOGIN with the access cookie, or NEED_TWO_FACTOR_AUTH with {methods}
  - 400: INVALID_PASSWORD
  - 404: USER_NOT_FOUND
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input credentialsRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.service.Login(request.Context(), input.Email, input.Password)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if result.NeedsTwoFactor() {
		respond.OK(writer, CodeNeedTwoFactor, "Two-factor authentication required", map[string]any{
			"methods": result.Methods,
		})
		return
	}

	handler.cookie.Set(writer, result.AccessToken)
	respond.OK(writer, CodeLogin, "User has been successfully logged in.", nil)
}

/*
LoginTwoFactor completes a login with a second factor.

POST /api/v1/auth/login-two-factor?method=email|totp

Request:
  - Body: email, password, and otp (method=email) or token (method=totp)
*/
func (handler *Handler) loginTwoFactor(writer http.ResponseWriter, request *http.Request) {
	method := request.URL.Query().Get(FieldMethod)
	if method != MethodEmail && method != MethodTOTP {
		respond.Error(writer, request, ErrInvalidMethod)
		return
	}

	var input twoFactorLoginRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	proofField, proof := FieldOTP, input.OTP
	if method == MethodTOTP {
		proofField, proof = FieldToken, input.Token
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password).
		Code(proofField, proof, otp.CodeLength)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	accessToken, err := handler.service.LoginTwoFactor(request.Context(), TwoFactorInput{
		Email:    input.Email,
		Password: input.Password,
		Method:   method,
		Proof:    proof,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.cookie.Set(writer, accessToken)
	respond.OK(writer, CodeLogin, "User has been successfully logged in.", nil)
}

/*
Logout destroys the current session and clears the access cookie.

POST /api/v1/auth/logout
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.Logout(request.Context(), principal.SessionID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.cookie.Clear(writer)
	respond.OK(writer, CodeLogout, "User has been successfully logged out.", nil)
}

// # One-Time Codes & Password Reset

/*
RequestOTP emails a one-time code.

POST /api/v1/auth/otp-request

Signed-in users get the code at their own address; anonymous callers name
the account with {email}.
*/
func (handler *Handler) requestOTP(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()

	var err error
	if principal := requestutil.Principal(request); principal != nil {
		err = handler.service.RequestOTP(ctx, principal.UserID)
	} else {
		var input emailRequest
		if err := decodeEmail(request, &input); err != nil {
			respond.Error(writer, request, err)
			return
		}
		err = handler.service.RequestOTPByEmail(ctx, input.Email)
	}

	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, CodeSentOTP, "The OTP code was successfully sent to the user's email address.", nil)
}

func decodeEmail(request *http.Request, input *emailRequest) error {
	if err := requestutil.DecodeJSON(request, input); err != nil {
		return err
	}
	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).Email(FieldEmail, input.Email)
	return validator.Err()
}

/*
ResetPassword sets a new password after an OTP step-up and starts a fresh
session. Every other session of the user is revoked.

POST /api/v1/auth/password-reset

Request:
  - Body: otp, newPassword, and email when not signed in
*/
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	principal := requestutil.Principal(request)

	var input passwordResetRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Code(FieldOTP, input.OTP, otp.CodeLength).
		Required(FieldNewPassword, input.NewPassword).
		MinLen(FieldNewPassword, input.NewPassword, minPasswordLength).
		Custom(FieldNewPassword, len(input.NewPassword) > maxPasswordLength, "Maximum 72 bytes")
	if principal == nil {
		validator.Required(FieldEmail, input.Email).Email(FieldEmail, input.Email)
	}
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	var (
		accessToken string
		err         error
	)
	if principal != nil {
		accessToken, err = handler.service.ResetPassword(ctx, principal.UserID, input.OTP, input.NewPassword)
	} else {
		accessToken, err = handler.service.ResetPasswordByEmail(ctx, input.Email, input.OTP, input.NewPassword)
	}
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.cookie.Set(writer, accessToken)
	respond.OK(writer, CodeResetPassword, "User has been successfully reset the password.", nil)
}

// # Authenticator App (TOTP)

/*
GenerateTOTP enrols an authenticator app.

POST /api/v1/auth/generate-totp

Request:
  - Body: {otp}

Response:
  - 200: SUCCESSFULLY_CREATED_TOTP with {secret, uri, base64}
*/
func (handler *Handler) generateTOTP(writer http.ResponseWriter, request *http.Request) {
	principal, input, ok := handler.principalAndOTP(writer, request)
	if !ok {
		return
	}

	enrolment, err := handler.service.GenerateTOTP(request.Context(), principal, input.OTP)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, CodeCreatedTOTP, "Successfully created TOTP key.", enrolment)
}

// VerifyTOTP handles POST /api/v1/auth/verify-totp with {token}.
func (handler *Handler) verifyTOTP(writer http.ResponseWriter, request *http.Request) {
	principal, token, ok := handler.principalAndToken(writer, request)
	if !ok {
		return
	}

	if err := handler.service.VerifyTOTP(request.Context(), principal, token); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, CodeVerifiedTOTP, "Successfully verified TOTP.", nil)
}

/*
RemoveTOTPByEmail disables the authenticator without it.

POST /api/v1/auth/remove-totp/email

Request:
  - Body: {email, password, otp}
*/
func (handler *Handler) removeTOTPByEmail(writer http.ResponseWriter, request *http.Request) {
	var input removeTOTPByEmailRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password).
		Code(FieldOTP, input.OTP, otp.CodeLength)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.RemoveTOTPByEmail(request.Context(), input.Email, input.Password, input.OTP); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, CodeRemovedTOTP, "Successfully removed TOTP.", nil)
}

// RemoveTOTPByCode handles POST /api/v1/auth/remove-totp/totp with {token}.
func (handler *Handler) removeTOTPByCode(writer http.ResponseWriter, request *http.Request) {
	principal, token, ok := handler.principalAndToken(writer, request)
	if !ok {
		return
	}

	if err := handler.service.RemoveTOTPByCode(request.Context(), principal, token); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, CodeRemovedTOTP, "Successfully removed TOTP.", nil)
}

// # Email Verification

/*
RequestVerificationEmail mails a verification link.

POST /api/v1/auth/email-verification-req

Signed-in users need no body; anonymous callers send {email}.
*/
func (handler *Handler) requestVerificationEmail(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()

	var err error
	if principal := requestutil.Principal(request); principal != nil {
		err = handler.service.SendVerificationEmail(ctx, principal.UserID)
	} else {
		var input emailRequest
		if err := decodeEmail(request, &input); err != nil {
			respond.Error(writer, request, err)
			return
		}
		err = handler.service.SendVerificationEmailTo(ctx, input.Email)
	}

	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, CodeSentVerificationEmail, "Successfully sent the account verification email.", nil)
}

/*
VerifyEmailLink opens a link from the verification email.

GET /api/v1/auth/email-verification-check?data=..&iv=..&tag=..

Response:
  - 302: redirect to the frontend with ?Verified=true
  - 400: INVALID_LINK
*/
func (handler *Handler) verifyEmailLink(writer http.ResponseWriter, request *http.Request) {
	query := request.URL.Query()
	data, iv, tag := query.Get(FieldData), query.Get(FieldIV), query.Get(FieldTag)
	if data == "" || iv == "" || tag == "" {
		respond.Error(writer, request, emaillink.ErrInvalidLink)
		return
	}

	if err := handler.service.VerifyEmailLink(request.Context(), data, iv, tag); err != nil {
		respond.Error(writer, request, err)
		return
	}

	target := "/" + verifiedQuery
	if handler.frontendURL != "" {
		target = handler.frontendURL + verifiedQuery
	}
	http.Redirect(writer, request, target, http.StatusFound)
}

// EnableEmailTwoFactor handles POST /api/v1/auth/email-verification-enable-2fa with {otp}.
func (handler *Handler) enableEmailTwoFactor(writer http.ResponseWriter, request *http.Request) {
	principal, input, ok := handler.principalAndOTP(writer, request)
	if !ok {
		return
	}

	if err := handler.service.EnableEmailTwoFactor(request.Context(), principal, input.OTP); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, CodeEnabledEmailTwoFactor, "Successfully enabled email verification for two-factor authentication.", nil)
}

// DisableEmailTwoFactor handles POST /api/v1/auth/email-verification-remove-2fa with {otp}.
func (handler *Handler) disableEmailTwoFactor(writer http.ResponseWriter, request *http.Request) {
	principal, input, ok := handler.principalAndOTP(writer, request)
	if !ok {
		return
	}

	if err := handler.service.DisableEmailTwoFactor(request.Context(), principal, input.OTP); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, CodeDisabledEmailTwoFactor, "Successfully disabled email verification for two-factor authentication.", nil)
}

// # Helpers

// principalAndOTP reads the caller's user id and an {otp} body, writing the
// error response itself when either is missing.
func (handler *Handler) principalAndOTP(writer http.ResponseWriter, request *http.Request) (string, otpRequest, bool) {
	var input otpRequest

	principal, err := requestutil.RequiredPrincipal(request)
	if err == nil {
		err = requestutil.DecodeJSON(request, &input)
	}
	if err == nil {
		err = (&validate.Validator{}).Code(FieldOTP, input.OTP, otp.CodeLength).Err()
	}
	if err != nil {
		respond.Error(writer, request, err)
		return "", input, false
	}
	return principal.UserID, input, true
}

// principalAndToken is [Handler.principalAndOTP] for a {token} body.
func (handler *Handler) principalAndToken(writer http.ResponseWriter, request *http.Request) (string, string, bool) {
	var input tokenRequest

	principal, err := requestutil.RequiredPrincipal(request)
	if err == nil {
		err = requestutil.DecodeJSON(request, &input)
	}
	if err == nil {
		err = (&validate.Validator{}).Code(FieldToken, input.Token, otp.CodeLength).Err()
	}
	if err != nil {
		respond.Error(writer, request, err)
		return "", "", false
	}
	return principal.UserID, input.Token, true
}
