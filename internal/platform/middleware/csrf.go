// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/taibuivan/warden/internal/platform/apperr"
	"github.com/taibuivan/warden/internal/platform/constants"
	"github.com/taibuivan/warden/internal/platform/respond"
	"github.com/taibuivan/warden/internal/platform/sec"
)

// csrfTokenBytes is the entropy of a CSRF token before encoding.
const csrfTokenBytes = 64

// ErrInvalidCSRFToken is returned when the header token does not match the cookie.
var ErrInvalidCSRFToken = apperr.Forbidden(apperr.CodeInvalidCSRFToken, "Invalid CSRF token")

/*
CSRF implements double-submit cookie protection.

The cookie holds "<token>|<hex(hmac(secret, token))>" and the client echoes
<token> in the X-CSRF-Token header on unsafe methods. A cookie the server did
not mint fails the HMAC, so a subdomain cannot plant its own pair.
*/
type CSRF struct {
	secret  []byte
	secure  bool
	enabled bool
}

// NewCSRF creates the protector. enabled=false turns [CSRF.Protect] into a no-op.
func NewCSRF(secret string, secure, enabled bool) *CSRF {
	return &CSRF{secret: []byte(secret), secure: secure, enabled: enabled}
}

func (csrf *CSRF) mac(token string) string {
	hash := hmac.New(sha256.New, csrf.secret)
	hash.Write([]byte(token))
	return hex.EncodeToString(hash.Sum(nil))
}

// tokenFromCookie returns the token part of a valid cookie.
func (csrf *CSRF) tokenFromCookie(request *http.Request) (string, bool) {
	cookie, err := request.Cookie(constants.CSRFCookieName)
	if err != nil {
		return "", false
	}

	token, signature, found := strings.Cut(cookie.Value, "|")
	if !found || token == "" {
		return "", false
	}
	if !hmac.Equal([]byte(signature), []byte(csrf.mac(token))) {
		return "", false
	}
	return token, true
}

// Issue returns the current token, minting and setting a new cookie if needed.
func (csrf *CSRF) Issue(writer http.ResponseWriter, request *http.Request) (string, error) {
	if token, ok := csrf.tokenFromCookie(request); ok {
		return token, nil
	}

	token, err := sec.GenerateSecureToken(csrfTokenBytes)
	if err != nil {
		return "", err
	}

	http.SetCookie(writer, &http.Cookie{
		Name:     constants.CSRFCookieName,
		Value:    token + "|" + csrf.mac(token),
		Path:     "/",
		Secure:   csrf.secure,
		SameSite: http.SameSiteLaxMode,
		HttpOnly: true,
	})
	return token, nil
}

// Protect rejects unsafe requests whose header token does not match the cookie.
func (csrf *CSRF) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if !csrf.enabled {
			next.ServeHTTP(writer, request)
			return
		}

		switch request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(writer, request)
			return
		}

		token, ok := csrf.tokenFromCookie(request)
		header := request.Header.Get(constants.HeaderCSRFToken)
		if !ok || header == "" || !hmac.Equal([]byte(header), []byte(token)) {
			respond.Error(writer, request, ErrInvalidCSRFToken)
			return
		}

		next.ServeHTTP(writer, request)
	})
}

// TokenHandler serves GET /csrf with {"token": "..."}.
func (csrf *CSRF) TokenHandler(writer http.ResponseWriter, request *http.Request) {
	token, err := csrf.Issue(writer, request)
	if err != nil {
		respond.Error(writer, request, apperr.InternalMessage("An unexpected error occurred while generating CSRF token", err))
		return
	}
	respond.JSON(writer, http.StatusOK, map[string]string{"token": token})
}
