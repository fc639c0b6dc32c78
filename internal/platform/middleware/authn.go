// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/taibuivan/warden/internal/platform/apperr"
	"github.com/taibuivan/warden/internal/platform/constants"
	"github.com/taibuivan/warden/internal/platform/ctxutil"
	"github.com/taibuivan/warden/internal/platform/respond"
	"github.com/taibuivan/warden/internal/platform/sec"
)

// SessionResolver is the slice of the session service the middleware needs.
type SessionResolver interface {
	// VerifyAccess returns (nil, nil) for a well-signed but expired token.
	VerifyAccess(accessToken string) (*sec.SessionClaims, error)
	// ResignAccess mints a new access token from the session's refresh token.
	ResignAccess(ctx context.Context, expiredAccessToken string) (string, error)
	// UserID resolves a live session to its owner.
	UserID(ctx context.Context, sessionID string) (string, error)
}

// # Access Cookie

// AccessCookie reads and writes the signed access-token cookie.
type AccessCookie struct {
	Signer *sec.CookieSigner
	// TimeToLive matches the access token lifetime.
	TimeToLive time.Duration
	// Secure is set in production.
	Secure bool
}

// Set writes token, signed, with the access token lifetime.
func (cookie *AccessCookie) Set(writer http.ResponseWriter, token string) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.AccessTokenCookieName,
		Value:    cookie.Signer.Sign(token),
		Path:     "/",
		Expires:  time.Now().Add(cookie.TimeToLive),
		MaxAge:   int(cookie.TimeToLive.Seconds()),
		HttpOnly: true,
		Secure:   cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// Clear expires the cookie on the client.
func (cookie *AccessCookie) Clear(writer http.ResponseWriter) {
	respond.ClearCookie(writer, constants.AccessTokenCookieName)
}

/*
Read returns the unsigned token from request.

Returns:
  - ("", false, nil) when the cookie is absent or empty
  - an error when the signature does not match
*/
func (cookie *AccessCookie) Read(request *http.Request) (string, bool, error) {
	raw, err := request.Cookie(constants.AccessTokenCookieName)
	if err != nil || raw.Value == "" {
		return "", false, nil
	}

	token, ok := cookie.Signer.Unsign(raw.Value)
	if !ok {
		return "", false, apperr.ErrInvalidOrExpiredToken
	}
	return token, true, nil
}

// # Authentication

/*
Authenticate resolves the access-token cookie into a [sec.Principal].

Flow:
 1. No cookie: the request proceeds as anonymous.
 2. Bad cookie signature or forged token: 401 and the cookie is cleared.
 3. Expired token: re-signed from the refresh session and a fresh cookie is
    set on the response.
 4. The session id is resolved to its user and the principal is injected.
*/
func Authenticate(resolver SessionResolver, cookie *AccessCookie) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			ctx := request.Context()

			// 1. Anonymous Access
			token, present, err := cookie.Read(request)
			if err != nil {
				respond.Error(writer, request, err)
				return
			}
			if !present {
				next.ServeHTTP(writer, request)
				return
			}

			// 2. Token Verification
			claims, err := resolver.VerifyAccess(token)
			if err != nil {
				respond.Error(writer, request, err)
				return
			}

			// 3. Silent Refresh
			refreshed := ""
			if claims == nil {
				refreshed, err = resolver.ResignAccess(ctx, token)
				if err != nil {
					respond.Error(writer, request, err)
					return
				}
				claims, err = sec.Decode(refreshed)
				if err != nil {
					respond.Error(writer, request, apperr.ErrInvalidOrExpiredToken.WithCause(err))
					return
				}
			}

			// 4. Context Injection
			userID, err := resolver.UserID(ctx, claims.SessionID)
			if err != nil {
				respond.Error(writer, request, err)
				return
			}
			if refreshed != "" {
				cookie.Set(writer, refreshed)
				ctxutil.GetLogger(ctx).DebugContext(ctx, "access_token_refreshed")
			}

			principal := &sec.Principal{SessionID: claims.SessionID, UserID: userID}
			reportPrincipal(ctx, principal)
			next.ServeHTTP(writer, request.WithContext(ctxutil.WithPrincipal(ctx, principal)))
		})
	}
}

// RequireAuth rejects anonymous requests with NOT_LOGGED_IN.
// It must run after [Authenticate].
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if ctxutil.GetPrincipal(request.Context()) == nil {
			respond.Error(writer, request, apperr.ErrNotLoggedIn)
			return
		}
		next.ServeHTTP(writer, request)
	})
}
