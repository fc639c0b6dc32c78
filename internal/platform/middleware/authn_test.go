// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/warden/internal/platform/apperr"
	"github.com/taibuivan/warden/internal/platform/constants"
	"github.com/taibuivan/warden/internal/platform/ctxutil"
	"github.com/taibuivan/warden/internal/platform/middleware"
	"github.com/taibuivan/warden/internal/platform/sec"
)

// fakeResolver signs real tokens so the middleware can decode refreshed ones.
type fakeResolver struct {
	signer   *sec.TokenSigner
	expired  map[string]string
	sessions map[string]string
}

func (resolver *fakeResolver) VerifyAccess(token string) (*sec.SessionClaims, error) {
	if _, ok := resolver.expired[token]; ok {
		return nil, nil
	}
	claims, err := resolver.signer.Verify(token)
	if err != nil {
		return nil, apperr.ErrInvalidOrExpiredToken
	}
	return claims, nil
}

func (resolver *fakeResolver) ResignAccess(_ context.Context, token string) (string, error) {
	sessionID, ok := resolver.expired[token]
	if !ok {
		return "", apperr.ErrSessionExpired
	}
	return resolver.signer.Sign(sessionID)
}

func (resolver *fakeResolver) UserID(_ context.Context, sessionID string) (string, error) {
	userID, ok := resolver.sessions[sessionID]
	if !ok {
		return "", apperr.ErrSessionExpired
	}
	return userID, nil
}

func newAuthFixture(t *testing.T) (*fakeResolver, *middleware.AccessCookie) {
	t.Helper()
	resolver := &fakeResolver{
		signer:   sec.NewTokenSigner("access-secret", 15*time.Minute, "warden"),
		expired:  map[string]string{},
		sessions: map[string]string{"session-1": "user-1"},
	}
	cookie := &middleware.AccessCookie{
		Signer:     sec.NewCookieSigner("cookie-secret"),
		TimeToLive: 15 * time.Minute,
	}
	return resolver, cookie
}

func requestWithCookie(value string) *http.Request {
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	if value != "" {
		request.AddCookie(&http.Cookie{Name: constants.AccessTokenCookieName, Value: value})
	}
	return request
}

func findCookie(recorder *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

/*
TestAuthenticate covers anonymous, valid, refreshed and rejected cookies.
*/
func TestAuthenticate(t *testing.T) {
	resolver, cookie := newAuthFixture(t)

	valid, err := resolver.signer.Sign("session-1")
	require.NoError(t, err)
	resolver.expired["expired-token"] = "session-1"
	resolver.expired["orphan-token"] = "session-gone"

	tests := []struct {
		name          string
		cookieValue   string
		wantStatus    int
		wantUserID    string
		wantRefreshed bool
		wantCleared   bool
	}{
		{"anonymous", "", http.StatusOK, "", false, false},
		{"valid", cookie.Signer.Sign(valid), http.StatusOK, "user-1", false, false},
		{"expired_refreshed", cookie.Signer.Sign("expired-token"), http.StatusOK, "user-1", true, false},
		{"bad_signature", valid + ".bogus", http.StatusUnauthorized, "", false, true},
		{"forged_token", cookie.Signer.Sign("not-a-jwt"), http.StatusUnauthorized, "", false, true},
		{"session_gone", cookie.Signer.Sign("orphan-token"), http.StatusUnauthorized, "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUserID string
			handler := middleware.Authenticate(resolver, cookie)(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				if principal := ctxutil.GetPrincipal(request.Context()); principal != nil {
					gotUserID = principal.UserID
				}
			}))

			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, requestWithCookie(tt.cookieValue))

			assert.Equal(t, tt.wantStatus, recorder.Code)
			assert.Equal(t, tt.wantUserID, gotUserID)

			set := findCookie(recorder, constants.AccessTokenCookieName)
			switch {
			case tt.wantRefreshed:
				require.NotNil(t, set)
				token, ok := cookie.Signer.Unsign(set.Value)
				require.True(t, ok)
				claims, err := resolver.signer.Verify(token)
				require.NoError(t, err)
				assert.Equal(t, "session-1", claims.SessionID)
				assert.True(t, set.HttpOnly)
				assert.Equal(t, http.SameSiteStrictMode, set.SameSite)
			case tt.wantCleared:
				require.NotNil(t, set)
				assert.Less(t, set.MaxAge, 0)
			default:
				assert.Nil(t, set)
			}
		})
	}
}

/*
TestRequireAuth verifies anonymous requests get NOT_LOGGED_IN.
*/
func TestRequireAuth(t *testing.T) {
	handler := middleware.RequireAuth(okHandler)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Contains(t, recorder.Body.String(), apperr.CodeNotLoggedIn)

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request = request.WithContext(ctxutil.WithPrincipal(request.Context(), &sec.Principal{SessionID: "s", UserID: "u"}))
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusOK, recorder.Code)
}
