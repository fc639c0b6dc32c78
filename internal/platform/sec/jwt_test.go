// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/warden/internal/platform/sec"
)

const testIssuer = "warden.test"

/*
TestTokenSigner_RoundTrip verifies that a fresh token is accepted.
*/
func TestTokenSigner_RoundTrip(t *testing.T) {
	signer := sec.NewTokenSigner("access-secret", 15*time.Minute, testIssuer)

	token, err := signer.Sign("session-1")
	require.NoError(t, err)

	claims, err := signer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "session-1", claims.SessionID)
	assert.Equal(t, testIssuer, claims.Issuer)
}

/*
TestTokenSigner_ExpiredIsDistinct checks that expiry is classified apart from
tampering so callers can attempt a silent refresh.
*/
func TestTokenSigner_ExpiredIsDistinct(t *testing.T) {
	issuedAt := time.Now().Add(-time.Hour)
	past := sec.NewTokenSigner("access-secret", 15*time.Minute, testIssuer,
		sec.WithClock(func() time.Time { return issuedAt }))
	present := sec.NewTokenSigner("access-secret", 15*time.Minute, testIssuer)

	token, err := past.Sign("session-1")
	require.NoError(t, err)

	_, err = present.Verify(token)
	assert.ErrorIs(t, err, sec.ErrTokenExpired)
	assert.NotErrorIs(t, err, sec.ErrTokenInvalid)
}

/*
TestTokenSigner_Rejects covers forged, foreign and malformed tokens.
*/
func TestTokenSigner_Rejects(t *testing.T) {
	signer := sec.NewTokenSigner("access-secret", 15*time.Minute, testIssuer)
	otherSecret := sec.NewTokenSigner("refresh-secret", 15*time.Minute, testIssuer)
	otherIssuer := sec.NewTokenSigner("access-secret", 15*time.Minute, "someone.else")

	valid, err := signer.Sign("session-1")
	require.NoError(t, err)
	foreign, err := otherSecret.Sign("session-1")
	require.NoError(t, err)
	wrongIssuer, err := otherIssuer.Sign("session-1")
	require.NoError(t, err)

	parts := strings.Split(valid, ".")
	require.Len(t, parts, 3)
	tamperedPayload := parts[0] + "." + parts[1] + "x." + parts[2]

	tests := []struct {
		name  string
		token string
	}{
		{"other_secret", foreign},
		{"other_issuer", wrongIssuer},
		{"tampered_payload", tamperedPayload},
		{"garbage", "not-a-jwt"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := signer.Verify(tt.token)
			assert.ErrorIs(t, err, sec.ErrTokenInvalid)
		})
	}
}

/*
TestTokenSigner_ForgedExpiredIsInvalid ensures an expired token with a bad
signature is never reported as merely expired.
*/
func TestTokenSigner_ForgedExpiredIsInvalid(t *testing.T) {
	issuedAt := time.Now().Add(-time.Hour)
	forger := sec.NewTokenSigner("attacker-secret", time.Minute, testIssuer,
		sec.WithClock(func() time.Time { return issuedAt }))
	signer := sec.NewTokenSigner("access-secret", time.Minute, testIssuer)

	token, err := forger.Sign("session-1")
	require.NoError(t, err)

	_, err = signer.Verify(token)
	assert.ErrorIs(t, err, sec.ErrTokenInvalid)
}

/*
TestDecode extracts the session id without verification.
*/
func TestDecode(t *testing.T) {
	issuedAt := time.Now().Add(-time.Hour)
	signer := sec.NewTokenSigner("access-secret", time.Minute, testIssuer,
		sec.WithClock(func() time.Time { return issuedAt }))

	token, err := signer.Sign("session-9")
	require.NoError(t, err)

	claims, err := sec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "session-9", claims.SessionID)

	_, err = sec.Decode("garbage")
	assert.ErrorIs(t, err, sec.ErrTokenInvalid)
}
