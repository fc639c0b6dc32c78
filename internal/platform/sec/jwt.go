// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (hashing, JWT signing, cookie
// signing, CSRF tokens) from the domain logic. Domain services receive these
// primitives through constructors.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenExpired is returned for a correctly signed token past its expiry.
	ErrTokenExpired = errors.New("sec: token expired")

	// ErrTokenInvalid is returned for malformed, forged or foreign tokens.
	ErrTokenInvalid = errors.New("sec: token invalid")
)

// SessionClaims is the payload of both access and refresh tokens.
//
// The only application claim is the session id. Everything else about the
// caller is resolved server-side from the session record.
type SessionClaims struct {
	SessionID string `json:"id"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller attached to a request context.
type Principal struct {
	SessionID string
	UserID    string
}

// TokenSigner mints and verifies HS512 tokens with one secret and lifetime.
//
// Access and refresh tokens each get their own signer and secret.
type TokenSigner struct {
	secret     []byte
	timeToLive time.Duration
	issuer     string
	now        func() time.Time
}

// SignerOption customises a [TokenSigner].
type SignerOption func(*TokenSigner)

// WithClock overrides the time source used for issuing and validating tokens.
func WithClock(now func() time.Time) SignerOption {
	return func(signer *TokenSigner) {
		signer.now = now
	}
}

// NewTokenSigner creates a signer for tokens valid for timeToLive.
func NewTokenSigner(secret string, timeToLive time.Duration, issuer string, options ...SignerOption) *TokenSigner {
	signer := &TokenSigner{
		secret:     []byte(secret),
		timeToLive: timeToLive,
		issuer:     issuer,
		now:        time.Now,
	}
	for _, option := range options {
		option(signer)
	}
	return signer
}

// TimeToLive returns the lifetime of tokens minted by this signer.
func (signer *TokenSigner) TimeToLive() time.Duration {
	return signer.timeToLive
}

// Sign creates a token bound to sessionID.
func (signer *TokenSigner) Sign(sessionID string) (string, error) {
	currentTime := signer.now()
	claims := SessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    signer.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(signer.timeToLive)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signedToken, err := token.SignedString(signer.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, nil
}

/*
Verify checks the signature, algorithm, issuer and expiry of a token.

Returns:
  - *SessionClaims: on success
  - error: [ErrTokenExpired] when only the expiry failed, [ErrTokenInvalid] otherwise
*/
func (signer *TokenSigner) Verify(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, signer.key,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithIssuer(signer.issuer),
		jwt.WithTimeFunc(signer.now),
		jwt.WithExpirationRequired(),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	if !token.Valid || claims.SessionID == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

func (signer *TokenSigner) key(_ *jwt.Token) (interface{}, error) {
	return signer.secret, nil
}

// Decode parses a token WITHOUT verifying its signature or expiry.
//
// Only use the result to locate server-side state that is then verified.
func Decode(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	if claims.SessionID == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
