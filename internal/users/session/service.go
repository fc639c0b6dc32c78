// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/taibuivan/warden/internal/platform/apperr"
	"github.com/taibuivan/warden/internal/platform/constants"
	"github.com/taibuivan/warden/internal/platform/postgres"
	"github.com/taibuivan/warden/internal/platform/sec"
)

// Service issues and validates session credentials.
type Service struct {
	access     *sec.TokenSigner
	refresh    *sec.TokenSigner
	repository Repository
	cache      Cache
	logger     *slog.Logger
	now        func() time.Time
}

// Option customises a [Service].
type Option func(*Service)

// WithClock overrides the time source for both signers and timestamps.
func WithClock(now func() time.Time) Option {
	return func(service *Service) {
		service.now = now
	}
}

// NewService constructs a session [Service].
func NewService(cfg Config, repository Repository, cache Cache, logger *slog.Logger, options ...Option) *Service {
	service := &Service{
		repository: repository,
		cache:      cache,
		logger:     logger,
		now:        time.Now,
	}
	for _, option := range options {
		option(service)
	}

	service.access = sec.NewTokenSigner(cfg.AccessSecret, cfg.AccessTTL, cfg.Issuer, sec.WithClock(service.now))
	service.refresh = sec.NewTokenSigner(cfg.RefreshSecret, cfg.RefreshTTL, cfg.Issuer, sec.WithClock(service.now))
	return service
}

func cacheKey(sessionID string) string {
	return constants.RedisPrefixSession + sessionID
}

// # Issuance

/*
Issue starts a session for userID and returns its access token.

The refresh token is persisted first, then mirrored in the cache for the
refresh lifetime. A failed cache write is tolerated, a failed insert is not.

Returns:
  - string: Signed access token
  - error: SERVER_ERROR when the session cannot be persisted
*/
func (service *Service) Issue(ctx context.Context, userID string) (string, error) {
	sessionID := uuid.NewString()

	accessToken, err := service.access.Sign(sessionID)
	if err != nil {
		return "", apperr.Internal(err)
	}

	refreshToken, err := service.refresh.Sign(sessionID)
	if err != nil {
		return "", apperr.Internal(err)
	}

	session := &Session{
		ID:        sessionID,
		UserID:    userID,
		Token:     refreshToken,
		CreatedAt: service.now(),
	}

	if err := service.repository.Create(ctx, session); err != nil {
		return "", apperr.InternalMessage("Error creating refresh record", err)
	}

	service.cache.SetJSON(ctx, cacheKey(sessionID), session, service.refresh.TimeToLive(), constants.CacheTagSession)

	return accessToken, nil
}

// # Verification

/*
VerifyAccess checks an access token.

Returns:
  - (*claims, nil) for a valid token
  - (nil, nil) for a correctly signed token that has expired
  - (nil, UNAUTHORIZED_INVALID_OR_EXPIRED_TOKEN) for anything else
*/
func (service *Service) VerifyAccess(accessToken string) (*sec.SessionClaims, error) {
	claims, err := service.access.Verify(accessToken)
	if errors.Is(err, sec.ErrTokenExpired) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.ErrInvalidOrExpiredToken.WithCause(err)
	}
	return claims, nil
}

// Decode reads the claims of a token without verifying it.
func (service *Service) Decode(token string) (*sec.SessionClaims, error) {
	claims, err := sec.Decode(token)
	if err != nil {
		return nil, apperr.ErrInvalidOrExpiredToken.WithCause(err)
	}
	return claims, nil
}

/*
ResignAccess mints a fresh access token for the session an expired one names.

The expired token must still carry a valid signature. The session's refresh
token is then verified, and the refresh token itself is not rotated.

Returns:
  - string: New access token for the same session id
  - error: UNAUTHORIZED_INVALID_OR_EXPIRED_TOKEN for a forged token,
    UNAUTHORIZED_SESSION_EXPIRED when the session is gone or its refresh
    token has expired
*/
func (service *Service) ResignAccess(ctx context.Context, expiredAccessToken string) (string, error) {
	if _, err := service.access.Verify(expiredAccessToken); err != nil && !errors.Is(err, sec.ErrTokenExpired) {
		return "", apperr.ErrInvalidOrExpiredToken.WithCause(err)
	}

	claims, err := service.Decode(expiredAccessToken)
	if err != nil {
		return "", err
	}

	session, err := service.Lookup(ctx, claims.SessionID)
	if err != nil {
		return "", err
	}

	if _, err := service.refresh.Verify(session.Token); err != nil {
		return "", apperr.ErrSessionExpired.WithCause(err)
	}

	accessToken, err := service.access.Sign(session.ID)
	if err != nil {
		return "", apperr.Internal(err)
	}

	return accessToken, nil
}

// # Lookup

/*
Lookup returns a session, reading through the cache.

On a cache miss the row is loaded and re-cached for 30 minutes.

Returns:
  - error: UNAUTHORIZED_SESSION_EXPIRED when the session does not exist
*/
func (service *Service) Lookup(ctx context.Context, sessionID string) (*Session, error) {
	var cached Session
	if service.cache.GetJSON(ctx, cacheKey(sessionID), &cached) && cached.ID == sessionID {
		return &cached, nil
	}

	session, err := service.repository.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	service.cache.SetJSON(ctx, cacheKey(sessionID), session, lookupCacheTTL, constants.CacheTagSession)

	return session, nil
}

// UserID resolves a live session to its owner.
func (service *Service) UserID(ctx context.Context, sessionID string) (string, error) {
	session, err := service.Lookup(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return session.UserID, nil
}

// # Revocation

// Destroy deletes a session and its cache entry. Destroying twice is a no-op.
func (service *Service) Destroy(ctx context.Context, sessionID string) error {
	if err := service.repository.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("session_service_destroy_failed: %w", err)
	}

	postgres.AfterCommit(ctx, func(ctx context.Context) {
		service.cache.Delete(ctx, cacheKey(sessionID), constants.CacheTagSession)
	})
	return nil
}

/*
DestroyAllForUser ends every session of userID.

Rows are bulk-deleted first and cache entries evicted afterwards: once the
transaction in ctx (see postgres.TxManager) commits, or straight away without
one. A Lookup racing the delete can only re-cache a session before that
eviction, never after it.
*/
func (service *Service) DestroyAllForUser(ctx context.Context, userID string) error {
	sessionIDs, err := service.repository.ListIDsByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("session_service_list_failed: %w", err)
	}

	if err := service.repository.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("session_service_destroy_all_failed: %w", err)
	}

	postgres.AfterCommit(ctx, func(ctx context.Context) {
		for _, sessionID := range sessionIDs {
			service.cache.Delete(ctx, cacheKey(sessionID), constants.CacheTagSession)
		}
	})

	service.logger.InfoContext(ctx, "sessions_destroyed",
		slog.String("user_id", userID),
		slog.Int("count", len(sessionIDs)),
	)
	return nil
}
