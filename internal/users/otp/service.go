// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/taibuivan/warden/internal/platform/apperr"
	"github.com/taibuivan/warden/internal/platform/constants"
)

// Service issues and verifies one-time codes.
type Service struct {
	repository Repository
	cache      Cache
	logger     *slog.Logger
	now        func() time.Time
}

// Option customises a [Service].
type Option func(*Service)

// WithClock overrides the time source used for issuing and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(service *Service) {
		service.now = now
	}
}

// NewService constructs an OTP [Service].
func NewService(repository Repository, cache Cache, logger *slog.Logger, options ...Option) *Service {
	service := &Service{
		repository: repository,
		cache:      cache,
		logger:     logger,
		now:        time.Now,
	}
	for _, option := range options {
		option(service)
	}
	return service
}

func cacheKey(userID, code string) string {
	return constants.RedisPrefixOTP + userID + ":" + code
}

// Generate returns a uniformly random code of [CodeLength] digits, leading zeros kept.
func Generate() (string, error) {
	upper := big.NewInt(1_000_000)
	value, err := rand.Int(rand.Reader, upper)
	if err != nil {
		return "", fmt.Errorf("otp: failed to read random bytes: %w", err)
	}
	return fmt.Sprintf("%0*d", CodeLength, value.Int64()), nil
}

/*
Issue creates a new code for userID.

Returns:
  - string: The code, to be delivered out of band
  - error: SERVER_ERROR when the code cannot be persisted
*/
func (service *Service) Issue(ctx context.Context, userID string) (string, error) {
	code, err := Generate()
	if err != nil {
		return "", apperr.Internal(err)
	}

	record := &Record{UserID: userID, Code: code, CreatedAt: service.now()}
	if err := service.repository.Create(ctx, record); err != nil {
		return "", apperr.InternalMessage("Something went wrong while saving the OTP code", err)
	}

	service.cache.Set(ctx, cacheKey(userID, code), userID, Validity, constants.CacheTagOTP)

	return code, nil
}

/*
Verify checks code for userID and consumes it on success.

A cache hit whose value is userID is accepted directly. Otherwise the newest
stored record decides: none means INVALID_OTP, one older than [Validity]
means EXPIRED_OTP. Either way the stored row must still exist when it is
consumed, so a code is accepted at most once.
*/
func (service *Service) Verify(ctx context.Context, userID, code string) error {
	if cached, found := service.cache.Get(ctx, cacheKey(userID, code)); !found || cached != userID {
		record, err := service.repository.FindLatest(ctx, userID, code)
		if err != nil {
			return err
		}

		if service.now().Sub(record.CreatedAt) > Validity {
			return ErrExpiredOTP
		}
	}

	return service.consume(ctx, userID, code)
}

// consume deletes the code. Only the caller whose delete removed a row wins;
// a concurrent second use of the same code finds nothing and is rejected.
func (service *Service) consume(ctx context.Context, userID, code string) error {
	deleted, err := service.repository.DeleteCode(ctx, userID, code)
	if err != nil {
		return fmt.Errorf("otp_service_consume_failed: %w", err)
	}

	service.cache.Delete(ctx, cacheKey(userID, code), constants.CacheTagOTP)

	if deleted == 0 {
		return ErrInvalidOTP
	}
	return nil
}
