// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package otp issues and checks the 6-digit one-time codes used for step-up.

Every sensitive action (password reset, TOTP enrolment, account deletion,
email 2FA changes) first proves control of the mailbox with a code from here.
Codes live 5 minutes, are stored in users.one_time_code and mirrored in Redis
under "otp:<userID>:<code>", and are consumed by the first successful check.
*/
package otp

import (
	"context"
	"time"

	"github.com/taibuivan/warden/internal/platform/apperr"
)

const (
	// CodeLength is the number of decimal digits in a code.
	CodeLength = 6

	// Validity is how long a code is accepted after it was issued.
	Validity = 5 * time.Minute
)

var (
	ErrInvalidOTP = apperr.BadRequest(apperr.CodeInvalidOTP, "Invalid OTP code")
	ErrExpiredOTP = apperr.BadRequest(apperr.CodeExpiredOTP, "OTP code has expired")
)

// Record is one issued code.
type Record struct {
	ID        int64
	UserID    string
	Code      string
	CreatedAt time.Time
}

// Repository is the durable code store.
type Repository interface {
	Create(context context.Context, record *Record) error

	// FindLatest returns the newest record for (userID, code), or [ErrInvalidOTP].
	FindLatest(context context.Context, userID, code string) (*Record, error)

	// DeleteCode removes every record for (userID, code) and returns the
	// number of rows removed.
	DeleteCode(context context.Context, userID, code string) (int64, error)
}

// Cache is the subset of the Redis cache used to mirror codes.
type Cache interface {
	Set(context context.Context, key, value string, ttl time.Duration, tag string) bool
	Get(context context.Context, key string) (string, bool)
	Delete(context context.Context, key string, tag string) bool
}
