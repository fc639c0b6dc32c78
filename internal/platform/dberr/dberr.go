// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
package dberr

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/warden/internal/platform/apperr"
)

var (
	// ErrNotFound is a standard error returned when a queried row doesn't exist.
	ErrNotFound = apperr.NotFound(apperr.CodeNotFound, "Resource not found")
)

// Wrap inspects a database error and classifies it.
//
//   - pgx.ErrNoRows becomes notFound (or [ErrNotFound] when nil).
//   - A unique violation becomes a 409 UNIQUE_CONSTRAINT_FAILED.
//   - Anything else is wrapped with action and left for respond.Error to
//     treat as a server fault.
func Wrap(err error, action string, notFound *apperr.AppError) error {
	if err == nil {
		return nil
	}

	// 1. Not Found mapping
	if errors.Is(err, pgx.ErrNoRows) {
		if notFound == nil {
			return ErrNotFound
		}
		return notFound
	}

	// 2. Unique constraint mapping
	if IsUniqueViolation(err) {
		return apperr.Conflict("A record with the same unique value already exists").WithCause(err)
	}

	// 3. Unknown query errors
	return fmt.Errorf("%s: %w", action, err)
}

// IsUniqueViolation reports whether err is a PostgreSQL 23505 error.
func IsUniqueViolation(err error) bool {
	var pgError *pgconn.PgError
	return errors.As(err, &pgError) && pgError.Code == pgerrcode.UniqueViolation
}
