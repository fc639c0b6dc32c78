// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package otp

import (
	"context"
	"fmt"

	"github.com/taibuivan/warden/internal/platform/dberr"
	"github.com/taibuivan/warden/internal/platform/postgres"
)

// PostgresRepository implements [Repository] on users.one_time_code.
type PostgresRepository struct {
	db postgres.Querier
}

// NewPostgresRepository creates a code repository on db.
func NewPostgresRepository(db postgres.Querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts record and fills in its ID.
func (repository *PostgresRepository) Create(context context.Context, record *Record) error {
	const query = `
		INSERT INTO users.one_time_code (user_id, code, created_at)
		VALUES ($1, $2, $3)
		RETURNING id`

	err := postgres.Conn(context, repository.db).
		QueryRow(context, query, record.UserID, record.Code, record.CreatedAt).
		Scan(&record.ID)
	if err != nil {
		return fmt.Errorf("postgres_otp_repo_create_failed: %w", err)
	}
	return nil
}

// FindLatest returns the newest record for (userID, code).
func (repository *PostgresRepository) FindLatest(context context.Context, userID, code string) (*Record, error) {
	const query = `
		SELECT id, user_id, code, created_at
		FROM users.one_time_code
		WHERE user_id = $1 AND code = $2
		ORDER BY created_at DESC
		LIMIT 1`

	record := &Record{}
	err := postgres.Conn(context, repository.db).QueryRow(context, query, userID, code).Scan(
		&record.ID,
		&record.UserID,
		&record.Code,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_otp_repo_find_failed", ErrInvalidOTP)
	}
	return record, nil
}

// DeleteCode removes every record for (userID, code) and reports how many
// rows went away.
func (repository *PostgresRepository) DeleteCode(context context.Context, userID, code string) (int64, error) {
	const query = `DELETE FROM users.one_time_code WHERE user_id = $1 AND code = $2`

	tag, err := postgres.Conn(context, repository.db).Exec(context, query, userID, code)
	if err != nil {
		return 0, fmt.Errorf("postgres_otp_repo_delete_failed: %w", err)
	}
	return tag.RowsAffected(), nil
}
