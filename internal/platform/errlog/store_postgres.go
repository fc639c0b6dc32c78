// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package errlog

import (
	"context"
	"fmt"

	"github.com/taibuivan/warden/internal/platform/postgres"
)

// PostgresStore writes entries to system.error_log.
type PostgresStore struct {
	db postgres.Querier
}

// NewPostgresStore creates a PostgresStore on db.
func NewPostgresStore(db postgres.Querier) *PostgresStore {
	return &PostgresStore{db: db}
}

// Insert stores entry and fills in its ID and CreatedAt.
func (repository *PostgresStore) Insert(ctx context.Context, entry *Entry) error {
	const query = `
		INSERT INTO system.error_log (type, message, risk, details, request_id)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		RETURNING id, created_at`

	details := entry.Details
	if details == nil {
		details = []byte("{}")
	}

	err := postgres.Conn(ctx, repository.db).QueryRow(ctx, query,
		entry.Type, entry.Message, string(entry.Risk), details, entry.RequestID,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres_error_log_insert_failed: %w", err)
	}

	return nil
}
