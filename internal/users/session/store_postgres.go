// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/warden/internal/platform/apperr"
	"github.com/taibuivan/warden/internal/platform/dberr"
	"github.com/taibuivan/warden/internal/platform/postgres"
)

// PostgresRepository implements [Repository] on users.session.
type PostgresRepository struct {
	db postgres.Querier
}

// NewPostgresRepository creates a session repository on db.
func NewPostgresRepository(db postgres.Querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a session row.
func (repository *PostgresRepository) Create(context context.Context, session *Session) error {
	const query = `
		INSERT INTO users.session (id, user_id, token, created_at)
		VALUES ($1, $2, $3, $4)`

	_, err := postgres.Conn(context, repository.db).Exec(context, query,
		session.ID,
		session.UserID,
		session.Token,
		session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres_session_repo_create_failed: %w", err)
	}

	return nil
}

// FindByID loads one session.
func (repository *PostgresRepository) FindByID(context context.Context, id string) (*Session, error) {
	const query = `
		SELECT id, user_id, token, created_at
		FROM users.session
		WHERE id = $1`

	session := &Session{}
	err := postgres.Conn(context, repository.db).QueryRow(context, query, id).Scan(
		&session.ID,
		&session.UserID,
		&session.Token,
		&session.CreatedAt,
	)
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_session_repo_find_failed", apperr.ErrSessionExpired)
	}

	return session, nil
}

// Delete removes one session row.
func (repository *PostgresRepository) Delete(context context.Context, id string) error {
	const query = `DELETE FROM users.session WHERE id = $1`

	if _, err := postgres.Conn(context, repository.db).Exec(context, query, id); err != nil {
		return fmt.Errorf("postgres_session_repo_delete_failed: %w", err)
	}
	return nil
}

// ListIDsByUser returns the ids of every session owned by userID.
func (repository *PostgresRepository) ListIDsByUser(context context.Context, userID string) ([]string, error) {
	const query = `SELECT id FROM users.session WHERE user_id = $1`

	rows, err := postgres.Conn(context, repository.db).Query(context, query, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres_session_repo_list_failed: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("postgres_session_repo_list_scan_failed: %w", err)
	}
	return ids, nil
}

// DeleteByUser removes every session owned by userID in one statement.
func (repository *PostgresRepository) DeleteByUser(context context.Context, userID string) error {
	const query = `DELETE FROM users.session WHERE user_id = $1`

	if _, err := postgres.Conn(context, repository.db).Exec(context, query, userID); err != nil {
		return fmt.Errorf("postgres_session_repo_delete_by_user_failed: %w", err)
	}
	return nil
}
