// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/warden/internal/platform/apperr"
	"github.com/taibuivan/warden/internal/platform/dberr"
	"github.com/taibuivan/warden/internal/platform/postgres"
)

// # User Repository

const userColumns = `
	id, email, password_hash, first_name, last_name, avatar_url, avatar_public_id,
	is_verified, is_email_verification_enabled, totp_secret, is_totp_enabled,
	created_at, updated_at`

// PostgresUserRepository implements [UserRepository] on users.account.
type PostgresUserRepository struct {
	db postgres.Querier
}

// NewUserRepository creates a PostgreSQL user repository.
func NewUserRepository(db postgres.Querier) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.AvatarURL,
		&user.AvatarPublicID,
		&user.IsVerified,
		&user.IsEmailTwoFactor,
		&user.TOTPSecret,
		&user.IsTOTPEnabled,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

/*
Create inserts a new account.

Returns:
  - error: UNIQUE_CONSTRAINT_FAILED when the email is taken, else a wrapped driver error
*/
func (repository *PostgresUserRepository) Create(context context.Context, user *User) error {
	const query = `
		INSERT INTO users.account (
			id, email, password_hash, first_name, last_name, avatar_url, avatar_public_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	err := postgres.Conn(context, repository.db).QueryRow(context, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.AvatarURL,
		user.AvatarPublicID,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	return dberr.Wrap(err, "postgres_user_repo_create_failed", nil)
}

// FindByID loads an account by id.
func (repository *PostgresUserRepository) FindByID(context context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users.account WHERE id = $1`

	user, err := scanUser(postgres.Conn(context, repository.db).QueryRow(context, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_user_repo_find_by_id_failed", apperr.ErrUserNotFound)
	}
	return user, nil
}

// FindByEmail loads an account by email, ignoring case.
func (repository *PostgresUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users.account WHERE lower(email) = lower($1)`

	user, err := scanUser(postgres.Conn(context, repository.db).QueryRow(context, query, email))
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_user_repo_find_by_email_failed", apperr.ErrUserNotFound)
	}
	return user, nil
}

// # Updates

// exec runs a single-row update and maps "no row" to USER_NOT_FOUND.
func (repository *PostgresUserRepository) exec(context context.Context, action, query string, arguments ...any) error {
	tag, err := postgres.Conn(context, repository.db).Exec(context, query, arguments...)
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrUserNotFound
	}
	return nil
}

func (repository *PostgresUserRepository) UpdatePassword(context context.Context, id, passwordHash string) error {
	const query = `UPDATE users.account SET password_hash = $2, updated_at = now() WHERE id = $1`
	return repository.exec(context, "postgres_user_repo_update_password_failed", query, id, passwordHash)
}

/*
UpdateNames changes the names that are non-nil and returns the updated row.

An empty last name clears it.
*/
func (repository *PostgresUserRepository) UpdateNames(context context.Context, id string, firstName, lastName *string) (*User, error) {
	query := `
		UPDATE users.account SET
			first_name = COALESCE($2, first_name),
			last_name  = CASE WHEN $3::text IS NULL THEN last_name ELSE NULLIF($3, '') END,
			updated_at = now()
		WHERE id = $1
		RETURNING ` + userColumns

	user, err := scanUser(postgres.Conn(context, repository.db).QueryRow(context, query, id, firstName, lastName))
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_user_repo_update_names_failed", apperr.ErrUserNotFound)
	}
	return user, nil
}

func (repository *PostgresUserRepository) MarkVerified(context context.Context, id string) error {
	const query = `UPDATE users.account SET is_verified = TRUE, updated_at = now() WHERE id = $1`
	return repository.exec(context, "postgres_user_repo_mark_verified_failed", query, id)
}

func (repository *PostgresUserRepository) SetEmailTwoFactor(context context.Context, id string, enabled bool) error {
	const query = `UPDATE users.account SET is_email_verification_enabled = $2, updated_at = now() WHERE id = $1`
	return repository.exec(context, "postgres_user_repo_set_email_2fa_failed", query, id, enabled)
}

func (repository *PostgresUserRepository) SetTOTPSecret(context context.Context, id, secret string) error {
	const query = `
		UPDATE users.account
		SET totp_secret = $2, is_totp_enabled = TRUE, updated_at = now()
		WHERE id = $1`
	return repository.exec(context, "postgres_user_repo_set_totp_failed", query, id, secret)
}

func (repository *PostgresUserRepository) ClearTOTPSecret(context context.Context, id string) error {
	const query = `
		UPDATE users.account
		SET totp_secret = NULL, is_totp_enabled = FALSE, updated_at = now()
		WHERE id = $1`
	return repository.exec(context, "postgres_user_repo_clear_totp_failed", query, id)
}

// Delete removes the account. Sessions and codes cascade.
func (repository *PostgresUserRepository) Delete(context context.Context, id string) error {
	const query = `DELETE FROM users.account WHERE id = $1`
	return repository.exec(context, "postgres_user_repo_delete_failed", query, id)
}
