// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgx used by repositories.
// [*pgxpool.Pool] and [pgx.Tx] both satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Beginner starts transactions. [*pgxpool.Pool] satisfies it.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type txKey struct{}

// txState is the transaction bound to a context plus the work deferred
// until it commits.
type txState struct {
	tx          pgx.Tx
	afterCommit []func(ctx context.Context)
}

func stateFrom(ctx context.Context) *txState {
	state, _ := ctx.Value(txKey{}).(*txState)
	return state
}

// Conn returns the transaction bound to ctx by [TxManager.WithTx], or db.
//
// Repositories call this on every query so that service code can group calls
// from several repositories into one transaction without importing pgx.
func Conn(ctx context.Context, db Querier) Querier {
	if state := stateFrom(ctx); state != nil {
		return state.tx
	}
	return db
}

// AfterCommit runs fn once the transaction bound to ctx has committed, and
// never if it rolls back. Without a transaction fn runs immediately.
//
// Cache invalidation belongs here: other connections still read the old rows
// until the commit, and may re-cache them in the meantime.
func AfterCommit(ctx context.Context, fn func(ctx context.Context)) {
	if state := stateFrom(ctx); state != nil {
		state.afterCommit = append(state.afterCommit, fn)
		return
	}
	fn(ctx)
}

// TxManager runs functions inside a PostgreSQL transaction.
type TxManager struct {
	db Beginner
}

// NewTxManager creates a TxManager on db.
func NewTxManager(db Beginner) *TxManager {
	return &TxManager{db: db}
}

/*
WithTx begins a transaction, runs fn with a context carrying it, and commits
on success or rolls back on error/panic. Panics are rethrown. Hooks
registered with [AfterCommit] run after a successful commit.

A ctx that already carries a transaction joins it instead of nesting.

Typical use:

	err := txManager.WithTx(ctx, func(ctx context.Context) error {
	    if err := sessions.DestroyAllForUser(ctx, userID); err != nil {
	        return err
	    }
	    return users.Delete(ctx, userID)
	})
*/
func (manager *TxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if stateFrom(ctx) != nil {
		return fn(ctx)
	}

	tx, err := manager.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin transaction: %w", err)
	}
	state := &txState{tx: tx}

	defer func() {
		if recovered := recover(); recovered != nil {
			_ = tx.Rollback(ctx)
			panic(recovered)
		}
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				err = errors.Join(err, fmt.Errorf("postgres: rollback: %w", rollbackErr))
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("postgres: commit: %w", commitErr)
			return
		}
		for _, hook := range state.afterCommit {
			hook(ctx)
		}
	}()

	err = fn(context.WithValue(ctx, txKey{}, state))
	return err
}
