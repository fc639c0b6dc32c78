// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package session owns the credential lifecycle of a login.

A session is a row holding a signed refresh token. Clients only ever see the
short-lived access token, which carries nothing but the session id. When the
access token expires it is re-signed from the refresh token, so revoking a
session (deleting the row and its cache mirror) ends the login everywhere.

Architecture:

  - Service: Issue, verify, resign, look up and destroy sessions.
  - Repository: PostgreSQL is the source of truth (users.session).
  - Cache: Redis mirror under "session:<id>", invalidated on every delete.
*/
package session

import (
	"context"
	"time"
)

// # Domain Entities

// Session is one login. Token is the refresh token and never leaves the server.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
}

// Config carries the token settings built from the application config.
type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// lookupCacheTTL is the lifetime of a cache entry repopulated after a miss.
const lookupCacheTTL = 30 * time.Minute

// # Contracts

// Repository is the durable session store.
type Repository interface {
	Create(context context.Context, session *Session) error

	// FindByID returns [apperr.ErrSessionExpired] when the row is gone.
	FindByID(context context.Context, id string) (*Session, error)

	// Delete removes one session. Deleting a missing row is not an error.
	Delete(context context.Context, id string) error

	ListIDsByUser(context context.Context, userID string) ([]string, error)

	DeleteByUser(context context.Context, userID string) error
}

// Cache is the subset of the Redis cache the service mirrors sessions into.
type Cache interface {
	SetJSON(context context.Context, key string, value any, ttl time.Duration, tag string) bool
	GetJSON(context context.Context, key string, target any) bool
	Delete(context context.Context, key string, tag string) bool
}
