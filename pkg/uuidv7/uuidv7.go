// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package uuidv7 generates time-ordered UUIDv7 identifiers for primary keys
// (accounts and sessions) so that new rows land at the end of the index.
package uuidv7

import "github.com/google/uuid"

// New returns a UUIDv7 string. It falls back to a random UUIDv4 when the
// clock sequence cannot be read.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
