// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/warden/internal/platform/apperr"
)

/*
TestKind_Status verifies that every kind maps onto the expected HTTP status.
*/
func TestKind_Status(t *testing.T) {
	tests := []struct {
		kind   apperr.Kind
		status int
	}{
		{apperr.KindValidation, http.StatusBadRequest},
		{apperr.KindUnauthorized, http.StatusUnauthorized},
		{apperr.KindForbidden, http.StatusForbidden},
		{apperr.KindNotFound, http.StatusNotFound},
		{apperr.KindConflict, http.StatusConflict},
		{apperr.KindRateLimited, http.StatusTooManyRequests},
		{apperr.KindInternal, http.StatusInternalServerError},
		{apperr.KindUnavailable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.status, tt.kind.Status())
		})
	}
}

/*
TestInternal_IsNonOperational ensures server faults are flagged for auditing
and never expose their cause.
*/
func TestInternal_IsNonOperational(t *testing.T) {
	cause := errors.New("pq: connection refused")
	appError := apperr.Internal(cause)

	assert.False(t, appError.Operational)
	assert.Equal(t, apperr.CodeServerError, appError.Code)
	assert.NotContains(t, appError.Message, "connection refused")
	assert.ErrorIs(t, appError, cause)
}

/*
TestAppError_IsMatchesByCode verifies sentinel matching through wrapping.
*/
func TestAppError_IsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("session_service_resign_failed: %w", apperr.ErrSessionExpired)

	assert.ErrorIs(t, wrapped, apperr.ErrSessionExpired)
	assert.NotErrorIs(t, wrapped, apperr.ErrUserNotFound)
	assert.True(t, apperr.HasCode(wrapped, apperr.CodeSessionExpired))

	extracted := apperr.As(wrapped)
	require.NotNil(t, extracted)
	assert.Equal(t, http.StatusUnauthorized, extracted.HTTPStatus)
	assert.True(t, extracted.Operational)
}

/*
TestAppError_WithCauseDoesNotMutateSentinel guards shared sentinel values.
*/
func TestAppError_WithCauseDoesNotMutateSentinel(t *testing.T) {
	cause := errors.New("boom")
	withCause := apperr.ErrUserNotFound.WithCause(cause)

	assert.Nil(t, apperr.ErrUserNotFound.Cause)
	assert.Equal(t, cause, withCause.Cause)
	assert.Equal(t, apperr.CodeUserNotFound, withCause.Code)
}
