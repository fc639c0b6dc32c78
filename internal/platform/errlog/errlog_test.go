// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package errlog_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/warden/internal/platform/apperr"
	"github.com/taibuivan/warden/internal/platform/ctxutil"
	"github.com/taibuivan/warden/internal/platform/errlog"
)

type memoryStore struct {
	mu      sync.Mutex
	entries []*errlog.Entry
	err     error
}

func (store *memoryStore) Insert(ctx context.Context, entry *errlog.Entry) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.err != nil {
		return store.err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	store.entries = append(store.entries, entry)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

/*
TestClassify maps each error family to its entry type and risk.
*/
func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantNil  bool
		wantType string
		wantRisk errlog.Risk
		wantCode string
	}{
		{"nil", nil, true, "", "", ""},
		{"operational", apperr.BadRequest(apperr.CodeInvalidOTP, "bad"), true, "", "", ""},
		{"wrapped_operational", errors.Join(errors.New("ctx"), apperr.ErrUserNotFound), true, "", "", ""},
		{"plain", errors.New("boom"), false, errlog.TypeUnexpected, errlog.RiskLow, apperr.CodeUnexpectedError},
		{"internal", apperr.Internal(errors.New("db down")), false, errlog.TypeNonOperational, errlog.RiskHigh, apperr.CodeServerError},
		{"unexpected", apperr.Unexpected(errors.New("boom")), false, errlog.TypeUnexpected, errlog.RiskLow, apperr.CodeUnexpectedError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := errlog.Classify(tt.err)
			if tt.wantNil {
				assert.Nil(t, entry)
				return
			}
			require.NotNil(t, entry)
			assert.Equal(t, tt.wantType, entry.Type)
			assert.Equal(t, tt.wantRisk, entry.Risk)

			var details map[string]any
			require.NoError(t, json.Unmarshal(entry.Details, &details))
			assert.Equal(t, tt.wantCode, details["code"])
		})
	}
}

/*
TestRecorder_Record verifies that entries survive a cancelled request context
and carry the request id.
*/
func TestRecorder_Record(t *testing.T) {
	store := &memoryStore{}
	recorder := errlog.NewRecorder(store, discardLogger())

	ctx, cancel := context.WithCancel(ctxutil.WithRequestID(context.Background(), "req-1"))
	cancel()

	recorder.Record(ctx, apperr.Internal(errors.New("db down")))
	recorder.Record(ctx, apperr.BadRequest(apperr.CodeInvalidOTP, "bad"))

	require.Len(t, store.entries, 1)
	assert.Equal(t, "req-1", store.entries[0].RequestID)

	var details map[string]any
	require.NoError(t, json.Unmarshal(store.entries[0].Details, &details))
	assert.Equal(t, "db down", details["cause"])
}

/*
TestRecorder_StoreFailure ensures insert errors are swallowed.
*/
func TestRecorder_StoreFailure(t *testing.T) {
	store := &memoryStore{err: errors.New("insert failed")}
	recorder := errlog.NewRecorder(store, discardLogger())

	assert.NotPanics(t, func() {
		recorder.Record(context.Background(), errors.New("boom"))
	})
	assert.Empty(t, store.entries)
}

/*
TestRecorder_Panic records recovered panics as critical.
*/
func TestRecorder_Panic(t *testing.T) {
	store := &memoryStore{}
	recorder := errlog.NewRecorder(store, discardLogger())

	recorder.RecordPanic(context.Background(), "nil map", []byte("goroutine 1"))

	require.Len(t, store.entries, 1)
	assert.Equal(t, errlog.TypePanic, store.entries[0].Type)
	assert.Equal(t, errlog.RiskCritical, store.entries[0].Risk)
}

/*
TestFromContext covers the context round trip and the nil receiver.
*/
func TestFromContext(t *testing.T) {
	assert.Nil(t, errlog.FromContext(context.Background()))

	var missing *errlog.Recorder
	assert.NotPanics(t, func() { missing.Record(context.Background(), errors.New("boom")) })

	recorder := errlog.NewRecorder(&memoryStore{}, discardLogger())
	ctx := errlog.WithRecorder(context.Background(), recorder)
	assert.Same(t, recorder, errlog.FromContext(ctx))
}
