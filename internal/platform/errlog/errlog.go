// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package errlog persists server faults to the system.error_log table.

Operational errors (bad input, expired OTPs, rejected credentials) are part of
normal traffic and are not recorded. Everything else is written once, with a
risk level, so an operator can query for the failures that need attention.

Usage:

	recorder := errlog.NewRecorder(errlog.NewPostgresStore(pool), logger)
	router.Use(middleware.ErrorRecorder(recorder))

	// later, inside respond.Error
	errlog.FromContext(ctx).Record(ctx, err)
*/
package errlog

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/taibuivan/warden/internal/platform/apperr"
	"github.com/taibuivan/warden/internal/platform/ctxkey"
	"github.com/taibuivan/warden/internal/platform/ctxutil"
)

// Risk is the severity stored alongside an entry.
type Risk string

const (
	RiskLow      Risk = "low"
	RiskMedium   Risk = "medium"
	RiskHigh     Risk = "high"
	RiskCritical Risk = "critical"
)

// Entry types.
const (
	TypeNonOperational = "non_operational"
	TypeUnexpected     = "unexpected"
	TypePanic          = "panic"
)

// recordTimeout bounds the insert after the request context is detached.
const recordTimeout = 3 * time.Second

// Entry is one row of system.error_log.
type Entry struct {
	ID        int64
	Type      string
	Message   string
	Risk      Risk
	Details   json.RawMessage
	RequestID string
	CreatedAt time.Time
}

// Store persists entries.
type Store interface {
	Insert(ctx context.Context, entry *Entry) error
}

// Recorder classifies errors and writes the ones worth keeping.
type Recorder struct {
	store  Store
	logger *slog.Logger
}

// NewRecorder creates a Recorder writing to store.
func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

/*
Classify builds the entry for err, or returns nil when err is operational.

Plain errors that never became an AppError are typed "unexpected" with low
risk. Non-operational AppErrors are typed "non_operational" with high risk.
*/
func Classify(err error) *Entry {
	if err == nil {
		return nil
	}

	details := map[string]any{}
	entry := &Entry{}

	appError := apperr.As(err)
	switch {
	case appError == nil:
		entry.Type = TypeUnexpected
		entry.Risk = RiskLow
		entry.Message = err.Error()
		details["code"] = apperr.CodeUnexpectedError
	case appError.Operational:
		return nil
	default:
		entry.Type = TypeNonOperational
		entry.Risk = RiskHigh
		entry.Message = appError.Message
		details["code"] = appError.Code
		details["kind"] = appError.Kind.String()
		if appError.Code == apperr.CodeUnexpectedError {
			entry.Type = TypeUnexpected
			entry.Risk = RiskLow
		}
		if appError.Cause != nil {
			details["cause"] = appError.Cause.Error()
		}
	}

	entry.Details, _ = json.Marshal(details)
	return entry
}

/*
Record writes err to the store when [Classify] keeps it.

The insert runs on a context detached from the request so that a client
disconnect does not lose the entry. Store failures are logged and swallowed.
*/
func (recorder *Recorder) Record(ctx context.Context, err error) {
	entry := Classify(err)
	if entry == nil {
		return
	}
	recorder.write(ctx, entry)
}

// RecordPanic writes a recovered panic with critical risk.
func (recorder *Recorder) RecordPanic(ctx context.Context, recovered any, stack []byte) {
	details, _ := json.Marshal(map[string]any{
		"panic": recovered,
		"stack": string(stack),
	})
	recorder.write(ctx, &Entry{
		Type:    TypePanic,
		Message: "panic recovered",
		Risk:    RiskCritical,
		Details: details,
	})
}

func (recorder *Recorder) write(ctx context.Context, entry *Entry) {
	if recorder == nil || recorder.store == nil {
		return
	}

	entry.RequestID = ctxutil.GetRequestID(ctx)

	detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if err := recorder.store.Insert(detached, entry); err != nil {
		recorder.logger.ErrorContext(ctx, "error_log_insert_failed",
			slog.String("type", entry.Type),
			slog.Any("error", err),
		)
	}
}

// # Context Helpers

// WithRecorder attaches recorder to ctx.
func WithRecorder(ctx context.Context, recorder *Recorder) context.Context {
	return context.WithValue(ctx, ctxkey.KeyErrorRecorder, recorder)
}

// FromContext returns the recorder attached to ctx. A nil *Recorder is safe to use.
func FromContext(ctx context.Context) *Recorder {
	recorder, _ := ctx.Value(ctxkey.KeyErrorRecorder).(*Recorder)
	return recorder
}
