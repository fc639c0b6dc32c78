// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package respond provides HTTP response helpers used by all API handlers.
//
// # Architecture
//
// Every response, success or error, uses one of two JSON envelopes:
//
//	{"message": "...", "code": "...", "data": {...}}
//	{"message": "...", "code": "...", "details": [...]}
//
// Frontends branch on "code" and show "message".
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/taibuivan/warden/internal/platform/apperr"
	"github.com/taibuivan/warden/internal/platform/constants"
	"github.com/taibuivan/warden/internal/platform/ctxutil"
	"github.com/taibuivan/warden/internal/platform/errlog"
)

// SuccessEnvelope is the JSON envelope for successful responses.
type SuccessEnvelope struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Data    any    `json:"data,omitempty"`
}

// ErrorEnvelope is the JSON envelope for error responses.
type ErrorEnvelope struct {
	Message string              `json:"message"`
	Code    string              `json:"code"`
	Details []apperr.FieldError `json:"details,omitempty"`
}

// JSON writes a JSON response with the given status code.
func JSON(writer http.ResponseWriter, statusCode int, payload any) {
	writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	writer.WriteHeader(statusCode)
	_ = json.NewEncoder(writer).Encode(payload)
}

// Message writes a success envelope with the given status, code and optional data.
func Message(writer http.ResponseWriter, statusCode int, code, message string, data any) {
	JSON(writer, statusCode, SuccessEnvelope{Message: message, Code: code, Data: data})
}

// OK writes a 200 success envelope.
func OK(writer http.ResponseWriter, code, message string, data any) {
	Message(writer, http.StatusOK, code, message, data)
}

// Created writes a 201 success envelope.
func Created(writer http.ResponseWriter, code, message string, data any) {
	Message(writer, http.StatusCreated, code, message, data)
}

// NoContent writes a 204 No Content response.
func NoContent(writer http.ResponseWriter) {
	writer.WriteHeader(http.StatusNoContent)
}

// Error converts any Go error into a standardized JSON API error response.
//
// Plain errors become UNEXPECTED_ERROR. Non-operational errors are written to
// the error log found in the request context. Token and session failures also
// clear the access cookie so the browser stops sending a dead credential.
func Error(writer http.ResponseWriter, request *http.Request, err error) {
	ctx := request.Context()
	logger := ctxutil.GetLogger(ctx)

	appError := apperr.As(err)
	if appError == nil {
		logger.ErrorContext(ctx, "unhandled_error_swallowed",
			slog.String("error", err.Error()),
			slog.String("request_id", ctxutil.GetRequestID(ctx)),
		)
		appError = apperr.Unexpected(err)
	}

	if appError.HTTPStatus >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, "api_server_error",
			slog.String("code", appError.Code),
			slog.String("request_id", ctxutil.GetRequestID(ctx)),
			slog.Any("cause", appError.Cause),
		)
	}

	if !appError.Operational {
		errlog.FromContext(ctx).Record(ctx, appError)
	}

	switch appError.Code {
	case apperr.CodeInvalidOrExpired, apperr.CodeSessionExpired:
		ClearCookie(writer, constants.AccessTokenCookieName)
	}

	JSON(writer, appError.HTTPStatus, ErrorEnvelope{
		Message: appError.Message,
		Code:    appError.Code,
		Details: appError.Details,
	})
}

// ClearCookie expires the named cookie on the client.
func ClearCookie(writer http.ResponseWriter, name string) {
	http.SetCookie(writer, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}
