// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, rate limits, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Cleanup cadence and IP tracking TTLs.
  - Security: Cookie and header names.
  - Cache Taxonomy: Redis key prefixes and tags.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "warden-api"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	// Avatar uploads are multipart, so this is looser than a JSON-only API.
	DefaultReadTimeout = 15 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 20 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Rate Limiting

const (
	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Cookies & Headers

const (
	// AccessTokenCookieName carries the signed access token.
	AccessTokenCookieName = "accessToken"

	// CSRFCookieName carries the double-submit CSRF token.
	CSRFCookieName = "csrf-Token"

	// HeaderCSRFToken is where clients echo the CSRF token on unsafe methods.
	HeaderCSRFToken = "X-CSRF-Token"

	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"

	// MaxAvatarUploadBytes bounds the multipart body on registration.
	MaxAvatarUploadBytes = 5 << 20
)

// # JSON Field Identifiers

const (
	FieldData    = "data"
	FieldError   = "error"
	FieldCode    = "code"
	FieldDetails = "details"
	FieldMessage = "message"
	FieldStatus  = "status"
	FieldApp     = "app"
	FieldVersion = "version"
	FieldChecks  = "checks"
)

// # Redis Prefixes (Cache Taxonomy)

const (
	RedisPrefixSession = "session:"
	RedisPrefixOTP     = "otp:"
	RedisPrefixTag     = "tag:"

	// Tags group keys into sets for bulk operations.
	CacheTagToken   = "token"
	CacheTagSession = "session"
	CacheTagOTP     = "otp"
)
