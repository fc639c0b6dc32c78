// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
)

// CookieSigner appends and checks an HMAC-SHA256 signature on cookie values.
//
// Signed values have the form "<value>.<base64url(mac)>". The value itself may
// contain dots (JWTs do), so the signature is always the last segment.
type CookieSigner struct {
	secret []byte
}

// NewCookieSigner creates a signer keyed by secret.
func NewCookieSigner(secret string) *CookieSigner {
	return &CookieSigner{secret: []byte(secret)}
}

// Sign returns value with its signature appended.
func (signer *CookieSigner) Sign(value string) string {
	return value + "." + signer.mac(value)
}

// Unsign verifies a signed value and returns the original.
func (signer *CookieSigner) Unsign(signed string) (string, bool) {
	separator := strings.LastIndexByte(signed, '.')
	if separator <= 0 {
		return "", false
	}

	value, signature := signed[:separator], signed[separator+1:]
	if !hmac.Equal([]byte(signature), []byte(signer.mac(value))) {
		return "", false
	}

	return value, true
}

func (signer *CookieSigner) mac(value string) string {
	hash := hmac.New(sha256.New, signer.secret)
	hash.Write([]byte(value))
	return base64.RawURLEncoding.EncodeToString(hash.Sum(nil))
}

// GenerateSecureToken returns length random bytes encoded as unpadded base64url.
func GenerateSecureToken(length int) (string, error) {
	buffer := make([]byte, length)
	if _, err := rand.Read(buffer); err != nil {
		return "", fmt.Errorf("sec: failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buffer), nil
}
