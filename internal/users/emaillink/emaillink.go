// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package emaillink builds and opens the encrypted email verification links.

The link carries "<email>&<otp>" sealed with AES-256-GCM. Ciphertext, nonce
and tag travel as separate base64url query parameters:

	https://warden.example.com/api/v1/auth/email-verification-check?data=..&iv=..&tag=..

Any tampering fails authentication and surfaces as INVALID_LINK.
*/
package emaillink

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/taibuivan/warden/internal/platform/apperr"
)

const (
	nonceSize = 16
	tagSize   = 16

	// CheckPath is the route the link points at.
	CheckPath = "/api/v1/auth/email-verification-check"
)

// ErrInvalidLink is returned for any link that cannot be opened.
var ErrInvalidLink = apperr.BadRequest(apperr.CodeInvalidLink, "Invalid Link")

var encoding = base64.RawURLEncoding

// Config holds the key and the public address links point to.
type Config struct {
	// Key is 64 hex characters (32 bytes).
	Key      string
	Protocol string
	Domain   string
	// Port is omitted from links when empty.
	Port string
}

// Service seals and opens verification links.
type Service struct {
	aead    cipher.AEAD
	baseURL string
}

// NewService validates cfg and prepares the cipher.
func NewService(cfg Config) (*Service, error) {
	key, err := hex.DecodeString(cfg.Key)
	if err != nil || len(key) != 32 {
		return nil, errors.New("emaillink: key must be 64 hex characters")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("emaillink: %w", err)
	}

	aead, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("emaillink: %w", err)
	}

	host := cfg.Domain
	if cfg.Port != "" {
		host += ":" + cfg.Port
	}

	return &Service{
		aead:    aead,
		baseURL: cfg.Protocol + "://" + host + CheckPath,
	}, nil
}

// EncryptLink seals plaintext into a verification URL.
func (service *Service) EncryptLink(plaintext string) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("emaillink: read nonce: %w", err)
	}

	sealed := service.aead.Seal(nil, nonce, []byte(plaintext), nil)
	ciphertext, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	query := url.Values{}
	query.Set("data", encoding.EncodeToString(ciphertext))
	query.Set("iv", encoding.EncodeToString(nonce))
	query.Set("tag", encoding.EncodeToString(tag))

	return service.baseURL + "?" + query.Encode(), nil
}

// DecryptLink opens the three query parameters of a link.
func (service *Service) DecryptLink(data, iv, tag string) (string, error) {
	ciphertext, err := encoding.DecodeString(data)
	if err != nil {
		return "", ErrInvalidLink.WithCause(err)
	}
	nonce, err := encoding.DecodeString(iv)
	if err != nil || len(nonce) != nonceSize {
		return "", ErrInvalidLink
	}
	authTag, err := encoding.DecodeString(tag)
	if err != nil || len(authTag) != tagSize {
		return "", ErrInvalidLink
	}

	plaintext, err := service.aead.Open(nil, nonce, append(ciphertext, authTag...), nil)
	if err != nil {
		return "", ErrInvalidLink.WithCause(err)
	}

	return string(plaintext), nil
}

// # Payload

// Payload joins an email and a code into link plaintext.
func Payload(email, code string) string {
	return email + "&" + code
}

// ParsePayload splits link plaintext on its last "&".
func ParsePayload(plaintext string) (email, code string, err error) {
	separator := strings.LastIndexByte(plaintext, '&')
	if separator <= 0 || separator == len(plaintext)-1 {
		return "", "", ErrInvalidLink
	}
	return plaintext[:separator], plaintext[separator+1:], nil
}
