// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package totp wraps RFC 6238 time-based codes for authenticator apps.

Secrets are 20 random bytes, base32 without padding. Codes are 6 digits over
30-second steps with HMAC-SHA1, and only the current step is accepted.
Persisting the secret on the account is the caller's job.
*/
package totp

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"time"

	"github.com/pquerna/otp"
	pqtotp "github.com/pquerna/otp/totp"
)

const (
	period     = 30
	secretSize = 20
	qrSize     = 200
)

// Config names the issuer shown in authenticator apps.
type Config struct {
	Issuer string
}

// Secret is a freshly generated credential.
type Secret struct {
	// Base32 is the shared secret, unpadded.
	Base32 string
	// URI is the otpauth:// provisioning URI encoded in the QR code.
	URI string
}

// Service generates and checks TOTP codes.
type Service struct {
	issuer string
	now    func() time.Time
}

// Option customises a [Service].
type Option func(*Service)

// WithClock overrides the time source used by [Service.Verify].
func WithClock(now func() time.Time) Option {
	return func(service *Service) {
		service.now = now
	}
}

// NewService constructs a TOTP [Service].
func NewService(cfg Config, options ...Option) *Service {
	service := &Service{issuer: cfg.Issuer, now: time.Now}
	for _, option := range options {
		option(service)
	}
	return service
}

func validateOpts() pqtotp.ValidateOpts {
	return pqtotp.ValidateOpts{
		Period:    period,
		Skew:      0,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// GenerateSecret creates a new secret and provisioning URI for accountName.
func (service *Service) GenerateSecret(accountName string) (*Secret, error) {
	key, err := pqtotp.Generate(pqtotp.GenerateOpts{
		Issuer:      service.issuer,
		AccountName: accountName,
		Period:      period,
		SecretSize:  secretSize,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("totp: generate secret: %w", err)
	}

	return &Secret{Base32: key.Secret(), URI: key.URL()}, nil
}

// RenderQRCode returns the provisioning URI as a 200x200 PNG data URL.
func (service *Service) RenderQRCode(provisioningURI string) (string, error) {
	key, err := otp.NewKeyFromURL(provisioningURI)
	if err != nil {
		return "", fmt.Errorf("totp: parse provisioning uri: %w", err)
	}

	img, err := key.Image(qrSize, qrSize)
	if err != nil {
		return "", fmt.Errorf("totp: render qr code: %w", err)
	}

	var buffer bytes.Buffer
	if err := png.Encode(&buffer, img); err != nil {
		return "", fmt.Errorf("totp: encode png: %w", err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buffer.Bytes()), nil
}

// Verify reports whether code is valid for secret in the current step.
func (service *Service) Verify(secret, code string) bool {
	valid, err := pqtotp.ValidateCustom(code, secret, service.now().UTC(), validateOpts())
	return err == nil && valid
}

// Code returns the code for secret at the given instant.
func (service *Service) Code(secret string, at time.Time) (string, error) {
	code, err := pqtotp.GenerateCodeCustom(secret, at.UTC(), validateOpts())
	if err != nil {
		return "", fmt.Errorf("totp: generate code: %w", err)
	}
	return code, nil
}
