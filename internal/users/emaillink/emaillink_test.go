// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package emaillink_test

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/warden/internal/platform/apperr"
	"github.com/taibuivan/warden/internal/users/emaillink"
)

var testKey = strings.Repeat("0f", 32)

func newService(t *testing.T, port string) *emaillink.Service {
	t.Helper()
	service, err := emaillink.NewService(emaillink.Config{
		Key:      testKey,
		Protocol: "https",
		Domain:   "warden.example.com",
		Port:     port,
	})
	require.NoError(t, err)
	return service
}

func parseLink(t *testing.T, link string) (*url.URL, string, string, string) {
	t.Helper()
	parsed, err := url.Parse(link)
	require.NoError(t, err)
	query := parsed.Query()
	return parsed, query.Get("data"), query.Get("iv"), query.Get("tag")
}

/*
TestNewService rejects malformed keys.
*/
func TestNewService(t *testing.T) {
	for _, key := range []string{"", "abcd", strings.Repeat("zz", 32), strings.Repeat("0f", 16)} {
		_, err := emaillink.NewService(emaillink.Config{Key: key})
		assert.Error(t, err, key)
	}
}

/*
TestService_RoundTrip seals and opens a payload and checks the URL shape.
*/
func TestService_RoundTrip(t *testing.T) {
	service := newService(t, "")
	payload := emaillink.Payload("ada+tag@example.com", "012345")

	link, err := service.EncryptLink(payload)
	require.NoError(t, err)

	parsed, data, iv, tag := parseLink(t, link)
	assert.Equal(t, "https", parsed.Scheme)
	assert.Equal(t, "warden.example.com", parsed.Host)
	assert.Equal(t, emaillink.CheckPath, parsed.Path)

	plaintext, err := service.DecryptLink(data, iv, tag)
	require.NoError(t, err)
	assert.Equal(t, payload, plaintext)

	email, code, err := emaillink.ParsePayload(plaintext)
	require.NoError(t, err)
	assert.Equal(t, "ada+tag@example.com", email)
	assert.Equal(t, "012345", code)
}

/*
TestService_Port includes the port only when configured.
*/
func TestService_Port(t *testing.T) {
	link, err := newService(t, "8443").EncryptLink("x&1")
	require.NoError(t, err)

	parsed, _, _, _ := parseLink(t, link)
	assert.Equal(t, "warden.example.com:8443", parsed.Host)
}

// flip changes one bit of a base64url value.
func flip(t *testing.T, value string, index int) string {
	t.Helper()
	alphabet := "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	position := strings.IndexByte(alphabet, value[index])
	require.GreaterOrEqual(t, position, 0)
	replacement := alphabet[position^0x20]
	return value[:index] + string(replacement) + value[index+1:]
}

/*
TestService_Tampering rejects a change to any part of the link.
*/
func TestService_Tampering(t *testing.T) {
	service := newService(t, "")
	link, err := service.EncryptLink(emaillink.Payload("ada@example.com", "123456"))
	require.NoError(t, err)
	_, data, iv, tag := parseLink(t, link)

	other, err := emaillink.NewService(emaillink.Config{Key: strings.Repeat("ab", 32), Protocol: "https", Domain: "x"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		service *emaillink.Service
		data    string
		iv      string
		tag     string
	}{
		{"data", service, flip(t, data, 0), iv, tag},
		{"iv", service, data, flip(t, iv, 0), tag},
		{"tag", service, data, iv, flip(t, tag, 0)},
		{"short_iv", service, data, iv[:8], tag},
		{"empty_tag", service, data, iv, ""},
		{"not_base64", service, "***", iv, tag},
		{"wrong_key", other, data, iv, tag},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.service.DecryptLink(tt.data, tt.iv, tt.tag)
			assert.True(t, apperr.HasCode(err, apperr.CodeInvalidLink))
		})
	}
}

/*
TestParsePayload splits on the last ampersand.
*/
func TestParsePayload(t *testing.T) {
	email, code, err := emaillink.ParsePayload("a&b@example.com&654321")
	require.NoError(t, err)
	assert.Equal(t, "a&b@example.com", email)
	assert.Equal(t, "654321", code)

	for _, bad := range []string{"", "no-separator", "&123456", "ada@example.com&"} {
		_, _, err := emaillink.ParsePayload(bad)
		assert.Error(t, err, bad)
	}
}
