// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/taibuivan/warden/internal/platform/apperr"
	"github.com/taibuivan/warden/internal/platform/sec"
	"github.com/taibuivan/warden/internal/platform/storage"
	"github.com/taibuivan/warden/internal/users/auth"
	"github.com/taibuivan/warden/internal/users/emaillink"
	"github.com/taibuivan/warden/internal/users/otp"
	"github.com/taibuivan/warden/internal/users/totp"
)

// # Users

type memoryUsers struct {
	mu    sync.Mutex
	users map[string]*auth.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: map[string]*auth.User{}}
}

func (repo *memoryUsers) Create(_ context.Context, user *auth.User) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, existing := range repo.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return apperr.Conflict("A record with the same unique value already exists")
		}
	}
	copied := *user
	repo.users[user.ID] = &copied
	return nil
}

func (repo *memoryUsers) FindByID(_ context.Context, id string) (*auth.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	user, ok := repo.users[id]
	if !ok {
		return nil, apperr.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (repo *memoryUsers) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, user := range repo.users {
		if strings.EqualFold(user.Email, email) {
			copied := *user
			return &copied, nil
		}
	}
	return nil, apperr.ErrUserNotFound
}

func (repo *memoryUsers) update(id string, fn func(user *auth.User)) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	user, ok := repo.users[id]
	if !ok {
		return apperr.ErrUserNotFound
	}
	fn(user)
	return nil
}

func (repo *memoryUsers) UpdatePassword(_ context.Context, id, passwordHash string) error {
	return repo.update(id, func(user *auth.User) { user.PasswordHash = passwordHash })
}

func (repo *memoryUsers) UpdateNames(ctx context.Context, id string, firstName, lastName *string) (*auth.User, error) {
	err := repo.update(id, func(user *auth.User) {
		if firstName != nil {
			user.FirstName = *firstName
		}
		if lastName != nil {
			user.LastName = lastName
		}
	})
	if err != nil {
		return nil, err
	}
	return repo.FindByID(ctx, id)
}

func (repo *memoryUsers) MarkVerified(_ context.Context, id string) error {
	return repo.update(id, func(user *auth.User) { user.IsVerified = true })
}

func (repo *memoryUsers) SetEmailTwoFactor(_ context.Context, id string, enabled bool) error {
	return repo.update(id, func(user *auth.User) { user.IsEmailTwoFactor = enabled })
}

func (repo *memoryUsers) SetTOTPSecret(_ context.Context, id, secret string) error {
	return repo.update(id, func(user *auth.User) {
		user.TOTPSecret = &secret
		user.IsTOTPEnabled = true
	})
}

func (repo *memoryUsers) ClearTOTPSecret(_ context.Context, id string) error {
	return repo.update(id, func(user *auth.User) {
		user.TOTPSecret = nil
		user.IsTOTPEnabled = false
	})
}

func (repo *memoryUsers) Delete(_ context.Context, id string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if _, ok := repo.users[id]; !ok {
		return apperr.ErrUserNotFound
	}
	delete(repo.users, id)
	return nil
}

// # Sessions

// fakeSessions uses the session id as the access token.
type fakeSessions struct {
	mu       sync.Mutex
	next     int
	sessions map[string]string
	issueErr error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: map[string]string{}}
}

func (fake *fakeSessions) Issue(_ context.Context, userID string) (string, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.issueErr != nil {
		return "", fake.issueErr
	}
	fake.next++
	id := fmt.Sprintf("session-%d", fake.next)
	fake.sessions[id] = userID
	return id, nil
}

func (fake *fakeSessions) Destroy(_ context.Context, sessionID string) error {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	delete(fake.sessions, sessionID)
	return nil
}

func (fake *fakeSessions) DestroyAllForUser(_ context.Context, userID string) error {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	for id, owner := range fake.sessions {
		if owner == userID {
			delete(fake.sessions, id)
		}
	}
	return nil
}

func (fake *fakeSessions) forUser(userID string) []string {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	var ids []string
	for id, owner := range fake.sessions {
		if owner == userID {
			ids = append(ids, id)
		}
	}
	return ids
}

// # One-Time Codes

type fakeCodes struct {
	mu     sync.Mutex
	next   int
	issued map[string]string
}

func newFakeCodes() *fakeCodes {
	return &fakeCodes{issued: map[string]string{}}
}

func (fake *fakeCodes) Issue(_ context.Context, userID string) (string, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	fake.next++
	code := fmt.Sprintf("%06d", fake.next)
	fake.issued[userID+":"+code] = userID
	return code, nil
}

func (fake *fakeCodes) Verify(_ context.Context, userID, code string) error {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	key := userID + ":" + code
	if _, ok := fake.issued[key]; !ok {
		return otp.ErrInvalidOTP
	}
	delete(fake.issued, key)
	return nil
}

// # Mail

type sentMail struct {
	kind  string
	to    string
	value string
}

type captureMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (mailer *captureMailer) record(kind, to, value string) error {
	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	if mailer.err != nil {
		return mailer.err
	}
	mailer.sent = append(mailer.sent, sentMail{kind: kind, to: to, value: value})
	return nil
}

func (mailer *captureMailer) SendOTP(_ context.Context, to, code string) error {
	return mailer.record("otp", to, code)
}

func (mailer *captureMailer) SendVerificationLink(_ context.Context, to, link string) error {
	return mailer.record("link", to, link)
}

func (mailer *captureMailer) SendTOTPEnabled(_ context.Context, to, firstName string) error {
	return mailer.record("totp", to, firstName)
}

func (mailer *captureMailer) last(t *testing.T) sentMail {
	t.Helper()
	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	require.NotEmpty(t, mailer.sent)
	return mailer.sent[len(mailer.sent)-1]
}

// # Avatars

type fakeAvatars struct {
	mu      sync.Mutex
	objects map[string]string
	next    int
}

func (fake *fakeAvatars) Upload(_ context.Context, name string, body io.Reader, _ string) (*storage.Object, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	fake.mu.Lock()
	defer fake.mu.Unlock()
	fake.next++
	id := fmt.Sprintf("avatars/%d-%s", fake.next, name)
	fake.objects[id] = string(data)
	return &storage.Object{URL: "https://cdn.test/" + id, PublicID: id}, nil
}

func (fake *fakeAvatars) Delete(_ context.Context, publicID string) error {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	delete(fake.objects, publicID)
	return nil
}

// # Transactions

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// # Fixture

var (
	errBoom    = errors.New("boom")
	fixedNow   = time.Unix(1_800_000_000, 0)
	linkKeyHex = strings.Repeat("3c", 32)
)

type fixture struct {
	service  *auth.Service
	users    *memoryUsers
	sessions *fakeSessions
	codes    *fakeCodes
	mailer   *captureMailer
	avatars  *fakeAvatars
	totp     *totp.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	links, err := emaillink.NewService(emaillink.Config{
		Key:      linkKeyHex,
		Protocol: "https",
		Domain:   "warden.test",
	})
	require.NoError(t, err)

	f := &fixture{
		users:    newMemoryUsers(),
		sessions: newFakeSessions(),
		codes:    newFakeCodes(),
		mailer:   &captureMailer{},
		avatars:  &fakeAvatars{objects: map[string]string{}},
		totp:     totp.NewService(totp.Config{Issuer: "Warden"}, totp.WithClock(func() time.Time { return fixedNow })),
	}

	f.service = auth.NewService(auth.Dependencies{
		Users:         f.users,
		Sessions:      f.sessions,
		Codes:         f.codes,
		Authenticator: f.totp,
		Links:         links,
		Mailer:        f.mailer,
		Avatars:       f.avatars,
		Hasher:        sec.NewHasher(4),
		Tx:            passthroughTx{},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	return f
}

// register creates jane@example.com with password "correct-horse" and returns her id.
func (f *fixture) register(t *testing.T) string {
	t.Helper()
	_, err := f.service.Register(context.Background(), auth.RegisterInput{
		Email:     "jane@example.com",
		Password:  "correct-horse",
		FirstName: "Jane",
	})
	require.NoError(t, err)

	user, err := f.users.FindByEmail(context.Background(), "jane@example.com")
	require.NoError(t, err)
	return user.ID
}

// otpFor issues a code to userID the way the OTP endpoint would.
func (f *fixture) otpFor(t *testing.T, userID string) string {
	t.Helper()
	code, err := f.codes.Issue(context.Background(), userID)
	require.NoError(t, err)
	return code
}
