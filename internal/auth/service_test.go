// AngelaMos | 2026
// service_test.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/directory-api/internal/access"
	"github.com/carterperez-dev/templates/directory-api/internal/core"
	"github.com/carterperez-dev/templates/directory-api/internal/mail"
	"github.com/carterperez-dev/templates/directory-api/internal/verification"
)

type memoryUsers struct {
	mu    sync.Mutex
	seq   int
	users map[string]*UserInfo
	// writeErr, when set, fails UpdatePassword and MarkEmailVerified.
	writeErr error
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: make(map[string]*UserInfo)}
}

func (m *memoryUsers) find(match func(*UserInfo) bool) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *memoryUsers) GetByID(_ context.Context, id string) (*UserInfo, error) {
	return m.find(func(u *UserInfo) bool { return u.ID == id })
}

func (m *memoryUsers) GetByEmail(_ context.Context, email string) (*UserInfo, error) {
	return m.find(func(u *UserInfo) bool {
		return u.Email != nil && *u.Email == email
	})
}

func (m *memoryUsers) GetByIdentifier(
	ctx context.Context,
	identifier string,
) (*UserInfo, error) {
	u, err := m.find(func(u *UserInfo) bool { return u.Username == identifier })
	if err == nil {
		return u, nil
	}
	return m.GetByEmail(ctx, strings.ToLower(identifier))
}

func (m *memoryUsers) UsernameExists(ctx context.Context, username string) (bool, error) {
	_, err := m.find(func(u *UserInfo) bool { return u.Username == username })
	return err == nil, nil
}

func (m *memoryUsers) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(ctx, email)
	return err == nil, nil
}

func (m *memoryUsers) Create(_ context.Context, nu NewUser) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	u := &UserInfo{
		ID:            fmt.Sprintf("user-%d", m.seq),
		Username:      nu.Username,
		Email:         nu.Email,
		Phone:         nu.Phone,
		PasswordHash:  nu.PasswordHash,
		Role:          nu.Role,
		EmailVerified: nu.EmailVerified,
		Status:        StatusActive,
	}
	m.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (m *memoryUsers) UpdatePassword(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	u, ok := m.users[id]
	if !ok {
		return core.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *memoryUsers) MarkEmailVerified(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	u, ok := m.users[id]
	if !ok {
		return core.ErrNotFound
	}
	u.EmailVerified = true
	return nil
}

func (m *memoryUsers) failWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

func (m *memoryUsers) snapshot() (map[string]UserInfo, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]UserInfo, len(m.users))
	for id, u := range m.users {
		out[id] = *u
	}
	return out, m.seq
}

func (m *memoryUsers) restore(snap map[string]UserInfo, seq int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = make(map[string]*UserInfo, len(snap))
	for id, u := range snap {
		cp := u
		m.users[id] = &cp
	}
	m.seq = seq
}

type memoryCodes struct {
	mu    sync.Mutex
	codes []*verification.Code
}

func (m *memoryCodes) Create(_ context.Context, c *verification.Code) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *c
	m.codes = append(m.codes, &stored)
	return nil
}

func (m *memoryCodes) FindLatestUnconsumed(
	_ context.Context,
	userID, value string,
) (*verification.Code, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.codes) - 1; i >= 0; i-- {
		c := m.codes[i]
		if c.UserID == userID && c.Code == value && !c.Consumed {
			cp := *c
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *memoryCodes) MarkConsumed(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.codes {
		if c.ID == id && !c.Consumed {
			c.Consumed = true
			return nil
		}
	}
	return core.ErrNotFound
}

func (m *memoryCodes) CountOutstanding(
	_ context.Context,
	userID string,
	now time.Time,
) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.codes {
		if c.UserID == userID && c.IsUsableAt(now) {
			n++
		}
	}
	return n, nil
}

func (m *memoryCodes) DeleteStale(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (m *memoryCodes) latest(userID string) *verification.Code {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.codes) - 1; i >= 0; i-- {
		if m.codes[i].UserID == userID {
			cp := *m.codes[i]
			return &cp
		}
	}
	return nil
}

func (m *memoryCodes) all() []verification.Code {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]verification.Code, 0, len(m.codes))
	for _, c := range m.codes {
		out = append(out, *c)
	}
	return out
}

// memoryTx rolls both stores back to their state before fn when fn fails.
type memoryTx struct {
	users *memoryUsers
	codes *memoryCodes
}

func (t *memoryTx) InTx(_ context.Context, fn func(TxStores) error) error {
	users, seq := t.users.snapshot()
	codes := t.codes.all()

	err := fn(TxStores{Users: t.users, Codes: t.codes})
	if err != nil {
		t.users.restore(users, seq)
		t.codes.mu.Lock()
		t.codes.codes = t.codes.codes[:0]
		for _, c := range codes {
			cp := c
			t.codes.codes = append(t.codes.codes, &cp)
		}
		t.codes.mu.Unlock()
	}
	return err
}

type outbox struct {
	mu   sync.Mutex
	sent []mail.Message
	fail bool
}

func (o *outbox) Send(_ context.Context, msg mail.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fail {
		return fmt.Errorf("%w: relay refused", mail.ErrDeliveryFailed)
	}
	o.sent = append(o.sent, msg)
	return nil
}

func (o *outbox) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.sent)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	svc   *Service
	users *memoryUsers
	codes *memoryCodes
	mail  *outbox
	clock *clock
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	users := newMemoryUsers()
	codes := &memoryCodes{}
	box := &outbox{}
	clk := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	codeSvc := verification.NewService(
		codes,
		box,
		15*time.Minute,
		6,
		verification.WithClock(clk.Now),
	)

	svc := NewService(
		users,
		codeSvc,
		&memoryTx{users: users, codes: codes},
		newTestJWTManager(t, "clients"),
		nil,
	)

	return &harness{svc: svc, users: users, codes: codes, mail: box, clock: clk}
}

func ptr(s string) *string { return &s }

func (h *harness) signup(t *testing.T, username, email, password string) *Result {
	t.Helper()
	res, err := h.svc.Signup(context.Background(), SignupRequest{
		Username: username,
		Email:    ptr(email),
		Password: password,
	})
	require.NoError(t, err)
	return res
}

func TestSignupWithEmailRequiresVerification(t *testing.T) {
	h := newHarness(t)

	res := h.signup(t, "alice", "Alice@Example.com", "secret1")

	assert.True(t, res.NeedsVerification)
	assert.Nil(t, res.Token)
	assert.False(t, res.User.EmailVerified)
	assert.Equal(t, "alice@example.com", *res.User.Email)
	assert.Equal(t, access.RoleUser, res.User.Role)
	assert.NotEqual(t, "secret1", res.User.PasswordHash)

	n, err := h.svc.codes.Outstanding(context.Background(), res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, h.mail.count())
}

func TestSignupWithoutEmailIssuesToken(t *testing.T) {
	h := newHarness(t)

	res, err := h.svc.Signup(context.Background(), SignupRequest{
		Username: "bob",
		Password: "secret1",
	})
	require.NoError(t, err)

	assert.False(t, res.NeedsVerification)
	require.NotNil(t, res.Token)
	assert.True(t, res.User.EmailVerified)
	assert.Zero(t, h.mail.count())
}

func TestSignupConflicts(t *testing.T) {
	h := newHarness(t)
	h.signup(t, "alice", "alice@example.com", "secret1")

	_, err := h.svc.Signup(context.Background(), SignupRequest{
		Username: "alice",
		Password: "secret1",
	})
	var conflict *core.FieldConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "username", conflict.Field)

	_, err = h.svc.Signup(context.Background(), SignupRequest{
		Username: "alice2",
		Email:    ptr("ALICE@example.com"),
		Password: "secret1",
	})
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "email", conflict.Field)
}

func TestSignupRollsBackWhenMailFails(t *testing.T) {
	h := newHarness(t)
	h.mail.fail = true

	_, err := h.svc.Signup(context.Background(), SignupRequest{
		Username: "carol",
		Email:    ptr("carol@example.com"),
		Password: "secret1",
	})
	assert.ErrorIs(t, err, mail.ErrDeliveryFailed)

	exists, err := h.users.UsernameExists(context.Background(), "carol")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Empty(t, h.codes.all())
}

func TestVerifyEmailConsumesCodeOnce(t *testing.T) {
	h := newHarness(t)
	res := h.signup(t, "alice", "alice@example.com", "secret1")
	code := h.codes.latest(res.User.ID).Code

	verified, err := h.svc.VerifyEmail(context.Background(), VerifyEmailRequest{
		Email: "alice@example.com",
		Code:  code,
	})
	require.NoError(t, err)
	require.NotNil(t, verified.Token)
	assert.True(t, verified.User.EmailVerified)

	_, err = h.svc.VerifyEmail(context.Background(), VerifyEmailRequest{
		Email: "alice@example.com",
		Code:  code,
	})
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestVerifyEmailRollsBackWhenUserUpdateFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := h.signup(t, "alice", "alice@example.com", "secret1")
	code := h.codes.latest(res.User.ID)
	before, err := h.users.GetByID(ctx, res.User.ID)
	require.NoError(t, err)

	writeErr := errors.New("connection reset")
	h.users.failWrites(writeErr)

	_, err = h.svc.VerifyEmail(ctx, VerifyEmailRequest{
		Email: "alice@example.com",
		Code:  code.Code,
	})
	require.ErrorIs(t, err, writeErr)

	assert.False(t, h.codes.latest(res.User.ID).Consumed)
	after, err := h.users.GetByID(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	h.users.failWrites(nil)

	verified, err := h.svc.VerifyEmail(ctx, VerifyEmailRequest{
		Email: "alice@example.com",
		Code:  code.Code,
	})
	require.NoError(t, err)
	assert.True(t, verified.User.EmailVerified)
	assert.True(t, h.codes.latest(res.User.ID).Consumed)
}

func TestVerifyEmailExpiredCodeStaysUnconsumed(t *testing.T) {
	h := newHarness(t)
	res := h.signup(t, "alice", "alice@example.com", "secret1")
	code := h.codes.latest(res.User.ID)

	h.clock.Advance(16 * time.Minute)

	_, err := h.svc.VerifyEmail(context.Background(), VerifyEmailRequest{
		Email: "alice@example.com",
		Code:  code.Code,
	})
	assert.ErrorIs(t, err, ErrCodeExpired)
	assert.False(t, h.codes.latest(res.User.ID).Consumed)

	user, err := h.users.GetByID(context.Background(), res.User.ID)
	require.NoError(t, err)
	assert.False(t, user.EmailVerified)
}

func TestVerifyEmailUnknownAddress(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.VerifyEmail(context.Background(), VerifyEmailRequest{
		Email: "nobody@example.com",
		Code:  "123456",
	})
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestLoginUnverifiedIssuesFreshCode(t *testing.T) {
	h := newHarness(t)
	res := h.signup(t, "alice", "alice@example.com", "secret1")

	_, err := h.svc.Login(context.Background(), LoginRequest{
		Identifier: "alice",
		Password:   "secret1",
	})
	assert.ErrorIs(t, err, ErrNeedsVerification)

	n, err := h.svc.codes.Outstanding(context.Background(), res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, h.mail.count())
}

func TestLoginInvalidCredentials(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Signup(context.Background(), SignupRequest{
		Username: "bob",
		Password: "secret1",
	})
	require.NoError(t, err)

	_, err = h.svc.Login(context.Background(), LoginRequest{
		Identifier: "bob",
		Password:   "wrong-password",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = h.svc.Login(context.Background(), LoginRequest{
		Identifier: "nobody",
		Password:   "secret1",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginDisabledAccount(t *testing.T) {
	h := newHarness(t)
	res, err := h.svc.Signup(context.Background(), SignupRequest{
		Username: "bob",
		Password: "secret1",
	})
	require.NoError(t, err)

	h.users.mu.Lock()
	h.users.users[res.User.ID].Status = StatusDisabled
	h.users.mu.Unlock()

	_, err = h.svc.Login(context.Background(), LoginRequest{
		Identifier: "bob",
		Password:   "secret1",
	})
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestSignupVerifyLoginFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res := h.signup(t, "alice", "alice@example.com", "secret1")
	first := h.codes.latest(res.User.ID).Code

	require.NoError(t, h.svc.ResendCode(ctx, EmailRequest{Email: "alice@example.com"}))
	second := h.codes.latest(res.User.ID).Code
	assert.Equal(t, 2, h.mail.count())

	_, err := h.svc.VerifyEmail(ctx, VerifyEmailRequest{
		Email: "alice@example.com",
		Code:  second,
	})
	require.NoError(t, err)

	err = h.svc.ResendCode(ctx, EmailRequest{Email: "alice@example.com"})
	assert.ErrorIs(t, err, ErrAlreadyVerified)

	logged, err := h.svc.Login(ctx, LoginRequest{
		Identifier: "alice@example.com",
		Password:   "secret1",
	})
	require.NoError(t, err)
	require.NotNil(t, logged.Token)

	claims, err := h.svc.jwt.VerifyAccessToken(ctx, logged.Token.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)

	if first != second {
		outstanding, err := h.svc.codes.Outstanding(ctx, res.User.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, outstanding)
	}
}

func TestResendCodeUnknownEmail(t *testing.T) {
	h := newHarness(t)

	err := h.svc.ResendCode(context.Background(), EmailRequest{Email: "ghost@example.com"})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestForgotAndResetPassword(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res := h.signup(t, "alice", "alice@example.com", "secret1")
	_, err := h.svc.VerifyEmail(ctx, VerifyEmailRequest{
		Email: "alice@example.com",
		Code:  h.codes.latest(res.User.ID).Code,
	})
	require.NoError(t, err)

	require.NoError(t, h.svc.ForgotPassword(ctx, EmailRequest{Email: "alice@example.com"}))
	code := h.codes.latest(res.User.ID).Code

	err = h.svc.ResetPassword(ctx, ResetPasswordRequest{
		Email:       "alice@example.com",
		Code:        code,
		NewPassword: "secret2",
	})
	require.NoError(t, err)

	_, err = h.svc.Login(ctx, LoginRequest{Identifier: "alice", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = h.svc.Login(ctx, LoginRequest{Identifier: "alice", Password: "secret2"})
	assert.NoError(t, err)

	err = h.svc.ResetPassword(ctx, ResetPasswordRequest{
		Email:       "alice@example.com",
		Code:        code,
		NewPassword: "secret3",
	})
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestResetPasswordRollsBackWhenUserUpdateFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := h.signup(t, "alice", "alice@example.com", "secret1")

	require.NoError(t, h.svc.ForgotPassword(ctx, EmailRequest{Email: "alice@example.com"}))
	code := h.codes.latest(res.User.ID)
	before, err := h.users.GetByID(ctx, res.User.ID)
	require.NoError(t, err)

	writeErr := errors.New("connection reset")
	h.users.failWrites(writeErr)

	err = h.svc.ResetPassword(ctx, ResetPasswordRequest{
		Email:       "alice@example.com",
		Code:        code.Code,
		NewPassword: "secret2",
	})
	require.ErrorIs(t, err, writeErr)

	assert.False(t, h.codes.latest(res.User.ID).Consumed)
	after, err := h.users.GetByID(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, before.PasswordHash, after.PasswordHash)
	assert.True(t, core.VerifyPassword("secret1", after.PasswordHash))

	h.users.failWrites(nil)

	require.NoError(t, h.svc.ResetPassword(ctx, ResetPasswordRequest{
		Email:       "alice@example.com",
		Code:        code.Code,
		NewPassword: "secret2",
	}))
	assert.True(t, h.codes.latest(res.User.ID).Consumed)

	after, err = h.users.GetByID(ctx, res.User.ID)
	require.NoError(t, err)
	assert.True(t, core.VerifyPassword("secret2", after.PasswordHash))
}

func TestChangePassword(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.svc.Signup(ctx, SignupRequest{Username: "bob", Password: "secret1"})
	require.NoError(t, err)
	target := res.User

	admin, err := h.users.Create(ctx, NewUser{
		Username: "root",
		Role:     access.RoleSuperAdmin,
	})
	require.NoError(t, err)

	tests := []struct {
		name    string
		actor   access.Actor
		old     string
		wantErr error
	}{
		{
			name:    "stranger is forbidden",
			actor:   access.Actor{ID: "someone", Role: access.RoleUser},
			old:     "secret1",
			wantErr: core.ErrForbidden,
		},
		{
			name:    "self with wrong old password",
			actor:   access.Actor{ID: target.ID, Role: access.RoleUser},
			old:     "nope-nope",
			wantErr: ErrInvalidCredentials,
		},
		{
			name:  "self with old password",
			actor: access.Actor{ID: target.ID, Role: access.RoleUser},
			old:   "secret1",
		},
		{
			name:  "super admin with old password",
			actor: access.Actor{ID: admin.ID, Role: access.RoleSuperAdmin},
			old:   "secret2",
		},
	}

	next := []string{"secret2", "secret3"}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			newPw := "unused-pw"
			if tc.wantErr == nil {
				newPw, next = next[0], next[1:]
			}

			err := h.svc.ChangePassword(ctx, tc.actor, target.ID, ChangePasswordRequest{
				OldPassword: tc.old,
				NewPassword: newPw,
			})
			if tc.wantErr != nil {
				assert.True(t, errors.Is(err, tc.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)

			stored, err := h.users.GetByID(ctx, target.ID)
			require.NoError(t, err)
			assert.True(t, core.VerifyPassword(newPw, stored.PasswordHash))
		})
	}
}

func TestResetCodeAlsoVerifiesEmail(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := h.signup(t, "alice", "alice@example.com", "secret1")

	require.NoError(t, h.svc.ForgotPassword(ctx, EmailRequest{Email: "alice@example.com"}))
	code := h.codes.latest(res.User.ID).Code

	verified, err := h.svc.VerifyEmail(ctx, VerifyEmailRequest{
		Email: "alice@example.com",
		Code:  code,
	})
	require.NoError(t, err)
	require.NotNil(t, verified.Token)
	assert.True(t, verified.User.EmailVerified)

	err = h.svc.ResetPassword(ctx, ResetPasswordRequest{
		Email:       "alice@example.com",
		Code:        code,
		NewPassword: "secret2",
	})
	assert.ErrorIs(t, err, ErrInvalidCode)
}
