// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/carterperez-dev/templates/directory-api/internal/access"
	"github.com/carterperez-dev/templates/directory-api/internal/core"
	"github.com/carterperez-dev/templates/directory-api/internal/verification"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNeedsVerification  = errors.New("email not verified")
	ErrInvalidCode        = errors.New("invalid verification code")
	ErrCodeExpired        = errors.New("verification code expired")
	ErrAlreadyVerified    = errors.New("email already verified")
	ErrAccountDisabled    = errors.New("account disabled")
)

const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

type UserInfo struct {
	ID            string
	Username      string
	Email         *string
	Phone         *string
	PasswordHash  string
	Role          access.Role
	EmailVerified bool
	Status        string
}

func (u *UserInfo) HasEmail() bool {
	return u.Email != nil && *u.Email != ""
}

func (u *UserInfo) NeedsVerification() bool {
	return u.HasEmail() && !u.EmailVerified
}

func (u *UserInfo) IsDisabled() bool {
	return u.Status == StatusDisabled
}

type NewUser struct {
	Username      string
	Email         *string
	Phone         *string
	PasswordHash  string
	Role          access.Role
	EmailVerified bool
}

type UserProvider interface {
	GetByID(ctx context.Context, id string) (*UserInfo, error)
	GetByEmail(ctx context.Context, email string) (*UserInfo, error)
	GetByIdentifier(ctx context.Context, identifier string) (*UserInfo, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, u NewUser) (*UserInfo, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	MarkEmailVerified(ctx context.Context, userID string) error
}

// TxStores are the stores bound to a single transaction.
type TxStores struct {
	Users UserProvider
	Codes verification.Repository
}

type TxManager interface {
	InTx(ctx context.Context, fn func(stores TxStores) error) error
}

type Recorder interface {
	AuthEvent(flow, outcome string)
}

type noopRecorder struct{}

func (noopRecorder) AuthEvent(string, string) {}

type Service struct {
	users    UserProvider
	codes    *verification.Service
	tx       TxManager
	jwt      *JWTManager
	recorder Recorder
}

func NewService(
	users UserProvider,
	codes *verification.Service,
	tx TxManager,
	jwt *JWTManager,
	recorder Recorder,
) *Service {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Service{
		users:    users,
		codes:    codes,
		tx:       tx,
		jwt:      jwt,
		recorder: recorder,
	}
}

type Result struct {
	User              *UserInfo
	Token             *IssuedToken
	NeedsVerification bool
}

func (s *Service) Signup(ctx context.Context, req SignupRequest) (*Result, error) {
	username := strings.TrimSpace(req.Username)
	email := normalizeOptional(req.Email, true)
	phone := normalizeOptional(req.Phone, false)

	if err := s.ensureAvailable(ctx, username, email); err != nil {
		s.recorder.AuthEvent("signup", "conflict")
		return nil, err
	}

	hash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}

	newUser := NewUser{
		Username:      username,
		Email:         email,
		Phone:         phone,
		PasswordHash:  hash,
		Role:          access.RoleUser,
		EmailVerified: email == nil,
	}

	if email == nil {
		user, err := s.users.Create(ctx, newUser)
		if err != nil {
			return nil, fmt.Errorf("signup: %w", err)
		}
		return s.authenticated(ctx, "signup", user)
	}

	// The mail goes out while the transaction is open so a refused delivery
	// undoes the user. A slow relay holds the transaction for as long as
	// the send takes, and a commit failing after a delivered mail leaves
	// the recipient with a code for an account that does not exist.
	var created *UserInfo
	err = s.tx.InTx(ctx, func(stores TxStores) error {
		user, err := stores.Users.Create(ctx, newUser)
		if err != nil {
			return err
		}

		_, err = s.codes.WithRepository(stores.Codes).Issue(ctx, recipientFor(user))
		if err != nil {
			return err
		}

		created = user
		return nil
	})
	if err != nil {
		core.SetSpanError(ctx, err)
		s.recorder.AuthEvent("signup", "failed")
		return nil, fmt.Errorf("signup: %w", err)
	}

	s.recorder.AuthEvent("signup", "needs_verification")
	core.AddSpanEvent(ctx, "auth.signup")
	slog.InfoContext(ctx, "user signed up", "user_id", created.ID)

	return &Result{User: created, NeedsVerification: true}, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*Result, error) {
	identifier := strings.TrimSpace(req.Identifier)

	user, err := s.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.VerifyPasswordTimingSafe(req.Password, nil)
			s.recorder.AuthEvent("login", "invalid_credentials")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	if !core.VerifyPasswordTimingSafe(req.Password, &user.PasswordHash) {
		s.recorder.AuthEvent("login", "invalid_credentials")
		return nil, ErrInvalidCredentials
	}

	if user.IsDisabled() {
		s.recorder.AuthEvent("login", "disabled")
		return nil, ErrAccountDisabled
	}

	if user.NeedsVerification() {
		if _, err := s.codes.Issue(ctx, recipientFor(user)); err != nil {
			return nil, fmt.Errorf("login: %w", err)
		}
		s.recorder.AuthEvent("login", "needs_verification")
		return nil, ErrNeedsVerification
	}

	if core.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user.ID, req.Password)
	}

	return s.authenticated(ctx, "login", user)
}

func (s *Service) VerifyEmail(
	ctx context.Context,
	req VerifyEmailRequest,
) (*Result, error) {
	email := normalizeEmail(req.Email)

	var verified *UserInfo
	err := s.tx.InTx(ctx, func(stores TxStores) error {
		user, err := s.consumeFor(ctx, stores, email, req.Code)
		if err != nil {
			return err
		}

		if err := stores.Users.MarkEmailVerified(ctx, user.ID); err != nil {
			return err
		}

		user.EmailVerified = true
		verified = user
		return nil
	})
	if err != nil {
		s.recorder.AuthEvent("verify_email", outcomeOf(err))
		return nil, fmt.Errorf("verify email: %w", err)
	}

	return s.authenticated(ctx, "verify_email", verified)
}

func (s *Service) ResendCode(ctx context.Context, req EmailRequest) error {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return fmt.Errorf("resend code: %w", err)
	}

	if !user.HasEmail() {
		return fmt.Errorf("resend code: %w", core.ErrInvalidInput)
	}

	if user.EmailVerified {
		return ErrAlreadyVerified
	}

	if _, err := s.codes.Issue(ctx, recipientFor(user)); err != nil {
		s.recorder.AuthEvent("resend_code", "failed")
		return fmt.Errorf("resend code: %w", err)
	}

	s.recorder.AuthEvent("resend_code", "issued")
	return nil
}

func (s *Service) ForgotPassword(ctx context.Context, req EmailRequest) error {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return fmt.Errorf("forgot password: %w", err)
	}

	if _, err := s.codes.Issue(ctx, recipientFor(user)); err != nil {
		s.recorder.AuthEvent("forgot_password", "failed")
		return fmt.Errorf("forgot password: %w", err)
	}

	s.recorder.AuthEvent("forgot_password", "issued")
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	hash, err := core.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	email := normalizeEmail(req.Email)

	err = s.tx.InTx(ctx, func(stores TxStores) error {
		user, err := s.consumeFor(ctx, stores, email, req.Code)
		if err != nil {
			return err
		}
		return stores.Users.UpdatePassword(ctx, user.ID, hash)
	})
	if err != nil {
		s.recorder.AuthEvent("reset_password", outcomeOf(err))
		return fmt.Errorf("reset password: %w", err)
	}

	s.recorder.AuthEvent("reset_password", "success")
	core.AddSpanEvent(ctx, "auth.password_reset")
	return nil
}

// ChangePassword replaces the target's password. The actor is either the
// target or holds the administrative password rule, and the old password is
// checked against the target's stored hash in both cases.
func (s *Service) ChangePassword(
	ctx context.Context,
	actor access.Actor,
	targetID string,
	req ChangePasswordRequest,
) error {
	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	if actor.ID != target.ID {
		err := access.Authorize(access.Request{
			Actor:      actor,
			Action:     access.ActionChangePassword,
			TargetID:   target.ID,
			TargetRole: target.Role,
		})
		if err != nil {
			return fmt.Errorf("change password: %w", err)
		}
	}

	if !core.VerifyPassword(req.OldPassword, target.PasswordHash) {
		s.recorder.AuthEvent("change_password", "invalid_credentials")
		return ErrInvalidCredentials
	}

	hash, err := core.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, target.ID, hash); err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	s.recorder.AuthEvent("change_password", "success")
	return nil
}

func (s *Service) consumeFor(
	ctx context.Context,
	stores TxStores,
	email, code string,
) (*UserInfo, error) {
	user, err := stores.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, err
	}

	err = s.codes.WithRepository(stores.Codes).Consume(ctx, user.ID, code)
	switch {
	case errors.Is(err, verification.ErrCodeNotFound):
		return nil, ErrInvalidCode
	case errors.Is(err, verification.ErrCodeExpired):
		return nil, ErrCodeExpired
	case err != nil:
		return nil, err
	}

	return user, nil
}

func (s *Service) ensureAvailable(
	ctx context.Context,
	username string,
	email *string,
) error {
	taken, err := s.users.UsernameExists(ctx, username)
	if err != nil {
		return fmt.Errorf("check username: %w", err)
	}
	if taken {
		return &core.FieldConflictError{Field: "username"}
	}

	if email == nil {
		return nil
	}

	taken, err = s.users.EmailExists(ctx, *email)
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if taken {
		return &core.FieldConflictError{Field: "email"}
	}

	return nil
}

func (s *Service) authenticated(
	ctx context.Context,
	flow string,
	user *UserInfo,
) (*Result, error) {
	token, err := s.jwt.Issue(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("%s: issue token: %w", flow, err)
	}

	s.recorder.AuthEvent(flow, "success")
	core.AddSpanEvent(ctx, "auth."+flow)

	return &Result{User: user, Token: token}, nil
}

func (s *Service) rehash(ctx context.Context, userID, password string) {
	hash, err := core.HashPassword(password)
	if err != nil {
		return
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		slog.WarnContext(ctx, "password rehash failed",
			"user_id", userID,
			"error", err,
		)
	}
}

func recipientFor(u *UserInfo) verification.Recipient {
	rcpt := verification.Recipient{UserID: u.ID, Username: u.Username}
	if u.Email != nil {
		rcpt.Email = *u.Email
	}
	return rcpt
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCode):
		return "invalid_code"
	case errors.Is(err, ErrCodeExpired):
		return "code_expired"
	default:
		return "failed"
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeOptional(v *string, lower bool) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	if lower {
		trimmed = strings.ToLower(trimmed)
	}
	return &trimmed
}
