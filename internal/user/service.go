// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/carterperez-dev/templates/directory-api/internal/access"
	"github.com/carterperez-dev/templates/directory-api/internal/auth"
	"github.com/carterperez-dev/templates/directory-api/internal/core"
	"github.com/carterperez-dev/templates/directory-api/internal/middleware"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetByID(
	ctx context.Context,
	id string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) GetByEmail(
	ctx context.Context,
	email string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) GetByIdentifier(
	ctx context.Context,
	identifier string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) UsernameExists(
	ctx context.Context,
	username string,
) (bool, error) {
	return s.repo.ExistsByUsername(ctx, username)
}

func (s *Service) EmailExists(
	ctx context.Context,
	email string,
) (bool, error) {
	return s.repo.ExistsByEmail(ctx, strings.ToLower(email))
}

func (s *Service) Create(
	ctx context.Context,
	nu auth.NewUser,
) (*auth.UserInfo, error) {
	user := &User{
		ID:            uuid.New().String(),
		Username:      nu.Username,
		Email:         nu.Email,
		Phone:         nu.Phone,
		PasswordHash:  nu.PasswordHash,
		Role:          nu.Role,
		EmailVerified: nu.EmailVerified,
		Status:        auth.StatusActive,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) UpdatePassword(
	ctx context.Context,
	userID, passwordHash string,
) error {
	return s.repo.UpdatePassword(ctx, userID, passwordHash)
}

func (s *Service) MarkEmailVerified(ctx context.Context, userID string) error {
	return s.repo.MarkEmailVerified(ctx, userID)
}

func (s *Service) LoadIdentity(
	ctx context.Context,
	userID string,
) (*middleware.Identity, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &middleware.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		Disabled: user.IsDisabled(),
	}, nil
}

// ViewUser returns the target together with the projection the actor is
// entitled to see.
func (s *Service) ViewUser(
	ctx context.Context,
	actor access.Actor,
	id string,
) (*User, access.Decision, error) {
	decision := access.Decide(access.Request{
		Actor:    actor,
		Action:   access.ActionViewUser,
		TargetID: id,
	})
	if decision == access.Deny {
		return nil, decision, fmt.Errorf("view user: %w", core.ErrForbidden)
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, access.Deny, err
	}

	return user, decision, nil
}

// CreateUser registers an account on behalf of a privileged actor. Such
// accounts start with a verified email.
func (s *Service) CreateUser(
	ctx context.Context,
	actor access.Actor,
	req CreateUserRequest,
) (*User, error) {
	role, err := access.ParseRole(req.Role)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	err = access.Authorize(access.Request{
		Actor:         actor,
		Action:        access.ActionCreateUser,
		RequestedRole: role,
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	username := strings.TrimSpace(req.Username)
	email := normalizeOptional(req.Email, true)

	if err := s.ensureAvailable(ctx, "", username, email); err != nil {
		return nil, err
	}

	hash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	user := &User{
		ID:            uuid.New().String(),
		Username:      username,
		Email:         email,
		Phone:         normalizeOptional(req.Phone, false),
		PasswordHash:  hash,
		Role:          role,
		EmailVerified: true,
		Status:        auth.StatusActive,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// UpdateUser edits profile fields. A changed email must be verified again
// on the next login.
func (s *Service) UpdateUser(
	ctx context.Context,
	actor access.Actor,
	id string,
	req UpdateUserRequest,
) (*User, error) {
	err := access.Authorize(access.Request{
		Actor:    actor,
		Action:   access.ActionEditUser,
		TargetID: id,
	})
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var newUsername string
	if req.Username != nil {
		trimmed := strings.TrimSpace(*req.Username)
		if trimmed != user.Username {
			newUsername = trimmed
		}
	}

	var newEmail *string
	emailChanged := false
	if req.Email != nil {
		newEmail = normalizeOptional(req.Email, true)
		emailChanged = newEmail == nil && user.Email != nil ||
			newEmail != nil && *newEmail != user.EmailValue()
	}

	var checkEmail *string
	if emailChanged {
		checkEmail = newEmail
	}
	if err := s.ensureAvailable(ctx, user.ID, newUsername, checkEmail); err != nil {
		return nil, err
	}

	if newUsername != "" {
		user.Username = newUsername
	}
	if emailChanged {
		user.Email = newEmail
		user.EmailVerified = newEmail == nil
	}
	if req.Phone != nil {
		user.Phone = normalizeOptional(req.Phone, false)
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *Service) ChangeRole(
	ctx context.Context,
	actor access.Actor,
	id, roleName string,
) (*User, error) {
	role, err := access.ParseRole(roleName)
	if err != nil {
		return nil, fmt.Errorf("change role: %w", err)
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	err = access.Authorize(access.Request{
		Actor:         actor,
		Action:        access.ActionChangeRole,
		TargetID:      user.ID,
		TargetRole:    user.Role,
		RequestedRole: role,
	})
	if err != nil {
		return nil, fmt.Errorf("change role: %w", err)
	}

	if err := s.repo.UpdateRole(ctx, user.ID, role); err != nil {
		return nil, err
	}

	user.Role = role
	return user, nil
}

// SetPassword is the administrative reset; it does not ask for the old
// password.
func (s *Service) SetPassword(
	ctx context.Context,
	actor access.Actor,
	id, newPassword string,
) error {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	err = access.Authorize(access.Request{
		Actor:      actor,
		Action:     access.ActionChangePassword,
		TargetID:   user.ID,
		TargetRole: user.Role,
	})
	if err != nil {
		return fmt.Errorf("set password: %w", err)
	}

	hash, err := core.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("set password: %w", err)
	}

	return s.repo.UpdatePassword(ctx, user.ID, hash)
}

func (s *Service) DeleteUser(
	ctx context.Context,
	actor access.Actor,
	id string,
) error {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	err = access.Authorize(access.Request{
		Actor:      actor,
		Action:     access.ActionDeleteUser,
		TargetID:   user.ID,
		TargetRole: user.Role,
	})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	return s.repo.Delete(ctx, user.ID)
}

func (s *Service) ListUsers(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	if params.Role != "" {
		role, err := access.ParseRole(params.Role)
		if err != nil {
			return nil, 0, fmt.Errorf("list users: %w", err)
		}
		params.Role = role.String()
	}

	return s.repo.List(ctx, params)
}

func (s *Service) GetMe(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("get me: %w", core.ErrUnauthorized)
	}

	return s.repo.GetByID(ctx, userID)
}

func (s *Service) CountByRole(ctx context.Context) (map[access.Role]int, error) {
	return s.repo.CountByRole(ctx)
}

func (s *Service) ensureAvailable(
	ctx context.Context,
	selfID, username string,
	email *string,
) error {
	if username != "" {
		taken, err := s.repo.ExistsByUsername(ctx, username)
		if err != nil {
			return err
		}
		if taken {
			return &core.FieldConflictError{Field: "username"}
		}
	}

	if email != nil {
		existing, err := s.repo.GetByEmail(ctx, *email)
		switch {
		case errors.Is(err, core.ErrNotFound):
		case err != nil:
			return err
		case existing.ID != selfID:
			return &core.FieldConflictError{Field: "email"}
		}
	}

	return nil
}

func toUserInfo(u *User) *auth.UserInfo {
	return &auth.UserInfo{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		Phone:         u.Phone,
		PasswordHash:  u.PasswordHash,
		Role:          u.Role,
		EmailVerified: u.EmailVerified,
		Status:        u.Status,
	}
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

var (
	_ auth.UserProvider         = (*Service)(nil)
	_ middleware.IdentityLoader = (*Service)(nil)
)
