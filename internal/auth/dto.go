// AngelaMos | 2026
// dto.go

package auth

import (
	"time"

	"github.com/carterperez-dev/templates/directory-api/internal/access"
)

type SignupRequest struct {
	Username string  `json:"username"        validate:"required,min=3,max=50,excludesall=@"`
	Password string  `json:"password"        validate:"required,min=6,max=72"`
	Email    *string `json:"email,omitempty" validate:"omitempty,max=255,empty_or=email"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=32,empty_or=min=5"`
}

// LoginRequest accepts either the username or the email as identifier.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required,max=255"`
	Password   string `json:"password"   validate:"required,max=128"`
}

type VerifyEmailRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
	Code  string `json:"code"  validate:"required,len=6,numeric"`
}

type EmailRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email"        validate:"required,email,max=255"`
	Code        string `json:"code"         validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required,min=6,max=72"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required,max=128"`
	NewPassword string `json:"new_password" validate:"required,min=6,max=72"`
}

type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int       `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type UserResponse struct {
	ID            string      `json:"id"`
	Username      string      `json:"username"`
	Email         *string     `json:"email,omitempty"`
	Phone         *string     `json:"phone,omitempty"`
	Role          access.Role `json:"role"`
	EmailVerified bool        `json:"email_verified"`
}

type AuthResponse struct {
	User              UserResponse   `json:"user"`
	NeedsVerification bool           `json:"needs_verification"`
	Tokens            *TokenResponse `json:"tokens,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func ToUserResponse(u *UserInfo) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		Phone:         u.Phone,
		Role:          u.Role,
		EmailVerified: u.EmailVerified,
	}
}

func toAuthResponse(res *Result, now time.Time) AuthResponse {
	out := AuthResponse{
		User:              ToUserResponse(res.User),
		NeedsVerification: res.NeedsVerification,
	}

	if res.Token != nil {
		out.Tokens = &TokenResponse{
			AccessToken: res.Token.Token,
			TokenType:   "Bearer",
			ExpiresIn:   int(res.Token.ExpiresAt.Sub(now).Seconds()),
			ExpiresAt:   res.Token.ExpiresAt,
		}
	}

	return out
}
