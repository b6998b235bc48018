// AngelaMos | 2026
// dto.go

package user

import (
	"time"

	"github.com/carterperez-dev/templates/directory-api/internal/access"
)

type CreateUserRequest struct {
	Username string  `json:"username"        validate:"required,min=3,max=50,excludesall=@"`
	Password string  `json:"password"        validate:"required,min=6,max=72"`
	Email    *string `json:"email,omitempty" validate:"omitempty,max=255,empty_or=email"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=32,empty_or=min=5"`
	Role     string  `json:"role"            validate:"required"`
}

// UpdateUserRequest applies only the fields that are present. An empty
// email or phone clears it.
type UpdateUserRequest struct {
	Username *string `json:"username,omitempty" validate:"omitempty,min=3,max=50,excludesall=@"`
	Email    *string `json:"email,omitempty"    validate:"omitempty,max=255,empty_or=email"`
	Phone    *string `json:"phone,omitempty"    validate:"omitempty,max=32,empty_or=min=5"`
}

type UpdateUserRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

type SetPasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required,min=6,max=72"`
}

type UserResponse struct {
	ID            string      `json:"id"`
	Username      string      `json:"username"`
	Email         *string     `json:"email,omitempty"`
	Phone         *string     `json:"phone,omitempty"`
	Role          access.Role `json:"role"`
	EmailVerified bool        `json:"email_verified"`
	Status        string      `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// PublicUserResponse is what a plain user may see of someone else.
type PublicUserResponse struct {
	Username string  `json:"username"`
	Phone    *string `json:"phone,omitempty"`
}

type ListUsersParams struct {
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Search   string `json:"search"`
	Role     string `json:"role"`
}

func (p *ListUsersParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListUsersParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		Phone:         u.Phone,
		Role:          u.Role,
		EmailVerified: u.EmailVerified,
		Status:        u.Status,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func ToPublicUserResponse(u *User) PublicUserResponse {
	return PublicUserResponse{
		Username: u.Username,
		Phone:    u.Phone,
	}
}

func ToUserResponseList(users []User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, ToUserResponse(&users[i]))
	}
	return responses
}
