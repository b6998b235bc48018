// AngelaMos | 2026
// entity.go

package user

import (
	"time"

	"github.com/carterperez-dev/templates/directory-api/internal/access"
	"github.com/carterperez-dev/templates/directory-api/internal/auth"
)

type User struct {
	ID            string      `db:"id"`
	Username      string      `db:"username"`
	Email         *string     `db:"email"`
	Phone         *string     `db:"phone"`
	PasswordHash  string      `db:"password_hash"`
	Role          access.Role `db:"role"`
	EmailVerified bool        `db:"email_verified"`
	Status        string      `db:"status"`
	CreatedAt     time.Time   `db:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at"`
}

func (u *User) IsDisabled() bool {
	return u.Status == auth.StatusDisabled
}

func (u *User) EmailValue() string {
	if u.Email == nil {
		return ""
	}
	return *u.Email
}
