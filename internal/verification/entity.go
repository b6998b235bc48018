// AngelaMos | 2026
// entity.go

package verification

import (
	"time"
)

type Code struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Code      string    `db:"code"`
	ExpiresAt time.Time `db:"expires_at"`
	Consumed  bool      `db:"consumed"`
	CreatedAt time.Time `db:"created_at"`
}

// IsExpiredAt reports expiry against the given instant. A code is still
// usable at exactly ExpiresAt.
func (c *Code) IsExpiredAt(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

func (c *Code) IsUsableAt(now time.Time) bool {
	return !c.Consumed && !c.IsExpiredAt(now)
}

type Recipient struct {
	UserID   string
	Email    string
	Username string
}
