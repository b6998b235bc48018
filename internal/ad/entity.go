// AngelaMos | 2026
// entity.go

package ad

import (
	"time"
)

type Ad struct {
	ID        string    `db:"id"`
	Title     string    `db:"title"`
	OwnerID   string    `db:"owner_id"`
	ExpiresAt time.Time `db:"expires_at"`
	IsHidden  bool      `db:"is_hidden"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (a *Ad) IsExpiredAt(now time.Time) bool {
	return !now.Before(a.ExpiresAt)
}
