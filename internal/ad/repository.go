// AngelaMos | 2026
// repository.go

package ad

import (
	"context"
	"fmt"
	"time"

	"github.com/carterperez-dev/templates/directory-api/internal/core"
)

type Repository interface {
	HideExpired(ctx context.Context, now time.Time) (int64, error)
	CountVisible(ctx context.Context) (int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

// HideExpired flips every visible ad past its expiry. Rows already hidden
// are left alone, so repeated or concurrent runs are harmless.
func (r *repository) HideExpired(
	ctx context.Context,
	now time.Time,
) (int64, error) {
	query := `
		UPDATE ads
		SET is_hidden = true, updated_at = NOW()
		WHERE is_hidden = false AND expires_at <= $1`

	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("hide expired ads: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("hide expired ads: %w", err)
	}

	return rows, nil
}

func (r *repository) CountVisible(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM ads WHERE is_hidden = false`

	var count int
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("count visible ads: %w", err)
	}

	return count, nil
}
