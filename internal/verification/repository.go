// AngelaMos | 2026
// repository.go

package verification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/carterperez-dev/templates/directory-api/internal/core"
)

type Repository interface {
	Create(ctx context.Context, code *Code) error
	FindLatestUnconsumed(ctx context.Context, userID, code string) (*Code, error)
	MarkConsumed(ctx context.Context, id string) error
	CountOutstanding(ctx context.Context, userID string, now time.Time) (int, error)
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, code *Code) error {
	query := `
		INSERT INTO verification_codes (
			id, user_id, code, expires_at
		) VALUES (
			$1, $2, $3, $4
		)
		RETURNING consumed, created_at`

	err := r.db.QueryRowxContext(ctx, query,
		code.ID,
		code.UserID,
		code.Code,
		code.ExpiresAt,
	).Scan(&code.Consumed, &code.CreatedAt)
	if err != nil {
		return fmt.Errorf("create verification code: %w", err)
	}

	return nil
}

// FindLatestUnconsumed locks the newest unconsumed row matching the pair so
// that two concurrent consumers cannot both succeed.
func (r *repository) FindLatestUnconsumed(
	ctx context.Context,
	userID, code string,
) (*Code, error) {
	query := `
		SELECT id, user_id, code, expires_at, consumed, created_at
		FROM verification_codes
		WHERE user_id = $1 AND code = $2 AND consumed = false
		ORDER BY created_at DESC
		LIMIT 1
		FOR UPDATE`

	var c Code
	err := r.db.GetContext(ctx, &c, query, userID, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find verification code: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find verification code: %w", err)
	}

	return &c, nil
}

func (r *repository) MarkConsumed(ctx context.Context, id string) error {
	query := `
		UPDATE verification_codes
		SET consumed = true
		WHERE id = $1 AND consumed = false`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark code consumed: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark code consumed: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("mark code consumed: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) CountOutstanding(
	ctx context.Context,
	userID string,
	now time.Time,
) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM verification_codes
		WHERE user_id = $1 AND consumed = false AND expires_at >= $2`

	var count int
	if err := r.db.GetContext(ctx, &count, query, userID, now); err != nil {
		return 0, fmt.Errorf("count outstanding codes: %w", err)
	}

	return count, nil
}

// DeleteStale removes consumed codes and codes that expired before cutoff.
func (r *repository) DeleteStale(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	query := `
		DELETE FROM verification_codes
		WHERE expires_at < $1
			OR (consumed = true AND created_at < $1)`

	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete stale codes: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete stale codes: %w", err)
	}

	return rows, nil
}
