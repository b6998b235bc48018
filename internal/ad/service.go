// AngelaMos | 2026
// service.go

package ad

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	hidden, err := s.repo.HideExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("sweep expired ads: %w", err)
	}

	slog.InfoContext(ctx, "expired ads hidden", "count", hidden)
	return hidden, nil
}

func (s *Service) CountVisible(ctx context.Context) (int, error) {
	return s.repo.CountVisible(ctx)
}
