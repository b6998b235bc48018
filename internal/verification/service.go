// AngelaMos | 2026
// service.go

package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/templates/directory-api/internal/core"
	"github.com/carterperez-dev/templates/directory-api/internal/mail"
)

var (
	ErrCodeNotFound = errors.New("verification code not found")
	ErrCodeExpired  = errors.New("verification code expired")
)

type Recorder interface {
	CodeIssued()
	CodeDeliveryFailed()
	CodeConsumed(outcome string)
}

type noopRecorder struct{}

func (noopRecorder) CodeIssued()         {}
func (noopRecorder) CodeDeliveryFailed() {}
func (noopRecorder) CodeConsumed(string) {}

type Service struct {
	repo     Repository
	sender   mail.Sender
	ttl      time.Duration
	digits   int
	now      func() time.Time
	recorder Recorder
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

func NewService(
	repo Repository,
	sender mail.Sender,
	ttl time.Duration,
	digits int,
	opts ...Option,
) *Service {
	s := &Service{
		repo:     repo,
		sender:   sender,
		ttl:      ttl,
		digits:   digits,
		now:      time.Now,
		recorder: noopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithRepository returns a copy bound to repo, typically one opened on a
// transaction.
func (s *Service) WithRepository(repo Repository) *Service {
	clone := *s
	clone.repo = repo
	return &clone
}

// Issue stores a fresh code for the recipient and mails it. The stored row
// is left in place when delivery fails so the caller decides whether to roll
// back.
func (s *Service) Issue(ctx context.Context, rcpt Recipient) (*Code, error) {
	ctx, span := core.StartSpan(ctx, "verification.issue",
		attribute.String("user.id", rcpt.UserID),
	)
	defer span.End()

	if rcpt.Email == "" {
		return nil, fmt.Errorf("issue code: missing email: %w", core.ErrInvalidInput)
	}

	value, err := core.GenerateNumericCode(s.digits)
	if err != nil {
		return nil, fmt.Errorf("issue code: %w", err)
	}

	now := s.now()
	code := &Code{
		ID:        uuid.New().String(),
		UserID:    rcpt.UserID,
		Code:      value,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := s.repo.Create(ctx, code); err != nil {
		return nil, fmt.Errorf("issue code: %w", err)
	}

	msg := mail.VerificationMessage(rcpt.Email, rcpt.Username, value, s.ttl)
	if err := s.sender.Send(ctx, msg); err != nil {
		s.recorder.CodeDeliveryFailed()
		core.SetSpanError(ctx, err)
		if !errors.Is(err, mail.ErrDeliveryFailed) {
			err = fmt.Errorf("%w: %w", mail.ErrDeliveryFailed, err)
		}
		return nil, fmt.Errorf("issue code: %w", err)
	}

	s.recorder.CodeIssued()
	core.AddSpanEvent(ctx, "verification.code_issued")
	slog.InfoContext(ctx, "verification code issued",
		"user_id", rcpt.UserID,
		"expires_at", code.ExpiresAt,
	)

	return code, nil
}

// Consume marks the newest matching unconsumed code as used. An expired code
// is reported as ErrCodeExpired and stays unconsumed.
func (s *Service) Consume(ctx context.Context, userID, value string) error {
	code, err := s.repo.FindLatestUnconsumed(ctx, userID, value)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			s.recorder.CodeConsumed("not_found")
			return ErrCodeNotFound
		}
		return fmt.Errorf("consume code: %w", err)
	}

	if code.IsExpiredAt(s.now()) {
		s.recorder.CodeConsumed("expired")
		return ErrCodeExpired
	}

	if err := s.repo.MarkConsumed(ctx, code.ID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			s.recorder.CodeConsumed("not_found")
			return ErrCodeNotFound
		}
		return fmt.Errorf("consume code: %w", err)
	}

	s.recorder.CodeConsumed("matched")
	return nil
}

func (s *Service) Outstanding(ctx context.Context, userID string) (int, error) {
	return s.repo.CountOutstanding(ctx, userID, s.now())
}

func (s *Service) PurgeStale(
	ctx context.Context,
	retention time.Duration,
) (int64, error) {
	deleted, err := s.repo.DeleteStale(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("purge stale codes: %w", err)
	}
	return deleted, nil
}
