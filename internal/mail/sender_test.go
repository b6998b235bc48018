// AngelaMos | 2026
// sender_test.go

package mail

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/carterperez-dev/templates/directory-api/internal/config"
)

type stubDialer struct {
	err  error
	sent []*gomail.Message
}

func (d *stubDialer) DialAndSend(m ...*gomail.Message) error {
	d.sent = append(d.sent, m...)
	return d.err
}

func TestNewSMTPSender_IncompleteConfig(t *testing.T) {
	testCases := []struct {
		name string
		cfg  config.MailConfig
	}{
		{name: "missing host", cfg: config.MailConfig{Port: 587, From: "noreply@example.com"}},
		{name: "missing from", cfg: config.MailConfig{Host: "smtp.example.com", Port: 587}},
		{name: "missing port", cfg: config.MailConfig{Host: "smtp.example.com", From: "noreply@example.com"}},
		{name: "all missing", cfg: config.MailConfig{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewSMTPSender(tc.cfg)
			assert.ErrorIs(t, err, ErrIncompleteConfig)
		})
	}
}

func TestSMTPSender_Send(t *testing.T) {
	d := &stubDialer{}
	s := &SMTPSender{dialer: d, from: "noreply@example.com", fromName: "Directory"}

	err := s.Send(context.Background(), VerificationMessage("a@x.com", "alice", "012345", 15*time.Minute))
	require.NoError(t, err)
	require.Len(t, d.sent, 1)
	assert.Equal(t, []string{"a@x.com"}, d.sent[0].GetHeader("To"))
}

func TestSMTPSender_SendFailureIsDeliveryFailed(t *testing.T) {
	d := &stubDialer{err: errors.New("connection refused")}
	s := &SMTPSender{dialer: d, from: "noreply@example.com"}

	err := s.Send(context.Background(), Message{To: "a@x.com", Subject: "s", Text: "t"})
	assert.ErrorIs(t, err, ErrDeliveryFailed)
}

func TestSMTPSender_SendCancelledContext(t *testing.T) {
	d := &stubDialer{}
	s := &SMTPSender{dialer: d, from: "noreply@example.com"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Send(ctx, Message{To: "a@x.com"})
	assert.ErrorIs(t, err, ErrDeliveryFailed)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, d.sent)
}

func TestLogSender_RejectsEmptyRecipient(t *testing.T) {
	s := NewLogSender(slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.ErrorIs(t, s.Send(context.Background(), Message{}), ErrDeliveryFailed)
	assert.NoError(t, s.Send(context.Background(), Message{To: "a@x.com"}))
}

func TestVerificationMessage(t *testing.T) {
	msg := VerificationMessage("a@x.com", "<alice>", "000123", 15*time.Minute)

	assert.Equal(t, "a@x.com", msg.To)
	assert.Contains(t, msg.Text, "000123")
	assert.Contains(t, msg.Text, "15 minutes")
	assert.Contains(t, msg.HTML, "&lt;alice&gt;")
}
