package email

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/DukeRupert/plumbline/internal/metrics"
)

// LogEmailService logs messages instead of sending them. Sent messages are
// kept for inspection in tests.
type LogEmailService struct {
	logger *slog.Logger

	mu   sync.Mutex
	sent []Email
}

// NewLogEmailService creates a LogEmailService.
func NewLogEmailService(logger *slog.Logger) *LogEmailService {
	return &LogEmailService{logger: logger}
}

func (s *LogEmailService) SendMagicLink(ctx context.Context, to, link string, expiresAt time.Time) error {
	msg, err := magicLinkEmail(to, link, expiresAt, time.Now())
	if err != nil {
		return err
	}
	// The link is the credential; development logs show it so it can be clicked.
	s.logger.Debug("magic link", "link", link)
	return s.SendEmail(ctx, msg)
}

func (s *LogEmailService) SendPaymentReceipt(ctx context.Context, to string, data ReceiptData) error {
	msg, err := receiptEmail(to, data)
	if err != nil {
		return err
	}
	return s.SendEmail(ctx, msg)
}

func (s *LogEmailService) SendEmail(_ context.Context, email *Email) error {
	s.mu.Lock()
	s.sent = append(s.sent, *email)
	s.mu.Unlock()

	metrics.NotificationSent("email", nil)
	s.logger.Info("email logged", "subject", email.Subject)
	return nil
}

// Sent returns a copy of every message sent so far.
func (s *LogEmailService) Sent() []Email {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Email(nil), s.sent...)
}

// Last returns the most recent message, if any.
func (s *LogEmailService) Last() (Email, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		return Email{}, false
	}
	return s.sent[len(s.sent)-1], true
}

var _ EmailService = (*LogEmailService)(nil)
