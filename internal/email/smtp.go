package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/DukeRupert/plumbline/internal/metrics"
)

// =============================================================================
// SMTP Email Service Implementation
// =============================================================================

// SMTPEmailService sends emails via SMTP using gomail.
type SMTPEmailService struct {
	config SMTPConfig
	dialer *gomail.Dialer
	logger *slog.Logger
}

// NewSMTPEmailService creates a new SMTP-based email service.
//
// Example usage:
//
//	emailService := email.NewSMTPEmailService(
//	    email.SMTPConfig{Host: "localhost", Port: 1025},
//	    logger,
//	)
func NewSMTPEmailService(config SMTPConfig, logger *slog.Logger) *SMTPEmailService {
	if config.From == "" {
		config.From = DefaultFromEmail
	}
	if config.FromName == "" {
		config.FromName = DefaultFromName
	}

	return &SMTPEmailService{
		config: config,
		dialer: gomail.NewDialer(config.Host, config.Port, config.Username, config.Password),
		logger: logger,
	}
}

// SendMagicLink sends a portal sign-in link.
func (s *SMTPEmailService) SendMagicLink(ctx context.Context, to, link string, expiresAt time.Time) error {
	msg, err := magicLinkEmail(to, link, expiresAt, time.Now())
	if err != nil {
		return err
	}
	return s.SendEmail(ctx, msg)
}

// SendPaymentReceipt sends a payment confirmation.
func (s *SMTPEmailService) SendPaymentReceipt(ctx context.Context, to string, data ReceiptData) error {
	msg, err := receiptEmail(to, data)
	if err != nil {
		return err
	}
	return s.SendEmail(ctx, msg)
}

// SendEmail delivers a message over SMTP.
func (s *SMTPEmailService) SendEmail(ctx context.Context, email *Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.config.From, s.config.FromName)
	m.SetHeader("To", email.To)
	m.SetHeader("Subject", email.Subject)
	if email.TextBody != "" {
		m.SetBody("text/plain", email.TextBody)
		if email.HTMLBody != "" {
			m.AddAlternative("text/html", email.HTMLBody)
		}
	} else {
		m.SetBody("text/html", email.HTMLBody)
	}

	err := s.dialer.DialAndSend(m)
	metrics.NotificationSent("email", err)
	if err != nil {
		s.logger.Error("failed to send email",
			"subject", email.Subject,
			"error", err,
		)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("email sent", "subject", email.Subject)
	return nil
}

var _ EmailService = (*SMTPEmailService)(nil)
