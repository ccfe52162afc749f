// Package email sends transactional email: portal magic links and payment
// receipts.
//
// Implementations:
// - SMTPEmailService: gomail over SMTP (Mailhog in development, any relay in production)
// - LogEmailService: writes messages to the log, for local development and tests
package email

import (
	"context"
	"time"
)

// =============================================================================
// Interface Definition
// =============================================================================

// EmailService defines the interface for sending transactional emails.
type EmailService interface {
	// SendMagicLink delivers a portal sign-in link that expires at expiresAt.
	SendMagicLink(ctx context.Context, to, link string, expiresAt time.Time) error

	// SendPaymentReceipt confirms a recorded invoice payment.
	SendPaymentReceipt(ctx context.Context, to string, data ReceiptData) error

	// SendEmail sends a prepared message.
	SendEmail(ctx context.Context, email *Email) error
}

// =============================================================================
// Email Data Types
// =============================================================================

// Email represents a single email message.
type Email struct {
	To       string // Recipient email address
	Subject  string // Email subject line
	HTMLBody string // HTML content of the email
	TextBody string // Plain text fallback content
}

// ReceiptData is rendered into the payment receipt.
type ReceiptData struct {
	InvoiceNumber string
	AmountCents   int64
	Currency      string
	PaidAt        time.Time
}

// SMTPConfig holds SMTP server configuration.
type SMTPConfig struct {
	Host     string // SMTP server hostname (e.g., "localhost" for Mailhog)
	Port     int    // SMTP server port (e.g., 1025 for Mailhog)
	Username string // Empty for Mailhog
	Password string
	From     string // Default sender email address
	FromName string // Default sender display name
}

const (
	// DefaultFromEmail is the default sender for transactional emails.
	DefaultFromEmail = "noreply@plumbline.example"

	// DefaultFromName is the default sender display name.
	DefaultFromName = "Plumbline Plumbing"
)
