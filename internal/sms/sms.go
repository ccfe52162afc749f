// Package sms delivers one-time verification codes by text message.
package sms

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/DukeRupert/plumbline/internal/contact"
	"github.com/DukeRupert/plumbline/internal/metrics"
)

// Sender delivers a text message to a normalized 10-digit US number.
type Sender interface {
	SendSMS(ctx context.Context, to, message string) error
}

// CodeMessage is the body of a verification text.
func CodeMessage(company, code string, minutes int) string {
	return fmt.Sprintf("%s: your verification code is %s. It expires in %d minutes.", company, code, minutes)
}

// Message is a text recorded by LogSender.
type Message struct {
	To   string
	Body string
}

// LogSender logs texts instead of sending them.
type LogSender struct {
	logger *slog.Logger

	mu   sync.Mutex
	sent []Message
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendSMS(_ context.Context, to, message string) error {
	s.mu.Lock()
	s.sent = append(s.sent, Message{To: to, Body: message})
	s.mu.Unlock()

	metrics.NotificationSent("sms", nil)
	s.logger.Debug("sms logged", "to", contact.MaskPhone(to), "body", message)
	return nil
}

// Sent returns a copy of every text sent so far.
func (s *LogSender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.sent...)
}

var _ Sender = (*LogSender)(nil)
