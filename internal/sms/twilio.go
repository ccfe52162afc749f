package sms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/DukeRupert/plumbline/internal/contact"
	"github.com/DukeRupert/plumbline/internal/metrics"
)

// DefaultTwilioBaseURL is the Twilio REST API root.
const DefaultTwilioBaseURL = "https://api.twilio.com"

// TwilioConfig holds Twilio account settings.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string // E.164, e.g. +15125550199
	BaseURL    string
	Timeout    time.Duration
}

// TwilioSender sends texts through the Twilio Messages API.
type TwilioSender struct {
	config     TwilioConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewTwilioSender validates config and returns a sender.
func NewTwilioSender(config TwilioConfig, logger *slog.Logger) (*TwilioSender, error) {
	if config.AccountSID == "" || config.AuthToken == "" {
		return nil, errors.New("twilio account sid and auth token are required")
	}
	if config.FromNumber == "" {
		return nil, errors.New("twilio from number is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultTwilioBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}

	return &TwilioSender{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}, nil
}

type twilioError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
}

// SendSMS posts one message. to is a normalized 10-digit number.
func (s *TwilioSender) SendSMS(ctx context.Context, to, message string) error {
	err := s.send(ctx, to, message)
	metrics.NotificationSent("sms", err)
	if err != nil {
		s.logger.Error("failed to send sms", "to", contact.MaskPhone(to), "error", err)
		return err
	}
	s.logger.Info("sms sent", "to", contact.MaskPhone(to))
	return nil
}

func (s *TwilioSender) send(ctx context.Context, to, message string) error {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json",
		strings.TrimSuffix(s.config.BaseURL, "/"), url.PathEscape(s.config.AccountSID))

	form := url.Values{
		"To":   {e164(to)},
		"From": {s.config.FromNumber},
		"Body": {message},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create sms request: %w", err)
	}
	req.SetBasicAuth(s.config.AccountSID, s.config.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send sms request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	var apiErr twilioError
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
		return fmt.Errorf("twilio: status %d: code %d: %s", resp.StatusCode, apiErr.Code, apiErr.Message)
	}
	return fmt.Errorf("twilio: status %d", resp.StatusCode)
}

// e164 formats a 10-digit US number as +1XXXXXXXXXX.
func e164(phone string) string {
	if strings.HasPrefix(phone, "+") {
		return phone
	}
	return "+1" + phone
}

var _ Sender = (*TwilioSender)(nil)
