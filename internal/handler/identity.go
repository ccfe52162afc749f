package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/DukeRupert/plumbline/internal/contact"
	"github.com/DukeRupert/plumbline/internal/domain"
	"github.com/DukeRupert/plumbline/internal/email"
	"github.com/DukeRupert/plumbline/internal/service"
	"github.com/DukeRupert/plumbline/internal/session"
	"github.com/DukeRupert/plumbline/internal/sms"
)

// IdentityConfig holds the settings shared by the portal and scheduler
// verification flows.
type IdentityConfig struct {
	CompanyName string // Shown in verification texts
	BaseURL     string // Public origin used to build magic links
	IsSecure    bool   // Secure flag on session cookies
}

// Identity runs the challenge → verify → mint flow. Portal and scheduler
// handlers differ only in how they pick the customer ids a challenge unlocks.
type Identity struct {
	verification service.VerificationService
	resolver     service.ResolverService
	sessions     *session.Manager
	sms          sms.Sender
	email        email.EmailService
	cfg          IdentityConfig
	logger       *slog.Logger
}

// NewIdentity creates the shared verification flow.
func NewIdentity(
	verification service.VerificationService,
	resolver service.ResolverService,
	sessions *session.Manager,
	smsSender sms.Sender,
	emailService email.EmailService,
	cfg IdentityConfig,
	logger *slog.Logger,
) *Identity {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Identity{
		verification: verification,
		resolver:     resolver,
		sessions:     sessions,
		sms:          smsSender,
		email:        emailService,
		cfg:          cfg,
		logger:       logger,
	}
}

// =============================================================================
// Request / Response Types
// =============================================================================

// challengeResponse is returned after a code or link has been dispatched.
type challengeResponse struct {
	MaskedContact    string                  `json:"maskedContact"`
	VerificationType domain.VerificationType `json:"verificationType"`
	ExpiresAt        time.Time               `json:"expiresAt"`
}

// verifyCodeRequest is the body of both verify-code endpoints.
type verifyCodeRequest struct {
	ContactValue string `json:"contactValue"`
	Code         string `json:"code"`
	LookupType   string `json:"lookupType"`
}

// verifiedResponse is returned once a session has been minted.
type verifiedResponse struct {
	Token      string                  `json:"token"`
	ExpiresAt  time.Time               `json:"expiresAt"`
	CustomerID int64                   `json:"customerId"`
	Customers  []domain.AccountSummary `json:"customers"`
}

// =============================================================================
// Flow
// =============================================================================

// issue creates a challenge for the contact and dispatches it.
func (f *Identity) issue(ctx context.Context, r *http.Request, kind domain.ContactKind, value string, customerIDs []int64) (*challengeResponse, error) {
	const op = "Identity.issue"

	issued, err := f.verification.CreateChallenge(ctx, domain.CreateChallengeParams{
		CustomerIDs:  customerIDs,
		ContactValue: value,
		Type:         kind.VerificationType(),
		RequestedIP:  ClientIP(r),
	})
	if err != nil {
		return nil, err
	}

	switch issued.Type {
	case domain.VerificationTypeSMS:
		minutes := int(domain.SMSCodeDuration / time.Minute)
		if err := f.sms.SendSMS(ctx, issued.ContactValue, sms.CodeMessage(f.cfg.CompanyName, issued.Code, minutes)); err != nil {
			return nil, domain.Upstream(err, op, "text message", "")
		}
	case domain.VerificationTypeEmail:
		if err := f.email.SendMagicLink(ctx, issued.ContactValue, f.magicLink(issued.ContactValue, issued.Code), issued.ExpiresAt); err != nil {
			return nil, domain.Upstream(err, op, "email", "")
		}
	}

	f.logger.InfoContext(ctx, "verification dispatched",
		"type", issued.Type,
		"contact", contact.Mask(kind, issued.ContactValue),
		"customers", len(customerIDs),
	)

	return &challengeResponse{
		MaskedContact:    contact.Mask(kind, issued.ContactValue),
		VerificationType: issued.Type,
		ExpiresAt:        issued.ExpiresAt,
	}, nil
}

// magicLink builds the emailed sign-in URL.
func (f *Identity) magicLink(emailAddr, token string) string {
	q := url.Values{}
	q.Set("email", emailAddr)
	q.Set("token", token)
	return f.cfg.BaseURL + "/portal/verify?" + q.Encode()
}

// complete checks the code, mints a session for the first customer id and
// sets the session cookie.
func (f *Identity) complete(ctx context.Context, w http.ResponseWriter, kind domain.ContactKind, value, code string) (*verifiedResponse, error) {
	const op = "Identity.complete"

	result, err := f.verification.CheckChallenge(ctx, kind, value, code)
	if err != nil {
		return nil, err
	}
	if len(result.CustomerIDs) == 0 {
		return nil, domain.Internal(nil, op, "verified challenge carries no customers")
	}

	active := result.CustomerIDs[0]
	token, err := f.sessions.Mint(ctx, session.MintParams{
		Contact:              result.ContactValue,
		Method:               verificationMethod(kind),
		CustomerID:           &active,
		AvailableCustomerIDs: result.CustomerIDs,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to create session")
	}
	session.SetCookie(w, token.Value, token.ExpiresAt, f.cfg.IsSecure)

	customers, err := f.resolver.Summaries(ctx, result.CustomerIDs)
	if err != nil {
		// The session is valid; the account list can be fetched again later.
		f.logger.WarnContext(ctx, "failed to load account summaries", "error", err)
		customers = []domain.AccountSummary{}
	}

	return &verifiedResponse{
		Token:      token.Value,
		ExpiresAt:  token.ExpiresAt,
		CustomerID: active,
		Customers:  customers,
	}, nil
}

// VerifyCode handles POST verify-code for both the portal and the scheduler.
func (f *Identity) VerifyCode(w http.ResponseWriter, r *http.Request) {
	const op = "Identity.VerifyCode"

	var req verifyCodeRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, f.logger, err)
		return
	}

	kind, err := lookupKind(op, req.LookupType, req.ContactValue)
	if err != nil {
		ErrorResponse(w, r, f.logger, err)
		return
	}

	resp, err := f.complete(r.Context(), w, kind, req.ContactValue, req.Code)
	if err != nil {
		ErrorResponse(w, r, f.logger, err)
		return
	}
	respondJSON(w, resp)
}

// =============================================================================
// Helpers
// =============================================================================

// lookupKind parses lookupType, inferring it from the value when absent.
func lookupKind(op, lookupType, value string) (domain.ContactKind, error) {
	if lookupType == "" {
		if strings.Contains(value, "@") {
			return domain.ContactKindEmail, nil
		}
		return domain.ContactKindPhone, nil
	}
	kind, ok := domain.ParseContactKind(lookupType)
	if !ok {
		return "", domain.NewValidationError(op, "lookupType", "must be phone or email")
	}
	return kind, nil
}

func verificationMethod(kind domain.ContactKind) domain.VerificationMethod {
	if kind == domain.ContactKindEmail {
		return domain.VerificationMethodEmail
	}
	return domain.VerificationMethodPhone
}
