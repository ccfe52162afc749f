// Package billing takes card payments for CRM invoices through Stripe Checkout.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/stripe/stripe-go/v79"
	checkoutsession "github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/DukeRupert/plumbline/internal/domain"
)

// EventCheckoutCompleted is the only webhook event that records a payment.
const EventCheckoutCompleted = "checkout.session.completed"

// Metadata keys stamped on checkout sessions.
const (
	metaInvoiceID  = "invoice_id"
	metaCustomerID = "customer_id"
)

// ErrNotPaid is returned for a completed checkout whose payment is still
// pending (delayed payment methods).
var ErrNotPaid = errors.New("checkout session is not paid")

// Service defines the interface for payment operations.
type Service interface {
	// CreateInvoiceCheckout creates a hosted Checkout page for the invoice balance.
	CreateInvoiceCheckout(ctx context.Context, params InvoiceCheckoutParams) (*domain.CheckoutResult, error)

	// VerifyWebhookSignature verifies the Stripe webhook signature and returns the event.
	VerifyWebhookSignature(payload []byte, signature string) (stripe.Event, error)
}

// InvoiceCheckoutParams describes one invoice payment.
type InvoiceCheckoutParams struct {
	InvoiceID     int64
	InvoiceNumber string
	CustomerID    int64
	AmountCents   int64
	Currency      string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

// stripeService is the concrete implementation of Service.
type stripeService struct {
	webhookSecret string
}

// NewStripeService creates a new Stripe payment service.
//
// The secretKey is used to authenticate Stripe API calls.
// The webhookSecret is used to verify incoming webhook signatures.
func NewStripeService(secretKey, webhookSecret string) Service {
	stripe.Key = secretKey
	return &stripeService{webhookSecret: webhookSecret}
}

func (s *stripeService) CreateInvoiceCheckout(ctx context.Context, p InvoiceCheckoutParams) (*domain.CheckoutResult, error) {
	if p.AmountCents <= 0 {
		return nil, errors.New("checkout amount must be positive")
	}
	currency := p.Currency
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	meta := map[string]string{
		metaInvoiceID:  strconv.FormatInt(p.InvoiceID, 10),
		metaCustomerID: strconv.FormatInt(p.CustomerID, 10),
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(currency),
					UnitAmount: stripe.Int64(p.AmountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Invoice " + p.InvoiceNumber),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		ClientReferenceID: stripe.String(meta[metaInvoiceID]),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: meta,
		},
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
	}
	if p.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(p.CustomerEmail)
	}
	for k, v := range meta {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	sess, err := checkoutsession.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create checkout session: %w", err)
	}
	return &domain.CheckoutResult{SessionID: sess.ID, URL: sess.URL}, nil
}

func (s *stripeService) VerifyWebhookSignature(payload []byte, signature string) (stripe.Event, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("stripe webhook signature verification failed: %w", err)
	}
	return event, nil
}

// CheckoutPayment extracts the payment recorded by a checkout.session.completed event.
func CheckoutPayment(event stripe.Event) (*domain.RecordPaymentParams, error) {
	if event.Data == nil {
		return nil, errors.New("event has no data")
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("parse checkout session: %w", err)
	}
	if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return nil, ErrNotPaid
	}

	invoiceID, err := strconv.ParseInt(sess.Metadata[metaInvoiceID], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("checkout session %s: invalid invoice_id metadata", sess.ID)
	}
	customerID, err := strconv.ParseInt(sess.Metadata[metaCustomerID], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("checkout session %s: invalid customer_id metadata", sess.ID)
	}

	email := sess.CustomerEmail
	if sess.CustomerDetails != nil && sess.CustomerDetails.Email != "" {
		email = sess.CustomerDetails.Email
	}

	return &domain.RecordPaymentParams{
		StripeEventID:     event.ID,
		CheckoutSessionID: sess.ID,
		InvoiceID:         invoiceID,
		CustomerID:        customerID,
		AmountCents:       sess.AmountTotal,
		Currency:          string(sess.Currency),
		ReceiptEmail:      email,
		PaidAt:            time.Unix(event.Created, 0).UTC(),
	}, nil
}
