package domain

import (
	"time"

	"github.com/google/uuid"
)

// InvoicePayment records a completed Stripe checkout for a CRM invoice.
type InvoicePayment struct {
	ID                uuid.UUID `json:"id"`
	StripeEventID     string    `json:"stripeEventId"`
	CheckoutSessionID string    `json:"checkoutSessionId"`
	InvoiceID         int64     `json:"invoiceId"`
	CustomerID        int64     `json:"customerId"`
	AmountCents       int64     `json:"amountCents"`
	Currency          string    `json:"currency"`
	ReceiptEmail      string    `json:"receiptEmail,omitempty"`
	PaidAt            time.Time `json:"paidAt"`
}

// RecordPaymentParams contains the fields taken from a checkout webhook.
type RecordPaymentParams struct {
	StripeEventID     string
	CheckoutSessionID string
	InvoiceID         int64
	CustomerID        int64
	AmountCents       int64
	Currency          string
	ReceiptEmail      string
	PaidAt            time.Time
}

// CheckoutResult carries the hosted checkout URL for an invoice.
type CheckoutResult struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}
