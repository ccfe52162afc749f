package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"

	"github.com/DukeRupert/plumbline/internal/billing"
	"github.com/DukeRupert/plumbline/internal/domain"
	"github.com/DukeRupert/plumbline/internal/worker"
)

type fakeBilling struct {
	event stripe.Event
	err   error
}

func (f *fakeBilling) CreateInvoiceCheckout(context.Context, billing.InvoiceCheckoutParams) (*domain.CheckoutResult, error) {
	return nil, errors.New("not used")
}

func (f *fakeBilling) VerifyWebhookSignature([]byte, string) (stripe.Event, error) {
	return f.event, f.err
}

func checkoutEvent(t *testing.T, id, paymentStatus string) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"id":             "cs_test_" + id,
		"payment_status": paymentStatus,
		"amount_total":   12550,
		"currency":       "usd",
		"metadata":       map[string]string{"invoice_id": "4521", "customer_id": "777"},
		"customer_details": map[string]string{
			"email": "dana@example.com",
		},
	})
	require.NoError(t, err)
	return stripe.Event{
		ID:      id,
		Type:    billing.EventCheckoutCompleted,
		Created: 1760000000,
		Data:    &stripe.EventData{Raw: raw},
	}
}

func postWebhook(h *WebhookHandler) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(`{}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	rec := httptest.NewRecorder()
	h.HandleStripeWebhook(rec, req)
	return rec
}

func TestWebhook_RecordsPaymentOnce(t *testing.T) {
	fb := &fakeBilling{event: checkoutEvent(t, "evt_1", "paid")}
	payments := newStubPayments()
	jobs := &stubEnqueuer{}
	h := NewWebhookHandler(fb, payments, jobs, testLogger())

	assert.Equal(t, http.StatusOK, postWebhook(h).Code)
	require.Len(t, payments.recorded, 1)
	p := payments.recorded["evt_1"]
	assert.Equal(t, int64(4521), p.InvoiceID)
	assert.Equal(t, int64(777), p.CustomerID)
	assert.Equal(t, int64(12550), p.AmountCents)
	assert.Equal(t, "dana@example.com", p.ReceiptEmail)

	require.Len(t, jobs.jobs, 1)
	assert.Equal(t, worker.JobTypeSendPaymentReceipt, jobs.jobs[0].JobType)
	var payload worker.SendPaymentReceiptPayload
	require.NoError(t, json.Unmarshal(jobs.jobs[0].Payload, &payload))
	assert.Equal(t, p.ID, payload.PaymentID)

	// Redelivery is acknowledged without a second receipt.
	assert.Equal(t, http.StatusOK, postWebhook(h).Code)
	assert.Len(t, payments.recorded, 1)
	assert.Len(t, jobs.jobs, 1)
}

func TestWebhook_Responses(t *testing.T) {
	tests := []struct {
		name        string
		billing     *fakeBilling
		recordErr   error
		wantStatus  int
		wantRecords int
	}{
		{
			name:       "bad signature",
			billing:    &fakeBilling{err: errors.New("signature mismatch")},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unpaid checkout",
			billing:    &fakeBilling{event: checkoutEvent(t, "evt_2", "unpaid")},
			wantStatus: http.StatusOK,
		},
		{
			name:       "unhandled event type",
			billing:    &fakeBilling{event: stripe.Event{ID: "evt_3", Type: "customer.created"}},
			wantStatus: http.StatusOK,
		},
		{
			name:       "storage failure asks for redelivery",
			billing:    &fakeBilling{event: checkoutEvent(t, "evt_4", "paid")},
			recordErr:  errors.New("connection refused"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payments := newStubPayments()
			payments.err = tt.recordErr
			jobs := &stubEnqueuer{}
			h := NewWebhookHandler(tt.billing, payments, jobs, testLogger())

			assert.Equal(t, tt.wantStatus, postWebhook(h).Code)
			assert.Len(t, payments.recorded, tt.wantRecords)
			assert.Empty(t, jobs.jobs)
		})
	}
}

func TestWebhook_BillingNotConfigured(t *testing.T) {
	h := NewWebhookHandler(nil, newStubPayments(), &stubEnqueuer{}, testLogger())
	assert.Equal(t, http.StatusOK, postWebhook(h).Code)
}

func TestWebhook_EnqueueFailureStillAcknowledged(t *testing.T) {
	payments := newStubPayments()
	jobs := &stubEnqueuer{err: errors.New("queue down")}
	h := NewWebhookHandler(&fakeBilling{event: checkoutEvent(t, "evt_5", "paid")}, payments, jobs, testLogger())

	assert.Equal(t, http.StatusOK, postWebhook(h).Code)
	assert.Len(t, payments.recorded, 1)
}
