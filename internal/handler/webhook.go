// This file implements the Stripe webhook handler for invoice payments.
//
// Route:
//   - POST /webhooks/stripe -> HandleStripeWebhook
//
// This route is PUBLIC (no auth middleware) because Stripe calls it directly.
// Authentication is via the Stripe webhook signature verification.
package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/stripe/stripe-go/v79"

	"github.com/DukeRupert/plumbline/internal/billing"
	"github.com/DukeRupert/plumbline/internal/metrics"
	"github.com/DukeRupert/plumbline/internal/service"
	"github.com/DukeRupert/plumbline/internal/worker"
)

// maxWebhookBody is the largest webhook payload accepted (64KB).
const maxWebhookBody = 65536

// WebhookHandler handles incoming webhook events from Stripe.
type WebhookHandler struct {
	billing  billing.Service
	payments service.PaymentService
	jobs     worker.Enqueuer
	logger   *slog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
// billingService may be nil when Stripe is not configured.
func NewWebhookHandler(billingService billing.Service, payments service.PaymentService, jobs worker.Enqueuer, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		billing:  billingService,
		payments: payments,
		jobs:     jobs,
		logger:   logger,
	}
}

// RegisterRoutes registers webhook routes on the provided mux.
// These routes are PUBLIC — no auth middleware.
func (h *WebhookHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /webhooks/stripe", h.HandleStripeWebhook)
}

// HandleStripeWebhook processes incoming Stripe webhook events.
//
// Each checkout.session.completed event is recorded once by event id. A
// storage failure answers 500 so Stripe redelivers.
func (h *WebhookHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	if h.billing == nil {
		h.logger.Warn("stripe webhook received but billing is not configured")
		w.WriteHeader(http.StatusOK)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.logger.Error("failed to read webhook body", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	event, err := h.billing.VerifyWebhookSignature(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.logger.Warn("webhook signature verification failed", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	h.logger.Info("stripe webhook received", "type", event.Type, "id", event.ID)

	switch event.Type {
	case billing.EventCheckoutCompleted:
		if err := h.handleCheckoutCompleted(r, event); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	default:
		h.logger.Debug("unhandled webhook event type", "type", event.Type)
	}

	w.WriteHeader(http.StatusOK)
}

// handleCheckoutCompleted records the payment and queues its receipt.
// Only errors worth a redelivery are returned.
func (h *WebhookHandler) handleCheckoutCompleted(r *http.Request, event stripe.Event) error {
	ctx := r.Context()

	params, err := billing.CheckoutPayment(event)
	if errors.Is(err, billing.ErrNotPaid) {
		h.logger.Info("checkout completed without payment", "event_id", event.ID)
		return nil
	}
	if err != nil {
		h.logger.Error("unusable checkout event", "event_id", event.ID, "error", err)
		return nil
	}

	payment, created, err := h.payments.Record(ctx, *params)
	if err != nil {
		h.logger.Error("failed to record invoice payment", "event_id", event.ID, "error", err)
		return err
	}
	if !created {
		h.logger.Info("duplicate checkout event ignored", "event_id", event.ID)
		return nil
	}
	metrics.PaymentRecorded()

	if _, err := worker.EnqueueSendPaymentReceipt(ctx, h.jobs, payment.ID); err != nil {
		h.logger.Error("failed to queue payment receipt", "payment_id", payment.ID, "error", err)
	}

	h.logger.Info("invoice payment recorded",
		"payment_id", payment.ID,
		"invoice_id", payment.InvoiceID,
		"customer_id", payment.CustomerID,
		"amount_cents", payment.AmountCents,
	)
	return nil
}
