// Package jobs holds the background job handlers run by the worker.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/DukeRupert/plumbline/internal/crm"
	"github.com/DukeRupert/plumbline/internal/domain"
	"github.com/DukeRupert/plumbline/internal/email"
	"github.com/DukeRupert/plumbline/internal/service"
	"github.com/DukeRupert/plumbline/internal/worker"
)

// SendPaymentReceiptHandler emails the receipt for a recorded invoice payment.
type SendPaymentReceiptHandler struct {
	payments service.PaymentService
	crm      crm.Client
	email    email.EmailService
	logger   *slog.Logger
}

// NewSendPaymentReceiptHandler creates a new handler for receipt jobs.
func NewSendPaymentReceiptHandler(payments service.PaymentService, crmClient crm.Client, emailService email.EmailService, logger *slog.Logger) *SendPaymentReceiptHandler {
	return &SendPaymentReceiptHandler{
		payments: payments,
		crm:      crmClient,
		email:    emailService,
		logger:   logger,
	}
}

func (h *SendPaymentReceiptHandler) Type() string {
	return worker.JobTypeSendPaymentReceipt
}

func (h *SendPaymentReceiptHandler) Handle(ctx context.Context, payload []byte) error {
	p, err := worker.DecodePayload[worker.SendPaymentReceiptPayload](payload)
	if err != nil {
		return err
	}

	payment, err := h.payments.Get(ctx, p.PaymentID)
	if err != nil {
		if domain.ErrorCode(err) == domain.ENOTFOUND {
			return worker.NewPermanentError(err)
		}
		return err
	}
	if payment.ReceiptEmail == "" {
		h.logger.Info("no receipt email on payment, skipping", "payment_id", payment.ID)
		return nil
	}

	// The CRM invoice number is what the customer recognizes. Fall back to
	// the id when the CRM cannot be reached; the receipt still goes out.
	number := strconv.FormatInt(payment.InvoiceID, 10)
	inv, err := h.crm.GetInvoice(ctx, payment.InvoiceID)
	switch {
	case err == nil && inv.Number != "":
		number = inv.Number
	case err != nil && !errors.Is(err, crm.ErrNotFound):
		h.logger.Warn("could not load invoice for receipt", "invoice_id", payment.InvoiceID, "error", err)
	}

	if err := h.email.SendPaymentReceipt(ctx, payment.ReceiptEmail, email.ReceiptData{
		InvoiceNumber: number,
		AmountCents:   payment.AmountCents,
		Currency:      payment.Currency,
		PaidAt:        payment.PaidAt,
	}); err != nil {
		return fmt.Errorf("send receipt: %w", err)
	}

	h.logger.Info("payment receipt sent", "payment_id", payment.ID, "invoice_id", payment.InvoiceID)
	return nil
}
