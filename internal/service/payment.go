package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/DukeRupert/plumbline/internal/domain"
	"github.com/DukeRupert/plumbline/internal/repository"
	"github.com/google/uuid"
)

// PaymentService records invoice payments confirmed by Stripe.
type PaymentService interface {
	// Record stores a payment once per Stripe event. created is false when
	// the event was already recorded, which happens on webhook redelivery.
	Record(ctx context.Context, params domain.RecordPaymentParams) (payment *domain.InvoicePayment, created bool, err error)

	// Get returns a recorded payment.
	// Returns domain.ENOTFOUND if it does not exist.
	Get(ctx context.Context, id uuid.UUID) (*domain.InvoicePayment, error)

	// List returns payments newest first.
	List(ctx context.Context, limit, offset int) ([]domain.InvoicePayment, error)
}

// PaymentQueries is the subset of repository.Queries the payment service needs.
type PaymentQueries interface {
	CreateInvoicePayment(ctx context.Context, arg repository.CreateInvoicePaymentParams) (repository.InvoicePayment, error)
	GetInvoicePayment(ctx context.Context, id uuid.UUID) (repository.InvoicePayment, error)
	ListInvoicePayments(ctx context.Context, arg repository.ListInvoicePaymentsParams) ([]repository.InvoicePayment, error)
}

const (
	defaultPaymentPageSize = 50
	maxPaymentPageSize     = 200
)

type paymentService struct {
	queries PaymentQueries
	logger  *slog.Logger
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(queries PaymentQueries, logger *slog.Logger) PaymentService {
	return &paymentService{queries: queries, logger: logger}
}

func (s *paymentService) Record(ctx context.Context, params domain.RecordPaymentParams) (*domain.InvoicePayment, bool, error) {
	const op = "PaymentService.Record"

	if params.StripeEventID == "" {
		return nil, false, domain.NewValidationError(op, "stripeEventId", "Stripe event id is required")
	}
	if params.InvoiceID <= 0 || params.CustomerID <= 0 {
		return nil, false, domain.Invalid(op, "Payment is missing its invoice or customer")
	}

	row, err := s.queries.CreateInvoicePayment(ctx, repository.CreateInvoicePaymentParams{
		StripeEventID:     params.StripeEventID,
		CheckoutSessionID: params.CheckoutSessionID,
		InvoiceID:         params.InvoiceID,
		CustomerID:        params.CustomerID,
		AmountCents:       params.AmountCents,
		Currency:          strings.ToLower(params.Currency),
		ReceiptEmail:      nullString(params.ReceiptEmail),
		PaidAt:            params.PaidAt,
	})
	// ON CONFLICT DO NOTHING returns no row for a duplicate event.
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.Info("payment already recorded", "stripe_event_id", params.StripeEventID)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, domain.Internal(err, op, "failed to record payment")
	}

	s.logger.Info("invoice payment recorded",
		"payment_id", row.ID,
		"invoice_id", row.InvoiceID,
		"customer_id", row.CustomerID,
		"amount_cents", row.AmountCents,
	)
	return paymentToDomain(row), true, nil
}

func (s *paymentService) Get(ctx context.Context, id uuid.UUID) (*domain.InvoicePayment, error) {
	const op = "PaymentService.Get"

	row, err := s.queries.GetInvoicePayment(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound(op, "payment", id.String())
	}
	if err != nil {
		return nil, domain.Internal(err, op, "failed to fetch payment")
	}
	return paymentToDomain(row), nil
}

func (s *paymentService) List(ctx context.Context, limit, offset int) ([]domain.InvoicePayment, error) {
	const op = "PaymentService.List"

	if limit <= 0 {
		limit = defaultPaymentPageSize
	}
	limit = min(limit, maxPaymentPageSize)
	offset = max(offset, 0)

	rows, err := s.queries.ListInvoicePayments(ctx, repository.ListInvoicePaymentsParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list payments")
	}

	payments := make([]domain.InvoicePayment, len(rows))
	for i, row := range rows {
		payments[i] = *paymentToDomain(row)
	}
	return payments, nil
}

func paymentToDomain(p repository.InvoicePayment) *domain.InvoicePayment {
	return &domain.InvoicePayment{
		ID:                p.ID,
		StripeEventID:     p.StripeEventID,
		CheckoutSessionID: p.CheckoutSessionID,
		InvoiceID:         p.InvoiceID,
		CustomerID:        p.CustomerID,
		AmountCents:       p.AmountCents,
		Currency:          p.Currency,
		ReceiptEmail:      p.ReceiptEmail.String,
		PaidAt:            p.PaidAt,
	}
}
