package handler

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/DukeRupert/plumbline/internal/domain"
	"github.com/DukeRupert/plumbline/internal/repository"
)

type stubEnqueuer struct {
	mu   sync.Mutex
	jobs []repository.EnqueueJobParams
	err  error
}

func (s *stubEnqueuer) EnqueueJob(_ context.Context, arg repository.EnqueueJobParams) (repository.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return repository.Job{}, s.err
	}
	s.jobs = append(s.jobs, arg)
	return repository.Job{ID: uuid.New(), JobType: arg.JobType, Payload: arg.Payload}, nil
}

type stubPayments struct {
	mu       sync.Mutex
	recorded map[string]domain.InvoicePayment
	err      error
	list     []domain.InvoicePayment
	limit    int
	offset   int
}

func newStubPayments() *stubPayments {
	return &stubPayments{recorded: make(map[string]domain.InvoicePayment)}
}

func (s *stubPayments) Record(_ context.Context, p domain.RecordPaymentParams) (*domain.InvoicePayment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, false, s.err
	}
	if existing, ok := s.recorded[p.StripeEventID]; ok {
		return &existing, false, nil
	}
	payment := domain.InvoicePayment{
		ID:                uuid.New(),
		StripeEventID:     p.StripeEventID,
		CheckoutSessionID: p.CheckoutSessionID,
		InvoiceID:         p.InvoiceID,
		CustomerID:        p.CustomerID,
		AmountCents:       p.AmountCents,
		Currency:          p.Currency,
		ReceiptEmail:      p.ReceiptEmail,
		PaidAt:            p.PaidAt,
	}
	s.recorded[p.StripeEventID] = payment
	return &payment, true, nil
}

func (s *stubPayments) Get(_ context.Context, id uuid.UUID) (*domain.InvoicePayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.recorded {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, domain.NotFound("stubPayments.Get", "Payment", id.String())
}

func (s *stubPayments) List(_ context.Context, limit, offset int) ([]domain.InvoicePayment, error) {
	s.limit, s.offset = limit, offset
	return s.list, nil
}
