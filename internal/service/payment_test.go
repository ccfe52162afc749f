package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/DukeRupert/plumbline/internal/domain"
	"github.com/DukeRupert/plumbline/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePaymentQueries struct {
	mu        sync.Mutex
	rows      []repository.InvoicePayment
	lastLimit int32
}

func (f *fakePaymentQueries) CreateInvoicePayment(_ context.Context, arg repository.CreateInvoicePaymentParams) (repository.InvoicePayment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.StripeEventID == arg.StripeEventID {
			return repository.InvoicePayment{}, sql.ErrNoRows
		}
	}
	row := repository.InvoicePayment{
		ID:                uuid.New(),
		StripeEventID:     arg.StripeEventID,
		CheckoutSessionID: arg.CheckoutSessionID,
		InvoiceID:         arg.InvoiceID,
		CustomerID:        arg.CustomerID,
		AmountCents:       arg.AmountCents,
		Currency:          arg.Currency,
		ReceiptEmail:      arg.ReceiptEmail,
		PaidAt:            arg.PaidAt,
	}
	f.rows = append(f.rows, row)
	return row, nil
}

func (f *fakePaymentQueries) GetInvoicePayment(_ context.Context, id uuid.UUID) (repository.InvoicePayment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.ID == id {
			return r, nil
		}
	}
	return repository.InvoicePayment{}, sql.ErrNoRows
}

func (f *fakePaymentQueries) ListInvoicePayments(_ context.Context, arg repository.ListInvoicePaymentsParams) ([]repository.InvoicePayment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLimit = arg.Limit
	return append([]repository.InvoicePayment(nil), f.rows...), nil
}

func TestPaymentService_RecordOncePerEvent(t *testing.T) {
	q := &fakePaymentQueries{}
	svc := NewPaymentService(q, testLogger())
	ctx := context.Background()

	params := domain.RecordPaymentParams{
		StripeEventID:     "evt_1",
		CheckoutSessionID: "cs_test_1",
		InvoiceID:         4521,
		CustomerID:        777,
		AmountCents:       12550,
		Currency:          "USD",
		ReceiptEmail:      "dana@example.com",
		PaidAt:            time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}

	p, created, err := svc.Record(ctx, params)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "usd", p.Currency)

	again, created, err := svc.Record(ctx, params)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Nil(t, again)
	assert.Len(t, q.rows, 1)

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4521), got.InvoiceID)

	_, err = svc.Get(ctx, uuid.New())
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func TestPaymentService_RecordValidation(t *testing.T) {
	svc := NewPaymentService(&fakePaymentQueries{}, testLogger())

	_, _, err := svc.Record(context.Background(), domain.RecordPaymentParams{InvoiceID: 1, CustomerID: 1})
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))

	_, _, err = svc.Record(context.Background(), domain.RecordPaymentParams{StripeEventID: "evt_2"})
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}

func TestPaymentService_ListClampsPageSize(t *testing.T) {
	q := &fakePaymentQueries{}
	svc := NewPaymentService(q, testLogger())

	_, err := svc.List(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int32(defaultPaymentPageSize), q.lastLimit)

	_, err = svc.List(context.Background(), 10_000, -5)
	require.NoError(t, err)
	assert.Equal(t, int32(maxPaymentPageSize), q.lastLimit)
}
