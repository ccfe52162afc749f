package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/DukeRupert/plumbline/internal/repository"
	"github.com/google/uuid"
)

// Job type constants - these must match the JobHandler.Type() values
const (
	JobTypeSendPaymentReceipt = "send_payment_receipt"
	JobTypePurgeExpired       = "purge_expired_records"
)

// Priority constants for job scheduling
const (
	PriorityLow    = 0
	PriorityNormal = 10
	PriorityHigh   = 20
)

// SendPaymentReceiptPayload is the payload for receipt email jobs.
type SendPaymentReceiptPayload struct {
	PaymentID uuid.UUID `json:"payment_id"`
}

// PurgeExpiredPayload is the payload for the periodic cleanup job.
type PurgeExpiredPayload struct {
	RequestedBy string `json:"requested_by,omitempty"` // "schedule" or an admin id
}

// Enqueuer is the part of repository.Queries that inserts jobs.
type Enqueuer interface {
	EnqueueJob(ctx context.Context, arg repository.EnqueueJobParams) (repository.Job, error)
}

// EnqueueOption is a functional option for customizing job enqueue parameters.
type EnqueueOption func(*repository.EnqueueJobParams)

// WithPriority sets the job priority.
func WithPriority(priority int32) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.Priority = priority
	}
}

// WithMaxAttempts sets the maximum number of retry attempts.
func WithMaxAttempts(attempts int32) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.MaxAttempts = attempts
	}
}

// WithDelay schedules the job to run after a delay.
func WithDelay(delay time.Duration) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.ScheduledAt = time.Now().Add(delay)
	}
}

// EnqueueJob marshals payload and inserts a pending job.
func EnqueueJob(ctx context.Context, queries Enqueuer, jobType string, payload any, opts ...EnqueueOption) (repository.Job, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return repository.Job{}, fmt.Errorf("marshal payload: %w", err)
	}

	params := repository.EnqueueJobParams{
		JobType:     jobType,
		Payload:     payloadJSON,
		Priority:    PriorityNormal,
		MaxAttempts: 3,
		ScheduledAt: time.Now(),
	}
	for _, opt := range opts {
		opt(&params)
	}

	job, err := queries.EnqueueJob(ctx, params)
	if err != nil {
		return repository.Job{}, fmt.Errorf("enqueue job: %w", err)
	}
	return job, nil
}

// EnqueueSendPaymentReceipt queues the receipt email for a recorded payment.
func EnqueueSendPaymentReceipt(ctx context.Context, queries Enqueuer, paymentID uuid.UUID, opts ...EnqueueOption) (repository.Job, error) {
	opts = append([]EnqueueOption{WithPriority(PriorityHigh), WithMaxAttempts(5)}, opts...)
	return EnqueueJob(ctx, queries, JobTypeSendPaymentReceipt, SendPaymentReceiptPayload{PaymentID: paymentID}, opts...)
}

// EnqueuePurgeExpired queues a cleanup of expired challenges and admin sessions.
func EnqueuePurgeExpired(ctx context.Context, queries Enqueuer, requestedBy string, opts ...EnqueueOption) (repository.Job, error) {
	opts = append([]EnqueueOption{WithPriority(PriorityLow), WithMaxAttempts(1)}, opts...)
	return EnqueueJob(ctx, queries, JobTypePurgeExpired, PurgeExpiredPayload{RequestedBy: requestedBy}, opts...)
}
