package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain error", errors.New("boom"), EINTERNAL},
		{"domain error", Forbidden("op", "no"), EFORBIDDEN},
		{"wrapped domain error", fmt.Errorf("ctx: %w", Expired("op")), EEXPIRED},
		{"validation error", NewValidationError("op", "phone", "bad"), EINVALID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCode(tt.err))
		})
	}
}

func TestErrorMessage_HidesInternalDetails(t *testing.T) {
	err := Internal(errors.New("pq: connection refused"), "op", "failed to query")
	assert.NotContains(t, ErrorMessage(err), "pq")
	assert.NotContains(t, ErrorMessage(err), "failed to query")
}

func TestMismatch_CarriesRemainingAttempts(t *testing.T) {
	err := Mismatch("op", 3)
	assert.Equal(t, EMISMATCH, err.Code)
	assert.Equal(t, 3, ErrorDetails(err)["remainingAttempts"])
	assert.Contains(t, err.Message, "3 attempt")
}

func TestUpstream_TraceID(t *testing.T) {
	withTrace := Upstream(errors.New("503"), "op", "CRM", "abc-123")
	assert.Equal(t, "abc-123", withTrace.Details["traceId"])

	withoutTrace := Upstream(errors.New("503"), "op", "CRM", "")
	assert.Nil(t, withoutTrace.Details)
	assert.True(t, errors.Is(withoutTrace, withoutTrace.Err))
}

func TestSchedulerSession_AuthorizedCustomerIDs(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	active := int64(123)

	s := &SchedulerSession{
		CustomerID:           &active,
		AvailableCustomerIDs: []int64{123, 456},
		ScopeExpiresAt:       now.Add(time.Hour),
	}
	assert.Equal(t, []int64{123, 456}, s.AuthorizedCustomerIDs(now))

	// Scope lapsed: only the active customer remains.
	assert.Equal(t, []int64{123}, s.AuthorizedCustomerIDs(now.Add(2*time.Hour)))

	empty := &SchedulerSession{}
	assert.Empty(t, empty.AuthorizedCustomerIDs(now))
}

func TestVerificationChallenge_RemainingAttempts(t *testing.T) {
	c := &VerificationChallenge{Attempts: 2}
	assert.Equal(t, 3, c.RemainingAttempts())
	assert.False(t, c.IsExhausted())

	c.Attempts = MaxVerificationAttempts
	assert.Equal(t, 0, c.RemainingAttempts())
	assert.True(t, c.IsExhausted())
}

func TestAddFieldError(t *testing.T) {
	err := AddFieldError(nil, "Op", "start", "is required")
	assert.Equal(t, "Op", err.Op)
	assert.Equal(t, map[string]string{"start": "is required"}, err.Fields)

	same := AddFieldError(err, "Other", "end", "is required")
	assert.Same(t, err, same)
	assert.Equal(t, "Op", same.Op)
	assert.Equal(t, map[string]string{"start": "is required", "end": "is required"}, same.Fields)

	fresh := AddFieldError(errors.New("boom"), "Op", "end", "is required")
	assert.Equal(t, EINVALID, ErrorCode(fresh))
	assert.Len(t, fresh.Fields, 1)
}

func TestWrap(t *testing.T) {
	cause := errors.New("bucket unreachable")
	err := Wrap(cause, EUPSTREAM, "PhotoService.Upload", "Photo storage is temporarily unavailable.")

	assert.Equal(t, EUPSTREAM, ErrorCode(err))
	assert.Equal(t, "Photo storage is temporarily unavailable.", ErrorMessage(err))
	assert.Equal(t, "PhotoService.Upload", ErrorOp(err))
	assert.True(t, errors.Is(err, cause))
}
