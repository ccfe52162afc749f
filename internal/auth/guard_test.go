package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/plumbline/internal/domain"
)

func testGuard(now time.Time) *Guard {
	return NewGuard(slog.New(slog.NewTextHandler(io.Discard, nil)), func() time.Time { return now })
}

func ptr(v int64) *int64 { return &v }

// =============================================================================
// AssertOwnership
// =============================================================================

func TestAssertOwnership(t *testing.T) {
	g := testGuard(time.Now())
	ctx := context.Background()

	tests := []struct {
		name       string
		owner      int64
		authorized []int64
		wantErr    bool
	}{
		{name: "owner in set", owner: 777, authorized: []int64{777}, wantErr: false},
		{name: "owner second in set", owner: 779, authorized: []int64{777, 779}, wantErr: false},
		{name: "owner outside set", owner: 888, authorized: []int64{777, 779}, wantErr: true},
		{name: "empty set", owner: 777, authorized: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.AssertOwnership(ctx, "test", "invoice", tt.owner, tt.authorized)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, domain.EFORBIDDEN, domain.ErrorCode(err))
			assert.Equal(t, ForbiddenMessage, domain.ErrorMessage(err))
		})
	}
}

// A client claiming customerId 999 while holding a session for [123] is
// judged on the fetched entity's owner only.
func TestAssertOwnership_IgnoresClientDeclaredID(t *testing.T) {
	now := time.Now()
	g := testGuard(now)
	s := &domain.SchedulerSession{
		ID:                   "sid",
		CustomerID:           ptr(123),
		ExpiresAt:            now.Add(time.Minute),
		AvailableCustomerIDs: []int64{123},
		ScopeExpiresAt:       now.Add(time.Hour),
	}
	ctx := SetSession(context.Background(), s, "sid:sig")

	grant, err := g.RequireSession(ctx)
	require.NoError(t, err)

	assert.False(t, grant.Allows(999))

	// The entity fetched from the CRM is owned by 999.
	err = g.AssertOwnership(ctx, "InvoiceHandler.Show", "invoice", 999, grant.AvailableCustomerIDs)
	assert.Equal(t, domain.EFORBIDDEN, domain.ErrorCode(err))
}

func TestDeny(t *testing.T) {
	err := testGuard(time.Now()).Deny(context.Background(), "op", "invoice")
	assert.Equal(t, domain.EFORBIDDEN, domain.ErrorCode(err))
	assert.Equal(t, ForbiddenMessage, domain.ErrorMessage(err))
}

// =============================================================================
// RequireSession
// =============================================================================

func TestRequireSession_NoSession(t *testing.T) {
	_, err := testGuard(time.Now()).RequireSession(context.Background())
	assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))
}

func TestRequireSession_ScopeFallback(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	s := &domain.SchedulerSession{
		ID:                   "sid",
		CustomerID:           ptr(777),
		ExpiresAt:            now.Add(10 * time.Minute),
		AvailableCustomerIDs: []int64{777, 779},
		ScopeExpiresAt:       now.Add(-time.Second),
	}
	ctx := SetSession(context.Background(), s, "sid:sig")

	grant, err := testGuard(now).RequireSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{777}, grant.AvailableCustomerIDs)
	assert.True(t, grant.Allows(777))
	assert.False(t, grant.Allows(779))

	grant, err = testGuard(now.Add(-time.Hour)).RequireSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{777, 779}, grant.AvailableCustomerIDs)
}

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, GetSession(ctx))
	assert.Empty(t, GetToken(ctx))
	assert.Nil(t, GetAdmin(ctx))

	s := &domain.SchedulerSession{ID: "abc"}
	ctx = SetSession(ctx, s, "abc:def")
	assert.Same(t, s, GetSession(ctx))
	assert.Equal(t, "abc:def", GetToken(ctx))

	u := &domain.AdminUser{Email: "office@example.com"}
	ctx = SetAdmin(ctx, u)
	assert.Same(t, u, GetAdmin(ctx))
}
