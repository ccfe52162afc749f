package session

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/plumbline/internal/domain"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func newTestManager(t *testing.T) (*Manager, *MemoryStore, *testClock, time.Time) {
	t.Helper()
	t0 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	clock := &testClock{now: t0}
	store := NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m, err := NewManager(store, testSecret, logger, WithClock(clock.Now))
	require.NoError(t, err)
	return m, store, clock, t0
}

func int64Ptr(v int64) *int64 { return &v }

func mint(t *testing.T, m *Manager) *Token {
	t.Helper()
	tok, err := m.Mint(context.Background(), MintParams{
		Contact:              "5125550100",
		Method:               domain.VerificationMethodPhone,
		CustomerID:           int64Ptr(777),
		AvailableCustomerIDs: []int64{777, 779},
	})
	require.NoError(t, err)
	return tok
}

// =============================================================================
// Construction
// =============================================================================

func TestNewManager_RejectsShortSecret(t *testing.T) {
	_, err := NewManager(NewMemoryStore(), []byte("short"), slog.Default())
	assert.Error(t, err)

	_, err = NewManager(nil, testSecret, slog.Default())
	assert.Error(t, err)
}

// =============================================================================
// Mint / Validate
// =============================================================================

func TestMint(t *testing.T) {
	m, store, _, t0 := newTestManager(t)
	tok := mint(t, m)

	parts := strings.Split(tok.Value, ":")
	require.Len(t, parts, 2)
	assert.Len(t, parts[0], 64, "session id is 32 bytes hex")
	assert.Len(t, parts[1], 64, "signature is sha256 hex")
	assert.Equal(t, t0.Add(30*time.Minute), tok.ExpiresAt)
	assert.Equal(t, t0, tok.VerifiedAt)
	assert.Equal(t, int64(777), *tok.CustomerID)
	assert.Equal(t, 1, store.Len())

	s, err := store.Get(context.Background(), parts[0])
	require.NoError(t, err)
	assert.NotContains(t, s.VerifiedContactHash, "5125550100")
	assert.Equal(t, []int64{777, 779}, s.AvailableCustomerIDs)
	assert.Equal(t, t0.Add(domain.AccountScopeDuration), s.ScopeExpiresAt)
}

func TestMint_UniqueIDs(t *testing.T) {
	m, _, _, _ := newTestManager(t)
	a := mint(t, m)
	b := mint(t, m)
	assert.NotEqual(t, a.Value, b.Value)
}

func TestValidate_TamperResistance(t *testing.T) {
	m, _, _, _ := newTestManager(t)
	ctx := context.Background()
	tok := mint(t, m)

	s, err := m.Validate(ctx, tok.Value)
	require.NoError(t, err)
	require.NotNil(t, s)

	id, sig, _ := strings.Cut(tok.Value, ":")

	// Flip every position of the signature in turn.
	for i := range sig {
		b := []byte(sig)
		if b[i] == 'a' {
			b[i] = 'b'
		} else {
			b[i] = 'a'
		}
		s, err := m.Validate(ctx, id+":"+string(b))
		require.NoError(t, err)
		assert.Nil(t, s, "mutated signature at %d must not validate", i)
	}

	// Unknown session id with a valid-looking signature.
	other := strings.Repeat("f", len(id))
	s, err = m.Validate(ctx, other+":"+sig)
	require.NoError(t, err)
	assert.Nil(t, s)

	// The original token still works.
	s, err = m.Validate(ctx, tok.Value)
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestValidate_Malformed(t *testing.T) {
	m, _, _, _ := newTestManager(t)
	ctx := context.Background()

	tests := []string{
		"",
		"nocolon",
		":",
		"abc:",
		":abc",
		"a:b:c",
		"a:b:c:d",
	}
	for _, tok := range tests {
		t.Run(tok, func(t *testing.T) {
			s, err := m.Validate(ctx, tok)
			assert.NoError(t, err)
			assert.Nil(t, s)
		})
	}
}

func TestValidate_SecretMismatch(t *testing.T) {
	m, store, clock, _ := newTestManager(t)
	tok := mint(t, m)

	other, err := NewManager(store, []byte("ffffffffffffffffffffffffffffffff"), slog.Default(), WithClock(clock.Now))
	require.NoError(t, err)

	s, err := other.Validate(context.Background(), tok.Value)
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestValidate_TTL(t *testing.T) {
	m, store, clock, t0 := newTestManager(t)
	ctx := context.Background()
	tok := mint(t, m)

	clock.Set(t0.Add(29 * time.Minute))
	s, err := m.Validate(ctx, tok.Value)
	require.NoError(t, err)
	assert.NotNil(t, s)

	clock.Set(t0.Add(31 * time.Minute))
	s, err = m.Validate(ctx, tok.Value)
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.Equal(t, 0, store.Len(), "expired session is evicted")
}

// =============================================================================
// Refresh
// =============================================================================

func TestRefresh_ExtendsExpiry(t *testing.T) {
	m, _, clock, t0 := newTestManager(t)
	ctx := context.Background()
	tok := mint(t, m)

	clock.Set(t0.Add(20 * time.Minute))
	refreshed, err := m.Refresh(ctx, tok.Value)
	require.NoError(t, err)
	require.NotNil(t, refreshed)
	assert.Equal(t, t0.Add(50*time.Minute), refreshed.ExpiresAt)

	// The pre-refresh signature no longer matches the stored expiry.
	s, err := m.Validate(ctx, tok.Value)
	require.NoError(t, err)
	assert.Nil(t, s)

	clock.Set(t0.Add(40 * time.Minute))
	s, err = m.Validate(ctx, refreshed.Value)
	require.NoError(t, err)
	assert.NotNil(t, s, "valid past the original expiry")

	clock.Set(t0.Add(51 * time.Minute))
	s, err = m.Validate(ctx, refreshed.Value)
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestRefresh_Invalid(t *testing.T) {
	m, _, clock, t0 := newTestManager(t)
	tok := mint(t, m)

	clock.Set(t0.Add(time.Hour))
	refreshed, err := m.Refresh(context.Background(), tok.Value)
	assert.NoError(t, err)
	assert.Nil(t, refreshed)

	refreshed, err = m.Refresh(context.Background(), "garbage")
	assert.NoError(t, err)
	assert.Nil(t, refreshed)
}

// =============================================================================
// Invalidate
// =============================================================================

func TestInvalidate(t *testing.T) {
	m, store, _, _ := newTestManager(t)
	ctx := context.Background()
	tok := mint(t, m)

	ok, err := m.Invalidate(ctx, tok.Value)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, store.Len())

	s, err := m.Validate(ctx, tok.Value)
	require.NoError(t, err)
	assert.Nil(t, s)

	// Idempotent
	ok, err = m.Invalidate(ctx, tok.Value)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = m.Invalidate(ctx, "not-a-token")
	require.NoError(t, err)
	assert.False(t, ok)
}

// =============================================================================
// Account scope
// =============================================================================

func TestSwitchCustomer(t *testing.T) {
	m, _, _, _ := newTestManager(t)
	ctx := context.Background()
	tok := mint(t, m)

	s, err := m.SwitchCustomer(ctx, tok.Value, 779)
	require.NoError(t, err)
	assert.Equal(t, int64(779), *s.CustomerID)

	// Token is unchanged by a switch.
	s, err = m.Validate(ctx, tok.Value)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, int64(779), *s.CustomerID)

	_, err = m.SwitchCustomer(ctx, tok.Value, 888)
	assert.Equal(t, domain.EFORBIDDEN, domain.ErrorCode(err))

	_, err = m.SwitchCustomer(ctx, "bad", 777)
	assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))
}

func TestAccountScopeExpiresIndependently(t *testing.T) {
	m, _, clock, t0 := newTestManager(t)
	ctx := context.Background()
	tok := mint(t, m)

	// Keep the session alive past the scope lifetime.
	for at := 20 * time.Minute; at <= 2*time.Hour+20*time.Minute; at += 20 * time.Minute {
		clock.Set(t0.Add(at))
		tok, _ = m.Refresh(ctx, tok.Value)
		require.NotNil(t, tok)
	}

	s, err := m.Validate(ctx, tok.Value)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, []int64{777}, s.AuthorizedCustomerIDs(clock.Now()))

	_, err = m.SwitchCustomer(ctx, tok.Value, 779)
	assert.Equal(t, domain.EFORBIDDEN, domain.ErrorCode(err))
}

// =============================================================================
// Reaper
// =============================================================================

func TestSweep(t *testing.T) {
	m, store, clock, t0 := newTestManager(t)
	ctx := context.Background()
	mint(t, m)
	clock.Set(t0.Add(10 * time.Minute))
	fresh := mint(t, m)

	clock.Set(t0.Add(35 * time.Minute))
	n, err := m.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, store.Len())

	s, err := m.Validate(ctx, fresh.Value)
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestStartReaper(t *testing.T) {
	m, store, clock, t0 := newTestManager(t)
	mint(t, m)
	clock.Set(t0.Add(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := m.StartReaper(ctx, 5*time.Millisecond)

	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop")
	}
}
