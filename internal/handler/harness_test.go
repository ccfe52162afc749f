package handler_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"

	"github.com/DukeRupert/plumbline/internal/auth"
	"github.com/DukeRupert/plumbline/internal/billing"
	crmmock "github.com/DukeRupert/plumbline/internal/crm/mock"
	"github.com/DukeRupert/plumbline/internal/domain"
	"github.com/DukeRupert/plumbline/internal/email"
	"github.com/DukeRupert/plumbline/internal/handler"
	"github.com/DukeRupert/plumbline/internal/middleware"
	"github.com/DukeRupert/plumbline/internal/repository"
	"github.com/DukeRupert/plumbline/internal/service"
	"github.com/DukeRupert/plumbline/internal/session"
	"github.com/DukeRupert/plumbline/internal/sms"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

// harness wires the portal and scheduler handlers the way cmd/server does,
// with in-memory collaborators.
type harness struct {
	t        *testing.T
	mux      http.Handler
	crm      *crmmock.Client
	sms      *sms.LogSender
	email    *email.LogEmailService
	billing  *stubBilling
	sessions *session.Manager
	clock    *testClock
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	crmClient := crmmock.New(logger)
	crmClient.Seed()

	store := session.NewMemoryStore()
	clock := &testClock{now: time.Now()}
	mgr, err := session.NewManager(store, testSecret, logger, session.WithClock(clock.Now))
	require.NoError(t, err)

	verification := service.NewVerificationService(newChallengeQueries(), logger)
	resolver := service.NewResolverService(crmClient, logger)
	smsSender := sms.NewLogSender(logger)
	mailer := email.NewLogEmailService(logger)
	payments := &stubBilling{}
	guard := auth.NewGuard(logger, nil)

	identity := handler.NewIdentity(verification, resolver, mgr, smsSender, mailer,
		handler.IdentityConfig{CompanyName: "Plumbline", BaseURL: "https://plumbline.test/"}, logger)
	portal := handler.NewPortalHandler(identity, resolver, mgr, crmClient, guard, payments, stubPhotos{}, logger, false, "https://plumbline.test/portal")
	scheduler := handler.NewSchedulerHandler(identity, resolver, mgr, crmClient, guard, logger, false)

	sessMW := middleware.NewSessionMiddleware(mgr, logger, false)
	requireSession := func(next http.Handler) http.Handler {
		return sessMW.WithSession(sessMW.RequireSession(next))
	}
	noLimit := func(next http.Handler) http.Handler { return next }

	mux := http.NewServeMux()
	portal.RegisterRoutes(mux, requireSession, noLimit)
	scheduler.RegisterRoutes(mux, requireSession, noLimit)

	return &harness{
		t:        t,
		mux:      mux,
		crm:      crmClient,
		sms:      smsSender,
		email:    mailer,
		billing:  payments,
		sessions: mgr,
		clock:    clock,
	}
}

// do sends a JSON request, with a Bearer token when token is non-empty.
func (h *harness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.10:40000"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.mux.ServeHTTP(rec, req)
	return rec
}

var smsCode = regexp.MustCompile(`\b(\d{6})\b`)

// lastSMSCode returns the code in the most recent text to phone.
func (h *harness) lastSMSCode(phone string) string {
	h.t.Helper()
	sent := h.sms.Sent()
	for i := len(sent) - 1; i >= 0; i-- {
		if sent[i].To == phone {
			m := smsCode.FindStringSubmatch(sent[i].Body)
			require.NotNil(h.t, m, "no code in %q", sent[i].Body)
			return m[1]
		}
	}
	h.t.Fatalf("no text sent to %s", phone)
	return ""
}

// verifyPhone runs verify-account and verify-code for a phone number and
// returns the session token.
func (h *harness) verifyPhone(prefix, phone string) verifiedBody {
	h.t.Helper()
	rec := h.do(http.MethodPost, prefix+"/verify-account", "", map[string]string{"phone": phone})
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())

	normalized := regexp.MustCompile(`\D`).ReplaceAllString(phone, "")
	rec = h.do(http.MethodPost, prefix+"/verify-code", "", map[string]string{
		"contactValue": phone,
		"code":         h.lastSMSCode(normalized),
		"lookupType":   "phone",
	})
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())

	var body verifiedBody
	require.NoError(h.t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

type verifiedBody struct {
	Token      string                  `json:"token"`
	ExpiresAt  time.Time               `json:"expiresAt"`
	CustomerID int64                   `json:"customerId"`
	Customers  []domain.AccountSummary `json:"customers"`
}

type errorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any    `json:"details"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

// =============================================================================
// Collaborator stubs
// =============================================================================

type stubBilling struct {
	mu    sync.Mutex
	calls []billing.InvoiceCheckoutParams
}

func (s *stubBilling) CreateInvoiceCheckout(_ context.Context, p billing.InvoiceCheckoutParams) (*domain.CheckoutResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, p)
	return &domain.CheckoutResult{SessionID: "cs_test_1", URL: "https://checkout.stripe.test/cs_test_1"}, nil
}

func (s *stubBilling) VerifyWebhookSignature([]byte, string) (stripe.Event, error) {
	return stripe.Event{}, nil
}

type stubPhotos struct{}

func (stubPhotos) Upload(_ context.Context, jobID, customerID int64, _ multipart.File, header *multipart.FileHeader) (*domain.JobPhoto, error) {
	return &domain.JobPhoto{ID: uuid.New(), JobID: jobID, CustomerID: customerID, OriginalFilename: header.Filename}, nil
}

func (stubPhotos) List(_ context.Context, jobID int64) ([]domain.JobPhoto, error) {
	return []domain.JobPhoto{}, nil
}

var _ service.PhotoService = stubPhotos{}

// challengeQueries is an in-memory service.ChallengeQueries.
type challengeQueries struct {
	mu   sync.Mutex
	rows map[uuid.UUID]repository.VerificationChallenge
}

func newChallengeQueries() *challengeQueries {
	return &challengeQueries{rows: make(map[uuid.UUID]repository.VerificationChallenge)}
}

func (q *challengeQueries) CreateVerificationChallenge(_ context.Context, arg repository.CreateVerificationChallengeParams) (repository.VerificationChallenge, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	row := repository.VerificationChallenge{
		ID:               uuid.New(),
		CustomerIds:      arg.CustomerIds,
		ContactValue:     arg.ContactValue,
		VerificationType: arg.VerificationType,
		Code:             arg.Code,
		ExpiresAt:        arg.ExpiresAt,
		CreatedAt:        time.Now(),
	}
	q.rows[row.ID] = row
	return row, nil
}

func (q *challengeQueries) GetLatestVerificationChallenge(_ context.Context, arg repository.GetLatestVerificationChallengeParams) (repository.VerificationChallenge, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var matches []repository.VerificationChallenge
	for _, r := range q.rows {
		if r.ContactValue == arg.ContactValue && r.VerificationType == arg.VerificationType {
			matches = append(matches, r)
		}
	}
	if len(matches) == 0 {
		return repository.VerificationChallenge{}, sql.ErrNoRows
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].CreatedAt.After(matches[j].CreatedAt) })
	return matches[0], nil
}

func (q *challengeQueries) IncrementVerificationAttempts(_ context.Context, id uuid.UUID) (int32, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	r, ok := q.rows[id]
	if !ok {
		return 0, sql.ErrNoRows
	}
	r.Attempts++
	q.rows[id] = r
	return r.Attempts, nil
}

func (q *challengeQueries) DeleteVerificationChallenge(_ context.Context, id uuid.UUID) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.rows[id]; !ok {
		return 0, nil
	}
	delete(q.rows, id)
	return 1, nil
}

func (q *challengeQueries) DeleteVerificationChallengesByContact(_ context.Context, arg repository.DeleteVerificationChallengesByContactParams) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var n int64
	for id, r := range q.rows {
		if r.ContactValue == arg.ContactValue && r.VerificationType == arg.VerificationType {
			delete(q.rows, id)
			n++
		}
	}
	return n, nil
}

func (q *challengeQueries) DeleteExpiredVerificationChallenges(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (q *challengeQueries) CountVerificationChallenges(context.Context, time.Time) (repository.CountVerificationChallengesRow, error) {
	return repository.CountVerificationChallengesRow{}, nil
}
