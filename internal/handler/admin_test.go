package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/plumbline/internal/auth"
	"github.com/DukeRupert/plumbline/internal/csrf"
	"github.com/DukeRupert/plumbline/internal/domain"
	"github.com/DukeRupert/plumbline/internal/session"
	"github.com/DukeRupert/plumbline/internal/worker"
)

var testAdmin = &domain.AdminUser{
	ID:        uuid.MustParse("6f1c2d4e-8a9b-4c3d-9e2f-1a2b3c4d5e6f"),
	Email:     "ops@plumbline.test",
	Name:      "Ops",
	CreatedAt: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
}

type stubAdmins struct {
	loggedOut []string
}

func (s *stubAdmins) Login(_ context.Context, p domain.LoginParams) (*domain.LoginResult, error) {
	if p.Email != testAdmin.Email || p.Password != "correct horse" {
		return nil, domain.Unauthorized("stubAdmins.Login", "Invalid email or password")
	}
	return &domain.LoginResult{User: testAdmin, Token: "admin-token", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (s *stubAdmins) Logout(_ context.Context, token string) error {
	s.loggedOut = append(s.loggedOut, token)
	return nil
}

func (s *stubAdmins) GetBySessionToken(context.Context, string) (*domain.AdminUser, error) {
	return testAdmin, nil
}

func (s *stubAdmins) Bootstrap(context.Context, string, string, string) (bool, error) {
	return false, nil
}

func (s *stubAdmins) PurgeExpiredSessions(context.Context) (int64, error) { return 0, nil }

type stubVerification struct{}

func (stubVerification) CreateChallenge(context.Context, domain.CreateChallengeParams) (*domain.IssuedChallenge, error) {
	return nil, domain.Errorf(domain.ENOTIMPL, "stubVerification", "not used")
}

func (stubVerification) CheckChallenge(context.Context, domain.ContactKind, string, string) (*domain.ChallengeResult, error) {
	return nil, domain.Errorf(domain.ENOTIMPL, "stubVerification", "not used")
}

func (stubVerification) PurgeExpired(context.Context) (int64, error) { return 0, nil }

func (stubVerification) Stats(context.Context) (*domain.ChallengeStats, error) {
	return &domain.ChallengeStats{Pending: 3, PendingSMS: 2, PendingEmail: 1, Expired: 4}, nil
}

type adminFixture struct {
	mux      *http.ServeMux
	admins   *stubAdmins
	payments *stubPayments
	jobs     *stubEnqueuer
}

func newAdminFixture() *adminFixture {
	f := &adminFixture{admins: &stubAdmins{}, payments: newStubPayments(), jobs: &stubEnqueuer{}}
	h := NewAdminHandler(f.admins, f.payments, stubVerification{}, f.jobs, testLogger(), false)

	requireAdmin := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := r.Cookie(session.AdminCookieName); err != nil {
				ErrorResponse(w, r, testLogger(), domain.Unauthorized("test", "login required"))
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.SetAdmin(r.Context(), testAdmin)))
		})
	}
	pass := func(next http.Handler) http.Handler { return next }

	f.mux = http.NewServeMux()
	h.RegisterRoutes(f.mux, requireAdmin, pass, pass)
	return f
}

func (f *adminFixture) do(method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

var adminCookie = &http.Cookie{Name: session.AdminCookieName, Value: "admin-token"}

func TestAdmin_Login(t *testing.T) {
	f := newAdminFixture()

	rec := f.do(http.MethodPost, "/admin/api/login", `{"email":"ops@plumbline.test","password":"correct horse"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body adminLoginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, testAdmin.ID, body.User.ID)
	assert.NotEmpty(t, body.CSRFToken)
	assert.NotContains(t, rec.Body.String(), "admin-token")

	cookies := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		cookies[c.Name] = c
	}
	require.Contains(t, cookies, session.AdminCookieName)
	require.Contains(t, cookies, csrf.CookieName)
	assert.Equal(t, "admin-token", cookies[session.AdminCookieName].Value)
	assert.True(t, cookies[session.AdminCookieName].HttpOnly)
	assert.Equal(t, body.CSRFToken, cookies[csrf.CookieName].Value)
}

func TestAdmin_LoginRejected(t *testing.T) {
	f := newAdminFixture()

	rec := f.do(http.MethodPost, "/admin/api/login", `{"email":"ops@plumbline.test","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies())

	rec = f.do(http.MethodPost, "/admin/api/login", `{"email":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdmin_ProtectedRoutes(t *testing.T) {
	f := newAdminFixture()

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/admin/api/me", "").Code)

	rec := f.do(http.MethodGet, "/admin/api/me", "", adminCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), testAdmin.Email)
	assert.NotContains(t, rec.Body.String(), "PasswordHash")

	rec = f.do(http.MethodGet, "/admin/api/verification/stats", "", adminCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats domain.ChallengeStats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, int64(3), stats.Pending)
	assert.Equal(t, int64(4), stats.Expired)
}

func TestAdmin_Payments(t *testing.T) {
	f := newAdminFixture()
	f.payments.list = []domain.InvoicePayment{{ID: uuid.New(), InvoiceID: 4521, AmountCents: 12550}}

	rec := f.do(http.MethodGet, "/admin/api/payments?limit=20&offset=40", "", adminCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 20, f.payments.limit)
	assert.Equal(t, 40, f.payments.offset)
	assert.Contains(t, rec.Body.String(), `"invoiceId":4521`)

	rec = f.do(http.MethodGet, "/admin/api/payments?limit=-1", "", adminCookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdmin_PurgeQueuesJob(t *testing.T) {
	f := newAdminFixture()

	rec := f.do(http.MethodPost, "/admin/api/verification/purge", "", adminCookie)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	require.Len(t, f.jobs.jobs, 1)
	assert.Equal(t, worker.JobTypePurgeExpired, f.jobs.jobs[0].JobType)

	var payload worker.PurgeExpiredPayload
	require.NoError(t, json.Unmarshal(f.jobs.jobs[0].Payload, &payload))
	assert.Equal(t, testAdmin.ID.String(), payload.RequestedBy)
}

func TestAdmin_Logout(t *testing.T) {
	f := newAdminFixture()

	rec := f.do(http.MethodPost, "/admin/api/logout", "", adminCookie)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"admin-token"}, f.admins.loggedOut)

	for _, c := range rec.Result().Cookies() {
		assert.Negative(t, c.MaxAge, c.Name)
	}
}
