package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/DukeRupert/plumbline/internal/auth"
	"github.com/DukeRupert/plumbline/internal/csrf"
	"github.com/DukeRupert/plumbline/internal/domain"
	"github.com/DukeRupert/plumbline/internal/service"
	"github.com/DukeRupert/plumbline/internal/session"
	"github.com/DukeRupert/plumbline/internal/worker"
)

// AdminHandler handles the back-office JSON API.
type AdminHandler struct {
	admins       service.AdminService
	payments     service.PaymentService
	verification service.VerificationService
	jobs         worker.Enqueuer
	logger       *slog.Logger
	isSecure     bool
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	admins service.AdminService,
	payments service.PaymentService,
	verification service.VerificationService,
	jobs worker.Enqueuer,
	logger *slog.Logger,
	isSecure bool,
) *AdminHandler {
	return &AdminHandler{
		admins:       admins,
		payments:     payments,
		verification: verification,
		jobs:         jobs,
		logger:       logger,
		isSecure:     isSecure,
	}
}

// RegisterRoutes registers admin routes. requireAdmin must authenticate the
// staff cookie; csrfProtect guards mutating requests.
func (h *AdminHandler) RegisterRoutes(
	mux *http.ServeMux,
	requireAdmin func(http.Handler) http.Handler,
	csrfProtect func(http.Handler) http.Handler,
	limitLogin func(http.Handler) http.Handler,
) {
	mux.Handle("POST /admin/api/login", limitLogin(http.HandlerFunc(h.Login)))

	protected := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, requireAdmin(csrfProtect(fn)))
	}
	protected("POST /admin/api/logout", h.Logout)
	protected("GET /admin/api/me", h.Me)
	protected("GET /admin/api/payments", h.Payments)
	protected("GET /admin/api/verification/stats", h.VerificationStats)
	protected("POST /admin/api/verification/purge", h.Purge)
}

// =============================================================================
// Authentication
// =============================================================================

type adminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type adminUserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type adminLoginResponse struct {
	User      adminUserResponse `json:"user"`
	CSRFToken string            `json:"csrfToken"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

func toAdminUserResponse(u *domain.AdminUser) adminUserResponse {
	return adminUserResponse{ID: u.ID, Email: u.Email, Name: u.Name, CreatedAt: u.CreatedAt}
}

// Login authenticates staff and sets the session and CSRF cookies.
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	const op = "AdminHandler.Login"

	var req adminLoginRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.admins.Login(r.Context(), domain.LoginParams{
		Email:     req.Email,
		Password:  req.Password,
		UserAgent: r.UserAgent(),
		IPAddress: ClientIP(r),
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	csrfToken, err := csrf.Issue(w, h.isSecure)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, op, "failed to issue csrf token"))
		return
	}
	session.SetAdminCookie(w, result.Token, h.isSecure)

	respondJSON(w, adminLoginResponse{
		User:      toAdminUserResponse(result.User),
		CSRFToken: csrfToken,
		ExpiresAt: result.ExpiresAt,
	})
}

// Logout ends the staff session and clears both cookies.
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(session.AdminCookieName); err == nil {
		if err := h.admins.Logout(r.Context(), c.Value); err != nil {
			h.logger.Warn("admin logout failed", "error", err)
		}
	}
	session.ClearAdminCookie(w, h.isSecure)
	csrf.ClearCookie(w, h.isSecure)
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the authenticated staff user.
func (h *AdminHandler) Me(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, toAdminUserResponse(auth.GetAdmin(r.Context())))
}

// =============================================================================
// Reports
// =============================================================================

// Payments lists recorded invoice payments, newest first.
//
// Query Parameters:
// - limit (optional): page size, default 50, max 200
// - offset (optional): rows to skip
func (h *AdminHandler) Payments(w http.ResponseWriter, r *http.Request) {
	const op = "AdminHandler.Payments"

	limit, err := queryInt(r, op, "limit")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	offset, err := queryInt(r, op, "offset")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	payments, err := h.payments.List(r.Context(), limit, offset)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, map[string]any{"payments": payments})
}

// VerificationStats counts pending and expired challenges.
func (h *AdminHandler) VerificationStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.verification.Stats(r.Context())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, stats)
}

// Purge queues an immediate cleanup of expired challenges and staff sessions.
func (h *AdminHandler) Purge(w http.ResponseWriter, r *http.Request) {
	const op = "AdminHandler.Purge"

	admin := auth.GetAdmin(r.Context())
	job, err := worker.EnqueuePurgeExpired(r.Context(), h.jobs, admin.ID.String())
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, op, "failed to queue purge"))
		return
	}

	h.logger.Info("purge queued", "job_id", job.ID, "admin_id", admin.ID)
	writeJSON(w, http.StatusAccepted, map[string]any{"jobId": job.ID})
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(r *http.Request, op, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, domain.NewValidationError(op, name, "must be a non-negative integer")
	}
	return n, nil
}
