package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/DukeRupert/plumbline/internal/auth"
	"github.com/DukeRupert/plumbline/internal/crm"
	"github.com/DukeRupert/plumbline/internal/domain"
	"github.com/DukeRupert/plumbline/internal/service"
	"github.com/DukeRupert/plumbline/internal/session"
)

// SchedulerHandler serves the online booking widget.
//
// Routes handled:
// - POST /api/scheduler/lookup                     -> Lookup (rate limited)
// - POST /api/scheduler/verify-account             -> VerifyAccount (rate limited)
// - POST /api/scheduler/verify-code                -> Identity.VerifyCode (rate limited)
// - POST /api/scheduler/appointments/{id}/reschedule -> Reschedule
// - POST /api/scheduler/book                       -> Book
//
// A successful booking ends the session.
type SchedulerHandler struct {
	identity *Identity
	resolver service.ResolverService
	sessions *session.Manager
	crm      crm.Client
	guard    *auth.Guard
	logger   *slog.Logger
	isSecure bool
}

// NewSchedulerHandler creates a new SchedulerHandler.
func NewSchedulerHandler(
	identity *Identity,
	resolver service.ResolverService,
	sessions *session.Manager,
	crmClient crm.Client,
	guard *auth.Guard,
	logger *slog.Logger,
	isSecure bool,
) *SchedulerHandler {
	return &SchedulerHandler{
		identity: identity,
		resolver: resolver,
		sessions: sessions,
		crm:      crmClient,
		guard:    guard,
		logger:   logger,
		isSecure: isSecure,
	}
}

// RegisterRoutes registers scheduler routes.
func (h *SchedulerHandler) RegisterRoutes(
	mux *http.ServeMux,
	requireSession func(http.Handler) http.Handler,
	limit func(http.Handler) http.Handler,
) {
	mux.Handle("POST /api/scheduler/lookup", limit(http.HandlerFunc(h.Lookup)))
	mux.Handle("POST /api/scheduler/verify-account", limit(http.HandlerFunc(h.VerifyAccount)))
	mux.Handle("POST /api/scheduler/verify-code", limit(http.HandlerFunc(h.identity.VerifyCode)))
	mux.Handle("POST /api/scheduler/appointments/{id}/reschedule", requireSession(http.HandlerFunc(h.Reschedule)))
	mux.Handle("POST /api/scheduler/book", requireSession(http.HandlerFunc(h.Book)))
}

// =============================================================================
// Lookup and Verification
// =============================================================================

type lookupRequest struct {
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	CustomerType string `json:"customerType"`
}

func (req lookupRequest) params() domain.ResolveParams {
	return domain.ResolveParams{
		Phone:        req.Phone,
		Email:        req.Email,
		CustomerType: req.CustomerType,
	}
}

// Lookup resolves a contact to zero, one or several customers.
// Zero matches create a placeholder customer.
func (h *SchedulerHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	const op = "SchedulerHandler.Lookup"

	var req lookupRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.resolver.ResolveByContact(r.Context(), req.params())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, result)
}

// VerifyAccount resolves the contact and sends a code that unlocks every
// customer it resolved to.
func (h *SchedulerHandler) VerifyAccount(w http.ResponseWriter, r *http.Request) {
	const op = "SchedulerHandler.VerifyAccount"
	ctx := r.Context()

	var req lookupRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.resolver.ResolveByContact(ctx, req.params())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	resp, err := h.identity.issue(ctx, r, result.ContactKind, result.ContactValue, result.CandidateIDs())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, resp)
}

// =============================================================================
// Appointments and Booking
// =============================================================================

type timeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (tw timeWindow) validate(op string, now time.Time) error {
	var missing error
	if tw.Start.IsZero() {
		missing = domain.AddFieldError(missing, op, "start", "is required")
	}
	if tw.End.IsZero() {
		missing = domain.AddFieldError(missing, op, "end", "is required")
	}
	if missing != nil {
		return missing
	}
	if !tw.End.After(tw.Start) {
		return domain.NewValidationError(op, "end", "must be after start")
	}
	if tw.Start.Before(now) {
		return domain.NewValidationError(op, "start", "must be in the future")
	}
	return nil
}

// Reschedule moves an appointment the session owns.
func (h *SchedulerHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	const op = "SchedulerHandler.Reschedule"
	ctx := r.Context()

	grant, err := h.guard.RequireSession(ctx)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	id, err := pathID(r, op, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req timeWindow
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if err := req.validate(op, h.sessions.Now()); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	appt, err := fetchOwned(ctx, h.guard, grant, op, "appointment", func(ctx context.Context) (*domain.Appointment, error) {
		return h.crm.GetAppointment(ctx, id)
	}, appointmentOwner)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if err := h.crm.RescheduleAppointment(ctx, appt.ID, req.Start, req.End); err != nil {
		ErrorResponse(w, r, h.logger, crm.ToDomainError(err, op, "Appointment", appt.ID))
		return
	}

	h.logger.Info("appointment rescheduled", "appointment_id", appt.ID, "customer_id", appt.CustomerID)
	appt.Start, appt.End = req.Start, req.End
	respondJSON(w, appt)
}

type bookRequest struct {
	LocationID int64  `json:"locationId"`
	Summary    string `json:"summary"`
	timeWindow
}

// Book creates a job at a location the session owns, then ends the session.
func (h *SchedulerHandler) Book(w http.ResponseWriter, r *http.Request) {
	const op = "SchedulerHandler.Book"
	ctx := r.Context()

	grant, err := h.guard.RequireSession(ctx)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req bookRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	req.Summary = strings.TrimSpace(req.Summary)
	switch {
	case req.LocationID <= 0:
		ErrorResponse(w, r, h.logger, domain.NewValidationError(op, "locationId", "is required"))
		return
	case req.Summary == "":
		ErrorResponse(w, r, h.logger, domain.NewValidationError(op, "summary", "Please describe the problem"))
		return
	}
	if err := req.validate(op, h.sessions.Now()); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	loc, err := fetchOwned(ctx, h.guard, grant, op, "location", func(ctx context.Context) (*domain.Location, error) {
		return h.crm.GetLocation(ctx, req.LocationID)
	}, locationOwner)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	job, err := h.crm.BookJob(ctx, domain.BookJobParams{
		CustomerID: loc.CustomerID,
		LocationID: loc.ID,
		Summary:    req.Summary,
		Start:      req.Start,
		End:        req.End,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, crm.ToDomainError(err, op, "Location", loc.ID))
		return
	}

	// Booking complete: the grant is single purpose.
	if _, err := h.sessions.Invalidate(ctx, auth.GetToken(ctx)); err != nil {
		h.logger.Warn("failed to invalidate session after booking", "error", err)
	}
	session.ClearCookie(w, h.isSecure)

	h.logger.Info("job booked", "job_id", job.ID, "customer_id", loc.CustomerID, "location_id", loc.ID)
	writeJSON(w, http.StatusCreated, job)
}
