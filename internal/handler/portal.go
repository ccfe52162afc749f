package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/DukeRupert/plumbline/internal/auth"
	"github.com/DukeRupert/plumbline/internal/billing"
	"github.com/DukeRupert/plumbline/internal/contact"
	"github.com/DukeRupert/plumbline/internal/crm"
	"github.com/DukeRupert/plumbline/internal/domain"
	"github.com/DukeRupert/plumbline/internal/service"
	"github.com/DukeRupert/plumbline/internal/session"
)

// PortalHandler serves the customer portal API.
//
// Routes handled:
// - POST /api/portal/verify-account          -> VerifyAccount (rate limited)
// - POST /api/portal/verify-code             -> Identity.VerifyCode (rate limited)
// - GET  /portal/verify                      -> MagicLink
// - POST /api/portal/switch-account          -> SwitchAccount
// - POST /api/portal/refresh                 -> Refresh
// - POST /api/portal/logout                  -> Logout
// - GET  /api/portal/session                 -> Session
// - GET  /api/portal/customers/{id}          -> Customer
// - POST /api/portal/customers/{id}/contacts -> AddContact
// - PUT  /api/portal/locations/{id}/contact  -> UpdateLocationContact
// - GET  /api/portal/invoices/{id}           -> Invoice
// - POST /api/portal/invoices/{id}/pay       -> PayInvoice
// - GET  /api/portal/estimates/{id}          -> Estimate
// - GET  /api/portal/jobs/{id}/photos        -> ListPhotos
// - POST /api/portal/jobs/{id}/photos        -> UploadPhoto
//
// Every customer-scoped route fetches the entity first and checks the
// fetched owner id against the session's authorized customers.
type PortalHandler struct {
	identity  *Identity
	resolver  service.ResolverService
	sessions  *session.Manager
	crm       crm.Client
	guard     *auth.Guard
	payments  billing.Service
	photos    service.PhotoService
	logger    *slog.Logger
	isSecure  bool
	portalURL string
}

// NewPortalHandler creates a new PortalHandler. portalURL is the absolute
// URL of the portal front end, used for redirects and checkout return pages.
// payments may be nil when Stripe is not configured.
func NewPortalHandler(
	identity *Identity,
	resolver service.ResolverService,
	sessions *session.Manager,
	crmClient crm.Client,
	guard *auth.Guard,
	payments billing.Service,
	photos service.PhotoService,
	logger *slog.Logger,
	isSecure bool,
	portalURL string,
) *PortalHandler {
	return &PortalHandler{
		identity:  identity,
		resolver:  resolver,
		sessions:  sessions,
		crm:       crmClient,
		guard:     guard,
		payments:  payments,
		photos:    photos,
		logger:    logger,
		isSecure:  isSecure,
		portalURL: strings.TrimRight(portalURL, "/"),
	}
}

// RegisterRoutes registers portal routes. requireSession must validate the
// session token and reject requests without one. limit rate limits the
// unauthenticated verification endpoints.
func (h *PortalHandler) RegisterRoutes(
	mux *http.ServeMux,
	requireSession func(http.Handler) http.Handler,
	limit func(http.Handler) http.Handler,
) {
	mux.Handle("POST /api/portal/verify-account", limit(http.HandlerFunc(h.VerifyAccount)))
	mux.Handle("POST /api/portal/verify-code", limit(http.HandlerFunc(h.identity.VerifyCode)))
	mux.Handle("GET /portal/verify", limit(http.HandlerFunc(h.MagicLink)))
	mux.HandleFunc("POST /api/portal/logout", h.Logout)

	protected := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, requireSession(fn))
	}
	protected("POST /api/portal/switch-account", h.SwitchAccount)
	protected("POST /api/portal/refresh", h.Refresh)
	protected("GET /api/portal/session", h.Session)
	protected("GET /api/portal/customers/{id}", h.Customer)
	protected("POST /api/portal/customers/{id}/contacts", h.AddContact)
	protected("PUT /api/portal/locations/{id}/contact", h.UpdateLocationContact)
	protected("GET /api/portal/invoices/{id}", h.Invoice)
	protected("POST /api/portal/invoices/{id}/pay", h.PayInvoice)
	protected("GET /api/portal/estimates/{id}", h.Estimate)
	protected("GET /api/portal/jobs/{id}/photos", h.ListPhotos)
	protected("POST /api/portal/jobs/{id}/photos", h.UploadPhoto)
}

// =============================================================================
// Verification
// =============================================================================

type verifyAccountRequest struct {
	CustomerID int64  `json:"customerId"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
}

// VerifyAccount starts a portal sign-in from a customer id, phone or email.
func (h *PortalHandler) VerifyAccount(w http.ResponseWriter, r *http.Request) {
	const op = "PortalHandler.VerifyAccount"
	ctx := r.Context()

	var req verifyAccountRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var (
		accounts *domain.PortalAccounts
		err      error
	)
	switch {
	case req.CustomerID > 0:
		accounts, err = h.resolver.AccountsForCustomer(ctx, req.CustomerID)
	case strings.TrimSpace(req.Phone) != "":
		accounts, err = h.resolver.AccountsForContact(ctx, domain.ContactKindPhone, req.Phone)
	case strings.TrimSpace(req.Email) != "":
		accounts, err = h.resolver.AccountsForContact(ctx, domain.ContactKindEmail, req.Email)
	default:
		err = domain.NewValidationError(op, "contact", "A customer number, phone number or email address is required")
	}
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	resp, err := h.identity.issue(ctx, r, accounts.Kind, accounts.ContactValue, accounts.CustomerIDs)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, resp)
}

// MagicLink consumes an emailed sign-in link and redirects to the portal.
//
// Query Parameters:
// - email: the address the link was sent to
// - token: the link code
func (h *PortalHandler) MagicLink(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	_, err := h.identity.complete(r.Context(), w, domain.ContactKindEmail, q.Get("email"), q.Get("token"))
	if err != nil {
		code := domain.ErrorCode(err)
		if code == domain.EINTERNAL || code == domain.EUPSTREAM {
			h.logger.Error("magic link sign-in failed", "error", err)
		}
		http.Redirect(w, r, h.portalURL+"?error="+strings.ToLower(code), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, h.portalURL, http.StatusSeeOther)
}

// =============================================================================
// Session
// =============================================================================

type switchAccountRequest struct {
	CustomerID int64 `json:"customerId"`
}

// SwitchAccount changes the active customer within the verified set.
func (h *PortalHandler) SwitchAccount(w http.ResponseWriter, r *http.Request) {
	const op = "PortalHandler.SwitchAccount"
	ctx := r.Context()

	var req switchAccountRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if req.CustomerID <= 0 {
		ErrorResponse(w, r, h.logger, domain.NewValidationError(op, "customerId", "is required"))
		return
	}

	s, err := h.sessions.SwitchCustomer(ctx, auth.GetToken(ctx), req.CustomerID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, session.Info(s))
}

// Refresh extends the session and re-issues the cookie.
func (h *PortalHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	const op = "PortalHandler.Refresh"
	ctx := r.Context()

	token, err := h.sessions.Refresh(ctx, auth.GetToken(ctx))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, op, "failed to refresh session"))
		return
	}
	if token == nil {
		session.ClearCookie(w, h.isSecure)
		ErrorResponse(w, r, h.logger, domain.Unauthorized(op, "Your session has expired. Please verify again."))
		return
	}

	session.SetCookie(w, token.Value, token.ExpiresAt, h.isSecure)
	respondJSON(w, token)
}

// Logout invalidates the session, if any, and clears the cookie.
// It succeeds whether or not a session existed.
func (h *PortalHandler) Logout(w http.ResponseWriter, r *http.Request) {
	const op = "PortalHandler.Logout"

	if token := session.TokenFromRequest(r); token != "" {
		if _, err := h.sessions.Invalidate(r.Context(), token); err != nil {
			ErrorResponse(w, r, h.logger, domain.Internal(err, op, "failed to end session"))
			return
		}
	}
	session.ClearCookie(w, h.isSecure)
	w.WriteHeader(http.StatusNoContent)
}

type sessionResponse struct {
	domain.SessionInfo
	Customers []domain.AccountSummary `json:"customers"`
}

// Session returns the non-sensitive metadata of the current session.
func (h *PortalHandler) Session(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s := auth.GetSession(ctx)

	customers, err := h.resolver.Summaries(ctx, s.AuthorizedCustomerIDs(h.sessions.Now()))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, sessionResponse{SessionInfo: session.Info(s), Customers: customers})
}

// =============================================================================
// Customers and Locations
// =============================================================================

type customerResponse struct {
	ID        int64               `json:"id"`
	Name      string              `json:"name"`
	Type      domain.CustomerType `json:"type"`
	Balance   float64             `json:"balance"`
	Address   domain.Address      `json:"address"`
	Contacts  []domain.Contact    `json:"contacts"`
	Locations []domain.Location   `json:"locations"`
}

// Customer returns a customer with its contacts and locations.
func (h *PortalHandler) Customer(w http.ResponseWriter, r *http.Request) {
	const op = "PortalHandler.Customer"
	ctx := r.Context()

	grant, id, err := h.grantAndID(ctx, r, op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	c, err := fetchOwned(ctx, h.guard, grant, op, "customer", func(ctx context.Context) (*domain.Customer, error) {
		return h.crm.GetCustomer(ctx, id)
	}, customerOwner)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	contacts, err := h.crm.GetCustomerContacts(ctx, c.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, crm.ToDomainError(err, op, "Customer", c.ID))
		return
	}
	locations, err := h.crm.GetCustomerLocations(ctx, c.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, crm.ToDomainError(err, op, "Customer", c.ID))
		return
	}

	respondJSON(w, customerResponse{
		ID:        c.ID,
		Name:      c.Name,
		Type:      c.Type,
		Balance:   c.Balance,
		Address:   c.Address,
		Contacts:  contacts,
		Locations: locations,
	})
}

type contactRequest struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// AddContact adds a phone number or email to a customer.
func (h *PortalHandler) AddContact(w http.ResponseWriter, r *http.Request) {
	const op = "PortalHandler.AddContact"
	ctx := r.Context()

	grant, id, err := h.grantAndID(ctx, r, op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req contactRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	ct, err := parseContact(op, req)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	c, err := fetchOwned(ctx, h.guard, grant, op, "customer", func(ctx context.Context) (*domain.Customer, error) {
		return h.crm.GetCustomer(ctx, id)
	}, customerOwner)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	created, err := h.crm.AddCustomerContact(ctx, c.ID, ct)
	if err != nil {
		ErrorResponse(w, r, h.logger, crm.ToDomainError(err, op, "Customer", c.ID))
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateLocationContact replaces a contact on a service location.
func (h *PortalHandler) UpdateLocationContact(w http.ResponseWriter, r *http.Request) {
	const op = "PortalHandler.UpdateLocationContact"
	ctx := r.Context()

	grant, id, err := h.grantAndID(ctx, r, op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req contactRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	ct, err := parseContact(op, req)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	loc, err := fetchOwned(ctx, h.guard, grant, op, "location", func(ctx context.Context) (*domain.Location, error) {
		return h.crm.GetLocation(ctx, id)
	}, locationOwner)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if err := h.crm.UpdateLocationContact(ctx, loc.ID, ct); err != nil {
		ErrorResponse(w, r, h.logger, crm.ToDomainError(err, op, "Location", loc.ID))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Invoices and Estimates
// =============================================================================

// Invoice returns one invoice.
func (h *PortalHandler) Invoice(w http.ResponseWriter, r *http.Request) {
	const op = "PortalHandler.Invoice"
	ctx := r.Context()

	inv, err := h.ownedInvoice(ctx, r, op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, inv)
}

// PayInvoice creates a Stripe Checkout session for the invoice balance.
func (h *PortalHandler) PayInvoice(w http.ResponseWriter, r *http.Request) {
	const op = "PortalHandler.PayInvoice"
	ctx := r.Context()

	if h.payments == nil {
		ErrorResponse(w, r, h.logger, domain.Errorf(domain.ENOTIMPL, op, "Online payment is not available. Please call the office."))
		return
	}

	inv, err := h.ownedInvoice(ctx, r, op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if inv.IsPaid() {
		ErrorResponse(w, r, h.logger, domain.Conflict(op, "This invoice has already been paid."))
		return
	}

	invoicePage := h.portalURL + "/invoices/" + strconv.FormatInt(inv.ID, 10)
	checkout, err := h.payments.CreateInvoiceCheckout(ctx, billing.InvoiceCheckoutParams{
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.Number,
		CustomerID:    inv.CustomerID,
		AmountCents:   inv.BalanceCents(),
		SuccessURL:    invoicePage + "?paid=1",
		CancelURL:     invoicePage,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Upstream(err, op, "payment", ""))
		return
	}

	h.logger.Info("invoice checkout created", "invoice_id", inv.ID, "customer_id", inv.CustomerID)
	respondJSON(w, checkout)
}

// Estimate returns one estimate.
func (h *PortalHandler) Estimate(w http.ResponseWriter, r *http.Request) {
	const op = "PortalHandler.Estimate"
	ctx := r.Context()

	grant, id, err := h.grantAndID(ctx, r, op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	est, err := fetchOwned(ctx, h.guard, grant, op, "estimate", func(ctx context.Context) (*domain.Estimate, error) {
		return h.crm.GetEstimate(ctx, id)
	}, estimateOwner)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, est)
}

func (h *PortalHandler) ownedInvoice(ctx context.Context, r *http.Request, op string) (*domain.Invoice, error) {
	grant, id, err := h.grantAndID(ctx, r, op)
	if err != nil {
		return nil, err
	}
	return fetchOwned(ctx, h.guard, grant, op, "invoice", func(ctx context.Context) (*domain.Invoice, error) {
		return h.crm.GetInvoice(ctx, id)
	}, invoiceOwner)
}

// =============================================================================
// Job Photos
// =============================================================================

// multipartOverhead allows for form boundaries and headers around the file.
const multipartOverhead = 1 << 20

// UploadPhoto attaches a photo to a job.
//
// Form Fields:
// - photo: JPEG or PNG, at most domain.MaxPhotoSize bytes
func (h *PortalHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	const op = "PortalHandler.UploadPhoto"
	ctx := r.Context()

	job, err := h.ownedJob(ctx, r, op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, domain.MaxPhotoSize+multipartOverhead)
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ErrorResponse(w, r, h.logger, domain.ValidatePhotoSize(domain.MaxPhotoSize+1))
			return
		}
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "Expected a multipart form upload"))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("photo")
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.NewValidationError(op, "photo", "Please choose a photo to upload"))
		return
	}
	defer file.Close()

	photo, err := h.photos.Upload(ctx, job.ID, job.CustomerID, file, header)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, photo)
}

// ListPhotos returns the photos attached to a job.
func (h *PortalHandler) ListPhotos(w http.ResponseWriter, r *http.Request) {
	const op = "PortalHandler.ListPhotos"
	ctx := r.Context()

	job, err := h.ownedJob(ctx, r, op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	photos, err := h.photos.List(ctx, job.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, map[string]any{"photos": photos})
}

func (h *PortalHandler) ownedJob(ctx context.Context, r *http.Request, op string) (*domain.Job, error) {
	grant, id, err := h.grantAndID(ctx, r, op)
	if err != nil {
		return nil, err
	}
	return fetchOwned(ctx, h.guard, grant, op, "job", func(ctx context.Context) (*domain.Job, error) {
		return h.crm.GetJob(ctx, id)
	}, jobOwner)
}

// =============================================================================
// Helpers
// =============================================================================

// grantAndID returns the session grant and the {id} path value.
func (h *PortalHandler) grantAndID(ctx context.Context, r *http.Request, op string) (*auth.Grant, int64, error) {
	grant, err := h.guard.RequireSession(ctx)
	if err != nil {
		return nil, 0, err
	}
	id, err := pathID(r, op, "id")
	if err != nil {
		return nil, 0, err
	}
	return grant, id, nil
}

// parseContact validates and normalizes a contact submitted by a customer.
func parseContact(op string, req contactRequest) (domain.Contact, error) {
	ct := domain.ContactType(req.Type)
	switch {
	case ct.IsPhone():
		v, err := contact.NormalizePhone(req.Value)
		if err != nil {
			return domain.Contact{}, err
		}
		return domain.Contact{Type: ct, Value: v}, nil
	case ct == domain.ContactTypeEmail:
		v, err := contact.NormalizeEmail(req.Value)
		if err != nil {
			return domain.Contact{}, err
		}
		return domain.Contact{Type: ct, Value: v}, nil
	default:
		return domain.Contact{}, domain.NewValidationError(op, "type", "must be Phone, MobilePhone or Email")
	}
}
