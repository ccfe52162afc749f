package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/DukeRupert/plumbline/internal/contact"
	"github.com/DukeRupert/plumbline/internal/crm"
	"github.com/DukeRupert/plumbline/internal/domain"
	"github.com/DukeRupert/plumbline/internal/metrics"
)

// =============================================================================
// Interface Definition
// =============================================================================

// ResolverService maps a contact value to CRM customer records.
type ResolverService interface {
	// ResolveByContact finds the customers reachable at a phone or email.
	// Zero matches create a placeholder customer. Several matches return
	// privacy-preserving candidate summaries.
	// Returns domain.EINVALID for missing or malformed input and
	// domain.EUPSTREAM if the CRM fails.
	ResolveByContact(ctx context.Context, params domain.ResolveParams) (*domain.ResolveResult, error)

	// Summaries returns the account list for a verified session, in the
	// order of ids. Customers the CRM no longer knows are skipped.
	Summaries(ctx context.Context, ids []int64) ([]domain.AccountSummary, error)

	// AccountsForContact returns the normalized contact and every active
	// customer reachable through it. Unlike ResolveByContact it never
	// creates a customer.
	// Returns domain.ENOTFOUND when nothing matches.
	AccountsForContact(ctx context.Context, kind domain.ContactKind, raw string) (*domain.PortalAccounts, error)

	// AccountsForCustomer picks the contact a portal sign-in for customerID
	// is verified through (mobile, then phone, then email) and collects every
	// active customer sharing it, customerID first.
	// Returns domain.ENOTFOUND for an unknown customer and domain.EINVALID
	// when the customer has no usable contact.
	AccountsForCustomer(ctx context.Context, customerID int64) (*domain.PortalAccounts, error)
}

// placeholderAddress is attached to customers created from an unknown contact.
// Office staff replace it on first contact.
var placeholderAddress = domain.Address{
	Street:  "Address pending",
	City:    "Unknown",
	State:   "TX",
	Zip:     "00000",
	Country: "USA",
}

// =============================================================================
// Implementation
// =============================================================================

type resolverService struct {
	crm    crm.Client
	logger *slog.Logger
}

// NewResolverService creates a new ResolverService.
func NewResolverService(client crm.Client, logger *slog.Logger) ResolverService {
	return &resolverService{
		crm:    client,
		logger: logger,
	}
}

// ResolveByContact resolves a phone or email to zero, one or many customers.
func (s *resolverService) ResolveByContact(ctx context.Context, params domain.ResolveParams) (*domain.ResolveResult, error) {
	const op = "ResolverService.ResolveByContact"

	kind, raw, err := resolveInput(op, params)
	if err != nil {
		return nil, err
	}
	value, err := contact.Normalize(kind, raw)
	if err != nil {
		return nil, err
	}

	matches, err := s.findByContact(ctx, kind, value)
	if err != nil {
		metrics.CustomerResolved("error")
		s.logger.Error("customer lookup failed", "op", op, "contact", contact.Mask(kind, value), "error", err)
		return nil, domain.Upstream(err, op, "customer records", crm.TraceID(err))
	}
	matches = activeOnly(matches)

	switch len(matches) {
	case 0:
		return s.createPlaceholder(ctx, op, kind, value, params.CustomerType)

	case 1:
		metrics.CustomerResolved("single")
		return &domain.ResolveResult{
			CustomerID:   matches[0].ID,
			CustomerName: displayName(matches[0].Name),
			ContactKind:  kind,
			ContactValue: value,
		}, nil

	default:
		metrics.CustomerResolved("multiple")
		candidates := make([]domain.CustomerSummary, 0, len(matches))
		for _, c := range matches {
			candidates = append(candidates, domain.CustomerSummary{
				ID:    c.ID,
				Name:  displayName(c.Name),
				City:  c.Address.City,
				State: c.Address.State,
			})
		}
		s.logger.Info("contact matches multiple customers",
			"contact", contact.Mask(kind, value),
			"count", len(candidates),
		)
		return &domain.ResolveResult{
			MultipleMatches: true,
			Candidates:      candidates,
			ContactKind:     kind,
			ContactValue:    value,
		}, nil
	}
}

func (s *resolverService) createPlaceholder(ctx context.Context, op string, kind domain.ContactKind, value, typeHint string) (*domain.ResolveResult, error) {
	ct := domain.Contact{Type: domain.ContactTypeEmail, Value: value, Memo: "Added from online scheduler"}
	if kind == domain.ContactKindPhone {
		ct.Type = domain.ContactTypeMobilePhone
	}

	created, err := s.crm.CreateCustomer(ctx, domain.CreateCustomerParams{
		Name:     domain.PlaceholderCustomerName,
		Type:     domain.ParseCustomerType(typeHint),
		Address:  placeholderAddress,
		Contacts: []domain.Contact{ct},
	})
	if err != nil {
		metrics.CustomerResolved("error")
		s.logger.Error("placeholder customer creation failed", "op", op, "contact", contact.Mask(kind, value), "error", err)
		return nil, domain.Upstream(err, op, "customer records", crm.TraceID(err))
	}

	metrics.CustomerResolved("created")
	s.logger.Info("created placeholder customer",
		"customer_id", created.ID,
		"contact", contact.Mask(kind, value),
	)

	return &domain.ResolveResult{
		CustomerID:    created.ID,
		CustomerName:  created.Name,
		IsNewCustomer: true,
		ContactKind:   kind,
		ContactValue:  value,
	}, nil
}

// Summaries fetches the account list for the given customer ids.
func (s *resolverService) Summaries(ctx context.Context, ids []int64) ([]domain.AccountSummary, error) {
	const op = "ResolverService.Summaries"

	out := make([]domain.AccountSummary, 0, len(ids))
	for _, id := range ids {
		c, err := s.crm.GetCustomer(ctx, id)
		if errors.Is(err, crm.ErrNotFound) {
			s.logger.Warn("verified customer missing from crm", "customer_id", id)
			continue
		}
		if err != nil {
			return nil, domain.Upstream(err, op, "customer records", crm.TraceID(err))
		}
		out = append(out, domain.AccountSummary{
			ID:      c.ID,
			Name:    displayName(c.Name),
			Type:    c.Type,
			City:    c.Address.City,
			State:   c.Address.State,
			Balance: c.Balance,
		})
	}
	return out, nil
}

// AccountsForContact finds the active customers reachable at a contact.
func (s *resolverService) AccountsForContact(ctx context.Context, kind domain.ContactKind, raw string) (*domain.PortalAccounts, error) {
	const op = "ResolverService.AccountsForContact"

	value, err := contact.Normalize(kind, raw)
	if err != nil {
		return nil, err
	}

	matches, err := s.findByContact(ctx, kind, value)
	if err != nil {
		return nil, domain.Upstream(err, op, "customer records", crm.TraceID(err))
	}
	matches = activeOnly(matches)
	if len(matches) == 0 {
		s.logger.Info("no customer for portal contact", "contact", contact.Mask(kind, value))
		return nil, domain.Errorf(domain.ENOTFOUND, op, "We could not find an account with that contact information.")
	}

	ids := make([]int64, 0, len(matches))
	for _, c := range matches {
		ids = append(ids, c.ID)
	}
	return &domain.PortalAccounts{Kind: kind, ContactValue: value, CustomerIDs: ids}, nil
}

// AccountsForCustomer resolves a customer id to its verification contact.
func (s *resolverService) AccountsForCustomer(ctx context.Context, customerID int64) (*domain.PortalAccounts, error) {
	const op = "ResolverService.AccountsForCustomer"

	contacts, err := s.crm.GetCustomerContacts(ctx, customerID)
	if err != nil {
		return nil, crm.ToDomainError(err, op, "Customer", customerID)
	}

	kind, value, ok := preferredContact(contacts)
	if !ok {
		return nil, domain.Invalid(op, "This account has no phone number or email on file. Please call the office.")
	}

	matches, err := s.findByContact(ctx, kind, value)
	if err != nil {
		return nil, domain.Upstream(err, op, "customer records", crm.TraceID(err))
	}

	ids := []int64{customerID}
	for _, c := range activeOnly(matches) {
		if c.ID != customerID {
			ids = append(ids, c.ID)
		}
	}
	return &domain.PortalAccounts{Kind: kind, ContactValue: value, CustomerIDs: ids}, nil
}

// =============================================================================
// Helpers
// =============================================================================

func (s *resolverService) findByContact(ctx context.Context, kind domain.ContactKind, value string) ([]domain.Customer, error) {
	if kind == domain.ContactKindPhone {
		return s.crm.FindCustomersByPhone(ctx, value)
	}
	return s.crm.FindCustomersByEmail(ctx, value)
}

// preferredContact returns the first normalizable mobile, then phone, then
// email contact.
func preferredContact(contacts []domain.Contact) (domain.ContactKind, string, bool) {
	for _, want := range []domain.ContactType{domain.ContactTypeMobilePhone, domain.ContactTypePhone} {
		for _, c := range contacts {
			if c.Type != want {
				continue
			}
			if v, err := contact.NormalizePhone(c.Value); err == nil {
				return domain.ContactKindPhone, v, true
			}
		}
	}
	for _, c := range contacts {
		if c.Type != domain.ContactTypeEmail {
			continue
		}
		if v, err := contact.NormalizeEmail(c.Value); err == nil {
			return domain.ContactKindEmail, v, true
		}
	}
	return "", "", false
}

// resolveInput picks the contact kind. Exactly one of phone or email is allowed.
func resolveInput(op string, params domain.ResolveParams) (domain.ContactKind, string, error) {
	phone := strings.TrimSpace(params.Phone)
	email := strings.TrimSpace(params.Email)

	switch {
	case phone != "" && email != "":
		return "", "", domain.NewValidationError(op, "contact", "Provide a phone number or an email address, not both")
	case phone != "":
		return domain.ContactKindPhone, phone, nil
	case email != "":
		return domain.ContactKindEmail, email, nil
	default:
		return "", "", domain.NewValidationError(op, "contact", "A phone number or email address is required")
	}
}

func activeOnly(cs []domain.Customer) []domain.Customer {
	out := cs[:0:0]
	for _, c := range cs {
		if c.Active {
			out = append(out, c)
		}
	}
	return out
}

// displayName title-cases names the CRM stores in all caps.
func displayName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || name != strings.ToUpper(name) {
		return name
	}
	return cases.Title(language.English).String(strings.ToLower(name))
}

