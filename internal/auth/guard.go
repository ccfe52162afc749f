package auth

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/DukeRupert/plumbline/internal/domain"
	"github.com/DukeRupert/plumbline/internal/metrics"
)

// ForbiddenMessage is the only message a denied request ever sees, whether
// the entity belongs to someone else or does not exist.
const ForbiddenMessage = "You are not authorized to access this resource."

// Grant is the authorization a valid session carries into a handler.
type Grant struct {
	SessionID            string
	CustomerID           *int64
	AvailableCustomerIDs []int64
}

// Allows reports whether customerID is within the grant.
func (g *Grant) Allows(customerID int64) bool {
	return slices.Contains(g.AvailableCustomerIDs, customerID)
}

// Guard authorizes access to customer-scoped CRM entities.
//
// Callers fetch the entity first and pass the owner id from the fetched
// record. Ids sent by the client are never a comparand.
type Guard struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewGuard creates a Guard. now may be nil to use time.Now.
func NewGuard(logger *slog.Logger, now func() time.Time) *Guard {
	if now == nil {
		now = time.Now
	}
	return &Guard{logger: logger, now: now}
}

// RequireSession returns the grant of the session in ctx.
// Returns domain.EUNAUTHORIZED if there is none.
func (g *Guard) RequireSession(ctx context.Context) (*Grant, error) {
	const op = "Guard.RequireSession"

	s := GetSession(ctx)
	if s == nil {
		return nil, domain.Unauthorized(op, "Please verify your identity to continue.")
	}
	return &Grant{
		SessionID:            s.ID,
		CustomerID:           s.CustomerID,
		AvailableCustomerIDs: s.AuthorizedCustomerIDs(g.now()),
	}, nil
}

// AssertOwnership fails with domain.EFORBIDDEN unless entityCustomerID is in
// authorizedIDs. entity labels the denial metric ("invoice", "job", ...).
func (g *Guard) AssertOwnership(ctx context.Context, op, entity string, entityCustomerID int64, authorizedIDs []int64) error {
	if slices.Contains(authorizedIDs, entityCustomerID) {
		return nil
	}

	metrics.OwnershipDenied(entity)
	g.logger.WarnContext(ctx, "ownership check failed",
		"op", op,
		"entity", entity,
		"entity_customer_id", entityCustomerID,
		"authorized_customer_ids", authorizedIDs,
	)
	return domain.Forbidden(op, ForbiddenMessage)
}

// Deny returns the same error AssertOwnership does, for scoped lookups of
// entities that do not exist.
func (g *Guard) Deny(ctx context.Context, op, entity string) error {
	metrics.OwnershipDenied(entity)
	g.logger.WarnContext(ctx, "scoped lookup of missing entity", "op", op, "entity", entity)
	return domain.Forbidden(op, ForbiddenMessage)
}
