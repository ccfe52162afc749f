package handler

import (
	"context"
	"errors"

	"github.com/DukeRupert/plumbline/internal/auth"
	"github.com/DukeRupert/plumbline/internal/crm"
	"github.com/DukeRupert/plumbline/internal/domain"
)

// fetchOwned loads a CRM entity and asserts the session owns it.
//
// The owner id always comes from the fetched record. A CRM not-found is
// reported as the same Forbidden a foreign entity gets.
func fetchOwned[T any](
	ctx context.Context,
	guard *auth.Guard,
	grant *auth.Grant,
	op, entity string,
	fetch func(context.Context) (*T, error),
	owner func(*T) int64,
) (*T, error) {
	v, err := fetch(ctx)
	if errors.Is(err, crm.ErrNotFound) {
		return nil, guard.Deny(ctx, op, entity)
	}
	if err != nil {
		return nil, domain.Upstream(err, op, "customer records", crm.TraceID(err))
	}
	if err := guard.AssertOwnership(ctx, op, entity, owner(v), grant.AvailableCustomerIDs); err != nil {
		return nil, err
	}
	return v, nil
}

// Owner accessors for fetchOwned.
func customerOwner(c *domain.Customer) int64       { return c.ID }
func locationOwner(l *domain.Location) int64       { return l.CustomerID }
func jobOwner(j *domain.Job) int64                 { return j.CustomerID }
func invoiceOwner(i *domain.Invoice) int64         { return i.CustomerID }
func estimateOwner(e *domain.Estimate) int64       { return e.CustomerID }
func appointmentOwner(a *domain.Appointment) int64 { return a.CustomerID }
