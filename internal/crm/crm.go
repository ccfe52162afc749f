// Package crm defines the field-service CRM collaborator: the system of
// record for customers, locations, jobs, invoices, estimates and
// appointments.
package crm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DukeRupert/plumbline/internal/domain"
)

// Client is the CRM surface used by the resolver and request handlers.
// Every entity getter returns an object exposing its owning customer id.
type Client interface {
	FindCustomersByPhone(ctx context.Context, phone string) ([]domain.Customer, error)
	FindCustomersByEmail(ctx context.Context, email string) ([]domain.Customer, error)
	CreateCustomer(ctx context.Context, params domain.CreateCustomerParams) (*domain.Customer, error)
	GetCustomer(ctx context.Context, id int64) (*domain.Customer, error)
	GetCustomerContacts(ctx context.Context, customerID int64) ([]domain.Contact, error)
	GetCustomerLocations(ctx context.Context, customerID int64) ([]domain.Location, error)
	AddCustomerContact(ctx context.Context, customerID int64, c domain.Contact) (*domain.Contact, error)

	GetLocation(ctx context.Context, id int64) (*domain.Location, error)
	UpdateLocationContact(ctx context.Context, locationID int64, c domain.Contact) error

	GetJob(ctx context.Context, id int64) (*domain.Job, error)
	GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error)
	GetEstimate(ctx context.Context, id int64) (*domain.Estimate, error)
	GetAppointment(ctx context.Context, id int64) (*domain.Appointment, error)

	RescheduleAppointment(ctx context.Context, id int64, start, end time.Time) error
	BookJob(ctx context.Context, params domain.BookJobParams) (*domain.Job, error)
}

// ErrNotFound is returned when the CRM has no entity with the requested id.
var ErrNotFound = errors.New("crm: entity not found")

// APIError is a non-success response from the CRM.
type APIError struct {
	Operation  string
	StatusCode int
	Message    string
	TraceID    string
}

func (e *APIError) Error() string {
	if e.TraceID != "" {
		return fmt.Sprintf("crm %s: status %d: %s (trace %s)", e.Operation, e.StatusCode, e.Message, e.TraceID)
	}
	return fmt.Sprintf("crm %s: status %d: %s", e.Operation, e.StatusCode, e.Message)
}

// TraceID extracts the CRM trace id from err, if it carries one.
func TraceID(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.TraceID
	}
	return ""
}

// ToDomainError maps a CRM failure to the application error taxonomy.
// Not-found becomes ENOTFOUND. Everything else is EUPSTREAM and is not
// retried here.
func ToDomainError(err error, op, resource string, id int64) error {
	if errors.Is(err, ErrNotFound) {
		return domain.NotFound(op, resource, fmt.Sprint(id))
	}
	return domain.Upstream(err, op, "customer records", TraceID(err))
}
