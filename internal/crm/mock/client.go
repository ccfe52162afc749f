// Package mock provides an in-memory crm.Client for local development and tests.
package mock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/DukeRupert/plumbline/internal/contact"
	"github.com/DukeRupert/plumbline/internal/crm"
	"github.com/DukeRupert/plumbline/internal/domain"
)

// Client is an in-memory CRM. Contacts are matched on their normalized form.
type Client struct {
	logger *slog.Logger

	mu           sync.Mutex
	nextID       int64
	customers    map[int64]*domain.Customer
	locations    map[int64]*domain.Location
	jobs         map[int64]*domain.Job
	invoices     map[int64]*domain.Invoice
	estimates    map[int64]*domain.Estimate
	appointments map[int64]*domain.Appointment

	// Err, when set, is returned by every call.
	Err error

	// Call tracking for tests
	CreateCustomerCalls int
	RescheduleCalls     int
	BookJobCalls        int
}

var _ crm.Client = (*Client)(nil)

// New creates an empty in-memory CRM.
func New(logger *slog.Logger) *Client {
	return &Client{
		logger:       logger,
		nextID:       100000,
		customers:    make(map[int64]*domain.Customer),
		locations:    make(map[int64]*domain.Location),
		jobs:         make(map[int64]*domain.Job),
		invoices:     make(map[int64]*domain.Invoice),
		estimates:    make(map[int64]*domain.Estimate),
		appointments: make(map[int64]*domain.Appointment),
	}
}

// =============================================================================
// Seeding
// =============================================================================

// AddCustomer stores a customer as-is. Zero ids are assigned.
func (c *Client) AddCustomer(cust domain.Customer) *domain.Customer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cust.ID == 0 {
		cust.ID = c.newID()
	}
	c.customers[cust.ID] = &cust
	for i := range cust.Locations {
		loc := cust.Locations[i]
		loc.CustomerID = cust.ID
		if loc.ID == 0 {
			loc.ID = c.newID()
		}
		c.locations[loc.ID] = &loc
	}
	return &cust
}

// AddLocation stores a location.
func (c *Client) AddLocation(loc domain.Location) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.locations[loc.ID] = &loc
}

// AddJob stores a job.
func (c *Client) AddJob(job domain.Job) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jobs[job.ID] = &job
}

// AddInvoice stores an invoice.
func (c *Client) AddInvoice(inv domain.Invoice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invoices[inv.ID] = &inv
}

// AddEstimate stores an estimate.
func (c *Client) AddEstimate(est domain.Estimate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.estimates[est.ID] = &est
}

// AddAppointment stores an appointment.
func (c *Client) AddAppointment(appt domain.Appointment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.appointments[appt.ID] = &appt
}

// Appointment returns a copy of a stored appointment, for assertions.
func (c *Client) Appointment(id int64) (domain.Appointment, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.appointments[id]
	if !ok {
		return domain.Appointment{}, false
	}
	return *a, true
}

func (c *Client) newID() int64 {
	c.nextID++
	return c.nextID
}

// =============================================================================
// crm.Client
// =============================================================================

func (c *Client) FindCustomersByPhone(ctx context.Context, phone string) ([]domain.Customer, error) {
	return c.findByContact(domain.ContactKindPhone, phone)
}

func (c *Client) FindCustomersByEmail(ctx context.Context, email string) ([]domain.Customer, error) {
	return c.findByContact(domain.ContactKindEmail, email)
}

func (c *Client) findByContact(kind domain.ContactKind, value string) ([]domain.Customer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}

	want, err := contact.Normalize(kind, value)
	if err != nil {
		return nil, nil
	}

	var out []domain.Customer
	for _, cust := range c.customers {
		if !cust.Active {
			continue
		}
		for _, ct := range cust.Contacts {
			if (kind == domain.ContactKindPhone) != ct.Type.IsPhone() {
				continue
			}
			if got, err := contact.Normalize(kind, ct.Value); err == nil && got == want {
				out = append(out, *cust)
				break
			}
		}
	}
	sortCustomers(out)
	return out, nil
}

func (c *Client) CreateCustomer(ctx context.Context, params domain.CreateCustomerParams) (*domain.Customer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	c.CreateCustomerCalls++

	cust := &domain.Customer{
		ID:       c.newID(),
		Name:     params.Name,
		Type:     params.Type,
		Active:   true,
		Address:  params.Address,
		Contacts: append([]domain.Contact(nil), params.Contacts...),
	}
	loc := &domain.Location{ID: c.newID(), CustomerID: cust.ID, Name: params.Name, Address: params.Address}
	cust.Locations = []domain.Location{*loc}
	c.customers[cust.ID] = cust
	c.locations[loc.ID] = loc

	out := *cust
	return &out, nil
}

func (c *Client) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	cust, ok := c.customers[id]
	if !ok {
		return nil, notFound("customer", id)
	}
	out := *cust
	return &out, nil
}

func (c *Client) GetCustomerContacts(ctx context.Context, customerID int64) ([]domain.Contact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	cust, ok := c.customers[customerID]
	if !ok {
		return nil, notFound("customer", customerID)
	}
	return append([]domain.Contact(nil), cust.Contacts...), nil
}

func (c *Client) GetCustomerLocations(ctx context.Context, customerID int64) ([]domain.Location, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	var out []domain.Location
	for _, loc := range c.locations {
		if loc.CustomerID == customerID {
			out = append(out, *loc)
		}
	}
	return out, nil
}

func (c *Client) AddCustomerContact(ctx context.Context, customerID int64, ct domain.Contact) (*domain.Contact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	cust, ok := c.customers[customerID]
	if !ok {
		return nil, notFound("customer", customerID)
	}
	ct.ID = c.newID()
	cust.Contacts = append(cust.Contacts, ct)
	return &ct, nil
}

func (c *Client) GetLocation(ctx context.Context, id int64) (*domain.Location, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	loc, ok := c.locations[id]
	if !ok {
		return nil, notFound("location", id)
	}
	out := *loc
	return &out, nil
}

func (c *Client) UpdateLocationContact(ctx context.Context, locationID int64, ct domain.Contact) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	loc, ok := c.locations[locationID]
	if !ok {
		return notFound("location", locationID)
	}
	for i := range loc.Contacts {
		if loc.Contacts[i].Type == ct.Type {
			loc.Contacts[i].Value = ct.Value
			loc.Contacts[i].Memo = ct.Memo
			return nil
		}
	}
	ct.ID = c.newID()
	loc.Contacts = append(loc.Contacts, ct)
	return nil
}

func (c *Client) GetJob(ctx context.Context, id int64) (*domain.Job, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	job, ok := c.jobs[id]
	if !ok {
		return nil, notFound("job", id)
	}
	out := *job
	return &out, nil
}

func (c *Client) GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	inv, ok := c.invoices[id]
	if !ok {
		return nil, notFound("invoice", id)
	}
	out := *inv
	return &out, nil
}

func (c *Client) GetEstimate(ctx context.Context, id int64) (*domain.Estimate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	est, ok := c.estimates[id]
	if !ok {
		return nil, notFound("estimate", id)
	}
	out := *est
	return &out, nil
}

func (c *Client) GetAppointment(ctx context.Context, id int64) (*domain.Appointment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	appt, ok := c.appointments[id]
	if !ok {
		return nil, notFound("appointment", id)
	}
	out := *appt
	return &out, nil
}

func (c *Client) RescheduleAppointment(ctx context.Context, id int64, start, end time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	appt, ok := c.appointments[id]
	if !ok {
		return notFound("appointment", id)
	}
	c.RescheduleCalls++
	appt.Start = start
	appt.End = end
	return nil
}

func (c *Client) BookJob(ctx context.Context, params domain.BookJobParams) (*domain.Job, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	c.BookJobCalls++

	job := &domain.Job{
		ID:         c.newID(),
		CustomerID: params.CustomerID,
		LocationID: params.LocationID,
		Number:     fmt.Sprintf("W-%d", c.nextID),
		Status:     "Scheduled",
		Summary:    params.Summary,
		CreatedOn:  time.Now(),
	}
	c.jobs[job.ID] = job
	appt := &domain.Appointment{
		ID:         c.newID(),
		JobID:      job.ID,
		CustomerID: params.CustomerID,
		Start:      params.Start,
		End:        params.End,
		Status:     "Scheduled",
	}
	c.appointments[appt.ID] = appt

	c.logger.Info("mock crm booked job", "job_id", job.ID, "customer_id", params.CustomerID)
	out := *job
	return &out, nil
}

func notFound(resource string, id int64) error {
	return fmt.Errorf("%s %d: %w", resource, id, crm.ErrNotFound)
}
