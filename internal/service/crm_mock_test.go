package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/DukeRupert/plumbline/internal/domain"
)

// mockCRM is a testify mock of crm.Client.
type mockCRM struct {
	mock.Mock
}

func (m *mockCRM) FindCustomersByPhone(ctx context.Context, phone string) ([]domain.Customer, error) {
	args := m.Called(ctx, phone)
	cs, _ := args.Get(0).([]domain.Customer)
	return cs, args.Error(1)
}

func (m *mockCRM) FindCustomersByEmail(ctx context.Context, email string) ([]domain.Customer, error) {
	args := m.Called(ctx, email)
	cs, _ := args.Get(0).([]domain.Customer)
	return cs, args.Error(1)
}

func (m *mockCRM) CreateCustomer(ctx context.Context, params domain.CreateCustomerParams) (*domain.Customer, error) {
	args := m.Called(ctx, params)
	c, _ := args.Get(0).(*domain.Customer)
	return c, args.Error(1)
}

func (m *mockCRM) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(*domain.Customer)
	return c, args.Error(1)
}

func (m *mockCRM) GetCustomerContacts(ctx context.Context, customerID int64) ([]domain.Contact, error) {
	args := m.Called(ctx, customerID)
	cs, _ := args.Get(0).([]domain.Contact)
	return cs, args.Error(1)
}

func (m *mockCRM) GetCustomerLocations(ctx context.Context, customerID int64) ([]domain.Location, error) {
	args := m.Called(ctx, customerID)
	ls, _ := args.Get(0).([]domain.Location)
	return ls, args.Error(1)
}

func (m *mockCRM) AddCustomerContact(ctx context.Context, customerID int64, c domain.Contact) (*domain.Contact, error) {
	args := m.Called(ctx, customerID, c)
	out, _ := args.Get(0).(*domain.Contact)
	return out, args.Error(1)
}

func (m *mockCRM) GetLocation(ctx context.Context, id int64) (*domain.Location, error) {
	args := m.Called(ctx, id)
	l, _ := args.Get(0).(*domain.Location)
	return l, args.Error(1)
}

func (m *mockCRM) UpdateLocationContact(ctx context.Context, locationID int64, c domain.Contact) error {
	return m.Called(ctx, locationID, c).Error(0)
}

func (m *mockCRM) GetJob(ctx context.Context, id int64) (*domain.Job, error) {
	args := m.Called(ctx, id)
	j, _ := args.Get(0).(*domain.Job)
	return j, args.Error(1)
}

func (m *mockCRM) GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error) {
	args := m.Called(ctx, id)
	i, _ := args.Get(0).(*domain.Invoice)
	return i, args.Error(1)
}

func (m *mockCRM) GetEstimate(ctx context.Context, id int64) (*domain.Estimate, error) {
	args := m.Called(ctx, id)
	e, _ := args.Get(0).(*domain.Estimate)
	return e, args.Error(1)
}

func (m *mockCRM) GetAppointment(ctx context.Context, id int64) (*domain.Appointment, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(*domain.Appointment)
	return a, args.Error(1)
}

func (m *mockCRM) RescheduleAppointment(ctx context.Context, id int64, start, end time.Time) error {
	return m.Called(ctx, id, start, end).Error(0)
}

func (m *mockCRM) BookJob(ctx context.Context, params domain.BookJobParams) (*domain.Job, error) {
	args := m.Called(ctx, params)
	j, _ := args.Get(0).(*domain.Job)
	return j, args.Error(1)
}
