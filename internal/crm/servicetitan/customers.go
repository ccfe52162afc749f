package servicetitan

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/DukeRupert/plumbline/internal/domain"
)

// FindCustomersByPhone returns active customers with a matching phone contact.
func (c *Client) FindCustomersByPhone(ctx context.Context, phone string) ([]domain.Customer, error) {
	return c.findCustomers(ctx, "FindCustomersByPhone", "phone", phone)
}

// FindCustomersByEmail returns active customers with a matching email contact.
func (c *Client) FindCustomersByEmail(ctx context.Context, email string) ([]domain.Customer, error) {
	return c.findCustomers(ctx, "FindCustomersByEmail", "email", email)
}

func (c *Client) findCustomers(ctx context.Context, operation, field, value string) ([]domain.Customer, error) {
	q := url.Values{}
	q.Set(field, value)
	q.Set("active", "True")
	q.Set("pageSize", "50")

	var resp page[apiCustomer]
	if err := c.do(ctx, operation, http.MethodGet, c.tenantPath("crm", "customers"), q, nil, &resp); err != nil {
		return nil, err
	}

	customers := make([]domain.Customer, 0, len(resp.Data))
	for _, ac := range resp.Data {
		if !ac.Active {
			continue
		}
		customers = append(customers, ac.toDomain())
	}
	return customers, nil
}

// CreateCustomer creates a customer with a single service location at the
// customer's address.
func (c *Client) CreateCustomer(ctx context.Context, params domain.CreateCustomerParams) (*domain.Customer, error) {
	req := createCustomerRequest{
		Name:    params.Name,
		Type:    string(params.Type),
		Address: addressFromDomain(params.Address),
		Locations: []createLocationRequest{{
			Name:    params.Name,
			Address: addressFromDomain(params.Address),
		}},
	}
	for _, ct := range params.Contacts {
		req.Contacts = append(req.Contacts, apiContact{Type: string(ct.Type), Value: ct.Value, Memo: ct.Memo})
	}

	var created apiCustomer
	if err := c.do(ctx, "CreateCustomer", http.MethodPost, c.tenantPath("crm", "customers"), nil, req, &created); err != nil {
		return nil, err
	}

	customer := created.toDomain()
	customer.Contacts = params.Contacts
	return &customer, nil
}

// GetCustomer fetches a customer by id.
func (c *Client) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	var ac apiCustomer
	endpoint := c.tenantPath("crm", fmt.Sprintf("customers/%d", id))
	if err := c.do(ctx, "GetCustomer", http.MethodGet, endpoint, nil, nil, &ac); err != nil {
		return nil, err
	}
	customer := ac.toDomain()
	return &customer, nil
}

// GetCustomerContacts lists a customer's contact methods.
func (c *Client) GetCustomerContacts(ctx context.Context, customerID int64) ([]domain.Contact, error) {
	var resp page[apiContact]
	endpoint := c.tenantPath("crm", fmt.Sprintf("customers/%d/contacts", customerID))
	if err := c.do(ctx, "GetCustomerContacts", http.MethodGet, endpoint, nil, nil, &resp); err != nil {
		return nil, err
	}
	contacts := make([]domain.Contact, 0, len(resp.Data))
	for _, ac := range resp.Data {
		contacts = append(contacts, ac.toDomain())
	}
	return contacts, nil
}

// AddCustomerContact adds a contact method to a customer.
func (c *Client) AddCustomerContact(ctx context.Context, customerID int64, ct domain.Contact) (*domain.Contact, error) {
	var created apiContact
	endpoint := c.tenantPath("crm", fmt.Sprintf("customers/%d/contacts", customerID))
	req := apiContact{Type: string(ct.Type), Value: ct.Value, Memo: ct.Memo}
	if err := c.do(ctx, "AddCustomerContact", http.MethodPost, endpoint, nil, req, &created); err != nil {
		return nil, err
	}
	out := created.toDomain()
	return &out, nil
}

// GetCustomerLocations lists a customer's service locations.
func (c *Client) GetCustomerLocations(ctx context.Context, customerID int64) ([]domain.Location, error) {
	q := url.Values{}
	q.Set("customerId", strconv.FormatInt(customerID, 10))
	q.Set("active", "True")

	var resp page[apiLocation]
	if err := c.do(ctx, "GetCustomerLocations", http.MethodGet, c.tenantPath("crm", "locations"), q, nil, &resp); err != nil {
		return nil, err
	}
	locations := make([]domain.Location, 0, len(resp.Data))
	for _, al := range resp.Data {
		locations = append(locations, al.toDomain())
	}
	return locations, nil
}

// GetLocation fetches a location by id.
func (c *Client) GetLocation(ctx context.Context, id int64) (*domain.Location, error) {
	var al apiLocation
	endpoint := c.tenantPath("crm", fmt.Sprintf("locations/%d", id))
	if err := c.do(ctx, "GetLocation", http.MethodGet, endpoint, nil, nil, &al); err != nil {
		return nil, err
	}
	loc := al.toDomain()
	return &loc, nil
}

// UpdateLocationContact adds or replaces the on-site contact for a location.
func (c *Client) UpdateLocationContact(ctx context.Context, locationID int64, ct domain.Contact) error {
	req := apiContact{Type: string(ct.Type), Value: ct.Value, Memo: ct.Memo}
	if ct.ID != 0 {
		endpoint := c.tenantPath("crm", fmt.Sprintf("locations/%d/contacts/%d", locationID, ct.ID))
		return c.do(ctx, "UpdateLocationContact", http.MethodPatch, endpoint, nil, req, nil)
	}
	endpoint := c.tenantPath("crm", fmt.Sprintf("locations/%d/contacts", locationID))
	return c.do(ctx, "UpdateLocationContact", http.MethodPost, endpoint, nil, req, nil)
}
