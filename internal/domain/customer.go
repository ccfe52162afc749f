package domain

import "time"

// CustomerType is the CRM classification of a customer.
type CustomerType string

const (
	CustomerTypeResidential CustomerType = "Residential"
	CustomerTypeCommercial  CustomerType = "Commercial"
)

// ParseCustomerType returns the type for a hint, defaulting to Residential.
func ParseCustomerType(s string) CustomerType {
	switch s {
	case "Commercial", "commercial":
		return CustomerTypeCommercial
	default:
		return CustomerTypeResidential
	}
}

// PlaceholderCustomerName is used for customers created from an unknown contact.
const PlaceholderCustomerName = "Web Visitor"

// Address is a postal address as stored in the CRM.
type Address struct {
	Street  string `json:"street,omitempty"`
	Unit    string `json:"unit,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip,omitempty"`
	Country string `json:"country,omitempty"`
}

// ContactType is the CRM contact method type.
type ContactType string

const (
	ContactTypePhone       ContactType = "Phone"
	ContactTypeMobilePhone ContactType = "MobilePhone"
	ContactTypeEmail       ContactType = "Email"
)

// IsPhone returns true for phone-like contact types.
func (t ContactType) IsPhone() bool {
	return t == ContactTypePhone || t == ContactTypeMobilePhone
}

// Contact is a single contact method on a customer or location.
type Contact struct {
	ID    int64       `json:"id,omitempty"`
	Type  ContactType `json:"type"`
	Value string      `json:"value"`
	Memo  string      `json:"memo,omitempty"`
}

// Customer is a customer record owned by the CRM. This system reads it,
// resolves against it and asserts ownership against it.
type Customer struct {
	ID        int64
	Name      string
	Type      CustomerType
	Active    bool
	Balance   float64
	Address   Address
	Contacts  []Contact
	Locations []Location
}

// Location is a service address belonging to one customer.
type Location struct {
	ID         int64     `json:"id"`
	CustomerID int64     `json:"customerId"`
	Name       string    `json:"name"`
	Address    Address   `json:"address"`
	Contacts   []Contact `json:"contacts,omitempty"`
}

// Job is a unit of field work.
type Job struct {
	ID         int64     `json:"id"`
	CustomerID int64     `json:"customerId"`
	LocationID int64     `json:"locationId"`
	Number     string    `json:"jobNumber"`
	Status     string    `json:"status"`
	Summary    string    `json:"summary"`
	CreatedOn  time.Time `json:"createdOn"`
}

// Invoice is a billed amount for a job.
type Invoice struct {
	ID         int64     `json:"id"`
	CustomerID int64     `json:"customerId"`
	JobID      int64     `json:"jobId,omitempty"`
	Number     string    `json:"number"`
	Total      float64   `json:"total"`
	Balance    float64   `json:"balance"`
	Summary    string    `json:"summary,omitempty"`
	InvoicedOn time.Time `json:"invoicedOn"`
	DueOn      time.Time `json:"dueOn"`
}

// IsPaid returns true if nothing is owed.
func (i *Invoice) IsPaid() bool {
	return i.Balance <= 0
}

// BalanceCents returns the outstanding balance in cents.
func (i *Invoice) BalanceCents() int64 {
	return int64(i.Balance*100 + 0.5)
}

// Estimate is a quote presented to a customer.
type Estimate struct {
	ID         int64     `json:"id"`
	CustomerID int64     `json:"customerId"`
	JobID      int64     `json:"jobId,omitempty"`
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	Subtotal   float64   `json:"subtotal"`
	Summary    string    `json:"summary,omitempty"`
	CreatedOn  time.Time `json:"createdOn"`
}

// Appointment is a scheduled visit for a job.
type Appointment struct {
	ID         int64     `json:"id"`
	JobID      int64     `json:"jobId"`
	CustomerID int64     `json:"customerId"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Status     string    `json:"status"`
}

// =============================================================================
// CRM Parameters
// =============================================================================

// CreateCustomerParams contains the minimal fields for a new CRM customer.
type CreateCustomerParams struct {
	Name     string
	Type     CustomerType
	Address  Address
	Contacts []Contact
}

// BookJobParams contains the fields needed to book a job from the scheduler.
type BookJobParams struct {
	CustomerID int64
	LocationID int64
	Summary    string
	Start      time.Time
	End        time.Time
}

// =============================================================================
// Resolver Results
// =============================================================================

// CustomerSummary is the privacy-preserving view of a candidate customer.
// Street and zip are never included.
type CustomerSummary struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	City  string `json:"city"`
	State string `json:"state"`
}

// ResolveParams contains the lookup key for the resolver.
// Exactly one of Phone or Email must be set.
type ResolveParams struct {
	Phone        string
	Email        string
	CustomerType string
}

// ResolveResult is the outcome of a contact lookup.
type ResolveResult struct {
	CustomerID      int64             `json:"customerId,omitempty"`
	CustomerName    string            `json:"customerName,omitempty"`
	IsNewCustomer   bool              `json:"isNewCustomer"`
	MultipleMatches bool              `json:"multipleMatches,omitempty"`
	Candidates      []CustomerSummary `json:"candidates,omitempty"`
	ContactKind     ContactKind       `json:"-"`
	ContactValue    string            `json:"-"`
}

// CandidateIDs returns every customer id the result may unlock.
func (r *ResolveResult) CandidateIDs() []int64 {
	if !r.MultipleMatches {
		return []int64{r.CustomerID}
	}
	ids := make([]int64, 0, len(r.Candidates))
	for _, c := range r.Candidates {
		ids = append(ids, c.ID)
	}
	return ids
}

// AccountSummary describes one account available to a verified session.
type AccountSummary struct {
	ID      int64        `json:"id"`
	Name    string       `json:"name"`
	Type    CustomerType `json:"type"`
	City    string       `json:"city"`
	State   string       `json:"state"`
	Balance float64      `json:"balance"`
}

// PortalAccounts is the contact a portal sign-in is verified through and the
// customers it unlocks. The requested customer, if any, comes first.
type PortalAccounts struct {
	Kind         ContactKind
	ContactValue string
	CustomerIDs  []int64
}
