package servicetitan

import (
	"strconv"
	"time"

	"github.com/DukeRupert/plumbline/internal/domain"
)

// problemResponse is the RFC 7807 error body ServiceTitan returns.
type problemResponse struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Status  int    `json:"status"`
	TraceID string `json:"traceId"`
}

type page[T any] struct {
	Page     int  `json:"page"`
	PageSize int  `json:"pageSize"`
	HasMore  bool `json:"hasMore"`
	Data     []T  `json:"data"`
}

type apiAddress struct {
	Street  string `json:"street"`
	Unit    string `json:"unit,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country,omitempty"`
}

func (a apiAddress) toDomain() domain.Address {
	return domain.Address{
		Street:  a.Street,
		Unit:    a.Unit,
		City:    a.City,
		State:   a.State,
		Zip:     a.Zip,
		Country: a.Country,
	}
}

func addressFromDomain(a domain.Address) apiAddress {
	return apiAddress{
		Street:  a.Street,
		Unit:    a.Unit,
		City:    a.City,
		State:   a.State,
		Zip:     a.Zip,
		Country: a.Country,
	}
}

type apiContact struct {
	ID    int64  `json:"id,omitempty"`
	Type  string `json:"type"`
	Value string `json:"value"`
	Memo  string `json:"memo,omitempty"`
}

func (c apiContact) toDomain() domain.Contact {
	return domain.Contact{
		ID:    c.ID,
		Type:  domain.ContactType(c.Type),
		Value: c.Value,
		Memo:  c.Memo,
	}
}

type apiCustomer struct {
	ID      int64      `json:"id"`
	Active  bool       `json:"active"`
	Name    string     `json:"name"`
	Type    string     `json:"type"`
	Address apiAddress `json:"address"`
	Balance float64    `json:"balance"`
}

func (c apiCustomer) toDomain() domain.Customer {
	return domain.Customer{
		ID:      c.ID,
		Name:    c.Name,
		Type:    domain.CustomerType(c.Type),
		Active:  c.Active,
		Balance: c.Balance,
		Address: c.Address.toDomain(),
	}
}

type createCustomerRequest struct {
	Name      string                  `json:"name"`
	Type      string                  `json:"type"`
	Address   apiAddress              `json:"address"`
	Contacts  []apiContact            `json:"contacts,omitempty"`
	Locations []createLocationRequest `json:"locations"`
}

type createLocationRequest struct {
	Name    string     `json:"name"`
	Address apiAddress `json:"address"`
}

type apiLocation struct {
	ID         int64      `json:"id"`
	CustomerID int64      `json:"customerId"`
	Name       string     `json:"name"`
	Address    apiAddress `json:"address"`
}

func (l apiLocation) toDomain() domain.Location {
	return domain.Location{
		ID:         l.ID,
		CustomerID: l.CustomerID,
		Name:       l.Name,
		Address:    l.Address.toDomain(),
	}
}

type apiJob struct {
	ID         int64     `json:"id"`
	JobNumber  string    `json:"jobNumber"`
	CustomerID int64     `json:"customerId"`
	LocationID int64     `json:"locationId"`
	JobStatus  string    `json:"jobStatus"`
	Summary    string    `json:"summary"`
	CreatedOn  time.Time `json:"createdOn"`
}

func (j apiJob) toDomain() domain.Job {
	return domain.Job{
		ID:         j.ID,
		CustomerID: j.CustomerID,
		LocationID: j.LocationID,
		Number:     j.JobNumber,
		Status:     j.JobStatus,
		Summary:    j.Summary,
		CreatedOn:  j.CreatedOn,
	}
}

type bookJobRequest struct {
	CustomerID     int64                `json:"customerId"`
	LocationID     int64                `json:"locationId"`
	BusinessUnitID int64                `json:"businessUnitId"`
	JobTypeID      int64                `json:"jobTypeId"`
	CampaignID     int64                `json:"campaignId"`
	Priority       string               `json:"priority"`
	Summary        string               `json:"summary"`
	Appointments   []appointmentRequest `json:"appointments"`
}

type appointmentRequest struct {
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	ArrivalStart time.Time `json:"arrivalWindowStart"`
	ArrivalEnd   time.Time `json:"arrivalWindowEnd"`
}

type rescheduleRequest struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type apiAppointment struct {
	ID         int64     `json:"id"`
	JobID      int64     `json:"jobId"`
	CustomerID int64     `json:"customerId"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Status     string    `json:"status"`
}

func (a apiAppointment) toDomain() domain.Appointment {
	return domain.Appointment{
		ID:         a.ID,
		JobID:      a.JobID,
		CustomerID: a.CustomerID,
		Start:      a.Start,
		End:        a.End,
		Status:     a.Status,
	}
}

type apiRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
}

// apiInvoice carries money as decimal strings, as the accounting API does.
type apiInvoice struct {
	ID              int64     `json:"id"`
	ReferenceNumber string    `json:"referenceNumber"`
	Customer        apiRef    `json:"customer"`
	Job             *apiRef   `json:"job"`
	Total           string    `json:"total"`
	Balance         string    `json:"balance"`
	Summary         string    `json:"summary"`
	InvoiceDate     time.Time `json:"invoiceDate"`
	DueDate         time.Time `json:"dueDate"`
}

func (i apiInvoice) toDomain() domain.Invoice {
	inv := domain.Invoice{
		ID:         i.ID,
		CustomerID: i.Customer.ID,
		Number:     i.ReferenceNumber,
		Total:      parseMoney(i.Total),
		Balance:    parseMoney(i.Balance),
		Summary:    i.Summary,
		InvoicedOn: i.InvoiceDate,
		DueOn:      i.DueDate,
	}
	if i.Job != nil {
		inv.JobID = i.Job.ID
	}
	return inv
}

type apiEstimateStatus struct {
	Value int    `json:"value"`
	Name  string `json:"name"`
}

type apiEstimate struct {
	ID         int64             `json:"id"`
	JobID      int64             `json:"jobId"`
	CustomerID int64             `json:"customerId"`
	Name       string            `json:"name"`
	Status     apiEstimateStatus `json:"status"`
	Subtotal   float64           `json:"subtotal"`
	Summary    string            `json:"summary"`
	CreatedOn  time.Time         `json:"createdOn"`
}

func (e apiEstimate) toDomain() domain.Estimate {
	return domain.Estimate{
		ID:         e.ID,
		CustomerID: e.CustomerID,
		JobID:      e.JobID,
		Name:       e.Name,
		Status:     e.Status.Name,
		Subtotal:   e.Subtotal,
		Summary:    e.Summary,
		CreatedOn:  e.CreatedOn,
	}
}

func parseMoney(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
