package servicetitan

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/DukeRupert/plumbline/internal/crm"
	"github.com/DukeRupert/plumbline/internal/domain"
)

// GetJob fetches a job by id.
func (c *Client) GetJob(ctx context.Context, id int64) (*domain.Job, error) {
	var aj apiJob
	endpoint := c.tenantPath("jpm", fmt.Sprintf("jobs/%d", id))
	if err := c.do(ctx, "GetJob", http.MethodGet, endpoint, nil, nil, &aj); err != nil {
		return nil, err
	}
	job := aj.toDomain()
	return &job, nil
}

// BookJob creates a job with one appointment from the online scheduler.
func (c *Client) BookJob(ctx context.Context, params domain.BookJobParams) (*domain.Job, error) {
	req := bookJobRequest{
		CustomerID:     params.CustomerID,
		LocationID:     params.LocationID,
		BusinessUnitID: c.config.BusinessUnitID,
		JobTypeID:      c.config.JobTypeID,
		CampaignID:     c.config.CampaignID,
		Priority:       "Normal",
		Summary:        params.Summary,
		Appointments: []appointmentRequest{{
			Start:        params.Start,
			End:          params.End,
			ArrivalStart: params.Start,
			ArrivalEnd:   params.End,
		}},
	}

	var created apiJob
	if err := c.do(ctx, "BookJob", http.MethodPost, c.tenantPath("jpm", "jobs"), nil, req, &created); err != nil {
		return nil, err
	}
	job := created.toDomain()
	return &job, nil
}

// GetAppointment fetches an appointment by id.
func (c *Client) GetAppointment(ctx context.Context, id int64) (*domain.Appointment, error) {
	var aa apiAppointment
	endpoint := c.tenantPath("jpm", fmt.Sprintf("appointments/%d", id))
	if err := c.do(ctx, "GetAppointment", http.MethodGet, endpoint, nil, nil, &aa); err != nil {
		return nil, err
	}
	appt := aa.toDomain()
	return &appt, nil
}

// RescheduleAppointment moves an appointment to a new window.
func (c *Client) RescheduleAppointment(ctx context.Context, id int64, start, end time.Time) error {
	endpoint := c.tenantPath("jpm", fmt.Sprintf("appointments/%d/reschedule", id))
	return c.do(ctx, "RescheduleAppointment", http.MethodPatch, endpoint, nil, rescheduleRequest{Start: start, End: end}, nil)
}

// GetInvoice fetches an invoice. The accounting API only exposes list
// queries, so the invoice is requested by id filter.
func (c *Client) GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error) {
	q := url.Values{}
	q.Set("ids", strconv.FormatInt(id, 10))

	var resp page[apiInvoice]
	if err := c.do(ctx, "GetInvoice", http.MethodGet, c.tenantPath("accounting", "invoices"), q, nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("GetInvoice: %w", crm.ErrNotFound)
	}
	inv := resp.Data[0].toDomain()
	return &inv, nil
}

// GetEstimate fetches an estimate by id.
func (c *Client) GetEstimate(ctx context.Context, id int64) (*domain.Estimate, error) {
	var ae apiEstimate
	endpoint := c.tenantPath("sales", fmt.Sprintf("estimates/%d", id))
	if err := c.do(ctx, "GetEstimate", http.MethodGet, endpoint, nil, nil, &ae); err != nil {
		return nil, err
	}
	est := ae.toDomain()
	return &est, nil
}
