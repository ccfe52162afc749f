package mock

import (
	"sort"
	"time"

	"github.com/DukeRupert/plumbline/internal/domain"
)

// Seed loads a small demo data set for local development.
//
// Phone 512-555-0100 belongs to two household accounts (777 and 779);
// 512-555-0142 belongs to one (888).
func (c *Client) Seed() {
	home := domain.Address{Street: "1408 Juniper St", City: "Austin", State: "TX", Zip: "78702"}
	rental := domain.Address{Street: "77 Cedar Ln", City: "Round Rock", State: "TX", Zip: "78664"}
	shop := domain.Address{Street: "9 Commerce Dr", City: "Pflugerville", State: "TX", Zip: "78660"}

	c.AddCustomer(domain.Customer{
		ID: 777, Name: "Dana Ortiz", Type: domain.CustomerTypeResidential, Active: true, Balance: 125.50,
		Address:   home,
		Contacts:  []domain.Contact{{ID: 1, Type: domain.ContactTypeMobilePhone, Value: "512-555-0100"}, {ID: 2, Type: domain.ContactTypeEmail, Value: "dana@example.com"}},
		Locations: []domain.Location{{ID: 7001, Name: "Home", Address: home}},
	})
	c.AddCustomer(domain.Customer{
		ID: 779, Name: "Ortiz Rentals LLC", Type: domain.CustomerTypeCommercial, Active: true,
		Address:   rental,
		Contacts:  []domain.Contact{{ID: 3, Type: domain.ContactTypePhone, Value: "(512) 555-0100"}},
		Locations: []domain.Location{{ID: 7002, Name: "Cedar Ln Duplex", Address: rental}},
	})
	c.AddCustomer(domain.Customer{
		ID: 888, Name: "Pflugerville Bakery", Type: domain.CustomerTypeCommercial, Active: true, Balance: 980,
		Address:   shop,
		Contacts:  []domain.Contact{{ID: 4, Type: domain.ContactTypePhone, Value: "512-555-0142"}},
		Locations: []domain.Location{{ID: 8001, Name: "Bakery", Address: shop}},
	})

	now := time.Now()
	c.AddJob(domain.Job{ID: 5001, CustomerID: 777, LocationID: 7001, Number: "J-5001", Status: "Completed", Summary: "Water heater replacement", CreatedOn: now.AddDate(0, 0, -14)})
	c.AddJob(domain.Job{ID: 5002, CustomerID: 888, LocationID: 8001, Number: "J-5002", Status: "Scheduled", Summary: "Grease trap service", CreatedOn: now.AddDate(0, 0, -2)})
	c.AddInvoice(domain.Invoice{ID: 4521, CustomerID: 777, JobID: 5001, Number: "INV-4521", Total: 1850, Balance: 125.50, Summary: "50 gal water heater", InvoicedOn: now.AddDate(0, 0, -13), DueOn: now.AddDate(0, 0, 17)})
	c.AddInvoice(domain.Invoice{ID: 9001, CustomerID: 888, JobID: 5002, Number: "INV-9001", Total: 980, Balance: 980, InvoicedOn: now.AddDate(0, 0, -1), DueOn: now.AddDate(0, 0, 29)})
	c.AddEstimate(domain.Estimate{ID: 3100, CustomerID: 777, JobID: 5001, Name: "Whole-home repipe", Status: "Open", Subtotal: 8400, CreatedOn: now.AddDate(0, 0, -10)})
	c.AddAppointment(domain.Appointment{ID: 6001, JobID: 5002, CustomerID: 888, Start: now.AddDate(0, 0, 3), End: now.AddDate(0, 0, 3).Add(2 * time.Hour), Status: "Scheduled"})
}

func sortCustomers(cs []domain.Customer) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].ID < cs[j].ID })
}
