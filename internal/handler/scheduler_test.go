package handler_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/plumbline/internal/domain"
)

func TestScheduler_Lookup(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/scheduler/lookup", "", map[string]string{"phone": "512-555-0100"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result domain.ResolveResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.True(t, result.MultipleMatches)
	assert.Len(t, result.Candidates, 2)
	assert.NotContains(t, rec.Body.String(), "Juniper", "street never leaves the server")

	rec = h.do(http.MethodPost, "/api/scheduler/lookup", "", map[string]string{"phone": "512-555-0199", "customerType": "Commercial"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.True(t, result.IsNewCustomer)
	assert.Equal(t, 1, h.crm.CreateCustomerCalls)
}

func TestScheduler_BookEndsSession(t *testing.T) {
	h := newHarness(t)
	v := h.verifyPhone("/api/scheduler", "512-555-0142")
	assert.Equal(t, int64(888), v.CustomerID)

	start := time.Now().Add(48 * time.Hour).Truncate(time.Hour)
	book := map[string]any{
		"locationId": 8001,
		"summary":    "Kitchen sink backing up",
		"start":      start,
		"end":        start.Add(2 * time.Hour),
	}

	foreign := map[string]any{"locationId": 7001, "summary": "x", "start": start, "end": start.Add(time.Hour)}
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodPost, "/api/scheduler/book", v.Token, foreign).Code)
	assert.Equal(t, 0, h.crm.BookJobCalls)

	rec := h.do(http.MethodPost, "/api/scheduler/book", v.Token, book)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 1, h.crm.BookJobCalls)

	var job domain.Job
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&job))
	assert.Equal(t, int64(888), job.CustomerID)

	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodPost, "/api/scheduler/book", v.Token, book).Code)
}

func TestScheduler_Reschedule(t *testing.T) {
	h := newHarness(t)
	v := h.verifyPhone("/api/scheduler", "512-555-0142")

	start := time.Now().Add(72 * time.Hour).Truncate(time.Hour)
	window := map[string]any{"start": start, "end": start.Add(2 * time.Hour)}

	rec := h.do(http.MethodPost, "/api/scheduler/appointments/6001/reschedule", v.Token, window)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	appt, ok := h.crm.Appointment(6001)
	require.True(t, ok)
	assert.True(t, appt.Start.Equal(start))

	backwards := map[string]any{"start": start, "end": start.Add(-time.Hour)}
	rec = h.do(http.MethodPost, "/api/scheduler/appointments/6001/reschedule", v.Token, backwards)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/api/scheduler/appointments/999999/reschedule", v.Token, window)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestScheduler_RescheduleReportsEveryMissingField(t *testing.T) {
	h := newHarness(t)
	v := h.verifyPhone("/api/scheduler", "512-555-0142")

	rec := h.do(http.MethodPost, "/api/scheduler/appointments/6001/reschedule", v.Token, map[string]any{})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeError(t, rec)
	assert.Equal(t, domain.EINVALID, body.Error.Code)
	assert.Equal(t, map[string]string{"start": "is required", "end": "is required"}, body.Error.Fields)
}
