package servicetitan

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/DukeRupert/plumbline/internal/crm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, tokenCalls *int32) (*httptest.Server, *Client) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /connect/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(tokenCalls, 1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		assert.Equal(t, "id", r.Form.Get("client_id"))
		assert.Equal(t, "secret", r.Form.Get("client_secret"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 900})
	})
	mux.HandleFunc("GET /crm/v2/tenant/123/customers", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "app-key", r.Header.Get("ST-App-Key"))
		assert.Equal(t, "5125550100", r.URL.Query().Get("phone"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"page": 1, "pageSize": 50, "hasMore": false,
			"data": []map[string]any{
				{"id": 777, "active": true, "name": "Dana Ortiz", "type": "Residential",
					"address": map[string]any{"street": "1 Elm", "city": "Austin", "state": "TX", "zip": "78701"}},
				{"id": 778, "active": false, "name": "Old Record", "type": "Residential"},
			},
		})
	})
	mux.HandleFunc("GET /accounting/v2/tenant/123/invoices", func(w http.ResponseWriter, r *http.Request) {
		data := []map[string]any{}
		if r.URL.Query().Get("ids") == "4521" {
			data = append(data, map[string]any{
				"id": 4521, "referenceNumber": "INV-4521", "customer": map[string]any{"id": 777},
				"total": "250.00", "balance": "125.50",
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	})
	mux.HandleFunc("GET /jpm/v2/tenant/123/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "503" {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]any{"title": "Service unavailable", "status": 503, "traceId": "trace-abc"})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := New(Config{
		TenantID:     "123",
		AppKey:       "app-key",
		ClientID:     "id",
		ClientSecret: "secret",
		AuthURL:      srv.URL,
		APIBaseURL:   srv.URL,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return srv, client
}

func TestNew_RequiresCredentials(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := New(Config{}, logger)
	assert.Error(t, err)
	_, err = New(Config{TenantID: "1", ClientID: "a", ClientSecret: "b"}, logger)
	assert.Error(t, err)
}

func TestFindCustomersByPhone_FiltersInactive(t *testing.T) {
	var tokenCalls int32
	_, client := newTestServer(t, &tokenCalls)

	customers, err := client.FindCustomersByPhone(context.Background(), "5125550100")
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, int64(777), customers[0].ID)
	assert.Equal(t, "Austin", customers[0].Address.City)

	// Token is cached across calls.
	_, err = client.FindCustomersByPhone(context.Background(), "5125550100")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&tokenCalls))
}

func TestGetInvoice(t *testing.T) {
	var tokenCalls int32
	_, client := newTestServer(t, &tokenCalls)

	inv, err := client.GetInvoice(context.Background(), 4521)
	require.NoError(t, err)
	assert.Equal(t, int64(777), inv.CustomerID)
	assert.InDelta(t, 125.50, inv.Balance, 0.001)
	assert.Equal(t, int64(12550), inv.BalanceCents())

	_, err = client.GetInvoice(context.Background(), 1)
	assert.True(t, errors.Is(err, crm.ErrNotFound))
}

func TestErrorMapping(t *testing.T) {
	var tokenCalls int32
	_, client := newTestServer(t, &tokenCalls)

	_, err := client.GetJob(context.Background(), 404)
	assert.True(t, errors.Is(err, crm.ErrNotFound))

	_, err = client.GetJob(context.Background(), 503)
	var apiErr *crm.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, "trace-abc", crm.TraceID(err))
}

func TestToken_SharedAcrossConcurrentCalls(t *testing.T) {
	var tokenCalls int32
	_, client := newTestServer(t, &tokenCalls)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.FindCustomersByPhone(context.Background(), "5125550100")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&tokenCalls))
}

func TestToken_RejectedCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /connect/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "invalid_client", "title": "Invalid client"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := New(Config{
		TenantID:     "123",
		AppKey:       "app-key",
		ClientID:     "id",
		ClientSecret: "wrong",
		AuthURL:      srv.URL,
		APIBaseURL:   srv.URL,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	_, err = client.GetJob(context.Background(), 1)
	var apiErr *crm.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Authenticate", apiErr.Operation)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}
