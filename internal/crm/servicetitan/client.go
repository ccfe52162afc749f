// Package servicetitan implements crm.Client against the ServiceTitan v2 REST API.
package servicetitan

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/DukeRupert/plumbline/internal/crm"
	"github.com/DukeRupert/plumbline/internal/metrics"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	// DefaultAuthURL is the OAuth2 token endpoint host.
	DefaultAuthURL = "https://auth.servicetitan.io"

	// DefaultAPIBaseURL is the REST API host.
	DefaultAPIBaseURL = "https://api.servicetitan.io"

	// tokenRefreshSkew renews the access token this long before it expires.
	tokenRefreshSkew = time.Minute
)

// Config contains configuration for the ServiceTitan client.
type Config struct {
	TenantID       string
	AppKey         string
	ClientID       string
	ClientSecret   string
	AuthURL        string
	APIBaseURL     string
	RequestTimeout time.Duration

	// Defaults applied to jobs booked from the online scheduler.
	BusinessUnitID int64
	JobTypeID      int64
	CampaignID     int64
}

// Client implements crm.Client using ServiceTitan's REST API.
type Client struct {
	config Config
	http   *http.Client
	logger *slog.Logger

	tokens oauth2.TokenSource
}

var _ crm.Client = (*Client)(nil)

// New creates a new ServiceTitan client.
func New(config Config, logger *slog.Logger) (*Client, error) {
	if config.TenantID == "" {
		return nil, fmt.Errorf("servicetitan tenant id is required")
	}
	if config.ClientID == "" || config.ClientSecret == "" {
		return nil, fmt.Errorf("servicetitan client credentials are required")
	}
	if config.AppKey == "" {
		return nil, fmt.Errorf("servicetitan app key is required")
	}

	if config.AuthURL == "" {
		config.AuthURL = DefaultAuthURL
	}
	if config.APIBaseURL == "" {
		config.APIBaseURL = DefaultAPIBaseURL
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = 15 * time.Second
	}

	httpClient := &http.Client{Timeout: config.RequestTimeout}
	credentials := clientcredentials.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		TokenURL:     strings.TrimRight(config.AuthURL, "/") + "/connect/token",
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	// Token fetches outlive any single request, so they run on a background
	// context carrying our HTTP client.
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)

	return &Client{
		config: config,
		http:   httpClient,
		logger: logger,
		tokens: oauth2.ReuseTokenSourceWithExpiry(nil, credentials.TokenSource(tokenCtx), tokenRefreshSkew),
	}, nil
}

// token returns the current access token. The token source caches it and
// refreshes it tokenRefreshSkew before expiry.
func (c *Client) token() (string, error) {
	tok, err := c.tokens.Token()
	if err != nil {
		c.logger.Warn("servicetitan token request failed", "error", err)
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			return "", mapHTTPError("Authenticate", retrieveErr.Response.StatusCode, retrieveErr.Body)
		}
		return "", &crm.APIError{Operation: "Authenticate", StatusCode: http.StatusBadGateway, Message: err.Error()}
	}
	return tok.AccessToken, nil
}

// tenantPath builds /{module}/v2/tenant/{tenant}/{resource}.
func (c *Client) tenantPath(module, resource string) string {
	return fmt.Sprintf("%s/%s/v2/tenant/%s/%s",
		strings.TrimRight(c.config.APIBaseURL, "/"), module, url.PathEscape(c.config.TenantID), resource)
}

// do executes one API call and decodes a JSON response into out (if non-nil).
// Calls are not retried; failures surface to the caller.
func (c *Client) do(ctx context.Context, operation, method, endpoint string, query url.Values, in, out any) error {
	start := time.Now()
	status := "error"
	defer func() {
		metrics.CRMRequest(operation, status, time.Since(start))
	}()

	token, err := c.token()
	if err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", operation, err)
		}
		body = bytes.NewReader(buf)
	}

	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("ST-App-Key", c.config.AppKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &crm.APIError{Operation: operation, StatusCode: http.StatusBadGateway, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", operation, err)
	}
	status = strconv.Itoa(resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return mapHTTPError(operation, resp.StatusCode, respBody)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("unmarshal %s response: %w", operation, err)
		}
	}
	return nil
}

// mapHTTPError maps a non-2xx response to crm.ErrNotFound or *crm.APIError.
func mapHTTPError(operation string, statusCode int, body []byte) error {
	if statusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", operation, crm.ErrNotFound)
	}

	var problem problemResponse
	_ = json.Unmarshal(body, &problem)

	message := problem.Title
	if message == "" {
		message = http.StatusText(statusCode)
	}
	return &crm.APIError{
		Operation:  operation,
		StatusCode: statusCode,
		Message:    message,
		TraceID:    problem.TraceID,
	}
}
