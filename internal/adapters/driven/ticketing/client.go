// Package ticketing is the remote ticket store adapter. It speaks
// the ticketing deployment's JSON API and maps its error surface
// onto the domain sentinels the core acts on.
package ticketing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// maxErrorBody caps how much of an error response body is read.
	maxErrorBody = 4096
)

// ClientConfig configures the ticketing API client.
type ClientConfig struct {
	// BaseURL is the API root, e.g. "https://tickets.example.gov".
	BaseURL string

	// Token is the bearer token; empty means unauthenticated.
	Token string

	// MinInterval is the minimum spacing between calls.
	// Zero means DefaultMinInterval.
	MinInterval time.Duration

	// Timeout is the per-request timeout. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Client is a thin JSON client for the ticketing API with shared
// call pacing.
type Client struct {
	baseURL string
	http    *http.Client
	pacer   *Pacer
}

// NewClient creates a ticketing API client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var hc *http.Client
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		hc = oauth2.NewClient(context.Background(), ts)
	} else {
		hc = &http.Client{}
	}
	hc.Timeout = timeout

	return &Client{
		baseURL: cfg.BaseURL,
		http:    hc,
		pacer:   NewPacer(cfg.MinInterval),
	}
}

// ticketPayload is the wire shape of one ticket.
type ticketPayload struct {
	ID     string            `json:"id"`
	CaseID string            `json:"case_id"`
	Fields map[string]string `json:"fields"`
}

// searchResponse is the wire shape of a search result page.
type searchResponse struct {
	Tickets []ticketPayload `json:"tickets"`
}

// errorResponse is the wire shape of an API error body.
type errorResponse struct {
	Error string `json:"error"`
}

// searchTickets queries tickets filed under a case number.
func (c *Client) searchTickets(ctx context.Context, caseID string, includeClosed bool, limit int) ([]ticketPayload, error) {
	q := url.Values{}
	q.Set("case_id", caseID)
	q.Set("include_closed", strconv.FormatBool(includeClosed))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var result searchResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/tickets?"+q.Encode(), nil, &result); err != nil {
		return nil, err
	}
	return result.Tickets, nil
}

// getTicket fetches one ticket by ID.
func (c *Client) getTicket(ctx context.Context, id string) (*ticketPayload, error) {
	var result ticketPayload
	if err := c.do(ctx, http.MethodGet, "/api/v1/tickets/"+url.PathEscape(id), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// updateTicket applies a partial field update to one ticket.
func (c *Client) updateTicket(ctx context.Context, id string, fields map[string]string) error {
	body := struct {
		Fields map[string]string `json:"fields"`
	}{Fields: fields}

	return c.do(ctx, http.MethodPatch, "/api/v1/tickets/"+url.PathEscape(id), body, nil)
}

// do issues one paced JSON request and decodes the response into out
// when out is non-nil. Non-2xx responses become *APIError.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.pacer.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readAPIError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// readAPIError builds an *APIError from a non-2xx response.
func readAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err == nil && len(raw) > 0 {
		var parsed errorResponse
		if json.Unmarshal(raw, &parsed) == nil && parsed.Error != "" {
			apiErr.Message = parsed.Error
		}
	}
	return apiErr
}
