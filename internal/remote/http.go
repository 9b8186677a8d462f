package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single HTTP request when the caller's context
// carries no deadline of its own.
const DefaultTimeout = 10 * time.Second

// Client talks to the fleetsync collection API over HTTP.
//
// The wire surface is POST /v1/collections/<name>/records with a JSON body
// of record fields, answered by a {"data": {...}} envelope on success or
// {"error": "..."} on failure. Requests carry a bearer token when one is
// configured.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithToken sets the bearer token sent on every request.
func WithToken(token string) ClientOption {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// NewClient creates a Client for the API at baseURL (no trailing slash
// required).
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope is the response body shape shared by success and failure.
type envelope struct {
	Data  map[string]any `json:"data"`
	Error string         `json:"error"`
}

// Insert implements Store.
func (c *Client) Insert(ctx context.Context, collection string, fields map[string]any) (Record, error) {
	body, err := json.Marshal(fields)
	if err != nil {
		return Record{}, fmt.Errorf("marshal fields: %w", err)
	}

	url := fmt.Sprintf("%s/v1/collections/%s/records", c.baseURL, collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Record{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Record{}, fmt.Errorf("insert %s: %w", collection, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 300 {
			return Record{}, &Error{StatusCode: resp.StatusCode}
		}
		return Record{}, fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode >= 300 || env.Error != "" {
		return Record{}, &Error{StatusCode: resp.StatusCode, Message: env.Error}
	}

	id, _ := env.Data["id"].(string)
	if id == "" {
		return Record{}, fmt.Errorf("insert %s: response missing record id", collection)
	}

	return Record{ID: id, Fields: env.Data}, nil
}
