// Package monday implements the board API client against the monday.com
// GraphQL endpoint.
package monday

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mesh-intelligence/eric/pkg/types"
)

// Defaults for New.
const (
	DefaultEndpoint = "https://api.monday.com/v2"
	APIVersion      = "2024-10"
	DefaultPageSize = 100
	defaultTimeout  = 30 * time.Second
)

// APIError is returned when the API answers with a non-2xx status or a
// GraphQL error list.
type APIError struct {
	StatusCode int
	Messages   []string
}

func (e *APIError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("monday api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("monday api: status %d: %s", e.StatusCode, strings.Join(e.Messages, "; "))
}

// Client implements types.UpstreamClient. It is safe for concurrent use.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
	pageSize int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithPageSize sets how many items are requested per page.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// New returns a client for endpoint ("" selects DefaultEndpoint)
// authenticating with token.
func New(endpoint, token string, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	c := &Client{
		endpoint: endpoint,
		token:    token,
		http:     &http.Client{Timeout: defaultTimeout},
		pageSize: DefaultPageSize,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type response struct {
	Data         json.RawMessage `json:"data"`
	Errors       []gqlError      `json:"errors"`
	ErrorMessage string          `json:"error_message"`
}

type gqlError struct {
	Message string `json:"message"`
}

// do posts one GraphQL operation and decodes its data into out.
func (c *Client) do(ctx context.Context, query string, vars map[string]any, out any) error {
	body, err := json.Marshal(request{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.token)
	req.Header.Set("API-Version", APIVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	var r response
	decodeErr := json.Unmarshal(raw, &r)

	if resp.StatusCode/100 != 2 || len(r.Errors) > 0 || r.ErrorMessage != "" {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		for _, e := range r.Errors {
			apiErr.Messages = append(apiErr.Messages, e.Message)
		}
		if r.ErrorMessage != "" {
			apiErr.Messages = append(apiErr.Messages, r.ErrorMessage)
		}
		return apiErr
	}
	if decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(r.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

var _ types.UpstreamClient = (*Client)(nil)
