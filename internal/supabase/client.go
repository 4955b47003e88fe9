// Package supabase talks to a Supabase-style backend: the GoTrue auth API
// under /auth/v1 and the PostgREST data API under /rest/v1.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/MrSnakeDoc/marktrabit/internal/utils"
)

const (
	authPrefix = "/auth/v1"
	restPrefix = "/rest/v1"

	// maxErrorBody caps how much of an error response is read.
	maxErrorBody = 64 << 10
)

// APIError is a non-2xx response from the service.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase: HTTP %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("supabase: HTTP %d: %s", e.Status, e.Message)
}

// IsUnauthorized reports whether err is a 401/403 from the service.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden
	}
	return false
}

// Options configures a Client.
type Options struct {
	BaseURL string        // ex: https://project.supabase.co
	AnonKey string        // public API key sent as "apikey"
	Timeout time.Duration // transport-level ceiling; callers still pass deadlines
	Table   string        // bookmark table, default "bookmarks"
	Traced  bool          // wrap the transport with otelhttp
}

// Client is the HTTP client for one project.
type Client struct {
	baseURL    string
	anonKey    string
	table      string
	httpClient *http.Client
}

// New creates a new API client.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	table := opts.Table
	if table == "" {
		table = "bookmarks"
	}

	var transport http.RoundTripper = http.DefaultTransport
	if opts.Traced {
		transport = otelhttp.NewTransport(transport)
	}

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		anonKey: opts.AnonKey,
		table:   table,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// request describes one call.
type request struct {
	method  string
	path    string
	query   url.Values
	token   string // bearer token, anon key when empty
	body    any
	headers map[string]string
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	var body io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	token := r.token
	if token == "" {
		token = c.anonKey
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", r.method, r.path, err)
	}
	return nil
}

// errorBody covers the shapes GoTrue and PostgREST use.
type errorBody struct {
	Code             any    `json:"code"`
	ErrorCode        string `json:"error_code"`
	Message          string `json:"message"`
	Msg              string `json:"msg"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Details          string `json:"details"`
	Hint             string `json:"hint"`
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var eb errorBody
	if err := json.Unmarshal(data, &eb); err != nil {
		apiErr.Message = strings.TrimSpace(string(data))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	switch {
	case eb.ErrorCode != "":
		apiErr.Code = eb.ErrorCode
	case eb.Error != "":
		apiErr.Code = eb.Error
	}
	if s, ok := eb.Code.(string); ok && s != "" {
		apiErr.Code = s
	}

	for _, m := range []string{eb.Message, eb.Msg, eb.ErrorDescription, eb.Error} {
		if m != "" {
			apiErr.Message = m
			break
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	if eb.Details != "" {
		apiErr.Message += " (" + eb.Details + ")"
	}

	return apiErr
}
