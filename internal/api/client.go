package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"yt2mp3/internal/shared"
)

// SessionState is the slice of the session store the gateway needs: the
// current token and the invalidation reaction to a rejected one.
type SessionState interface {
	Token() string
	Invalidate()
}

// Client provides classified HTTP access to the backend REST surface.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    SessionState
	limiter    *rate.Limiter
	logger     *log.Logger
}

// NewClient creates a gateway for the given base URL. A nil httpClient falls
// back to [http.DefaultClient]; session may be nil for unauthenticated use.
func NewClient(baseURL string, httpClient *http.Client, session SessionState, logger *log.Logger) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		session:    session,
		// Pollers share this limiter, so a burst of concurrent jobs cannot
		// flood the backend.
		limiter: rate.NewLimiter(rate.Limit(10), 10),
		logger:  logger,
	}
}

// Response represents a classified 2xx API response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// Request performs an HTTP request against the backend and classifies the
// result. body is JSON-marshaled when non-nil.
//
// A 401 invalidates the session first, then fails with
// [shared.ErrSessionInvalidated]. Any other non-2xx fails with
// [shared.ErrRequestFailed] carrying the structured error detail when the
// body has one. Network failures fail with [shared.ErrTransport].
func (c *Client) Request(ctx context.Context, method, path string, body any) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("request canceled: %w", err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.session != nil {
		if token := c.session.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		// Invalidate before propagating, so callers never race a
		// half-logged-out state.
		if c.session != nil {
			c.session.Invalidate()
		}
		c.logger.Debug("session rejected by server", "path", path)
		return nil, shared.ErrSessionInvalidated
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s", shared.ErrRequestFailed, errorMessage(raw))
	}

	out := &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       raw,
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		var data any
		if err := json.Unmarshal(raw, &data); err == nil {
			out.IsJSON = true
			out.JSONData = data
		}
	}

	return out, nil
}

// Get performs a GET request to the specified path.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Request(ctx, http.MethodGet, path, nil)
}

// Delete performs a DELETE request to the specified path.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Request(ctx, http.MethodDelete, path, nil)
}

// GetJSON performs a GET request and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	resp, err := c.Get(ctx, path)
	if err != nil {
		return err
	}
	return decodeInto(resp, out)
}

// PostJSON performs a POST request with a JSON body and decodes the JSON
// response into out. out may be nil when the response body is irrelevant.
func (c *Client) PostJSON(ctx context.Context, path string, body, out any) error {
	resp, err := c.Request(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	return decodeInto(resp, out)
}

// FileURL builds the token-qualified retrieval URL for a ready job. The
// binary endpoint authenticates via query parameter because plain
// link-style navigation cannot attach headers.
func (c *Client) FileURL(id string) string {
	u := c.baseURL + "/download/" + url.PathEscape(id)
	if c.session != nil {
		if token := c.session.Token(); token != "" {
			u += "?token=" + url.QueryEscape(token)
		}
	}
	return u
}

// BaseURL returns the backend base URL the client was configured with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func decodeInto(resp *Response, out any) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// errorMessage extracts the backend's structured "detail" field when present,
// falling back to the raw body text.
func errorMessage(body []byte) string {
	var structured struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(body, &structured); err == nil {
		if s, ok := structured.Detail.(string); ok && s != "" {
			return s
		}
	}
	if len(body) == 0 {
		return "request failed"
	}
	return string(body)
}
