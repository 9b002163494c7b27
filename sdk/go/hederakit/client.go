// Package hederakit is a Go client for the hederakit REST API.
package hederakit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"sync"
	"time"
)

// DefaultHTTPTimeout defines the timeout used by clients created without a
// custom http.Client. Synchronous topic queries wait on the mirror node, so
// it is longer than a typical REST call.
const DefaultHTTPTimeout = 60 * time.Second

// Client wraps the HTTP interactions with the hederakit REST API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client

	mu          sync.RWMutex
	accessToken string
}

// Tool describes one entry of the tool catalogue.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// Envelope carries the status fields shared by every tool result. The raw
// envelope keeps the tool specific fields.
type Envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Code    string          `json:"code,omitempty"`
	Raw     json.RawMessage `json:"-"`
}

// OK reports whether the tool succeeded.
func (e Envelope) OK() bool { return e.Status == "success" }

// Decode unmarshals the full envelope into v.
func (e Envelope) Decode(v any) error { return json.Unmarshal(e.Raw, v) }

// JobSubmission represents the payload required to queue a tool call.
type JobSubmission struct {
	ID    string          `json:"id,omitempty"`
	Tool  string          `json:"tool"`
	Input json.RawMessage `json:"input,omitempty"`
}

// Job mirrors the server side job record.
type Job struct {
	ID         string          `json:"id"`
	Tool       string          `json:"tool"`
	Input      json.RawMessage `json:"input"`
	Status     string          `json:"status"`
	Attempts   int             `json:"attempts"`
	MaxRetries int             `json:"max_retries"`
	LastError  string          `json:"last_error,omitempty"`
	ErrorCode  string          `json:"error_code,omitempty"`
	Output     json.RawMessage `json:"output,omitempty"`
	CreatedAt  int64           `json:"created_at"`
	UpdatedAt  int64           `json:"updated_at"`
}

// Done reports whether the job reached a terminal status.
func (j Job) Done() bool { return j.Status == "succeeded" || j.Status == "failed" }

// Call is one entry of the invocation journal.
type Call struct {
	ID         string `json:"id"`
	Tool       string `json:"tool"`
	Input      string `json:"input"`
	Status     string `json:"status"`
	Code       string `json:"code,omitempty"`
	Output     string `json:"output"`
	DurationMS int64  `json:"duration_ms"`
	CreatedAt  int64  `json:"created_at"`
}

// APIError represents server side validation or internal errors.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.Code != "" {
		return fmt.Sprintf("hederakit api error (%d): %s - %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("hederakit api error (%d): %s", e.StatusCode, e.Message)
}

// NewClient instantiates a client for the hederakit API. When httpClient is
// nil, a default client with a sensible timeout is used.
func NewClient(rawURL string, httpClient *http.Client) (*Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", rawURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Client{baseURL: parsed, httpClient: httpClient}, nil
}

// AccessToken returns the currently stored token string.
func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

// SetAccessToken sets the bearer token sent with every request. An empty
// token disables the Authorization header.
func (c *Client) SetAccessToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = token
}

// ListTools fetches the tool catalogue.
func (c *Client) ListTools(ctx context.Context) ([]Tool, error) {
	var out []Tool
	if err := c.get(ctx, "/api/v1/tools", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// InvokeTool calls a tool synchronously. Error envelopes are returned as data
// with a nil error; only transport failures and unknown tools yield errors.
func (c *Client) InvokeTool(ctx context.Context, name string, input json.RawMessage) (Envelope, error) {
	if len(input) == 0 {
		input = json.RawMessage("{}")
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/tools/"+name, nil, bytes.NewReader(input))
	if err != nil {
		return Envelope{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	var raw json.RawMessage
	if err := c.do(req, &raw); err != nil {
		return Envelope{}, err
	}
	env := Envelope{Raw: raw}
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}

// SubmitJob queues a tool call for asynchronous execution.
func (c *Client) SubmitJob(ctx context.Context, submission JobSubmission) (Job, error) {
	var job Job
	if err := c.post(ctx, "/api/v1/jobs", submission, &job); err != nil {
		return Job{}, err
	}
	return job, nil
}

// GetJob fetches a job by identifier.
func (c *Client) GetJob(ctx context.Context, id string) (Job, error) {
	var job Job
	if err := c.get(ctx, "/api/v1/jobs/"+id, nil, &job); err != nil {
		return Job{}, err
	}
	return job, nil
}

// WaitForJob polls GetJob until the job finishes or ctx ends.
func (c *Client) WaitForJob(ctx context.Context, id string, interval time.Duration) (Job, error) {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		job, err := c.GetJob(ctx, id)
		if err != nil {
			return Job{}, err
		}
		if job.Done() {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return Job{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// ListCalls returns the most recent journal entries.
func (c *Client) ListCalls(ctx context.Context, limit int) ([]Call, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var out []Call
	if err := c.get(ctx, "/api/v1/calls", query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, nil, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, query, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, query url.Values, body io.Reader) (*http.Request, error) {
	u := *c.baseURL
	u.Path = path.Join(c.baseURL.Path, endpoint)
	u.RawPath = ""
	u.RawQuery = query.Encode()
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if token := c.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if len(data) > 0 {
			_ = json.Unmarshal(data, apiErr)
		}
		if apiErr.Message == "" {
			apiErr.Message = string(bytes.TrimSpace(data))
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
