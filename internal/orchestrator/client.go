package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lead-outreach-driver/internal/leads"
	"lead-outreach-driver/internal/observability"
)

// StatusError is a non-success response from the engine. It keeps the raw
// status and body for diagnostics.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.Code, e.Body)
}

// Client wraps the orchestration service's process API. All calls are
// synchronous; failures come back as errors so callers can keep iterating
// over remaining leads.
type Client struct {
	base     string
	workflow string
	http     *http.Client
}

func New(baseURL, workflow string, timeout time.Duration) *Client {
	return &Client{
		base:     strings.TrimRight(baseURL, "/"),
		workflow: workflow,
		http:     &http.Client{Timeout: timeout},
	}
}

func (c *Client) url(path string) string { return c.base + path }

// Start submits one lead as the initial input of a new process and returns
// the engine-issued process id.
func (c *Client) Start(ctx context.Context, lead leads.Lead) (string, error) {
	defer observe("start", time.Now())
	payload := []map[string]any{{"lead": lead}}
	body, resp, err := c.do(ctx, http.MethodPost, c.url("/api/processes/"+c.workflow), payload)
	if err != nil {
		return "", fmt.Errorf("start workflow: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", &StatusError{Op: "start workflow", Code: resp.StatusCode, Body: truncate(body)}
	}

	var data struct {
		ID        string `json:"id"`
		ProcessID string `json:"process_id"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return "", fmt.Errorf("invalid JSON in start response: %s", truncate(body))
	}
	pid := data.ID
	if pid == "" {
		pid = data.ProcessID
	}
	if pid == "" {
		return "", fmt.Errorf("no process id in start response: %s", truncate(body))
	}
	return pid, nil
}

// Fetch retrieves the engine's current view of a process.
func (c *Client) Fetch(ctx context.Context, pid string) (*Process, error) {
	defer observe("fetch", time.Now())
	body, resp, err := c.do(ctx, http.MethodGet, c.url("/api/processes/"+pid), nil)
	if err != nil {
		return nil, fmt.Errorf("fetch process: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Op: "fetch process", Code: resp.StatusCode, Body: truncate(body)}
	}
	var p Process
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("invalid JSON in process response: %s", truncate(body))
	}
	return &p, nil
}

// Resume submits the human decision for a suspended process. The engine
// answers 204 No Content on success; anything else is an error.
func (c *Client) Resume(ctx context.Context, pid string, approved bool) error {
	defer observe("resume", time.Now())
	payload := []map[string]any{{"approved": approved}}
	body, resp, err := c.do(ctx, http.MethodPut, c.url("/api/processes/"+pid+"/resume"), payload)
	if err != nil {
		return fmt.Errorf("resume process: %w", err)
	}
	if resp.StatusCode != http.StatusNoContent {
		return &StatusError{Op: "resume process", Code: resp.StatusCode, Body: truncate(body)}
	}
	return nil
}

// Abort requests cancellation of a process. Best-effort from the caller's
// point of view; the engine accepts with 200 or 204.
func (c *Client) Abort(ctx context.Context, pid string) error {
	defer observe("abort", time.Now())
	body, resp, err := c.do(ctx, http.MethodPost, c.url("/api/processes/"+pid+"/abort"), nil)
	if err != nil {
		return fmt.Errorf("abort process: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return &StatusError{Op: "abort process", Code: resp.StatusCode, Body: truncate(body)}
	}
	return nil
}

// WaitForCompletion polls until the process leaves running/suspended or the
// timeout elapses. On timeout it returns the last seen snapshot, which may
// still be running; on fetch error it returns nil. Callers must treat the
// whole call as best-effort.
func (c *Client) WaitForCompletion(ctx context.Context, pid string, timeout, interval time.Duration) *Process {
	deadline := time.Now().Add(timeout)
	var last *Process
	for time.Now().Before(deadline) {
		p, err := c.Fetch(ctx, pid)
		if err != nil {
			return nil
		}
		last = p
		if p.Terminal() {
			return p
		}
		select {
		case <-ctx.Done():
			return last
		case <-time.After(interval):
		}
	}
	return last
}

func (c *Client) do(ctx context.Context, method, url string, payload any) ([]byte, *http.Response, error) {
	var rd io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}
	return body, resp, nil
}

func observe(op string, start time.Time) {
	observability.EngineCallDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func truncate(b []byte) string {
	s := string(b)
	if len(s) > 200 {
		return s[:200]
	}
	return s
}
