// Package flowpilot is the REST client for the FlowPilot backend, the
// workflow-automation service the copilot fronts.  Every call authenticates
// with the X-User-Id header; Reidentify swaps the identity the client acts
// as, which is how the change_name action takes effect.
package flowpilot

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
	"strings"
	"sync"
	"time"

	"github.com/flowpilot-ai/copilot/common/retry"
)

// ErrNotFound is returned when the backend reports 404 for a resource.
var ErrNotFound = errors.New("flowpilot: not found")

const defaultTimeout = 60 * time.Second

// Client talks to one FlowPilot backend on behalf of one user identity.
// It is safe for concurrent use; Reidentify atomically swaps the identity
// used by subsequent requests.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu     sync.RWMutex
	userID string
}

// New creates a client for the backend at baseURL acting as userID.
func New(baseURL, userID string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userID:     userID,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// UserID returns the identity the client currently acts as.
func (c *Client) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// readRetry retries idempotent GETs on transient failures.  404s are final.
var readRetry = retry.Config{
	MaxAttempts:  3,
	InitialDelay: 300 * time.Millisecond,
	MaxDelay:     2 * time.Second,
	ShouldRetry:  func(err error) bool { return !errors.Is(err, ErrNotFound) },
}

// PlanSteps asks the backend's planner to turn a free-text description into
// an ordered list of automation steps.
func (c *Client) PlanSteps(ctx context.Context, description string) ([]Step, error) {
	var out struct {
		Steps []Step `json:"steps"`
	}
	err := c.do(ctx, http.MethodPost, "/api/workflows/plan",
		map[string]string{"description": description}, &out)
	if err != nil {
		return nil, err
	}
	return out.Steps, nil
}

// CreateWorkflow creates a workflow and returns the created resource.
func (c *Client) CreateWorkflow(ctx context.Context, req CreateWorkflowRequest) (*Workflow, error) {
	var out Workflow
	if err := c.do(ctx, http.MethodPost, "/api/workflows", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetWorkflow fetches one workflow including its steps.
func (c *Client) GetWorkflow(ctx context.Context, id string) (*Workflow, error) {
	var out Workflow
	err := retry.Do(ctx, readRetry, func() error {
		return c.do(ctx, http.MethodGet, "/api/workflows/"+url.PathEscape(id), nil, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListWorkflows lists the user's workflows, newest first.
func (c *Client) ListWorkflows(ctx context.Context) ([]Workflow, error) {
	var out []Workflow
	err := retry.Do(ctx, readRetry, func() error {
		return c.do(ctx, http.MethodGet, "/api/workflows", nil, &out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteWorkflow deletes a workflow.
func (c *Client) DeleteWorkflow(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/workflows/"+url.PathEscape(id), nil, nil)
}

// TriggerRun starts a run of the workflow and returns the run ID.
func (c *Client) TriggerRun(ctx context.Context, workflowID string) (string, error) {
	var out struct {
		RunID  string `json:"run_id"`
		Status string `json:"status"`
	}
	err := c.do(ctx, http.MethodPost,
		"/api/workflows/"+url.PathEscape(workflowID)+"/run", nil, &out)
	if err != nil {
		return "", err
	}
	return out.RunID, nil
}

// AbortRun aborts an in-flight run.
func (c *Client) AbortRun(ctx context.Context, runID string) error {
	return c.do(ctx, http.MethodPost, "/api/runs/"+url.PathEscape(runID)+"/abort", nil, nil)
}

// PublishTemplate publishes a workflow as a shared template under category.
func (c *Client) PublishTemplate(ctx context.Context, workflowID, category string) error {
	return c.do(ctx, http.MethodPost,
		"/api/templates/publish/"+url.PathEscape(workflowID),
		map[string]string{"category": category}, nil)
}

// UseTemplate instantiates a workflow from a template and returns it.
func (c *Client) UseTemplate(ctx context.Context, templateID string) (*Workflow, error) {
	var out Workflow
	err := c.do(ctx, http.MethodPost,
		"/api/templates/use/"+url.PathEscape(templateID), nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateInsights analyses extracted result data in scope and returns
// findings plus a summary line.
func (c *Client) GenerateInsights(ctx context.Context, scope InsightScope) (*InsightsReport, error) {
	var out InsightsReport
	if err := c.do(ctx, http.MethodPost, "/api/insights/generate", scope, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetAIStatus reports the backend's AI engine connection status.
func (c *Client) GetAIStatus(ctx context.Context) (*AIStatus, error) {
	var out AIStatus
	err := retry.Do(ctx, readRetry, func() error {
		return c.do(ctx, http.MethodGet, "/api/workflows/ai/status", nil, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRunSummary fetches the natural-language summary of a run.
func (c *Client) GetRunSummary(ctx context.Context, runID string) (*RunSummary, error) {
	var out RunSummary
	err := retry.Do(ctx, readRetry, func() error {
		return c.do(ctx, http.MethodGet, "/api/runs/"+url.PathEscape(runID)+"/summary", nil, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Reidentify finds or creates the user with the given name and switches the
// client to that identity.  All subsequent requests act as the new user.
func (c *Client) Reidentify(ctx context.Context, name string) (*User, error) {
	var out User
	err := c.do(ctx, http.MethodPost, "/api/users/enter",
		map[string]string{"name": name}, &out)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.userID = out.ID
	c.mu.Unlock()

	slog.Info("flowpilot: switched identity", "user", out.Name, "new", out.IsNew)
	return &out, nil
}

// do performs one JSON request.  A non-nil body is marshalled; a non-nil out
// receives the decoded response.  404 maps to ErrNotFound.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling %s %s body: %w", method, path, err)
		}
		payload = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("building %s %s request: %w", method, path, err)
	}
	req.Header.Set("X-User-Id", c.UserID())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: unexpected status %d: %s",
			method, path, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding %s %s response: %w", method, path, err)
		}
	}
	return nil
}
