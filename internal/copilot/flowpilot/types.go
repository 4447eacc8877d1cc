package flowpilot

import (
	"encoding/json"
	"fmt"
)

// Workflow is the backend's workflow resource.
type Workflow struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	StepsJSON     string   `json:"steps_json,omitempty"`
	VariablesJSON string   `json:"variables_json,omitempty"`
	TriggerType   string   `json:"trigger_type"`
	ScheduleCron  string   `json:"schedule_cron,omitempty"`
	Status        string   `json:"status"`
	CreatedAt     string   `json:"created_at"`
	UpdatedAt     string   `json:"updated_at"`
	LastRun       *RunInfo `json:"last_run,omitempty"`
	RunCount      int      `json:"run_count"`
}

// RunInfo is the compact last-run record embedded in workflow responses.
type RunInfo struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// StepCount reports how many steps the workflow's plan holds.  Malformed
// steps JSON counts as zero rather than erroring; the field is display-only.
func (w Workflow) StepCount() int {
	if w.StepsJSON == "" {
		return 0
	}
	var steps []json.RawMessage
	if err := json.Unmarshal([]byte(w.StepsJSON), &steps); err != nil {
		return 0
	}
	return len(steps)
}

// Step is one planned automation step.
type Step struct {
	StepNumber  int    `json:"step_number,omitempty"`
	Action      string `json:"action"`
	Target      string `json:"target,omitempty"`
	Value       string `json:"value,omitempty"`
	Description string `json:"description,omitempty"`
	Condition   string `json:"condition,omitempty"`
}

// EncodeSteps serialises a plan into the steps_json wire form the workflow
// endpoints expect.
func EncodeSteps(steps []Step) (string, error) {
	b, err := json.Marshal(steps)
	if err != nil {
		return "", fmt.Errorf("encoding steps: %w", err)
	}
	return string(b), nil
}

// CreateWorkflowRequest is the body for POST /api/workflows.
type CreateWorkflowRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	StepsJSON    string `json:"steps_json,omitempty"`
	TriggerType  string `json:"trigger_type"`
	ScheduleCron string `json:"schedule_cron,omitempty"`
}

// Insight is one finding from the insights analysis.
type Insight struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	// Severity is one of info, warning, success, critical.
	Severity string `json:"severity"`
}

// InsightsReport is the response of the insights generation endpoint.
type InsightsReport struct {
	Insights    []Insight `json:"insights"`
	Summary     string    `json:"summary"`
	AIGenerated bool      `json:"ai_generated"`
}

// InsightScope narrows insights generation to one workflow or run.  The zero
// value means "recent results across all workflows".
type InsightScope struct {
	WorkflowID string `json:"workflow_id,omitempty"`
	RunID      string `json:"run_id,omitempty"`
}

// AIStatus is the AI engine connection report.
type AIStatus struct {
	TextModel  string `json:"text_model"`
	ImageModel string `json:"image_model,omitempty"`
	Region     string `json:"region"`
	Connected  bool   `json:"connected"`
	Throttled  bool   `json:"throttled"`
	Message    string `json:"message"`
}

// RunSummary is the natural-language summary of a completed run.
type RunSummary struct {
	Summary     string `json:"summary"`
	AIGenerated bool   `json:"ai_generated"`
}

// User identifies the backend account the client acts as.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	IsNew bool   `json:"is_new"`
}
