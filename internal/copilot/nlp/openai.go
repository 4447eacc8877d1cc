package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/flowpilot-ai/copilot/internal/copilot/action"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 30 * time.Second
)

// Config configures the OpenAI-compatible interpreter.
type Config struct {
	// APIKey is the bearer token used to authenticate against the API.
	APIKey string

	// BaseURL overrides the API endpoint.  Useful for local models (Ollama),
	// Azure OpenAI, or any other OpenAI-compatible endpoint.
	// Defaults to https://api.openai.com/v1 when empty.
	BaseURL string

	// Model is the chat model to use.  Defaults to gpt-4o-mini when empty.
	Model string

	// Timeout is the HTTP request timeout.  Defaults to 30 s.
	Timeout time.Duration
}

// openAIProvider implements Provider using the OpenAI chat completions API
// with JSON-mode output to guarantee a parseable interpretation.
type openAIProvider struct {
	cfg    Config
	client *http.Client
}

// NewOpenAI returns a Provider backed by the OpenAI (or compatible) chat
// API.  The returned provider is safe for concurrent use.
func NewOpenAI(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &openAIProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// --- minimal OpenAI wire types ---

type oaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaiRequest struct {
	Model          string       `json:"model"`
	Messages       []oaiMessage `json:"messages"`
	MaxTokens      int          `json:"max_tokens,omitempty"`
	ResponseFormat *oaiFormat   `json:"response_format,omitempty"`
}

type oaiFormat struct {
	Type string `json:"type"` // "json_object"
}

type oaiResponse struct {
	Choices []oaiChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

type oaiChoice struct {
	Message      oaiMessage `json:"message"`
	FinishReason string     `json:"finish_reason"`
}

// systemPromptTmpl is the instruction set sent as the "system" message.
// Two printf verbs are substituted at call time:
//  1. %s — comma-separated list of the user's workflow names
//  2. %s — the host-supplied page context, or "(none)"
const systemPromptTmpl = `You are the FlowPilot Copilot, an assistant for a browser workflow automation platform.

Your only job is to translate the user's message into a reply plus an optional structured action.
You NEVER perform actions yourself — destructive actions always require the user's explicit confirmation downstream.

The user's workflows: %s
Current page context: %s

RULES (strict — do not deviate):
1. Respond ONLY with valid JSON. No markdown fences, no text outside JSON.
2. The "reply" is a short friendly message (markdown allowed inside the string).
3. Attach an "action" object only when the user clearly asked for one.
4. Use action type "not_found" when the user references a workflow you cannot match.
5. When no action applies, omit the "action" field entirely and just converse.
6. Resolve workflow references to workflow_name values from the list above when possible.

JSON schema for your response:
{
  "reply": "<assistant message>",
  "action": {
    "type": "create_workflow" | "run_workflow" | "delete_workflow" | "clone_workflow" | "publish_workflow" | "use_template" | "abort_run" | "change_name" | "navigate" | "list_workflows" | "generate_insights" | "check_ai_status" | "summarize_run" | "not_found",
    "workflow_id": "...", "workflow_name": "...", "run_id": "...",
    "template_id": "...", "template_name": "...",
    "name": "...", "description": "...", "path": "...", "category": "..."
  }
}
Include only the action fields relevant to the type.
`

// interpretation is the JSON document the model is instructed to return.
type interpretation struct {
	Reply  string          `json:"reply"`
	Action json.RawMessage `json:"action,omitempty"`
}

// Interpret sends the user message to the model and returns its reply plus
// any extracted action.
func (p *openAIProvider) Interpret(ctx context.Context, req Request) (*Result, error) {
	workflows := strings.Join(req.KnownWorkflows, ", ")
	if workflows == "" {
		workflows = "(none yet)"
	}
	pageContext := req.Context
	if pageContext == "" {
		pageContext = "(none)"
	}

	body := oaiRequest{
		Model: p.cfg.Model,
		Messages: []oaiMessage{
			{Role: "system", Content: fmt.Sprintf(systemPromptTmpl, workflows, pageContext)},
			{Role: "user", Content: req.Message},
		},
		MaxTokens:      512,
		ResponseFormat: &oaiFormat{Type: "json_object"},
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("nlp: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.BaseURL+"/chat/completions",
		bytes.NewReader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("nlp: create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("nlp: http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("nlp: read response body: %w", err)
	}

	var oaiResp oaiResponse
	if err := json.Unmarshal(respBody, &oaiResp); err != nil {
		return nil, fmt.Errorf("nlp: decode API response: %w", err)
	}
	if oaiResp.Error != nil {
		return nil, fmt.Errorf("nlp: API error (%s): %s", oaiResp.Error.Type, oaiResp.Error.Message)
	}
	if len(oaiResp.Choices) == 0 {
		return nil, fmt.Errorf("nlp: no choices returned (HTTP %d)", resp.StatusCode)
	}

	content := oaiResp.Choices[0].Message.Content
	var parsed interpretation
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v (raw content: %.200s)", ErrMalformedOutput, err, content)
	}
	if parsed.Reply == "" && len(parsed.Action) == 0 {
		return nil, fmt.Errorf("%w: empty interpretation", ErrMalformedOutput)
	}

	result := &Result{Reply: parsed.Reply, AIGenerated: true}
	if len(parsed.Action) > 0 && string(parsed.Action) != "null" {
		act, err := action.ParseInterpreted(parsed.Action)
		if err != nil {
			// A bad action does not invalidate the reply; the action is
			// simply dropped, matching the catalog's unknown-type rule.
			slog.Warn("nlp: dropping invalid action from model", "err", err)
		} else {
			result.Action = act
		}
	}
	return result, nil
}
