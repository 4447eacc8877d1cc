package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/flowpilot-ai/copilot/internal/copilot/action"
	"github.com/flowpilot-ai/copilot/internal/copilot/dispatch"
	"github.com/flowpilot-ai/copilot/internal/copilot/flowpilot"
	"github.com/flowpilot-ai/copilot/internal/copilot/nlp"
	"github.com/flowpilot-ai/copilot/internal/copilot/wizard"
)

// scriptedInterpreter returns pre-programmed results in order and records
// every request it sees.
type scriptedInterpreter struct {
	results  []*nlp.Result
	err      error
	requests []nlp.Request
}

func (s *scriptedInterpreter) Interpret(ctx context.Context, req nlp.Request) (*nlp.Result, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.results) == 0 {
		return &nlp.Result{Reply: "Sure."}, nil
	}
	r := s.results[0]
	s.results = s.results[1:]
	return r, nil
}

// fakeBackend implements dispatch.Services with canned data and call counts.
type fakeBackend struct {
	workflows []flowpilot.Workflow

	planCalls   int
	createCalls int
	createReqs  []flowpilot.CreateWorkflowRequest
	deleteCalls int
	runCalls    int
	failWith    error
}

func (f *fakeBackend) PlanSteps(ctx context.Context, description string) ([]flowpilot.Step, error) {
	f.planCalls++
	if f.failWith != nil {
		return nil, f.failWith
	}
	return []flowpilot.Step{{StepNumber: 1, Action: "navigate", Target: "https://example.com"}}, nil
}

func (f *fakeBackend) CreateWorkflow(ctx context.Context, req flowpilot.CreateWorkflowRequest) (*flowpilot.Workflow, error) {
	f.createCalls++
	f.createReqs = append(f.createReqs, req)
	if f.failWith != nil {
		return nil, f.failWith
	}
	return &flowpilot.Workflow{ID: "wf-new", Name: req.Name, Description: req.Description}, nil
}

func (f *fakeBackend) GetWorkflow(ctx context.Context, id string) (*flowpilot.Workflow, error) {
	for i := range f.workflows {
		if f.workflows[i].ID == id {
			return &f.workflows[i], nil
		}
	}
	return nil, flowpilot.ErrNotFound
}

func (f *fakeBackend) ListWorkflows(ctx context.Context) ([]flowpilot.Workflow, error) {
	return f.workflows, nil
}

func (f *fakeBackend) DeleteWorkflow(ctx context.Context, id string) error {
	f.deleteCalls++
	return f.failWith
}

func (f *fakeBackend) TriggerRun(ctx context.Context, workflowID string) (string, error) {
	f.runCalls++
	if f.failWith != nil {
		return "", f.failWith
	}
	return "run-1", nil
}

func (f *fakeBackend) AbortRun(ctx context.Context, runID string) error { return f.failWith }

func (f *fakeBackend) PublishTemplate(ctx context.Context, workflowID, category string) error {
	return f.failWith
}

func (f *fakeBackend) UseTemplate(ctx context.Context, templateID string) (*flowpilot.Workflow, error) {
	return &flowpilot.Workflow{ID: "wf-new", Name: "From Template"}, f.failWith
}

func (f *fakeBackend) GenerateInsights(ctx context.Context, scope flowpilot.InsightScope) (*flowpilot.InsightsReport, error) {
	return &flowpilot.InsightsReport{Summary: "All quiet."}, f.failWith
}

func (f *fakeBackend) GetAIStatus(ctx context.Context) (*flowpilot.AIStatus, error) {
	return &flowpilot.AIStatus{Connected: true}, f.failWith
}

func (f *fakeBackend) GetRunSummary(ctx context.Context, runID string) (*flowpilot.RunSummary, error) {
	return &flowpilot.RunSummary{Summary: "It went fine."}, f.failWith
}

func (f *fakeBackend) Reidentify(ctx context.Context, name string) (*flowpilot.User, error) {
	return &flowpilot.User{ID: "u-2", Name: name}, f.failWith
}

func (f *fakeBackend) UserID() string { return "u-1" }

func newTestOrchestrator(interp nlp.Provider, backend *fakeBackend) *Orchestrator {
	return New(interp, dispatch.New(backend, nil), backend, OverlapReject)
}

func lastText(turn *Turn) string {
	if len(turn.Messages) == 0 {
		return ""
	}
	return turn.Messages[len(turn.Messages)-1].Text
}

func TestCreateWizardEndToEnd(t *testing.T) {
	interp := &scriptedInterpreter{results: []*nlp.Result{{
		Reply:       "Let's build that!",
		AIGenerated: true,
		Action:      &action.Action{Type: action.TypeCreateWorkflow},
	}}}
	backend := &fakeBackend{}
	o := newTestOrchestrator(interp, backend)
	ctx := context.Background()

	if _, err := o.Submit(ctx, "I want a new workflow"); err != nil {
		t.Fatal(err)
	}
	if _, err := o.Submit(ctx, "Price Watcher"); err != nil {
		t.Fatal(err)
	}
	if _, err := o.Submit(ctx, "track gpu prices"); err != nil {
		t.Fatal(err)
	}
	if _, err := o.Submit(ctx, "manual"); err != nil {
		t.Fatal(err)
	}
	turn, err := o.Submit(ctx, "yes")
	if err != nil {
		t.Fatal(err)
	}

	if backend.createCalls != 1 {
		t.Fatalf("CreateWorkflow called %d times, want exactly 1", backend.createCalls)
	}
	req := backend.createReqs[0]
	if req.Name != "Price Watcher" || req.Description != "track gpu prices" || req.TriggerType != wizard.TriggerManual {
		t.Errorf("create request = %+v", req)
	}
	if turn.Effect.NavigatePath != "/workflows/wf-new" {
		t.Errorf("Effect.NavigatePath = %q", turn.Effect.NavigatePath)
	}
	// Interpreter is consulted only for the opening message; wizard turns
	// bypass it entirely.
	if len(interp.requests) != 1 {
		t.Errorf("interpreter called %d times, want 1", len(interp.requests))
	}
}

func TestConfirmThenCancelNeverDispatches(t *testing.T) {
	interp := &scriptedInterpreter{results: []*nlp.Result{{
		Reply:  "That one's gone if you say so.",
		Action: &action.Action{Type: action.TypeDeleteWorkflow, WorkflowID: "wf-1"},
	}}}
	backend := &fakeBackend{workflows: []flowpilot.Workflow{{ID: "wf-1", Name: "Price Watcher"}}}
	o := newTestOrchestrator(interp, backend)
	ctx := context.Background()

	if _, err := o.Submit(ctx, "delete price watcher"); err != nil {
		t.Fatal(err)
	}
	turn, err := o.SelectOption(ctx, "cancel")
	if err != nil {
		t.Fatal(err)
	}

	if backend.deleteCalls != 0 {
		t.Error("declined delete must never reach the backend")
	}
	if !strings.Contains(lastText(turn), "cancelled") {
		t.Errorf("want cancellation message, got %q", lastText(turn))
	}

	// The pending slot is gone: the next message goes back to the interpreter.
	if _, err := o.Submit(ctx, "hello again"); err != nil {
		t.Fatal(err)
	}
	if len(interp.requests) != 2 {
		t.Errorf("interpreter called %d times, want 2", len(interp.requests))
	}
}

func TestConfirmDispatchesExactlyOnce(t *testing.T) {
	interp := &scriptedInterpreter{results: []*nlp.Result{{
		Reply:  "Ready to launch.",
		Action: &action.Action{Type: action.TypeRunWorkflow, WorkflowID: "wf-1"},
	}}}
	backend := &fakeBackend{workflows: []flowpilot.Workflow{{ID: "wf-1", Name: "Price Watcher"}}}
	o := newTestOrchestrator(interp, backend)
	ctx := context.Background()

	if _, err := o.Submit(ctx, "run price watcher"); err != nil {
		t.Fatal(err)
	}
	turn, err := o.Submit(ctx, "yes go ahead")
	if err != nil {
		t.Fatal(err)
	}
	if backend.runCalls != 1 {
		t.Fatalf("TriggerRun called %d times, want 1", backend.runCalls)
	}
	if turn.Effect.NavigatePath != "/runs/run-1" {
		t.Errorf("Effect.NavigatePath = %q", turn.Effect.NavigatePath)
	}

	// A second affirmative is a fresh interpreter turn, not a re-dispatch.
	if _, err := o.Submit(ctx, "yes"); err != nil {
		t.Fatal(err)
	}
	if backend.runCalls != 1 {
		t.Errorf("TriggerRun called %d times after repeat yes, want still 1", backend.runCalls)
	}
	if len(interp.requests) != 2 {
		t.Errorf("interpreter called %d times, want 2", len(interp.requests))
	}
}

func TestOptionExhaustion(t *testing.T) {
	interp := &scriptedInterpreter{results: []*nlp.Result{{
		Reply:  "Sure.",
		Action: &action.Action{Type: action.TypeDeleteWorkflow, WorkflowID: "wf-1"},
	}}}
	backend := &fakeBackend{workflows: []flowpilot.Workflow{{ID: "wf-1", Name: "Price Watcher"}}}
	o := newTestOrchestrator(interp, backend)
	ctx := context.Background()

	if _, err := o.Submit(ctx, "delete price watcher"); err != nil {
		t.Fatal(err)
	}
	if _, err := o.SelectOption(ctx, "yes"); err != nil {
		t.Fatal(err)
	}
	if backend.deleteCalls != 1 {
		t.Fatalf("DeleteWorkflow called %d times, want 1", backend.deleteCalls)
	}

	// The chips were consumed by the first click; a second click is inert.
	turn, err := o.SelectOption(ctx, "yes")
	if err != nil {
		t.Fatal(err)
	}
	if len(turn.Messages) != 0 {
		t.Errorf("click on consumed options produced %d messages, want 0", len(turn.Messages))
	}
	if backend.deleteCalls != 1 {
		t.Errorf("DeleteWorkflow called %d times after stale click, want still 1", backend.deleteCalls)
	}
}

func TestAttachedActionConsumedOnDispatch(t *testing.T) {
	interp := &scriptedInterpreter{results: []*nlp.Result{{
		Reply:  "Sure.",
		Action: &action.Action{Type: action.TypeRunWorkflow, WorkflowID: "wf-1"},
	}}}
	backend := &fakeBackend{workflows: []flowpilot.Workflow{{ID: "wf-1", Name: "Price Watcher"}}}
	o := newTestOrchestrator(interp, backend)
	ctx := context.Background()

	o.Submit(ctx, "run price watcher")
	o.Submit(ctx, "yes")

	var attached *Message
	for _, m := range o.Transcript() {
		if m.AttachedAction != nil {
			attached = m
		}
	}
	if attached == nil {
		t.Fatal("confirmation message must carry the attached action")
	}
	if !attached.ActionConsumed {
		t.Error("attached action must be marked consumed after dispatch")
	}
	if !attached.OptionsConsumed {
		t.Error("confirmation chips must be marked consumed after dispatch")
	}
}

func TestAutoActionDispatchesImmediately(t *testing.T) {
	interp := &scriptedInterpreter{results: []*nlp.Result{{
		Reply:  "Here you go:",
		Action: &action.Action{Type: action.TypeListWorkflows},
	}}}
	backend := &fakeBackend{workflows: []flowpilot.Workflow{{ID: "wf-1", Name: "Price Watcher"}}}
	o := newTestOrchestrator(interp, backend)

	turn, err := o.Submit(context.Background(), "show my workflows")
	if err != nil {
		t.Fatal(err)
	}
	// user message + reply + inline result, no confirmation inbetween.
	if len(turn.Messages) != 3 {
		t.Fatalf("turn produced %d messages, want 3: %+v", len(turn.Messages), turn.Messages)
	}
	if !strings.Contains(lastText(turn), "Price Watcher") {
		t.Errorf("inline result should list the workflow: %q", lastText(turn))
	}
}

func TestNotFoundAppendsSuffix(t *testing.T) {
	interp := &scriptedInterpreter{results: []*nlp.Result{{
		Reply:  "I couldn't find anything matching that.",
		Action: &action.Action{Type: action.TypeNotFound},
	}}}
	o := newTestOrchestrator(interp, &fakeBackend{})

	turn, err := o.Submit(context.Background(), "run the flurble")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(lastText(turn), "show my workflows") {
		t.Errorf("not_found reply should hint at listing workflows: %q", lastText(turn))
	}
	// Terminal actions leave no pending state behind.
	if o.StateLabel() != "Ask me anything about your workflows..." {
		t.Errorf("StateLabel = %q, want idle placeholder", o.StateLabel())
	}
}

func TestInterpretationFailureFallsBack(t *testing.T) {
	interp := &scriptedInterpreter{err: errors.New("model timeout")}
	o := newTestOrchestrator(interp, &fakeBackend{})

	turn, err := o.Submit(context.Background(), "do something")
	if err != nil {
		t.Fatal(err)
	}
	if lastText(turn) != nlp.FallbackReply {
		t.Errorf("want the generic fallback reply, got %q", lastText(turn))
	}
}

func TestDispatchFailureClearsPendingState(t *testing.T) {
	interp := &scriptedInterpreter{results: []*nlp.Result{{
		Reply:  "Sure.",
		Action: &action.Action{Type: action.TypeDeleteWorkflow, WorkflowID: "wf-1"},
	}}}
	backend := &fakeBackend{
		workflows: []flowpilot.Workflow{{ID: "wf-1", Name: "Price Watcher"}},
		failWith:  errors.New("backend down"),
	}
	o := newTestOrchestrator(interp, backend)
	ctx := context.Background()

	o.Submit(ctx, "delete price watcher")
	turn, err := o.Submit(ctx, "yes")
	if err != nil {
		t.Fatal(err)
	}
	if lastText(turn) != dispatch.FailureMessage {
		t.Errorf("want generic failure message, got %q", lastText(turn))
	}
	// The slot was cleared before dispatch, so a follow-up yes cannot retry.
	o.Submit(ctx, "yes")
	if backend.deleteCalls != 1 {
		t.Errorf("DeleteWorkflow called %d times, want 1", backend.deleteCalls)
	}
}

func TestCancelActive(t *testing.T) {
	interp := &scriptedInterpreter{results: []*nlp.Result{{
		Reply:  "Let's build that!",
		Action: &action.Action{Type: action.TypeCreateWorkflow},
	}}}
	o := newTestOrchestrator(interp, &fakeBackend{})
	ctx := context.Background()

	o.Submit(ctx, "new workflow please")
	if o.StateLabel() != "Name your workflow..." {
		t.Fatalf("StateLabel = %q, wizard should be active", o.StateLabel())
	}

	turn := o.CancelActive()
	if !strings.Contains(lastText(turn), "cancelled") {
		t.Errorf("want cancellation message, got %q", lastText(turn))
	}
	if o.StateLabel() != "Ask me anything about your workflows..." {
		t.Errorf("StateLabel = %q, want idle placeholder", o.StateLabel())
	}

	// Cancelling with nothing active is a quiet no-op.
	if turn := o.CancelActive(); len(turn.Messages) != 0 {
		t.Errorf("idle cancel produced %d messages, want 0", len(turn.Messages))
	}
}

func TestReplyOnlyResultKeepsIdleState(t *testing.T) {
	interp := &scriptedInterpreter{results: []*nlp.Result{{Reply: "👋 Hi! I can manage your workflows."}}}
	o := newTestOrchestrator(interp, &fakeBackend{})

	turn, err := o.Submit(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if len(turn.Messages) != 2 {
		t.Fatalf("turn produced %d messages, want user + reply", len(turn.Messages))
	}
	if o.StateLabel() != "Ask me anything about your workflows..." {
		t.Errorf("StateLabel = %q", o.StateLabel())
	}
}

func TestInterpreterSeesWorkflowContext(t *testing.T) {
	interp := &scriptedInterpreter{results: []*nlp.Result{{Reply: "Sure."}}}
	backend := &fakeBackend{workflows: []flowpilot.Workflow{
		{ID: "wf-1", Name: "Price Watcher"},
		{ID: "wf-2", Name: "Nightly Report"},
	}}
	o := newTestOrchestrator(interp, backend)
	o.SetContext("/workflows")

	if _, err := o.Submit(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}
	req := interp.requests[0]
	if req.Context != "/workflows" {
		t.Errorf("Context = %q", req.Context)
	}
	if len(req.KnownWorkflows) != 2 || req.KnownWorkflows[0] != "Price Watcher" {
		t.Errorf("KnownWorkflows = %v", req.KnownWorkflows)
	}
}

func TestEmptyInputIsIgnored(t *testing.T) {
	interp := &scriptedInterpreter{}
	o := newTestOrchestrator(interp, &fakeBackend{})

	turn, err := o.Submit(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(turn.Messages) != 0 || len(interp.requests) != 0 {
		t.Errorf("empty input must produce nothing, got %d messages, %d interpretations",
			len(turn.Messages), len(interp.requests))
	}
}
