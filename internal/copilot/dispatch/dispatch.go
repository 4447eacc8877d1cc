// Package dispatch executes confirmed and auto-class actions against the
// FlowPilot backend, exactly once per confirmation.  The dispatcher owns no
// dialogue state: callers clear their wizard or pending state before calling
// Execute, so a dispatch failure can never strand the user in a stale
// confirmation loop.
//
// Navigation and cache-invalidation requests are returned on the Result
// rather than performed; the host decides what honoring them means (a web
// client navigates, the Matrix host renders a link).
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/flowpilot-ai/copilot/common/trace"
	"github.com/flowpilot-ai/copilot/internal/copilot/action"
	"github.com/flowpilot-ai/copilot/internal/copilot/flowpilot"
	"github.com/flowpilot-ai/copilot/internal/copilot/store"
	"github.com/flowpilot-ai/copilot/internal/copilot/wizard"
)

// FailureMessage is the single generic message shown for any dispatch
// failure.  Details go to the log and the audit trail, not the transcript.
const FailureMessage = "⚠️ Sorry, that didn't work. Please try again, or do it manually from the dashboard."

// reloadDelay is how long after a successful identity switch the host should
// wait before reloading.  The delay lets the user read the goodbye message.
const reloadDelay = 1200 * time.Millisecond

// Services is the backend surface the dispatcher needs.  *flowpilot.Client
// satisfies it.
type Services interface {
	PlanSteps(ctx context.Context, description string) ([]flowpilot.Step, error)
	CreateWorkflow(ctx context.Context, req flowpilot.CreateWorkflowRequest) (*flowpilot.Workflow, error)
	GetWorkflow(ctx context.Context, id string) (*flowpilot.Workflow, error)
	ListWorkflows(ctx context.Context) ([]flowpilot.Workflow, error)
	DeleteWorkflow(ctx context.Context, id string) error
	TriggerRun(ctx context.Context, workflowID string) (string, error)
	AbortRun(ctx context.Context, runID string) error
	PublishTemplate(ctx context.Context, workflowID, category string) error
	UseTemplate(ctx context.Context, templateID string) (*flowpilot.Workflow, error)
	GenerateInsights(ctx context.Context, scope flowpilot.InsightScope) (*flowpilot.InsightsReport, error)
	GetAIStatus(ctx context.Context) (*flowpilot.AIStatus, error)
	GetRunSummary(ctx context.Context, runID string) (*flowpilot.RunSummary, error)
	Reidentify(ctx context.Context, name string) (*flowpilot.User, error)
	UserID() string
}

// Auditor records dispatch attempts.  *store.Store satisfies it; a nil
// auditor disables auditing.
type Auditor interface {
	WriteAudit(ctx context.Context, traceID, userID, sessionID, action, target, result string, payload store.AuditPayload, errorMsg string) error
}

// Result is the outcome of a successful dispatch.
type Result struct {
	// Message is the transcript text describing what happened.
	Message string
	// NavigatePath, when non-empty, asks the host to open this path.
	NavigatePath string
	// Invalidate lists resource collections whose caches are now stale.
	Invalidate []string
	// ReloadAfter, when non-zero, asks the host for a full reload after the
	// delay.  Set only by identity changes.
	ReloadAfter time.Duration
}

// Dispatcher executes actions against the backend.
type Dispatcher struct {
	svc   Services
	audit Auditor
}

// New creates a dispatcher.  audit may be nil.
func New(svc Services, audit Auditor) *Dispatcher {
	return &Dispatcher{svc: svc, audit: audit}
}

// Execute runs one confirmed or auto-class action.  collected holds the
// fields the pending-action controller gathered; it may be nil.  Exactly one
// backend mutation is attempted per call.  On error the caller shows
// FailureMessage; the returned error is for the log.
func (d *Dispatcher) Execute(ctx context.Context, sessionID string, a action.Action, collected map[string]string) (Result, error) {
	traceID := trace.GenerateID()
	ctx = trace.WithTraceID(ctx, traceID)

	slog.Info("dispatching action",
		"trace_id", traceID, "session_id", sessionID,
		"action", a.String(), "class", action.Classify(a).String())

	res, err := d.execute(ctx, a, collected)
	d.writeAudit(ctx, traceID, sessionID, string(a.Type), a.Target(), collected, err)
	if err != nil {
		slog.Warn("dispatch failed", "trace_id", traceID, "action", a.String(), "err", err)
		return Result{}, err
	}
	return res, nil
}

// CreateFromWizard dispatches a completed wizard: plan the steps from the
// description, then create the workflow.
func (d *Dispatcher) CreateFromWizard(ctx context.Context, sessionID string, data wizard.Data) (Result, error) {
	traceID := trace.GenerateID()
	ctx = trace.WithTraceID(ctx, traceID)

	slog.Info("dispatching wizard create",
		"trace_id", traceID, "session_id", sessionID, "workflow", data.Name)

	res, err := d.createFromWizard(ctx, data)
	d.writeAudit(ctx, traceID, sessionID, string(action.TypeCreateWorkflow), data.Name,
		map[string]string{"trigger_type": data.TriggerType, "schedule_cron": data.ScheduleCron}, err)
	if err != nil {
		slog.Warn("wizard create failed", "trace_id", traceID, "workflow", data.Name, "err", err)
		return Result{}, err
	}
	return res, nil
}

func (d *Dispatcher) createFromWizard(ctx context.Context, data wizard.Data) (Result, error) {
	steps, err := d.svc.PlanSteps(ctx, data.Description)
	if err != nil {
		return Result{}, fmt.Errorf("planning steps: %w", err)
	}
	stepsJSON, err := flowpilot.EncodeSteps(steps)
	if err != nil {
		return Result{}, err
	}

	triggerType := data.TriggerType
	if triggerType == "" {
		triggerType = wizard.TriggerManual
	}

	created, err := d.svc.CreateWorkflow(ctx, flowpilot.CreateWorkflowRequest{
		Name:         data.Name,
		Description:  data.Description,
		StepsJSON:    stepsJSON,
		TriggerType:  triggerType,
		ScheduleCron: data.ScheduleCron,
	})
	if err != nil {
		return Result{}, fmt.Errorf("creating workflow: %w", err)
	}

	return Result{
		Message:      formatCreated(created, len(steps)),
		NavigatePath: "/workflows/" + created.ID,
		Invalidate:   []string{"workflows"},
	}, nil
}

// execute is the exhaustive per-type switch.  Adding an action type breaks
// compilation of Classify first, then this switch must grow a case too.
func (d *Dispatcher) execute(ctx context.Context, a action.Action, collected map[string]string) (Result, error) {
	switch a.Type {
	case action.TypeRunWorkflow:
		return d.runWorkflow(ctx, a)
	case action.TypeDeleteWorkflow:
		return d.deleteWorkflow(ctx, a)
	case action.TypeCloneWorkflow:
		return d.cloneWorkflow(ctx, a, collected)
	case action.TypePublishWorkflow:
		return d.publishWorkflow(ctx, a, collected)
	case action.TypeUseTemplate:
		return d.useTemplate(ctx, a)
	case action.TypeAbortRun:
		return d.abortRun(ctx, a)
	case action.TypeChangeName:
		return d.changeName(ctx, a, collected)
	case action.TypeNavigate:
		return d.navigate(a)
	case action.TypeListWorkflows:
		return d.listWorkflows(ctx)
	case action.TypeGenerateInsights:
		return d.generateInsights(ctx, a)
	case action.TypeCheckAIStatus:
		return d.checkAIStatus(ctx)
	case action.TypeSummarizeRun:
		return d.summarizeRun(ctx, a)
	case action.TypeCreateWorkflow, action.TypeWizardConfirm:
		// Creation goes through CreateFromWizard; these never reach here.
		return Result{}, fmt.Errorf("action %s must be dispatched via the wizard", a.Type)
	case action.TypeNotFound:
		return Result{}, errors.New("not_found is terminal and is never dispatched")
	}
	return Result{}, fmt.Errorf("unknown action type %q", a.Type)
}

func (d *Dispatcher) runWorkflow(ctx context.Context, a action.Action) (Result, error) {
	wf, err := d.resolveWorkflow(ctx, a)
	if err != nil {
		return Result{}, err
	}
	runID, err := d.svc.TriggerRun(ctx, wf.ID)
	if err != nil {
		return Result{}, fmt.Errorf("triggering run: %w", err)
	}
	return Result{
		Message:      fmt.Sprintf("🚀 **%s** is running! Watch it live on the run page.", wf.Name),
		NavigatePath: "/runs/" + runID,
		Invalidate:   []string{"runs"},
	}, nil
}

func (d *Dispatcher) deleteWorkflow(ctx context.Context, a action.Action) (Result, error) {
	wf, err := d.resolveWorkflow(ctx, a)
	if err != nil {
		return Result{}, err
	}
	if err := d.svc.DeleteWorkflow(ctx, wf.ID); err != nil {
		return Result{}, fmt.Errorf("deleting workflow: %w", err)
	}
	return Result{
		Message:    fmt.Sprintf("🗑️ **%s** has been deleted.", wf.Name),
		Invalidate: []string{"workflows"},
	}, nil
}

func (d *Dispatcher) cloneWorkflow(ctx context.Context, a action.Action, collected map[string]string) (Result, error) {
	orig, err := d.resolveWorkflow(ctx, a)
	if err != nil {
		return Result{}, err
	}

	newName := collected[action.FieldNewName]
	if newName == "" {
		newName = orig.Name + " (Copy)"
	}

	// The copy inherits the plan but never the trigger: a clone must not
	// start running on the original's schedule before the user reviews it.
	created, err := d.svc.CreateWorkflow(ctx, flowpilot.CreateWorkflowRequest{
		Name:        newName,
		Description: orig.Description,
		StepsJSON:   orig.StepsJSON,
		TriggerType: wizard.TriggerManual,
	})
	if err != nil {
		return Result{}, fmt.Errorf("creating clone: %w", err)
	}

	return Result{
		Message:      fmt.Sprintf("📋 Cloned **%s** as **%s**.", orig.Name, created.Name),
		NavigatePath: "/workflows/" + created.ID,
		Invalidate:   []string{"workflows"},
	}, nil
}

func (d *Dispatcher) publishWorkflow(ctx context.Context, a action.Action, collected map[string]string) (Result, error) {
	wf, err := d.resolveWorkflow(ctx, a)
	if err != nil {
		return Result{}, err
	}

	category := collected[action.FieldCategory]
	if category == "" {
		category = a.Category
	}
	if category == "" {
		category = action.DefaultCategory
	}

	if err := d.svc.PublishTemplate(ctx, wf.ID, category); err != nil {
		return Result{}, fmt.Errorf("publishing template: %w", err)
	}
	return Result{
		Message:    fmt.Sprintf("📣 **%s** is now a shared **%s** template.", wf.Name, category),
		Invalidate: []string{"templates"},
	}, nil
}

func (d *Dispatcher) useTemplate(ctx context.Context, a action.Action) (Result, error) {
	id := a.TemplateID
	if id == "" {
		return Result{}, errors.New("use_template: missing template id")
	}
	created, err := d.svc.UseTemplate(ctx, id)
	if err != nil {
		return Result{}, fmt.Errorf("instantiating template: %w", err)
	}
	return Result{
		Message:      fmt.Sprintf("✨ Created **%s** from the template. It's ready to customise.", created.Name),
		NavigatePath: "/workflows/" + created.ID,
		Invalidate:   []string{"workflows"},
	}, nil
}

func (d *Dispatcher) abortRun(ctx context.Context, a action.Action) (Result, error) {
	if a.RunID == "" {
		return Result{}, errors.New("abort_run: missing run id")
	}
	if err := d.svc.AbortRun(ctx, a.RunID); err != nil {
		return Result{}, fmt.Errorf("aborting run: %w", err)
	}
	return Result{
		Message:    fmt.Sprintf("🛑 Abort requested for run `%s`.", a.RunID),
		Invalidate: []string{"runs"},
	}, nil
}

func (d *Dispatcher) changeName(ctx context.Context, a action.Action, collected map[string]string) (Result, error) {
	name := a.Name
	if name == "" {
		name = collected[action.FieldName]
	}
	if name == "" {
		return Result{}, errors.New("change_name: missing name")
	}

	user, err := d.svc.Reidentify(ctx, name)
	if err != nil {
		return Result{}, fmt.Errorf("switching identity: %w", err)
	}

	// Identity change invalidates everything the host may have cached, so a
	// full reload is requested rather than piecemeal invalidation.
	return Result{
		Message:     fmt.Sprintf("👋 You're now **%s**. Reloading your workspace...", user.Name),
		Invalidate:  []string{"workflows", "runs", "templates"},
		ReloadAfter: reloadDelay,
	}, nil
}

func (d *Dispatcher) navigate(a action.Action) (Result, error) {
	if a.Path == "" {
		return Result{}, errors.New("navigate: missing path")
	}
	return Result{
		Message:      fmt.Sprintf("Taking you to `%s`.", a.Path),
		NavigatePath: a.Path,
	}, nil
}

func (d *Dispatcher) listWorkflows(ctx context.Context) (Result, error) {
	workflows, err := d.svc.ListWorkflows(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("listing workflows: %w", err)
	}
	return Result{Message: formatWorkflowList(workflows)}, nil
}

func (d *Dispatcher) generateInsights(ctx context.Context, a action.Action) (Result, error) {
	report, err := d.svc.GenerateInsights(ctx, flowpilot.InsightScope{
		WorkflowID: a.WorkflowID,
		RunID:      a.RunID,
	})
	if err != nil {
		return Result{}, fmt.Errorf("generating insights: %w", err)
	}
	return Result{Message: formatInsights(report)}, nil
}

func (d *Dispatcher) checkAIStatus(ctx context.Context) (Result, error) {
	status, err := d.svc.GetAIStatus(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("checking AI status: %w", err)
	}
	return Result{Message: formatAIStatus(status)}, nil
}

func (d *Dispatcher) summarizeRun(ctx context.Context, a action.Action) (Result, error) {
	if a.RunID == "" {
		return Result{}, errors.New("summarize_run: missing run id")
	}
	summary, err := d.svc.GetRunSummary(ctx, a.RunID)
	if err != nil {
		return Result{}, fmt.Errorf("summarizing run: %w", err)
	}
	return Result{Message: summary.Summary}, nil
}

// resolveWorkflow finds the workflow an action targets.  A known ID is
// fetched directly; otherwise the name is matched case-insensitively against
// the user's workflows.
func (d *Dispatcher) resolveWorkflow(ctx context.Context, a action.Action) (*flowpilot.Workflow, error) {
	if a.WorkflowID != "" {
		return d.svc.GetWorkflow(ctx, a.WorkflowID)
	}
	if a.WorkflowName == "" {
		return nil, errors.New("action names no workflow")
	}

	workflows, err := d.svc.ListWorkflows(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing workflows for lookup: %w", err)
	}
	for i := range workflows {
		if strings.EqualFold(workflows[i].Name, a.WorkflowName) {
			return &workflows[i], nil
		}
	}
	return nil, fmt.Errorf("workflow %q: %w", a.WorkflowName, flowpilot.ErrNotFound)
}

func (d *Dispatcher) writeAudit(ctx context.Context, traceID, sessionID, act, target string, payload map[string]string, dispatchErr error) {
	if d.audit == nil {
		return
	}

	result := "ok"
	errMsg := ""
	if dispatchErr != nil {
		result = "error"
		errMsg = dispatchErr.Error()
	}

	var auditPayload store.AuditPayload
	if len(payload) > 0 {
		auditPayload = make(store.AuditPayload, len(payload))
		for k, v := range payload {
			auditPayload[k] = v
		}
	}

	if err := d.audit.WriteAudit(ctx, traceID, d.svc.UserID(), sessionID, act, target, result, auditPayload, errMsg); err != nil {
		slog.Warn("failed to write audit entry", "trace_id", traceID, "err", err)
	}
}
