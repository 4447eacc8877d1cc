// Package action defines the structured actions the copilot can carry out
// against the FlowPilot backend, and the static catalog that classifies each
// action type into a risk class (auto-run, confirm, wizard).
//
// Actions are immutable value objects.  They come from two places: the intent
// interpreter (free text → Action) and the wizard, which synthesises a
// wizard_confirm pseudo-action that is never produced by the interpreter.
package action

import "fmt"

// Type identifies what the user wants the copilot to do.
type Type string

const (
	// TypeCreateWorkflow starts the multi-step creation wizard.
	TypeCreateWorkflow Type = "create_workflow"
	// TypeRunWorkflow triggers a run of an existing workflow.
	TypeRunWorkflow Type = "run_workflow"
	// TypeDeleteWorkflow deletes a workflow.
	TypeDeleteWorkflow Type = "delete_workflow"
	// TypeCloneWorkflow copies a workflow under a new name.
	TypeCloneWorkflow Type = "clone_workflow"
	// TypePublishWorkflow publishes a workflow as a shared template.
	TypePublishWorkflow Type = "publish_workflow"
	// TypeUseTemplate instantiates a workflow from a template.
	TypeUseTemplate Type = "use_template"
	// TypeAbortRun aborts an in-flight run.
	TypeAbortRun Type = "abort_run"
	// TypeChangeName re-identifies the user under a new name.
	TypeChangeName Type = "change_name"
	// TypeNavigate opens a page in the host application.
	TypeNavigate Type = "navigate"
	// TypeListWorkflows lists the user's workflows inline.
	TypeListWorkflows Type = "list_workflows"
	// TypeGenerateInsights analyses recent results and reports findings.
	TypeGenerateInsights Type = "generate_insights"
	// TypeCheckAIStatus reports the AI engine connection status.
	TypeCheckAIStatus Type = "check_ai_status"
	// TypeSummarizeRun summarises a completed run.
	TypeSummarizeRun Type = "summarize_run"
	// TypeNotFound is the interpreter's "no matching action" marker.
	TypeNotFound Type = "not_found"

	// TypeWizardConfirm is the synthetic pseudo-action attached to the
	// wizard's summary message so the generic action-button rendering path
	// can be reused.  It is constructed only by the wizard; an interpreter
	// response claiming this type is dropped at classification.
	TypeWizardConfirm Type = "wizard_confirm"
)

// Action carries an action type plus the parameters relevant to it.
// Fields not applicable to the type are left empty.
type Action struct {
	Type Type `json:"type"`

	WorkflowID   string `json:"workflow_id,omitempty"`
	WorkflowName string `json:"workflow_name,omitempty"`
	RunID        string `json:"run_id,omitempty"`
	TemplateID   string `json:"template_id,omitempty"`
	TemplateName string `json:"template_name,omitempty"`

	// Name is the workflow name for create_workflow, or the new user name
	// for change_name.
	Name string `json:"name,omitempty"`
	// Description is the free-text workflow description for create_workflow.
	Description string `json:"description,omitempty"`
	// Path is the navigation target for navigate.
	Path string `json:"path,omitempty"`
	// Category is the template category for publish_workflow.
	Category string `json:"category,omitempty"`
}

// Option is one selectable chip offered alongside a free-text input.
// Clicking an option is equivalent to typing its value.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Target returns the human-readable thing the action operates on, for
// prompts and audit entries.
func (a Action) Target() string {
	switch {
	case a.WorkflowName != "":
		return a.WorkflowName
	case a.WorkflowID != "":
		return a.WorkflowID
	case a.TemplateName != "":
		return a.TemplateName
	case a.TemplateID != "":
		return a.TemplateID
	case a.RunID != "":
		return a.RunID
	case a.Name != "":
		return a.Name
	case a.Path != "":
		return a.Path
	}
	return ""
}

// String implements fmt.Stringer for logs and audit payloads.
func (a Action) String() string {
	if t := a.Target(); t != "" {
		return fmt.Sprintf("%s(%s)", a.Type, t)
	}
	return string(a.Type)
}
