package action

import "fmt"

// Class is the risk class an action type is assigned by the catalog.
type Class int

const (
	// ClassUnknown means the type is not recognised; the action is dropped
	// silently and nothing is rendered.
	ClassUnknown Class = iota
	// ClassAuto actions are executed immediately without confirmation:
	// navigation and read-only queries whose results are appended inline.
	ClassAuto
	// ClassConfirm actions are routed to the pending-action controller for
	// missing-field collection and an explicit yes/no confirmation.
	ClassConfirm
	// ClassWizard actions start the multi-step creation wizard.
	ClassWizard
	// ClassTerminal actions carry only the interpreter's reply; no action
	// object is retained.
	ClassTerminal
)

// String implements fmt.Stringer for logs.
func (c Class) String() string {
	switch c {
	case ClassAuto:
		return "auto"
	case ClassConfirm:
		return "confirm"
	case ClassWizard:
		return "wizard"
	case ClassTerminal:
		return "terminal"
	}
	return "unknown"
}

// Classify maps an action to its risk class.  The switch is exhaustive over
// every Type constant so that adding a new action type forces this function
// (and the dispatcher) to be updated.
func Classify(a Action) Class {
	switch a.Type {
	case TypeNavigate, TypeListWorkflows:
		// No destructive or costly side effect.
		return ClassAuto
	case TypeGenerateInsights, TypeCheckAIStatus, TypeSummarizeRun:
		// Read-only; results rendered inline.
		return ClassAuto
	case TypeNotFound:
		return ClassTerminal
	case TypeCreateWorkflow:
		// Always multi-step, regardless of how much the interpreter already
		// extracted.
		return ClassWizard
	case TypeRunWorkflow, TypeDeleteWorkflow, TypeCloneWorkflow,
		TypePublishWorkflow, TypeUseTemplate, TypeAbortRun, TypeChangeName:
		return ClassConfirm
	case TypeWizardConfirm:
		// Synthetic; never valid from the interpreter.
		return ClassUnknown
	}
	return ClassUnknown
}

// Collected-field keys used by the pending-action controller.
const (
	FieldNewName  = "new_name"
	FieldCategory = "category"
	FieldName     = "name"
)

// DefaultCategory is used when a publish confirmation arrives without a
// collected category.
const DefaultCategory = "general"

// PublishCategories are the template categories offered as chips when
// publishing a workflow.  The set mirrors the backend's template taxonomy.
var PublishCategories = []Option{
	{Label: "Finance", Value: "finance"},
	{Label: "Sales", Value: "sales"},
	{Label: "Marketing", Value: "marketing"},
	{Label: "Monitoring", Value: "monitoring"},
	{Label: "Research", Value: "research"},
	{Label: "General", Value: "general"},
}

// YesCancelOptions is the binary option set attached to every confirmation
// prompt.
var YesCancelOptions = []Option{
	{Label: "Yes", Value: "yes"},
	{Label: "Cancel", Value: "cancel"},
}

// InputRequest describes one free-text field the pending-action controller
// must collect before confirmation.
type InputRequest struct {
	// Key is the collectedFields key the answer is stored under.
	Key string
	// Prompt is the question shown to the user.
	Prompt string
	// Options are optional chips; typing an equivalent value works too.
	Options []Option
}

// InputNeeded returns the field a confirm-class action still needs collected,
// or nil when the action can go straight to its confirmation prompt.
func InputNeeded(a Action) *InputRequest {
	switch a.Type {
	case TypeCloneWorkflow:
		return &InputRequest{
			Key:    FieldNewName,
			Prompt: fmt.Sprintf("What should the copy of **%s** be called? (Leave it to me and I'll use \"%s (Copy)\".)", displayName(a), displayName(a)),
		}
	case TypePublishWorkflow:
		return &InputRequest{
			Key:     FieldCategory,
			Prompt:  fmt.Sprintf("Which category should **%s** be published under?", displayName(a)),
			Options: PublishCategories,
		}
	case TypeChangeName:
		if a.Name == "" {
			return &InputRequest{
				Key:    FieldName,
				Prompt: "What name should I switch you to?",
			}
		}
	}
	return nil
}

// ConfirmPrompt builds the type-specific confirmation message summarising the
// effect of the action, given the fields collected so far.
func ConfirmPrompt(a Action, collected map[string]string) string {
	switch a.Type {
	case TypeRunWorkflow:
		return fmt.Sprintf("Run **%s** now?", displayName(a))
	case TypeDeleteWorkflow:
		return fmt.Sprintf("Delete **%s**? This cannot be undone.", displayName(a))
	case TypeCloneWorkflow:
		newName := collected[FieldNewName]
		if newName == "" {
			newName = displayName(a) + " (Copy)"
		}
		return fmt.Sprintf("Clone **%s** as **%s**?", displayName(a), newName)
	case TypePublishWorkflow:
		category := collected[FieldCategory]
		if category == "" {
			category = DefaultCategory
		}
		return fmt.Sprintf("Publish **%s** as a **%s** template?", displayName(a), category)
	case TypeUseTemplate:
		return fmt.Sprintf("Create a new workflow from the **%s** template?", displayName(a))
	case TypeAbortRun:
		return fmt.Sprintf("Abort run `%s`?", a.RunID)
	case TypeChangeName:
		name := a.Name
		if name == "" {
			name = collected[FieldName]
		}
		return fmt.Sprintf("Switch to the name **%s**? Your workspace will reload with that identity.", name)
	}
	return fmt.Sprintf("Go ahead with %s?", a.Type)
}

// displayName returns the friendliest available name for prompts.
func displayName(a Action) string {
	if t := a.Target(); t != "" {
		return t
	}
	return "this workflow"
}
