package pending

import (
	"strings"
	"testing"

	"github.com/flowpilot-ai/copilot/internal/copilot/action"
)

func TestNewPhase(t *testing.T) {
	tests := []struct {
		name   string
		action action.Action
		want   Phase
	}{
		{"run skips input", action.Action{Type: action.TypeRunWorkflow, WorkflowID: "wf1"}, PhaseConfirm},
		{"delete skips input", action.Action{Type: action.TypeDeleteWorkflow, WorkflowID: "wf1"}, PhaseConfirm},
		{"abort skips input", action.Action{Type: action.TypeAbortRun, RunID: "r1"}, PhaseConfirm},
		{"use_template skips input", action.Action{Type: action.TypeUseTemplate, TemplateID: "t1"}, PhaseConfirm},
		{"clone collects a name", action.Action{Type: action.TypeCloneWorkflow, WorkflowName: "Price Watcher"}, PhaseInput},
		{"publish collects a category", action.Action{Type: action.TypePublishWorkflow, WorkflowName: "Price Watcher"}, PhaseInput},
		{"change_name without name collects one", action.Action{Type: action.TypeChangeName}, PhaseInput},
		{"change_name with name skips input", action.Action{Type: action.TypeChangeName, Name: "alex"}, PhaseConfirm},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.action)
			if s.Phase() != tt.want {
				t.Errorf("New(%v).Phase() = %q, want %q", tt.action, s.Phase(), tt.want)
			}
		})
	}
}

func TestInitialPrompt(t *testing.T) {
	// Input phase leads with the question.
	s := New(action.Action{Type: action.TypePublishWorkflow, WorkflowName: "Price Watcher"})
	out := s.InitialPrompt()
	if out.AttachAction {
		t.Error("input prompt must not carry the action attachment")
	}
	if len(out.Options) == 0 {
		t.Error("publish input prompt should offer category chips")
	}

	// Confirm phase leads with the summary and yes/cancel chips.
	s = New(action.Action{Type: action.TypeRunWorkflow, WorkflowName: "Price Watcher"})
	out = s.InitialPrompt()
	if !out.AttachAction {
		t.Error("confirm prompt must carry the action attachment")
	}
	if !strings.Contains(out.Prompt, "Price Watcher") {
		t.Errorf("confirm prompt should name the workflow: %q", out.Prompt)
	}
	if len(out.Options) != 2 {
		t.Errorf("confirm prompt should offer yes/cancel, got %+v", out.Options)
	}
}

func TestCollectThenConfirm(t *testing.T) {
	s := New(action.Action{Type: action.TypeCloneWorkflow, WorkflowName: "Price Watcher"})

	out := s.Advance("Watcher v2")
	if s.Phase() != PhaseConfirm {
		t.Fatalf("phase = %q after input, want confirm", s.Phase())
	}
	if !strings.Contains(out.Prompt, "Watcher v2") {
		t.Errorf("confirmation should echo the collected name: %q", out.Prompt)
	}
	if got := s.Collected()[action.FieldNewName]; got != "Watcher v2" {
		t.Errorf("collected[new_name] = %q", got)
	}

	out = s.Advance("yes")
	if !out.Done {
		t.Fatalf("affirmative at confirm must complete: %+v", out)
	}
}

func TestEmptyInputAccepted(t *testing.T) {
	// Skipping the question is fine; the dispatcher fills in the default.
	tests := []struct {
		name   string
		action action.Action
		input  string
		key    string
	}{
		{"clone empty name", action.Action{Type: action.TypeCloneWorkflow, WorkflowName: "Price Watcher"}, "", action.FieldNewName},
		{"clone whitespace name", action.Action{Type: action.TypeCloneWorkflow, WorkflowName: "Price Watcher"}, "   ", action.FieldNewName},
		{"publish empty category", action.Action{Type: action.TypePublishWorkflow, WorkflowName: "Price Watcher"}, "", action.FieldCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.action)
			s.Advance(tt.input)
			if s.Phase() != PhaseConfirm {
				t.Fatalf("phase = %q, empty input must still advance to confirm", s.Phase())
			}
			if _, ok := s.Collected()[tt.key]; ok {
				t.Errorf("empty input must not be stored under %q", tt.key)
			}
		})
	}
}

func TestCancelFromBothPhases(t *testing.T) {
	s := New(action.Action{Type: action.TypeCloneWorkflow, WorkflowName: "Price Watcher"})
	if out := s.Advance("cancel"); !out.Cancelled {
		t.Errorf("cancel during input must abandon: %+v", out)
	}

	s = New(action.Action{Type: action.TypeDeleteWorkflow, WorkflowName: "Price Watcher"})
	if out := s.Advance("nevermind"); !out.Cancelled {
		t.Errorf("cancel keyword at confirm must abandon: %+v", out)
	}
}

func TestDecliningConfirmCancels(t *testing.T) {
	s := New(action.Action{Type: action.TypeDeleteWorkflow, WorkflowName: "Price Watcher"})
	out := s.Advance("hmm actually no")
	if !out.Cancelled {
		t.Errorf("non-affirmative at confirm must cancel: %+v", out)
	}
	if out.Done {
		t.Error("declined action must never report Done")
	}
}

func TestCompoundAffirmativeConfirms(t *testing.T) {
	s := New(action.Action{Type: action.TypeRunWorkflow, WorkflowID: "wf1"})
	if out := s.Advance("yes please go ahead"); !out.Done {
		t.Errorf("compound affirmative must confirm: %+v", out)
	}
}
