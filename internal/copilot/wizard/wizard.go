// Package wizard implements the multi-step workflow-creation dialogue.
//
// The wizard is a finite-state machine over the steps name → description →
// trigger → schedule → confirm.  Steps whose values the intent interpreter
// already extracted are skipped, the schedule step only exists for scheduled
// triggers, and a cancel keyword abandons the wizard from any step.
//
// Session.Advance is pure state transition: it never performs I/O, so every
// transition is unit-testable without a host or backend.  The orchestrator
// owns the side effects (plan + create calls) once an outcome reports Done.
package wizard

import (
	"fmt"
	"strings"

	"github.com/flowpilot-ai/copilot/internal/copilot/action"
	"github.com/flowpilot-ai/copilot/internal/copilot/phrase"
)

// Step identifies the wizard's current state.
type Step string

const (
	StepName        Step = "name"
	StepDescription Step = "description"
	StepTrigger     Step = "trigger"
	StepSchedule    Step = "schedule"
	StepConfirm     Step = "confirm"
)

// minDescriptionLen is the shortest trimmed description the wizard accepts.
const minDescriptionLen = 5

// Data is the partially-filled creation form.  Fields accumulate
// monotonically over the wizard's lifetime and are discarded on completion
// or cancellation.
type Data struct {
	Name         string
	Description  string
	TriggerType  string
	ScheduleCron string
}

// Session is one active wizard.  At most one exists per orchestrator.
type Session struct {
	step Step
	data Data
}

// New starts a wizard, skipping steps whose values the interpreter already
// extracted: with both name and description known the wizard begins at the
// trigger step, with only one of the two known it begins at the other.
func New(name, description string) *Session {
	s := &Session{step: StepName}
	s.data.Name = strings.TrimSpace(name)
	if d := strings.TrimSpace(description); len(d) >= minDescriptionLen {
		s.data.Description = d
	}

	switch {
	case s.data.Name != "" && s.data.Description != "":
		s.step = StepTrigger
	case s.data.Name != "":
		s.step = StepDescription
	default:
		s.step = StepName
	}
	return s
}

// Step returns the current step.
func (s *Session) Step() Step {
	return s.step
}

// Data returns a copy of the collected form.
func (s *Session) Data() Data {
	return s.data
}

// Outcome is the result of feeding one user input to the wizard.
type Outcome struct {
	// Prompt is the next message to show.  Empty when Done or Cancelled.
	Prompt string
	// Options are chips offered with the prompt, when any.
	Options []action.Option
	// AttachConfirm marks the prompt as the final summary, to which the
	// caller attaches the synthetic wizard_confirm action.
	AttachConfirm bool
	// Done reports that the user confirmed; Data is ready for dispatch.
	Done bool
	// Cancelled reports that the wizard was abandoned.
	Cancelled bool
}

// Advance feeds one user input (typed text or a chosen option value) to the
// wizard and returns the transition outcome.  A cancel keyword cancels from
// any step without advancing.
func (s *Session) Advance(input string) Outcome {
	if phrase.IsCancel(input) {
		return Outcome{Cancelled: true}
	}

	input = strings.TrimSpace(input)

	switch s.step {
	case StepName:
		if input == "" {
			return s.promptOutcome()
		}
		s.data.Name = input
		if s.data.Description != "" {
			s.step = StepTrigger
		} else {
			s.step = StepDescription
		}
		return s.promptOutcome()

	case StepDescription:
		if len(input) < minDescriptionLen {
			// Re-prompt in place; too-short input is not an error.
			return Outcome{Prompt: fmt.Sprintf(
				"Could you give me a little more detail? A few words about what **%s** should do (at least %d characters).",
				s.data.Name, minDescriptionLen)}
		}
		s.data.Description = input
		s.step = StepTrigger
		return s.promptOutcome()

	case StepTrigger:
		s.data.TriggerType = ParseTrigger(input)
		if s.data.TriggerType == TriggerScheduled {
			s.step = StepSchedule
		} else {
			s.step = StepConfirm
		}
		return s.promptOutcome()

	case StepSchedule:
		s.data.ScheduleCron = ResolveSchedule(input)
		s.step = StepConfirm
		return s.promptOutcome()

	case StepConfirm:
		if phrase.IsAffirmative(input) {
			return Outcome{Done: true}
		}
		// Anything that is neither affirmative nor an explicit cancel still
		// abandons the wizard: the user declined the summary.
		return Outcome{Cancelled: true}
	}

	return Outcome{Cancelled: true}
}

// promptOutcome builds the prompt (and chips) for the current step.
func (s *Session) promptOutcome() Outcome {
	switch s.step {
	case StepName:
		return Outcome{Prompt: "What should the new workflow be called?"}
	case StepDescription:
		return Outcome{Prompt: fmt.Sprintf(
			"Describe what **%s** should do — a sentence or two is plenty.", s.data.Name)}
	case StepTrigger:
		return Outcome{
			Prompt: fmt.Sprintf("How should **%s** be triggered?", s.data.Name),
			Options: []action.Option{
				{Label: "Manual", Value: "manual"},
				{Label: "Scheduled", Value: "scheduled"},
				{Label: "Webhook", Value: "webhook"},
			},
		}
	case StepSchedule:
		return Outcome{Prompt: "When should it run? Try \"every hour\", \"daily\", \"every monday\" — or a cron expression."}
	case StepConfirm:
		return Outcome{
			Prompt:        s.summary(),
			Options:       action.YesCancelOptions,
			AttachConfirm: true,
		}
	}
	return Outcome{Cancelled: true}
}

// InitialPrompt returns the first prompt for a freshly-created session.
func (s *Session) InitialPrompt() Outcome {
	return s.promptOutcome()
}

// summary renders the final confirmation message.
func (s *Session) summary() string {
	var sb strings.Builder
	sb.WriteString("Here's what I'll create:\n\n")
	sb.WriteString(fmt.Sprintf("• Name: **%s**\n", s.data.Name))
	sb.WriteString(fmt.Sprintf("• Description: %s\n", s.data.Description))
	trigger := s.data.TriggerType
	if trigger == "" {
		trigger = TriggerManual
	}
	sb.WriteString(fmt.Sprintf("• Trigger: %s\n", trigger))
	if s.data.ScheduleCron != "" {
		sb.WriteString(fmt.Sprintf("• Schedule: `%s`\n", s.data.ScheduleCron))
	}
	sb.WriteString("\nShall I go ahead?")
	return sb.String()
}
