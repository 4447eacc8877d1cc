// Package pending implements the confirmation dialogue for single-shot
// actions that must not run without an explicit yes: run, delete, clone,
// publish, use-template, abort and name changes.
//
// A pending action moves through at most two phases.  The input phase
// collects one missing field (a clone's new name, a publish category, a
// missing user name); actions with nothing to collect skip it.  The confirm
// phase shows the type-specific summary and waits for an affirmative or a
// cancel.  Like the wizard, Advance is pure state transition and the caller
// owns all side effects.
package pending

import (
	"strings"

	"github.com/flowpilot-ai/copilot/internal/copilot/action"
	"github.com/flowpilot-ai/copilot/internal/copilot/phrase"
)

// Phase identifies the controller's current state.
type Phase string

const (
	PhaseInput   Phase = "input"
	PhaseConfirm Phase = "confirm"
)

// Session is one action awaiting collection and confirmation.  At most one
// exists per orchestrator, and never alongside an active wizard.
type Session struct {
	act       action.Action
	phase     Phase
	input     *action.InputRequest
	collected map[string]string
}

// New starts a pending-action session.  Actions that need a field collected
// begin in the input phase; all others go straight to confirm.
func New(a action.Action) *Session {
	s := &Session{
		act:       a,
		phase:     PhaseConfirm,
		collected: make(map[string]string),
	}
	if req := action.InputNeeded(a); req != nil {
		s.phase = PhaseInput
		s.input = req
	}
	return s
}

// Action returns the action under confirmation.
func (s *Session) Action() action.Action {
	return s.act
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	return s.phase
}

// Collected returns the fields gathered so far.  The returned map is the
// live one; callers must not mutate it.
func (s *Session) Collected() map[string]string {
	return s.collected
}

// Outcome is the result of feeding one user input to the session.
type Outcome struct {
	// Prompt is the next message to show.  Empty when Done or Cancelled.
	Prompt string
	// Options are chips offered with the prompt, when any.
	Options []action.Option
	// AttachAction marks the prompt as a confirmation to which the caller
	// attaches the pending action for button rendering.
	AttachAction bool
	// Done reports that the user confirmed; Action and Collected are ready
	// for dispatch.
	Done bool
	// Cancelled reports that the action was abandoned.
	Cancelled bool
}

// InitialPrompt returns the first prompt for a freshly-created session:
// either the input question or the confirmation summary.
func (s *Session) InitialPrompt() Outcome {
	if s.phase == PhaseInput {
		return Outcome{Prompt: s.input.Prompt, Options: s.input.Options}
	}
	return s.confirmOutcome()
}

// Advance feeds one user input (typed text or a chosen option value) to the
// session and returns the transition outcome.  A cancel keyword cancels from
// either phase.
func (s *Session) Advance(input string) Outcome {
	if phrase.IsCancel(input) {
		return Outcome{Cancelled: true}
	}

	input = strings.TrimSpace(input)

	switch s.phase {
	case PhaseInput:
		// An empty answer is accepted: the dispatcher substitutes the
		// per-field default ("<name> (Copy)", the general category).
		if input != "" {
			s.collected[s.input.Key] = input
		}
		s.phase = PhaseConfirm
		return s.confirmOutcome()

	case PhaseConfirm:
		if phrase.IsAffirmative(input) {
			return Outcome{Done: true}
		}
		// Declining the summary abandons the action even without an
		// explicit cancel keyword.
		return Outcome{Cancelled: true}
	}

	return Outcome{Cancelled: true}
}

// confirmOutcome builds the confirmation summary for the current action.
func (s *Session) confirmOutcome() Outcome {
	return Outcome{
		Prompt:       action.ConfirmPrompt(s.act, s.collected),
		Options:      action.YesCancelOptions,
		AttachAction: true,
	}
}
