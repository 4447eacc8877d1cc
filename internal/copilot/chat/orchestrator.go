// Package chat implements the conversational orchestrator: the dialogue
// state machine that turns free-form input and option clicks into classified
// actions, walks the creation wizard and pending-action confirmations, and
// dispatches confirmed actions exactly once.
//
// One Orchestrator serves one conversation (a web session, a Matrix room).
// Events are handled one at a time; the transcript is an append-only log and
// the wizard and pending-action slots are singletons that are never active
// simultaneously.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/flowpilot-ai/copilot/internal/copilot/action"
	"github.com/flowpilot-ai/copilot/internal/copilot/dispatch"
	"github.com/flowpilot-ai/copilot/internal/copilot/nlp"
	"github.com/flowpilot-ai/copilot/internal/copilot/pending"
	"github.com/flowpilot-ai/copilot/internal/copilot/wizard"
)

// ErrBusy is returned under OverlapReject when an event arrives while a
// previous event is still being handled.
var ErrBusy = errors.New("chat: an action is already in flight")

// OverlapPolicy decides what happens to events that arrive while a previous
// event (typically a slow dispatch) is still in flight.
type OverlapPolicy int

const (
	// OverlapReject rejects overlapping events with ErrBusy.  The default:
	// it guarantees results appear in request order.
	OverlapReject OverlapPolicy = iota
	// OverlapQueue makes overlapping events wait their turn.
	OverlapQueue
)

const cancelledMessage = "🚫 Okay, I've cancelled that. What else can I do for you?"

const notFoundSuffix = "\n\nSay \"show my workflows\" if you want to see what's available."

// Effect carries the side-channel requests a turn produced for the host.
type Effect struct {
	// NavigatePath asks the host to open this path, when non-empty.
	NavigatePath string
	// Invalidate lists resource collections whose caches are stale.
	Invalidate []string
	// ReloadAfter asks for a full reload after the delay, when non-zero.
	ReloadAfter time.Duration
}

// Turn is the result of handling one input event: the messages appended
// during the event, plus any effects for the host to honor.
type Turn struct {
	Messages []*Message
	Effect   Effect
}

// Orchestrator owns one conversation's dialogue state.
type Orchestrator struct {
	sessionID  string
	interp     nlp.Provider
	dispatcher *dispatch.Dispatcher
	svc        dispatch.Services
	policy     OverlapPolicy

	mu          sync.Mutex
	busy        atomic.Bool
	pageContext string
	transcript  []*Message
	wiz         *wizard.Session
	pend        *pending.Session
}

// New creates an orchestrator for one conversation.
func New(interp nlp.Provider, dispatcher *dispatch.Dispatcher, svc dispatch.Services, policy OverlapPolicy) *Orchestrator {
	return &Orchestrator{
		sessionID:  uuid.NewString(),
		interp:     interp,
		dispatcher: dispatcher,
		svc:        svc,
		policy:     policy,
	}
}

// SessionID returns the conversation's unique ID, used for audit rows.
func (o *Orchestrator) SessionID() string {
	return o.sessionID
}

// IsBusy reports whether a dispatch or interpretation is in flight.  It is
// advisory: hosts use it to disable input affordances.
func (o *Orchestrator) IsBusy() bool {
	return o.busy.Load()
}

// SetContext stores the host-supplied page context passed to the
// interpreter on subsequent submits.
func (o *Orchestrator) SetContext(pageContext string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pageContext = pageContext
}

// Transcript returns a snapshot of the conversation so far.
func (o *Orchestrator) Transcript() []*Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]*Message, len(o.transcript))
	copy(out, o.transcript)
	return out
}

// StateLabel returns the input placeholder describing what the orchestrator
// expects next.
func (o *Orchestrator) StateLabel() string {
	if o.busy.Load() {
		return "Working on it..."
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.wiz != nil {
		switch o.wiz.Step() {
		case wizard.StepName:
			return "Name your workflow..."
		case wizard.StepDescription:
			return "Describe what it should do..."
		case wizard.StepTrigger:
			return "Choose a trigger..."
		case wizard.StepSchedule:
			return "When should it run?"
		case wizard.StepConfirm:
			return "Type yes to create, or cancel"
		}
	}
	if o.pend != nil {
		if o.pend.Phase() == pending.PhaseInput {
			return "Type your answer, or cancel"
		}
		return "Type yes to confirm, or cancel"
	}
	return "Ask me anything about your workflows..."
}

// Submit handles one free-text input event.
func (o *Orchestrator) Submit(ctx context.Context, text string) (*Turn, error) {
	return o.handle(ctx, text, false)
}

// SelectOption handles an option-chip click.  Clicking is equivalent to
// typing the option's value, except that clicks on an already-consumed
// option set are inert.
func (o *Orchestrator) SelectOption(ctx context.Context, value string) (*Turn, error) {
	return o.handle(ctx, value, true)
}

// CancelActive abandons the active wizard or pending action, if any.
func (o *Orchestrator) CancelActive() *Turn {
	o.mu.Lock()
	defer o.mu.Unlock()

	turn := &Turn{}
	if o.wiz == nil && o.pend == nil {
		return turn
	}
	o.wiz = nil
	o.pend = nil
	o.consumeLatestOptions()
	o.consumeAttachedAction()
	o.appendAssistant(turn, cancelledMessage, false)
	return turn
}

func (o *Orchestrator) handle(ctx context.Context, input string, fromOption bool) (*Turn, error) {
	if input == "" {
		return &Turn{}, nil
	}

	if o.policy == OverlapReject {
		if !o.mu.TryLock() {
			return nil, ErrBusy
		}
	} else {
		o.mu.Lock()
	}
	defer o.mu.Unlock()

	turn := &Turn{}

	if fromOption {
		m := o.latestOptionsMessage()
		if m == nil || m.OptionsConsumed {
			// Option exhaustion: acting on a consumed set has no effect.
			return turn, nil
		}
	}

	o.appendMessage(turn, &Message{Role: RoleUser, Text: input})

	switch {
	case o.wiz != nil:
		o.advanceWizard(ctx, turn, input)
	case o.pend != nil:
		o.advancePending(ctx, turn, input)
	default:
		o.interpret(ctx, turn, input)
	}
	return turn, nil
}

// advanceWizard feeds input to the active wizard.  The wizard slot is
// cleared before any dispatch so a failure cannot re-trigger creation.
func (o *Orchestrator) advanceWizard(ctx context.Context, turn *Turn, input string) {
	o.consumeLatestOptions()
	out := o.wiz.Advance(input)

	switch {
	case out.Cancelled:
		o.wiz = nil
		o.consumeAttachedAction()
		o.appendAssistant(turn, cancelledMessage, false)

	case out.Done:
		data := o.wiz.Data()
		o.wiz = nil
		o.consumeAttachedAction()

		res, err := o.dispatchWizard(ctx, data)
		if err != nil {
			o.appendAssistant(turn, dispatch.FailureMessage, false)
			return
		}
		o.appendAssistant(turn, res.Message, false)
		turn.Effect = effectOf(res)

	default:
		m := &Message{Role: RoleAssistant, Text: out.Prompt, Options: out.Options}
		if out.AttachConfirm {
			m.AttachedAction = &action.Action{Type: action.TypeWizardConfirm, Name: o.wiz.Data().Name}
		}
		o.appendMessage(turn, m)
	}
}

// advancePending feeds input to the active pending action.  The pending slot
// is cleared before dispatch, guaranteeing at-most-once execution.
func (o *Orchestrator) advancePending(ctx context.Context, turn *Turn, input string) {
	o.consumeLatestOptions()
	out := o.pend.Advance(input)

	switch {
	case out.Cancelled:
		o.pend = nil
		o.consumeAttachedAction()
		o.appendAssistant(turn, cancelledMessage, false)

	case out.Done:
		act := o.pend.Action()
		collected := o.pend.Collected()
		o.pend = nil
		o.consumeAttachedAction()

		res, err := o.dispatchAction(ctx, act, collected)
		if err != nil {
			o.appendAssistant(turn, dispatch.FailureMessage, false)
			return
		}
		o.appendAssistant(turn, res.Message, false)
		turn.Effect = effectOf(res)

	default:
		m := &Message{Role: RoleAssistant, Text: out.Prompt, Options: out.Options}
		if out.AttachAction {
			a := o.pend.Action()
			m.AttachedAction = &a
		}
		o.appendMessage(turn, m)
	}
}

// interpret sends fresh input to the intent interpreter and routes any
// extracted action per its catalog class.
func (o *Orchestrator) interpret(ctx context.Context, turn *Turn, input string) {
	o.busy.Store(true)
	defer o.busy.Store(false)

	result, err := o.interp.Interpret(ctx, nlp.Request{
		Message:        input,
		Context:        o.pageContext,
		KnownWorkflows: o.workflowNames(ctx),
	})
	if err != nil {
		slog.Warn("interpretation failed", "session_id", o.sessionID, "err", err)
		o.appendAssistant(turn, nlp.FallbackReply, false)
		return
	}

	reply := result.Reply
	var class action.Class
	if result.Action != nil {
		class = action.Classify(*result.Action)
		if class == action.ClassTerminal {
			reply += notFoundSuffix
		}
	}
	if reply != "" {
		o.appendAssistant(turn, reply, result.AIGenerated)
	}
	if result.Action == nil {
		return
	}
	a := *result.Action

	switch class {
	case action.ClassAuto:
		res, err := o.dispatchAction(ctx, a, nil)
		if err != nil {
			o.appendAssistant(turn, dispatch.FailureMessage, false)
			return
		}
		o.appendAssistant(turn, res.Message, false)
		turn.Effect = effectOf(res)

	case action.ClassWizard:
		o.wiz = wizard.New(a.Name, a.Description)
		out := o.wiz.InitialPrompt()
		o.appendMessage(turn, &Message{Role: RoleAssistant, Text: out.Prompt, Options: out.Options})

	case action.ClassConfirm:
		o.pend = pending.New(a)
		out := o.pend.InitialPrompt()
		m := &Message{Role: RoleAssistant, Text: out.Prompt, Options: out.Options}
		if out.AttachAction {
			m.AttachedAction = &a
		}
		o.appendMessage(turn, m)

	case action.ClassTerminal:
		// Reply (with suffix) already appended; no action retained.

	default:
		slog.Debug("dropping unclassifiable action",
			"session_id", o.sessionID, "type", string(a.Type))
	}
}

func (o *Orchestrator) dispatchAction(ctx context.Context, a action.Action, collected map[string]string) (dispatch.Result, error) {
	o.busy.Store(true)
	defer o.busy.Store(false)
	return o.dispatcher.Execute(ctx, o.sessionID, a, collected)
}

func (o *Orchestrator) dispatchWizard(ctx context.Context, data wizard.Data) (dispatch.Result, error) {
	o.busy.Store(true)
	defer o.busy.Store(false)
	return o.dispatcher.CreateFromWizard(ctx, o.sessionID, data)
}

// workflowNames lists the user's workflow names for interpreter context.
// Lookup failures degrade to no context rather than failing the turn.
func (o *Orchestrator) workflowNames(ctx context.Context) []string {
	workflows, err := o.svc.ListWorkflows(ctx)
	if err != nil {
		slog.Debug("could not list workflows for interpreter context",
			"session_id", o.sessionID, "err", err)
		return nil
	}
	names := make([]string, 0, len(workflows))
	for _, wf := range workflows {
		names = append(names, wf.Name)
	}
	return names
}

func (o *Orchestrator) appendMessage(turn *Turn, m *Message) *Message {
	m.ID = uuid.NewString()
	m.At = time.Now()
	o.transcript = append(o.transcript, m)
	turn.Messages = append(turn.Messages, m)
	return m
}

func (o *Orchestrator) appendAssistant(turn *Turn, text string, aiGenerated bool) *Message {
	return o.appendMessage(turn, &Message{Role: RoleAssistant, Text: text, GeneratedByAI: aiGenerated})
}

// latestOptionsMessage returns the most recent message carrying options.
func (o *Orchestrator) latestOptionsMessage() *Message {
	for i := len(o.transcript) - 1; i >= 0; i-- {
		if len(o.transcript[i].Options) > 0 {
			return o.transcript[i]
		}
	}
	return nil
}

// consumeLatestOptions marks the newest unconsumed option set as consumed.
// Called whenever input is accepted by the wizard or pending controller,
// since typed text is equivalent to a chip click.
func (o *Orchestrator) consumeLatestOptions() {
	if m := o.latestOptionsMessage(); m != nil && !m.OptionsConsumed {
		m.OptionsConsumed = true
	}
}

// consumeAttachedAction marks the newest unconsumed attached action as
// consumed, whether it was dispatched or declined.
func (o *Orchestrator) consumeAttachedAction() {
	for i := len(o.transcript) - 1; i >= 0; i-- {
		m := o.transcript[i]
		if m.AttachedAction != nil {
			if !m.ActionConsumed {
				m.ActionConsumed = true
			}
			return
		}
	}
}

func effectOf(res dispatch.Result) Effect {
	return Effect{
		NavigatePath: res.NavigatePath,
		Invalidate:   res.Invalidate,
		ReloadAfter:  res.ReloadAfter,
	}
}
