// Package nlp provides the intent-interpretation layer for the copilot.
//
// The interpreter sits between raw chat text and the action catalog.  Its
// sole responsibility is translation: convert a free-form sentence into a
// reply plus an optional structured Action the orchestrator can classify.
// It never executes anything itself; every mutation still flows through
// classification → confirmation → dispatch → audit.
package nlp

import (
	"context"
	"errors"
	"log/slog"

	"github.com/flowpilot-ai/copilot/internal/copilot/action"
)

// ErrMalformedOutput is returned when the model responds with a structurally
// valid HTTP body whose content cannot be interpreted as a Result.  Callers
// surface FallbackReply so the user knows to rephrase.
var ErrMalformedOutput = errors.New("nlp: malformed response from model")

// FallbackReply is the single message shown when interpretation fails
// entirely.  No action is retained and no dialogue state is entered.
const FallbackReply = "🤔 I'm having trouble understanding right now. Please try again in a moment, or use the dashboard directly."

// Request is the input to one interpretation call.
type Request struct {
	// Message is the raw text the user submitted.
	Message string
	// Context is the host-supplied page context string, when any.
	Context string
	// KnownWorkflows lists the user's workflow names so the model can match
	// references like "the price watcher one".
	KnownWorkflows []string
}

// Result is the interpreter's output: a reply to show and, optionally, a
// structured action for the catalog to classify.
type Result struct {
	// Reply is the assistant text appended to the transcript.
	Reply string
	// AIGenerated marks replies produced by a live model rather than the
	// deterministic fallback.
	AIGenerated bool
	// Action is the structured action extracted from the message, or nil
	// for purely conversational replies.
	Action *action.Action
}

// Provider interprets free-form user messages.
//
// Implementations must be safe for concurrent use.  When a provider is
// unavailable (network error, rate limit) it returns a descriptive error;
// callers degrade to the deterministic keyword interpreter.
type Provider interface {
	Interpret(ctx context.Context, req Request) (*Result, error)
}

// fallbackProvider tries a primary provider and degrades to a secondary one
// when the primary fails.  The secondary's error, if any, is returned as-is.
type fallbackProvider struct {
	primary   Provider
	secondary Provider
}

// NewFallback chains two providers: primary first, secondary on any primary
// error.  Used to back the model interpreter with the keyword interpreter.
func NewFallback(primary, secondary Provider) Provider {
	return &fallbackProvider{primary: primary, secondary: secondary}
}

func (p *fallbackProvider) Interpret(ctx context.Context, req Request) (*Result, error) {
	result, err := p.primary.Interpret(ctx, req)
	if err == nil {
		return result, nil
	}
	slog.Warn("nlp: primary interpreter failed, using fallback", "err", err)
	return p.secondary.Interpret(ctx, req)
}
