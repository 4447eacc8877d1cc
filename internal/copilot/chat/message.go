package chat

import (
	"time"

	"github.com/flowpilot-ai/copilot/internal/copilot/action"
)

// Role identifies who produced a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry.  Messages are append-only and immutable
// once appended, except for the two Consumed flags, which are set exactly
// once by the handler that acts on the message's action or options.
type Message struct {
	ID   string    `json:"id"`
	Role Role      `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`

	// GeneratedByAI marks assistant replies produced by a live model rather
	// than the deterministic fallback.
	GeneratedByAI bool `json:"generated_by_ai,omitempty"`

	// AttachedAction is an action offered for manual execution (a pending
	// confirmation, or the wizard's synthetic wizard_confirm summary).
	AttachedAction *action.Action `json:"attached_action,omitempty"`
	// ActionConsumed is set once the attached action has been dispatched or
	// declined; the host stops rendering its button.
	ActionConsumed bool `json:"action_consumed,omitempty"`

	// Options are selectable chips offered alongside free-text input.
	Options []action.Option `json:"options,omitempty"`
	// OptionsConsumed is set once any option (or a typed equivalent) has
	// been accepted; the chips become permanently inert.
	OptionsConsumed bool `json:"options_consumed,omitempty"`
}
