package matrix

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"maunium.net/go/mautrix/event"

	"github.com/flowpilot-ai/copilot/internal/copilot/chat"
)

const busyReply = "⏳ I'm still working on your last request. One moment..."

// Host routes room messages to per-room conversation orchestrators and
// renders the results back into the room.
type Host struct {
	client       *Client
	newSession   func() *chat.Orchestrator
	dashboardURL string

	mu       sync.Mutex
	sessions map[string]*chat.Orchestrator
}

// NewHost creates a Matrix host.  newSession is called once per room to
// create its orchestrator.  dashboardURL, when non-empty, turns navigation
// effects into links; an empty URL drops them.
func NewHost(client *Client, newSession func() *chat.Orchestrator, dashboardURL string) *Host {
	return &Host{
		client:       client,
		newSession:   newSession,
		dashboardURL: strings.TrimRight(dashboardURL, "/"),
		sessions:     make(map[string]*chat.Orchestrator),
	}
}

// Start begins handling room messages.
func (h *Host) Start() error {
	return h.client.Start(h.handleEvent)
}

// Stop stops the underlying client.
func (h *Host) Stop() {
	h.client.Stop()
}

func (h *Host) session(roomID string) *chat.Orchestrator {
	h.mu.Lock()
	defer h.mu.Unlock()
	o, ok := h.sessions[roomID]
	if !ok {
		o = h.newSession()
		h.sessions[roomID] = o
		slog.Info("matrix: new conversation", "room", roomID, "session_id", o.SessionID())
	}
	return o
}

func (h *Host) handleEvent(ctx context.Context, evt *event.Event) {
	roomID := evt.RoomID.String()
	body := strings.TrimSpace(evt.Content.AsMessage().Body)
	if body == "" {
		return
	}

	o := h.session(roomID)

	if err := h.client.SetTyping(roomID, true, 30*time.Second); err == nil {
		defer h.client.SetTyping(roomID, false, 0)
	}

	var turn *chat.Turn
	var err error
	if value, ok := matchOption(o.Transcript(), body); ok {
		turn, err = o.SelectOption(ctx, value)
	} else {
		turn, err = o.Submit(ctx, body)
	}
	if err != nil {
		if errors.Is(err, chat.ErrBusy) {
			if sendErr := h.client.SendMarkdown(roomID, busyReply); sendErr != nil {
				slog.Warn("matrix: send busy reply", "room", roomID, "err", sendErr)
			}
			return
		}
		slog.Error("matrix: handling message", "room", roomID, "err", err)
		return
	}

	h.render(roomID, turn)
}

// render sends the turn's assistant messages and honors its effects.  The
// user's own message is already visible in the room, so user-role entries
// are skipped.
func (h *Host) render(roomID string, turn *chat.Turn) {
	for _, m := range turn.Messages {
		if m.Role != chat.RoleAssistant {
			continue
		}
		text := m.Text
		if len(m.Options) > 0 && !m.OptionsConsumed {
			var sb strings.Builder
			sb.WriteString(text)
			sb.WriteString("\n\n")
			for i, opt := range m.Options {
				sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, opt.Label))
			}
			sb.WriteString("\n_Reply with a number, or just type your answer._")
			text = sb.String()
		}
		if err := h.client.SendMarkdown(roomID, text); err != nil {
			slog.Warn("matrix: send message", "room", roomID, "err", err)
		}
	}

	// Navigation becomes a link; a chat room has no page to swap.  Cache
	// invalidation and reloads are web-host concerns.
	if turn.Effect.NavigatePath != "" && h.dashboardURL != "" {
		link := fmt.Sprintf("🔗 %s%s", h.dashboardURL, turn.Effect.NavigatePath)
		if err := h.client.SendMarkdown(roomID, link); err != nil {
			slog.Warn("matrix: send navigation link", "room", roomID, "err", err)
		}
	}
	if len(turn.Effect.Invalidate) > 0 {
		slog.Debug("matrix: ignoring cache invalidation", "room", roomID, "collections", turn.Effect.Invalidate)
	}
}

// matchOption resolves a room reply against the newest unconsumed option
// set: a 1-based number, or a case-insensitive label or value match.
func matchOption(transcript []*chat.Message, body string) (string, bool) {
	var options *chat.Message
	for i := len(transcript) - 1; i >= 0; i-- {
		if len(transcript[i].Options) > 0 {
			options = transcript[i]
			break
		}
	}
	if options == nil || options.OptionsConsumed {
		return "", false
	}

	if n, err := strconv.Atoi(body); err == nil {
		if n >= 1 && n <= len(options.Options) {
			return options.Options[n-1].Value, true
		}
		return "", false
	}
	for _, opt := range options.Options {
		if strings.EqualFold(body, opt.Label) || strings.EqualFold(body, opt.Value) {
			return opt.Value, true
		}
	}
	return "", false
}
