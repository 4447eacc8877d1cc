// Package matrix hosts the copilot in Matrix rooms.  Each room gets its own
// conversation orchestrator; option chips are rendered as a numbered list
// and replying with the number, label or value selects the option.
package matrix

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

// Config holds the Matrix connection settings.
type Config struct {
	Homeserver  string
	UserID      string
	AccessToken string
	// Rooms is the allowlist of room IDs the copilot responds in.  Empty
	// means every joined room.
	Rooms []string
	// DB is an optional SQLite connection used to persist the sync token
	// across restarts.  When nil, history replays on every restart.
	DB *sql.DB
}

// Client wraps the mautrix client with the copilot's sync-loop behaviour.
type Client struct {
	client *mautrix.Client
	config *Config
	stopCh chan struct{}

	msgHandler MessageHandler
}

// MessageHandler processes one incoming room message.
type MessageHandler func(ctx context.Context, evt *event.Event)

// NewClient connects to the homeserver.
func NewClient(config *Config) (*Client, error) {
	client, err := mautrix.NewClient(config.Homeserver, id.UserID(config.UserID), config.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Matrix client: %w", err)
	}

	c := &Client{
		client: client,
		config: config,
		stopCh: make(chan struct{}),
	}

	if config.DB != nil {
		client.Store = newDBSyncStore(config.DB)
	} else {
		slog.Warn("Matrix sync store: no DB configured, using in-memory store (history will replay on restart)")
	}

	return c, nil
}

// Start joins the configured rooms and begins syncing in the background with
// exponential back-off reconnection.
func (c *Client) Start(handler MessageHandler) error {
	c.msgHandler = handler

	syncer := c.client.Syncer.(*mautrix.DefaultSyncer)
	syncer.OnEventType(event.EventMessage, c.handleMessage)

	for _, roomID := range c.config.Rooms {
		if err := c.joinRoom(id.RoomID(roomID)); err != nil {
			return fmt.Errorf("failed to join room %s: %w", roomID, err)
		}
	}

	// Without retries a transient homeserver error would silently kill the
	// sync goroutine and leave the copilot deaf to all new messages.
	go func() {
		const (
			backoffMin = 2 * time.Second
			backoffMax = 5 * time.Minute
		)
		backoff := backoffMin
		for {
			backoff = backoffMin
			if err := c.client.Sync(); err != nil {
				select {
				case <-c.stopCh:
					return
				default:
				}
				slog.Error("Matrix sync stopped; reconnecting", "err", err, "backoff", backoff)
				select {
				case <-c.stopCh:
					return
				case <-time.After(backoff):
				}
				backoff *= 2
				if backoff > backoffMax {
					backoff = backoffMax
				}
				continue
			}
			// Sync returned nil, which only happens on a clean StopSync.
			return
		}
	}()

	return nil
}

// Stop stops the sync loop.
func (c *Client) Stop() {
	close(c.stopCh)
	c.client.StopSync()
}

// SendMarkdown sends a message rendered from the copilot's markdown subset,
// with the raw text as the plaintext fallback.
func (c *Client) SendMarkdown(roomID, md string) error {
	content := event.MessageEventContent{
		MsgType:       event.MsgText,
		Body:          md,
		Format:        event.FormatHTML,
		FormattedBody: markdownToHTML(md),
	}
	_, err := c.client.SendMessageEvent(context.Background(), id.RoomID(roomID), event.EventMessage, &content)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// SetTyping toggles the typing indicator, used while a dispatch is in flight.
func (c *Client) SetTyping(roomID string, typing bool, timeout time.Duration) error {
	_, err := c.client.UserTyping(context.Background(), id.RoomID(roomID), typing, timeout)
	if err != nil {
		return fmt.Errorf("failed to set typing: %w", err)
	}
	return nil
}

// allowedRoom reports whether the copilot responds in this room.
func (c *Client) allowedRoom(roomID string) bool {
	if len(c.config.Rooms) == 0 {
		return true
	}
	for _, room := range c.config.Rooms {
		if room == roomID {
			return true
		}
	}
	return false
}

func (c *Client) handleMessage(ctx context.Context, evt *event.Event) {
	if evt.Sender == id.UserID(c.config.UserID) {
		return
	}
	msgContent := evt.Content.AsMessage()
	if msgContent == nil || msgContent.MsgType != event.MsgText {
		return
	}
	if !c.allowedRoom(evt.RoomID.String()) {
		return
	}
	if c.msgHandler != nil {
		c.msgHandler(ctx, evt)
	}
}

func (c *Client) joinRoom(roomID id.RoomID) error {
	_, err := c.client.JoinRoomByID(context.Background(), roomID)
	if err != nil {
		// Homeservers answer M_FORBIDDEN when the account is already a
		// member of the room.
		if errors.Is(err, mautrix.MForbidden) {
			slog.Warn("joinRoom: already a member or access denied, continuing", "room", roomID)
			return nil
		}
		return err
	}
	return nil
}
