// Package gateway hosts the copilot over HTTP: a health endpoint for
// deployment probes and a WebSocket chat endpoint for the web client.  Each
// WebSocket connection owns its own conversation orchestrator; unlike the
// Matrix host, this host honors navigation, invalidation and reload effects
// by forwarding them as events for the client to act on.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/flowpilot-ai/copilot/common/version"
	"github.com/flowpilot-ai/copilot/internal/copilot/chat"
)

// Server is the HTTP/WebSocket host.
type Server struct {
	addr       string
	newSession func() *chat.Orchestrator
	httpServer *http.Server
	upgrader   websocket.Upgrader
}

// NewServer creates the gateway listening on addr.  newSession is called
// once per WebSocket connection.
func NewServer(addr string, newSession func() *chat.Orchestrator) *Server {
	s := &Server{
		addr:       addr,
		newSession: newSession,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The backend fronts its own clients; origin policy is enforced
			// at the reverse proxy.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWS)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start begins serving in the background.
func (s *Server) Start() {
	go func() {
		slog.Info("gateway: listening", "addr", s.addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("gateway: server stopped", "err", err)
		}
	}()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","version":%q}`, version.Version)
}

// clientEvent is one inbound WebSocket frame.
type clientEvent struct {
	Type    string `json:"type"` // submit, select_option, cancel, set_context
	Text    string `json:"text,omitempty"`
	Value   string `json:"value,omitempty"`
	Context string `json:"context,omitempty"`
}

// serverEvent is one outbound WebSocket frame.
type serverEvent struct {
	Type        string        `json:"type"` // message, busy, state, navigate, invalidate, reload, error
	Message     *chat.Message `json:"message,omitempty"`
	Busy        bool          `json:"busy,omitempty"`
	Label       string        `json:"label,omitempty"`
	Path        string        `json:"path,omitempty"`
	Collections []string      `json:"collections,omitempty"`
	AfterMS     int64         `json:"after_ms,omitempty"`
	Error       string        `json:"error,omitempty"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("gateway: websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	o := s.newSession()
	slog.Info("gateway: new conversation", "session_id", o.SessionID(), "remote", r.RemoteAddr)

	send := func(evt serverEvent) {
		if err := conn.WriteJSON(evt); err != nil {
			slog.Debug("gateway: write failed", "session_id", o.SessionID(), "err", err)
		}
	}
	send(serverEvent{Type: "state", Label: o.StateLabel()})

	// Events are read and handled sequentially per connection, matching the
	// orchestrator's one-event-at-a-time model.
	for {
		var evt clientEvent
		if err := conn.ReadJSON(&evt); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("gateway: connection closed", "session_id", o.SessionID(), "err", err)
			}
			return
		}
		s.handleEvent(r.Context(), o, evt, send)
	}
}

func (s *Server) handleEvent(ctx context.Context, o *chat.Orchestrator, evt clientEvent, send func(serverEvent)) {
	var turn *chat.Turn
	var err error

	switch evt.Type {
	case "submit":
		send(serverEvent{Type: "busy", Busy: true})
		turn, err = o.Submit(ctx, evt.Text)
	case "select_option":
		send(serverEvent{Type: "busy", Busy: true})
		turn, err = o.SelectOption(ctx, evt.Value)
	case "cancel":
		turn = o.CancelActive()
	case "set_context":
		o.SetContext(evt.Context)
		return
	default:
		send(serverEvent{Type: "error", Error: fmt.Sprintf("unknown event type %q", evt.Type)})
		return
	}

	defer send(serverEvent{Type: "busy", Busy: false})
	defer send(serverEvent{Type: "state", Label: o.StateLabel()})

	if err != nil {
		if err == chat.ErrBusy {
			send(serverEvent{Type: "error", Error: "busy"})
			return
		}
		slog.Error("gateway: handling event", "session_id", o.SessionID(), "err", err)
		send(serverEvent{Type: "error", Error: "internal"})
		return
	}

	for _, m := range turn.Messages {
		send(serverEvent{Type: "message", Message: m})
	}
	if turn.Effect.NavigatePath != "" {
		send(serverEvent{Type: "navigate", Path: turn.Effect.NavigatePath})
	}
	if len(turn.Effect.Invalidate) > 0 {
		send(serverEvent{Type: "invalidate", Collections: turn.Effect.Invalidate})
	}
	if turn.Effect.ReloadAfter > 0 {
		send(serverEvent{Type: "reload", AfterMS: turn.Effect.ReloadAfter.Milliseconds()})
	}
}
