// Package app wires the copilot together: store, backend client,
// interpreter chain, dispatcher, and the configured chat hosts.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flowpilot-ai/copilot/internal/copilot/chat"
	"github.com/flowpilot-ai/copilot/internal/copilot/config"
	"github.com/flowpilot-ai/copilot/internal/copilot/dispatch"
	"github.com/flowpilot-ai/copilot/internal/copilot/flowpilot"
	"github.com/flowpilot-ai/copilot/internal/copilot/gateway"
	"github.com/flowpilot-ai/copilot/internal/copilot/matrix"
	"github.com/flowpilot-ai/copilot/internal/copilot/nlp"
	"github.com/flowpilot-ai/copilot/internal/copilot/store"
)

// App is the assembled copilot.
type App struct {
	cfg        *config.Config
	store      *store.Store
	backend    *flowpilot.Client
	matrixHost *matrix.Host
	gateway    *gateway.Server
}

// New wires the application from its configuration.  Optional subsystems
// are attached only when their prerequisites are configured.
func New(cfg *config.Config) (*App, error) {
	slog.Info("opening database", "path", cfg.DatabasePath)
	st, err := store.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	backend := flowpilot.New(cfg.Backend.BaseURL, "")

	// Enter the backend as the configured account; this also seeds demo
	// data for brand-new names.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	user, err := backend.Reidentify(ctx, cfg.Backend.UserName)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to enter backend as %q: %w", cfg.Backend.UserName, err)
	}
	slog.Info("connected to backend", "base_url", cfg.Backend.BaseURL, "user", user.Name)

	dispatcher := dispatch.New(backend, st)

	// Interpreter chain: model first when a key is configured, with the
	// deterministic keyword interpreter as the always-available floor.
	var interp nlp.Provider = nlp.NewKeyword()
	if cfg.NLP.APIKey != "" {
		interp = nlp.NewFallback(nlp.NewOpenAI(nlp.Config{
			APIKey:  cfg.NLP.APIKey,
			BaseURL: cfg.NLP.Endpoint,
			Model:   cfg.NLP.Model,
		}), interp)
		slog.Info("model interpreter enabled", "model", cfg.NLP.Model)
	} else {
		slog.Info("no NLP API key configured; using keyword interpreter only")
	}

	policy := chat.OverlapReject
	if cfg.Overlap == "queue" {
		policy = chat.OverlapQueue
	}
	newSession := func() *chat.Orchestrator {
		return chat.New(interp, dispatcher, backend, policy)
	}

	a := &App{cfg: cfg, store: st, backend: backend}

	if cfg.Matrix.Homeserver != "" {
		slog.Info("connecting to Matrix", "homeserver", cfg.Matrix.Homeserver)
		mc, err := matrix.NewClient(&matrix.Config{
			Homeserver:  cfg.Matrix.Homeserver,
			UserID:      cfg.Matrix.UserID,
			AccessToken: cfg.Matrix.AccessToken,
			Rooms:       cfg.Matrix.Rooms,
			DB:          st.DB(),
		})
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to initialize Matrix client: %w", err)
		}
		a.matrixHost = matrix.NewHost(mc, newSession, cfg.Backend.DashboardURL)
	}

	if cfg.HTTP.Addr != "" {
		a.gateway = gateway.NewServer(cfg.HTTP.Addr, newSession)
	}

	if a.matrixHost == nil && a.gateway == nil {
		st.Close()
		return nil, fmt.Errorf("no host configured: set matrix.homeserver or http.addr")
	}

	return a, nil
}

// Run starts the configured hosts and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	if a.matrixHost != nil {
		if err := a.matrixHost.Start(); err != nil {
			return fmt.Errorf("failed to start Matrix host: %w", err)
		}
	}
	if a.gateway != nil {
		a.gateway.Start()
	}

	slog.Info("copilot running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("shutting down", "signal", sig.String())
	return nil
}

// Stop shuts everything down in reverse dependency order.
func (a *App) Stop() {
	if a.matrixHost != nil {
		a.matrixHost.Stop()
	}
	if a.gateway != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.gateway.Stop(ctx); err != nil {
			slog.Warn("gateway shutdown", "err", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			slog.Warn("closing database", "err", err)
		}
	}
}
