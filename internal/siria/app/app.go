// Package app wires the Siria application: SQLite store, memory fact store,
// completion provider, chat service and the HTTP server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/siria-chat/siria/internal/siria/chat"
	"github.com/siria-chat/siria/internal/siria/config"
	"github.com/siria-chat/siria/internal/siria/llm"
	"github.com/siria-chat/siria/internal/siria/memory"
	"github.com/siria-chat/siria/internal/siria/store"
)

// App is the assembled application.
type App struct {
	cfg    config.Config
	store  *store.Store
	server *Server
}

// New builds the application from its configuration.
func New(cfg config.Config) (*App, error) {
	st, err := store.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("app: open store: %w", err)
	}

	facts := memory.NewFactStore(st.DB(), slog.Default())

	provider := llm.New(llm.Config{
		APIKey:  cfg.Completion.APIKey,
		BaseURL: cfg.Completion.BaseURL,
		Model:   cfg.Completion.Model,
		Timeout: cfg.Completion.Timeout(),
	})

	chatSvc := chat.NewService(st, facts, provider, chat.Config{
		SystemPrompt:       cfg.SystemPrompt,
		GuestMessageLimit:  cfg.GuestMessageLimit,
		HistoryMaxMessages: cfg.HistoryMaxMessages,
	}, slog.Default())

	return &App{
		cfg:    cfg,
		store:  st,
		server: NewServer(cfg.ListenAddr, chatSvc, st),
	}, nil
}

// Run starts the HTTP server and blocks until SIGINT/SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.server.Start(ctx); err != nil {
		return fmt.Errorf("app: start server: %w", err)
	}

	<-ctx.Done()
	slog.Info("shutting down")
	return nil
}

// Stop releases resources.
func (a *App) Stop() {
	if a.server != nil {
		a.server.Stop()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			slog.Warn("failed to close store", "err", err)
		}
	}
}
