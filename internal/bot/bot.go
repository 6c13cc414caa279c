// Package bot wires the store, AI provider, messaging transport and
// conversation flow together and runs the event loop.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/calcmentor/CalcMentor/internal/flow"
	"github.com/calcmentor/CalcMentor/internal/genai"
	"github.com/calcmentor/CalcMentor/internal/messaging"
	"github.com/calcmentor/CalcMentor/internal/store"
)

// Run starts the bot with the given module options and blocks until the
// process receives an interrupt or the transport shuts down.
func Run(storeOpts []store.Option, genaiCfg genai.Config, msgOpts []messaging.Option) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st := openStore(storeOpts)
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("Bot failed to close store", "error", err)
		}
	}()

	provider, err := genai.NewProvider(ctx, genaiCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize AI provider: %w", err)
	}

	svc, err := messaging.NewTelegramService(msgOpts...)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging service: %w", err)
	}

	conversationFlow := flow.NewConversationFlow(st, provider, svc, flow.WithAITimeout(genaiCfg.Timeout))
	dispatcher := NewDispatcher(conversationFlow, svc)

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start messaging service: %w", err)
	}

	slog.Info("Bot running")
	dispatcher.Run(ctx, svc.Events())

	slog.Info("Bot shutting down")
	if err := svc.Stop(); err != nil {
		slog.Error("Bot failed to stop messaging service", "error", err)
	}
	dispatcher.Wait()
	slog.Info("Bot exited")
	return nil
}

// openStore selects the persistence backend from the options. Without a
// DSN, or when the database cannot be opened, the bot degrades to
// in-memory state so it keeps answering even without persistence.
func openStore(storeOpts []store.Option) store.Store {
	var opts store.Opts
	for _, opt := range storeOpts {
		opt(&opts)
	}

	if opts.DSN == "" {
		slog.Warn("Bot running with in-memory store, state will not survive restarts")
		return store.NewInMemoryStore()
	}

	var st store.Store
	var err error
	switch store.DetectDSNType(opts.DSN) {
	case "postgres":
		st, err = store.NewPostgresStore(storeOpts...)
	default:
		st, err = store.NewSQLiteStore(storeOpts...)
	}
	if err != nil {
		slog.Error("Bot failed to open database, degrading to in-memory store", "error", err)
		return store.NewInMemoryStore()
	}
	return st
}
