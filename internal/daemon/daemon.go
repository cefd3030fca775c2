package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/listinggopher/listinggopher/internal/api"
	"github.com/listinggopher/listinggopher/internal/app/accountant"
	"github.com/listinggopher/listinggopher/internal/app/costs"
	"github.com/listinggopher/listinggopher/internal/app/pipeline"
	"github.com/listinggopher/listinggopher/internal/infra/provider"
	"github.com/listinggopher/listinggopher/internal/infra/sqlite"
)

// Run wires the ledger, accountant, provider gateway, orchestrator and API
// server together, then serves until SIGINT/SIGTERM.
func Run(cfg Config) error {
	setupLogging(cfg.LogLevel)

	db, err := sqlite.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer db.Close()
	slog.Info("ledger opened", "data_dir", cfg.DataDir)

	acct := accountant.New(db)

	primary := provider.NewOpenAI(
		cfg.Providers.OpenAI.APIKey(),
		cfg.Providers.OpenAI.Model,
		cfg.Providers.OpenAI.TimeoutDuration(60*time.Second),
	)
	fallback := provider.NewGemini(
		cfg.Providers.Gemini.APIKey(),
		cfg.Providers.Gemini.Model,
		cfg.Providers.Gemini.TimeoutDuration(60*time.Second),
	)
	gateway := provider.NewGateway(primary, fallback)

	tracker := costs.NewTracker(cfg.Costs.Models, cfg.Costs.DefaultRates, cfg.Costs.AlertThresholdUSD)
	orch := pipeline.New(acct, gateway, tracker)

	server := api.NewServer(acct, orch, db, tracker)
	server.SignupGrant = cfg.Credits.SignupGrant

	addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server listening", "addr", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// setupLogging installs the default slog JSON logger at the configured level.
func setupLogging(level string) {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}
