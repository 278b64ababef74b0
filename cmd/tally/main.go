package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/formacoach/tally/internal/agent"
	"github.com/formacoach/tally/internal/anthropic"
	"github.com/formacoach/tally/internal/api"
	"github.com/formacoach/tally/internal/backfill"
	"github.com/formacoach/tally/internal/bus"
	"github.com/formacoach/tally/internal/config"
	"github.com/formacoach/tally/internal/processor"
	"github.com/formacoach/tally/internal/store"
)

func main() {
	backfillDir := flag.String("backfill-dir", "", "import workout history from a directory of JSONL exports, then exit")
	backfillFile := flag.String("backfill-file", "", "import a single JSONL export, then exit")
	backfillUser := flag.String("backfill-user", "", "override the user id on imported history entries")
	dryRun := flag.Bool("dry-run", false, "parse history without running extraction")
	limit := flag.Int("limit", 0, "stop the import after this many messages")
	flag.Parse()

	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("tally starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database connected")

	// Anthropic client
	if cfg.AnthropicAPIKey == "" {
		slog.Error("ANTHROPIC_API_KEY is required")
		os.Exit(1)
	}
	llm := anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	slog.Info("anthropic client ready", "model", cfg.AnthropicModel)

	// NATS
	busClient, err := bus.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
	if err != nil {
		slog.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer busClient.Close()
	slog.Info("NATS connected", "url", cfg.NatsURL)

	// Extraction agent
	a := agent.New(llm, db, busClient, slog.Default(), cfg.MaxTurns)

	// One-shot history import mode
	if *backfillDir != "" || *backfillFile != "" {
		runBackfill(ctx, backfill.Config{
			Dir:        *backfillDir,
			SingleFile: *backfillFile,
			UserID:     *backfillUser,
			DryRun:     *dryRun,
			Limit:      *limit,
		}, a)
		return
	}

	// Processor bridges inbound coach messages to the agent
	proc := processor.New(a, busClient, slog.Default())
	if err := busClient.Subscribe(bus.SubjectMessageReceived, proc.HandleMessageReceived); err != nil {
		slog.Error("failed to subscribe to coach messages", "error", err)
		os.Exit(1)
	}

	// HTTP API
	srv := api.NewServer(cfg.Port, cfg.APIToken, a, db)
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	// Announce registration
	if err := busClient.Publish("coach.agent.tally.registered", map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"port":      cfg.Port,
	}); err != nil {
		slog.Warn("failed to publish registration", "error", err)
	}

	slog.Info("tally ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("tally stopped")
}

func runBackfill(ctx context.Context, cfg backfill.Config, a *agent.Agent) {
	// An interrupt during import saves state and exits; the next run resumes.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := backfill.NewRunner(cfg, a, slog.Default())
	if err := runner.Run(ctx); err != nil {
		slog.Error("history import failed", "error", err)
		os.Exit(1)
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
