package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ammPool/internal/api"
	"ammPool/internal/config"
	"ammPool/internal/engine"
	"ammPool/internal/ledger"
	"ammPool/internal/storage"
	"ammPool/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "amm",
		Short:        "Constant-product pool service",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the pool HTTP service",
		RunE:  runServe,
	}

	serveCmd.Flags().String("listen", ":8080", "listen address")
	serveCmd.Flags().String("journal", "./data/events.jsonl", "event journal JSONL path, empty disables journaling")
	serveCmd.Flags().String("pg-dsn", "", "Postgres DSN, empty disables persistence")
	serveCmd.Flags().Duration("shutdown-timeout", 10*time.Second, "graceful shutdown timeout")
	serveCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(serveCmd)

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a JSONL event journal into Postgres",
		RunE:  runReplay,
	}

	replayCmd.Flags().String("journal", "./data/events.jsonl", "event journal JSONL path")
	replayCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	replayCmd.Flags().String("checkpoint", "journal-replay", "checkpoint name")
	replayCmd.Flags().Int("batch-size", 500, "events per batch")
	replayCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	replayCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	replayCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(replayCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadServe(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sinks storage.Multi
	if cfg.Journal != "" {
		sinks = append(sinks, storage.NewJsonlStorage(cfg.Journal))
	}

	var store *postgres.Store
	if cfg.PGDSN != "" {
		store, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return err
		}
		defer store.Close()
		sinks = append(sinks, store)
	}

	var sink storage.EventSink = sinks
	if len(sinks) == 0 {
		sink = storage.Nop{}
	}

	mem := ledger.NewMemory()
	registry := engine.NewRegistry(mem, sink, logger)

	app := fiber.New()
	api.NewPoolHandler(logger, registry).Register(app)
	api.NewLedgerHandler(logger, mem).Register(app)

	logger.Info("serve start",
		zap.String("listen", cfg.ListenAddr),
		zap.String("journal", cfg.Journal),
		zap.Bool("postgres", store != nil),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(cfg.ListenAddr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}

	if store != nil {
		if err := store.UpsertPoolStates(shutdownCtx, registry.View()); err != nil {
			logger.Error("persist pool states", zap.Error(err))
		}
	}

	logger.Info("serve stopped")
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
