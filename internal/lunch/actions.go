package lunch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dtnitsch/lunch-bot/internal/common"
	"github.com/dtnitsch/lunch-bot/models"
	"github.com/dtnitsch/lunch-bot/pkg/db"
	"github.com/dtnitsch/lunch-bot/pkg/fetcher"
	"github.com/dtnitsch/lunch-bot/pkg/notifier"
	"github.com/dtnitsch/lunch-bot/pkg/report"
	"github.com/dtnitsch/lunch-bot/pkg/scheduler"
	"github.com/dtnitsch/lunch-bot/pkg/storage"
	"github.com/urfave/cli/v2"
)

// NewLogger builds the JSON stderr logger shared by every command.
func NewLogger(c *cli.Context) *slog.Logger {
	logLevel := slog.LevelInfo
	switch {
	case c.Bool("quiet"):
		logLevel = slog.LevelError
	case c.Bool("verbose"):
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

// LoadConfig reads --config and cleans the configured source URLs.
// Exits 1 on any configuration problem.
func LoadConfig(c *cli.Context, logger *slog.Logger) *models.Config {
	cfg, err := models.LoadConfig(c.String("config"))
	if err != nil {
		logger.Error("failed to load config", "path", c.String("config"), "error", err)
		os.Exit(1)
	}
	if c.IsSet("database") {
		cfg.Database = c.String("database")
	}
	if err := common.SanitizeSources(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Note: URLs are auto-cleaned (whitespace trimmed, trailing punctuation removed, markdown links extracted)")
		fmt.Fprintln(os.Stderr, "      Spaces in URLs must be pre-encoded as %20.")
		os.Exit(1)
	}
	return cfg
}

// newRunner assembles the pipeline. The returned cleanup closes the history
// database.
func newRunner(c *cli.Context, cfg *models.Config, logger *slog.Logger, oncePerDay bool) (*Runner, func()) {
	builder, err := report.NewBuilder(cfg, fetcher.NewFetcher(nil, logger), logger)
	if err != nil {
		logger.Error("invalid restaurant configuration", "error", err)
		os.Exit(1)
	}

	if cfg.SnapshotDir != "" {
		st, err := storage.New(cfg.SnapshotDir)
		if err != nil {
			logger.Error("failed to initialize snapshot storage", "error", err)
			os.Exit(2)
		}
		builder.WithObserver(SnapshotObserver(st, logger))
	}

	runner := &Runner{
		Builder:    builder,
		Locale:     cfg.Locale,
		OncePerDay: oncePerDay,
		Logger:     logger,
	}

	cleanup := func() {}
	if c.Bool("dry-run") {
		runner.Notifier = &notifier.Writer{W: os.Stdout, Plain: c.Bool("plain")}
		return runner, cleanup
	}

	tg, err := notifier.NewTelegram(cfg.Telegram, "", nil, logger)
	if err != nil {
		logger.Error("failed to initialize telegram notifier", "error", err,
			"hint", fmt.Sprintf("set %s and %s, or use --dry-run", models.EnvTelegramToken, models.EnvChatID))
		os.Exit(2)
	}
	runner.Notifier = tg

	database, err := db.Open(cfg.Database)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(2)
	}
	logger.Debug("run history", "path", database.Path())
	runner.History = database
	cleanup = func() { _ = database.Close() }

	return runner, cleanup
}

// RunAction builds today's report once and delivers it.
func RunAction(c *cli.Context) error {
	logger := NewLogger(c)
	cfg := LoadConfig(c, logger)

	runner, cleanup := newRunner(c, cfg, logger, c.Bool("once-per-day"))
	defer cleanup()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, err := runner.RunOnce(ctx)
	if err != nil {
		logger.Error("run failed", "error", err)
		cleanup()
		os.Exit(2)
	}
	if out.Skipped && !c.Bool("quiet") {
		fmt.Fprintf(os.Stderr, "Nothing sent: %s\n", out.Reason)
	}
	return nil
}

// ServeAction runs the pipeline on the configured cron schedule until
// interrupted. Every tick is guarded against sending twice on one date.
func ServeAction(c *cli.Context) error {
	logger := NewLogger(c)
	cfg := LoadConfig(c, logger)
	if c.IsSet("schedule") {
		cfg.Schedule = c.String("schedule")
	}

	sched, err := scheduler.New(cfg.Schedule, cfg.Location(), logger)
	if err != nil {
		logger.Error("invalid schedule", "schedule", cfg.Schedule, "error", err)
		os.Exit(1)
	}

	runner, cleanup := newRunner(c, cfg, logger, true)
	defer cleanup()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	job := func(ctx context.Context) error {
		_, err := runner.RunOnce(ctx)
		return err
	}
	if c.Bool("run-now") {
		if err := job(ctx); err != nil {
			logger.Error("initial run failed", "error", err)
		}
	}

	if err := sched.Run(ctx, job); err != nil {
		logger.Error("scheduler failed", "error", err)
		cleanup()
		os.Exit(2)
	}
	return nil
}
