package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/use-agent/orderbot/config"
	"github.com/use-agent/orderbot/driver"
	"github.com/use-agent/orderbot/orders"
	"github.com/use-agent/orderbot/pipeline"
	"github.com/use-agent/orderbot/webhook"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		return 2
	}
	slog.Info("orderbot starting",
		"ordersURL", cfg.Orders.URL,
		"orderPage", cfg.Site.OrderPageURL,
		"output", cfg.Output.Dir,
		"headless", cfg.Browser.Headless,
	)

	// ── 3. Cancel the run on SIGINT/SIGTERM ─────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 4. Wire the pipeline ────────────────────────────────────────
	source := orders.NewLoader(cfg.Orders, cfg.Run.DownloadTimeout)
	launch := func() (pipeline.FormDriver, error) {
		d, err := driver.Launch(cfg.Browser, cfg.Site, cfg.Run)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	notifier := webhook.NewNotifier(cfg.Webhook.URL, cfg.Webhook.Secret)

	// ── 5. Run ──────────────────────────────────────────────────────
	summary, err := pipeline.New(cfg, source, launch, notifier).Run(ctx)
	if err != nil {
		slog.Error("run failed",
			"error", err,
			"captured", len(summary.Orders),
			"durationMs", summary.DurationMs,
		)
		return 1
	}

	slog.Info("orderbot finished",
		"orders", len(summary.Orders),
		"archive", summary.ArchivePath,
		"durationMs", summary.DurationMs,
	)
	return 0
}

// initLogger installs the default slog logger. Unknown levels fall back to
// info; any format other than "json" logs text.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
