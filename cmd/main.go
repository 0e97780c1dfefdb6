package main

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/hafeezhmha/substack-watcher/internal/config"
	"github.com/hafeezhmha/substack-watcher/internal/extract"
	"github.com/hafeezhmha/substack-watcher/internal/feed"
	"github.com/hafeezhmha/substack-watcher/internal/notify"
	"github.com/hafeezhmha/substack-watcher/internal/scheduler"
	"github.com/hafeezhmha/substack-watcher/internal/state"
	"github.com/hafeezhmha/substack-watcher/internal/watcher"
)

func main() {
	os.Exit(run())
}

func run() int {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.WarnContext(ctx, "Failed to load .env file",
			"error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.ErrorContext(ctx, "Invalid configuration",
			"error", err)

		return 1
	}

	w := buildWatcher(cfg, log)

	// Single run is the normal mode; an external cron is the retry
	// mechanism, so a failed cycle is logged and still exits zero.
	if cfg.WatchCron == "" {
		if err := w.Run(ctx); err != nil {
			log.ErrorContext(ctx, "Watch run failed",
				"error", err,
				"feedURL", cfg.FeedURL)
		}

		return 0
	}

	sched := scheduler.New(ctx, w, cfg.WatchCron, log)
	if err := sched.Start(); err != nil {
		log.ErrorContext(ctx, "Failed to start scheduler",
			"error", err,
			"spec", cfg.WatchCron)

		return 1
	}
	defer sched.Stop()
	log.InfoContext(ctx, "Scheduler is started",
		"spec", cfg.WatchCron,
		"feedURL", cfg.FeedURL)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	sig := <-c
	cancel()
	log.InfoContext(ctx, "Exiting...",
		"signal", sig.String())

	return 0
}

func buildWatcher(cfg config.Config, log *slog.Logger) *watcher.Watcher {
	feedHost := ""
	if u, err := url.Parse(cfg.FeedURL); err == nil {
		feedHost = u.Hostname()
	}

	fetcher := feed.NewFetcher(cfg.ProxyURL, cfg.FeedURL, cfg.HTTPTimeout, log)
	extractor := extract.New(feedHost)
	mailer := notify.NewMailer(notify.MailerConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		From:     cfg.EmailAddress,
		Password: cfg.EmailAppPassword,
		To:       cfg.EmailTo,
		DryRun:   cfg.DryRun,
	}, log)
	store := state.New(cfg.StatePath, log)

	return watcher.New(fetcher, extractor, mailer, store, watcher.Options{
		Subject:            cfg.Subject,
		BaselineOnFirstRun: cfg.BaselineOnFirstRun,
	}, log)
}
