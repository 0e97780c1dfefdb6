package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hafeezhmha/substack-watcher/internal/extract"
	"github.com/hafeezhmha/substack-watcher/internal/models"
	"github.com/hafeezhmha/substack-watcher/internal/notify"
)

type Fetcher interface {
	Fetch(ctx context.Context) ([]models.Entry, error)
}

type Notifier interface {
	Send(ctx context.Context, msg notify.Message) error
}

type Store interface {
	Lock(ctx context.Context) (func(), error)
	Load(ctx context.Context) (*models.State, error)
	Save(ctx context.Context, st *models.State) error
}

type Options struct {
	Subject string

	// BaselineOnFirstRun records the newest post without notifying when no
	// state exists yet. The default matches the original behavior: a first
	// run notifies for the current newest post.
	BaselineOnFirstRun bool
}

// Watcher runs the pipeline once per invocation:
// load state, fetch, compare, extract, notify, save.
type Watcher struct {
	fetcher   Fetcher
	extractor *extract.Extractor
	notifier  Notifier
	store     Store
	opts      Options
	log       *slog.Logger
}

func New(
	fetcher Fetcher,
	extractor *extract.Extractor,
	notifier Notifier,
	store Store,
	opts Options,
	log *slog.Logger,
) *Watcher {
	return &Watcher{
		fetcher:   fetcher,
		extractor: extractor,
		notifier:  notifier,
		store:     store,
		opts:      opts,
		log:       log,
	}
}

// Run performs one watch cycle. Any failure is terminal for the cycle and
// leaves the persisted state exactly as it was; state is saved only after a
// successful send.
func (w *Watcher) Run(ctx context.Context) error {
	release, err := w.store.Lock(ctx)
	if err != nil {
		return fmt.Errorf("acquire state lock: %w", err)
	}
	defer release()

	st, err := w.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	entries, err := w.fetcher.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch feed: %w", err)
	}
	if len(entries) == 0 {
		w.log.InfoContext(ctx, "Feed has no entries")

		return nil
	}

	// Only the single newest entry is considered; missed intermediate
	// posts are not enumerated.
	newest := entries[0]
	if newest.ID == "" {
		return fmt.Errorf("%w: newest entry has no ID", models.ErrParse)
	}

	if newest.ID == st.LastSeenID {
		w.log.InfoContext(ctx, "No new posts",
			"lastSeenID", st.LastSeenID)

		return nil
	}

	if st.LastSeenID == "" && w.opts.BaselineOnFirstRun {
		w.log.InfoContext(ctx, "First run so newest post is recorded as baseline",
			"postID", newest.ID,
			"title", newest.Title)

		return w.saveSeen(ctx, newest)
	}

	w.log.InfoContext(ctx, "New post detected",
		"postID", newest.ID,
		"title", newest.Title)

	match, found := w.extractor.BookingLink(newest.Content)
	if found {
		w.log.InfoContext(ctx, "Found booking link",
			"platform", match.Platform,
			"url", match.URL)
	} else {
		w.log.InfoContext(ctx, "No booking link found in post body",
			"postID", newest.ID)
	}

	msg := notify.Message{
		Subject:     w.opts.Subject,
		Title:       newest.Title,
		Link:        newest.Link,
		BookingLink: match.URL,
		Platform:    match.Platform,
		PublishedAt: newest.PublishedAt,
	}
	if err := w.notifier.Send(ctx, msg); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}

	return w.saveSeen(ctx, newest)
}

func (w *Watcher) saveSeen(ctx context.Context, entry models.Entry) error {
	st := &models.State{LastSeenID: entry.ID}
	if !entry.PublishedAt.IsZero() {
		st.LastPublishedAt = entry.PublishedAt.UTC().Format(time.RFC3339)
	}

	if err := w.store.Save(ctx, st); err != nil {
		return fmt.Errorf("save state: %w", err)
	}

	w.log.InfoContext(ctx, "State is saved",
		"lastSeenID", entry.ID)

	return nil
}
