package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hafeezhmha/substack-watcher/internal/watcher"
)

const runTimeout = 5 * time.Minute

// Scheduler runs the watch cycle in-process on a cron spec. The default
// deployment leaves this off and relies on an external cron invoking the
// binary once per schedule.
type Scheduler struct {
	ctx     context.Context
	cron    *cron.Cron
	watcher *watcher.Watcher
	spec    string
	log     *slog.Logger
}

func New(ctx context.Context, w *watcher.Watcher, spec string, log *slog.Logger) *Scheduler {
	return &Scheduler{
		ctx:     ctx,
		cron:    cron.New(cron.WithLocation(time.UTC)),
		watcher: w,
		spec:    spec,
		log:     log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.runOnce); err != nil {
		return err
	}

	s.cron.Start()

	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(s.ctx, runTimeout)
	defer cancel()

	if ctx.Err() != nil {
		s.log.InfoContext(ctx, "Scheduler context is done",
			"error", ctx.Err())

		return
	}

	if err := s.watcher.Run(ctx); err != nil {
		s.log.ErrorContext(ctx, "Watch run failed",
			"error", err,
			"spec", s.spec)
	}
}
