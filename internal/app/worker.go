package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tartampluch/birthday-keeper/internal/config"
)

// Worker drives periodic activation passes. Two triggers feed it: a fixed
// refresh interval and a midnight cron so day-boundary transitions (today
// becoming yesterday) are picked up promptly rather than at the next tick.
type Worker struct {
	App      *App
	Interval time.Duration
}

// Run blocks until the context is cancelled. The first pass runs
// immediately so the server has content before the first tick.
func (w *Worker) Run(ctx context.Context) error {
	log := slog.With(config.LogKeyComponent, config.CompWorker)
	log.InfoContext(ctx, config.MsgWorkerStart,
		config.LogKeyInterval, w.Interval.String(),
	)

	w.runPass(ctx, log)

	c := cron.New()
	if _, err := c.AddFunc(config.MidnightCronSpec, func() {
		w.runPass(ctx, log)
	}); err != nil {
		return fmt.Errorf("%s: %w", config.ErrCronSpecBuild, err)
	}
	c.Start()
	defer c.Stop()

	var tick <-chan time.Time
	if w.Interval > 0 {
		ticker := time.NewTicker(w.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			log.Info(config.MsgWorkerStop)
			return ctx.Err()
		case <-tick:
			w.runPass(ctx, log)
		}
	}
}

func (w *Worker) runPass(ctx context.Context, log *slog.Logger) {
	if ctx.Err() != nil {
		return
	}
	if err := w.App.Activate(ctx); err != nil && ctx.Err() == nil {
		log.Error(config.MsgActivationFail, config.LogKeyError, err)
	}
}
