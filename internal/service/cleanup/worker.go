package cleanup

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

// Sweeper evicts finished sessions that have been kept for retention.
type Sweeper interface {
	SweepFinished(retention time.Duration) int
}

type Worker struct {
	sweeper   Sweeper
	clock     quartz.Clock
	interval  time.Duration
	retention time.Duration
	logger    *log.Logger
}

func NewWorker(sweeper Sweeper, clock quartz.Clock, interval, retention time.Duration, logger *log.Logger) *Worker {
	if clock == nil {
		clock = quartz.NewReal()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Worker{
		sweeper:   sweeper,
		clock:     clock,
		interval:  interval,
		retention: retention,
		logger:    logger.WithPrefix("cleanup"),
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	ticker := w.clock.NewTicker(w.interval, "cleanup")
	defer ticker.Stop()

	w.logger.Info("background worker started", "interval", w.interval, "retention", w.retention)
	w.runCleanup()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.runCleanup()
		}
	}
}

func (w *Worker) runCleanup() {
	if n := w.sweeper.SweepFinished(w.retention); n > 0 {
		w.logger.Debug("removed finished sessions", "count", n)
	}
}
