package notify

import (
	"context"
	"time"

	"pkt.systems/pslog"
)

// Redeliverer periodically drains a non-empty queue so a notification
// outage clears without waiting for the next card touch.  It runs as a
// background goroutine and is safe to stop via its context or the Stop
// method.
//
// An interval of 0 disables redelivery entirely.
type Redeliverer struct {
	queue    *Queue
	interval time.Duration
	logger   pslog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewRedeliverer creates a redeliverer but does not start it.  Call Start
// to begin the background loop.
func NewRedeliverer(q *Queue, interval time.Duration, logger pslog.Logger) *Redeliverer {
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	return &Redeliverer{
		queue:    q,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start begins the background loop.  The loop exits when ctx is cancelled
// or Stop is called.
func (r *Redeliverer) Start(ctx context.Context) {
	if r.interval <= 0 {
		r.logger.Info("notify.redeliver.disabled")
		close(r.done)
		return
	}

	ctx, r.cancel = context.WithCancel(ctx)

	go r.loop(ctx)

	r.logger.Info("notify.redeliver.started", "interval", r.interval.String())
}

// Stop signals the redeliverer to exit and waits for it to finish.
func (r *Redeliverer) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	<-r.done
}

func (r *Redeliverer) loop(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.redeliver(ctx)
		}
	}
}

func (r *Redeliverer) redeliver(ctx context.Context) {
	if r.queue.Len() == 0 {
		return
	}
	if err := r.queue.Drain(ctx); err != nil && ctx.Err() == nil {
		r.logger.Warn("notify.redeliver.failed", "pending", r.queue.Len(), "error", err)
	}
}
