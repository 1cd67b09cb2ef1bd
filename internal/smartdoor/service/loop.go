package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pkt.systems/pslog"

	"github.com/munechika-koyo/smartdoor/internal/smartdoor/hardware"
	"github.com/munechika-koyo/smartdoor/internal/smartdoor/types"
)

// Loop is the cooperative polling loop: it blocks on the hardware's
// combined wait primitive and dispatches each event to the controller.
// Single-threaded; cancellation is observed at the top of each iteration,
// never mid-actuation.
type Loop struct {
	hw     hardware.Controller
	ctrl   *Controller
	poll   time.Duration
	logger pslog.Logger
}

func NewLoop(hw hardware.Controller, ctrl *Controller, poll time.Duration, logger pslog.Logger) *Loop {
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}
	return &Loop{hw: hw, ctrl: ctrl, poll: poll, logger: logger}
}

// Run blocks until a shutdown event arrives or ctx is cancelled.  The wait
// is bounded by the poll interval so a pending shutdown is observed within
// one interval even when the reader has nothing to report.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("loop.started", "poll_interval", l.poll.String())

	for {
		if ctx.Err() != nil {
			l.logger.Info("loop.shutdown", "reason", "context")
			return nil
		}

		waitCtx, cancel := context.WithTimeout(ctx, l.poll)
		ev, err := l.hw.WaitForEvent(waitCtx)
		cancel()

		if err != nil {
			if errors.Is(err, hardware.ErrNoEvent) {
				continue
			}
			return fmt.Errorf("wait for event: %w", err)
		}

		if ev.Kind == types.EventShutdown {
			l.logger.Info("loop.shutdown", "reason", "event")
			return nil
		}

		l.ctrl.HandleEvent(ctx, ev)
	}
}
