package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"pkt.systems/pslog"

	"github.com/munechika-koyo/smartdoor/internal/smartdoor/hardware"
	"github.com/munechika-koyo/smartdoor/internal/smartdoor/metrics"
	"github.com/munechika-koyo/smartdoor/internal/smartdoor/notify"
	"github.com/munechika-koyo/smartdoor/internal/smartdoor/store"
	"github.com/munechika-koyo/smartdoor/internal/smartdoor/types"
)

// Dependencies wires a Door.  Hardware, Auth and Queue are required;
// Events, Redeliverer and Metrics are optional.
type Dependencies struct {
	Hardware     hardware.Controller
	Auth         Authenticator
	Queue        *notify.Queue
	Redeliverer  *notify.Redeliverer
	Events       store.TouchEventStore
	Metrics      *metrics.Metrics
	Logger       pslog.Logger
	PollInterval time.Duration
	InitialState types.LockPosition
}

// Door is the entry point the CLI layer consumes: Start runs the event
// loop until shutdown, Close releases the hardware and authority sessions.
// Cleanup runs on every exit path, exactly once.
type Door struct {
	lock        *LockState
	ctrl        *Controller
	loop        *Loop
	hw          hardware.Controller
	auth        Authenticator
	queue       *notify.Queue
	redeliverer *notify.Redeliverer
	logger      pslog.Logger

	closeOnce sync.Once
	closeErr  error
}

func NewDoor(d Dependencies) *Door {
	logger := d.Logger
	if logger == nil {
		logger = pslog.NoopLogger()
	}

	lock := NewLockState(d.InitialState)
	ctrl := NewController(ControllerDeps{
		Lock:     lock,
		Hardware: d.Hardware,
		Auth:     d.Auth,
		Queue:    d.Queue,
		Events:   d.Events,
		Metrics:  d.Metrics,
		Logger:   logger,
	})

	return &Door{
		lock:        lock,
		ctrl:        ctrl,
		loop:        NewLoop(d.Hardware, ctrl, d.PollInterval, logger),
		hw:          d.Hardware,
		auth:        d.Auth,
		queue:       d.Queue,
		redeliverer: d.Redeliverer,
		logger:      logger,
	}
}

// LockState reports the current authoritative position.
func (d *Door) LockState() types.LockPosition {
	return d.lock.Current()
}

// Start runs the event loop until a shutdown event or ctx cancellation.
// The background redeliverer runs for the same span.  Close always runs
// before Start returns, including on error paths.
func (d *Door) Start(ctx context.Context) error {
	d.logger.Info("door.started", "initial_state", d.lock.Current().String())

	if d.redeliverer != nil {
		d.redeliverer.Start(ctx)
	}

	defer func() {
		if d.redeliverer != nil {
			d.redeliverer.Stop()
		}
		_ = d.Close()
	}()

	return d.loop.Run(ctx)
}

// Close flushes what it can and releases the hardware and authentication
// sessions.  Idempotent; later calls return the first result.
func (d *Door) Close() error {
	d.closeOnce.Do(func() {
		// Final best-effort drain so a clean shutdown does not strand
		// delivered-but-queued records.  Bounded: shutdown must not
		// hang on a dead endpoint.
		if d.queue != nil && d.queue.Len() > 0 {
			flushCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			_ = d.queue.Drain(flushCtx)
			cancel()
		}

		var errs []error
		if err := d.hw.Close(); err != nil {
			errs = append(errs, err)
		}
		if err := d.auth.Close(); err != nil {
			errs = append(errs, err)
		}
		d.closeErr = errors.Join(errs...)
		d.logger.Info("door.closed")
	})
	return d.closeErr
}
