// Package service orchestrates the access-control workflow: one event in,
// one authentication decision, at most one lock transition, one
// notification record out.
package service

import (
	"context"
	"fmt"
	"time"

	"pkt.systems/pslog"

	"github.com/munechika-koyo/smartdoor/internal/smartdoor/hardware"
	"github.com/munechika-koyo/smartdoor/internal/smartdoor/metrics"
	"github.com/munechika-koyo/smartdoor/internal/smartdoor/notify"
	"github.com/munechika-koyo/smartdoor/internal/smartdoor/store"
	"github.com/munechika-koyo/smartdoor/internal/smartdoor/types"
)

// Actor names attributed to non-card events.  The strings are part of the
// notification contract.
const (
	ActorButton       = "button operator"
	ActorUnauthorized = "unauthorized user"
)

// Authenticator is the credential-checking collaborator.  The HTTP
// implementation lives in the auth package; tests substitute fakes.
type Authenticator interface {
	Authenticate(ctx context.Context, c types.Credential) types.AuthResult
	Close() error
}

// Controller turns a single access event into an authentication decision,
// an actuation, and a notification record.  It is driven by one goroutine:
// at most one event is ever being processed.
type Controller struct {
	lock    *LockState
	hw      hardware.Controller
	auth    Authenticator
	queue   *notify.Queue
	events  store.TouchEventStore
	metrics *metrics.Metrics
	logger  pslog.Logger
	now     func() time.Time
}

type ControllerDeps struct {
	Lock     *LockState
	Hardware hardware.Controller
	Auth     Authenticator
	Queue    *notify.Queue
	// Events is optional; nil disables audit persistence.
	Events  store.TouchEventStore
	Metrics *metrics.Metrics
	Logger  pslog.Logger
}

func NewController(d ControllerDeps) *Controller {
	logger := d.Logger
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	m := d.Metrics
	if m == nil {
		m = metrics.New()
	}
	return &Controller{
		lock:    d.Lock,
		hw:      d.Hardware,
		auth:    d.Auth,
		queue:   d.Queue,
		events:  d.Events,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// HandleEvent processes one access event to completion.  Nothing escapes:
// authentication ambiguity is a denial, hardware failure routes to the
// error flow, and the loop keeps running either way.
func (c *Controller) HandleEvent(ctx context.Context, ev types.AccessEvent) {
	switch ev.Kind {
	case types.EventButton:
		c.metrics.Touches.WithLabelValues("button").Inc()
		c.actuate(ctx, ActorButton, "", "button")

	case types.EventCredential:
		res := c.auth.Authenticate(ctx, ev.Credential)
		c.metrics.Touches.WithLabelValues(res.Status.String()).Inc()

		if res.Status == types.AuthAuthorized {
			c.logger.Info("door.touch.authorized", "user", res.Name)
			c.actuate(ctx, res.Name, ev.Credential, "authorized")
			return
		}
		c.warningFlow(ctx, ev.Credential, res.Status)

	case types.EventShutdown:
		// Terminal for the event loop, not a door state.
	}
}

// actuate drives the lock to the opposite position and records the result.
// The authoritative state transitions only after the hardware completed its
// travel, so a failed actuation never desynchronizes LockState from the
// physical bolt.
func (c *Controller) actuate(ctx context.Context, actor string, cred types.Credential, reason string) {
	target := c.lock.Current().Opposite()

	var err error
	if target == types.Locked {
		err = c.hw.Lock(ctx)
	} else {
		err = c.hw.Unlock(ctx)
	}
	if err != nil {
		c.errorFlow(ctx, actor, cred, fmt.Errorf("actuate to %s: %w", target, err))
		return
	}

	newPos := c.lock.Transition()
	action := types.ActionFor(newPos)
	c.metrics.Actuations.WithLabelValues(newPos.String()).Inc()
	c.logger.Info("door.actuated", "action", string(action), "actor", actor)

	c.queue.Enqueue(c.queue.NewRecord(actor, action))
	c.drain(ctx)

	c.audit(ctx, store.TouchRecord{
		OccurredAt:     c.now().UTC(),
		Actor:          actor,
		Action:         action,
		CredentialHash: store.HashCredential(cred),
		Granted:        true,
		Reason:         reason,
		LockState:      newPos,
	})
}

// warningFlow handles a denied or unverifiable touch: warning indication,
// notification, audit.  No lock transition — unreachable authority denies
// access.
func (c *Controller) warningFlow(ctx context.Context, cred types.Credential, status types.AuthStatus) {
	c.logger.Info("door.touch.rejected", "reason", status.String())

	if err := c.hw.IndicateWarning(ctx); err != nil {
		c.logger.Error("door.warning.indicate_failed", "error", err)
	}

	c.queue.Enqueue(c.queue.NewRecord(ActorUnauthorized, types.ActionInvalidTouch))
	c.drain(ctx)

	c.audit(ctx, store.TouchRecord{
		OccurredAt:     c.now().UTC(),
		Actor:          ActorUnauthorized,
		Action:         types.ActionInvalidTouch,
		CredentialHash: store.HashCredential(cred),
		Granted:        false,
		Reason:         status.String(),
		LockState:      c.lock.Current(),
	})
}

// errorFlow handles a hardware fault mid-sequence.  Non-fatal: indicate,
// record best-effort, and let the loop continue.
func (c *Controller) errorFlow(ctx context.Context, actor string, cred types.Credential, cause error) {
	c.metrics.ActuationErrors.Inc()
	c.logger.Error("door.error_flow", "actor", actor, "error", cause)

	if err := c.hw.IndicateError(ctx); err != nil {
		c.logger.Error("door.error.indicate_failed", "error", err)
	}

	c.queue.Enqueue(c.queue.NewRecord(actor, types.ActionSystemError))
	c.drain(ctx)

	c.audit(ctx, store.TouchRecord{
		OccurredAt:     c.now().UTC(),
		Actor:          actor,
		Action:         types.ActionSystemError,
		CredentialHash: store.HashCredential(cred),
		Granted:        false,
		Reason:         "hardware_error",
		LockState:      c.lock.Current(),
	})
}

// drain runs one delivery pass.  Failures are already logged and requeued
// by the queue; the door must not stall on them.
func (c *Controller) drain(ctx context.Context) {
	_ = c.queue.Drain(ctx)
}

// audit persists the decision.  Errors are intentionally not propagated —
// a failed audit write should not prevent the door from operating.
func (c *Controller) audit(ctx context.Context, rec store.TouchRecord) {
	if c.events == nil {
		return
	}
	if err := c.events.RecordTouch(ctx, rec); err != nil {
		c.logger.Warn("door.audit.write_failed", "error", err)
	}
}
