package hardware

import (
	"context"
	"sync"
	"time"

	"pkt.systems/pslog"

	"github.com/munechika-koyo/smartdoor/internal/smartdoor/types"
)

// Sim is a channel-fed Controller with no physical side effects.  Tests and
// the default dev configuration drive it through Touch and PressButton.
type Sim struct {
	events chan types.AccessEvent

	// actuationDelay approximates servo travel so timing-sensitive code
	// paths behave like the real door.  Zero in tests.
	actuationDelay time.Duration
	logger         pslog.Logger

	mu       sync.Mutex
	pos      types.LockPosition
	calls    []string
	failNext error

	closeOnce sync.Once
	closed    chan struct{}
}

type SimOption func(*Sim)

// WithActuationDelay makes Lock and Unlock sleep for d.
func WithActuationDelay(d time.Duration) SimOption {
	return func(s *Sim) { s.actuationDelay = d }
}

// WithInitialPosition sets where the simulated actuator starts.
func WithInitialPosition(p types.LockPosition) SimOption {
	return func(s *Sim) { s.pos = p }
}

func NewSim(logger pslog.Logger, opts ...SimOption) *Sim {
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	s := &Sim{
		events: make(chan types.AccessEvent, 16),
		logger: logger,
		pos:    types.Locked,
		closed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Touch simulates a card read.  Drops the event if the buffer is full,
// like a reader nobody is polling.
func (s *Sim) Touch(c types.Credential) {
	select {
	case s.events <- types.AccessEvent{Kind: types.EventCredential, Credential: c}:
	default:
	}
}

// PressButton simulates the manual door button.
func (s *Sim) PressButton() {
	select {
	case s.events <- types.AccessEvent{Kind: types.EventButton}:
	default:
	}
}

func (s *Sim) WaitForEvent(ctx context.Context) (types.AccessEvent, error) {
	select {
	case ev := <-s.events:
		return ev, nil
	case <-s.closed:
		return types.AccessEvent{Kind: types.EventShutdown}, nil
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return types.AccessEvent{}, ErrNoEvent
		}
		return types.AccessEvent{Kind: types.EventShutdown}, nil
	}
}

func (s *Sim) Lock(ctx context.Context) error {
	return s.actuate(ctx, "lock", types.Locked)
}

func (s *Sim) Unlock(ctx context.Context) error {
	return s.actuate(ctx, "unlock", types.Unlocked)
}

func (s *Sim) IndicateWarning(ctx context.Context) error {
	s.record("warning")
	s.logger.Debug("hardware.sim.warning")
	return s.takeFailure()
}

func (s *Sim) IndicateError(ctx context.Context) error {
	s.record("error")
	s.logger.Debug("hardware.sim.error")
	return s.takeFailure()
}

func (s *Sim) Position() types.LockPosition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

func (s *Sim) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.record("close")
	})
	return nil
}

// FailNext makes the next actuation or indication call return err.
// Test-only helper.
func (s *Sim) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

// Calls returns the sequence of hardware operations performed.  Test-only
// helper.
func (s *Sim) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

func (s *Sim) actuate(ctx context.Context, name string, target types.LockPosition) error {
	s.record(name)
	if err := s.takeFailure(); err != nil {
		return err
	}

	if s.actuationDelay > 0 {
		timer := time.NewTimer(s.actuationDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			// An in-flight actuation finishes even when shutdown is
			// pending; aborting mid-travel could leave the bolt half
			// engaged.
		}
	}

	s.mu.Lock()
	s.pos = target
	s.mu.Unlock()
	s.logger.Debug("hardware.sim.actuated", "position", target.String())
	return nil
}

func (s *Sim) record(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, name)
}

func (s *Sim) takeFailure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.failNext
	s.failNext = nil
	return err
}
