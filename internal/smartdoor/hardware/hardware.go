// Package hardware defines the actuation collaborator contract.  The real
// driver (GPIO servo, LEDs, buzzer, NFC frontend) lives with the deployment
// image; this package carries the interface and a simulated implementation
// for tests and bench runs.
package hardware

import (
	"context"
	"errors"

	"github.com/munechika-koyo/smartdoor/internal/smartdoor/types"
)

// ErrNoEvent is returned by WaitForEvent when the bounded poll elapses
// without input.  The event loop treats it as "try again".
var ErrNoEvent = errors.New("no event within poll interval")

// Controller is the physical door surface.  Lock, Unlock and the indicate
// calls may block for the actuation's physical duration (several hundred
// milliseconds to low seconds); that is expected, not an error.
//
// Calls are made from a single goroutine in the documented sequence only.
type Controller interface {
	// WaitForEvent blocks until a card touch, a button press, or ctx
	// ends.  A deadline expiry yields ErrNoEvent; any other ctx end
	// yields an EventShutdown event.
	WaitForEvent(ctx context.Context) (types.AccessEvent, error)

	// Lock drives the actuator to the locked position.
	Lock(ctx context.Context) error
	// Unlock drives the actuator to the unlocked position.
	Unlock(ctx context.Context) error

	// IndicateWarning runs the unauthorized-touch indication (red LED
	// blink, buzzer).
	IndicateWarning(ctx context.Context) error
	// IndicateError runs the fault indication.
	IndicateError(ctx context.Context) error

	// Position reports where the actuator last moved to.
	Position() types.LockPosition

	// Close releases the hardware session.  Safe to call more than once.
	Close() error
}
