package types

import "time"

// Credential is the hex-encoded IDm of a proximity card, as read from the
// card reader.  It is opaque to everything except the authentication
// authority.
type Credential string

// EventKind discriminates the inputs the hardware wait primitive can
// resolve to.
type EventKind int

const (
	// EventCredential means a card was touched and its IDm was read.
	EventCredential EventKind = iota
	// EventButton means the manual door button was pressed.
	EventButton
	// EventShutdown means the process was asked to stop.
	EventShutdown
)

func (k EventKind) String() string {
	switch k {
	case EventCredential:
		return "credential"
	case EventButton:
		return "button"
	case EventShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// AccessEvent is the only output type of the event loop.  Credential is set
// only when Kind == EventCredential.
type AccessEvent struct {
	Kind       EventKind
	Credential Credential
}

// AuthStatus is the outcome of a single authentication round trip.
type AuthStatus int

const (
	// AuthAuthorized means the authority validated the credential and the
	// user is allowed into the configured room.
	AuthAuthorized AuthStatus = iota
	// AuthDenied means the authority answered but did not authorize the
	// credential for this room.
	AuthDenied
	// AuthUnreachable means the authority could not be reached or returned
	// a malformed response.  Access policy treats this the same as a
	// denial (fail-closed).
	AuthUnreachable
)

func (s AuthStatus) String() string {
	switch s {
	case AuthAuthorized:
		return "authorized"
	case AuthDenied:
		return "denied"
	case AuthUnreachable:
		return "authority_unreachable"
	default:
		return "unknown"
	}
}

// AuthResult carries the authority's decision.  Name is set only when
// Status == AuthAuthorized.
type AuthResult struct {
	Status AuthStatus
	Name   string
}

// LockPosition is the authoritative state of the physical lock.
type LockPosition int

const (
	Locked LockPosition = iota
	Unlocked
)

func (p LockPosition) String() string {
	if p == Locked {
		return "locked"
	}
	return "unlocked"
}

// Opposite returns the position the lock moves to on the next actuation.
func (p LockPosition) Opposite() LockPosition {
	if p == Locked {
		return Unlocked
	}
	return Locked
}

// Action names a notification-worthy door event.  The strings are part of
// the webhook contract and must not change.
type Action string

const (
	ActionLock         Action = "LOCK"
	ActionUnlock       Action = "UNLOCK"
	ActionInvalidTouch Action = "INVALID TOUCH"
	ActionSystemError  Action = "SYSTEM ERROR"
)

// ActionFor maps a lock position reached by an actuation to its action.
func ActionFor(p LockPosition) Action {
	if p == Locked {
		return ActionLock
	}
	return ActionUnlock
}

// NotificationRecord is one pending webhook delivery.  Records are immutable
// once created and owned by the notification queue until every endpoint has
// confirmed delivery.
type NotificationRecord struct {
	ID        string
	Timestamp time.Time
	Actor     string
	Action    Action
}
