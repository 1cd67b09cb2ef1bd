package service

import (
	"sync"

	"github.com/munechika-koyo/smartdoor/internal/smartdoor/types"
)

// LockState is the single source of truth for the door's locked/unlocked
// state.  Only the access controller mutates it, from the event loop
// goroutine; other readers (metrics, CLI) may observe it concurrently.
type LockState struct {
	mu  sync.RWMutex
	pos types.LockPosition
}

func NewLockState(initial types.LockPosition) *LockState {
	return &LockState{pos: initial}
}

func (l *LockState) Current() types.LockPosition {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.pos
}

// Transition flips to the opposite position and returns the new one.  Both
// positions are always legal to leave, so there is nothing to validate.
func (l *LockState) Transition() types.LockPosition {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pos = l.pos.Opposite()
	return l.pos
}
