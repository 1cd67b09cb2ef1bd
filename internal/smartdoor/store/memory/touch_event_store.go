package memory

import (
	"context"
	"sync"

	"github.com/munechika-koyo/smartdoor/internal/smartdoor/store"
)

// TouchEventStore is an in-memory append-only log of access decisions.
// It is intended for use in tests and when persistence is disabled.
type TouchEventStore struct {
	mu     sync.Mutex
	events []store.TouchRecord
}

func NewTouchEventStore() *TouchEventStore {
	return &TouchEventStore{}
}

func (s *TouchEventStore) RecordTouch(_ context.Context, rec store.TouchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, rec)
	return nil
}

// Events returns a copy of all recorded events.  Test-only helper.
func (s *TouchEventStore) Events() []store.TouchRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.TouchRecord, len(s.events))
	copy(out, s.events)
	return out
}
