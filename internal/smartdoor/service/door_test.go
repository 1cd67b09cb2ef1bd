package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/munechika-koyo/smartdoor/internal/smartdoor/hardware"
	"github.com/munechika-koyo/smartdoor/internal/smartdoor/notify"
	"github.com/munechika-koyo/smartdoor/internal/smartdoor/service"
	"github.com/munechika-koyo/smartdoor/internal/smartdoor/types"
)

func (f *fakeAuth) Closed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// closeCountingHW bypasses the simulator's internal close guard so tests
// can observe every Close call the door makes.
type closeCountingHW struct {
	*hardware.Sim

	mu     sync.Mutex
	closes int
}

func (h *closeCountingHW) Close() error {
	h.mu.Lock()
	h.closes++
	h.mu.Unlock()
	return h.Sim.Close()
}

func (h *closeCountingHW) Closes() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closes
}

func newTestDoor(results map[types.Credential]types.AuthResult) (*service.Door, *closeCountingHW, *fakeAuth) {
	hw := &closeCountingHW{Sim: hardware.NewSim(nil)}
	auth := &fakeAuth{results: results}
	door := service.NewDoor(service.Dependencies{
		Hardware:     hw,
		Auth:         auth,
		Queue:        notify.NewQueue(notify.Config{}, nil, nil),
		PollInterval: 20 * time.Millisecond,
		InitialState: types.Locked,
	})
	return door, hw, auth
}

func TestDoor_ProcessesEventsUntilShutdown(t *testing.T) {
	door, hw, _ := newTestDoor(map[types.Credential]types.AuthResult{
		"GOOD": {Status: types.AuthAuthorized, Name: "Alice"},
	})

	done := make(chan error, 1)
	go func() { done <- door.Start(context.Background()) }()

	hw.Touch("GOOD")

	deadline := time.Now().Add(2 * time.Second)
	for door.LockState() != types.Unlocked {
		if time.Now().After(deadline) {
			t.Fatal("door never unlocked after authorized touch")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Closing the hardware surfaces a shutdown event; the loop must exit
	// cleanly.
	_ = hw.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after shutdown event")
	}
}

func TestDoor_CancellationStopsLoopAndCleansUpOnce(t *testing.T) {
	door, hw, auth := newTestDoor(nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- door.Start(ctx) }()

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancellation")
	}

	if got := hw.Closes(); got != 1 {
		t.Errorf("expected hardware closed once, got %d", got)
	}
	if got := auth.Closed(); got != 1 {
		t.Errorf("expected auth session closed once, got %d", got)
	}

	// A second Close (the CLI layer defers one too) must be a no-op.
	if err := door.Close(); err != nil {
		t.Fatalf("repeated Close returned error: %v", err)
	}
	if got := hw.Closes(); got != 1 {
		t.Errorf("hardware closed again on repeated Close: %d", got)
	}
	if got := auth.Closed(); got != 1 {
		t.Errorf("auth session closed again on repeated Close: %d", got)
	}
}

func TestLoop_IdlePollingObservesCancellation(t *testing.T) {
	door, _, _ := newTestDoor(nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- door.Start(ctx) }()

	// Let the loop sit through a few empty polls before cancelling.
	time.Sleep(60 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("idle loop did not observe cancellation")
	}
}
