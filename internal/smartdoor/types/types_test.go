package types

import "testing"

func TestLockPosition_Opposite(t *testing.T) {
	if Locked.Opposite() != Unlocked {
		t.Error("Locked.Opposite() != Unlocked")
	}
	if Unlocked.Opposite() != Locked {
		t.Error("Unlocked.Opposite() != Locked")
	}
	if Locked.Opposite().Opposite() != Locked {
		t.Error("Opposite is not an involution")
	}
}

func TestActionFor(t *testing.T) {
	if got := ActionFor(Locked); got != ActionLock {
		t.Errorf("ActionFor(Locked) = %q", got)
	}
	if got := ActionFor(Unlocked); got != ActionUnlock {
		t.Errorf("ActionFor(Unlocked) = %q", got)
	}
}

func TestActionStrings_AreWireContract(t *testing.T) {
	// These exact strings appear in webhook payloads; a rename here is a
	// breaking change for every consumer.
	cases := map[Action]string{
		ActionLock:         "LOCK",
		ActionUnlock:       "UNLOCK",
		ActionInvalidTouch: "INVALID TOUCH",
		ActionSystemError:  "SYSTEM ERROR",
	}
	for action, want := range cases {
		if string(action) != want {
			t.Errorf("action %v: got %q want %q", want, string(action), want)
		}
	}
}

func TestAuthStatus_String(t *testing.T) {
	cases := map[AuthStatus]string{
		AuthAuthorized:  "authorized",
		AuthDenied:      "denied",
		AuthUnreachable: "authority_unreachable",
	}
	for status, want := range cases {
		if got := status.String(); got != want {
			t.Errorf("AuthStatus(%d).String() = %q, want %q", status, got, want)
		}
	}
}
