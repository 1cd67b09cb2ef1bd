package store

import (
	"context"
	"crypto/sha256"
	"time"

	"github.com/munechika-koyo/smartdoor/internal/smartdoor/types"
)

// TouchRecord captures a single access decision for the audit log.
// CredentialHash is nil for button events; card IDms are hashed so the raw
// identifier never leaves process memory.
type TouchRecord struct {
	ID             string
	OccurredAt     time.Time
	Actor          string
	Action         types.Action
	CredentialHash []byte // SHA-256 of the IDm, nil for button events
	Granted        bool
	Reason         string
	LockState      types.LockPosition // position after the event
}

// TouchEventStore persists access decisions as an append-only audit log.
type TouchEventStore interface {
	RecordTouch(ctx context.Context, rec TouchRecord) error
}

// HashCredential returns the SHA-256 digest stored in place of a raw IDm.
func HashCredential(c types.Credential) []byte {
	if c == "" {
		return nil
	}
	sum := sha256.Sum256([]byte(c))
	return sum[:]
}
