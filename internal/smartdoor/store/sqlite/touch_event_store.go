package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	dbpkg "github.com/munechika-koyo/smartdoor/internal/db"
	"github.com/munechika-koyo/smartdoor/internal/smartdoor/store"
)

type TouchEventStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewTouchEventStore(db *sql.DB, writer *dbpkg.Worker) *TouchEventStore {
	return &TouchEventStore{db: db, writer: writer}
}

func (s *TouchEventStore) RecordTouch(ctx context.Context, rec store.TouchRecord) error {
	if rec.ID == "" {
		rec.ID = xid.New().String()
	}
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = time.Now().UTC()
	}

	occurredMs := rec.OccurredAt.UTC().UnixMilli()

	var credentialHash any
	if len(rec.CredentialHash) == 32 {
		credentialHash = rec.CredentialHash
	}

	var granted int
	if rec.Granted {
		granted = 1
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO touch_events(
  id, occurred_at_ms, actor, action, credential_hash, granted, reason, lock_state
) VALUES (?, ?, ?, ?, ?, ?, ?, ?);
`,
			rec.ID, occurredMs, rec.Actor, string(rec.Action),
			credentialHash, granted, rec.Reason, rec.LockState.String(),
		); err != nil {
			return fmt.Errorf("RecordTouch insert: %w", err)
		}
		return nil
	})
}

// RecentTouches returns up to limit events, newest first.  Used by the CLI's
// stats output and by tests.
func (s *TouchEventStore) RecentTouches(ctx context.Context, limit int) ([]store.TouchRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, occurred_at_ms, actor, action, credential_hash, granted, reason, lock_state
FROM touch_events
ORDER BY occurred_at_ms DESC, id DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, fmt.Errorf("RecentTouches query: %w", err)
	}
	defer rows.Close()

	var out []store.TouchRecord
	for rows.Next() {
		var (
			rec        store.TouchRecord
			occurredMs int64
			action     string
			hash       []byte
			granted    int
			lockState  string
		)
		if err := rows.Scan(&rec.ID, &occurredMs, &rec.Actor, &action, &hash, &granted, &rec.Reason, &lockState); err != nil {
			return nil, fmt.Errorf("RecentTouches scan: %w", err)
		}
		rec.OccurredAt = time.UnixMilli(occurredMs).UTC()
		rec.Action = typesAction(action)
		rec.CredentialHash = hash
		rec.Granted = granted == 1
		rec.LockState = typesLockState(lockState)
		out = append(out, rec)
	}
	return out, rows.Err()
}
