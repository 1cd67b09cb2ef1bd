// Package notify delivers door events to the configured webhook endpoints.
// Delivery is ordered, at-least-once auditing: a record leaves the queue
// only after every endpoint confirmed it, and a failed record returns to
// the head so later records never overtake it.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/xid"
	"pkt.systems/pslog"

	"github.com/munechika-koyo/smartdoor/internal/smartdoor/metrics"
	"github.com/munechika-koyo/smartdoor/internal/smartdoor/types"
)

// timestampLayout is part of the webhook contract (value1 field).
const timestampLayout = "2006/01/02 15:04:05"

// ErrDeliveryFailed wraps the first endpoint failure of a drain pass.
var ErrDeliveryFailed = errors.New("notification delivery failed")

// Endpoint is one webhook target.  Name comes from the config key and only
// appears in logs.
type Endpoint struct {
	Name string
	URL  string
}

// payload matches the webhook body: {"value1": timestamp, "value2": actor,
// "value3": action}.
type payload struct {
	Value1 string `json:"value1"`
	Value2 string `json:"value2"`
	Value3 string `json:"value3"`
}

type Config struct {
	Endpoints []Endpoint
	// Timeout bounds each individual POST.
	Timeout time.Duration
	// MaxDepth caps the queue; when full the oldest record is dropped so
	// recent events survive an extended outage.  0 means unbounded.
	MaxDepth int
}

// Queue is the ordered, in-process store of pending deliveries.  Enqueue is
// safe to call from the event loop while a background drain is running.
type Queue struct {
	endpoints []Endpoint
	client    *http.Client
	timeout   time.Duration
	maxDepth  int
	logger    pslog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time

	mu      sync.Mutex
	records []types.NotificationRecord

	// drainMu ensures at most one drain pass at a time, so the ordering
	// guarantee holds even with the background redeliverer running.
	drainMu sync.Mutex
}

func NewQueue(cfg Config, m *metrics.Metrics, logger pslog.Logger) *Queue {
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	if m == nil {
		m = metrics.New()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Queue{
		endpoints: cfg.Endpoints,
		client:    &http.Client{},
		timeout:   cfg.Timeout,
		maxDepth:  cfg.MaxDepth,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
	}
}

// NewRecord stamps a record for the given actor and action.
func (q *Queue) NewRecord(actor string, action types.Action) types.NotificationRecord {
	return types.NotificationRecord{
		ID:        xid.New().String(),
		Timestamp: q.now(),
		Actor:     actor,
		Action:    action,
	}
}

// Enqueue appends a record.  It never fails; if the cap is reached the
// oldest record is dropped first.
func (q *Queue) Enqueue(rec types.NotificationRecord) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.maxDepth > 0 && len(q.records) >= q.maxDepth {
		dropped := q.records[0]
		q.records = q.records[1:]
		q.metrics.NotifyDropped.Inc()
		q.logger.Warn("notify.queue.full",
			"dropped_id", dropped.ID,
			"dropped_action", string(dropped.Action),
			"max_depth", q.maxDepth,
		)
	}

	q.records = append(q.records, rec)
	q.metrics.QueueDepth.Set(float64(len(q.records)))
}

// Len reports the number of pending records.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.records)
}

// Drain attempts delivery of every queued record, oldest first, to every
// endpoint.  On the first endpoint failure the record goes back to the
// head and the drain stops: later records must not be delivered out of
// order.  Each POST is bounded by the queue's timeout and by ctx.
func (q *Queue) Drain(ctx context.Context) error {
	q.drainMu.Lock()
	defer q.drainMu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		rec, ok := q.popFront()
		if !ok {
			return nil
		}

		if err := q.deliver(ctx, rec); err != nil {
			q.pushFront(rec)
			q.metrics.NotifyRequeued.Inc()
			q.logger.Warn("notify.drain.requeued",
				"id", rec.ID, "action", string(rec.Action), "error", err)
			return err
		}

		q.metrics.NotifyDelivered.Inc()
		q.logger.Debug("notify.drain.delivered", "id", rec.ID, "action", string(rec.Action))
	}
}

// deliver posts rec to every endpoint in order, stopping at the first
// failure.
func (q *Queue) deliver(ctx context.Context, rec types.NotificationRecord) error {
	body, err := json.Marshal(payload{
		Value1: rec.Timestamp.Format(timestampLayout),
		Value2: rec.Actor,
		Value3: string(rec.Action),
	})
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", rec.ID, err)
	}

	for _, ep := range q.endpoints {
		if err := q.post(ctx, ep, body); err != nil {
			return fmt.Errorf("%w: endpoint %s: %v", ErrDeliveryFailed, ep.Name, err)
		}
	}
	return nil
}

func (q *Queue) post(ctx context.Context, ep Endpoint, body []byte) error {
	reqCtx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, ep.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := q.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

func (q *Queue) popFront() (types.NotificationRecord, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.records) == 0 {
		return types.NotificationRecord{}, false
	}
	rec := q.records[0]
	q.records = q.records[1:]
	q.metrics.QueueDepth.Set(float64(len(q.records)))
	return rec, true
}

func (q *Queue) pushFront(rec types.NotificationRecord) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.records = append([]types.NotificationRecord{rec}, q.records...)
	q.metrics.QueueDepth.Set(float64(len(q.records)))
}
