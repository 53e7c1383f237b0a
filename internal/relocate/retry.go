package relocate

import (
	"sync"
	"time"

	"github.com/banshee-data/reanchor/internal/monitoring"
)

// PendingPlacement wraps a saved record that could not be confidently
// placed yet. BestConfidence is monotonically non-decreasing across
// retries for the same record.
type PendingPlacement struct {
	Record           *SavedAnchorRecord
	EnqueuedNanos    int64
	LastAttemptNanos int64
	Attempts         int
	BestConfidence   float64
}

// AttemptFunc runs one placement attempt for a pending entry and reports
// the confidence reached and whether the placement was committed. The
// session supplies this; the queue only owns cadence, batching and entry
// bookkeeping.
type AttemptFunc func(entry *PendingPlacement) (confidence float64, committed bool)

// RetryQueueConfig holds configuration for the retry queue.
type RetryQueueConfig struct {
	Interval    time.Duration // tick cadence and per-entry minimum spacing
	Batch       int           // max entries processed per tick
	MaxAttempts int           // attempts before an entry moves to the slow lane
	SlowFactor  int           // slow-lane spacing multiplier
}

// DefaultRetryQueueConfig returns the default retry configuration.
func DefaultRetryQueueConfig() RetryQueueConfig {
	return RetryQueueConfig{
		Interval:    2 * time.Second,
		Batch:       3,
		MaxAttempts: 30,
		SlowFactor:  10,
	}
}

// RetryQueue holds anchors awaiting placement and retries them on a fixed
// cadence. The ticker is started lazily on the first enqueue and stops
// itself once the queue empties, so nothing runs while idle.
//
// Entries are never evicted by attempt count: past MaxAttempts an entry is
// simply retried every Interval×SlowFactor instead of every Interval.
type RetryQueue struct {
	cfg     RetryQueueConfig
	attempt AttemptFunc

	mu      sync.Mutex
	entries map[string]*PendingPlacement
	order   []string // FIFO processing order by record id
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewRetryQueue creates a queue that will run attempts through fn.
func NewRetryQueue(cfg RetryQueueConfig, fn AttemptFunc) *RetryQueue {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultRetryQueueConfig().Interval
	}
	if cfg.Batch <= 0 {
		cfg.Batch = DefaultRetryQueueConfig().Batch
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultRetryQueueConfig().MaxAttempts
	}
	if cfg.SlowFactor <= 0 {
		cfg.SlowFactor = DefaultRetryQueueConfig().SlowFactor
	}
	return &RetryQueue{
		cfg:     cfg,
		attempt: fn,
		entries: make(map[string]*PendingPlacement),
	}
}

// Enqueue adds a record for retry, starting the ticker if it is not
// running. Re-enqueueing a queued record only raises its best confidence;
// position and attempt counters are preserved.
func (q *RetryQueue) Enqueue(record *SavedAnchorRecord, bestConfidence float64, now time.Time) {
	q.mu.Lock()

	if entry, ok := q.entries[record.ID]; ok {
		if bestConfidence > entry.BestConfidence {
			entry.BestConfidence = bestConfidence
		}
		q.mu.Unlock()
		return
	}

	q.entries[record.ID] = &PendingPlacement{
		Record:           record,
		EnqueuedNanos:    now.UnixNano(),
		LastAttemptNanos: now.UnixNano(),
		BestConfidence:   bestConfidence,
	}
	q.order = append(q.order, record.ID)

	start := !q.running
	if start {
		q.running = true
		q.stopCh = make(chan struct{})
		q.doneCh = make(chan struct{})
	}
	q.mu.Unlock()

	if start {
		go q.run()
	}
}

// run is the ticker loop. It exits when the queue empties or Stop is
// called. An entry enqueued in the window between the empty check and loop
// exit restarts the loop rather than stranding.
func (q *RetryQueue) run() {
	defer func() {
		q.mu.Lock()
		q.running = false
		done := q.doneCh
		var restart bool
		select {
		case <-q.stopCh:
			// explicit Stop: stay down
		default:
			restart = len(q.entries) > 0
		}
		if restart {
			q.running = true
			q.stopCh = make(chan struct{})
			q.doneCh = make(chan struct{})
		}
		q.mu.Unlock()
		close(done)
		if restart {
			go q.run()
		}
	}()

	ticker := time.NewTicker(q.cfg.Interval)
	defer ticker.Stop()

	for {
		q.mu.Lock()
		stop := q.stopCh
		q.mu.Unlock()

		select {
		case <-stop:
			return
		case <-ticker.C:
			if empty := q.Tick(time.Now()); empty {
				return
			}
		}
	}
}

// Tick processes at most Batch due entries and reports whether the queue
// is now empty. Exposed for tests; production ticks come from the internal
// loop.
func (q *RetryQueue) Tick(now time.Time) (empty bool) {
	batch := q.collectDue(now)

	for _, entry := range batch {
		confidence, committed := q.attempt(entry)
		q.settle(entry, confidence, committed)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries) == 0
}

// Flush attempts every queued entry once, regardless of elapsed time or
// batch size. Called when the environment first becomes Ready.
func (q *RetryQueue) Flush() {
	q.mu.Lock()
	batch := make([]*PendingPlacement, 0, len(q.order))
	for _, id := range q.order {
		if entry, ok := q.entries[id]; ok {
			batch = append(batch, entry)
		}
	}
	q.mu.Unlock()

	for _, entry := range batch {
		confidence, committed := q.attempt(entry)
		q.settle(entry, confidence, committed)
	}
}

// collectDue gathers up to Batch entries whose spacing has elapsed, FIFO.
func (q *RetryQueue) collectDue(now time.Time) []*PendingPlacement {
	q.mu.Lock()
	defer q.mu.Unlock()

	nowNanos := now.UnixNano()
	due := make([]*PendingPlacement, 0, q.cfg.Batch)
	for _, id := range q.order {
		if len(due) >= q.cfg.Batch {
			break
		}
		entry, ok := q.entries[id]
		if !ok {
			continue
		}
		spacing := q.cfg.Interval
		if entry.Attempts >= q.cfg.MaxAttempts {
			spacing = q.cfg.Interval * time.Duration(q.cfg.SlowFactor)
		}
		if nowNanos-entry.LastAttemptNanos >= int64(spacing) {
			due = append(due, entry)
		}
	}
	return due
}

// settle records the outcome of one attempt.
func (q *RetryQueue) settle(entry *PendingPlacement, confidence float64, committed bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry.Attempts++
	entry.LastAttemptNanos = time.Now().UnixNano()
	if confidence > entry.BestConfidence {
		entry.BestConfidence = confidence
	}

	if committed {
		q.removeLocked(entry.Record.ID)
		return
	}

	if entry.Attempts == q.cfg.MaxAttempts {
		monitoring.Logf("RetryQueue: record %s reached %d attempts (best confidence %.2f), moving to slow lane",
			entry.Record.ID, entry.Attempts, entry.BestConfidence)
	}
}

// removeLocked drops an entry. Caller holds q.mu.
func (q *RetryQueue) removeLocked(id string) {
	delete(q.entries, id)
	for i, oid := range q.order {
		if oid == id {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
}

// Remove drops a queued entry by record id.
func (q *RetryQueue) Remove(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.removeLocked(id)
}

// Contains reports whether a record is queued.
func (q *RetryQueue) Contains(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.entries[id]
	return ok
}

// Len returns the number of queued entries.
func (q *RetryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Pending returns copies of all queued entries in processing order.
func (q *RetryQueue) Pending() []PendingPlacement {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]PendingPlacement, 0, len(q.order))
	for _, id := range q.order {
		if entry, ok := q.entries[id]; ok {
			out = append(out, *entry)
		}
	}
	return out
}

// TimerRunning reports whether the ticker goroutine is active.
func (q *RetryQueue) TimerRunning() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Stop halts the ticker without clearing entries. Safe to call when the
// ticker is not running, and safe to call multiple times.
func (q *RetryQueue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	select {
	case <-q.stopCh:
		// already closed
	default:
		close(q.stopCh)
	}
	done := q.doneCh
	q.mu.Unlock()

	<-done
}

// Clear stops the ticker and drops all entries. Used on session reset.
func (q *RetryQueue) Clear() {
	q.Stop()
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = make(map[string]*PendingPlacement)
	q.order = nil
}
