// Package progress carries transfer progress events from the pipeline to
// whoever renders them. Emission never blocks the transfer.
package progress

import (
	"sync"
	"time"
)

type EventType string

const (
	EventStage         EventType = "stage"
	EventTableStarted  EventType = "table_started"
	EventBatch         EventType = "batch"
	EventInterval      EventType = "interval"
	EventTableComplete EventType = "table_complete"
	EventTransferDone  EventType = "transfer_done"
)

// Event is one progress update. Percent is weighted by row counts across
// all tables.
type Event struct {
	Type      EventType `json:"type"`
	JobID     string    `json:"job_id"`
	Stage     string    `json:"stage,omitempty"`
	Table     string    `json:"table,omitempty"`
	TableRows int64     `json:"table_rows,omitempty"`
	RowsDone  int64     `json:"rows_done"`
	RowsTotal int64     `json:"rows_total"`
	Percent   float64   `json:"percent"`
	Elapsed   string    `json:"elapsed,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Bus fans events out to subscribers. Routine events are dropped when a
// subscriber's buffer is full; milestone events (table completion, transfer
// done) are delivered even if that means waiting.
type Bus struct {
	mu          sync.RWMutex
	subscribers []chan Event
	closed      bool
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe returns a buffered event channel. The channel closes when the
// bus closes.
func (b *Bus) Subscribe() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, 100)
	if b.closed {
		close(ch)
		return ch
	}
	b.subscribers = append(b.subscribers, ch)
	return ch
}

// Emit delivers event to every subscriber, dropping it for any whose buffer
// is full.
func (b *Bus) Emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default: // drop if buffer full
		}
	}
}

// EmitSync delivers event to every subscriber, blocking per subscriber
// until accepted. Used for milestones that must not be lost.
func (b *Bus) EmitSync(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subscribers {
		ch <- event
	}
}

// Close closes all subscriber channels. Emit after Close is a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = nil
}

// Percentage computes the weighted completion percentage, clamped to 100.
func Percentage(done, total int64) float64 {
	if total <= 0 {
		return 0
	}
	pct := float64(done) / float64(total) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}
