package watcher

import (
	"log/slog"
	"sync"
	"time"
)

// Debouncer coalesces rapid file events to prevent index thrashing.
// Events for the same path within the debounce window merge according
// to these rules:
//   - CREATE + MODIFY = CREATE (file is still new)
//   - anything + DELETE = DELETE (delete wins)
//   - DELETE + CREATE = MODIFY (file was replaced)
//
// A save that fires write/rename/chmod in quick succession therefore
// reaches the indexer exactly once.
type Debouncer struct {
	window  time.Duration
	pending map[string]*pendingEvent
	mu      sync.Mutex
	output  chan []FileEvent
	timer   *time.Timer
	stopped bool
}

type pendingEvent struct {
	event    FileEvent
	lastSeen time.Time
}

// NewDebouncer creates a debouncer with the given window duration.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window:  window,
		pending: make(map[string]*pendingEvent),
		output:  make(chan []FileEvent, 10),
	}
}

// Add adds an event to be debounced. Events for the same path coalesce
// according to the coalescing rules.
func (d *Debouncer) Add(event FileEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	now := time.Now()
	if existing, ok := d.pending[event.Path]; ok {
		existing.event = coalesce(existing.event, event)
		existing.lastSeen = now
	} else {
		d.pending[event.Path] = &pendingEvent{event: event, lastSeen: now}
	}

	d.scheduleFlush()
}

// coalesce merges a new event into the pending one for the same path.
func coalesce(existing, next FileEvent) FileEvent {
	switch {
	case next.Operation == OpDelete:
		// Delete wins over any pending create or modify.
		return next
	case existing.Operation == OpCreate && next.Operation == OpModify:
		// Still a brand-new file from the indexer's point of view.
		existing.Timestamp = next.Timestamp
		return existing
	case existing.Operation == OpDelete && next.Operation == OpCreate:
		// Replaced in place.
		next.Operation = OpModify
		return next
	default:
		return next
	}
}

// scheduleFlush arms the flush timer, restarting the window.
func (d *Debouncer) scheduleFlush() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// flush emits all pending events as one batch.
func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || len(d.pending) == 0 {
		return
	}

	events := make([]FileEvent, 0, len(d.pending))
	for _, pe := range d.pending {
		events = append(events, pe.event)
	}
	d.pending = make(map[string]*pendingEvent)

	select {
	case d.output <- events:
	default:
		slog.Warn("debouncer output full, dropping batch",
			slog.Int("batch_size", len(events)))
	}
}

// Output returns the channel of debounced event batches.
func (d *Debouncer) Output() <-chan []FileEvent {
	return d.output
}

// Stop stops the debouncer and closes the output channel.
// Safe to call multiple times.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	close(d.output)
}
