package watcher

import (
	"log/slog"
	"sync"
	"time"
)

// Debouncer batches rapid file events so an editor save storm triggers
// one re-index instead of one per write. Events for the same path
// inside the window are merged:
//   - CREATE + MODIFY = CREATE (file is still new)
//   - CREATE + DELETE = nothing (file never really existed)
//   - MODIFY + DELETE = DELETE (file is gone)
//   - DELETE + CREATE = MODIFY (file was replaced)
type Debouncer struct {
	window  time.Duration
	pending map[string]*pendingEvent
	mu      sync.Mutex
	output  chan []FileEvent
	timer   *time.Timer
	stopped bool
}

type pendingEvent struct {
	event   FileEvent
	firstOp Operation // What started the sequence, for the merge rules
}

// NewDebouncer creates a debouncer that emits a batch once window has
// elapsed without new events.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window:  window,
		pending: make(map[string]*pendingEvent),
		output:  make(chan []FileEvent, 10),
	}
}

// Add records an event, merging it with any pending event for the same
// path, and restarts the flush timer.
func (d *Debouncer) Add(event FileEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	path := event.Path
	if existing, ok := d.pending[path]; ok {
		merged := d.coalesce(existing, event)
		if merged == nil {
			// The sequence cancelled itself out (CREATE then DELETE)
			delete(d.pending, path)
		} else {
			existing.event = *merged
		}
	} else {
		d.pending[path] = &pendingEvent{
			event:   event,
			firstOp: event.Operation,
		}
	}

	d.scheduleFlush()
}

// coalesce applies the merge rules. Returns nil when the events cancel
// each other out.
func (d *Debouncer) coalesce(existing *pendingEvent, latest FileEvent) *FileEvent {
	switch existing.firstOp {
	case OpCreate:
		switch latest.Operation {
		case OpModify:
			// Still a brand-new file as far as the index is concerned
			return &existing.event
		case OpDelete:
			return nil
		default:
			return &latest
		}

	case OpModify:
		return &latest

	case OpDelete:
		if latest.Operation == OpCreate {
			// Replaced in place, the index sees a changed file
			result := latest
			result.Operation = OpModify
			return &result
		}
		return &latest

	default:
		return &latest
	}
}

// scheduleFlush restarts the window timer. Caller holds d.mu.
func (d *Debouncer) scheduleFlush() {
	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.window, func() {
		d.flush()
	})
}

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

	// Never block the fsnotify loop on a slow consumer
	select {
	case d.output <- events:
	default:
		slog.Warn("debouncer output full, dropping batch",
			slog.Int("batch_size", len(events)),
		)
	}
}

// Output returns the channel of debounced event batches.
func (d *Debouncer) Output() <-chan []FileEvent {
	return d.output
}

// Stop discards pending events and closes the output channel. Safe to
// call multiple times.
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
