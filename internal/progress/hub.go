package progress

import (
	"context"
	"sync"
	"time"
)

const defaultHubCapacity = 1024

// Hub buffers recent events and wakes blocked fetchers when new ones arrive.
// The buffer is bounded; observers that fall more than the capacity behind
// miss the oldest events and resume from what is still retained.
type Hub struct {
	mu       sync.Mutex
	events   []Event
	capacity int
	nextSeq  uint64
	notify   chan struct{}
}

// NewHub builds a hub retaining up to capacity events. A capacity <= 0 uses
// the default.
func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = defaultHubCapacity
	}
	return &Hub{
		capacity: capacity,
		nextSeq:  1,
		notify:   make(chan struct{}),
	}
}

// Publish assigns the event a sequence number, stores it, and wakes fetchers.
func (h *Hub) Publish(event Event) Event {
	h.mu.Lock()
	event.Seq = h.nextSeq
	h.nextSeq++
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	h.events = append(h.events, event)
	if len(h.events) > h.capacity {
		h.events = h.events[len(h.events)-h.capacity:]
	}
	waiting := h.notify
	h.notify = make(chan struct{})
	h.mu.Unlock()

	close(waiting)
	return event
}

// FetchOptions filters and bounds a Fetch call.
type FetchOptions struct {
	// Since excludes events with Seq <= Since.
	Since uint64
	// RunID, when set, limits results to one run.
	RunID string
	// Limit caps the number of returned events. <= 0 means no cap.
	Limit int
	// Wait blocks until at least one matching event exists or ctx is done.
	Wait bool
}

// Fetch returns buffered events after opts.Since, plus the cursor to pass as
// Since next time. With Wait set it blocks until something matches or the
// context ends; a context error is returned only when nothing was delivered.
func (h *Hub) Fetch(ctx context.Context, opts FetchOptions) ([]Event, uint64, error) {
	for {
		h.mu.Lock()
		matched, next := h.collect(opts)
		waiting := h.notify
		h.mu.Unlock()

		if len(matched) > 0 || !opts.Wait {
			return matched, next, nil
		}
		select {
		case <-ctx.Done():
			return nil, next, ctx.Err()
		case <-waiting:
		}
	}
}

func (h *Hub) collect(opts FetchOptions) ([]Event, uint64) {
	next := opts.Since
	var matched []Event
	for _, event := range h.events {
		if event.Seq <= opts.Since {
			continue
		}
		if event.Seq > next {
			next = event.Seq
		}
		if opts.RunID != "" && event.RunID != opts.RunID {
			continue
		}
		matched = append(matched, event)
		if opts.Limit > 0 && len(matched) >= opts.Limit {
			break
		}
	}
	return matched, next
}
