// Package events fans activity changes out to in-process subscribers
// (WatchActivity streams) and to external forwarders such as Kafka.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mmynk/rollcall/internal/observability"
)

// Kind names what happened to an activity.
type Kind string

const (
	KindCommitment Kind = "commitment"
	KindCost       Kind = "cost"
	KindPayment    Kind = "payment"
	KindRide       Kind = "ride"
	KindLifecycle  Kind = "lifecycle"
	KindSettled    Kind = "settled"
)

// Event is published after the transaction that caused it commits.
type Event struct {
	ActivityID string `json:"activityId"`
	Kind       Kind   `json:"kind"`
	PersonID   string `json:"personId,omitempty"`
	Status     string `json:"status,omitempty"`
	At         int64  `json:"at"`
}

// Publisher accepts events. Publishing never fails the caller.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Forwarder ships events outside the process.
type Forwarder interface {
	Forward(ctx context.Context, e Event) error
}

const subscriberBuffer = 16

type subscription struct {
	ch   chan Event
	once sync.Once
}

func (s *subscription) close() {
	s.once.Do(func() { close(s.ch) })
}

// Hub is an in-process publish/subscribe fan-out keyed by activity.
// A subscriber whose buffer is full is evicted and its channel closed,
// so a closed channel means "resync", never "caught up". Publishers never
// block on subscribers.
type Hub struct {
	mu         sync.Mutex
	subs       map[string]map[*subscription]struct{}
	closed     bool
	forwarders []Forwarder
}

var _ Publisher = (*Hub)(nil)

// NewHub creates a Hub that also hands every event to the given forwarders.
func NewHub(forwarders ...Forwarder) *Hub {
	return &Hub{
		subs:       make(map[string]map[*subscription]struct{}),
		forwarders: forwarders,
	}
}

// Subscribe registers for events of one activity. The channel is closed
// when cancel is called, when the subscriber falls behind, or when the hub
// is closed. Subscribing to a closed hub yields an already closed channel.
func (h *Hub) Subscribe(activityID string) (<-chan Event, func()) {
	sub := &subscription{ch: make(chan Event, subscriberBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		sub.close()
		return sub.ch, func() {}
	}
	if h.subs[activityID] == nil {
		h.subs[activityID] = make(map[*subscription]struct{})
	}
	h.subs[activityID][sub] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		h.remove(activityID, sub)
		h.mu.Unlock()
		sub.close()
	}
	return sub.ch, cancel
}

// remove must be called with h.mu held.
func (h *Hub) remove(activityID string, sub *subscription) {
	delete(h.subs[activityID], sub)
	if len(h.subs[activityID]) == 0 {
		delete(h.subs, activityID)
	}
}

// Publish delivers e to current subscribers and forwarders.
func (h *Hub) Publish(ctx context.Context, e Event) {
	if e.At == 0 {
		e.At = time.Now().Unix()
	}

	h.mu.Lock()
	for sub := range h.subs[e.ActivityID] {
		select {
		case sub.ch <- e:
		default:
			h.remove(e.ActivityID, sub)
			sub.close()
			observability.RecordSubscriberEvicted()
			slog.Warn("Evicting slow subscriber", "activity_id", e.ActivityID, "kind", e.Kind)
		}
	}
	h.mu.Unlock()

	for _, f := range h.forwarders {
		if err := f.Forward(ctx, e); err != nil {
			slog.Warn("Failed to forward event",
				"activity_id", e.ActivityID,
				"kind", e.Kind,
				"error", err,
			)
		}
	}
}

// Close ends every subscription and refuses new ones. Forwarders keep
// receiving published events.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, subs := range h.subs {
		for sub := range subs {
			sub.close()
		}
	}
	h.subs = make(map[string]map[*subscription]struct{})
}

// Closed reports whether Close has been called.
func (h *Hub) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Subscribers reports how many subscriptions an activity has.
func (h *Hub) Subscribers(activityID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[activityID])
}

// Publish is a nil-safe helper for optional publishers.
func Publish(ctx context.Context, p Publisher, e Event) {
	if p == nil {
		return
	}
	p.Publish(ctx, e)
}
