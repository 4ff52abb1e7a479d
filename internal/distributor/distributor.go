// Package distributor fans published communication events out to the set
// of live websocket subscribers whose filter criteria match. Subscribe,
// Unsubscribe, and Publish are all safe to call concurrently.
package distributor

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/agentic-layer/observability-dashboard/internal/events"
	"github.com/agentic-layer/observability-dashboard/internal/filter"
)

// Sink receives a pre-serialized JSON frame. Implementations must not block
// indefinitely; a websocket sink typically backs this with a buffered
// per-connection write queue.
type Sink interface {
	Send(frame []byte) error
}

// Handle identifies a single subscription for later Unsubscribe calls.
type Handle string

type subscriber struct {
	id     Handle
	sink   Sink
	filter filter.Criteria
}

// Distributor is the in-process fan-out fabric. The zero value is not
// usable; construct with New.
type Distributor struct {
	mu          sync.RWMutex
	subscribers map[Handle]*subscriber
}

// New builds an empty Distributor.
func New() *Distributor {
	return &Distributor{subscribers: make(map[Handle]*subscriber)}
}

type welcomeFilters struct {
	ConversationID *string `json:"conversation_id"`
	Workforce      *string `json:"workforce"`
}

type welcomeFrame struct {
	Type    string         `json:"type"`
	Message string         `json:"message"`
	Filters welcomeFilters `json:"filters"`
}

// Subscribe registers sink to receive events matching crit and sends it a
// connection_established welcome frame echoing crit back. The returned
// Handle is used for Unsubscribe. A non-nil error means the welcome frame
// could not be serialized or sent (the state machine's Accepted -> Live transition
// failed); the caller must close the connection with code 4500 and must not
// treat the subscriber as Live. The subscription is still registered and
// must be explicitly unsubscribed by the caller in that case.
func (d *Distributor) Subscribe(sink Sink, crit filter.Criteria) (Handle, error) {
	handle := Handle(uuid.New().String())

	d.mu.Lock()
	d.subscribers[handle] = &subscriber{id: handle, sink: sink, filter: crit}
	d.mu.Unlock()

	frame, err := json.Marshal(welcomeFrame{
		Type:    "connection_established",
		Message: "subscribed",
		Filters: welcomeFilters{ConversationID: crit.ConversationID, Workforce: crit.Workforce},
	})
	if err != nil {
		return handle, err
	}

	if err := sink.Send(frame); err != nil {
		slog.Debug("distributor: welcome frame send failed", "handle", handle, "error", err)
		return handle, err
	}

	return handle, nil
}

// Unsubscribe removes a subscription. It is idempotent: unsubscribing an
// unknown or already-removed handle is a no-op.
func (d *Distributor) Unsubscribe(handle Handle) {
	d.mu.Lock()
	delete(d.subscribers, handle)
	d.mu.Unlock()
}

// UpdateFilter replaces the filter criteria for an existing subscription.
// It is a no-op if handle is not currently subscribed.
func (d *Distributor) UpdateFilter(handle Handle, crit filter.Criteria) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if sub, ok := d.subscribers[handle]; ok {
		sub.filter = crit
	}
}

// Publish serializes ev once and delivers it to every subscriber whose
// filter matches. Subscribers whose Send fails are removed after the
// publish pass completes (never while iterating).
func (d *Distributor) Publish(ev events.Event) {
	frame, err := json.Marshal(ev)
	if err != nil {
		slog.Warn("distributor: failed to serialize event, dropping", "error", err)
		return
	}

	d.mu.RLock()
	targets := make([]*subscriber, 0, len(d.subscribers))
	for _, sub := range d.subscribers {
		if sub.filter.Matches(ev) {
			targets = append(targets, sub)
		}
	}
	d.mu.RUnlock()

	var dead []Handle
	for _, sub := range targets {
		if err := sub.sink.Send(frame); err != nil {
			slog.Debug("distributor: subscriber send failed, evicting", "handle", sub.id, "error", err)
			dead = append(dead, sub.id)
		}
	}

	if len(dead) == 0 {
		return
	}
	d.mu.Lock()
	for _, handle := range dead {
		delete(d.subscribers, handle)
	}
	d.mu.Unlock()
}

// Count returns the current number of live subscribers.
func (d *Distributor) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers)
}
