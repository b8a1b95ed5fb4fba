// Package events implements the event dispatcher (spec.md §4.E): a
// per-variable Pending/Ready/Error/Ok stream, deduplicated so the same
// (generation, kind) is never delivered twice in a row.
//
// The teacher's internal/events/bus.go shipped a no-op stub that
// discarded every Publish/Subscribe call, yet internal/events/bus_test.go
// exercised an entirely different bus: a subscribers map, topic-based
// channels with a wildcard topic, a bounded buffer with drop counting
// and retry-on-congestion, and a JSON marshal helper. None of that
// existed in bus.go — the test was asserting on fields and functions
// the stub never declared. This file implements the bus the test
// describes, carrying real domain events instead of the update
// workflow's container-progress payload.
package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/corewave/dataflow/internal/graph"
	"github.com/corewave/dataflow/internal/value"
)

// Kind is the event-visible transition a variable reports (spec.md §3).
type Kind int

const (
	KindPending Kind = iota
	KindReady
	KindError
	KindOk
)

func (k Kind) String() string {
	switch k {
	case KindPending:
		return "Pending"
	case KindReady:
		return "Ready"
	case KindError:
		return "Error"
	case KindOk:
		return "Ok"
	default:
		return "Unknown"
	}
}

// Wildcard is the topic that receives every event regardless of which
// variable it names.
const Wildcard = "*"

// bufferSize is the per-subscriber channel capacity. A slow subscriber
// can fall behind by this many events before Publish starts dropping.
const bufferSize = 100

// publishRetries is how many times Publish retries a full channel
// before giving up and counting the event as dropped, giving a slow
// consumer a brief window to drain.
const publishRetries = 3

// Event is one delivered notification: a variable's new EventState,
// its value when Kind is Ready, and its cause when Kind is Error.
type Event struct {
	Variable   graph.VarID `json:"variable"`
	VarName    string      `json:"var_name"`
	Generation int64       `json:"generation"`
	Kind       Kind        `json:"kind"`
	Value      value.Value `json:"-"`
	Err        string      `json:"error,omitempty"`
}

// MarshalEvent encodes an event as JSON for the host bridge (spec.md §5
// `listen`/`notify`).
func MarshalEvent(e Event) ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalEvent decodes a JSON event the host bridge is reinjecting.
// The decoded event never carries a Value: the wire event.Value field
// is `json:"-"`, so a Ready event's payload is only ever a marker to
// subscribers, not a vehicle for crossing the boundary with its value
// still attached.
func UnmarshalEvent(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, err
	}
	return e, nil
}

// Subscriber is the receive side of a subscription.
type Subscriber <-chan Event

type subscription struct {
	ch chan Event
}

// Bus dispatches events to subscribers by variable name, plus any
// subscriber registered on Wildcard. It also deduplicates: the same
// (variable, generation, kind) is never published twice in a row
// (spec.md §8: "the sequence of emitted events ... has no consecutive
// duplicates").
type Bus struct {
	mu          sync.Mutex
	subscribers map[string][]*subscription
	last        map[graph.VarID]dedupKey
	dropped     int64
}

type dedupKey struct {
	generation int64
	kind       Kind
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[string][]*subscription),
		last:        make(map[graph.VarID]dedupKey),
	}
}

// Subscribe registers a new subscriber for a topic (a variable name, or
// Wildcard for every variable) and returns its receive channel and an
// unsubscribe function that closes the channel.
func (b *Bus) Subscribe(topic string) (Subscriber, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscription{ch: make(chan Event, bufferSize)}
	b.subscribers[topic] = append(b.subscribers[topic], sub)

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subscribers[topic]
		for i, s := range subs {
			if s == sub {
				b.subscribers[topic] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		close(sub.ch)
	}
	return sub.ch, unsubscribe
}

// Publish delivers an event to every subscriber of its variable's name
// and every wildcard subscriber, after the dedup check. Delivery never
// blocks the publisher for longer than a few retries: a subscriber
// whose buffer stays full is dropped from, not allowed to stall,
// planning.
func (b *Bus) Publish(topic string, e Event) {
	b.mu.Lock()
	if !b.shouldDeliver(e) {
		b.mu.Unlock()
		return
	}
	targets := make([]*subscription, 0, len(b.subscribers[topic])+len(b.subscribers[Wildcard]))
	targets = append(targets, b.subscribers[topic]...)
	if topic != Wildcard {
		targets = append(targets, b.subscribers[Wildcard]...)
	}
	b.mu.Unlock()

	for _, sub := range targets {
		b.deliver(sub, e)
	}
}

// shouldDeliver applies the no-consecutive-duplicates rule. Must be
// called with b.mu held.
func (b *Bus) shouldDeliver(e Event) bool {
	key := dedupKey{generation: e.Generation, kind: e.Kind}
	if prev, ok := b.last[e.Variable]; ok && prev == key {
		return false
	}
	b.last[e.Variable] = key
	return true
}

func (b *Bus) deliver(sub *subscription, e Event) {
	for attempt := 0; attempt < publishRetries; attempt++ {
		select {
		case sub.ch <- e:
			return
		default:
			if attempt < publishRetries-1 {
				time.Sleep(time.Millisecond)
			}
		}
	}
	b.mu.Lock()
	b.dropped++
	b.mu.Unlock()
}

// GetDroppedCount reports how many deliveries have been dropped across
// every subscriber since the bus was created or last reset.
func (b *Bus) GetDroppedCount() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// ResetDroppedCount zeroes the dropped-delivery counter.
func (b *Bus) ResetDroppedCount() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dropped = 0
}
