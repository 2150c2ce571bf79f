package notifications

import (
	"context"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp-forge/recipebox/pkg/resource"
)

// DefaultSubscriptionBuffer is the channel capacity of a Subscription.
const DefaultSubscriptionBuffer = 16

// Sink receives every event published through a Hub.
type Sink interface {
	// Name returns the sink identifier
	Name() string

	// Handle processes a change event
	Handle(ctx context.Context, event *ChangeEvent) error
}

// Hub fans change events out to address subscriptions and sinks.
// Delivery is fire-and-forget: a subscriber whose buffer is full misses the
// event, and a failing sink is logged and skipped.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	sinks  []Sink
	logger hclog.Logger
}

// NewHub creates a Hub that forwards events to sinks.
func NewHub(logger hclog.Logger, sinks ...Sink) *Hub {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Hub{
		subs:   make(map[uint64]*Subscription),
		sinks:  sinks,
		logger: logger.Named("notifications"),
	}
}

// AddSink registers another sink.
func (h *Hub) AddSink(s Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sinks = append(h.sinks, s)
}

// Subscribe watches addr. Changes to addr, or to the collection containing
// it, are delivered. When descendants is true, changes to items of a watched
// collection are delivered too.
func (h *Hub) Subscribe(addr resource.Address, descendants bool) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{
		id:          h.nextID,
		hub:         h,
		addr:        addr,
		descendants: descendants,
		ch:          make(chan *ChangeEvent, DefaultSubscriptionBuffer),
	}
	h.subs[sub.id] = sub
	return sub
}

// Notify builds an event for addr and publishes it.
func (h *Hub) Notify(ctx context.Context, op Operation, addr resource.Address, rows int64) *ChangeEvent {
	event := NewChangeEvent(op, addr, rows)
	h.Publish(ctx, event)
	return event
}

// Publish delivers event to matching subscriptions and all sinks.
func (h *Hub) Publish(ctx context.Context, event *ChangeEvent) {
	h.mu.RLock()
	var targets []*Subscription
	for _, sub := range h.subs {
		if sub.matches(event.Address) {
			targets = append(targets, sub)
		}
	}
	sinks := make([]Sink, len(h.sinks))
	copy(sinks, h.sinks)
	h.mu.RUnlock()

	for _, sub := range targets {
		sub.deliver(event)
	}

	for _, s := range sinks {
		if err := s.Handle(ctx, event); err != nil {
			h.logger.Warn("sink failed to handle change event",
				"sink", s.Name(),
				"event_id", event.ID,
				"address", event.Address.String(),
				"error", err,
			)
		}
	}
}

// SubscriberCount returns the number of open subscriptions.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, id)
}

// Subscription is a stream of change events for one watched address.
type Subscription struct {
	id          uint64
	hub         *Hub
	addr        resource.Address
	descendants bool

	mu     sync.Mutex
	ch     chan *ChangeEvent
	closed bool
}

// Events returns the event channel. It is closed by Close.
func (s *Subscription) Events() <-chan *ChangeEvent {
	return s.ch
}

// Address returns the watched address.
func (s *Subscription) Address() resource.Address {
	return s.addr
}

// Close stops delivery and closes the event channel. Safe to call twice.
func (s *Subscription) Close() {
	s.hub.remove(s.id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

func (s *Subscription) matches(addr resource.Address) bool {
	// A collection-level change invalidates every watcher beneath it.
	if addr.Contains(s.addr) {
		return true
	}
	return s.descendants && s.addr.Contains(addr)
}

func (s *Subscription) deliver(event *ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- event:
	default:
		s.hub.logger.Debug("subscriber buffer full, dropping change event",
			"address", s.addr.String(),
			"event_id", event.ID,
		)
	}
}
