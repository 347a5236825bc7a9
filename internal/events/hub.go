// Package events fans out todo mutations to real-time listeners.
package events

import (
	"context"
	"sync"

	"github.com/dmehra2102/todo-realtime/internal/domain"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todo_events_published_total",
			Help: "Total number of todo events delivered to subscribers",
		},
		[]string{"method"},
	)

	eventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todo_events_dropped_total",
			Help: "Total number of todo events dropped because a subscriber buffer was full",
		},
		[]string{"method"},
	)

	activeSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "todo_event_subscribers",
			Help: "Number of active real-time subscribers",
		},
	)
)

// Subscription receives events until it is closed.
type Subscription struct {
	ID string
	ch chan domain.Event

	hub  *Hub
	once sync.Once
}

// Events returns the receive channel. It is closed when the subscription or hub closes.
func (s *Subscription) Events() <-chan domain.Event {
	return s.ch
}

// Close unsubscribes. Safe to call more than once.
func (s *Subscription) Close() {
	s.hub.unsubscribe(s)
}

// Hub broadcasts domain events to every subscriber without blocking the publisher.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]*Subscription
	closed bool

	hooks hooks
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]*Subscription)}
}

// Subscribe registers a listener with the given channel buffer. After the hub
// is closed the returned subscription is already closed.
func (h *Hub) Subscribe(buffer int) *Subscription {
	sub := &Subscription{
		ID:  uuid.NewString(),
		ch:  make(chan domain.Event, max(buffer, 0)),
		hub: h,
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		sub.once.Do(func() { close(sub.ch) })
		return sub
	}
	h.subs[sub.ID] = sub
	h.mu.Unlock()

	activeSubscribers.Inc()
	h.runOnSubscribe(sub.ID)
	return sub
}

// Notify delivers event to every subscriber. A subscriber whose buffer is full
// misses the event and the OnDrop hooks fire. Hooks run without the hub lock
// held, so they may subscribe or close.
func (h *Hub) Notify(_ context.Context, event domain.Event) {
	var dropped []string

	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return
	}
	for _, sub := range h.subs {
		select {
		case sub.ch <- event:
			eventsPublished.WithLabelValues(string(event.Method)).Inc()
		default:
			eventsDropped.WithLabelValues(string(event.Method)).Inc()
			dropped = append(dropped, sub.ID)
		}
	}
	h.mu.RUnlock()

	for _, id := range dropped {
		h.runOnDrop(id, event)
	}
	h.runOnPublish(event)
}

// Len returns the number of active subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close ends every subscription. Later Notify calls are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for id, sub := range h.subs {
		delete(h.subs, id)
		sub.once.Do(func() { close(sub.ch) })
		activeSubscribers.Dec()
	}
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub.ID]; !ok {
		return
	}
	delete(h.subs, sub.ID)
	sub.once.Do(func() { close(sub.ch) })
	activeSubscribers.Dec()
}
