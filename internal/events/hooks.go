package events

import (
	"sync"

	"github.com/dmehra2102/todo-realtime/internal/domain"
)

// hooks holds lifecycle callbacks for the Hub.
type hooks struct {
	mu          sync.RWMutex
	onPublish   []func(domain.Event)
	onDrop      []func(string, domain.Event)
	onSubscribe []func(string)
}

// OnPublish registers a hook that fires after an event has been fanned out.
func (h *Hub) OnPublish(fn func(domain.Event)) {
	h.hooks.mu.Lock()
	h.hooks.onPublish = append(h.hooks.onPublish, fn)
	h.hooks.mu.Unlock()
}

// OnDrop registers a hook that fires when a subscriber misses an event due to a full buffer.
func (h *Hub) OnDrop(fn func(subscriberID string, event domain.Event)) {
	h.hooks.mu.Lock()
	h.hooks.onDrop = append(h.hooks.onDrop, fn)
	h.hooks.mu.Unlock()
}

// OnSubscribe registers a hook that fires after a subscriber is registered.
func (h *Hub) OnSubscribe(fn func(subscriberID string)) {
	h.hooks.mu.Lock()
	h.hooks.onSubscribe = append(h.hooks.onSubscribe, fn)
	h.hooks.mu.Unlock()
}

func (h *Hub) runOnPublish(event domain.Event) {
	h.hooks.mu.RLock()
	fns := make([]func(domain.Event), len(h.hooks.onPublish))
	copy(fns, h.hooks.onPublish)
	h.hooks.mu.RUnlock()
	for _, fn := range fns {
		fn(event)
	}
}

func (h *Hub) runOnDrop(id string, event domain.Event) {
	h.hooks.mu.RLock()
	fns := make([]func(string, domain.Event), len(h.hooks.onDrop))
	copy(fns, h.hooks.onDrop)
	h.hooks.mu.RUnlock()
	for _, fn := range fns {
		fn(id, event)
	}
}

func (h *Hub) runOnSubscribe(id string) {
	h.hooks.mu.RLock()
	fns := make([]func(string), len(h.hooks.onSubscribe))
	copy(fns, h.hooks.onSubscribe)
	h.hooks.mu.RUnlock()
	for _, fn := range fns {
		fn(id)
	}
}
