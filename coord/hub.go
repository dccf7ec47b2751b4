package coord

import (
	"context"
	"sync"
)

// Hub is an in-process Publisher that fans events out to subscribers.
// Targeted events reach subscribers of that target plus subscribers of the
// empty target; untargeted events reach everyone.
type Hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]*subscription
	logger Logger
}

type subscription struct {
	target string
	ch     chan Event
}

var _ Publisher = (*Hub)(nil)

func NewHub(logger Logger) *Hub {
	return &Hub{
		subs:   map[int]*subscription{},
		logger: logger,
	}
}

// Publish implements Publisher. Slow subscribers drop events rather than
// block the caller.
func (h *Hub) Publish(ctx context.Context, event Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if event.Target != "" && sub.target != "" && sub.target != event.Target {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			if h.logger != nil {
				h.logger.Debug("dropping event %s for slow subscriber", event.Type)
			}
		}
	}

	return nil
}

// Subscribe registers a listener for a target ("" for everything). The
// returned cancel func must be called to release the subscription.
func (h *Hub) Subscribe(target string, buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	sub := &subscription{
		target: target,
		ch:     make(chan Event, buffer),
	}
	h.subs[id] = sub
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if s, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(s.ch)
		}
		h.mu.Unlock()
	}

	return sub.ch, cancel
}

// SubscriberCount reports active subscriptions, mostly for tests and
// health endpoints.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
