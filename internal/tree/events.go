package tree

import (
	"sync"

	"github.com/arborsync/arbor/internal/domain"
)

// hub is the typed publish/subscribe fan-out for structural change events.
// Subscribing returns a disposer; publishing never blocks on subscriber
// bookkeeping.
type hub struct {
	mu   sync.Mutex
	subs map[domain.EventKind]map[int]func(domain.TreeEvent)
	next int
}

func newHub() *hub {
	return &hub{subs: make(map[domain.EventKind]map[int]func(domain.TreeEvent))}
}

func (h *hub) subscribe(kind domain.EventKind, fn func(domain.TreeEvent)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs[kind] == nil {
		h.subs[kind] = make(map[int]func(domain.TreeEvent))
	}
	key := h.next
	h.next++
	h.subs[kind][key] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs[kind], key)
	}
}

func (h *hub) publish(ev domain.TreeEvent) {
	h.mu.Lock()
	fns := make([]func(domain.TreeEvent), 0, len(h.subs[ev.Kind]))
	for _, fn := range h.subs[ev.Kind] {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// OnCreated subscribes to created events inside the managed subtree.
func (s *Service) OnCreated(fn func(domain.TreeEvent)) func() {
	return s.hub.subscribe(domain.EventCreated, fn)
}

// OnRemoved subscribes to removed events inside the managed subtree.
func (s *Service) OnRemoved(fn func(domain.TreeEvent)) func() {
	return s.hub.subscribe(domain.EventRemoved, fn)
}

// OnChanged subscribes to changed events inside the managed subtree.
func (s *Service) OnChanged(fn func(domain.TreeEvent)) func() {
	return s.hub.subscribe(domain.EventChanged, fn)
}

// OnMoved subscribes to moved events touching the managed subtree.
func (s *Service) OnMoved(fn func(domain.TreeEvent)) func() {
	return s.hub.subscribe(domain.EventMoved, fn)
}
