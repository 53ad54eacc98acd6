// Package hub fans Coordinator events out to registered subscribers.
package hub

import "sync"

type Kind string

const (
	KindAll       Kind = "*"
	KindSession   Kind = "session"
	KindDirectory Kind = "directory"
	KindSelection Kind = "selection"
	KindMessages  Kind = "messages"
	KindNotice    Kind = "notice"
)

type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

type Event struct {
	Kind    Kind
	Level   Level
	Message string
	// Payload carries a snapshot of the state that changed; its type depends on Kind.
	Payload any
}

type Sink interface {
	Deliver(ev Event) error
	Close() error
}

// SinkFunc adapts a function to Sink. Close is a no-op.
type SinkFunc func(ev Event) error

func (f SinkFunc) Deliver(ev Event) error { return f(ev) }
func (f SinkFunc) Close() error           { return nil }

type Subscription struct {
	Kind Kind
	Sink Sink
}

type Hub struct {
	mu   sync.RWMutex
	subs map[Kind]map[*Subscription]struct{}
}

func New() *Hub {
	return &Hub{subs: make(map[Kind]map[*Subscription]struct{})}
}

func (h *Hub) Register(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs[sub.Kind] == nil {
		h.subs[sub.Kind] = make(map[*Subscription]struct{})
	}
	h.subs[sub.Kind][sub] = struct{}{}
}

// Subscribe registers sink for kind and returns a function that unregisters it.
func (h *Hub) Subscribe(kind Kind, sink Sink) func() {
	sub := &Subscription{Kind: kind, Sink: sink}
	h.Register(sub)
	return func() { h.Unregister(sub) }
}

func (h *Hub) Unregister(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.subs[sub.Kind]
	if set == nil {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.Kind)
	}
}

// Publish delivers ev to subscribers of ev.Kind and of KindAll. A subscriber
// whose Deliver fails is closed and removed.
func (h *Hub) Publish(ev Event) {
	if h == nil {
		return
	}

	h.mu.RLock()
	subs := make([]*Subscription, 0, len(h.subs[ev.Kind])+len(h.subs[KindAll]))
	for s := range h.subs[ev.Kind] {
		subs = append(subs, s)
	}
	if ev.Kind != KindAll {
		for s := range h.subs[KindAll] {
			subs = append(subs, s)
		}
	}
	h.mu.RUnlock()

	var failed []*Subscription
	for _, s := range subs {
		if err := s.Sink.Deliver(ev); err != nil {
			failed = append(failed, s)
		}
	}
	for _, s := range failed {
		_ = s.Sink.Close()
		h.Unregister(s)
	}
}
