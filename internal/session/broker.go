package session

import (
	"context"
	"sync"

	"github.com/MrSnakeDoc/marktrabit/internal/domain"
)

// MemoryBroker delivers events to subscribers in this process only.
type MemoryBroker struct {
	mu   sync.RWMutex
	next uint64
	subs map[string]map[uint64]Handler // sid -> subscription id -> handler
}

// NewMemoryBroker creates an empty broker.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		subs: make(map[string]map[uint64]Handler),
	}
}

// Publish calls every handler registered for sid, in the caller's goroutine.
func (b *MemoryBroker) Publish(_ context.Context, sid string, ev domain.SessionEvent) error {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[sid]))
	for _, h := range b.subs[sid] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
	return nil
}

// Subscribe registers h for sid.
func (b *MemoryBroker) Subscribe(_ context.Context, sid string, h Handler) (func(), error) {
	b.mu.Lock()
	b.next++
	id := b.next
	if b.subs[sid] == nil {
		b.subs[sid] = make(map[uint64]Handler)
	}
	b.subs[sid][id] = h
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		delete(b.subs[sid], id)
		if len(b.subs[sid]) == 0 {
			delete(b.subs, sid)
		}
	}, nil
}
