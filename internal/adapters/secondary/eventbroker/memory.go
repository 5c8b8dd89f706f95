package eventbroker

import (
	"context"
	"sync"

	"github.com/jupiterclapton/cenackle/livefeed/internal/core/ports"
)

// MemoryNotifier diffuse dans le même process, de manière synchrone.
type MemoryNotifier struct {
	mu       sync.RWMutex
	handlers map[uint64]func(context.Context, ports.ChangeEvent)
	nextID   uint64
}

func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{handlers: make(map[uint64]func(context.Context, ports.ChangeEvent))}
}

var _ ports.ChangeNotifier = (*MemoryNotifier)(nil)

func (m *MemoryNotifier) PublishChange(ctx context.Context, evt ports.ChangeEvent) error {
	m.mu.RLock()
	handlers := make([]func(context.Context, ports.ChangeEvent), 0, len(m.handlers))
	for _, h := range m.handlers {
		handlers = append(handlers, h)
	}
	m.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, evt)
	}
	return nil
}

func (m *MemoryNotifier) Subscribe(ctx context.Context, onChange func(context.Context, ports.ChangeEvent)) (func(), error) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.handlers[id] = onChange
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.handlers, id)
			m.mu.Unlock()
		})
	}, nil
}
