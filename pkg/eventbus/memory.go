package eventbus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rbxmart/rbxmart/pkg/domain"
)

// MemoryBus dispatches events synchronously to in-process subscribers.
// Publishing from a request handler is fire-and-forget from the caller's
// point of view: handlers log their own failures and never block delivery
// to the remaining subscribers.
type MemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]HandlerFunc
	logger   *slog.Logger
}

// NewMemoryBus creates an empty in-process bus.
func NewMemoryBus(logger *slog.Logger) *MemoryBus {
	return &MemoryBus{
		handlers: make(map[string][]HandlerFunc),
		logger:   logger,
	}
}

// Publish delivers e to every subscriber of its type.
func (b *MemoryBus) Publish(ctx context.Context, e domain.Event) error {
	b.mu.RLock()
	handlers := b.handlers[e.Type()]
	b.mu.RUnlock()
	b.logger.Debug("event published", "event_type", e.Type(), "subscribers", len(handlers))
	for _, h := range handlers {
		h(ctx, e)
	}
	return nil
}

// Subscribe registers h for events of the given type.
func (b *MemoryBus) Subscribe(eventType string, h HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], h)
}
