// Package eventbus provides the in-process event bus used to decouple the
// payment webhook from fulfillment and notification side effects.
package eventbus

import (
	"context"

	"github.com/rbxmart/rbxmart/pkg/domain"
)

// HandlerFunc consumes a published event.
type HandlerFunc func(ctx context.Context, e domain.Event)

// Bus defines the contract for publishing and subscribing to domain events.
type Bus interface {
	Publish(ctx context.Context, e domain.Event) error
	Subscribe(eventType string, h HandlerFunc)
}
