// Package eventbus provides the audit event bus abstraction.
package eventbus

import (
	"context"

	"github.com/gatehouse-id/gatehouse/pkg/events"
)

// EventHandler processes a decoded event.
type EventHandler func(ctx context.Context, event any) error

// EventBus publishes and consumes audit events. The engine and the flow
// manager only publish; audit consumers subscribe out of process.
type EventBus interface {
	Publish(ctx context.Context, key string, event events.Event) error
	Subscribe(ctx context.Context) error
	Handle(eventType events.EventType, handler EventHandler) error
	GenerateID() string
	Close() error
}
