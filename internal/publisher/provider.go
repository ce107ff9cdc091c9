// Package publisher defines the commit-event publishing abstraction.
package publisher

import "context"

// Provider pushes harvest events to a message bus.
type Provider interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}
