package events

import "context"

// Noop is a Publisher that discards all events. Used when no broker is
// configured and in tests.
type Noop struct{}

func (Noop) Publish(ctx context.Context, topic string, event any) error { return nil }

func (Noop) Close() error { return nil }
