// package audit contains the audit record model and the fire-and-forget
// recorder used by every mutating engine operation.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is a structured record of one state change: what happened, to which
// entity, the before/after snapshots, and who did it.
type Event struct {
	ID         string                 `json:"id,omitempty"`
	Action     string                 `json:"action"`
	EntityType string                 `json:"entityType"`
	EntityID   string                 `json:"entityId"`
	Actor      string                 `json:"actor"`
	Before     interface{}            `json:"before,omitempty"`
	After      interface{}            `json:"after,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	TS         time.Time              `json:"ts"`
}

// Recorder receives audit events from the engine. Implementations must never
// block the caller and must never surface delivery failures back into the
// state change being recorded.
type Recorder interface {
	Record(ctx context.Context, ev Event)
}

// Sink is a delivery target for audit events (file, Postgres, Kafka, S3).
type Sink interface {
	Append(ctx context.Context, ev *Event) error
}

// NopRecorder discards all events. Useful for tests of components whose audit
// output is not under test.
type NopRecorder struct{}

func (NopRecorder) Record(ctx context.Context, ev Event) {}

// NewUUID returns a freshly-generated UUID string.
func NewUUID() string {
	return uuid.New().String()
}
