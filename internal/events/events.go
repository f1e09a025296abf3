// package events defines the terminal event stream: topic constants, typed
// payloads, and the Publisher abstraction. Display boards and downstream
// systems subscribe to these to follow the antepuerto and the yard live.
package events

import (
	"context"

	"github.com/google/uuid"

	"github.com/harborops/terminal-core/internal/models"
)

// Event topic constants
const (
	TopicQueueEntered    = "terminal.queue.entered"
	TopicQueueAuthorized = "terminal.queue.authorized"
	TopicQueueRejected   = "terminal.queue.rejected"
	TopicCargoMoved      = "terminal.cargo.moved"
	TopicGateValidated   = "terminal.gate.validated"
)

// Event types

type QueueEntered struct {
	Entry models.QueueEntry `json:"entry"`
}

type QueueClosed struct {
	Entry       models.QueueEntry `json:"entry"`
	WaitMinutes float64           `json:"wait_minutes"`
}

type CargoMoved struct {
	Cargo         models.CargoItem    `json:"cargo"`
	MovementType  models.MovementType `json:"movement_type"`
	OriginID      *uuid.UUID          `json:"origin_id,omitempty"`
	DestinationID uuid.UUID           `json:"destination_id"`
}

type GateValidated struct {
	PassID   uuid.UUID         `json:"pass_id"`
	Action   models.GateAction `json:"action"`
	Valid    bool              `json:"valid"`
	Errors   []string          `json:"errors,omitempty"`
	Warnings []string          `json:"warnings,omitempty"`
}

// Publisher is the interface for emitting events. Engine components publish
// best-effort: a publish failure is logged by the caller and never fails the
// underlying operation.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
