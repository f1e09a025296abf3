// package queue manages the antepuerto waiting line: trucks staged in a
// pre-gate zone until they are authorized or rejected for gate entry.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/harborops/terminal-core/internal/audit"
	"github.com/harborops/terminal-core/internal/events"
	"github.com/harborops/terminal-core/internal/models"
	"github.com/harborops/terminal-core/internal/store"
)

// Service owns the QueueEntry lifecycle: WAITING on arrival, then exactly one
// terminal transition to AUTHORIZED or REJECTED. Zones are independent queues
// sharing the state machine; the one-WAITING-entry-per-truck constraint spans
// all zones.
type Service struct {
	store     store.Store
	recorder  audit.Recorder
	publisher events.Publisher
	log       zerolog.Logger

	// Now is the clock used for entry/exit timestamps; overridable in tests.
	Now func() time.Time
}

func New(st store.Store, recorder audit.Recorder, publisher events.Publisher, log zerolog.Logger) *Service {
	return &Service{
		store:     st,
		recorder:  recorder,
		publisher: publisher,
		log:       log.With().Str("component", "queue").Logger(),
		Now:       time.Now,
	}
}

// EnqueueInput registers a truck arriving at a waiting zone.
type EnqueueInput struct {
	TruckID       string
	AppointmentID *uuid.UUID
	Zone          models.QueueZone
	Actor         string
}

// Enqueue creates a WAITING entry for the truck. A truck cannot wait in two
// zones at once: a second enqueue while one entry is WAITING anywhere returns
// ErrTruckAlreadyQueued.
func (s *Service) Enqueue(ctx context.Context, in EnqueueInput) (models.QueueEntry, error) {
	if in.TruckID == "" {
		return models.QueueEntry{}, models.ErrInvalidQueueData
	}
	if in.Zone != models.ZonePregate && in.Zone != models.ZoneZOE {
		return models.QueueEntry{}, models.ErrInvalidQueueData
	}

	entry, err := s.store.CreateQueueEntry(ctx, models.QueueEntry{
		ID:            uuid.New(),
		TruckID:       in.TruckID,
		AppointmentID: in.AppointmentID,
		Zone:          in.Zone,
		EntryTime:     s.Now().UTC(),
		Status:        models.QueueWaiting,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return models.QueueEntry{}, models.ErrTruckAlreadyQueued
		}
		return models.QueueEntry{}, fmt.Errorf("create queue entry: %w", err)
	}

	s.recorder.Record(ctx, audit.Event{
		Action:     "queue.enqueue",
		EntityType: "queue_entry",
		EntityID:   entry.ID.String(),
		Actor:      in.Actor,
		After:      entry,
	})
	s.publish(ctx, events.TopicQueueEntered, events.QueueEntered{Entry: entry})
	return entry, nil
}

// Authorize closes the entry as AUTHORIZED, stamping the exit time.
func (s *Service) Authorize(ctx context.Context, entryID uuid.UUID, actor string) (models.QueueEntry, error) {
	return s.close(ctx, entryID, actor, models.QueueAuthorized, events.TopicQueueAuthorized)
}

// Reject closes the entry as REJECTED, stamping the exit time.
func (s *Service) Reject(ctx context.Context, entryID uuid.UUID, actor string) (models.QueueEntry, error) {
	return s.close(ctx, entryID, actor, models.QueueRejected, events.TopicQueueRejected)
}

func (s *Service) close(ctx context.Context, entryID uuid.UUID, actor string, status models.QueueStatus, topic string) (models.QueueEntry, error) {
	entry, err := s.store.GetQueueEntry(ctx, entryID)
	if err != nil {
		return models.QueueEntry{}, err
	}
	// Terminal states stay terminal: the exit time is stamped once and never
	// touched again.
	if entry.Status != models.QueueWaiting {
		return models.QueueEntry{}, models.ErrEntryNotWaiting
	}

	before := entry
	now := s.Now().UTC()
	entry.ExitTime = &now
	entry.Status = status
	if err := s.store.SaveQueueEntry(ctx, entry); err != nil {
		return models.QueueEntry{}, fmt.Errorf("save queue entry: %w", err)
	}

	s.recorder.Record(ctx, audit.Event{
		Action:     "queue." + string(status),
		EntityType: "queue_entry",
		EntityID:   entry.ID.String(),
		Actor:      actor,
		Before:     before,
		After:      entry,
	})
	s.publish(ctx, topic, events.QueueClosed{Entry: entry, WaitMinutes: WaitingMinutes(entry, now)})
	return entry, nil
}

func (s *Service) publish(ctx context.Context, topic string, event any) {
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		s.log.Warn().Err(err).Str("topic", topic).Msg("publish failed")
	}
}

// WaitingMinutes returns how long the entry has waited, in minutes. Closed
// entries use their exit time; live entries wait until now.
func WaitingMinutes(entry models.QueueEntry, now time.Time) float64 {
	end := now
	if entry.ExitTime != nil {
		end = *entry.ExitTime
	}
	return end.Sub(entry.EntryTime).Minutes()
}

// Statistics summarizes the WAITING entries of one zone.
type Statistics struct {
	Zone           models.QueueZone `json:"zone"`
	Count          int              `json:"count"`
	AvgWaitMinutes float64          `json:"avgWaitMinutes"`
	MaxWaitMinutes float64          `json:"maxWaitMinutes"`
}

// Statistics computes a read-only snapshot on demand; nothing is maintained
// incrementally.
func (s *Service) Statistics(ctx context.Context, zone models.QueueZone) (Statistics, error) {
	entries, err := s.store.ListQueueEntries(ctx, zone, models.QueueWaiting)
	if err != nil {
		return Statistics{}, fmt.Errorf("list queue entries: %w", err)
	}

	stats := Statistics{Zone: zone, Count: len(entries)}
	if len(entries) == 0 {
		return stats, nil
	}

	now := s.Now().UTC()
	var total float64
	for _, entry := range entries {
		wait := WaitingMinutes(entry, now)
		total += wait
		if wait > stats.MaxWaitMinutes {
			stats.MaxWaitMinutes = wait
		}
	}
	stats.AvgWaitMinutes = total / float64(len(entries))
	return stats, nil
}
