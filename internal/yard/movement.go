package yard

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

// MoveInput describes one cargo movement.
type MoveInput struct {
	CargoID       uuid.UUID
	DestinationID uuid.UUID
	// OriginID, when supplied, must match the cargo item's current location.
	// When omitted the current location is used.
	OriginID *uuid.UUID
	Type     models.MovementType
	Date     time.Time
	Notes    string
	Actor    string
}

// SealInput describes one seal verification.
type SealInput struct {
	CargoID    uuid.UUID
	SealNumber string
	Condition  models.SealCondition
	// Type is the verification context, e.g. "GATE_IN", "PRE_DISPATCH".
	Type  string
	Actor string
}

// MovementTracker orchestrates a cargo item's location change with
// all-or-nothing semantics: if the destination cannot be taken after the
// origin was freed, the origin is restored before the error is returned.
type MovementTracker struct {
	store     store.Store
	allocator *Allocator
	recorder  audit.Recorder
	publisher events.Publisher
	log       zerolog.Logger
}

func NewMovementTracker(st store.Store, allocator *Allocator, recorder audit.Recorder, publisher events.Publisher, log zerolog.Logger) *MovementTracker {
	return &MovementTracker{
		store:     st,
		allocator: allocator,
		recorder:  recorder,
		publisher: publisher,
		log:       log.With().Str("component", "yard.movements").Logger(),
	}
}

// Move relocates the cargo item to the destination. DISPATCH movements record
// the destination for traceability but leave it unoccupied: the cargo is
// leaving the yard, so destination exclusivity does not apply. Returns the
// cargo item's new status.
func (t *MovementTracker) Move(ctx context.Context, in MoveInput) (models.CargoStatus, error) {
	cargo, err := t.store.GetCargoItem(ctx, in.CargoID)
	if err != nil {
		return "", err
	}

	if in.OriginID != nil {
		if cargo.LocationID == nil || *cargo.LocationID != *in.OriginID {
			return "", models.ErrOriginMismatch
		}
	}
	origin := cargo.LocationID

	lockIDs := []uuid.UUID{in.DestinationID}
	if origin != nil {
		lockIDs = append(lockIDs, *origin)
	}
	unlock := t.allocator.locks.lockAll(lockIDs...)
	defer unlock()

	dest, err := t.store.GetYardLocation(ctx, in.DestinationID)
	if err != nil {
		return "", err
	}
	if in.Type != models.MovementDispatch {
		if !dest.Active {
			return "", models.ErrLocationInactive
		}
		if dest.Occupied {
			return "", models.ErrDestinationOccupied
		}
	}

	before := cargo

	// Free the origin first. A missing origin row is tolerated: the movement
	// is the authoritative record, the slot may have been retired meanwhile.
	var originSnapshot *models.YardLocation
	if origin != nil {
		loc, err := t.store.GetYardLocation(ctx, *origin)
		switch {
		case err == nil:
			snapshot := loc
			originSnapshot = &snapshot
			if err := t.allocator.releaseLocked(ctx, loc.ID, cargo.ID); err != nil {
				return "", err
			}
		case errors.Is(err, store.ErrNotFound):
			t.log.Warn().Str("cargoId", cargo.ID.String()).Str("originId", origin.String()).Msg("origin location missing, skipping release")
		default:
			return "", err
		}
	}

	restoreOrigin := func() {
		if originSnapshot == nil {
			return
		}
		if err := t.store.SaveYardLocation(ctx, *originSnapshot); err != nil {
			t.log.Error().Err(err).Str("originId", originSnapshot.ID.String()).Msg("rollback of origin failed")
		}
	}

	if in.Type != models.MovementDispatch {
		if err := t.allocator.allocateLocked(ctx, dest.ID, cargo.ID); err != nil {
			restoreOrigin()
			return "", err
		}
	}

	newStatus := models.CargoStored
	if in.Type == models.MovementDispatch {
		newStatus = models.CargoDispatched
	}
	destID := in.DestinationID
	cargo.Status = newStatus
	cargo.LocationID = &destID

	if err := t.store.SaveCargoItem(ctx, cargo); err != nil {
		if in.Type != models.MovementDispatch {
			if relErr := t.allocator.releaseLocked(ctx, dest.ID, cargo.ID); relErr != nil {
				t.log.Error().Err(relErr).Str("destinationId", dest.ID.String()).Msg("rollback of destination failed")
			}
		}
		restoreOrigin()
		return "", fmt.Errorf("save cargo item: %w", err)
	}

	metadata := map[string]interface{}{
		"movementType":  in.Type,
		"date":          in.Date,
		"notes":         in.Notes,
		"destinationId": in.DestinationID,
	}
	if origin != nil {
		metadata["originId"] = *origin
	}
	t.recorder.Record(ctx, audit.Event{
		Action:     "cargo.move",
		EntityType: "cargo_item",
		EntityID:   cargo.ID.String(),
		Actor:      in.Actor,
		Before:     before,
		After:      cargo,
		Metadata:   metadata,
	})

	if err := t.publisher.Publish(ctx, events.TopicCargoMoved, events.CargoMoved{
		Cargo:         cargo,
		MovementType:  in.Type,
		OriginID:      origin,
		DestinationID: in.DestinationID,
	}); err != nil {
		t.log.Warn().Err(err).Msg("publish cargo.moved failed")
	}

	return newStatus, nil
}

// VerifySeal records a seal inspection. The cargo item's seal number is
// mutated only when the seal was replaced; every verification is audited.
func (t *MovementTracker) VerifySeal(ctx context.Context, in SealInput) error {
	cargo, err := t.store.GetCargoItem(ctx, in.CargoID)
	if err != nil {
		return err
	}
	before := cargo

	if in.Condition == models.SealReplaced {
		cargo.SealNumber = in.SealNumber
		if err := t.store.SaveCargoItem(ctx, cargo); err != nil {
			return fmt.Errorf("save cargo item: %w", err)
		}
	}

	t.recorder.Record(ctx, audit.Event{
		Action:     "cargo.seal_verified",
		EntityType: "cargo_item",
		EntityID:   cargo.ID.String(),
		Actor:      in.Actor,
		Before:     before,
		After:      cargo,
		Metadata: map[string]interface{}{
			"sealNumber":       in.SealNumber,
			"condition":        in.Condition,
			"verificationType": in.Type,
		},
	})
	return nil
}
