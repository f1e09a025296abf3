// package yard owns the occupancy state of yard locations and the cargo
// movements between them. The Allocator is the only component allowed to flip
// a location between free and occupied.
package yard

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/harborops/terminal-core/internal/models"
	"github.com/harborops/terminal-core/internal/store"
)

// Allocator exclusively allocates yard locations to cargo items.
//
// By default Release is permissive: releasing a free location, or one occupied
// by a different cargo item, is a no-op success. This matches the historical
// gate behavior callers depend on. Strict mode rejects such releases with
// ErrReleaseUnrelated instead.
type Allocator struct {
	store store.Store
	locks *lockTable

	// Strict disables the permissive release behavior.
	Strict bool
}

func NewAllocator(st store.Store) *Allocator {
	return &Allocator{
		store: st,
		locks: newLockTable(),
	}
}

// Allocate marks the location as occupied by the cargo item. Fails with
// ErrLocationOccupied or ErrLocationInactive; contention is fail-fast, the
// second caller gets the conflict rather than waiting for the slot.
func (a *Allocator) Allocate(ctx context.Context, locationID, cargoID uuid.UUID) error {
	unlock := a.locks.lock(locationID)
	defer unlock()
	return a.allocateLocked(ctx, locationID, cargoID)
}

// Release frees the location. See the type comment for the permissive
// semantics; pass the cargo id so strict mode can verify the association.
func (a *Allocator) Release(ctx context.Context, locationID, cargoID uuid.UUID) error {
	unlock := a.locks.lock(locationID)
	defer unlock()
	return a.releaseLocked(ctx, locationID, cargoID)
}

// allocateLocked requires the caller to hold the location's mutex.
func (a *Allocator) allocateLocked(ctx context.Context, locationID, cargoID uuid.UUID) error {
	loc, err := a.store.GetYardLocation(ctx, locationID)
	if err != nil {
		return err
	}
	if !loc.Active {
		return models.ErrLocationInactive
	}
	if loc.Occupied {
		return models.ErrLocationOccupied
	}
	loc.Occupied = true
	loc.CargoID = &cargoID
	if err := a.store.SaveYardLocation(ctx, loc); err != nil {
		return fmt.Errorf("save location %s: %w", loc.Code(), err)
	}
	return nil
}

// releaseLocked requires the caller to hold the location's mutex.
func (a *Allocator) releaseLocked(ctx context.Context, locationID, cargoID uuid.UUID) error {
	loc, err := a.store.GetYardLocation(ctx, locationID)
	if err != nil {
		return err
	}
	if a.Strict {
		if !loc.Occupied || loc.CargoID == nil || *loc.CargoID != cargoID {
			return models.ErrReleaseUnrelated
		}
	}
	loc.Occupied = false
	loc.CargoID = nil
	if err := a.store.SaveYardLocation(ctx, loc); err != nil {
		return fmt.Errorf("save location %s: %w", loc.Code(), err)
	}
	return nil
}
