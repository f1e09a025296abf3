package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/harborops/terminal-core/internal/models"
)

var (
	// ErrNotFound is returned when a referenced entity is absent.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a create violates a uniqueness constraint,
	// e.g. a second WAITING queue entry for the same truck.
	ErrConflict = errors.New("conflict")
)

// Store is the persistence abstraction the engine components are built
// against. Implementations must make CreateQueueEntry atomic with respect to
// the one-WAITING-entry-per-truck constraint.
type Store interface {
	// Yard locations
	CreateYardLocation(ctx context.Context, loc models.YardLocation) (models.YardLocation, error)
	GetYardLocation(ctx context.Context, id uuid.UUID) (models.YardLocation, error)
	SaveYardLocation(ctx context.Context, loc models.YardLocation) error
	ListYardLocations(ctx context.Context, zone string) ([]models.YardLocation, error)
	// SeedYardLocations inserts the locations that do not exist yet, keyed by
	// (zone, block, row, tier). Returns the number of created rows.
	SeedYardLocations(ctx context.Context, locs []models.YardLocation) (int, error)

	// Cargo items
	CreateCargoItem(ctx context.Context, item models.CargoItem) (models.CargoItem, error)
	GetCargoItem(ctx context.Context, id uuid.UUID) (models.CargoItem, error)
	SaveCargoItem(ctx context.Context, item models.CargoItem) error

	// Digital passes
	CreateDigitalPass(ctx context.Context, pass models.DigitalPass) (models.DigitalPass, error)
	GetDigitalPass(ctx context.Context, id uuid.UUID) (models.DigitalPass, error)
	GetDigitalPassByCode(ctx context.Context, code string) (models.DigitalPass, error)
	SaveDigitalPass(ctx context.Context, pass models.DigitalPass) error

	// Access permits
	CreateAccessPermit(ctx context.Context, permit models.AccessPermit) (models.AccessPermit, error)
	GetAccessPermit(ctx context.Context, id uuid.UUID) (models.AccessPermit, error)
	SaveAccessPermit(ctx context.Context, permit models.AccessPermit) error
	// FindPendingPermit returns the oldest PENDING permit of the given type
	// held by the pass, or ErrNotFound.
	FindPendingPermit(ctx context.Context, passID uuid.UUID, permitType models.PermitType) (models.AccessPermit, error)

	// Queue entries
	CreateQueueEntry(ctx context.Context, entry models.QueueEntry) (models.QueueEntry, error)
	GetQueueEntry(ctx context.Context, id uuid.UUID) (models.QueueEntry, error)
	SaveQueueEntry(ctx context.Context, entry models.QueueEntry) error
	FindWaitingEntryByTruck(ctx context.Context, truckID string) (models.QueueEntry, error)
	ListQueueEntries(ctx context.Context, zone models.QueueZone, status models.QueueStatus) ([]models.QueueEntry, error)

	// Appointments
	CreateAppointment(ctx context.Context, appt models.Appointment) (models.Appointment, error)
	// FindUpcomingAppointment returns the next appointment for the pass with
	// ScheduledAt in [from, until], or ErrNotFound.
	FindUpcomingAppointment(ctx context.Context, passID uuid.UUID, from, until time.Time) (models.Appointment, error)

	// Ping validates the store is reachable/healthy.
	Ping(ctx context.Context) error
}
