package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborops/terminal-core/internal/models"
)

func TestMemoryCreateQueueEntryConflict(t *testing.T) {
	st := NewMemoryStore()

	_, err := st.CreateQueueEntry(context.Background(), models.QueueEntry{
		TruckID:   "ABC-123",
		Zone:      models.ZonePregate,
		EntryTime: time.Now().UTC(),
		Status:    models.QueueWaiting,
	})
	require.NoError(t, err)

	// One WAITING entry per truck, regardless of zone.
	_, err = st.CreateQueueEntry(context.Background(), models.QueueEntry{
		TruckID:   "ABC-123",
		Zone:      models.ZoneZOE,
		EntryTime: time.Now().UTC(),
		Status:    models.QueueWaiting,
	})
	require.ErrorIs(t, err, ErrConflict)

	// A closed entry does not block re-entry.
	entry, err := st.FindWaitingEntryByTruck(context.Background(), "ABC-123")
	require.NoError(t, err)
	exit := time.Now().UTC()
	entry.ExitTime = &exit
	entry.Status = models.QueueAuthorized
	require.NoError(t, st.SaveQueueEntry(context.Background(), entry))

	_, err = st.CreateQueueEntry(context.Background(), models.QueueEntry{
		TruckID:   "ABC-123",
		Zone:      models.ZoneZOE,
		EntryTime: time.Now().UTC(),
		Status:    models.QueueWaiting,
	})
	require.NoError(t, err)
}

func TestMemorySeedYardLocationsIdempotent(t *testing.T) {
	st := NewMemoryStore()

	locs := []models.YardLocation{
		{Zone: "NORTE", Block: "A", Row: 1, Tier: 1, LocationType: "CONTAINER", CapacityTEU: 1, Active: true},
		{Zone: "NORTE", Block: "A", Row: 1, Tier: 2, LocationType: "CONTAINER", CapacityTEU: 1, Active: true},
	}

	created, err := st.SeedYardLocations(context.Background(), locs)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	// Reseeding the same layout is a no-op.
	created, err = st.SeedYardLocations(context.Background(), locs)
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	all, err := st.ListYardLocations(context.Background(), "NORTE")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMemoryPassCodeIndex(t *testing.T) {
	st := NewMemoryStore()

	pass, err := st.CreateDigitalPass(context.Background(), models.DigitalPass{
		PassCode: "TP-AAAA",
		PassType: models.PassPersonal,
		Status:   models.PassActive,
	})
	require.NoError(t, err)

	got, err := st.GetDigitalPassByCode(context.Background(), "TP-AAAA")
	require.NoError(t, err)
	assert.Equal(t, pass.ID, got.ID)

	_, err = st.CreateDigitalPass(context.Background(), models.DigitalPass{PassCode: "TP-AAAA"})
	require.ErrorIs(t, err, ErrConflict)

	_, err = st.GetDigitalPassByCode(context.Background(), "TP-MISSING")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryFindPendingPermitOldestFirst(t *testing.T) {
	st := NewMemoryStore()
	passID := uuid.New()

	older, err := st.CreateAccessPermit(context.Background(), models.AccessPermit{
		PermitType: models.PermitExit,
		PassID:     passID,
		Status:     models.PermitPending,
	})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = st.CreateAccessPermit(context.Background(), models.AccessPermit{
		PermitType: models.PermitExit,
		PassID:     passID,
		Status:     models.PermitPending,
	})
	require.NoError(t, err)

	found, err := st.FindPendingPermit(context.Background(), passID, models.PermitExit)
	require.NoError(t, err)
	assert.Equal(t, older.ID, found.ID)

	// Type and status both filter.
	_, err = st.FindPendingPermit(context.Background(), passID, models.PermitEntry)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryFindUpcomingAppointmentWindow(t *testing.T) {
	st := NewMemoryStore()
	passID := uuid.New()
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	_, err := st.CreateAppointment(context.Background(), models.Appointment{
		PassID:      passID,
		TruckID:     "ABC-123",
		ScheduledAt: now.Add(3 * time.Hour), // outside the window
	})
	require.NoError(t, err)

	_, err = st.FindUpcomingAppointment(context.Background(), passID, now, now.Add(2*time.Hour))
	require.ErrorIs(t, err, ErrNotFound)

	inWindow, err := st.CreateAppointment(context.Background(), models.Appointment{
		PassID:      passID,
		TruckID:     "ABC-123",
		ScheduledAt: now.Add(time.Hour),
	})
	require.NoError(t, err)

	found, err := st.FindUpcomingAppointment(context.Background(), passID, now, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, inWindow.ID, found.ID)
}
