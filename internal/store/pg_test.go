package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborops/terminal-core/internal/models"
)

func newPGMock(t *testing.T) (*PGStore, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("open sqlmock: %v", err)
	}
	return NewPGStore(db), mock, func() { db.Close() }
}

func TestPGGetYardLocation(t *testing.T) {
	st, mock, cleanup := newPGMock(t)
	defer cleanup()

	id := uuid.New()
	cargoID := uuid.New()
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "zone", "block", "row", "tier", "location_type", "capacity_teu",
		"occupied", "cargo_id", "active", "created_at", "updated_at",
	}).AddRow(id, "NORTE", "A", 3, 1, "CONTAINER", 2, true, cargoID, true, now, now)

	mock.ExpectQuery("SELECT id, zone, block, row, tier").
		WithArgs(id).
		WillReturnRows(rows)

	loc, err := st.GetYardLocation(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "NORTE-A-03-1", loc.Code())
	assert.True(t, loc.Occupied)
	require.NotNil(t, loc.CargoID)
	assert.Equal(t, cargoID, *loc.CargoID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGGetYardLocationNotFound(t *testing.T) {
	st, mock, cleanup := newPGMock(t)
	defer cleanup()

	id := uuid.New()
	mock.ExpectQuery("SELECT id, zone, block, row, tier").
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	_, err := st.GetYardLocation(context.Background(), id)
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGSaveYardLocationNotFound(t *testing.T) {
	st, mock, cleanup := newPGMock(t)
	defer cleanup()

	loc := models.YardLocation{ID: uuid.New(), Active: true}
	mock.ExpectExec("UPDATE yard_locations").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := st.SaveYardLocation(context.Background(), loc)
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGCreateQueueEntryUniqueViolation(t *testing.T) {
	st, mock, cleanup := newPGMock(t)
	defer cleanup()

	// The partial unique index on WAITING truck ids surfaces as 23505.
	mock.ExpectExec("INSERT INTO queue_entries").
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := st.CreateQueueEntry(context.Background(), models.QueueEntry{
		ID:        uuid.New(),
		TruckID:   "ABC-123",
		Zone:      models.ZonePregate,
		EntryTime: time.Now().UTC(),
		Status:    models.QueueWaiting,
	})
	require.ErrorIs(t, err, ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGCreateDigitalPass(t *testing.T) {
	st, mock, cleanup := newPGMock(t)
	defer cleanup()

	now := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO digital_passes").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	pass, err := st.CreateDigitalPass(context.Background(), models.DigitalPass{
		PassCode:       "TV-ABCDEF2345",
		PassType:       models.PassVehicular,
		HolderName:     "Maria Lopez",
		HolderDocument: "87654321",
		PlateNumber:    "ABC-123",
		ValidFrom:      now,
		ValidUntil:     now.Add(24 * time.Hour),
		Status:         models.PassActive,
	})
	require.NoError(t, err)
	assert.Equal(t, now, pass.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGCreateDigitalPassDuplicateCode(t *testing.T) {
	st, mock, cleanup := newPGMock(t)
	defer cleanup()

	mock.ExpectQuery("INSERT INTO digital_passes").
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := st.CreateDigitalPass(context.Background(), models.DigitalPass{PassCode: "TP-DUP"})
	require.ErrorIs(t, err, ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGFindPendingPermit(t *testing.T) {
	st, mock, cleanup := newPGMock(t)
	defer cleanup()

	permitID := uuid.New()
	passID := uuid.New()
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "permit_type", "pass_id", "cargo_id", "status", "used_at", "created_at"}).
		AddRow(permitID, "EXIT", passID, nil, "PENDING", nil, now)

	mock.ExpectQuery("SELECT id, permit_type, pass_id, cargo_id").
		WithArgs(passID, models.PermitExit).
		WillReturnRows(rows)

	permit, err := st.FindPendingPermit(context.Background(), passID, models.PermitExit)
	require.NoError(t, err)
	assert.Equal(t, permitID, permit.ID)
	assert.Nil(t, permit.CargoID)
	assert.Nil(t, permit.UsedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGSaveQueueEntry(t *testing.T) {
	st, mock, cleanup := newPGMock(t)
	defer cleanup()

	exit := time.Now().UTC()
	entry := models.QueueEntry{
		ID:       uuid.New(),
		ExitTime: &exit,
		Status:   models.QueueAuthorized,
	}
	mock.ExpectExec("UPDATE queue_entries").
		WithArgs(entry.ID, entry.ExitTime, entry.Status).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, st.SaveQueueEntry(context.Background(), entry))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGSeedYardLocationsCountsInserts(t *testing.T) {
	st, mock, cleanup := newPGMock(t)
	defer cleanup()

	// First row inserts, second hits ON CONFLICT DO NOTHING.
	mock.ExpectExec("INSERT INTO yard_locations").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO yard_locations").WillReturnResult(sqlmock.NewResult(0, 0))

	created, err := st.SeedYardLocations(context.Background(), []models.YardLocation{
		{Zone: "NORTE", Block: "A", Row: 1, Tier: 1, LocationType: "CONTAINER", CapacityTEU: 1, Active: true},
		{Zone: "NORTE", Block: "A", Row: 1, Tier: 2, LocationType: "CONTAINER", CapacityTEU: 1, Active: true},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	require.NoError(t, mock.ExpectationsWereMet())
}
