package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/harborops/terminal-core/internal/models"
)

// PGStore persists engine state in Postgres via database/sql.
//
// Expected tables: yard_locations, cargo_items, digital_passes, access_permits,
// queue_entries, appointments. The one-WAITING-entry-per-truck constraint is a
// partial unique index:
//
//	CREATE UNIQUE INDEX queue_entries_waiting_truck
//	ON queue_entries (truck_id) WHERE status = 'WAITING';
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (s *PGStore) CreateYardLocation(ctx context.Context, loc models.YardLocation) (models.YardLocation, error) {
	if loc.ID == uuid.Nil {
		loc.ID = uuid.New()
	}
	query := `
		INSERT INTO yard_locations (id, zone, block, row, tier, location_type, capacity_teu, occupied, cargo_id, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at, updated_at
	`
	if err := s.db.QueryRowContext(ctx, query,
		loc.ID, loc.Zone, loc.Block, loc.Row, loc.Tier, loc.LocationType,
		loc.CapacityTEU, loc.Occupied, loc.CargoID, loc.Active,
	).Scan(&loc.CreatedAt, &loc.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return models.YardLocation{}, ErrConflict
		}
		return models.YardLocation{}, fmt.Errorf("insert yard location: %w", err)
	}
	return loc, nil
}

func (s *PGStore) GetYardLocation(ctx context.Context, id uuid.UUID) (models.YardLocation, error) {
	const query = `
		SELECT id, zone, block, row, tier, location_type, capacity_teu, occupied, cargo_id, active, created_at, updated_at
		FROM yard_locations
		WHERE id=$1
	`
	var loc models.YardLocation
	var cargoID uuid.NullUUID
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&loc.ID, &loc.Zone, &loc.Block, &loc.Row, &loc.Tier, &loc.LocationType,
		&loc.CapacityTEU, &loc.Occupied, &cargoID, &loc.Active, &loc.CreatedAt, &loc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.YardLocation{}, ErrNotFound
		}
		return models.YardLocation{}, fmt.Errorf("get yard location: %w", err)
	}
	if cargoID.Valid {
		loc.CargoID = &cargoID.UUID
	}
	return loc, nil
}

func (s *PGStore) SaveYardLocation(ctx context.Context, loc models.YardLocation) error {
	query := `
		UPDATE yard_locations
		SET occupied=$2, cargo_id=$3, active=$4, updated_at=NOW()
		WHERE id=$1
	`
	res, err := s.db.ExecContext(ctx, query, loc.ID, loc.Occupied, loc.CargoID, loc.Active)
	if err != nil {
		return fmt.Errorf("save yard location: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) ListYardLocations(ctx context.Context, zone string) ([]models.YardLocation, error) {
	query := `
		SELECT id, zone, block, row, tier, location_type, capacity_teu, occupied, cargo_id, active, created_at, updated_at
		FROM yard_locations
		WHERE ($1 = '' OR zone = $1)
		ORDER BY zone, block, row, tier
	`
	rows, err := s.db.QueryContext(ctx, query, zone)
	if err != nil {
		return nil, fmt.Errorf("list yard locations: %w", err)
	}
	defer rows.Close()

	var out []models.YardLocation
	for rows.Next() {
		var loc models.YardLocation
		var cargoID uuid.NullUUID
		if err := rows.Scan(
			&loc.ID, &loc.Zone, &loc.Block, &loc.Row, &loc.Tier, &loc.LocationType,
			&loc.CapacityTEU, &loc.Occupied, &cargoID, &loc.Active, &loc.CreatedAt, &loc.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan yard location: %w", err)
		}
		if cargoID.Valid {
			loc.CargoID = &cargoID.UUID
		}
		out = append(out, loc)
	}
	return out, rows.Err()
}

func (s *PGStore) SeedYardLocations(ctx context.Context, locs []models.YardLocation) (int, error) {
	query := `
		INSERT INTO yard_locations (id, zone, block, row, tier, location_type, capacity_teu, occupied, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,false,$8)
		ON CONFLICT (zone, block, row, tier) DO NOTHING
	`
	created := 0
	for _, loc := range locs {
		id := loc.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		res, err := s.db.ExecContext(ctx, query,
			id, loc.Zone, loc.Block, loc.Row, loc.Tier, loc.LocationType, loc.CapacityTEU, loc.Active)
		if err != nil {
			return created, fmt.Errorf("seed yard location %s: %w", loc.Code(), err)
		}
		if affected, _ := res.RowsAffected(); affected > 0 {
			created++
		}
	}
	return created, nil
}

func (s *PGStore) CreateCargoItem(ctx context.Context, item models.CargoItem) (models.CargoItem, error) {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	query := `
		INSERT INTO cargo_items (id, manifest_ref, bill_of_lading, seal_number, status, location_id)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at
	`
	if err := s.db.QueryRowContext(ctx, query,
		item.ID, item.ManifestRef, item.BillOfLading, item.SealNumber, item.Status, item.LocationID,
	).Scan(&item.CreatedAt, &item.UpdatedAt); err != nil {
		return models.CargoItem{}, fmt.Errorf("insert cargo item: %w", err)
	}
	return item, nil
}

func (s *PGStore) GetCargoItem(ctx context.Context, id uuid.UUID) (models.CargoItem, error) {
	const query = `
		SELECT id, manifest_ref, bill_of_lading, seal_number, status, location_id, created_at, updated_at
		FROM cargo_items
		WHERE id=$1
	`
	var item models.CargoItem
	var locationID uuid.NullUUID
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID, &item.ManifestRef, &item.BillOfLading, &item.SealNumber,
		&item.Status, &locationID, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.CargoItem{}, ErrNotFound
		}
		return models.CargoItem{}, fmt.Errorf("get cargo item: %w", err)
	}
	if locationID.Valid {
		item.LocationID = &locationID.UUID
	}
	return item, nil
}

func (s *PGStore) SaveCargoItem(ctx context.Context, item models.CargoItem) error {
	query := `
		UPDATE cargo_items
		SET bill_of_lading=$2, seal_number=$3, status=$4, location_id=$5, updated_at=NOW()
		WHERE id=$1
	`
	res, err := s.db.ExecContext(ctx, query, item.ID, item.BillOfLading, item.SealNumber, item.Status, item.LocationID)
	if err != nil {
		return fmt.Errorf("save cargo item: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) CreateDigitalPass(ctx context.Context, pass models.DigitalPass) (models.DigitalPass, error) {
	if pass.ID == uuid.Nil {
		pass.ID = uuid.New()
	}
	query := `
		INSERT INTO digital_passes (id, pass_code, pass_type, holder_name, holder_document, plate_number, valid_from, valid_until, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at
	`
	if err := s.db.QueryRowContext(ctx, query,
		pass.ID, pass.PassCode, pass.PassType, pass.HolderName, pass.HolderDocument,
		pass.PlateNumber, pass.ValidFrom, pass.ValidUntil, pass.Status,
	).Scan(&pass.CreatedAt, &pass.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return models.DigitalPass{}, ErrConflict
		}
		return models.DigitalPass{}, fmt.Errorf("insert digital pass: %w", err)
	}
	return pass, nil
}

func (s *PGStore) GetDigitalPass(ctx context.Context, id uuid.UUID) (models.DigitalPass, error) {
	return s.getPass(ctx, `WHERE id=$1`, id)
}

func (s *PGStore) GetDigitalPassByCode(ctx context.Context, code string) (models.DigitalPass, error) {
	return s.getPass(ctx, `WHERE pass_code=$1`, code)
}

func (s *PGStore) getPass(ctx context.Context, where string, arg interface{}) (models.DigitalPass, error) {
	query := `
		SELECT id, pass_code, pass_type, holder_name, holder_document, plate_number, valid_from, valid_until, status, created_at, updated_at
		FROM digital_passes ` + where
	var pass models.DigitalPass
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&pass.ID, &pass.PassCode, &pass.PassType, &pass.HolderName, &pass.HolderDocument,
		&pass.PlateNumber, &pass.ValidFrom, &pass.ValidUntil, &pass.Status, &pass.CreatedAt, &pass.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DigitalPass{}, ErrNotFound
		}
		return models.DigitalPass{}, fmt.Errorf("get digital pass: %w", err)
	}
	return pass, nil
}

func (s *PGStore) SaveDigitalPass(ctx context.Context, pass models.DigitalPass) error {
	query := `
		UPDATE digital_passes
		SET status=$2, valid_from=$3, valid_until=$4, updated_at=NOW()
		WHERE id=$1
	`
	res, err := s.db.ExecContext(ctx, query, pass.ID, pass.Status, pass.ValidFrom, pass.ValidUntil)
	if err != nil {
		return fmt.Errorf("save digital pass: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) CreateAccessPermit(ctx context.Context, permit models.AccessPermit) (models.AccessPermit, error) {
	if permit.ID == uuid.Nil {
		permit.ID = uuid.New()
	}
	query := `
		INSERT INTO access_permits (id, permit_type, pass_id, cargo_id, status)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at
	`
	if err := s.db.QueryRowContext(ctx, query,
		permit.ID, permit.PermitType, permit.PassID, permit.CargoID, permit.Status,
	).Scan(&permit.CreatedAt); err != nil {
		return models.AccessPermit{}, fmt.Errorf("insert access permit: %w", err)
	}
	return permit, nil
}

func (s *PGStore) GetAccessPermit(ctx context.Context, id uuid.UUID) (models.AccessPermit, error) {
	const query = `
		SELECT id, permit_type, pass_id, cargo_id, status, used_at, created_at
		FROM access_permits
		WHERE id=$1
	`
	return s.scanPermit(s.db.QueryRowContext(ctx, query, id))
}

func (s *PGStore) FindPendingPermit(ctx context.Context, passID uuid.UUID, permitType models.PermitType) (models.AccessPermit, error) {
	const query = `
		SELECT id, permit_type, pass_id, cargo_id, status, used_at, created_at
		FROM access_permits
		WHERE pass_id=$1 AND permit_type=$2 AND status='PENDING'
		ORDER BY created_at
		LIMIT 1
	`
	return s.scanPermit(s.db.QueryRowContext(ctx, query, passID, permitType))
}

func (s *PGStore) scanPermit(row *sql.Row) (models.AccessPermit, error) {
	var permit models.AccessPermit
	var cargoID uuid.NullUUID
	var usedAt sql.NullTime
	err := row.Scan(&permit.ID, &permit.PermitType, &permit.PassID, &cargoID, &permit.Status, &usedAt, &permit.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.AccessPermit{}, ErrNotFound
		}
		return models.AccessPermit{}, fmt.Errorf("get access permit: %w", err)
	}
	if cargoID.Valid {
		permit.CargoID = &cargoID.UUID
	}
	if usedAt.Valid {
		permit.UsedAt = &usedAt.Time
	}
	return permit, nil
}

func (s *PGStore) SaveAccessPermit(ctx context.Context, permit models.AccessPermit) error {
	query := `
		UPDATE access_permits
		SET status=$2, used_at=$3
		WHERE id=$1
	`
	res, err := s.db.ExecContext(ctx, query, permit.ID, permit.Status, permit.UsedAt)
	if err != nil {
		return fmt.Errorf("save access permit: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) CreateQueueEntry(ctx context.Context, entry models.QueueEntry) (models.QueueEntry, error) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	query := `
		INSERT INTO queue_entries (id, truck_id, appointment_id, zone, entry_time, exit_time, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`
	_, err := s.db.ExecContext(ctx, query,
		entry.ID, entry.TruckID, entry.AppointmentID, entry.Zone, entry.EntryTime, entry.ExitTime, entry.Status)
	if err != nil {
		if isUniqueViolation(err) {
			return models.QueueEntry{}, ErrConflict
		}
		return models.QueueEntry{}, fmt.Errorf("insert queue entry: %w", err)
	}
	return entry, nil
}

func (s *PGStore) GetQueueEntry(ctx context.Context, id uuid.UUID) (models.QueueEntry, error) {
	const query = `
		SELECT id, truck_id, appointment_id, zone, entry_time, exit_time, status
		FROM queue_entries
		WHERE id=$1
	`
	var entry models.QueueEntry
	var appointmentID uuid.NullUUID
	var exitTime sql.NullTime
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&entry.ID, &entry.TruckID, &appointmentID, &entry.Zone, &entry.EntryTime, &exitTime, &entry.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.QueueEntry{}, ErrNotFound
		}
		return models.QueueEntry{}, fmt.Errorf("get queue entry: %w", err)
	}
	if appointmentID.Valid {
		entry.AppointmentID = &appointmentID.UUID
	}
	if exitTime.Valid {
		entry.ExitTime = &exitTime.Time
	}
	return entry, nil
}

func (s *PGStore) SaveQueueEntry(ctx context.Context, entry models.QueueEntry) error {
	query := `
		UPDATE queue_entries
		SET exit_time=$2, status=$3
		WHERE id=$1
	`
	res, err := s.db.ExecContext(ctx, query, entry.ID, entry.ExitTime, entry.Status)
	if err != nil {
		return fmt.Errorf("save queue entry: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) FindWaitingEntryByTruck(ctx context.Context, truckID string) (models.QueueEntry, error) {
	const query = `
		SELECT id FROM queue_entries
		WHERE truck_id=$1 AND status='WAITING'
		LIMIT 1
	`
	var id uuid.UUID
	if err := s.db.QueryRowContext(ctx, query, truckID).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.QueueEntry{}, ErrNotFound
		}
		return models.QueueEntry{}, fmt.Errorf("find waiting entry: %w", err)
	}
	return s.GetQueueEntry(ctx, id)
}

func (s *PGStore) ListQueueEntries(ctx context.Context, zone models.QueueZone, status models.QueueStatus) ([]models.QueueEntry, error) {
	query := `
		SELECT id, truck_id, appointment_id, zone, entry_time, exit_time, status
		FROM queue_entries
		WHERE ($1 = '' OR zone = $1) AND ($2 = '' OR status = $2)
		ORDER BY entry_time
	`
	rows, err := s.db.QueryContext(ctx, query, string(zone), string(status))
	if err != nil {
		return nil, fmt.Errorf("list queue entries: %w", err)
	}
	defer rows.Close()

	var out []models.QueueEntry
	for rows.Next() {
		var entry models.QueueEntry
		var appointmentID uuid.NullUUID
		var exitTime sql.NullTime
		if err := rows.Scan(&entry.ID, &entry.TruckID, &appointmentID, &entry.Zone, &entry.EntryTime, &exitTime, &entry.Status); err != nil {
			return nil, fmt.Errorf("scan queue entry: %w", err)
		}
		if appointmentID.Valid {
			entry.AppointmentID = &appointmentID.UUID
		}
		if exitTime.Valid {
			entry.ExitTime = &exitTime.Time
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (s *PGStore) CreateAppointment(ctx context.Context, appt models.Appointment) (models.Appointment, error) {
	if appt.ID == uuid.Nil {
		appt.ID = uuid.New()
	}
	query := `
		INSERT INTO appointments (id, pass_id, truck_id, scheduled_at)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at
	`
	if err := s.db.QueryRowContext(ctx, query, appt.ID, appt.PassID, appt.TruckID, appt.ScheduledAt).Scan(&appt.CreatedAt); err != nil {
		return models.Appointment{}, fmt.Errorf("insert appointment: %w", err)
	}
	return appt, nil
}

func (s *PGStore) FindUpcomingAppointment(ctx context.Context, passID uuid.UUID, from, until time.Time) (models.Appointment, error) {
	const query = `
		SELECT id, pass_id, truck_id, scheduled_at, created_at
		FROM appointments
		WHERE pass_id=$1 AND scheduled_at BETWEEN $2 AND $3
		ORDER BY scheduled_at
		LIMIT 1
	`
	var appt models.Appointment
	err := s.db.QueryRowContext(ctx, query, passID, from, until).Scan(
		&appt.ID, &appt.PassID, &appt.TruckID, &appt.ScheduledAt, &appt.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Appointment{}, ErrNotFound
		}
		return models.Appointment{}, fmt.Errorf("find upcoming appointment: %w", err)
	}
	return appt, nil
}
