package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harborops/terminal-core/internal/models"
)

// MemoryStore provides an in-memory implementation useful for tests and for
// running the service without a database.
type MemoryStore struct {
	mu           sync.RWMutex
	locations    map[uuid.UUID]models.YardLocation
	cargo        map[uuid.UUID]models.CargoItem
	passes       map[uuid.UUID]models.DigitalPass
	passByCode   map[string]uuid.UUID
	permits      map[uuid.UUID]models.AccessPermit
	queue        map[uuid.UUID]models.QueueEntry
	appointments map[uuid.UUID]models.Appointment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		locations:    map[uuid.UUID]models.YardLocation{},
		cargo:        map[uuid.UUID]models.CargoItem{},
		passes:       map[uuid.UUID]models.DigitalPass{},
		passByCode:   map[string]uuid.UUID{},
		permits:      map[uuid.UUID]models.AccessPermit{},
		queue:        map[uuid.UUID]models.QueueEntry{},
		appointments: map[uuid.UUID]models.Appointment{},
	}
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

func (m *MemoryStore) CreateYardLocation(ctx context.Context, loc models.YardLocation) (models.YardLocation, error) {
	if loc.ID == uuid.Nil {
		loc.ID = uuid.New()
	}
	now := time.Now().UTC()
	loc.CreatedAt = now
	loc.UpdatedAt = now
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[loc.ID] = loc
	return loc, nil
}

func (m *MemoryStore) GetYardLocation(ctx context.Context, id uuid.UUID) (models.YardLocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	loc, ok := m.locations[id]
	if !ok {
		return models.YardLocation{}, ErrNotFound
	}
	return loc, nil
}

func (m *MemoryStore) SaveYardLocation(ctx context.Context, loc models.YardLocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.locations[loc.ID]; !ok {
		return ErrNotFound
	}
	loc.UpdatedAt = time.Now().UTC()
	m.locations[loc.ID] = loc
	return nil
}

func (m *MemoryStore) ListYardLocations(ctx context.Context, zone string) ([]models.YardLocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.YardLocation, 0, len(m.locations))
	for _, loc := range m.locations {
		if zone != "" && loc.Zone != zone {
			continue
		}
		out = append(out, loc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code() < out[j].Code() })
	return out, nil
}

func (m *MemoryStore) SeedYardLocations(ctx context.Context, locs []models.YardLocation) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing := make(map[string]bool, len(m.locations))
	for _, loc := range m.locations {
		existing[loc.Code()] = true
	}
	now := time.Now().UTC()
	created := 0
	for _, loc := range locs {
		if existing[loc.Code()] {
			continue
		}
		if loc.ID == uuid.Nil {
			loc.ID = uuid.New()
		}
		loc.CreatedAt = now
		loc.UpdatedAt = now
		m.locations[loc.ID] = loc
		existing[loc.Code()] = true
		created++
	}
	return created, nil
}

func (m *MemoryStore) CreateCargoItem(ctx context.Context, item models.CargoItem) (models.CargoItem, error) {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cargo[item.ID] = item
	return item, nil
}

func (m *MemoryStore) GetCargoItem(ctx context.Context, id uuid.UUID) (models.CargoItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.cargo[id]
	if !ok {
		return models.CargoItem{}, ErrNotFound
	}
	return item, nil
}

func (m *MemoryStore) SaveCargoItem(ctx context.Context, item models.CargoItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cargo[item.ID]; !ok {
		return ErrNotFound
	}
	item.UpdatedAt = time.Now().UTC()
	m.cargo[item.ID] = item
	return nil
}

func (m *MemoryStore) CreateDigitalPass(ctx context.Context, pass models.DigitalPass) (models.DigitalPass, error) {
	if pass.ID == uuid.Nil {
		pass.ID = uuid.New()
	}
	now := time.Now().UTC()
	pass.CreatedAt = now
	pass.UpdatedAt = now
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.passByCode[pass.PassCode]; ok {
		return models.DigitalPass{}, ErrConflict
	}
	m.passes[pass.ID] = pass
	m.passByCode[pass.PassCode] = pass.ID
	return pass, nil
}

func (m *MemoryStore) GetDigitalPass(ctx context.Context, id uuid.UUID) (models.DigitalPass, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pass, ok := m.passes[id]
	if !ok {
		return models.DigitalPass{}, ErrNotFound
	}
	return pass, nil
}

func (m *MemoryStore) GetDigitalPassByCode(ctx context.Context, code string) (models.DigitalPass, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.passByCode[code]
	if !ok {
		return models.DigitalPass{}, ErrNotFound
	}
	return m.passes[id], nil
}

func (m *MemoryStore) SaveDigitalPass(ctx context.Context, pass models.DigitalPass) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.passes[pass.ID]
	if !ok {
		return ErrNotFound
	}
	if prev.PassCode != pass.PassCode {
		delete(m.passByCode, prev.PassCode)
		m.passByCode[pass.PassCode] = pass.ID
	}
	pass.UpdatedAt = time.Now().UTC()
	m.passes[pass.ID] = pass
	return nil
}

func (m *MemoryStore) CreateAccessPermit(ctx context.Context, permit models.AccessPermit) (models.AccessPermit, error) {
	if permit.ID == uuid.Nil {
		permit.ID = uuid.New()
	}
	permit.CreatedAt = time.Now().UTC()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.permits[permit.ID] = permit
	return permit, nil
}

func (m *MemoryStore) GetAccessPermit(ctx context.Context, id uuid.UUID) (models.AccessPermit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	permit, ok := m.permits[id]
	if !ok {
		return models.AccessPermit{}, ErrNotFound
	}
	return permit, nil
}

func (m *MemoryStore) SaveAccessPermit(ctx context.Context, permit models.AccessPermit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.permits[permit.ID]; !ok {
		return ErrNotFound
	}
	m.permits[permit.ID] = permit
	return nil
}

func (m *MemoryStore) FindPendingPermit(ctx context.Context, passID uuid.UUID, permitType models.PermitType) (models.AccessPermit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var found *models.AccessPermit
	for _, permit := range m.permits {
		if permit.PassID != passID || permit.PermitType != permitType || permit.Status != models.PermitPending {
			continue
		}
		if found == nil || permit.CreatedAt.Before(found.CreatedAt) {
			p := permit
			found = &p
		}
	}
	if found == nil {
		return models.AccessPermit{}, ErrNotFound
	}
	return *found, nil
}

func (m *MemoryStore) CreateQueueEntry(ctx context.Context, entry models.QueueEntry) (models.QueueEntry, error) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.queue {
		if e.TruckID == entry.TruckID && e.Status == models.QueueWaiting {
			return models.QueueEntry{}, ErrConflict
		}
	}
	m.queue[entry.ID] = entry
	return entry, nil
}

func (m *MemoryStore) GetQueueEntry(ctx context.Context, id uuid.UUID) (models.QueueEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.queue[id]
	if !ok {
		return models.QueueEntry{}, ErrNotFound
	}
	return entry, nil
}

func (m *MemoryStore) SaveQueueEntry(ctx context.Context, entry models.QueueEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.queue[entry.ID]; !ok {
		return ErrNotFound
	}
	m.queue[entry.ID] = entry
	return nil
}

func (m *MemoryStore) FindWaitingEntryByTruck(ctx context.Context, truckID string) (models.QueueEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, entry := range m.queue {
		if entry.TruckID == truckID && entry.Status == models.QueueWaiting {
			return entry, nil
		}
	}
	return models.QueueEntry{}, ErrNotFound
}

func (m *MemoryStore) ListQueueEntries(ctx context.Context, zone models.QueueZone, status models.QueueStatus) ([]models.QueueEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.QueueEntry{}
	for _, entry := range m.queue {
		if zone != "" && entry.Zone != zone {
			continue
		}
		if status != "" && entry.Status != status {
			continue
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryTime.Before(out[j].EntryTime) })
	return out, nil
}

func (m *MemoryStore) CreateAppointment(ctx context.Context, appt models.Appointment) (models.Appointment, error) {
	if appt.ID == uuid.Nil {
		appt.ID = uuid.New()
	}
	appt.CreatedAt = time.Now().UTC()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appointments[appt.ID] = appt
	return appt, nil
}

func (m *MemoryStore) FindUpcomingAppointment(ctx context.Context, passID uuid.UUID, from, until time.Time) (models.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var found *models.Appointment
	for _, appt := range m.appointments {
		if appt.PassID != passID {
			continue
		}
		if appt.ScheduledAt.Before(from) || appt.ScheduledAt.After(until) {
			continue
		}
		if found == nil || appt.ScheduledAt.Before(found.ScheduledAt) {
			a := appt
			found = &a
		}
	}
	if found == nil {
		return models.Appointment{}, ErrNotFound
	}
	return *found, nil
}
