package yard

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// lockTable holds one mutex per yard location id. Every occupancy mutation
// runs under the owning location's mutex so check-then-set is atomic against
// concurrent requests targeting the same location. Contention is fail-fast at
// the business level: the lock only covers the read-modify-write window, it
// never queues waiters behind a long operation.
type lockTable struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newLockTable() *lockTable {
	return &lockTable{locks: map[uuid.UUID]*sync.Mutex{}}
}

func (t *lockTable) get(id uuid.UUID) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[id]
	if !ok {
		l = &sync.Mutex{}
		t.locks[id] = l
	}
	return l
}

// lock acquires the mutex for one location and returns its unlock func.
func (t *lockTable) lock(id uuid.UUID) func() {
	l := t.get(id)
	l.Lock()
	return l.Unlock
}

// lockAll acquires the mutexes for a set of locations in a stable global
// order (sorted by id) so that two movements touching the same pair of
// locations cannot deadlock. Duplicate ids are locked once.
func (t *lockTable) lockAll(ids ...uuid.UUID) func() {
	seen := map[uuid.UUID]bool{}
	unique := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i].String() < unique[j].String() })

	unlocks := make([]func(), 0, len(unique))
	for _, id := range unique {
		unlocks = append(unlocks, t.lock(id))
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}
