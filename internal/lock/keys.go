package lock

import (
	"sort"
	"sync"
)

// Key identifies the unit of mutual exclusion: one seat of one
// showtime.  Every state transition for a key happens under that key's
// mutex, whether it comes from a customer call, a commit, or the
// sweeper.
type Key struct {
	ShowtimeID uint64
	SeatID     uint64
}

// keyEntry pairs a mutex with a reference count so entries can be
// removed from the table once nobody is waiting on them.
type keyEntry struct {
	mu   sync.Mutex
	refs int
}

// Keys is a reference-counted table of per-key mutexes.  One shared
// instance serializes the lock manager, the reservation committer and
// the expiry sweeper.  Locks are not recursive: locking the same key
// twice on one goroutine deadlocks.
type Keys struct {
	mu      sync.Mutex
	entries map[Key]*keyEntry
}

// NewKeys creates an empty key table.
func NewKeys() *Keys {
	return &Keys{entries: make(map[Key]*keyEntry)}
}

// Lock acquires the mutex for k, blocking until it is free, and returns
// the matching unlock function.
func (t *Keys) Lock(k Key) func() {
	t.mu.Lock()
	e, ok := t.entries[k]
	if !ok {
		e = &keyEntry{}
		t.entries[k] = e
	}
	e.refs++
	t.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		t.mu.Lock()
		e.refs--
		if e.refs <= 0 {
			delete(t.entries, k)
		}
		t.mu.Unlock()
	}
}

// LockAll acquires the mutexes for every key in ascending
// (showtime, seat) order so that concurrent multi-key callers can never
// deadlock against each other.  The input slice is not modified.  The
// returned function releases all keys in reverse order.
func (t *Keys) LockAll(keys []Key) func() {
	ordered := make([]Key, len(keys))
	copy(ordered, keys)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].ShowtimeID != ordered[j].ShowtimeID {
			return ordered[i].ShowtimeID < ordered[j].ShowtimeID
		}
		return ordered[i].SeatID < ordered[j].SeatID
	})

	unlocks := make([]func(), 0, len(ordered))
	for _, k := range ordered {
		unlocks = append(unlocks, t.Lock(k))
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}

// Len reports the number of live entries; used by tests to verify the
// table does not leak.
func (t *Keys) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
