// Package registry serves the static seat layout of each screen and the
// showtime → screen mapping.  The data is read-mostly reference data:
// it is loaded from a source once per screen, cached immutably, and
// used by the lock manager to validate seat identifiers before any
// state transition.
package registry

import (
	"context"
	"errors"
	"sync"

	"github.com/iliyamo/showtime-booking/internal/model"
)

// ErrShowtimeNotFound indicates the showtime does not exist.
var ErrShowtimeNotFound = errors.New("showtime not found")

// ErrSeatNotFound indicates the seat does not belong to the screen of
// the requested showtime.
var ErrSeatNotFound = errors.New("seat not found")

// Source supplies layout data.  Both the MySQL repository and the
// in-memory store implement it.
type Source interface {
	// Showtime returns the showtime by id, or ErrShowtimeNotFound.
	Showtime(ctx context.Context, showtimeID uint64) (*model.Showtime, error)
	// SeatsByScreen returns every seat of a screen ordered by row, col.
	SeatsByScreen(ctx context.Context, screenID uint64) ([]model.Seat, error)
}

// Registry caches screen layouts and showtimes in memory.  Entries are
// immutable once loaded; concurrent readers share them without copying.
type Registry struct {
	src Source

	mu        sync.RWMutex
	showtimes map[uint64]*model.Showtime
	screens   map[uint64][]model.Seat          // screen id → ordered seats
	byID      map[uint64]map[uint64]*model.Seat // screen id → seat id → seat
}

// New constructs an empty registry backed by the given source.
func New(src Source) *Registry {
	return &Registry{
		src:       src,
		showtimes: make(map[uint64]*model.Showtime),
		screens:   make(map[uint64][]model.Seat),
		byID:      make(map[uint64]map[uint64]*model.Seat),
	}
}

// Showtime returns the showtime by id, loading it through the source on
// first access.
func (r *Registry) Showtime(ctx context.Context, showtimeID uint64) (*model.Showtime, error) {
	r.mu.RLock()
	st, ok := r.showtimes[showtimeID]
	r.mu.RUnlock()
	if ok {
		return st, nil
	}

	st, err := r.src.Showtime(ctx, showtimeID)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.showtimes[showtimeID] = st
	r.mu.Unlock()
	return st, nil
}

// Seats returns the full ordered layout of a screen.
func (r *Registry) Seats(ctx context.Context, screenID uint64) ([]model.Seat, error) {
	r.mu.RLock()
	seats, ok := r.screens[screenID]
	r.mu.RUnlock()
	if ok {
		return seats, nil
	}
	if err := r.loadScreen(ctx, screenID); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.screens[screenID], nil
}

// Seat returns one seat of a screen, or ErrSeatNotFound when the seat
// id is not part of that screen's layout.
func (r *Registry) Seat(ctx context.Context, screenID, seatID uint64) (*model.Seat, error) {
	r.mu.RLock()
	idx, ok := r.byID[screenID]
	r.mu.RUnlock()
	if !ok {
		if err := r.loadScreen(ctx, screenID); err != nil {
			return nil, err
		}
		r.mu.RLock()
		idx = r.byID[screenID]
		r.mu.RUnlock()
	}
	s, ok := idx[seatID]
	if !ok {
		return nil, ErrSeatNotFound
	}
	return s, nil
}

// loadScreen fetches a screen layout through the source and indexes it.
// Losing a racing double-load is harmless: both goroutines store the
// same immutable rows.
func (r *Registry) loadScreen(ctx context.Context, screenID uint64) error {
	seats, err := r.src.SeatsByScreen(ctx, screenID)
	if err != nil {
		return err
	}
	idx := make(map[uint64]*model.Seat, len(seats))
	for i := range seats {
		idx[seats[i].ID] = &seats[i]
	}
	r.mu.Lock()
	r.screens[screenID] = seats
	r.byID[screenID] = idx
	r.mu.Unlock()
	return nil
}
