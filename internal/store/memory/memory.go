// Package memory is an in-memory implementation of the booking core's
// durable store.  It backs the test suite and local development; the
// MySQL repositories in internal/repository provide the production
// implementation of the same interfaces.  A single mutex guards all
// maps, which makes every operation — including the multi-record
// reservation commit — atomic by construction.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/showtime-booking/internal/model"
	"github.com/iliyamo/showtime-booking/internal/registry"
)

type seatKey struct {
	showtimeID uint64
	seatID     uint64
}

// Store holds all booking state in process memory.
type Store struct {
	mu sync.RWMutex

	showtimes map[uint64]model.Showtime
	screens   map[uint64][]model.Seat

	locks map[seatKey]model.SeatLock
	sold  map[seatKey]uint64 // seat → reservation that sold it

	reservations map[uint64]model.Reservation
	tickets      map[uint64][]model.Ticket // reservation id → tickets

	nextReservationID uint64
	nextTicketID      uint64
}

// New creates an empty store.
func New() *Store {
	return &Store{
		showtimes:    make(map[uint64]model.Showtime),
		screens:      make(map[uint64][]model.Seat),
		locks:        make(map[seatKey]model.SeatLock),
		sold:         make(map[seatKey]uint64),
		reservations: make(map[uint64]model.Reservation),
		tickets:      make(map[uint64][]model.Ticket),
	}
}

// AddShowtime seeds one showtime.
func (s *Store) AddShowtime(st model.Showtime) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showtimes[st.ID] = st
}

// AddSeats seeds the layout of one screen.
func (s *Store) AddSeats(screenID uint64, seats []model.Seat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.screens[screenID] = append([]model.Seat(nil), seats...)
}

// Showtime implements registry.Source.
func (s *Store) Showtime(_ context.Context, showtimeID uint64) (*model.Showtime, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.showtimes[showtimeID]
	if !ok {
		return nil, registry.ErrShowtimeNotFound
	}
	return &st, nil
}

// SeatsByScreen implements registry.Source.
func (s *Store) SeatsByScreen(_ context.Context, screenID uint64) ([]model.Seat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Seat(nil), s.screens[screenID]...), nil
}

// GetLock returns a copy of the lock row, or nil when none exists.
func (s *Store) GetLock(_ context.Context, showtimeID, seatID uint64) (*model.SeatLock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.locks[seatKey{showtimeID, seatID}]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

// UpsertLock inserts or replaces the lock row for the seat.
func (s *Store) UpsertLock(_ context.Context, l *model.SeatLock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locks[seatKey{l.ShowtimeID, l.SeatID}] = *l
	return nil
}

// DeleteLock removes the lock row; deleting an absent row is a no-op.
func (s *Store) DeleteLock(_ context.Context, showtimeID, seatID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, seatKey{showtimeID, seatID})
	return nil
}

// LocksByShowtime lists all lock rows of one showtime.
func (s *Store) LocksByShowtime(_ context.Context, showtimeID uint64) ([]model.SeatLock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.SeatLock
	for k, l := range s.locks {
		if k.showtimeID == showtimeID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeatID < out[j].SeatID })
	return out, nil
}

// ExpiredLocks lists lock rows past the cutoff across all showtimes.
func (s *Store) ExpiredLocks(_ context.Context, cutoff time.Time) ([]model.SeatLock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.SeatLock
	for _, l := range s.locks {
		if !l.ExpiresAt.After(cutoff) {
			out = append(out, l)
		}
	}
	return out, nil
}

// SeatSold reports whether the seat was sold and by which reservation.
func (s *Store) SeatSold(_ context.Context, showtimeID, seatID uint64) (uint64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.sold[seatKey{showtimeID, seatID}]
	return id, ok, nil
}

// SoldSeats maps every sold seat of the showtime to its reservation.
func (s *Store) SoldSeats(_ context.Context, showtimeID uint64) (map[uint64]uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uint64]uint64)
	for k, id := range s.sold {
		if k.showtimeID == showtimeID {
			out[k.seatID] = id
		}
	}
	return out, nil
}

// CreateReservation persists the reservation and its tickets, deletes
// the holds on the covered seats and marks them sold — all under one
// mutex section, so no reader can observe a partial commit.  A seat
// already sold makes the whole call fail; that case is unreachable when
// callers verify under the key mutexes and signals an invariant bug.
func (s *Store) CreateReservation(_ context.Context, res *model.Reservation, tickets []model.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range tickets {
		if _, ok := s.sold[seatKey{res.ShowtimeID, t.SeatID}]; ok {
			return fmt.Errorf("seat %d already sold for showtime %d", t.SeatID, res.ShowtimeID)
		}
	}

	s.nextReservationID++
	res.ID = s.nextReservationID
	s.reservations[res.ID] = *res

	stored := make([]model.Ticket, 0, len(tickets))
	for i := range tickets {
		s.nextTicketID++
		tickets[i].ID = s.nextTicketID
		tickets[i].ReservationID = res.ID
		stored = append(stored, tickets[i])

		k := seatKey{res.ShowtimeID, tickets[i].SeatID}
		delete(s.locks, k)
		s.sold[k] = res.ID
	}
	s.tickets[res.ID] = stored
	return nil
}

// Reservation returns one reservation with its tickets.
func (s *Store) Reservation(_ context.Context, reservationID uint64) (*model.Reservation, []model.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.reservations[reservationID]
	if !ok {
		return nil, nil, nil
	}
	return &res, append([]model.Ticket(nil), s.tickets[reservationID]...), nil
}

// ReservationsByUser returns a user's reservations, newest first, with
// their tickets keyed by reservation id.
func (s *Store) ReservationsByUser(_ context.Context, userID uint64) ([]model.Reservation, map[uint64][]model.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Reservation
	byRes := make(map[uint64][]model.Ticket)
	for id, r := range s.reservations {
		if r.UserID == userID {
			out = append(out, r)
			byRes[id] = append([]model.Ticket(nil), s.tickets[id]...)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, byRes, nil
}
