package lock

import "errors"

// Contention and input errors surfaced by the lock manager.  Contention
// (ErrSeatLocked) is an expected outcome of normal concurrent browsing,
// not a system fault; handlers map it to a conflict response and the
// customer picks another seat.
var (
	// ErrSeatLocked means the seat is currently held by a different
	// user and the hold has not expired.
	ErrSeatLocked = errors.New("seat is locked by another user")

	// ErrSeatUnavailable means the seat has already been sold for this
	// showtime.
	ErrSeatUnavailable = errors.New("seat already sold")
)
