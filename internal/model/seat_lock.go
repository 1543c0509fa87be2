package model

import "time"

// SeatLock is a temporary, time-limited claim on one seat for one
// showtime.  At most one lock row exists per (showtime, seat) at any
// instant; that uniqueness is the mutual-exclusion invariant of the
// whole booking core.  Locks expire at ExpiresAt; expiry is
// authoritative server-side, the UI countdown is purely advisory.
//
// Fields:
//  ShowtimeID – showtime the seat is held for (part of the key).
//  SeatID     – seat being held (part of the key).
//  UserID     – holder of the lock.
//  Token      – opaque fencing token minted on each fresh acquisition.
//  LockedAt   – when the hold was first taken (UTC).
//  ExpiresAt  – deadline after which the hold is logically void (UTC).
type SeatLock struct {
	ShowtimeID uint64    `json:"showtime_id"` // seat_locks.showtime_id
	SeatID     uint64    `json:"seat_id"`     // seat_locks.seat_id
	UserID     uint64    `json:"user_id"`     // seat_locks.user_id
	Token      string    `json:"token"`       // seat_locks.token
	LockedAt   time.Time `json:"locked_at"`   // seat_locks.locked_at
	ExpiresAt  time.Time `json:"expires_at"`  // seat_locks.expires_at
}

// Expired reports whether the hold deadline has passed at the given
// instant.  Callers must pass the clock they operate under; the model
// never reads the wall clock itself.
func (l *SeatLock) Expired(now time.Time) bool {
	return !l.ExpiresAt.After(now)
}

// OwnedBy reports whether the hold belongs to the given user.
func (l *SeatLock) OwnedBy(userID uint64) bool {
	return l.UserID == userID
}
