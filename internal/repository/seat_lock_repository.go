package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/showtime-booking/internal/model"
)

// SeatLockRepo provides access to the seat_locks table.  The table has
// a composite primary key (showtime_id, seat_id), so at most one lock
// row can exist per seat per showtime; the lock manager's per-key
// mutexes serialize all writers on top of that.
type SeatLockRepo struct {
	db *sql.DB
}

// NewSeatLockRepo returns a SeatLockRepo bound to the given database.
func NewSeatLockRepo(db *sql.DB) *SeatLockRepo { return &SeatLockRepo{db: db} }

// GetLock fetches the lock row for one seat, expired or not.  Returns
// (nil, nil) when no row exists; the caller decides what an absent or
// stale hold means.
func (r *SeatLockRepo) GetLock(ctx context.Context, showtimeID, seatID uint64) (*model.SeatLock, error) {
	const q = `SELECT showtime_id, seat_id, user_id, token, locked_at, expires_at
	           FROM seat_locks WHERE showtime_id = ? AND seat_id = ?`
	var l model.SeatLock
	err := r.db.QueryRowContext(ctx, q, showtimeID, seatID).
		Scan(&l.ShowtimeID, &l.SeatID, &l.UserID, &l.Token, &l.LockedAt, &l.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

// UpsertLock inserts the lock row or replaces an existing one for the
// same (showtime, seat) key.  Replacement covers both the idempotent
// refresh by the owner and the takeover of an expired hold.
func (r *SeatLockRepo) UpsertLock(ctx context.Context, l *model.SeatLock) error {
	const q = `INSERT INTO seat_locks (showtime_id, seat_id, user_id, token, locked_at, expires_at)
	           VALUES (?, ?, ?, ?, ?, ?)
	           ON DUPLICATE KEY UPDATE
	               user_id = VALUES(user_id),
	               token = VALUES(token),
	               locked_at = VALUES(locked_at),
	               expires_at = VALUES(expires_at)`
	_, err := r.db.ExecContext(ctx, q,
		l.ShowtimeID, l.SeatID, l.UserID, l.Token, l.LockedAt.UTC(), l.ExpiresAt.UTC())
	return err
}

// DeleteLock removes the lock row.  Deleting an absent row succeeds.
func (r *SeatLockRepo) DeleteLock(ctx context.Context, showtimeID, seatID uint64) error {
	const q = `DELETE FROM seat_locks WHERE showtime_id = ? AND seat_id = ?`
	_, err := r.db.ExecContext(ctx, q, showtimeID, seatID)
	return err
}

// LocksByShowtime lists every lock row of one showtime, including
// expired ones; the manager applies lazy expiry when reading.
func (r *SeatLockRepo) LocksByShowtime(ctx context.Context, showtimeID uint64) ([]model.SeatLock, error) {
	const q = `SELECT showtime_id, seat_id, user_id, token, locked_at, expires_at
	           FROM seat_locks WHERE showtime_id = ?`
	return r.queryLocks(ctx, q, showtimeID)
}

// ExpiredLocks lists lock rows past the cutoff across all showtimes.
func (r *SeatLockRepo) ExpiredLocks(ctx context.Context, cutoff time.Time) ([]model.SeatLock, error) {
	const q = `SELECT showtime_id, seat_id, user_id, token, locked_at, expires_at
	           FROM seat_locks WHERE expires_at <= ?`
	return r.queryLocks(ctx, q, cutoff.UTC())
}

func (r *SeatLockRepo) queryLocks(ctx context.Context, q string, arg interface{}) ([]model.SeatLock, error) {
	rows, err := r.db.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locks []model.SeatLock
	for rows.Next() {
		var l model.SeatLock
		if err := rows.Scan(&l.ShowtimeID, &l.SeatID, &l.UserID, &l.Token, &l.LockedAt, &l.ExpiresAt); err != nil {
			return nil, err
		}
		locks = append(locks, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return locks, nil
}

// SeatSold reports whether a confirmed reservation already sold the
// seat.  Sold state is derived, not stored: a seat is sold exactly when
// a ticket for it exists under a confirmed reservation.
func (r *SeatLockRepo) SeatSold(ctx context.Context, showtimeID, seatID uint64) (uint64, bool, error) {
	const q = `SELECT r.reservation_id
	           FROM tickets t
	           JOIN reservations r ON r.reservation_id = t.reservation_id
	           WHERE r.showtime_id = ? AND t.seat_id = ? AND r.status = 'confirmed'`
	var id uint64
	err := r.db.QueryRowContext(ctx, q, showtimeID, seatID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return id, true, nil
}

// SoldSeats maps every sold seat of a showtime to the reservation that
// sold it.
func (r *SeatLockRepo) SoldSeats(ctx context.Context, showtimeID uint64) (map[uint64]uint64, error) {
	const q = `SELECT t.seat_id, r.reservation_id
	           FROM tickets t
	           JOIN reservations r ON r.reservation_id = t.reservation_id
	           WHERE r.showtime_id = ? AND r.status = 'confirmed'`
	rows, err := r.db.QueryContext(ctx, q, showtimeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uint64]uint64)
	for rows.Next() {
		var seatID, resID uint64
		if err := rows.Scan(&seatID, &resID); err != nil {
			return nil, err
		}
		out[seatID] = resID
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
