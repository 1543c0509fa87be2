package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/showtime-booking/internal/model"
)

// ReservationRepo persists reservations and tickets.  It embeds a
// SeatLockRepo so the committer sees one store covering hold lookups,
// sold checks and the transactional commit.
type ReservationRepo struct {
	*SeatLockRepo
	db *sql.DB
}

// NewReservationRepo returns a ReservationRepo sharing the lock repo's
// database handle.
func NewReservationRepo(db *sql.DB, locks *SeatLockRepo) *ReservationRepo {
	return &ReservationRepo{SeatLockRepo: locks, db: db}
}

// CreateReservation commits the sale in one transaction: insert the
// reservation row, insert one ticket per seat, and delete the consumed
// holds.  The generated ids are written back into res and tickets.
// Callers hold the per-seat key mutexes for the whole call, so no
// competing acquire or commit can interleave with the transaction.
func (r *ReservationRepo) CreateReservation(ctx context.Context, res *model.Reservation, tickets []model.Ticket) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	const insRes = `INSERT INTO reservations (user_id, showtime_id, status, created_at, expires_at)
	                VALUES (?, ?, ?, ?, ?)`
	out, err := tx.ExecContext(ctx, insRes,
		res.UserID, res.ShowtimeID, res.Status, res.CreatedAt.UTC(), res.ExpiresAt.UTC())
	if err != nil {
		return err
	}
	resID, err := out.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(resID)

	const insTicket = `INSERT INTO tickets (reservation_id, seat_id, price_cents, issued_at)
	                   VALUES (?, ?, ?, ?)`
	const delLock = `DELETE FROM seat_locks WHERE showtime_id = ? AND seat_id = ?`
	for i := range tickets {
		tickets[i].ReservationID = res.ID
		tOut, err := tx.ExecContext(ctx, insTicket,
			res.ID, tickets[i].SeatID, tickets[i].PriceCents, tickets[i].IssuedAt.UTC())
		if err != nil {
			return err
		}
		tID, err := tOut.LastInsertId()
		if err != nil {
			return err
		}
		tickets[i].ID = uint64(tID)

		if _, err := tx.ExecContext(ctx, delLock, res.ShowtimeID, tickets[i].SeatID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Reservation fetches one reservation with its tickets.  Returns
// (nil, nil, nil) when the reservation does not exist.
func (r *ReservationRepo) Reservation(ctx context.Context, reservationID uint64) (*model.Reservation, []model.Ticket, error) {
	const q = `SELECT reservation_id, user_id, showtime_id, status, created_at, expires_at
	           FROM reservations WHERE reservation_id = ?`
	var res model.Reservation
	err := r.db.QueryRowContext(ctx, q, reservationID).
		Scan(&res.ID, &res.UserID, &res.ShowtimeID, &res.Status, &res.CreatedAt, &res.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	byRes, err := r.ticketsFor(ctx, []uint64{res.ID})
	if err != nil {
		return nil, nil, err
	}
	return &res, byRes[res.ID], nil
}

// ReservationsByUser lists a user's reservations, newest first, with
// tickets keyed by reservation id.
func (r *ReservationRepo) ReservationsByUser(ctx context.Context, userID uint64) ([]model.Reservation, map[uint64][]model.Ticket, error) {
	const q = `SELECT reservation_id, user_id, showtime_id, status, created_at, expires_at
	           FROM reservations
	           WHERE user_id = ?
	           ORDER BY reservation_id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var (
		out []model.Reservation
		ids []uint64
	)
	for rows.Next() {
		var res model.Reservation
		if err := rows.Scan(&res.ID, &res.UserID, &res.ShowtimeID, &res.Status, &res.CreatedAt, &res.ExpiresAt); err != nil {
			return nil, nil, err
		}
		out = append(out, res)
		ids = append(ids, res.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	if len(out) == 0 {
		return nil, map[uint64][]model.Ticket{}, nil
	}

	byRes, err := r.ticketsFor(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	return out, byRes, nil
}

func (r *ReservationRepo) ticketsFor(ctx context.Context, reservationIDs []uint64) (map[uint64][]model.Ticket, error) {
	q := `SELECT ticket_id, reservation_id, seat_id, price_cents, issued_at
	      FROM tickets
	      WHERE reservation_id IN (?` + strings.Repeat(", ?", len(reservationIDs)-1) + `)
	      ORDER BY ticket_id`
	args := make([]interface{}, len(reservationIDs))
	for i, id := range reservationIDs {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uint64][]model.Ticket, len(reservationIDs))
	for rows.Next() {
		var t model.Ticket
		if err := rows.Scan(&t.ID, &t.ReservationID, &t.SeatID, &t.PriceCents, &t.IssuedAt); err != nil {
			return nil, err
		}
		out[t.ReservationID] = append(out[t.ReservationID], t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
