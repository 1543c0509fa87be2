// Package repository contains the MySQL data access layer of the
// booking core.  It implements the store interfaces consumed by the
// registry, the lock manager and the reservation committer.  All
// timestamps are stored and compared in UTC.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/showtime-booking/internal/model"
	"github.com/iliyamo/showtime-booking/internal/registry"
)

// LayoutRepo serves the read-only catalog the seat registry caches:
// showtimes and per-screen seat layouts.  Nothing in the booking core
// ever writes these tables.
type LayoutRepo struct {
	db *sql.DB
}

// NewLayoutRepo constructs a LayoutRepo bound to the given database.
func NewLayoutRepo(db *sql.DB) *LayoutRepo { return &LayoutRepo{db: db} }

// Showtime retrieves one showtime by id.  Returns
// registry.ErrShowtimeNotFound when no row exists.
func (r *LayoutRepo) Showtime(ctx context.Context, showtimeID uint64) (*model.Showtime, error) {
	const q = `SELECT showtime_id, movie_id, screen_id, start_time, end_time
	           FROM showtimes WHERE showtime_id = ?`
	var st model.Showtime
	err := r.db.QueryRowContext(ctx, q, showtimeID).
		Scan(&st.ID, &st.MovieID, &st.ScreenID, &st.StartsAt, &st.EndsAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, registry.ErrShowtimeNotFound
		}
		return nil, err
	}
	return &st, nil
}

// SeatsByScreen retrieves the full layout of a screen ordered by row
// then column, the order the seat map is rendered in.
func (r *LayoutRepo) SeatsByScreen(ctx context.Context, screenID uint64) ([]model.Seat, error) {
	const q = `SELECT seat_id, screen_id, seat_label, seat_class, row_num, col_num
	           FROM seats
	           WHERE screen_id = ?
	           ORDER BY row_num, col_num`
	rows, err := r.db.QueryContext(ctx, q, screenID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var seats []model.Seat
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.ScreenID, &s.Label, &s.Class, &s.Row, &s.Col); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return seats, nil
}
