package model

import "time"

// ReservationStatus enumerates the lifecycle states of a reservation.
// The committer only ever produces confirmed reservations; the other
// states exist for records cancelled or expired by external flows.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationExpired   ReservationStatus = "expired"
)

// Reservation is a durable sale covering one or more seats of a single
// showtime.  Its tickets are created atomically with it; a confirmed
// reservation without all of its seats sold (or the converse) must
// never be observable.
//
// Fields:
//  ID         – primary key identifier.
//  UserID     – customer who owns the reservation.
//  ShowtimeID – showtime the seats were bought for.
//  Status     – lifecycle state; the committer writes "confirmed".
//  CreatedAt  – when the reservation was created (UTC).
//  ExpiresAt  – validity deadline carried for pending records (UTC).
type Reservation struct {
	ID         uint64            `json:"reservation_id"` // reservations.reservation_id
	UserID     uint64            `json:"user_id"`        // reservations.user_id
	ShowtimeID uint64            `json:"showtime_id"`    // reservations.showtime_id
	Status     ReservationStatus `json:"status"`         // reservations.status
	CreatedAt  time.Time         `json:"created_at"`     // reservations.created_at
	ExpiresAt  time.Time         `json:"expires_at"`     // reservations.expires_at
}

// Ticket is one sold seat under a reservation.  The price is resolved
// from the seat class at commit time and frozen here.
//
// Fields:
//  ID            – primary key identifier.
//  ReservationID – owning reservation.
//  SeatID        – seat that was sold.
//  PriceCents    – price paid for this seat in cents.
//  IssuedAt      – when the ticket was issued (UTC).
type Ticket struct {
	ID            uint64    `json:"ticket_id"`      // tickets.ticket_id
	ReservationID uint64    `json:"reservation_id"` // tickets.reservation_id
	SeatID        uint64    `json:"seat_id"`        // tickets.seat_id
	PriceCents    uint32    `json:"price_cents"`    // tickets.price_cents
	IssuedAt      time.Time `json:"issued_at"`      // tickets.issued_at
}
