// Package queue defines message payloads exchanged over the message broker.
package queue

// ReservationConfirmedEvent is published after a commit turns held seats
// into tickets.  It carries enough for downstream consumers to log,
// notify, or feed analytics without querying the primary database.
type ReservationConfirmedEvent struct {
	ReservationID   uint64   `json:"reservation_id"`
	UserID          uint64   `json:"user_id"`
	ShowtimeID      uint64   `json:"showtime_id"`
	SeatIDs         []uint64 `json:"seat_ids"`
	SeatLabels      []string `json:"seats"`
	TotalPriceCents uint32   `json:"total_price_cents"`
	ConfirmedAt     string   `json:"confirmed_at"`
}
