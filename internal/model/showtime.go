package model

import "time"

// Showtime is a scheduled screening of a movie on a particular screen.
// Seat identifiers are unique within the scope of one showtime; all
// locks and reservations are keyed by it.
//
// Fields:
//  ID       – primary key identifier.
//  MovieID  – movie being screened.
//  ScreenID – screen (and therefore seat layout) used for the screening.
//  StartsAt – when the screening begins (UTC).
//  EndsAt   – when the screening ends (UTC).
type Showtime struct {
	ID       uint64    `json:"showtime_id"` // showtimes.showtime_id
	MovieID  uint64    `json:"movie_id"`    // showtimes.movie_id
	ScreenID uint64    `json:"screen_id"`   // showtimes.screen_id
	StartsAt time.Time `json:"start_time"`  // showtimes.start_time
	EndsAt   time.Time `json:"end_time"`    // showtimes.end_time
}
