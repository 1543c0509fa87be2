package model

// SeatClass enumerates the pricing class of a physical seat.  The class
// never changes after the seat is created; ticket prices are resolved
// from it at commit time.
type SeatClass string

const (
	SeatClassStandard SeatClass = "standard"
	SeatClassPremium  SeatClass = "premium"
)

// SeatStatus is the effective state of a seat for one showtime as seen
// by callers.  A held seat whose deadline has passed is reported as
// available even before the sweeper physically reclaims the lock.
type SeatStatus string

const (
	SeatAvailable SeatStatus = "available"
	SeatHeld      SeatStatus = "held"
	SeatSold      SeatStatus = "sold"
)

// Seat describes one physical seat in a screen.  Seats are reference
// data: loaded once, validated against, never mutated by the booking
// core.
//
// Fields:
//  ID       – primary key identifier.
//  ScreenID – screen this seat belongs to.
//  Label    – display label such as "A12".
//  Class    – pricing class (standard or premium).
//  Row      – row position within the screen (1-based).
//  Col      – column position within the row (1-based).
type Seat struct {
	ID       uint64    `json:"seat_id"`    // seats.seat_id
	ScreenID uint64    `json:"screen_id"`  // seats.screen_id
	Label    string    `json:"seat_label"` // seats.seat_label
	Class    SeatClass `json:"seat_class"` // seats.seat_class
	Row      uint32    `json:"row_num"`    // seats.row_num
	Col      uint32    `json:"col_num"`    // seats.col_num
}
