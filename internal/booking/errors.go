package booking

import (
	"errors"
	"fmt"
)

// ErrEmptySelection is returned when a commit names no seats.
var ErrEmptySelection = errors.New("no seats selected")

// PartialHoldLossError aborts a commit when at least one requested seat
// is no longer held by the committing user — expired, taken over by
// someone else, or already sold.  The commit leaves every other seat
// exactly as it was; the caller re-selects and retries.
type PartialHoldLossError struct {
	SeatIDs []uint64 // seats that failed verification, ascending
}

func (e *PartialHoldLossError) Error() string {
	return fmt.Sprintf("hold lost for seats %v", e.SeatIDs)
}
