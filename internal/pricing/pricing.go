// Package pricing resolves a seat class to a ticket price.  Pricing
// policy itself lives outside the booking core; this package only
// defines the collaborator contract plus the flat default table used
// until a real pricing service is wired in.
package pricing

import (
	"fmt"

	"github.com/iliyamo/showtime-booking/internal/model"
)

// Resolver maps a seat class to a price in cents.  Implementations must
// be safe for concurrent use; the committer calls them outside any seat
// critical section.
type Resolver interface {
	PriceFor(class model.SeatClass) (uint32, error)
}

// Static is a fixed class → cents table.
type Static map[model.SeatClass]uint32

// Default prices: standard 10.00, premium 15.00.
func Default() Static {
	return Static{
		model.SeatClassStandard: 1000,
		model.SeatClassPremium:  1500,
	}
}

// PriceFor returns the configured price for the class, or an error when
// the class is unknown so that a bad layout row fails a commit loudly
// instead of selling a seat for zero.
func (s Static) PriceFor(class model.SeatClass) (uint32, error) {
	p, ok := s[class]
	if !ok {
		return 0, fmt.Errorf("no price configured for seat class %q", class)
	}
	return p, nil
}
