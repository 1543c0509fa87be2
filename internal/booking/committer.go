// Package booking converts a set of held seats into a durable sale.
// The commit is the system's one genuine all-or-nothing contract: every
// requested seat is re-verified under the same per-key mutexes the lock
// manager uses, and the reservation, its tickets, the sold markers and
// the hold deletions land in a single atomic store operation.
package booking

import (
	"context"
	"sort"
	"time"

	"github.com/iliyamo/showtime-booking/internal/lock"
	"github.com/iliyamo/showtime-booking/internal/metrics"
	"github.com/iliyamo/showtime-booking/internal/model"
	"github.com/iliyamo/showtime-booking/internal/pricing"
	"github.com/iliyamo/showtime-booking/internal/registry"
)

// pendingWindow mirrors the validity window the original checkout flow
// stamped on reservations.  Confirmed records never expire; the field
// is kept for schema compatibility.
const pendingWindow = 30 * time.Minute

// Store is the durable state the committer reads and writes.
// CreateReservation must atomically persist the reservation and its
// tickets, delete the listed holds and mark the seats sold — one
// transaction in MySQL, one mutex section in the memory store — and
// populate the generated ids.
type Store interface {
	GetLock(ctx context.Context, showtimeID, seatID uint64) (*model.SeatLock, error)
	SeatSold(ctx context.Context, showtimeID, seatID uint64) (reservationID uint64, sold bool, err error)
	CreateReservation(ctx context.Context, res *model.Reservation, tickets []model.Ticket) error
	Reservation(ctx context.Context, reservationID uint64) (*model.Reservation, []model.Ticket, error)
	ReservationsByUser(ctx context.Context, userID uint64) ([]model.Reservation, map[uint64][]model.Ticket, error)
}

// Committer validates holds and issues reservations.
type Committer struct {
	store  Store
	reg    *registry.Registry
	keys   *lock.Keys
	prices pricing.Resolver
	now    func() time.Time
	mx     *metrics.Metrics
}

// NewCommitter builds a committer.  The key table must be the same
// instance used by the lock manager; sharing it is what makes hold
// verification and seat acquisition mutually exclusive.
func NewCommitter(store Store, reg *registry.Registry, keys *lock.Keys, prices pricing.Resolver) *Committer {
	return &Committer{
		store:  store,
		reg:    reg,
		keys:   keys,
		prices: prices,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source; tests use it to simulate expiry.
func (c *Committer) WithClock(now func() time.Time) *Committer {
	c.now = now
	return c
}

// WithMetrics attaches Prometheus collectors.
func (c *Committer) WithMetrics(mx *metrics.Metrics) *Committer {
	c.mx = mx
	return c
}

// Commit turns the user's held seats into a confirmed reservation with
// one ticket per seat, or fails atomically.
//
// Seat prices are resolved before any mutex is taken; no external work
// happens inside the critical section.  Key mutexes are acquired in
// ascending seat order so racing commits over overlapping sets cannot
// deadlock.  If any seat is not held by userID (expired, foreign,
// sold), the whole commit aborts with PartialHoldLossError naming the
// failed seats and no seat state changes.
func (c *Committer) Commit(ctx context.Context, userID, showtimeID uint64, seatIDs []uint64) (*model.Reservation, []model.Ticket, error) {
	start := time.Now()
	res, tickets, err := c.commit(ctx, userID, showtimeID, seatIDs)
	c.observe(start, err)
	return res, tickets, err
}

func (c *Committer) commit(ctx context.Context, userID, showtimeID uint64, seatIDs []uint64) (*model.Reservation, []model.Ticket, error) {
	ids := dedupe(seatIDs)
	if len(ids) == 0 {
		return nil, nil, ErrEmptySelection
	}

	st, err := c.reg.Showtime(ctx, showtimeID)
	if err != nil {
		return nil, nil, err
	}

	// Resolve seats and prices up front, outside the critical section.
	prices := make(map[uint64]uint32, len(ids))
	for _, id := range ids {
		seat, err := c.reg.Seat(ctx, st.ScreenID, id)
		if err != nil {
			return nil, nil, err
		}
		p, err := c.prices.PriceFor(seat.Class)
		if err != nil {
			return nil, nil, err
		}
		prices[id] = p
	}

	keys := make([]lock.Key, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, lock.Key{ShowtimeID: showtimeID, SeatID: id})
	}
	unlock := c.keys.LockAll(keys)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	// Verify every hold under the mutexes.  Collect all failures so the
	// caller learns exactly which seats to re-select.
	now := c.now().UTC()
	var failed []uint64
	for _, id := range ids {
		if _, sold, err := c.store.SeatSold(ctx, showtimeID, id); err != nil {
			return nil, nil, err
		} else if sold {
			failed = append(failed, id)
			continue
		}
		l, err := c.store.GetLock(ctx, showtimeID, id)
		if err != nil {
			return nil, nil, err
		}
		if l == nil || !l.OwnedBy(userID) || l.Expired(now) {
			failed = append(failed, id)
		}
	}
	if len(failed) > 0 {
		sort.Slice(failed, func(i, j int) bool { return failed[i] < failed[j] })
		return nil, nil, &PartialHoldLossError{SeatIDs: failed}
	}

	res := &model.Reservation{
		UserID:     userID,
		ShowtimeID: showtimeID,
		Status:     model.ReservationConfirmed,
		CreatedAt:  now,
		ExpiresAt:  now.Add(pendingWindow),
	}
	tickets := make([]model.Ticket, 0, len(ids))
	for _, id := range ids {
		tickets = append(tickets, model.Ticket{
			SeatID:     id,
			PriceCents: prices[id],
			IssuedAt:   now,
		})
	}

	if err := c.store.CreateReservation(ctx, res, tickets); err != nil {
		return nil, nil, err
	}
	return res, tickets, nil
}

func (c *Committer) observe(start time.Time, err error) {
	if c.mx == nil {
		return
	}
	c.mx.CommitDuration.Observe(time.Since(start).Seconds())
	switch {
	case err == nil:
		c.mx.CommitsTotal.WithLabelValues("confirmed").Inc()
	case isHoldLoss(err):
		c.mx.CommitsTotal.WithLabelValues("hold_loss").Inc()
	case err == ErrEmptySelection:
		c.mx.CommitsTotal.WithLabelValues("empty").Inc()
	case err == registry.ErrShowtimeNotFound || err == registry.ErrSeatNotFound:
		c.mx.CommitsTotal.WithLabelValues("not_found").Inc()
	default:
		c.mx.CommitsTotal.WithLabelValues("error").Inc()
	}
}

func isHoldLoss(err error) bool {
	_, ok := err.(*PartialHoldLossError)
	return ok
}

// dedupe drops zero and duplicate seat ids, preserving first-seen order.
func dedupe(ids []uint64) []uint64 {
	out := make([]uint64, 0, len(ids))
	seen := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
