// Package lock implements the seat lock table and lock manager: the
// serialization point for every state transition of a
// (showtime, seat) pair.  The check-then-set sequence for a key is
// indivisible with respect to all concurrent callers, including the
// reservation committer and the expiry sweeper, because all of them go
// through the same per-key mutex table.
package lock

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/showtime-booking/internal/metrics"
	"github.com/iliyamo/showtime-booking/internal/model"
	"github.com/iliyamo/showtime-booking/internal/registry"
)

// Store is the durable state the manager mutates.  Implementations must
// return committed data only; the manager provides the per-key
// serialization on top.  GetLock returns (nil, nil) when no lock row
// exists.
type Store interface {
	GetLock(ctx context.Context, showtimeID, seatID uint64) (*model.SeatLock, error)
	UpsertLock(ctx context.Context, l *model.SeatLock) error
	DeleteLock(ctx context.Context, showtimeID, seatID uint64) error
	LocksByShowtime(ctx context.Context, showtimeID uint64) ([]model.SeatLock, error)
	// ExpiredLocks lists every lock with expires_at <= cutoff across all
	// showtimes; the sweeper reclaims them one key at a time.
	ExpiredLocks(ctx context.Context, cutoff time.Time) ([]model.SeatLock, error)
	// SeatSold reports whether a ticket exists for the seat under a
	// confirmed reservation, and which reservation sold it.
	SeatSold(ctx context.Context, showtimeID, seatID uint64) (reservationID uint64, sold bool, err error)
	SoldSeats(ctx context.Context, showtimeID uint64) (map[uint64]uint64, error)
}

// SeatView is one row of a seat-map query: the seat's layout data plus
// its effective state for the queried showtime.
type SeatView struct {
	Seat      model.Seat
	Status    model.SeatStatus
	HeldBy    uint64     // holder when Status is held, else 0
	ExpiresAt *time.Time // hold deadline when Status is held
}

// Manager enforces acquire/release/expire semantics over the store.
type Manager struct {
	store Store
	reg   *registry.Registry
	keys  *Keys
	ttl   time.Duration
	now   func() time.Time
	mx    *metrics.Metrics
}

// NewManager builds a manager with the given default hold TTL.  The key
// table must be the same instance shared with the committer so that
// both serialize on identical mutexes.
func NewManager(store Store, reg *registry.Registry, keys *Keys, defaultTTL time.Duration) *Manager {
	return &Manager{
		store: store,
		reg:   reg,
		keys:  keys,
		ttl:   defaultTTL,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source; tests use it to simulate expiry.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// WithMetrics attaches Prometheus collectors.
func (m *Manager) WithMetrics(mx *metrics.Metrics) *Manager {
	m.mx = mx
	return m
}

// DefaultTTL returns the hold TTL applied when a caller passes zero.
func (m *Manager) DefaultTTL() time.Duration { return m.ttl }

// Now returns the manager's current time in UTC.
func (m *Manager) Now() time.Time { return m.now().UTC() }

// Acquire places or refreshes a hold on one seat.
//
// State rules, applied atomically per key:
//   - available                      → held by userID until now+ttl
//   - held by userID, not expired    → deadline refreshed (idempotent)
//   - held by userID, expired        → fresh acquisition, new token
//   - held by another, expired       → fresh acquisition by userID
//   - held by another, not expired   → ErrSeatLocked
//   - sold                           → ErrSeatUnavailable
//
// A ttl of zero selects the configured default.  When ctx is cancelled
// before the store write, no state changes.
func (m *Manager) Acquire(ctx context.Context, showtimeID, seatID, userID uint64, ttl time.Duration) (*model.SeatLock, error) {
	if ttl <= 0 {
		ttl = m.ttl
	}
	st, err := m.reg.Showtime(ctx, showtimeID)
	if err != nil {
		return nil, m.countAcquire(err)
	}
	if _, err := m.reg.Seat(ctx, st.ScreenID, seatID); err != nil {
		return nil, m.countAcquire(err)
	}

	unlock := m.keys.Lock(Key{ShowtimeID: showtimeID, SeatID: seatID})
	defer unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, sold, err := m.store.SeatSold(ctx, showtimeID, seatID); err != nil {
		return nil, m.countAcquire(err)
	} else if sold {
		return nil, m.countAcquire(ErrSeatUnavailable)
	}

	now := m.Now()
	cur, err := m.store.GetLock(ctx, showtimeID, seatID)
	if err != nil {
		return nil, m.countAcquire(err)
	}

	next := &model.SeatLock{
		ShowtimeID: showtimeID,
		SeatID:     seatID,
		UserID:     userID,
		LockedAt:   now,
		ExpiresAt:  now.Add(ttl),
	}
	refreshed := false
	switch {
	case cur == nil || cur.Expired(now):
		// Free seat, or a stale hold anyone may take over.  Re-acquiring
		// one's own expired hold is a fresh acquisition, not a refresh.
		next.Token = uuid.NewString()
	case cur.OwnedBy(userID):
		// Idempotent refresh: keep the original token and lock time,
		// extend the deadline.
		next.Token = cur.Token
		next.LockedAt = cur.LockedAt
		refreshed = true
	default:
		return nil, m.countAcquire(ErrSeatLocked)
	}

	if err := m.store.UpsertLock(ctx, next); err != nil {
		return nil, m.countAcquire(err)
	}
	if m.mx != nil {
		if refreshed {
			m.mx.LockAcquisitionsTotal.WithLabelValues("refreshed").Inc()
		} else {
			m.mx.LockAcquisitionsTotal.WithLabelValues("acquired").Inc()
		}
	}
	return next, nil
}

// Release removes the caller's hold on a seat.  Releasing a seat that is
// free, sold, or held by someone else is a successful no-op, so clients
// may unlock on navigation-away and retry without error handling.
func (m *Manager) Release(ctx context.Context, showtimeID, seatID, userID uint64) error {
	st, err := m.reg.Showtime(ctx, showtimeID)
	if err != nil {
		return err
	}
	if _, err := m.reg.Seat(ctx, st.ScreenID, seatID); err != nil {
		return err
	}

	unlock := m.keys.Lock(Key{ShowtimeID: showtimeID, SeatID: seatID})
	defer unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	cur, err := m.store.GetLock(ctx, showtimeID, seatID)
	if err != nil {
		m.countRelease("error")
		return err
	}
	if cur == nil || !cur.OwnedBy(userID) {
		m.countRelease("noop")
		return nil
	}
	if err := m.store.DeleteLock(ctx, showtimeID, seatID); err != nil {
		m.countRelease("error")
		return err
	}
	m.countRelease("released")
	return nil
}

// Query returns the effective state of every seat of the showtime's
// screen.  A hold past its deadline is reported available even when the
// sweeper has not reclaimed it yet; reads never depend on sweeper
// timing.  Query takes no key mutexes: the store only ever serves
// completed mutations, so the result is consistent with the most
// recently finished transition of each seat.
func (m *Manager) Query(ctx context.Context, showtimeID uint64) ([]SeatView, error) {
	st, err := m.reg.Showtime(ctx, showtimeID)
	if err != nil {
		return nil, err
	}
	seats, err := m.reg.Seats(ctx, st.ScreenID)
	if err != nil {
		return nil, err
	}
	locks, err := m.store.LocksByShowtime(ctx, showtimeID)
	if err != nil {
		return nil, err
	}
	sold, err := m.store.SoldSeats(ctx, showtimeID)
	if err != nil {
		return nil, err
	}

	now := m.Now()
	held := make(map[uint64]model.SeatLock, len(locks))
	for _, l := range locks {
		if !l.Expired(now) {
			held[l.SeatID] = l
		}
	}

	views := make([]SeatView, 0, len(seats))
	for _, s := range seats {
		v := SeatView{Seat: s, Status: model.SeatAvailable}
		if _, ok := sold[s.ID]; ok {
			v.Status = model.SeatSold
		} else if l, ok := held[s.ID]; ok {
			exp := l.ExpiresAt
			v.Status = model.SeatHeld
			v.HeldBy = l.UserID
			v.ExpiresAt = &exp
		}
		views = append(views, v)
	}
	return views, nil
}

// SweepExpired reclaims every hold whose deadline has passed, one key at
// a time through the regular mutex, re-checking the hold under the
// mutex before deleting it.  A hold refreshed between the scan and the
// reclaim survives.  Returns the number of holds removed.
func (m *Manager) SweepExpired(ctx context.Context) (int, error) {
	expired, err := m.store.ExpiredLocks(ctx, m.Now())
	if err != nil {
		return 0, err
	}

	reclaimed := 0
	for _, l := range expired {
		if err := ctx.Err(); err != nil {
			return reclaimed, err
		}
		n, err := m.reclaim(ctx, l)
		if err != nil {
			return reclaimed, err
		}
		reclaimed += n
	}
	if m.mx != nil && reclaimed > 0 {
		m.mx.SweeperReclaimedTotal.Add(float64(reclaimed))
	}
	return reclaimed, nil
}

// reclaim deletes one expired hold under its key mutex.  The token
// comparison keeps the sweeper from deleting a hold that was re-issued
// to a new holder after the scan.
func (m *Manager) reclaim(ctx context.Context, l model.SeatLock) (int, error) {
	unlock := m.keys.Lock(Key{ShowtimeID: l.ShowtimeID, SeatID: l.SeatID})
	defer unlock()

	cur, err := m.store.GetLock(ctx, l.ShowtimeID, l.SeatID)
	if err != nil {
		return 0, err
	}
	if cur == nil || cur.Token != l.Token || !cur.Expired(m.Now()) {
		return 0, nil
	}
	if err := m.store.DeleteLock(ctx, l.ShowtimeID, l.SeatID); err != nil {
		return 0, err
	}
	return 1, nil
}

// countAcquire maps an acquire failure to its metrics label and passes
// the error through unchanged.
func (m *Manager) countAcquire(err error) error {
	if m.mx == nil {
		return err
	}
	switch err {
	case ErrSeatLocked:
		m.mx.LockAcquisitionsTotal.WithLabelValues("conflict").Inc()
	case ErrSeatUnavailable:
		m.mx.LockAcquisitionsTotal.WithLabelValues("sold").Inc()
	case registry.ErrSeatNotFound, registry.ErrShowtimeNotFound:
		m.mx.LockAcquisitionsTotal.WithLabelValues("not_found").Inc()
	default:
		m.mx.LockAcquisitionsTotal.WithLabelValues("error").Inc()
	}
	return err
}

func (m *Manager) countRelease(status string) {
	if m.mx != nil {
		m.mx.LockReleasesTotal.WithLabelValues(status).Inc()
	}
}
