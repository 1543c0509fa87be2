package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/showtime-booking/internal/lock"
	"github.com/iliyamo/showtime-booking/internal/model"
	"github.com/iliyamo/showtime-booking/internal/pricing"
	"github.com/iliyamo/showtime-booking/internal/registry"
	"github.com/iliyamo/showtime-booking/internal/store/memory"
)

const (
	testShowtime uint64 = 226
	testScreen   uint64 = 1
	holdTTL             = 300 * time.Second
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	store     *memory.Store
	manager   *lock.Manager
	committer *Committer
	clock     *fakeClock
}

// newFixture wires a committer and a lock manager over one shared key
// table, mirroring the production wiring.  Screen layout: seats 1-72
// standard, 73-96 premium.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	st := memory.New()
	st.AddShowtime(model.Showtime{
		ID:       testShowtime,
		MovieID:  1,
		ScreenID: testScreen,
		StartsAt: time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2026, 3, 14, 22, 30, 0, 0, time.UTC),
	})
	seats := make([]model.Seat, 0, 96)
	for row := uint32(1); row <= 8; row++ {
		class := model.SeatClassStandard
		if row >= 7 {
			class = model.SeatClassPremium
		}
		for col := uint32(1); col <= 12; col++ {
			seats = append(seats, model.Seat{
				ID:       uint64((row-1)*12 + col),
				ScreenID: testScreen,
				Label:    fmt.Sprintf("%c%d", 'A'+row-1, col),
				Class:    class,
				Row:      row,
				Col:      col,
			})
		}
	}
	st.AddSeats(testScreen, seats)

	clock := newFakeClock()
	reg := registry.New(st)
	keys := lock.NewKeys()
	return &fixture{
		store:     st,
		manager:   lock.NewManager(st, reg, keys, holdTTL).WithClock(clock.Now),
		committer: NewCommitter(st, reg, keys, pricing.Default()).WithClock(clock.Now),
		clock:     clock,
	}
}

func TestCommitEmptySelection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.committer.Commit(ctx, 16, testShowtime, nil)
	assert.ErrorIs(t, err, ErrEmptySelection)

	// Zero ids and duplicates of zero collapse to nothing as well.
	_, _, err = f.committer.Commit(ctx, 16, testShowtime, []uint64{0, 0})
	assert.ErrorIs(t, err, ErrEmptySelection)
}

func TestCommitHappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Seat 5 is standard, seat 80 premium.
	_, err := f.manager.Acquire(ctx, testShowtime, 5, 16, 0)
	require.NoError(t, err)
	_, err = f.manager.Acquire(ctx, testShowtime, 80, 16, 0)
	require.NoError(t, err)

	res, tickets, err := f.committer.Commit(ctx, 16, testShowtime, []uint64{5, 80})
	require.NoError(t, err)
	assert.Equal(t, model.ReservationConfirmed, res.Status)
	assert.NotZero(t, res.ID)
	require.Len(t, tickets, 2)

	prices := map[uint64]uint32{}
	for _, tk := range tickets {
		assert.Equal(t, res.ID, tk.ReservationID)
		assert.NotZero(t, tk.ID)
		prices[tk.SeatID] = tk.PriceCents
	}
	assert.Equal(t, uint32(1000), prices[5])
	assert.Equal(t, uint32(1500), prices[80])

	// The seats are sold now; holds are gone and re-acquisition fails.
	views, err := f.manager.Query(ctx, testShowtime)
	require.NoError(t, err)
	for _, v := range views {
		switch v.Seat.ID {
		case 5, 80:
			assert.Equal(t, model.SeatSold, v.Status)
		default:
			assert.Equal(t, model.SeatAvailable, v.Status)
		}
	}
	_, err = f.manager.Acquire(ctx, testShowtime, 5, 42, 0)
	assert.ErrorIs(t, err, lock.ErrSeatUnavailable)
}

func TestCommitDeduplicatesSeats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.manager.Acquire(ctx, testShowtime, 5, 16, 0)
	require.NoError(t, err)

	_, tickets, err := f.committer.Commit(ctx, 16, testShowtime, []uint64{5, 5, 0, 5})
	require.NoError(t, err)
	assert.Len(t, tickets, 1)
}

func TestCommitAllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.manager.Acquire(ctx, testShowtime, 1, 16, 0)
	require.NoError(t, err)
	_, err = f.manager.Acquire(ctx, testShowtime, 2, 42, 0)
	require.NoError(t, err)

	_, _, err = f.committer.Commit(ctx, 16, testShowtime, []uint64{1, 2})
	var loss *PartialHoldLossError
	require.ErrorAs(t, err, &loss)
	assert.Equal(t, []uint64{2}, loss.SeatIDs)

	// Nothing changed: seat 1 still held by 16, seat 2 by 42, nothing sold.
	views, err := f.manager.Query(ctx, testShowtime)
	require.NoError(t, err)
	for _, v := range views {
		switch v.Seat.ID {
		case 1:
			assert.Equal(t, model.SeatHeld, v.Status)
			assert.Equal(t, uint64(16), v.HeldBy)
		case 2:
			assert.Equal(t, model.SeatHeld, v.Status)
			assert.Equal(t, uint64(42), v.HeldBy)
		default:
			assert.Equal(t, model.SeatAvailable, v.Status)
		}
	}
}

// A buyer holding two seats loses one to expiry, refreshes the other,
// and commits both: the commit names the lost seat and the surviving
// hold is untouched.
func TestCommitKeepsSurvivingHoldOnLoss(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.manager.Acquire(ctx, testShowtime, 1, 16, 0)
	require.NoError(t, err)
	_, err = f.manager.Acquire(ctx, testShowtime, 2, 16, 0)
	require.NoError(t, err)

	f.clock.Advance(holdTTL + time.Second)
	_, err = f.manager.Acquire(ctx, testShowtime, 1, 16, 0) // fresh hold on seat 1 only
	require.NoError(t, err)

	_, _, err = f.committer.Commit(ctx, 16, testShowtime, []uint64{1, 2})
	var loss *PartialHoldLossError
	require.ErrorAs(t, err, &loss)
	assert.Equal(t, []uint64{2}, loss.SeatIDs)

	views, err := f.manager.Query(ctx, testShowtime)
	require.NoError(t, err)
	for _, v := range views {
		if v.Seat.ID == 1 {
			assert.Equal(t, model.SeatHeld, v.Status)
			assert.Equal(t, uint64(16), v.HeldBy)
		} else {
			assert.Equal(t, model.SeatAvailable, v.Status)
		}
	}
}

// Full contention walkthrough on one seat: user 16 holds seat 12 for
// 300s, user 42 is rejected, takes the seat over one second after the
// deadline, and user 16's late commit reports the seat as lost.
func TestExpiredHoldTakeoverThenLateCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.manager.Acquire(ctx, testShowtime, 12, 16, 300*time.Second)
	require.NoError(t, err)

	_, err = f.manager.Acquire(ctx, testShowtime, 12, 42, 300*time.Second)
	require.ErrorIs(t, err, lock.ErrSeatLocked)

	f.clock.Advance(301 * time.Second)
	_, err = f.manager.Acquire(ctx, testShowtime, 12, 42, 300*time.Second)
	require.NoError(t, err)

	_, _, err = f.committer.Commit(ctx, 16, testShowtime, []uint64{12})
	var loss *PartialHoldLossError
	require.ErrorAs(t, err, &loss)
	assert.Equal(t, []uint64{12}, loss.SeatIDs)

	// The takeover holder can still buy the seat.
	res, _, err := f.committer.Commit(ctx, 42, testShowtime, []uint64{12})
	require.NoError(t, err)
	assert.Equal(t, uint64(42), res.UserID)
}

func TestCommitExpiredHoldFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.manager.Acquire(ctx, testShowtime, 1, 16, 0)
	require.NoError(t, err)

	f.clock.Advance(holdTTL + time.Second)
	_, _, err = f.committer.Commit(ctx, 16, testShowtime, []uint64{1})
	var loss *PartialHoldLossError
	require.ErrorAs(t, err, &loss)
	assert.Equal(t, []uint64{1}, loss.SeatIDs)
}

func TestCommitReportsAllFailedSeats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.manager.Acquire(ctx, testShowtime, 3, 16, 0)
	require.NoError(t, err)
	_, err = f.manager.Acquire(ctx, testShowtime, 7, 42, 0)
	require.NoError(t, err)
	_, err = f.manager.Acquire(ctx, testShowtime, 9, 42, 0)
	require.NoError(t, err)

	_, _, err = f.committer.Commit(ctx, 16, testShowtime, []uint64{9, 3, 7})
	var loss *PartialHoldLossError
	require.ErrorAs(t, err, &loss)
	assert.Equal(t, []uint64{7, 9}, loss.SeatIDs, "failed seats are reported sorted")
}

func TestCommitUnknownTargets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.committer.Commit(ctx, 16, 999, []uint64{1})
	assert.ErrorIs(t, err, registry.ErrShowtimeNotFound)

	_, _, err = f.committer.Commit(ctx, 16, testShowtime, []uint64{9999})
	assert.ErrorIs(t, err, registry.ErrSeatNotFound)
}

// A commit whose context is cancelled before the critical section must
// change nothing: the hold survives unchanged and no sale is recorded.
func TestCommitCancelledContextIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	held, err := f.manager.Acquire(ctx, testShowtime, 1, 16, 0)
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err = f.committer.Commit(cancelled, 16, testShowtime, []uint64{1})
	require.ErrorIs(t, err, context.Canceled)

	after, err := f.store.GetLock(ctx, testShowtime, 1)
	require.NoError(t, err)
	require.NotNil(t, after)
	assert.Equal(t, *held, *after, "cancelled commit must leave the hold untouched")

	_, sold, err := f.store.SeatSold(ctx, testShowtime, 1)
	require.NoError(t, err)
	assert.False(t, sold)

	list, _, err := f.store.ReservationsByUser(ctx, 16)
	require.NoError(t, err)
	assert.Empty(t, list, "no reservation may be created")
}

// Two racing commits over the same held seat: exactly one may win; the
// loser observes a hold loss because the winner consumed the hold.
func TestConcurrentCommitSingleSale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.manager.Acquire(ctx, testShowtime, 1, 16, 0)
	require.NoError(t, err)

	const attempts = 10
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		wins   int
		losses int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := f.committer.Commit(ctx, 16, testShowtime, []uint64{1})
			mu.Lock()
			defer mu.Unlock()
			var loss *PartialHoldLossError
			switch {
			case err == nil:
				wins++
			case errors.As(err, &loss):
				losses++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, attempts-1, losses)
}
