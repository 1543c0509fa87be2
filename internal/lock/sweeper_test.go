package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepExpiredReclaimsOnlyStaleHolds(t *testing.T) {
	mgr, st, clock := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.Acquire(ctx, testShowtime, 1, 16, 0)
	require.NoError(t, err)
	_, err = mgr.Acquire(ctx, testShowtime, 2, 16, 0)
	require.NoError(t, err)

	// Let both holds lapse, then refresh only seat 2.
	clock.Advance(holdTTL + time.Second)
	_, err = mgr.Acquire(ctx, testShowtime, 2, 16, 0)
	require.NoError(t, err)

	reclaimed, err := mgr.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, reclaimed)

	locks, err := st.LocksByShowtime(ctx, testShowtime)
	require.NoError(t, err)
	require.Len(t, locks, 1)
	assert.Equal(t, uint64(2), locks[0].SeatID)
}

func TestSweepExpiredNothingToDo(t *testing.T) {
	mgr, _, _ := newTestManager(t)

	reclaimed, err := mgr.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Zero(t, reclaimed)
}

func TestSweeperStartStop(t *testing.T) {
	mgr, st, clock := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.Acquire(ctx, testShowtime, 1, 16, 0)
	require.NoError(t, err)
	clock.Advance(holdTTL + time.Second)

	s := NewSweeper(mgr, 5*time.Millisecond)
	go s.Start(ctx)

	assert.Eventually(t, func() bool {
		locks, err := st.LocksByShowtime(ctx, testShowtime)
		return err == nil && len(locks) == 0
	}, time.Second, 5*time.Millisecond, "sweeper should reclaim the expired hold")

	s.Stop() // must not hang
}
